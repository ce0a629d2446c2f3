package echoapi

import (
	"context"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/wepgcomp/wepgcomp/core"
	"github.com/wepgcomp/wepgcomp/core/evaluation"
	"github.com/wepgcomp/wepgcomp/core/event"
	"github.com/wepgcomp/wepgcomp/core/schedule"
	"github.com/wepgcomp/wepgcomp/core/submission"
	"github.com/wepgcomp/wepgcomp/core/user"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		Logger        core.Logger
		FileStorage   core.FileStorage
		UserSvc       user.Service
		EventSvc      event.Service
		ScheduleSvc   schedule.Service
		SubmissionSvc submission.Service
		EvaluationSvc evaluation.Service
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
		// ShutdownSignal fires when a fatal error asks for a graceful stop.
		ShutdownSignal() <-chan struct{}
	}

	server struct {
		opts *Options
		app  *echo.Echo

		shutdownOnce sync.Once
		shutdownCh   chan struct{}
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts:       opts,
		app:        echo.New(),
		shutdownCh: make(chan struct{}),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.signalShutdown)
	s.app.Debug = core.Conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/api")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerUserAPI(v1, jwt, s.opts.UserSvc)
	registerEventAPI(v1, jwt, s.opts.EventSvc)
	registerScheduleAPI(v1, jwt, s.opts.ScheduleSvc, s.opts.EventSvc)
	registerSubmissionAPI(v1, jwt, s.opts.SubmissionSvc, s.opts.UserSvc, s.opts.FileStorage)
	registerEvaluationAPI(v1, jwt, s.opts.EvaluationSvc, s.opts.UserSvc)
}

func (s *server) Start() {
	s.app.Logger.Fatal(s.app.Start(s.opts.Address))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ShutdownSignal() <-chan struct{} {
	return s.shutdownCh
}

func (s *server) signalShutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdownCh) })
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to WEPGCOMP API!")
}
