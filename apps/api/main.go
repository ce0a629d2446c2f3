package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	echoapi "github.com/wepgcomp/wepgcomp/apps/api/echo"
	"github.com/wepgcomp/wepgcomp/core"
	"github.com/wepgcomp/wepgcomp/core/evaluation"
	"github.com/wepgcomp/wepgcomp/core/event"
	"github.com/wepgcomp/wepgcomp/core/schedule"
	"github.com/wepgcomp/wepgcomp/core/submission"
	"github.com/wepgcomp/wepgcomp/core/user"
	emailsvc "github.com/wepgcomp/wepgcomp/services/email"
	logsvc "github.com/wepgcomp/wepgcomp/services/logger"
	storagesvc "github.com/wepgcomp/wepgcomp/services/storage"
	"github.com/wepgcomp/wepgcomp/storage/database"
	sqlxrepos "github.com/wepgcomp/wepgcomp/storage/database/sqlx"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// set up logger
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		core.Conf,
	)
	logger.Enable(!core.Conf.Debug)

	logger.Info(fmt.Sprintf("Application initializing : version %q", core.Conf.Build))
	defer logger.Info("Application stopped")

	// set up DB
	if err := database.CreateIfNotExist(core.Conf); err != nil {
		logger.Fatal("creating database", err)
	}
	db, err := database.Open(core.Conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer db.Close()
	if err = database.Migrate(db.DB); err != nil {
		logger.Fatal("migrating database", err)
	}

	// set up repositories
	userRepo := sqlxrepos.NewUserRepository(db)
	eventRepo := sqlxrepos.NewEventRepository(db)
	scheduleRepo := sqlxrepos.NewScheduleRepository(db)
	submissionRepo := sqlxrepos.NewSubmissionRepository(db)
	evaluationRepo := sqlxrepos.NewEvaluationRepository(db)

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}
	fileStorage, err := storagesvc.NewLocalService(filepath.Join(core.Conf.WorkDir, core.Conf.MediaRoot))
	if err != nil {
		logger.Fatal("setting up file storage", err)
	}

	usrSvc := user.NewService(userRepo, mailSvc)
	eventSvc := event.NewService(eventRepo)
	scheduleSvc := schedule.NewService(scheduleRepo, eventRepo, submissionRepo, mailSvc)
	submissionSvc := submission.NewService(submissionRepo, userRepo, eventRepo, scheduleRepo, fileStorage, logger)
	evaluationSvc := evaluation.NewService(evaluationRepo, userRepo, scheduleRepo)

	// start API server
	server := echoapi.NewServer(
		&echoapi.Options{
			Address:       core.Conf.Server.Address(),
			Logger:        logger,
			FileStorage:   fileStorage,
			UserSvc:       usrSvc,
			EventSvc:      eventSvc,
			ScheduleSvc:   scheduleSvc,
			SubmissionSvc: submissionSvc,
			EvaluationSvc: evaluationSvc,
		},
	)
	go server.Start()

	// block until an OS signal or an integrity shutdown request, then drain
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
	case <-server.ShutdownSignal():
		logger.Info("integrity issue: Start shutdown...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Error("could not stop server gracefully", err)
	}
}
