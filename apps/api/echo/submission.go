package echoapi

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/wepgcomp/wepgcomp/core"
	"github.com/wepgcomp/wepgcomp/core/submission"
	"github.com/wepgcomp/wepgcomp/core/user"
)

var errSubNotFoundInCtx = errors.New("submission object not found in echo.Context")

type submissionApi struct {
	svc     submission.Service
	userSvc user.Service
	files   core.FileStorage
}

func registerSubmissionAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc submission.Service,
	userSvc user.Service, files core.FileStorage) {

	api := submissionApi{svc: svc, userSvc: userSvc, files: files}

	sg := g.Group("/submissions", jwt)
	sg.POST("", api.create)
	sg.GET("", api.query)
	sg.POST("/upload", api.upload)

	// detail endpoints
	dg := sg.Group("/:id", api.ctxSubmissionOrAdminMiddleware())
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

// Handlers

func (api *submissionApi) create(ctx echo.Context) error {
	var data submission.NewSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}

	// non-admins can only submit on their own behalf
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if data.MainAuthorID == "" {
		data.MainAuthorID = ctxUsr.ID
	}
	if !ctxUsr.IsAdmin && data.MainAuthorID != ctxUsr.ID {
		return errHttpForbidden
	}

	if err := data.Validate(); err != nil {
		return err
	}

	sub, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating submission")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *submissionApi) query(ctx echo.Context) error {
	filter := new(submission.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []submission.Detail{})
	}

	// non-admins only see their own submissions
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !ctxUsr.IsAdmin {
		filter.MainAuthorID = ctxUsr.ID
	}

	ordering := new(Ordering)
	ordering.Bind(ctx)

	subs, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []submission.Detail{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *submissionApi) retrieve(ctx echo.Context) error {
	sub, ok := ctx.Get("object").(submission.Detail)
	if !ok {
		return errors.Wrap(errSubNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *submissionApi) update(ctx echo.Context) error {
	sub, ok := ctx.Get("object").(submission.Detail)
	if !ok {
		return errors.Wrap(errSubNotFoundInCtx, "retrieving object from context")
	}

	var data submission.UpdateSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSubmission")
	}

	// reassigning the main author is an admin move
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !ctxUsr.IsAdmin && data.MainAuthorID != "" && data.MainAuthorID != sub.MainAuthorID {
		return errHttpForbidden
	}

	if err := data.Validate(sub.Submission); err != nil {
		return err
	}

	updated, err := api.svc.Update(ctx.Request().Context(), sub.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating submission")
	}
	return ctx.JSON(http.StatusOK, updated)
}

func (api *submissionApi) destroy(ctx echo.Context) error {
	sub, ok := ctx.Get("object").(submission.Detail)
	if !ok {
		return errors.Wrap(errSubNotFoundInCtx, "retrieving object from context")
	}

	if _, err := api.svc.Delete(ctx.Request().Context(), sub.ID); err != nil {
		return errors.Wrap(err, "deleting submission")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// upload stores a submission PDF and returns the key to reference it by.
func (api *submissionApi) upload(ctx echo.Context) error {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "file", Error: "this field is required"})
	}
	if ext := strings.ToLower(filepath.Ext(fileHeader.Filename)); ext != ".pdf" {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "only PDF files are accepted"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer file.Close()

	key := "submissions/" + uuid.New().String() + ".pdf"
	if err := api.files.Save(key, file); err != nil {
		return errors.Wrap(err, "saving uploaded file")
	}
	return ctx.JSON(http.StatusCreated, UploadResponse{PDFFileKey: key})
}

// ctxSubmissionOrAdminMiddleware loads the requested submission into the
// context for its main author or an admin; everyone else sees a 404.
func (api *submissionApi) ctxSubmissionOrAdminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxUsr, err := getContextUser(ctx, api.userSvc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}

			sub, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == submission.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding submission by ID")
			}
			if sub.MainAuthorID != ctxUsr.ID && !ctxUsr.IsAdmin {
				return errHttpNotFound
			}

			ctx.Set("object", sub)
			return next(ctx)
		}
	}
}

// UploadResponse returns the storage key of an uploaded submission file.
type UploadResponse struct {
	PDFFileKey string `json:"pdf_file_key"`
}
