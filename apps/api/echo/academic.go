package echoapi

import (
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/iamthanushgowdap/apsconnect/core"
	"github.com/iamthanushgowdap/apsconnect/core/academic"
	"github.com/iamthanushgowdap/apsconnect/core/account"
)

// maxAttachmentSize caps assignment uploads at 10MiB.
const maxAttachmentSize = 10 << 20

type academicApi struct {
	deps       ServerDeps
	svc        academic.ServiceInterface
	accountSvc account.ServiceInterface
	validate   *validator.Validate
}

func registerAcademicAPI(g *echo.Group, jwt, deny echo.MiddlewareFunc, deps ServerDeps) {
	api := academicApi{
		deps:       deps,
		svc:        deps.AcademicSvc,
		accountSvc: deps.AccountSvc,
		validate:   deps.Validate,
	}

	// the registration form needs the branch catalog before any login
	g.GET("/branches", api.queryBranches)

	bg := g.Group("/branches", jwt, deny)
	bg.POST("", api.createBranch, adminMiddleware())
	bg.PUT("/:name/status", api.setBranchStatus, adminMiddleware())
	bg.DELETE("/:name", api.destroyBranch, adminMiddleware())

	ag := g.Group("/assignments", jwt, deny)
	ag.GET("", api.queryAssignments)
	ag.POST("", api.postAssignment, staffMiddleware())
	ag.DELETE("/:id", api.destroyAssignment, staffMiddleware())

	tg := g.Group("/timetables", jwt, deny)
	tg.GET("", api.retrieveTimetable)
	tg.PUT("", api.putTimetable, staffMiddleware())

	sg := g.Group("/attendance", jwt, deny)
	sg.POST("/sessions", api.recordSession, staffMiddleware())
	sg.GET("/summary", api.attendanceSummary)
	sg.GET("/trend", api.attendanceTrend, adminMiddleware())
}

// Branches

func (api *academicApi) queryBranches(ctx echo.Context) error {
	onlineOnly := ctx.QueryParam("online") == "true"
	branches, err := api.svc.Branches(ctx.Request().Context(), onlineOnly)
	if err != nil {
		return errors.Wrap(err, "querying branches")
	}
	if branches == nil {
		branches = []academic.Branch{}
	}
	return ctx.JSON(http.StatusOK, branches)
}

func (api *academicApi) createBranch(ctx echo.Context) error {
	var data academic.NewBranch
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBranch")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	actor, err := getContextAccount(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	b, err := api.svc.CreateBranch(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating branch")
	}
	return ctx.JSON(http.StatusCreated, b)
}

func (api *academicApi) setBranchStatus(ctx echo.Context) error {
	var data struct {
		Status string `json:"status"`
	}
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding branch status")
	}

	actor, err := getContextAccount(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	b, err := api.svc.SetBranchStatus(ctx.Request().Context(), actor, ctx.Param("name"), data.Status)
	if err != nil {
		if errors.Cause(err) == academic.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "setting branch status")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *academicApi) destroyBranch(ctx echo.Context) error {
	actor, err := getContextAccount(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	if err = api.svc.DeleteBranch(ctx.Request().Context(), actor, ctx.Param("name")); err != nil {
		return errors.Wrap(err, "deleting branch")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Assignments

func (api *academicApi) queryAssignments(ctx echo.Context) error {
	actor, err := getContextAccount(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}

	assignments, err := api.svc.AssignmentsFor(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if assignments == nil {
		assignments = []academic.Assignment{}
	}
	return ctx.JSON(http.StatusOK, assignments)
}

// postAssignment accepts a multipart form: the assignment fields plus an
// optional "file" attachment.
func (api *academicApi) postAssignment(ctx echo.Context) error {
	data := academic.NewAssignment{
		Title:       ctx.FormValue("title"),
		Description: ctx.FormValue("description"),
		Subject:     ctx.FormValue("subject"),
		Branch:      ctx.FormValue("branch"),
		Semester:    ctx.FormValue("semester"),
	}
	if raw := ctx.FormValue("deadline"); raw != "" {
		deadline, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "deadline", Error: "must be an RFC3339 timestamp"})
		}
		data.Deadline = deadline
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	var file []byte
	var filename string
	if fh, err := ctx.FormFile("file"); err == nil {
		if fh.Size > maxAttachmentSize {
			return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "attachment exceeds the 10MB limit"})
		}
		src, err := fh.Open()
		if err != nil {
			return errors.Wrap(err, "opening attachment")
		}
		defer func() { _ = src.Close() }()
		if file, err = io.ReadAll(src); err != nil {
			return errors.Wrap(err, "reading attachment")
		}
		filename = fh.Filename
	}

	actor, err := getContextAccount(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	a, err := api.svc.PostAssignment(ctx.Request().Context(), actor, data, file, filename)
	if err != nil {
		return errors.Wrap(err, "posting assignment")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *academicApi) destroyAssignment(ctx echo.Context) error {
	actor, err := getContextAccount(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	if err = api.svc.DeleteAssignment(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		if errors.Cause(err) == academic.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Timetables

func (api *academicApi) retrieveTimetable(ctx echo.Context) error {
	actor, err := getContextAccount(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}

	tt, err := api.svc.TimetableFor(ctx.Request().Context(), actor, ctx.QueryParam("branch"), ctx.QueryParam("semester"))
	if err != nil {
		if errors.Cause(err) == academic.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "retrieving timetable")
	}
	return ctx.JSON(http.StatusOK, tt)
}

func (api *academicApi) putTimetable(ctx echo.Context) error {
	var data academic.NewTimetable
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTimetable")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	actor, err := getContextAccount(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	tt, err := api.svc.PutTimetable(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "saving timetable")
	}
	return ctx.JSON(http.StatusOK, tt)
}

// Attendance

func (api *academicApi) recordSession(ctx echo.Context) error {
	var data academic.NewSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSession")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	actor, err := getContextAccount(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	s, err := api.svc.RecordSession(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "recording attendance session")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *academicApi) attendanceSummary(ctx echo.Context) error {
	actor, err := getContextAccount(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}

	summaries, overall, err := api.svc.StudentSummary(ctx.Request().Context(), actor)
	if err != nil && errors.Cause(err) != core.ErrPermissionDenied {
		return errors.Wrap(err, "summarizing attendance")
	}
	return ctx.JSON(http.StatusOK, AttendanceSummaryResponse{
		Subjects: summaries,
		Overall:  overall,
		Partial:  err != nil,
	})
}

func (api *academicApi) attendanceTrend(ctx echo.Context) error {
	actor, err := getContextAccount(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}

	trend, err := api.svc.CohortTrend(ctx.Request().Context(), actor, time.Now().UTC())
	if err != nil && errors.Cause(err) != core.ErrPermissionDenied {
		return errors.Wrap(err, "computing attendance trend")
	}
	if errors.Cause(err) == core.ErrPermissionDenied && trend == nil {
		return errHttpForbidden
	}
	return ctx.JSON(http.StatusOK, trend)
}

type AttendanceSummaryResponse struct {
	Subjects []academic.SubjectSummary `json:"subjects"`
	Overall  int                       `json:"overall"`
	// Partial flags results degraded by an authorization failure in the
	// underlying store; the dashboard renders zeros plus a notice.
	Partial bool `json:"partial,omitempty"`
}
