package echoapi

import (
	"net/http"
	"sort"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/iamthanushgowdap/apsconnect/core"
	"github.com/iamthanushgowdap/apsconnect/core/account"
)

var errAcctNotFoundInCtx = errors.New("account object not found in echo.Context")

type accountApi struct {
	deps       ServerDeps
	svc        account.ServiceInterface
	validate   *validator.Validate
	translator ut.Translator
}

func registerAccountAPI(g *echo.Group, jwt, deny echo.MiddlewareFunc, deps ServerDeps) {
	api := accountApi{
		deps:       deps,
		svc:        deps.AccountSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	ag := g.Group("/accounts")

	// un-authed endpoints
	ag.POST("/register", api.register)
	ag.POST("/login", api.login)
	ag.POST("/password-reset", api.resetPassword)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	authed := ag.Group("", jwt, deny)
	authed.POST("/token-refresh", api.refreshToken)
	authed.GET("/me", api.me)
	authed.GET("/pending", api.queryPending, staffMiddleware())
	authed.POST("", api.createStaff, adminMiddleware())
	authed.GET("", api.query, adminMiddleware())
	authed.DELETE("", api.destroyMultiple, adminMiddleware())

	// detail endpoints
	dg := authed.Group("/:id", ctxAccountOrAdminMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy, adminMiddleware())
	dg.POST("/approve", api.approve, staffMiddleware())
	dg.POST("/decline", api.decline, staffMiddleware())
}

// Handlers

func (api *accountApi) register(ctx echo.Context) error {
	var data account.NewAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAccount")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}
	if err := api.checkBranchOnline(ctx, data.Branch); err != nil {
		return err
	}

	acct, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering account")
	}
	return ctx.JSON(http.StatusCreated, acct)
}

// checkBranchOnline rejects registrations into branches that are not
// accepting students.
func (api *accountApi) checkBranchOnline(ctx echo.Context, name string) error {
	branches, err := api.deps.AcademicSvc.Branches(ctx.Request().Context(), true /* onlineOnly */)
	if err != nil {
		return errors.Wrap(err, "querying online branches")
	}
	for _, b := range branches {
		if b.Name == name {
			return nil
		}
	}
	err = errors.New("branch is not open for registration")
	return core.NewValidationError(err, core.FieldError{Field: "branch", Error: err.Error()})
}

func (api *accountApi) createStaff(ctx echo.Context) error {
	var data account.NewStaffAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStaffAccount")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	acct, err := api.svc.CreateStaff(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating staff account")
	}
	return ctx.JSON(http.StatusCreated, acct)
}

func (api *accountApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := authenticate(ctx, data.Email, data.Password, data.Role, api.deps)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(api.deps.Conf, claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *accountApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); !(err == nil || errors.Cause(err) == account.ErrNotFound) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *accountApi) confirmPasswordReset(ctx echo.Context) error {
	var data account.ResetAccountPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetAccountPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *accountApi) me(ctx echo.Context) error {
	acct, err := getContextAccount(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	return ctx.JSON(http.StatusOK, acct)
}

func (api *accountApi) query(ctx echo.Context) error {
	filter := new(account.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []account.Account{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	accts, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying accounts")
	}
	if accts == nil {
		accts = []account.Account{}
	}
	return ctx.JSON(http.StatusOK, accts)
}

func (api *accountApi) queryPending(ctx echo.Context) error {
	actor, err := getContextAccount(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}

	accts, err := api.svc.PendingForActor(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "querying pending accounts")
	}
	if accts == nil {
		accts = []account.Account{}
	}
	return ctx.JSON(http.StatusOK, accts)
}

func (api *accountApi) approve(ctx echo.Context) error {
	actor, err := getContextAccount(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}

	acct, err := api.svc.Approve(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "approving account")
	}
	return ctx.JSON(http.StatusOK, acct)
}

func (api *accountApi) decline(ctx echo.Context) error {
	actor, err := getContextAccount(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}

	acct, err := api.svc.Decline(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "declining account")
	}
	return ctx.JSON(http.StatusOK, acct)
}

func (api *accountApi) retrieve(ctx echo.Context) error {
	acct, ok := ctx.Get("object").(account.Account)
	if !ok {
		return errors.Wrap(errAcctNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, acct)
}

func (api *accountApi) update(ctx echo.Context) error {
	acct, ok := ctx.Get("object").(account.Account)
	if !ok {
		return errors.Wrap(errAcctNotFoundInCtx, "retrieving object from context")
	}

	var data account.UpdateAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAccount")
	}

	actor, err := getContextAccount(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	if !actor.IsAdmin() {
		if acct.ID != actor.ID {
			return errHttpForbidden
		}
		// scope and contact identity can only be changed by admin
		if data.Email != "" || data.Branch != "" || data.Semester != "" ||
			data.Branches != nil || data.Semesters != nil {
			return errHttpForbidden
		}
	}

	if err := data.Validate(acct, api.validate, api.svc); err != nil {
		return err
	}

	acct, err = api.svc.Update(ctx.Request().Context(), acct.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating account")
	}
	return ctx.JSON(http.StatusOK, acct)
}

func (api *accountApi) destroy(ctx echo.Context) error {
	acct, ok := ctx.Get("object").(account.Account)
	if !ok {
		return errors.Wrap(errAcctNotFoundInCtx, "retrieving object from context")
	}

	// Say No to Suicide! actor cannot delete themselves
	actor, err := getContextAccount(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	if acct.ID == actor.ID {
		return errHttpForbidden
	}

	if err := api.svc.Delete(ctx.Request().Context(), acct.ID); err != nil {
		return errors.Wrap(err, "deleting account")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *accountApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	// Say No to Suicide! actor cannot delete themselves
	actor, err := getContextAccount(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	sort.Strings(query.IDs)
	if i := sort.SearchStrings(query.IDs, actor.ID); i < len(query.IDs) {
		if match := query.IDs[i]; actor.ID == match {
			return errHttpForbidden
		}
	}

	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting accounts")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *accountApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.deps)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

// ctxAccountOrAdminMiddleware resolves the detail route's target account
// into the context. Visibility: the owner and admins see any account;
// faculty see only students within their branch scope (the moderation
// routes need that much). Everything else 404s without revealing whether
// the account exists.
func ctxAccountOrAdminMiddleware(svc account.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			actor, err := getContextAccount(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context account")
			}

			isOwner := ctx.Param("id") == actor.ID
			if !(isOwner || actor.IsAdmin() || actor.IsFaculty()) {
				return errHttpNotFound
			}

			acct, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == account.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding account by ID")
			}
			if !isOwner && !actor.IsAdmin() && !(acct.IsStudent() && actor.HasBranch(acct.Branch)) {
				return errHttpNotFound
			}

			ctx.Set("object", acct)
			return next(ctx)
		}
	}
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
		// Role pins the dashboard being signed into; a mismatch rejects
		// the login even with valid credentials.
		Role string `json:"role" validate:"omitempty,oneof=student faculty admin"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	DestroyMultipleRequest struct {
		IDs []string `query:"id"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
