package account

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/iamthanushgowdap/apsconnect/core"
)

var (
	// errors
	ErrNotFound          = errors.New("account not found")
	ErrEmailExists       = errors.New("an account with this email already exists")
	ErrUSNExists         = errors.New("an account with this USN already exists")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrStatusConflict    = errors.New("account status changed concurrently")
)

type (
	Repository interface {
		// CheckUniqueness fails with ErrEmailExists/ErrUSNExists when another
		// account (excluded ones aside) already uses the email or USN.
		CheckUniqueness(ctx context.Context, email, usn string, excluded ...Account) error
		CreateAccount(ctx context.Context, acct Account) (Account, error)
		GetAccountByID(ctx context.Context, id string) (Account, error)
		GetAccountByEmail(ctx context.Context, email string) (Account, error)
		// QueryAccounts applies AND on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of
		// Account.Name, Account.Email or Account.USN.
		QueryAccounts(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Account, error)
		UpdateAccount(ctx context.Context, acct Account) (Account, error)
		// UpdateAccountStatus is a compare-and-swap: the write only applies
		// while the stored status equals from, otherwise ErrStatusConflict.
		UpdateAccountStatus(ctx context.Context, id, from, to string) (Account, error)
		DeleteAccountsByID(ctx context.Context, ids ...string) error
	}

	// ServiceInterface is the account Service's API. It eases mocking for
	// handler tests.
	ServiceInterface interface {
		CheckUniqueness(email, usn string, excluded ...Account) error
		Register(ctx context.Context, na NewAccount) (Account, error)
		CreateStaff(ctx context.Context, ns NewStaffAccount) (Account, error)
		GetByID(ctx context.Context, id string) (Account, error)
		GetByEmail(ctx context.Context, email string) (Account, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Account, error)
		PendingForActor(ctx context.Context, actor Account) ([]Account, error)
		Approve(ctx context.Context, actor Account, id string) (Account, error)
		Decline(ctx context.Context, actor Account, id string) (Account, error)
		Update(ctx context.Context, id string, ua UpdateAccount) (Account, error)
		Delete(ctx context.Context, ids ...string) error
		SetLastLogin(ctx context.Context, acct Account) (Account, error)
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, rp ResetAccountPassword) error
	}

	Service struct {
		repo     Repository
		mailSvc  core.EmailService
		denylist core.SessionDenylist
		logger   core.Logger
		denyTTL  time.Duration
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, denylist core.SessionDenylist, logger core.Logger, conf *core.Config) *Service {
	secretKey = conf.SecretKey
	passwordResetTimeoutDelta = conf.PasswordResetTimeoutDelta
	return &Service{
		repo:     repo,
		mailSvc:  mailSvc,
		denylist: denylist,
		logger:   logger,
		denyTTL:  conf.Server.JWTExpirationDelta,
	}
}

func (svc *Service) CheckUniqueness(email, usn string, excluded ...Account) error {
	if err := svc.repo.CheckUniqueness(context.Background(), email, usn, excluded...); err != nil {
		var field string
		switch err {
		case ErrEmailExists:
			field = "email"
		case ErrUSNExists:
			field = "usn"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

// Register creates a student account awaiting approval.
func (svc *Service) Register(ctx context.Context, na NewAccount) (Account, error) {
	now := time.Now().UTC()
	acct := Account{
		Name:      na.Name,
		Email:     na.Email,
		Phone:     na.Phone,
		USN:       na.USN,
		Role:      RoleStudent,
		Status:    StatusPending,
		Branch:    na.Branch,
		Semester:  na.Semester,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := acct.SetPassword(na.Password); err != nil {
		return Account{}, err
	}
	return svc.repo.CreateAccount(ctx, acct)
}

// CreateStaff creates a faculty/admin account; no approval needed.
func (svc *Service) CreateStaff(ctx context.Context, ns NewStaffAccount) (Account, error) {
	now := time.Now().UTC()
	acct := Account{
		Name:      ns.Name,
		Email:     ns.Email,
		Phone:     ns.Phone,
		Title:     ns.Title,
		Role:      ns.Role,
		Status:    StatusApproved,
		Branches:  ns.Branches,
		Semesters: ns.Semesters,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := acct.SetPassword(ns.Password); err != nil {
		return Account{}, err
	}
	return svc.repo.CreateAccount(ctx, acct)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Account, error) {
	return svc.repo.GetAccountByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Account, error) {
	return svc.repo.GetAccountByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Account, error) {
	return svc.repo.QueryAccounts(ctx, filter, ordering)
}

// PendingForActor lists pending student registrations visible to the
// actor: all of them for an admin, the actor's assigned branches for
// faculty. Faculty with an empty branch set get an empty list, not an
// error and never the full collection.
func (svc *Service) PendingForActor(ctx context.Context, actor Account) ([]Account, error) {
	filter := &QueryFilter{Role: RoleStudent, Status: StatusPending}
	switch {
	case actor.IsAdmin():
	case actor.IsFaculty():
		if len(actor.Branches) == 0 {
			return []Account{}, nil
		}
		filter.Branches = actor.Branches
	default:
		return nil, core.ErrPermissionDenied
	}
	return svc.repo.QueryAccounts(ctx, filter, nil)
}

func (svc *Service) Approve(ctx context.Context, actor Account, id string) (Account, error) {
	acct, err := svc.transition(ctx, actor, id, StatusApproved)
	if err != nil {
		return Account{}, err
	}
	svc.sendApprovedEmail(acct)
	return acct, nil
}

func (svc *Service) Decline(ctx context.Context, actor Account, id string) (Account, error) {
	acct, err := svc.transition(ctx, actor, id, StatusDeclined)
	if err != nil {
		return Account{}, err
	}
	// kill any live session; tokens are only trusted while the account
	// stays off the denylist
	if err = svc.denylist.Deny(ctx, acct.ID, svc.denyTTL); err != nil {
		svc.logger.Error("denylisting declined account", err, acct)
	}
	return acct, nil
}

func (svc *Service) transition(ctx context.Context, actor Account, id, to string) (Account, error) {
	acct, err := svc.repo.GetAccountByID(ctx, id)
	if err != nil {
		return Account{}, err
	}
	if !canModerate(actor, acct) {
		return Account{}, core.ErrPermissionDenied
	}
	if acct.Status == to { // idempotent repeat
		return acct, nil
	}
	if !CanTransition(acct.Status, to) {
		return Account{}, ErrInvalidTransition
	}
	return svc.repo.UpdateAccountStatus(ctx, id, acct.Status, to)
}

// canModerate reports whether actor may decide acct's approval: admins
// always, faculty only for students of a branch they are assigned to.
func canModerate(actor, acct Account) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.IsFaculty() && acct.IsStudent() && actor.HasBranch(acct.Branch)
}

func (svc *Service) Update(ctx context.Context, id string, ua UpdateAccount) (Account, error) {
	acct := Account{
		ID:        id,
		Name:      ua.Name,
		Email:     ua.Email,
		Phone:     ua.Phone,
		Title:     ua.Title,
		Branch:    ua.Branch,
		Semester:  ua.Semester,
		Branches:  ua.Branches,
		Semesters: ua.Semesters,
		UpdatedAt: time.Now().UTC(),
	}
	if ua.Password != "" {
		if err := acct.SetPassword(ua.Password); err != nil {
			return Account{}, err
		}
	}
	return svc.repo.UpdateAccount(ctx, acct)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteAccountsByID(ctx, ids...)
}

func (svc *Service) SetLastLogin(ctx context.Context, acct Account) (Account, error) {
	acct.LastLogin = time.Now().UTC()
	return svc.repo.UpdateAccount(ctx, acct)
}

func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	acct, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	token, err := makeToken(acct)
	if err != nil {
		return errors.Wrap(err, "making reset token")
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: acct.Name, Address: acct.Email}},
		Subject: "Password Reset",
		Body: "You requested a password reset for your account.\n\n" +
			"UID: " + EncodeUID(acct) + "\nToken: " + token + "\n\n" +
			"If you did not request this, you can safely ignore this email.",
	})
	return nil
}

func (svc *Service) ResetPassword(ctx context.Context, rp ResetAccountPassword) error {
	id, err := decodeUID(rp.UID)
	if err != nil {
		return core.NewValidationError(errInvalidToken)
	}
	acct, err := svc.repo.GetAccountByID(ctx, id)
	if err != nil {
		return err
	}
	if err = verifyToken(acct, rp.Token); err != nil {
		return core.NewValidationError(err)
	}
	if err = acct.SetPassword(rp.Password); err != nil {
		return err
	}
	acct.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateAccount(ctx, acct)
	return err
}

func (svc *Service) sendApprovedEmail(acct Account) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: acct.Name, Address: acct.Email}},
		Subject: "Account Approved",
		Body: "Hi " + acct.Name + ",\n\nYour account has been approved. " +
			"You can now sign in to the student portal.",
	})
}
