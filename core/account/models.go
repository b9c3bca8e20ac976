package account

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/iamthanushgowdap/apsconnect/core"
)

// Roles
const (
	RoleStudent = "student"
	RoleFaculty = "faculty"
	RoleAdmin   = "admin"
)

// Approval statuses
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusDeclined = "declined"
)

var (
	AllRoles    = []string{RoleStudent, RoleFaculty, RoleAdmin}
	AllStatuses = []string{StatusPending, StatusApproved, StatusDeclined}

	// allowedTransitions is the explicit approval state machine:
	// approved and declined are terminal.
	allowedTransitions = map[string][]string{
		StatusPending: {StatusApproved, StatusDeclined},
	}
)

// CanTransition reports whether the approval workflow permits moving an
// account from one status to another. A same-status "transition" is not a
// transition; callers treat it as an idempotent no-op.
func CanTransition(from, to string) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Account struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	USN    string `json:"usn,omitempty"`   // students only
	Title  string `json:"title,omitempty"` // faculty designation
	Role   string `json:"role"`
	Status string `json:"status"`

	// authorization scope: a student belongs to exactly one branch/semester,
	// a faculty member is assigned a set of each.
	Branch    string   `json:"branch,omitempty"`
	Semester  string   `json:"semester,omitempty"`
	Branches  []string `json:"branches,omitempty"`
	Semesters []string `json:"semesters,omitempty"`

	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (a *Account) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a *Account) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

func (a *Account) IsAdmin() bool    { return a.Role == RoleAdmin }
func (a *Account) IsFaculty() bool  { return a.Role == RoleFaculty }
func (a *Account) IsStudent() bool  { return a.Role == RoleStudent }
func (a *Account) IsApproved() bool { return a.Status == StatusApproved }

// HasBranch reports whether branch is within the account's authorization
// scope: the student's own branch, or any of the faculty's assigned ones.
// Admins are in scope everywhere.
func (a *Account) HasBranch(branch string) bool {
	if a.IsAdmin() {
		return true
	}
	if a.IsStudent() {
		return a.Branch == branch
	}
	for _, b := range a.Branches {
		if b == branch {
			return true
		}
	}
	return false
}

// NewAccount contains information needed for student self-registration.
// Registered accounts always start out pending.
type NewAccount struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone" validate:"omitempty,e164"`
	USN             string `json:"usn" validate:"required,usn"`
	Branch          string `json:"branch" validate:"required"`
	Semester        string `json:"semester" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (na *NewAccount) Validate(validate *validator.Validate, svc ServiceInterface) error {
	na.Name = core.CleanString(na.Name)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.USN = core.CleanString(na.USN, true /* lower */)
	na.Branch = core.CleanString(na.Branch)
	na.Semester = core.CleanString(na.Semester)

	if err := validate.Struct(na); err != nil {
		return err
	}
	return svc.CheckUniqueness(na.Email, na.USN)
}

// NewStaffAccount contains information needed for admin-initiated account
// creation. Staff accounts are approved immediately.
type NewStaffAccount struct {
	Name            string   `json:"name" validate:"required"`
	Email           string   `json:"email" validate:"required,email"`
	Phone           string   `json:"phone" validate:"omitempty,e164"`
	Title           string   `json:"title"`
	Role            string   `json:"role" validate:"required,staffrole"`
	Branches        []string `json:"branches"`
	Semesters       []string `json:"semesters"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (ns *NewStaffAccount) Validate(validate *validator.Validate, svc ServiceInterface) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckUniqueness(ns.Email, "")
}

// UpdateAccount defines what information may be provided to modify an
// existing Account. Scope and role fields are admin-only; the API layer
// enforces that before validation.
type UpdateAccount struct {
	Name            string   `json:"name"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Phone           string   `json:"phone" validate:"omitempty,e164"`
	Title           string   `json:"title"`
	Branch          string   `json:"branch"`
	Semester        string   `json:"semester"`
	Branches        []string `json:"branches"`
	Semesters       []string `json:"semesters"`
	Password        string   `json:"password" validate:"omitempty"`
	PasswordConfirm string   `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (ua *UpdateAccount) Validate(orig Account, validate *validator.Validate, svc ServiceInterface) error {
	if name := core.CleanString(ua.Name); name != "" {
		ua.Name = name
	} else {
		ua.Name = orig.Name
	}
	if email := core.CleanString(ua.Email, true /* lower */); email != "" {
		ua.Email = email
	} else {
		ua.Email = orig.Email
	}

	if err := validate.Struct(ua); err != nil {
		return err
	}
	return svc.CheckUniqueness(ua.Email, "", orig)
}

type ResetAccountPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetAccountPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Role        string    `query:"role"`
	Status      string    `query:"status"`
	Branch      string    `query:"branch"`
	Branches    []string  `query:"branches"` // matches any of (faculty scope)
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Role == "" && qf.Status == "" && qf.Branch == "" &&
		qf.Branches == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// RegisterValidators registers account-specific validation tags.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(staffRoleTag, staffRoleValidation)
	core.RegisterCustomTranslation(validate, translator, staffRoleTag, staffRoleText)

	validate.RegisterStructValidation(accountStructValidation, NewAccount{})
	validate.RegisterStructValidation(accountStructValidation, NewStaffAccount{})
	validate.RegisterStructValidation(accountStructValidation, UpdateAccount{})
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
}
