package academic

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/iamthanushgowdap/apsconnect/core"
)

// Branch statuses; only online branches are offered during registration.
const (
	BranchOnline  = "online"
	BranchOffline = "offline"
)

// Attendance marks
const (
	MarkPresent = "present"
	MarkAbsent  = "absent"
)

type Branch struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

func (b *Branch) IsOnline() bool { return b.Status == BranchOnline }

type Assignment struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Subject     string    `json:"subject"`
	Branch      string    `json:"branch"`
	Semester    string    `json:"semester"`
	FileKey     string    `json:"-"` // blob store key: {id}/{filename}
	FileName    string    `json:"file_name,omitempty"`
	FileURL     string    `json:"file_url,omitempty"`
	PostedBy    string    `json:"posted_by"`
	Deadline    time.Time `json:"deadline"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

type Period struct {
	Subject string `json:"subject"`
	Start   string `json:"start"` // HH:MM
	End     string `json:"end"`   // HH:MM
}

// Timetable is keyed by the deterministic composite "branch_semester" so
// that writes are last-writer-wins per (branch, semester) rather than
// appended.
type Timetable struct {
	Key       string              `json:"-"`
	Branch    string              `json:"branch"`
	Semester  string              `json:"semester"`
	Days      map[string][]Period `json:"days"` // weekday name -> periods
	UpdatedBy string              `json:"updated_by"`
	UpdatedAt time.Time           `json:"updated_at"` // UTC
}

// TimetableKey builds the composite document key for a (branch, semester).
func TimetableKey(branch, semester string) string {
	return branch + "_" + semester
}

// AttendanceSession is one class session's roll call: every listed
// attendee is marked present or absent.
type AttendanceSession struct {
	ID        string            `json:"id"`
	Branch    string            `json:"branch"`
	Semester  string            `json:"semester"`
	Subject   string            `json:"subject"`
	Date      time.Time         `json:"date"` // calendar day, UTC
	Attendees map[string]string `json:"attendees"`
	TakenBy   string            `json:"taken_by"`
	CreatedAt time.Time         `json:"created_at"` // UTC
}

// NewBranch contains information needed to create a Branch.
type NewBranch struct {
	Name   string `json:"name" validate:"required"`
	Status string `json:"status" validate:"omitempty,oneof=online offline"`
}

func (nb *NewBranch) Validate(validate *validator.Validate) error {
	nb.Name = core.CleanString(nb.Name)
	if nb.Status == "" {
		nb.Status = BranchOnline
	}
	return validate.Struct(nb)
}

// NewAssignment contains information needed to post an Assignment.
type NewAssignment struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	Subject     string    `json:"subject" validate:"required"`
	Branch      string    `json:"branch" validate:"required"`
	Semester    string    `json:"semester" validate:"required"`
	Deadline    time.Time `json:"deadline"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Subject = core.CleanString(na.Subject)
	na.Branch = core.CleanString(na.Branch)
	na.Semester = core.CleanString(na.Semester)
	return validate.Struct(na)
}

// NewTimetable contains a full timetable for one (branch, semester).
type NewTimetable struct {
	Branch   string              `json:"branch" validate:"required"`
	Semester string              `json:"semester" validate:"required"`
	Days     map[string][]Period `json:"days" validate:"required"`
}

func (nt *NewTimetable) Validate(validate *validator.Validate) error {
	nt.Branch = core.CleanString(nt.Branch)
	nt.Semester = core.CleanString(nt.Semester)
	return validate.Struct(nt)
}

// NewSession contains one session's roll call to record.
type NewSession struct {
	Branch    string            `json:"branch" validate:"required"`
	Semester  string            `json:"semester" validate:"required"`
	Subject   string            `json:"subject" validate:"required"`
	Date      time.Time         `json:"date" validate:"required"`
	Attendees map[string]string `json:"attendees" validate:"required"`
}

func (ns *NewSession) Validate(validate *validator.Validate) error {
	ns.Branch = core.CleanString(ns.Branch)
	ns.Semester = core.CleanString(ns.Semester)
	ns.Subject = core.CleanString(ns.Subject)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	for id, mark := range ns.Attendees {
		if mark != MarkPresent && mark != MarkAbsent {
			return core.NewValidationError(nil, core.FieldError{
				Field: "attendees." + id,
				Error: "mark must be present or absent",
			})
		}
	}
	return nil
}
