package academic

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/iamthanushgowdap/apsconnect/core"
	"github.com/iamthanushgowdap/apsconnect/core/account"
)

var (
	// errors
	ErrNotFound     = errors.New("record not found")
	ErrBranchExists = errors.New("a branch with this name already exists")
)

type (
	Repository interface {
		// branches
		CreateBranch(ctx context.Context, b Branch) (Branch, error)
		QueryBranches(ctx context.Context, onlineOnly bool) ([]Branch, error)
		GetBranch(ctx context.Context, name string) (Branch, error)
		UpdateBranchStatus(ctx context.Context, name, status string) (Branch, error)
		DeleteBranch(ctx context.Context, name string) error

		// assignments
		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		GetAssignmentByID(ctx context.Context, id string) (Assignment, error)
		// QueryAssignments applies the spec's predicates; an Empty spec
		// short-circuits to an empty slice without touching the store.
		QueryAssignments(ctx context.Context, spec QuerySpec) ([]Assignment, error)
		DeleteAssignment(ctx context.Context, id string) error

		// timetables; keyed lookups, not filter queries
		UpsertTimetable(ctx context.Context, tt Timetable) (Timetable, error)
		GetTimetable(ctx context.Context, key string) (Timetable, error)

		// attendance
		CreateSession(ctx context.Context, s AttendanceSession) (AttendanceSession, error)
		QuerySessions(ctx context.Context, spec QuerySpec) ([]AttendanceSession, error)
	}

	// ServiceInterface is the academic Service's API.
	ServiceInterface interface {
		Branches(ctx context.Context, onlineOnly bool) ([]Branch, error)
		CreateBranch(ctx context.Context, actor account.Account, nb NewBranch) (Branch, error)
		SetBranchStatus(ctx context.Context, actor account.Account, name, status string) (Branch, error)
		DeleteBranch(ctx context.Context, actor account.Account, name string) error

		AssignmentsFor(ctx context.Context, actor account.Account) ([]Assignment, error)
		PostAssignment(ctx context.Context, actor account.Account, na NewAssignment, file []byte, filename string) (Assignment, error)
		DeleteAssignment(ctx context.Context, actor account.Account, id string) error

		TimetableFor(ctx context.Context, actor account.Account, branch, semester string) (Timetable, error)
		PutTimetable(ctx context.Context, actor account.Account, nt NewTimetable) (Timetable, error)

		RecordSession(ctx context.Context, actor account.Account, ns NewSession) (AttendanceSession, error)
		StudentSummary(ctx context.Context, actor account.Account) ([]SubjectSummary, int, error)
		CohortTrend(ctx context.Context, actor account.Account, now time.Time) ([]TrendPoint, error)
	}

	Service struct {
		repo   Repository
		blobs  core.BlobStore
		logger core.Logger
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, blobs core.BlobStore, logger core.Logger) *Service {
	return &Service{repo: repo, blobs: blobs, logger: logger}
}

// Branches

func (svc *Service) Branches(ctx context.Context, onlineOnly bool) ([]Branch, error) {
	return svc.repo.QueryBranches(ctx, onlineOnly)
}

func (svc *Service) CreateBranch(ctx context.Context, actor account.Account, nb NewBranch) (Branch, error) {
	if !actor.IsAdmin() {
		return Branch{}, core.ErrPermissionDenied
	}
	if _, err := svc.repo.GetBranch(ctx, nb.Name); err == nil {
		return Branch{}, core.NewValidationError(ErrBranchExists, core.FieldError{Field: "name", Error: ErrBranchExists.Error()})
	} else if errors.Cause(err) != ErrNotFound {
		return Branch{}, err
	}
	return svc.repo.CreateBranch(ctx, Branch{
		Name:      nb.Name,
		Status:    nb.Status,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *Service) SetBranchStatus(ctx context.Context, actor account.Account, name, status string) (Branch, error) {
	if !actor.IsAdmin() {
		return Branch{}, core.ErrPermissionDenied
	}
	if status != BranchOnline && status != BranchOffline {
		return Branch{}, core.NewValidationError(nil, core.FieldError{Field: "status", Error: "status must be online or offline"})
	}
	return svc.repo.UpdateBranchStatus(ctx, name, status)
}

// DeleteBranch removes the branch record only; assignments and attendance
// referencing it are left orphaned on purpose.
func (svc *Service) DeleteBranch(ctx context.Context, actor account.Account, name string) error {
	if !actor.IsAdmin() {
		return core.ErrPermissionDenied
	}
	return svc.repo.DeleteBranch(ctx, name)
}

// Assignments

func (svc *Service) AssignmentsFor(ctx context.Context, actor account.Account) ([]Assignment, error) {
	return svc.repo.QueryAssignments(ctx, ScopedQuery(actor))
}

// PostAssignment uploads the attachment (if any) before persisting the
// record, so a stored assignment never references a missing blob.
func (svc *Service) PostAssignment(ctx context.Context, actor account.Account, na NewAssignment, file []byte, filename string) (Assignment, error) {
	if !actor.IsAdmin() && !(actor.IsFaculty() && actor.HasBranch(na.Branch)) {
		return Assignment{}, core.ErrPermissionDenied
	}

	a := Assignment{
		ID:          newID(),
		Title:       na.Title,
		Description: na.Description,
		Subject:     na.Subject,
		Branch:      na.Branch,
		Semester:    na.Semester,
		PostedBy:    actor.ID,
		Deadline:    na.Deadline,
		CreatedAt:   time.Now().UTC(),
	}

	if len(file) > 0 {
		a.FileKey = a.ID + "/" + filename
		a.FileName = filename
		url, err := svc.blobs.Upload(ctx, a.FileKey, file)
		if err != nil {
			return Assignment{}, errors.Wrap(err, "uploading attachment")
		}
		a.FileURL = url
	}

	created, err := svc.repo.CreateAssignment(ctx, a)
	if err != nil {
		if a.FileKey != "" { // don't leave the blob orphaned
			if delErr := svc.blobs.Delete(ctx, a.FileKey); delErr != nil {
				svc.logger.Error("deleting orphaned attachment", delErr)
			}
		}
		return Assignment{}, errors.Wrap(err, "creating assignment")
	}
	return created, nil
}

func (svc *Service) DeleteAssignment(ctx context.Context, actor account.Account, id string) error {
	a, err := svc.repo.GetAssignmentByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && !(actor.IsFaculty() && actor.HasBranch(a.Branch)) {
		return core.ErrPermissionDenied
	}
	if err = svc.repo.DeleteAssignment(ctx, id); err != nil {
		return err
	}
	if a.FileKey != "" { // best-effort
		if err = svc.blobs.Delete(ctx, a.FileKey); err != nil {
			svc.logger.Error("deleting assignment attachment", err)
		}
	}
	return nil
}

// Timetables

// TimetableFor resolves the timetable by its composite key. Students may
// only read their own (branch, semester); faculty their assigned branches.
func (svc *Service) TimetableFor(ctx context.Context, actor account.Account, branch, semester string) (Timetable, error) {
	if actor.IsStudent() {
		branch, semester = actor.Branch, actor.Semester
		if branch == "" || semester == "" {
			return Timetable{}, ErrNotFound
		}
	} else if !actor.HasBranch(branch) {
		return Timetable{}, core.ErrPermissionDenied
	}
	return svc.repo.GetTimetable(ctx, TimetableKey(branch, semester))
}

func (svc *Service) PutTimetable(ctx context.Context, actor account.Account, nt NewTimetable) (Timetable, error) {
	if !actor.IsAdmin() && !(actor.IsFaculty() && actor.HasBranch(nt.Branch)) {
		return Timetable{}, core.ErrPermissionDenied
	}
	return svc.repo.UpsertTimetable(ctx, Timetable{
		Key:       TimetableKey(nt.Branch, nt.Semester),
		Branch:    nt.Branch,
		Semester:  nt.Semester,
		Days:      nt.Days,
		UpdatedBy: actor.ID,
		UpdatedAt: time.Now().UTC(),
	})
}

// Attendance

func (svc *Service) RecordSession(ctx context.Context, actor account.Account, ns NewSession) (AttendanceSession, error) {
	if !actor.IsAdmin() && !(actor.IsFaculty() && actor.HasBranch(ns.Branch)) {
		return AttendanceSession{}, core.ErrPermissionDenied
	}
	return svc.repo.CreateSession(ctx, AttendanceSession{
		ID:        newID(),
		Branch:    ns.Branch,
		Semester:  ns.Semester,
		Subject:   ns.Subject,
		Date:      ns.Date.UTC().Truncate(24 * time.Hour),
		Attendees: ns.Attendees,
		TakenBy:   actor.ID,
		CreatedAt: time.Now().UTC(),
	})
}

// StudentSummary aggregates the actor's own attendance. A permission
// rejection from the store degrades to empty results with the sentinel
// passed through, so the view can flag it without crashing.
func (svc *Service) StudentSummary(ctx context.Context, actor account.Account) ([]SubjectSummary, int, error) {
	sessions, err := svc.repo.QuerySessions(ctx, ScopedQuery(actor))
	if err != nil {
		if errors.Cause(err) == core.ErrPermissionDenied {
			return []SubjectSummary{}, 0, core.ErrPermissionDenied
		}
		return nil, 0, err
	}
	summaries, overall := SubjectSummaries(sessions, actor.ID)
	return summaries, overall, nil
}

// CohortTrend computes the admin dashboard's 6-month attendance trend.
func (svc *Service) CohortTrend(ctx context.Context, actor account.Account, now time.Time) ([]TrendPoint, error) {
	if !actor.IsAdmin() {
		return nil, core.ErrPermissionDenied
	}
	sessions, err := svc.repo.QuerySessions(ctx, QuerySpec{})
	if err != nil {
		if errors.Cause(err) == core.ErrPermissionDenied {
			return MonthlyTrend(nil, now), core.ErrPermissionDenied
		}
		return nil, err
	}
	return MonthlyTrend(sessions, now), nil
}
