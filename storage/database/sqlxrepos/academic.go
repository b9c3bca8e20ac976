package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/iamthanushgowdap/apsconnect/core/academic"
)

type academicRepository struct {
	db *sqlx.DB
}

var _ academic.Repository = (*academicRepository)(nil) // interface compliance check

func NewAcademicRepository(db *sqlx.DB) *academicRepository {
	return &academicRepository{db: db}
}

func (repo academicRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return academic.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// scopeClause renders a QuerySpec into a WHERE fragment over the given
// positional-arg offset. The caller must short-circuit Empty specs.
func scopeClause(spec academic.QuerySpec) (string, []interface{}) {
	switch {
	case spec.Branch != "":
		return " WHERE branch = $1 AND semester = $2", []interface{}{spec.Branch, spec.Semester}
	case len(spec.Branches) > 0:
		return " WHERE branch = ANY($1)", []interface{}{pq.StringArray(spec.Branches)}
	}
	return "", nil
}

// Branches

type branchRow struct {
	Name      string    `db:"name"`
	Status    string    `db:"status"`
	CreatedAt null.Time `db:"created_at"`
}

func (r branchRow) branch() academic.Branch {
	return academic.Branch{Name: r.Name, Status: r.Status, CreatedAt: r.CreatedAt.Time}
}

func (repo academicRepository) CreateBranch(ctx context.Context, b academic.Branch) (academic.Branch, error) {
	_, err := repo.db.ExecContext(ctx,
		"INSERT INTO branch (name, status, created_at) VALUES ($1, $2, $3)",
		b.Name, b.Status, b.CreatedAt.UTC())
	if err != nil {
		return academic.Branch{}, errors.Wrap(err, "inserting branch")
	}
	return b, nil
}

func (repo academicRepository) QueryBranches(ctx context.Context, onlineOnly bool) ([]academic.Branch, error) {
	q := "SELECT * FROM branch"
	if onlineOnly {
		q += " WHERE status = 'online'"
	}
	q += " ORDER BY name"

	var rows []branchRow
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying branches")
	}
	branches := make([]academic.Branch, 0, len(rows))
	for _, row := range rows {
		branches = append(branches, row.branch())
	}
	return branches, nil
}

func (repo academicRepository) GetBranch(ctx context.Context, name string) (academic.Branch, error) {
	var row branchRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM branch WHERE name = $1", name); err != nil {
		return academic.Branch{}, repo.trapNoRowsErr(err, "finding branch")
	}
	return row.branch(), nil
}

func (repo academicRepository) UpdateBranchStatus(ctx context.Context, name, status string) (academic.Branch, error) {
	res, err := repo.db.ExecContext(ctx, "UPDATE branch SET status = $1 WHERE name = $2", status, name)
	if err != nil {
		return academic.Branch{}, errors.Wrap(err, "updating branch status")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return academic.Branch{}, academic.ErrNotFound
	}
	return repo.GetBranch(ctx, name)
}

func (repo academicRepository) DeleteBranch(ctx context.Context, name string) error {
	if _, err := repo.db.ExecContext(ctx, "DELETE FROM branch WHERE name = $1", name); err != nil {
		return errors.Wrap(err, "deleting branch")
	}
	return nil
}

// Assignments

type assignmentRow struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Subject     string    `db:"subject"`
	Branch      string    `db:"branch"`
	Semester    string    `db:"semester"`
	FileKey     string    `db:"file_key"`
	FileName    string    `db:"file_name"`
	FileURL     string    `db:"file_url"`
	PostedBy    string    `db:"posted_by"`
	Deadline    null.Time `db:"deadline"`
	CreatedAt   null.Time `db:"created_at"`
}

func rowFromAssignment(a academic.Assignment) assignmentRow {
	return assignmentRow{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		Subject:     a.Subject,
		Branch:      a.Branch,
		Semester:    a.Semester,
		FileKey:     a.FileKey,
		FileName:    a.FileName,
		FileURL:     a.FileURL,
		PostedBy:    a.PostedBy,
		Deadline:    null.NewTime(a.Deadline.UTC(), !a.Deadline.IsZero()),
		CreatedAt:   null.NewTime(a.CreatedAt.UTC(), !a.CreatedAt.IsZero()),
	}
}

func (r assignmentRow) assignment() academic.Assignment {
	return academic.Assignment{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Subject:     r.Subject,
		Branch:      r.Branch,
		Semester:    r.Semester,
		FileKey:     r.FileKey,
		FileName:    r.FileName,
		FileURL:     r.FileURL,
		PostedBy:    r.PostedBy,
		Deadline:    r.Deadline.Time,
		CreatedAt:   r.CreatedAt.Time,
	}
}

func (repo academicRepository) CreateAssignment(ctx context.Context, a academic.Assignment) (academic.Assignment, error) {
	q := `
INSERT INTO assignment (id, title, description, subject, branch, semester, file_key, file_name, file_url, posted_by, deadline, created_at)
VALUES (:id, :title, :description, :subject, :branch, :semester, :file_key, :file_name, :file_url, :posted_by, :deadline, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, rowFromAssignment(a)); err != nil {
		return academic.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return a, nil
}

func (repo academicRepository) GetAssignmentByID(ctx context.Context, id string) (academic.Assignment, error) {
	var row assignmentRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM assignment WHERE id = $1", id); err != nil {
		return academic.Assignment{}, repo.trapNoRowsErr(err, "finding assignment")
	}
	return row.assignment(), nil
}

func (repo academicRepository) QueryAssignments(ctx context.Context, spec academic.QuerySpec) ([]academic.Assignment, error) {
	if spec.Empty {
		return []academic.Assignment{}, nil
	}
	clause, args := scopeClause(spec)

	var rows []assignmentRow
	q := "SELECT * FROM assignment" + clause + " ORDER BY created_at DESC"
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}

	assignments := make([]academic.Assignment, 0, len(rows))
	for _, row := range rows {
		a := row.assignment()
		// a student scope also constrains the semester; faculty scopes span
		// all semesters of their branches and are fully filtered in SQL
		if spec.Matches(a.Branch, a.Semester) {
			assignments = append(assignments, a)
		}
	}
	return assignments, nil
}

func (repo academicRepository) DeleteAssignment(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM assignment WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return academic.ErrNotFound
	}
	return nil
}

// Timetables

type timetableRow struct {
	Key       string    `db:"key"`
	Branch    string    `db:"branch"`
	Semester  string    `db:"semester"`
	Days      []byte    `db:"days"`
	UpdatedBy string    `db:"updated_by"`
	UpdatedAt null.Time `db:"updated_at"`
}

func (r timetableRow) timetable() (academic.Timetable, error) {
	tt := academic.Timetable{
		Key:       r.Key,
		Branch:    r.Branch,
		Semester:  r.Semester,
		UpdatedBy: r.UpdatedBy,
		UpdatedAt: r.UpdatedAt.Time,
	}
	if err := json.Unmarshal(r.Days, &tt.Days); err != nil {
		return academic.Timetable{}, errors.Wrap(err, "decoding timetable days")
	}
	return tt, nil
}

func (repo academicRepository) UpsertTimetable(ctx context.Context, tt academic.Timetable) (academic.Timetable, error) {
	days, err := json.Marshal(tt.Days)
	if err != nil {
		return academic.Timetable{}, errors.Wrap(err, "encoding timetable days")
	}
	q := `
INSERT INTO timetable (key, branch, semester, days, updated_by, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (key) DO UPDATE
SET days = EXCLUDED.days, updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`
	if _, err = repo.db.ExecContext(ctx, q, tt.Key, tt.Branch, tt.Semester, days, tt.UpdatedBy, tt.UpdatedAt.UTC()); err != nil {
		return academic.Timetable{}, errors.Wrap(err, "upserting timetable")
	}
	return tt, nil
}

func (repo academicRepository) GetTimetable(ctx context.Context, key string) (academic.Timetable, error) {
	var row timetableRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM timetable WHERE key = $1", key); err != nil {
		return academic.Timetable{}, repo.trapNoRowsErr(err, "finding timetable")
	}
	return row.timetable()
}

// Attendance

type sessionRow struct {
	ID        string    `db:"id"`
	Branch    string    `db:"branch"`
	Semester  string    `db:"semester"`
	Subject   string    `db:"subject"`
	Date      null.Time `db:"date"`
	Attendees []byte    `db:"attendees"`
	TakenBy   string    `db:"taken_by"`
	CreatedAt null.Time `db:"created_at"`
}

func (r sessionRow) session() (academic.AttendanceSession, error) {
	s := academic.AttendanceSession{
		ID:        r.ID,
		Branch:    r.Branch,
		Semester:  r.Semester,
		Subject:   r.Subject,
		Date:      r.Date.Time,
		TakenBy:   r.TakenBy,
		CreatedAt: r.CreatedAt.Time,
	}
	if err := json.Unmarshal(r.Attendees, &s.Attendees); err != nil {
		return academic.AttendanceSession{}, errors.Wrap(err, "decoding attendees")
	}
	return s, nil
}

func (repo academicRepository) CreateSession(ctx context.Context, s academic.AttendanceSession) (academic.AttendanceSession, error) {
	attendees, err := json.Marshal(s.Attendees)
	if err != nil {
		return academic.AttendanceSession{}, errors.Wrap(err, "encoding attendees")
	}
	q := `
INSERT INTO attendance_session (id, branch, semester, subject, date, attendees, taken_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = repo.db.ExecContext(ctx, q,
		s.ID, s.Branch, s.Semester, s.Subject, s.Date.UTC(), attendees, s.TakenBy, s.CreatedAt.UTC())
	if err != nil {
		return academic.AttendanceSession{}, errors.Wrap(err, "inserting attendance session")
	}
	return s, nil
}

func (repo academicRepository) QuerySessions(ctx context.Context, spec academic.QuerySpec) ([]academic.AttendanceSession, error) {
	if spec.Empty {
		return []academic.AttendanceSession{}, nil
	}
	clause, args := scopeClause(spec)

	var rows []sessionRow
	q := "SELECT * FROM attendance_session" + clause + " ORDER BY date"
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance sessions")
	}

	sessions := make([]academic.AttendanceSession, 0, len(rows))
	for _, row := range rows {
		s, err := row.session()
		if err != nil {
			return nil, err
		}
		if spec.Matches(s.Branch, s.Semester) {
			sessions = append(sessions, s)
		}
	}
	return sessions, nil
}
