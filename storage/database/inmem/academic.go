package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/iamthanushgowdap/apsconnect/core/academic"
)

type academicRepository struct {
	branches *branchTable
	db       *academicTables
}

var _ academic.Repository = (*academicRepository)(nil) // interface compliance check

func NewAcademicRepository(db *DB) *academicRepository {
	return &academicRepository{branches: db.branch, db: db.academics}
}

// Branches

func (repo *academicRepository) CreateBranch(ctx context.Context, b academic.Branch) (academic.Branch, error) {
	repo.branches.Lock()
	defer repo.branches.Unlock()

	if _, ok := repo.branches.table[b.Name]; ok {
		return academic.Branch{}, academic.ErrBranchExists
	}
	repo.branches.table[b.Name] = &b
	return b, nil
}

func (repo *academicRepository) QueryBranches(ctx context.Context, onlineOnly bool) ([]academic.Branch, error) {
	repo.branches.RLock()
	defer repo.branches.RUnlock()

	branches := make([]academic.Branch, 0, len(repo.branches.table))
	for _, b := range repo.branches.table {
		if onlineOnly && !b.IsOnline() {
			continue
		}
		branches = append(branches, *b)
	}
	sort.Slice(branches, func(i, j int) bool { return branches[i].Name < branches[j].Name })
	return branches, nil
}

func (repo *academicRepository) GetBranch(ctx context.Context, name string) (academic.Branch, error) {
	repo.branches.RLock()
	defer repo.branches.RUnlock()

	if b, ok := repo.branches.table[name]; ok {
		return *b, nil
	}
	return academic.Branch{}, academic.ErrNotFound
}

func (repo *academicRepository) UpdateBranchStatus(ctx context.Context, name, status string) (academic.Branch, error) {
	repo.branches.Lock()
	defer repo.branches.Unlock()

	b, ok := repo.branches.table[name]
	if !ok {
		return academic.Branch{}, academic.ErrNotFound
	}
	b.Status = status
	return *b, nil
}

func (repo *academicRepository) DeleteBranch(ctx context.Context, name string) error {
	repo.branches.Lock()
	defer repo.branches.Unlock()
	delete(repo.branches.table, name)
	return nil
}

// Assignments

func (repo *academicRepository) CreateAssignment(ctx context.Context, a academic.Assignment) (academic.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	repo.db.assignments[a.ID] = &a
	return a, nil
}

func (repo *academicRepository) GetAssignmentByID(ctx context.Context, id string) (academic.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.assignments[id]; ok {
		return *a, nil
	}
	return academic.Assignment{}, academic.ErrNotFound
}

func (repo *academicRepository) QueryAssignments(ctx context.Context, spec academic.QuerySpec) ([]academic.Assignment, error) {
	if spec.Empty {
		return []academic.Assignment{}, nil
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	assignments := make([]academic.Assignment, 0)
	for _, a := range repo.db.assignments {
		if spec.Matches(a.Branch, a.Semester) {
			assignments = append(assignments, *a)
		}
	}
	sort.Slice(assignments, func(i, j int) bool { return assignments[i].CreatedAt.After(assignments[j].CreatedAt) })
	return assignments, nil
}

func (repo *academicRepository) DeleteAssignment(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.assignments[id]; !ok {
		return academic.ErrNotFound
	}
	delete(repo.db.assignments, id)
	return nil
}

// Timetables

func (repo *academicRepository) UpsertTimetable(ctx context.Context, tt academic.Timetable) (academic.Timetable, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.timetables[tt.Key] = &tt
	return tt, nil
}

func (repo *academicRepository) GetTimetable(ctx context.Context, key string) (academic.Timetable, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if tt, ok := repo.db.timetables[key]; ok {
		return *tt, nil
	}
	return academic.Timetable{}, academic.ErrNotFound
}

// Attendance

func (repo *academicRepository) CreateSession(ctx context.Context, s academic.AttendanceSession) (academic.AttendanceSession, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	repo.db.sessions[s.ID] = &s
	return s, nil
}

func (repo *academicRepository) QuerySessions(ctx context.Context, spec academic.QuerySpec) ([]academic.AttendanceSession, error) {
	if spec.Empty {
		return []academic.AttendanceSession{}, nil
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	sessions := make([]academic.AttendanceSession, 0)
	for _, s := range repo.db.sessions {
		if spec.Matches(s.Branch, s.Semester) {
			sessions = append(sessions, *s)
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Date.Before(sessions[j].Date) })
	return sessions, nil
}
