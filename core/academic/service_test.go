package academic_test

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamthanushgowdap/apsconnect/core"
	"github.com/iamthanushgowdap/apsconnect/core/academic"
	"github.com/iamthanushgowdap/apsconnect/core/account"
	blobsvc "github.com/iamthanushgowdap/apsconnect/services/blob"
	logsvc "github.com/iamthanushgowdap/apsconnect/services/logger"
	inmemdb "github.com/iamthanushgowdap/apsconnect/storage/database/inmem"
)

var (
	admin      = account.Account{ID: "a1", Role: account.RoleAdmin, Status: account.StatusApproved}
	cseFaculty = account.Account{ID: "f1", Role: account.RoleFaculty, Status: account.StatusApproved, Branches: []string{"CSE"}}
	idleStaff  = account.Account{ID: "f2", Role: account.RoleFaculty, Status: account.StatusApproved}
	cseStudent = account.Account{ID: "s1", Role: account.RoleStudent, Status: account.StatusApproved, Branch: "CSE", Semester: "3"}
	eceStudent = account.Account{ID: "s2", Role: account.RoleStudent, Status: account.StatusApproved, Branch: "ECE", Semester: "3"}
)

func setup(t *testing.T) (*academic.Service, academic.Repository, *blobsvc.DummyStore) {
	db, err := inmemdb.Open()
	require.NoError(t, err)
	repo := inmemdb.NewAcademicRepository(db)
	blobs := blobsvc.NewDummyStore()
	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0))
	return academic.NewService(repo, blobs, logger), repo, blobs
}

func TestService_branches(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	_, err := svc.CreateBranch(ctx, cseFaculty, academic.NewBranch{Name: "CSE", Status: academic.BranchOnline})
	assert.Equal(t, core.ErrPermissionDenied, errors.Cause(err), "faculty cannot create branches")

	_, err = svc.CreateBranch(ctx, admin, academic.NewBranch{Name: "CSE", Status: academic.BranchOnline})
	require.NoError(t, err)
	_, err = svc.CreateBranch(ctx, admin, academic.NewBranch{Name: "ECE", Status: academic.BranchOffline})
	require.NoError(t, err)

	_, err = svc.CreateBranch(ctx, admin, academic.NewBranch{Name: "CSE"})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr, "duplicate branch name rejected")

	all, err := svc.Branches(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	online, err := svc.Branches(ctx, true)
	require.NoError(t, err)
	require.Len(t, online, 1)
	assert.Equal(t, "CSE", online[0].Name)

	_, err = svc.SetBranchStatus(ctx, admin, "ECE", "lol")
	require.ErrorAs(t, err, &vErr, "bad status rejected")

	b, err := svc.SetBranchStatus(ctx, admin, "ECE", academic.BranchOnline)
	require.NoError(t, err)
	assert.True(t, b.IsOnline())

	require.NoError(t, svc.DeleteBranch(ctx, admin, "ECE"))
	assert.Equal(t, core.ErrPermissionDenied, svc.DeleteBranch(ctx, cseFaculty, "CSE"))
}

func TestService_PostAssignment(t *testing.T) {
	ctx := context.Background()
	na := academic.NewAssignment{Title: "Lab 1", Subject: "Physics", Branch: "CSE", Semester: "3"}

	t.Run("scope enforced", func(t *testing.T) {
		svc, _, _ := setup(t)
		_, err := svc.PostAssignment(ctx, cseStudent, na, nil, "")
		assert.Equal(t, core.ErrPermissionDenied, errors.Cause(err))
		_, err = svc.PostAssignment(ctx, idleStaff, na, nil, "")
		assert.Equal(t, core.ErrPermissionDenied, errors.Cause(err), "faculty without the branch")
	})

	t.Run("attachment uploaded before the record", func(t *testing.T) {
		svc, repo, blobs := setup(t)
		a, err := svc.PostAssignment(ctx, cseFaculty, na, []byte("pdf bytes"), "lab1.pdf")
		require.NoError(t, err)
		assert.Equal(t, a.ID+"/lab1.pdf", a.FileKey)
		assert.True(t, blobs.Has(a.FileKey))

		stored, err := repo.GetAssignmentByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, a.FileURL, stored.FileURL)
	})

	t.Run("upload failure aborts the post", func(t *testing.T) {
		svc, _, blobs := setup(t)
		blobs.FailUploads = true
		_, err := svc.PostAssignment(ctx, cseFaculty, na, []byte("pdf bytes"), "lab1.pdf")
		assert.Error(t, err)
	})

	t.Run("delete removes row then blob", func(t *testing.T) {
		svc, repo, blobs := setup(t)
		a, err := svc.PostAssignment(ctx, cseFaculty, na, []byte("pdf bytes"), "lab1.pdf")
		require.NoError(t, err)

		assert.Equal(t, core.ErrPermissionDenied, svc.DeleteAssignment(ctx, idleStaff, a.ID))

		require.NoError(t, svc.DeleteAssignment(ctx, cseFaculty, a.ID))
		_, err = repo.GetAssignmentByID(ctx, a.ID)
		assert.Equal(t, academic.ErrNotFound, errors.Cause(err))
		assert.False(t, blobs.Has(a.FileKey))
	})
}

func TestService_AssignmentsFor(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	_, err := svc.PostAssignment(ctx, admin, academic.NewAssignment{Title: "A", Subject: "Physics", Branch: "CSE", Semester: "3"}, nil, "")
	require.NoError(t, err)
	_, err = svc.PostAssignment(ctx, admin, academic.NewAssignment{Title: "B", Subject: "Physics", Branch: "CSE", Semester: "5"}, nil, "")
	require.NoError(t, err)
	_, err = svc.PostAssignment(ctx, admin, academic.NewAssignment{Title: "C", Subject: "Maths", Branch: "ECE", Semester: "3"}, nil, "")
	require.NoError(t, err)

	tests := []struct {
		name       string
		actor      account.Account
		wantTitles []string
	}{
		{name: "admin sees all", actor: admin, wantTitles: []string{"A", "B", "C"}},
		{name: "student sees own branch+semester", actor: cseStudent, wantTitles: []string{"A"}},
		{name: "other student other branch", actor: eceStudent, wantTitles: []string{"C"}},
		{name: "faculty sees assigned branches, all semesters", actor: cseFaculty, wantTitles: []string{"A", "B"}},
		{name: "faculty with no branches sees nothing", actor: idleStaff, wantTitles: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.AssignmentsFor(ctx, tt.actor)
			require.NoError(t, err)
			titles := make([]string, 0, len(got))
			for _, a := range got {
				titles = append(titles, a.Title)
			}
			assert.ElementsMatch(t, tt.wantTitles, titles)
		})
	}
}

func TestService_timetables(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	nt := academic.NewTimetable{
		Branch:   "CSE",
		Semester: "3",
		Days: map[string][]academic.Period{
			"Monday": {{Subject: "Physics", Start: "09:00", End: "10:00"}},
		},
	}

	_, err := svc.PutTimetable(ctx, cseStudent, nt)
	assert.Equal(t, core.ErrPermissionDenied, errors.Cause(err), "students cannot write timetables")
	_, err = svc.PutTimetable(ctx, idleStaff, nt)
	assert.Equal(t, core.ErrPermissionDenied, errors.Cause(err))

	tt1, err := svc.PutTimetable(ctx, cseFaculty, nt)
	require.NoError(t, err)
	assert.Equal(t, "CSE_3", tt1.Key)

	// last writer wins per (branch, semester)
	nt.Days["Monday"] = []academic.Period{{Subject: "Maths", Start: "09:00", End: "10:00"}}
	_, err = svc.PutTimetable(ctx, admin, nt)
	require.NoError(t, err)

	got, err := svc.TimetableFor(ctx, cseStudent, "ignored", "ignored")
	require.NoError(t, err, "student is forced onto their own key")
	assert.Equal(t, "Maths", got.Days["Monday"][0].Subject)
	assert.Equal(t, admin.ID, got.UpdatedBy)

	_, err = svc.TimetableFor(ctx, eceStudent, "", "")
	assert.Equal(t, academic.ErrNotFound, errors.Cause(err), "no timetable for the student's key")

	_, err = svc.TimetableFor(ctx, idleStaff, "CSE", "3")
	assert.Equal(t, core.ErrPermissionDenied, errors.Cause(err), "staff restricted to assigned branches")

	_, err = svc.TimetableFor(ctx, admin, "CSE", "3")
	assert.NoError(t, err)
}

func TestService_attendance(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()

	_, err := svc.RecordSession(ctx, cseStudent, academic.NewSession{
		Branch: "CSE", Semester: "3", Subject: "Physics", Date: time.Now(),
		Attendees: map[string]string{"s1": academic.MarkPresent},
	})
	assert.Equal(t, core.ErrPermissionDenied, errors.Cause(err), "students cannot take attendance")

	// 3 Physics sessions: s1 present twice
	for i, mark := range []string{academic.MarkPresent, academic.MarkPresent, academic.MarkAbsent} {
		_, err = svc.RecordSession(ctx, cseFaculty, academic.NewSession{
			Branch: "CSE", Semester: "3", Subject: "Physics",
			Date:      time.Date(2026, 5, 4+i, 13, 30, 0, 0, time.UTC),
			Attendees: map[string]string{"s1": mark, "s2": academic.MarkPresent},
		})
		require.NoError(t, err)
	}

	summaries, overall, err := svc.StudentSummary(ctx, cseStudent)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, academic.SubjectSummary{Subject: "Physics", Present: 2, Total: 3, Percentage: 67}, summaries[0])
	assert.Equal(t, 67, overall)

	// session dates collapse to the calendar day
	sessions, err := repo.QuerySessions(ctx, academic.QuerySpec{})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC), sessions[0].Date)

	t.Run("unscoped student gets empty results", func(t *testing.T) {
		bare := account.Account{ID: "s9", Role: account.RoleStudent, Status: account.StatusApproved}
		summaries, overall, err := svc.StudentSummary(ctx, bare)
		require.NoError(t, err)
		assert.Empty(t, summaries)
		assert.Zero(t, overall)
	})

	t.Run("cohort trend is admin only", func(t *testing.T) {
		_, err := svc.CohortTrend(ctx, cseFaculty, time.Now().UTC())
		assert.Equal(t, core.ErrPermissionDenied, errors.Cause(err))

		trend, err := svc.CohortTrend(ctx, admin, time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		require.Len(t, trend, 6)
		// May 2026: 6 marks, 5 present
		assert.Equal(t, academic.TrendPoint{Month: "May 2026", Percentage: 83}, trend[4])
	})
}
