package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamthanushgowdap/apsconnect/core"
	"github.com/iamthanushgowdap/apsconnect/core/academic"
	"github.com/iamthanushgowdap/apsconnect/core/account"
)

func Test_academicApi_queryBranches(t *testing.T) {
	deps, _, repo := testDeps(t)
	api := &academicApi{deps: deps, svc: deps.AcademicSvc, accountSvc: deps.AccountSvc, validate: deps.Validate}
	e := echo.New()

	ctx := context.Background()
	_, err := repo.CreateBranch(ctx, academic.Branch{Name: "CSE", Status: academic.BranchOnline})
	require.NoError(t, err)
	_, err = repo.CreateBranch(ctx, academic.Branch{Name: "ECE", Status: academic.BranchOffline})
	require.NoError(t, err)

	ec, rec := newRequest(e, http.MethodGet, "/branches")
	require.NoError(t, api.queryBranches(ec))
	var branches []academic.Branch
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &branches))
	assert.Len(t, branches, 2)

	ec, rec = newRequest(e, http.MethodGet, "/branches?online=true")
	require.NoError(t, api.queryBranches(ec))
	branches = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &branches))
	require.Len(t, branches, 1)
	assert.Equal(t, "CSE", branches[0].Name)
}

func Test_academicApi_attendance(t *testing.T) {
	deps, acctRepo, _ := testDeps(t)
	api := &academicApi{deps: deps, svc: deps.AcademicSvc, accountSvc: deps.AccountSvc, validate: deps.Validate}
	e := echo.New()

	faculty := createAccount(t, acctRepo, "Prof", "prof@test.cd", "p4ssword", account.RoleFaculty, account.StatusApproved, "", "CSE")
	student := createAccount(t, acctRepo, "Stu", "stu@test.cd", "p4ssword", account.RoleStudent, account.StatusApproved, "CSE")
	student, err := acctRepo.UpdateAccount(context.Background(), account.Account{ID: student.ID, Semester: "3"})
	require.NoError(t, err)

	record := func(actor account.Account, subject string, day int, mark string) {
		t.Helper()
		body := marshal(t, academic.NewSession{
			Branch:    "CSE",
			Semester:  "3",
			Subject:   subject,
			Date:      time.Date(2026, 8, day, 9, 0, 0, 0, time.UTC),
			Attendees: map[string]string{student.ID: mark},
		})
		ec, rec := newRequest(e, http.MethodPost, "/attendance/sessions", body)
		ec.Set(accountContextKey, actor)
		require.NoError(t, api.recordSession(ec))
		assert.Equal(t, http.StatusCreated, rec.Code)
	}

	t.Run("students cannot record sessions", func(t *testing.T) {
		body := marshal(t, academic.NewSession{
			Branch: "CSE", Semester: "3", Subject: "Maths",
			Date:      time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
			Attendees: map[string]string{student.ID: academic.MarkPresent},
		})
		ec, _ := newRequest(e, http.MethodPost, "/attendance/sessions", body)
		ec.Set(accountContextKey, student)
		err := api.recordSession(ec)
		assert.Equal(t, core.ErrPermissionDenied, errors.Cause(err))
	})

	record(faculty, "Maths", 3, academic.MarkPresent)
	record(faculty, "Maths", 4, academic.MarkPresent)
	record(faculty, "Maths", 5, academic.MarkAbsent)

	t.Run("summary rounds half up", func(t *testing.T) {
		ec, rec := newRequest(e, http.MethodGet, "/attendance/summary")
		ec.Set(accountContextKey, student)
		require.NoError(t, api.attendanceSummary(ec))

		var resp AttendanceSummaryResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Subjects, 1)
		assert.Equal(t, 67, resp.Subjects[0].Percentage)
		assert.Equal(t, 67, resp.Overall)
		assert.False(t, resp.Partial)
	})

	t.Run("trend is forbidden to non-admins", func(t *testing.T) {
		ec, _ := newRequest(e, http.MethodGet, "/attendance/trend")
		ec.Set(accountContextKey, student)
		assert.Equal(t, errHttpForbidden, api.attendanceTrend(ec))
	})

	t.Run("trend covers six months for admins", func(t *testing.T) {
		admin := createAccount(t, acctRepo, "Admin", "admin@test.cd", "p4ssword", account.RoleAdmin, account.StatusApproved, "")
		ec, rec := newRequest(e, http.MethodGet, "/attendance/trend")
		ec.Set(accountContextKey, admin)
		require.NoError(t, api.attendanceTrend(ec))

		var trend []academic.TrendPoint
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trend))
		assert.Len(t, trend, 6)
	})
}

func Test_academicApi_timetables(t *testing.T) {
	deps, acctRepo, _ := testDeps(t)
	api := &academicApi{deps: deps, svc: deps.AcademicSvc, accountSvc: deps.AccountSvc, validate: deps.Validate}
	e := echo.New()

	faculty := createAccount(t, acctRepo, "Prof", "prof@test.cd", "p4ssword", account.RoleFaculty, account.StatusApproved, "", "CSE")

	body := marshal(t, academic.NewTimetable{
		Branch:   "CSE",
		Semester: "3",
		Days:     map[string][]academic.Period{"monday": {{Subject: "Maths", Start: "09:00", End: "10:00"}}},
	})
	ec, rec := newRequest(e, http.MethodPut, "/timetables", body)
	ec.Set(accountContextKey, faculty)
	require.NoError(t, api.putTimetable(ec))
	assert.Equal(t, http.StatusOK, rec.Code)

	t.Run("missing timetable is a 404", func(t *testing.T) {
		ghost := createAccount(t, acctRepo, "Ghost", "ghost@test.cd", "p4ssword", account.RoleStudent, account.StatusApproved, "ECE")
		_, err := acctRepo.UpdateAccount(context.Background(), account.Account{ID: ghost.ID, Semester: "5"})
		require.NoError(t, err)
		ghost, err = acctRepo.GetAccountByID(context.Background(), ghost.ID)
		require.NoError(t, err)

		ec, _ := newRequest(e, http.MethodGet, "/timetables")
		ec.Set(accountContextKey, ghost)
		err = api.retrieveTimetable(ec)
		assert.Equal(t, errHttpNotFound, err)
	})
}
