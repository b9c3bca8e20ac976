package academic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func session(subject string, date time.Time, attendees map[string]string) AttendanceSession {
	return AttendanceSession{
		ID:        subject + date.Format("20060102"),
		Branch:    "CSE",
		Semester:  "3",
		Subject:   subject,
		Date:      date,
		Attendees: attendees,
	}
}

func TestSubjectSummaries(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		sessions    []AttendanceSession
		accountID   string
		want        []SubjectSummary
		wantOverall int
	}{
		{
			name:      "no sessions",
			accountID: "s1",
			want:      []SubjectSummary{},
		},
		{
			name: "single subject",
			sessions: []AttendanceSession{
				session("Physics", day, map[string]string{"s1": MarkPresent, "s2": MarkAbsent}),
				session("Physics", day.AddDate(0, 0, 1), map[string]string{"s1": MarkPresent}),
				session("Physics", day.AddDate(0, 0, 2), map[string]string{"s1": MarkAbsent}),
			},
			accountID:   "s1",
			want:        []SubjectSummary{{Subject: "Physics", Present: 2, Total: 3, Percentage: 67}},
			wantOverall: 67,
		},
		{
			name: "sessions without the student do not count",
			sessions: []AttendanceSession{
				session("Physics", day, map[string]string{"s1": MarkPresent}),
				session("Physics", day.AddDate(0, 0, 1), map[string]string{"s2": MarkAbsent}),
			},
			accountID:   "s1",
			want:        []SubjectSummary{{Subject: "Physics", Present: 1, Total: 1, Percentage: 100}},
			wantOverall: 100,
		},
		{
			name: "subject the student never attended is excluded",
			sessions: []AttendanceSession{
				session("Physics", day, map[string]string{"s1": MarkPresent}),
				session("Maths", day, map[string]string{"s2": MarkPresent}),
			},
			accountID:   "s1",
			want:        []SubjectSummary{{Subject: "Physics", Present: 1, Total: 1, Percentage: 100}},
			wantOverall: 100,
		},
		{
			name: "multiple subjects sorted by name",
			sessions: []AttendanceSession{
				session("Physics", day, map[string]string{"s1": MarkPresent}),
				session("Physics", day.AddDate(0, 0, 1), map[string]string{"s1": MarkAbsent}),
				session("Maths", day, map[string]string{"s1": MarkPresent}),
			},
			accountID: "s1",
			want: []SubjectSummary{
				{Subject: "Maths", Present: 1, Total: 1, Percentage: 100},
				{Subject: "Physics", Present: 1, Total: 2, Percentage: 50},
			},
			wantOverall: 67, // 2/3 rounds half-up
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, overall := SubjectSummaries(tt.sessions, tt.accountID)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOverall, overall)
		})
	}
}

func Test_roundPct(t *testing.T) {
	tests := []struct {
		present, total, want int
	}{
		{0, 1, 0},
		{1, 1, 100},
		{1, 2, 50},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13}, // 12.5 rounds half-up
		{5, 6, 83},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, roundPct(tt.present, tt.total), "roundPct(%d, %d)", tt.present, tt.total)
	}
}

func TestMonthlyTrend(t *testing.T) {
	now := time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)

	t.Run("always six buckets, oldest first", func(t *testing.T) {
		trend := MonthlyTrend(nil, now)
		assert.Len(t, trend, 6)
		assert.Equal(t, "Jan 2026", trend[0].Month)
		assert.Equal(t, "Jun 2026", trend[5].Month)
		for _, p := range trend {
			assert.Equal(t, 0, p.Percentage)
		}
	})

	t.Run("sums all attendees per month", func(t *testing.T) {
		sessions := []AttendanceSession{
			session("Physics", time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC),
				map[string]string{"s1": MarkPresent, "s2": MarkAbsent}),
			session("Maths", time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC),
				map[string]string{"s1": MarkPresent, "s2": MarkPresent}),
			session("Physics", time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
				map[string]string{"s1": MarkAbsent}),
		}
		trend := MonthlyTrend(sessions, now)
		assert.Equal(t, TrendPoint{Month: "May 2026", Percentage: 75}, trend[4])
		assert.Equal(t, TrendPoint{Month: "Jun 2026", Percentage: 0}, trend[5])
	})

	t.Run("sessions outside the window are ignored", func(t *testing.T) {
		sessions := []AttendanceSession{
			session("Physics", time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
				map[string]string{"s1": MarkPresent}),
			session("Physics", time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
				map[string]string{"s1": MarkPresent}),
		}
		trend := MonthlyTrend(sessions, now)
		for _, p := range trend {
			assert.Equal(t, 0, p.Percentage)
		}
	})

	t.Run("window straddles the new year", func(t *testing.T) {
		trend := MonthlyTrend(nil, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
		months := make([]string, 0, 6)
		for _, p := range trend {
			months = append(months, p.Month)
		}
		assert.Equal(t, []string{"Sep 2025", "Oct 2025", "Nov 2025", "Dec 2025", "Jan 2026", "Feb 2026"}, months)
	})
}
