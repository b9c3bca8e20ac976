package academic

import (
	"math"
	"sort"
	"time"
)

// SubjectSummary is one subject's attendance for a single student.
type SubjectSummary struct {
	Subject    string `json:"subject"`
	Present    int    `json:"present"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
}

// TrendPoint is one calendar month's cohort-wide attendance.
type TrendPoint struct {
	Month      string `json:"month"` // "Jan 2006"
	Percentage int    `json:"percentage"`
}

// roundPct computes round-half-up(100 * present / total). total must be > 0.
func roundPct(present, total int) int {
	return int(math.Floor(100*float64(present)/float64(total) + 0.5))
}

// SubjectSummaries reduces session roll calls into per-subject percentages
// for one student, plus the overall percentage across all subjects.
// Sessions the student is not listed in do not count towards any total;
// subjects ending up with total == 0 are excluded entirely.
func SubjectSummaries(sessions []AttendanceSession, accountID string) ([]SubjectSummary, int) {
	type counter struct{ present, total int }
	counts := make(map[string]*counter)

	for _, s := range sessions {
		mark, ok := s.Attendees[accountID]
		if !ok {
			continue
		}
		c := counts[s.Subject]
		if c == nil {
			c = &counter{}
			counts[s.Subject] = c
		}
		c.total++
		if mark == MarkPresent {
			c.present++
		}
	}

	summaries := make([]SubjectSummary, 0, len(counts))
	var present, total int
	for subject, c := range counts {
		if c.total == 0 {
			continue
		}
		summaries = append(summaries, SubjectSummary{
			Subject:    subject,
			Present:    c.present,
			Total:      c.total,
			Percentage: roundPct(c.present, c.total),
		})
		present += c.present
		total += c.total
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Subject < summaries[j].Subject })

	var overall int
	if total > 0 {
		overall = roundPct(present, total)
	}
	return summaries, overall
}

// MonthlyTrend buckets sessions into the 6 calendar months ending with
// now's month, most recent last. A bucket's percentage sums every
// attendee's mark across every session in that month; empty buckets score 0.
func MonthlyTrend(sessions []AttendanceSession, now time.Time) []TrendPoint {
	type counter struct{ present, total int }
	counts := make(map[string]*counter, 6)

	months := make([]time.Time, 6)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := range months {
		months[i] = first.AddDate(0, i-5, 0)
		counts[months[i].Format("Jan 2006")] = &counter{}
	}

	for _, s := range sessions {
		key := time.Date(s.Date.Year(), s.Date.Month(), 1, 0, 0, 0, 0, time.UTC).Format("Jan 2006")
		c, ok := counts[key]
		if !ok { // outside the window
			continue
		}
		for _, mark := range s.Attendees {
			c.total++
			if mark == MarkPresent {
				c.present++
			}
		}
	}

	trend := make([]TrendPoint, 0, 6)
	for _, m := range months {
		key := m.Format("Jan 2006")
		c := counts[key]
		point := TrendPoint{Month: key}
		if c.total > 0 {
			point.Percentage = roundPct(c.present, c.total)
		}
		trend = append(trend, point)
	}
	return trend
}
