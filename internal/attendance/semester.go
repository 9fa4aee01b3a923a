package attendance

import "time"

// semesterEpoch anchors semester/week bucketing. Each semester is 15 weeks
// (105 days), two semesters per training year.
var semesterEpoch = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

const (
	daysPerSemester = 105
	maxSemester     = 2
	maxWeek         = 15
)

// CalculateSemesterAndWeek buckets a date into (semester, weekNumber).
// Dates before the epoch yield (nil, nil); dates past the second semester
// clamp to (2, 15). Reporting groups on these values, so the arithmetic
// must stay exactly as is.
func CalculateSemesterAndWeek(date time.Time) (*int, *int) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	daysDiff := int(day.Sub(semesterEpoch).Hours() / 24)

	if daysDiff < 0 {
		return nil, nil
	}

	semester := daysDiff/daysPerSemester + 1
	if semester > maxSemester {
		s, w := maxSemester, maxWeek
		return &s, &w
	}

	daysIntoSemester := daysDiff % daysPerSemester
	week := daysIntoSemester/7 + 1
	if week > maxWeek {
		week = maxWeek
	}

	return &semester, &week
}
