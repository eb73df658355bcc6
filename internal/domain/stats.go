package domain

import (
	"math"
	"time"
)

// Stats holds distance aggregates relative to a reference instant.
type Stats struct {
	TodayKm   float64
	WeekKm    float64
	MonthKm   float64
	WeekStart time.Time
	// WeekEnd is the reference instant itself, so week labels read "Monday–today".
	WeekEnd time.Time
}

// Summary extends Stats with all-time totals for the full statistics report.
type Summary struct {
	Stats
	RunCount     int
	TotalKm      float64
	TotalMinutes int
	// AvgPaceMinKm is zero when no distance has been recorded.
	AvgPaceMinKm float64
}

// WeekStart returns the Monday of t's week at 00:00 in t's location.
func WeekStart(t time.Time) time.Time {
	back := int(t.Weekday()) - 1
	if t.Weekday() == time.Sunday {
		back = 6
	}
	y, m, d := t.Date()
	return time.Date(y, m, d-back, 0, 0, 0, 0, t.Location())
}

// MonthStart returns the first day of t's month at 00:00 in t's location.
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// WindowStart is the earliest date any of the Stats windows can reach for now.
func WindowStart(now time.Time) time.Time {
	week, month := WeekStart(now), MonthStart(now)
	if week.Before(month) {
		return week
	}
	return month
}

// ComputeStats sums run distances for today, the current week and the current month.
// Dates are compared by calendar day so a run's stored location does not matter.
func ComputeStats(runs []Run, now time.Time) Stats {
	today := dayKey(now)
	weekStart := WeekStart(now)
	monthStart := MonthStart(now)
	weekKey, monthKey := dayKey(weekStart), dayKey(monthStart)

	stats := Stats{WeekStart: weekStart, WeekEnd: now}
	for _, run := range runs {
		day := dayKey(run.Date)
		if day == today {
			stats.TodayKm += run.DistanceKm
		}
		if day >= weekKey {
			stats.WeekKm += run.DistanceKm
		}
		if day >= monthKey {
			stats.MonthKm += run.DistanceKm
		}
	}
	return stats
}

// Summarize computes all-time totals plus the windowed Stats.
func Summarize(runs []Run, now time.Time) Summary {
	summary := Summary{Stats: ComputeStats(runs, now), RunCount: len(runs)}
	for _, run := range runs {
		summary.TotalKm += run.DistanceKm
		summary.TotalMinutes += run.DurationMin
	}
	if summary.TotalKm > 0 {
		summary.AvgPaceMinKm = float64(summary.TotalMinutes) / summary.TotalKm
	}
	return summary
}

// WeekProgress returns round(weekKm/goal*100). It is not clamped.
func WeekProgress(weekKm, goalKm float64) int {
	if goalKm <= 0 {
		return 0
	}
	return int(math.Round(weekKm / goalKm * 100))
}

func dayKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}
