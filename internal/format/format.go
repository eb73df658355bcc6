// Package format renders paces, speeds, distances and dates for chat reports and exports.
package format

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// PaceUnit is appended to every rendered pace.
const PaceUnit = "min/km"

// FormatPace renders a pace in minutes per kilometre as M:SS.
// The total number of seconds is rounded once so that 4:59.6 becomes 5:00 and never 4:60.
func FormatPace(paceMinPerKm float64) string {
	totalSec := int(math.Round(paceMinPerKm * 60))
	return fmt.Sprintf("%d:%02d %s", totalSec/60, totalSec%60, PaceUnit)
}

// PaceToSpeedKmh converts a pace in minutes per kilometre to km/h.
// The pace must be positive; a zero pace yields +Inf.
func PaceToSpeedKmh(paceMinPerKm float64) float64 {
	return 60 / paceMinPerKm
}

// FormatSpeed renders the speed for a pace with one decimal place.
func FormatSpeed(paceMinPerKm float64) string {
	return strconv.FormatFloat(PaceToSpeedKmh(paceMinPerKm), 'f', 1, 64)
}

// FormatKm renders a distance with one decimal place.
func FormatKm(km float64) string {
	return strconv.FormatFloat(km, 'f', 1, 64)
}

// FormatNumber renders a value in its shortest exact decimal form (70, 10.5, 42.195).
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatDate renders a calendar date as dd.mm.yy.
func FormatDate(date time.Time) string {
	return date.Format("02.01.06")
}

// ISODate renders a calendar date as YYYY-MM-DD.
func ISODate(date time.Time) string {
	return date.Format(time.DateOnly)
}

// Today truncates now to the start of its calendar day in now's location.
func Today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}
