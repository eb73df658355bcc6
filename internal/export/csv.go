// Package export renders the run history as CSV.
package export

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"example.com/runtracker/internal/domain"
	"example.com/runtracker/internal/format"
)

// ContentType is the MIME type of the exported document.
const ContentType = "text/csv"

// Header is the first line of every export.
const Header = "Date,Distance (km),Duration (min),Heart Rate (bpm),Type,Note"

// WriteCSV writes the header and one row per run, in the order given.
// Notes are always quoted when present; an empty note is an empty field.
func WriteCSV(w io.Writer, runs []domain.Run) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(Header); err != nil {
		return err
	}
	for _, run := range runs {
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
		if _, err := bw.WriteString(row(run)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func row(run domain.Run) string {
	fields := []string{
		format.ISODate(run.Date),
		format.FormatNumber(run.DistanceKm),
		strconv.Itoa(run.DurationMin),
		strconv.Itoa(run.AvgHeartRate),
		string(run.WorkoutType),
		quoteNote(run.Note),
	}
	return strings.Join(fields, ",")
}

func quoteNote(note string) string {
	if note == "" {
		return ""
	}
	return `"` + strings.ReplaceAll(note, `"`, `""`) + `"`
}

// Filename returns the attachment name for an export generated on date.
func Filename(prefix string, date time.Time) string {
	return prefix + "_" + format.ISODate(date) + ".csv"
}
