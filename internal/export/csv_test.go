package export

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/runtracker/internal/domain"
)

func TestWriteCSVRoundTrip(t *testing.T) {
	runs := []domain.Run{
		{Date: time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC), DistanceKm: 10.5, DurationMin: 52, AvgHeartRate: 145, WorkoutType: domain.WorkoutTempo, Note: "some note, with comma"},
		{Date: time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC), DistanceKm: 42.195, DurationMin: 215, AvgHeartRate: 160, WorkoutType: domain.WorkoutLong, Note: `she said "go", I went`},
		{Date: time.Date(2024, time.May, 3, 0, 0, 0, 0, time.UTC), DistanceKm: 6, DurationMin: 36, AvgHeartRate: 128, WorkoutType: domain.WorkoutEasy},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, runs))

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(runs)+1)
	require.Equal(t, strings.Split(Header, ","), records[0])

	for i, run := range runs {
		record := records[i+1]
		require.Equal(t, run.Date.Format(time.DateOnly), record[0])
		distance, err := strconv.ParseFloat(record[1], 64)
		require.NoError(t, err)
		require.Equal(t, run.DistanceKm, distance)
		require.Equal(t, strconv.Itoa(run.DurationMin), record[2])
		require.Equal(t, strconv.Itoa(run.AvgHeartRate), record[3])
		require.Equal(t, string(run.WorkoutType), record[4])
		require.Equal(t, run.Note, record[5])
	}
}

func TestWriteCSVLayout(t *testing.T) {
	runs := []domain.Run{
		{Date: time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC), DistanceKm: 10.5, DurationMin: 52, AvgHeartRate: 145, WorkoutType: domain.WorkoutTempo, Note: "some note, with comma"},
		{Date: time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC), DistanceKm: 5, DurationMin: 30, AvgHeartRate: 130, WorkoutType: domain.WorkoutEasy},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, runs))
	require.Equal(t, Header+"\n"+
		`2024-05-01,10.5,52,145,Tempo,"some note, with comma"`+"\n"+
		`2024-05-01,5,30,130,Easy,`, buf.String())
}

func TestFilename(t *testing.T) {
	date := time.Date(2024, time.May, 1, 18, 30, 0, 0, time.UTC)
	require.Equal(t, "running_tracker_2024-05-01.csv", Filename("running_tracker", date))
}
