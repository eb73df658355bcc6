package bot

import (
	"fmt"
	"strings"

	"example.com/runtracker/internal/domain"
	"example.com/runtracker/internal/format"
)

const progressSegments = 10

var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

// escape protects user-supplied text inside Markdown replies.
func escape(s string) string {
	return markdownEscaper.Replace(s)
}

func weekRange(stats domain.Stats) string {
	return format.FormatDate(stats.WeekStart) + "–" + format.FormatDate(stats.WeekEnd)
}

func renderWelcome(senderName string, goalKm float64) string {
	greeting := "🏃‍♂️ *Hi!*"
	if name := strings.TrimSpace(senderName); name != "" {
		greeting = fmt.Sprintf("🏃‍♂️ *Hi, %s!*", escape(name))
	}

	var b strings.Builder
	b.WriteString(greeting + "\n\n")
	b.WriteString("I am your personal running tracker.\n\n")
	b.WriteString("*📈 What I can do:*\n")
	b.WriteString("• Record runs (distance, time, heart rate)\n")
	b.WriteString("• Calculate pace and speed\n")
	b.WriteString("• Show weekly and monthly statistics\n")
	b.WriteString("• Export your data to CSV\n")
	fmt.Fprintf(&b, "🎯 *Current weekly goal:* %s km\n\n", format.FormatNumber(goalKm))
	b.WriteString("Commands: /run /week /last /goal /export /stats /cancel\n\n")
	b.WriteString("*👇 Choose an action:*")
	return b.String()
}

// renderCommit builds the confirmation for a freshly recorded run. stats is nil
// when the aggregates could not be loaded.
func renderCommit(run domain.Run, stats *domain.Stats, goalKm float64) string {
	pace := run.PaceMinPerKm()

	var b strings.Builder
	b.WriteString("✅ *Run saved!*\n\n")
	fmt.Fprintf(&b, "📅 *Date:* %s\n", format.FormatDate(run.Date))
	fmt.Fprintf(&b, "🎯 *Type:* %s\n", run.WorkoutType)
	fmt.Fprintf(&b, "📏 *Distance:* %s km\n", format.FormatKm(run.DistanceKm))
	fmt.Fprintf(&b, "⏱ *Time:* %d min\n", run.DurationMin)
	fmt.Fprintf(&b, "❤️ *Heart rate:* %d bpm\n", run.AvgHeartRate)
	fmt.Fprintf(&b, "🏃 *Pace:* %s\n", format.FormatPace(pace))
	fmt.Fprintf(&b, "🚀 *Speed:* %s km/h\n", format.FormatSpeed(pace))
	if run.Note != "" {
		fmt.Fprintf(&b, "📝 *Note:* %s\n", escape(run.Note))
	}
	if stats == nil {
		return strings.TrimSuffix(b.String(), "\n")
	}

	b.WriteString("\n*📊 Statistics:*\n")
	fmt.Fprintf(&b, "📅 *Today:* %s km\n", format.FormatKm(stats.TodayKm))
	fmt.Fprintf(&b, "📈 *Week (%s):* %s km of %s km\n", weekRange(*stats), format.FormatKm(stats.WeekKm), format.FormatNumber(goalKm))
	fmt.Fprintf(&b, "📆 *Month:* %s km", format.FormatKm(stats.MonthKm))
	return b.String()
}

// progressBar renders percent (already clamped to 0..100) as filled and empty segments.
func progressBar(percent int) string {
	filled := percent / 10
	if filled < 0 {
		filled = 0
	}
	if filled > progressSegments {
		filled = progressSegments
	}
	return strings.Repeat("▰", filled) + strings.Repeat("▱", progressSegments-filled)
}

// renderWeekMenu clamps the shown percentage to 100 to keep the bar within bounds.
func renderWeekMenu(stats domain.Stats, goalKm float64) string {
	progress := domain.WeekProgress(stats.WeekKm, goalKm)
	if progress > 100 {
		progress = 100
	}
	return fmt.Sprintf("*📊 Week %s*\n\n", weekRange(stats)) +
		fmt.Sprintf("*Distance:* %s km of %s km\n", format.FormatKm(stats.WeekKm), format.FormatNumber(goalKm)) +
		fmt.Sprintf("*Progress:* %d%%\n", progress) +
		progressBar(progress) + "\n\n" +
		fmt.Sprintf("*Today:* %s km\n", format.FormatKm(stats.TodayKm)) +
		fmt.Sprintf("*This month:* %s km", format.FormatKm(stats.MonthKm))
}

// renderWeekCommand prints the raw percentage, which may exceed 100.
func renderWeekCommand(stats domain.Stats, goalKm float64) string {
	return fmt.Sprintf("*📊 Week %s*\n\n", weekRange(stats)) +
		fmt.Sprintf("*Distance:* %s km of %s km\n", format.FormatKm(stats.WeekKm), format.FormatNumber(goalKm)) +
		fmt.Sprintf("*Progress:* %d%%\n", domain.WeekProgress(stats.WeekKm, goalKm)) +
		fmt.Sprintf("*Today:* %s km", format.FormatKm(stats.TodayKm))
}

func renderLastRunMenu(run domain.Run) string {
	pace := run.PaceMinPerKm()
	msg := "*🕒 Last run*\n\n" +
		fmt.Sprintf("*Date:* %s\n", format.FormatDate(run.Date)) +
		fmt.Sprintf("*Type:* %s\n", run.WorkoutType) +
		fmt.Sprintf("*Distance:* %s km\n", format.FormatNumber(run.DistanceKm)) +
		fmt.Sprintf("*Time:* %d min\n", run.DurationMin) +
		fmt.Sprintf("*Heart rate:* %d bpm\n", run.AvgHeartRate) +
		fmt.Sprintf("*Pace:* %s\n", format.FormatPace(pace)) +
		fmt.Sprintf("*Speed:* %s km/h", format.FormatSpeed(pace))
	if run.Note != "" {
		msg += fmt.Sprintf("\n*Note:* %s", escape(run.Note))
	}
	return msg
}

func renderLastRunCommand(run domain.Run) string {
	return fmt.Sprintf("*🕒 Last run (%s)*\n\n", format.FormatDate(run.Date)) +
		fmt.Sprintf("*Distance:* %s km\n", format.FormatNumber(run.DistanceKm)) +
		fmt.Sprintf("*Time:* %d min\n", run.DurationMin) +
		fmt.Sprintf("*Pace:* %s\n", format.FormatPace(run.PaceMinPerKm())) +
		fmt.Sprintf("*Type:* %s", run.WorkoutType)
}

func renderGoalMenu(goalKm float64) string {
	return fmt.Sprintf("*🎯 Current weekly goal:* %s km\n\n", format.FormatNumber(goalKm)) +
		"To change the goal, send:\n" +
		"`/goal 80` (for 80 km per week)"
}

func renderGoalUsage(goalKm float64) string {
	return fmt.Sprintf("*🎯 Current goal:* %s km per week\n\n", format.FormatNumber(goalKm)) +
		"To change the goal:\n" +
		"`/goal 60` - for 60 km per week\n" +
		"`/goal 80` - for 80 km per week"
}

func renderGoalUpdated(goalKm float64) string {
	return fmt.Sprintf("✅ *Goal updated!*\n\nNew weekly goal: %s km", format.FormatNumber(goalKm))
}

func renderSummary(summary domain.Summary) string {
	avgPace := format.FormatPace(0)
	if summary.TotalKm > 0 {
		avgPace = format.FormatPace(summary.AvgPaceMinKm)
	}
	return "*📈 Overall statistics*\n\n" +
		fmt.Sprintf("*Total runs:* %d\n", summary.RunCount) +
		fmt.Sprintf("*Total distance:* %s km\n", format.FormatKm(summary.TotalKm)) +
		fmt.Sprintf("*Total time:* %d min\n", summary.TotalMinutes) +
		fmt.Sprintf("*Average pace:* %s\n\n", avgPace) +
		fmt.Sprintf("*This week:* %s km\n", format.FormatKm(summary.WeekKm)) +
		fmt.Sprintf("*This month:* %s km\n", format.FormatKm(summary.MonthKm)) +
		fmt.Sprintf("*Today:* %s km", format.FormatKm(summary.TodayKm))
}

const (
	textCancelled       = "❌ Run entry cancelled."
	textNothingToCancel = "Nothing to cancel. Use the menu below or /run to record a run."
	textUnknown         = "🤔 I did not get that. Use the menu below or send /help."
	textFailure         = "❌ *Something went wrong*\nTry again later."
	textSaveFailed      = "❌ *Could not save the run*\nSend the note again to retry or /cancel."

	textNoRunsMenu    = "📭 *No runs yet*\n\nTap \"" + LabelNewRun + "\" to add the first one!"
	textNoRunsCommand = "📭 *No runs yet*"

	textNoExportMenu    = "📭 *No data to export*\n\nAdd some runs first!"
	textNoExportCommand = "📭 *No data to export*"

	textExportFailedMenu    = "❌ *Could not export the data*\nTry again later."
	textExportFailedCommand = "❌ *Export failed*"
)

var textInvalidGoal = fmt.Sprintf("❌ *Invalid goal*\nEnter a number above 0 and up to %s km.", format.FormatNumber(domain.MaxWeeklyGoalKm))
