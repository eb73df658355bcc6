package bot

import (
	"fmt"

	"example.com/runtracker/internal/domain"
	"example.com/runtracker/internal/format"
	"example.com/runtracker/internal/workflow"
)

// promptFor returns the question asked when the workflow waits in state.
func promptFor(state workflow.State) Reply {
	switch state.Step() {
	case workflow.StepDistance:
		return Reply{Text: "🏃 *Enter the distance in kilometres*\nFor example: 5.2", Markdown: true, Keyboard: removeKeyboard()}
	case workflow.StepDuration:
		return Reply{Text: "⏱ *Enter the time in minutes*\nFor example: 52 (for 52 minutes)", Markdown: true}
	case workflow.StepHeartRate:
		return Reply{Text: "❤️ *Enter your average heart rate (bpm)*\nFor example: 145", Markdown: true}
	case workflow.StepWorkoutType:
		return Reply{Text: "📌 *Choose the workout type:*", Markdown: true, Keyboard: workoutKeyboard()}
	default:
		return Reply{Text: `📝 *Add a note* (or send "-" to skip):`, Markdown: true, Keyboard: MainKeyboard()}
	}
}

// rejectionFor names the accepted range for the step that refused its input.
func rejectionFor(step workflow.Step) Reply {
	var text string
	switch step {
	case workflow.StepDistance:
		text = fmt.Sprintf("❌ Invalid distance. Enter a number above 0 and up to %s km\nFor example: 10.5", format.FormatNumber(domain.MaxDistanceKm))
	case workflow.StepDuration:
		text = fmt.Sprintf("❌ Invalid time. Enter a whole number from 1 to %d minutes\nFor example: 65", domain.MaxDurationMin)
	case workflow.StepHeartRate:
		text = fmt.Sprintf("❌ Invalid heart rate. Enter a whole number from 1 to %d bpm\nFor example: 150", domain.MaxHeartRate)
	case workflow.StepWorkoutType:
		text = "❌ Choose one of the offered types: Easy, Tempo, Intervals or Long"
		return Reply{Text: text, Keyboard: workoutKeyboard()}
	default:
		text = "❌ Invalid input."
	}
	return Reply{Text: text}
}
