// Package bot routes chat messages to the run tracker's reports and entry workflow.
package bot

import (
	"context"

	"example.com/runtracker/internal/domain"
)

// Message is one inbound chat message.
type Message struct {
	ConversationID string
	// SenderName is the sender's first name; empty when the transport does not know it.
	SenderName string
	Text       string
}

// Keyboard describes the reply keyboard shown with a message.
type Keyboard struct {
	Rows    [][]string `json:"rows,omitempty"`
	OneTime bool       `json:"one_time,omitempty"`
	// Remove hides any keyboard currently shown.
	Remove bool `json:"remove,omitempty"`
}

// Reply is an outbound text message. A nil Keyboard leaves the current keyboard untouched.
type Reply struct {
	Text     string
	Markdown bool
	Keyboard *Keyboard
}

// Document is an outbound file attachment staged on disk at Path. The file is
// removed once SendDocument returns, so transports must finish reading it first.
type Document struct {
	Filename    string
	ContentType string
	Path        string
}

// Outbound delivers replies to a conversation.
type Outbound interface {
	SendText(ctx context.Context, conversationID string, reply Reply) error
	SendDocument(ctx context.Context, conversationID string, doc Document) error
}

// Main menu labels.
const (
	LabelNewRun   = "🟢 New run"
	LabelWeek     = "📊 Week"
	LabelLastRun  = "🕒 Last run"
	LabelGoal     = "🎯 Goal"
	LabelExport   = "📂 Export"
	LabelAllStats = "📈 All stats"
)

// MainKeyboard is the persistent menu.
func MainKeyboard() *Keyboard {
	return &Keyboard{Rows: [][]string{
		{LabelNewRun, LabelWeek},
		{LabelLastRun, LabelGoal},
		{LabelExport, LabelAllStats},
	}}
}

func workoutKeyboard() *Keyboard {
	kb := &Keyboard{OneTime: true}
	for i := 0; i < len(domain.WorkoutTypes); i += 2 {
		row := []string{string(domain.WorkoutTypes[i])}
		if i+1 < len(domain.WorkoutTypes) {
			row = append(row, string(domain.WorkoutTypes[i+1]))
		}
		kb.Rows = append(kb.Rows, row)
	}
	return kb
}

func removeKeyboard() *Keyboard {
	return &Keyboard{Remove: true}
}
