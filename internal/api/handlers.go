// Package api exposes the HTTP chat gateway for the run tracker.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"example.com/runtracker/internal/bot"
	"example.com/runtracker/internal/domain"
	"example.com/runtracker/internal/format"
	"example.com/runtracker/internal/persistence"
)

const (
	maxMessageBytes = 64 << 10
	maxPageSize     = 500
)

// Handler coordinates HTTP requests with the dispatcher and the domain service.
type Handler struct {
	service    *domain.Service
	dispatcher *bot.Dispatcher
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, dispatcher *bot.Dispatcher) *Handler {
	return &Handler{service: service, dispatcher: dispatcher}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/conversations/", h.conversationMessages)
	mux.HandleFunc("/v1/runs", h.runs)
	mux.HandleFunc("/v1/stats", h.stats)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) conversationMessages(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/conversations/")
	id, tail, found := strings.Cut(rest, "/")
	if !found || tail != "messages" || strings.TrimSpace(id) == "" {
		writeError(w, http.StatusNotFound, "not_found", "expected /v1/conversations/{id}/messages")
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	var req MessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	collector := &replyCollector{}
	msg := bot.Message{ConversationID: id, SenderName: req.SenderName, Text: req.Text}
	if err := h.dispatcher.Handle(r.Context(), msg, collector); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Replies: collector.views()})
}

func (h *Handler) runs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxPageSize {
			writeError(w, http.StatusBadRequest, "invalid_limit", fmt.Sprintf("limit must be between 1 and %d", maxPageSize))
			return
		}
		limit = parsed
	}
	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_cursor", err.Error())
		return
	}

	runs, err := h.service.Runs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	start := 0
	if cursor != nil {
		// History is append-only, so a valid cursor still points at the same run.
		if cursor.After > len(runs) || runs[cursor.After-1].ID != cursor.LastID {
			writeError(w, http.StatusBadRequest, "invalid_cursor", persistence.ErrInvalidCursor.Error())
			return
		}
		start = cursor.After
	}
	end := len(runs)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	resp := ListRunsResponse{Items: make([]RunView, 0, end-start)}
	for _, run := range runs[start:end] {
		resp.Items = append(resp.Items, toRunView(run))
	}
	if end < len(runs) {
		resp.NextCursor = persistence.EncodeCursor(&persistence.Cursor{After: end, LastID: runs[end-1].ID})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	summary, err := h.service.Summary(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	goal, err := h.service.WeeklyGoal(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	resp := StatsResponse{
		RunCount:       summary.RunCount,
		TotalKm:        summary.TotalKm,
		TotalMinutes:   summary.TotalMinutes,
		AvgPace:        format.FormatPace(summary.AvgPaceMinKm),
		AvgPaceMinKm:   summary.AvgPaceMinKm,
		TodayKm:        summary.TodayKm,
		WeekKm:         summary.WeekKm,
		MonthKm:        summary.MonthKm,
		WeekStart:      format.ISODate(summary.WeekStart),
		WeekEnd:        format.ISODate(summary.WeekEnd),
		WeeklyGoalKm:   goal,
		WeekProgressPc: domain.WeekProgress(summary.WeekKm, goal),
	}
	writeJSON(w, http.StatusOK, resp)
}

// MessageRequest is the payload for POST /v1/conversations/{id}/messages.
type MessageRequest struct {
	Text       string `json:"text"`
	SenderName string `json:"sender_name"`
}

// Validate ensures request correctness. Whitespace is valid text: the note
// step stores it as typed.
func (r MessageRequest) Validate() error {
	if r.Text == "" {
		return errors.New("text is required")
	}
	return nil
}

// MessageResponse lists the replies produced for one inbound message, in order.
type MessageResponse struct {
	Replies []ReplyView `json:"replies"`
}

// ReplyView is one outbound text or document.
type ReplyView struct {
	Text     string        `json:"text,omitempty"`
	Format   string        `json:"format"`
	Keyboard *bot.Keyboard `json:"keyboard,omitempty"`
	Document *DocumentView `json:"document,omitempty"`
}

// Reply formats.
const (
	FormatMarkdown = "markdown"
	FormatPlain    = "plain"
	FormatDocument = "document"
)

// DocumentView carries an attachment inline; Content is base64 encoded in JSON.
type DocumentView struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"content"`
}

// RunView exposes a recorded run.
type RunView struct {
	ID           string    `json:"id"`
	Date         string    `json:"date"`
	DistanceKm   float64   `json:"distance_km"`
	DurationMin  int       `json:"duration_min"`
	AvgHeartRate int       `json:"avg_heart_rate"`
	WorkoutType  string    `json:"workout_type"`
	Note         string    `json:"note,omitempty"`
	Pace         string    `json:"pace"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// ListRunsResponse packages the run history in entry order. NextCursor is set
// when more runs follow the page.
type ListRunsResponse struct {
	Items      []RunView `json:"items"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// StatsResponse is the full statistics summary.
type StatsResponse struct {
	RunCount       int     `json:"run_count"`
	TotalKm        float64 `json:"total_km"`
	TotalMinutes   int     `json:"total_minutes"`
	AvgPace        string  `json:"avg_pace"`
	AvgPaceMinKm   float64 `json:"avg_pace_min_km"`
	TodayKm        float64 `json:"today_km"`
	WeekKm         float64 `json:"week_km"`
	MonthKm        float64 `json:"month_km"`
	WeekStart      string  `json:"week_start"`
	WeekEnd        string  `json:"week_end"`
	WeeklyGoalKm   float64 `json:"weekly_goal_km"`
	WeekProgressPc int     `json:"week_progress_percent"`
}

// replyCollector buffers dispatcher output for a single HTTP response.
type replyCollector struct {
	mu      sync.Mutex
	replies []ReplyView
}

func (c *replyCollector) SendText(_ context.Context, _ string, reply bot.Reply) error {
	view := ReplyView{Text: reply.Text, Format: FormatPlain, Keyboard: reply.Keyboard}
	if reply.Markdown {
		view.Format = FormatMarkdown
	}
	c.mu.Lock()
	c.replies = append(c.replies, view)
	c.mu.Unlock()
	return nil
}

func (c *replyCollector) SendDocument(_ context.Context, _ string, doc bot.Document) error {
	content, err := os.ReadFile(doc.Path)
	if err != nil {
		return fmt.Errorf("read staged document: %w", err)
	}
	c.mu.Lock()
	c.replies = append(c.replies, ReplyView{
		Format: FormatDocument,
		Document: &DocumentView{
			Filename:    doc.Filename,
			ContentType: doc.ContentType,
			Content:     content,
		},
	})
	c.mu.Unlock()
	return nil
}

func (c *replyCollector) views() []ReplyView {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ReplyView, len(c.replies))
	copy(out, c.replies)
	return out
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toRunView(run domain.Run) RunView {
	return RunView{
		ID:           run.ID,
		Date:         format.ISODate(run.Date),
		DistanceKm:   run.DistanceKm,
		DurationMin:  run.DurationMin,
		AvgHeartRate: run.AvgHeartRate,
		WorkoutType:  string(run.WorkoutType),
		Note:         run.Note,
		Pace:         format.FormatPace(run.PaceMinPerKm()),
		RecordedAt:   run.RecordedAt,
	}
}
