package bot

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"

	"example.com/runtracker/internal/domain"
	"example.com/runtracker/internal/observability"
	"example.com/runtracker/internal/workflow"
)

// Action identifies a routed user intent.
type Action string

const (
	ActionStart   Action = "start"
	ActionRun     Action = "run"
	ActionWeek    Action = "week"
	ActionLastRun Action = "last_run"
	ActionGoal    Action = "goal"
	ActionExport  Action = "export"
	ActionStats   Action = "stats"
	ActionCancel  Action = "cancel"
	ActionUnknown Action = "unknown"
)

// source tells apart menu buttons and typed commands; some reports differ between them.
type source int

const (
	fromMenu source = iota
	fromCommand
)

type route struct {
	action Action
	source source
	args   []string
}

var menuRoutes = map[string]Action{
	LabelNewRun:   ActionRun,
	LabelWeek:     ActionWeek,
	LabelLastRun:  ActionLastRun,
	LabelGoal:     ActionGoal,
	LabelExport:   ActionExport,
	LabelAllStats: ActionStats,
}

var commandRoutes = map[string]Action{
	"/start":  ActionStart,
	"/help":   ActionStart,
	"/run":    ActionRun,
	"/week":   ActionWeek,
	"/last":   ActionLastRun,
	"/goal":   ActionGoal,
	"/export": ActionExport,
	"/stats":  ActionStats,
	"/cancel": ActionCancel,
}

func resolve(text string) route {
	trimmed := strings.TrimSpace(text)
	if action, ok := menuRoutes[trimmed]; ok {
		return route{action: action, source: fromMenu}
	}

	fields := strings.Fields(trimmed)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return route{action: ActionUnknown}
	}
	// Group chats address commands as /cmd@botname.
	name, _, _ := strings.Cut(fields[0], "@")
	if action, ok := commandRoutes[name]; ok {
		return route{action: action, source: fromCommand, args: fields[1:]}
	}
	return route{action: ActionUnknown}
}

// Option configures optional behaviour for the Dispatcher.
type Option func(*Dispatcher)

// WithLogger overrides the logger used to report failures.
func WithLogger(logger *log.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithStagingDir sets the directory export files are staged in before delivery.
func WithStagingDir(dir string) Option {
	return func(d *Dispatcher) {
		d.stagingDir = dir
	}
}

// Dispatcher routes inbound messages to reports and the entry workflow.
type Dispatcher struct {
	service    *domain.Service
	sessions   *workflow.Sessions
	logger     *log.Logger
	stagingDir string
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(service *domain.Service, sessions *workflow.Sessions, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		service:    service,
		sessions:   sessions,
		logger:     log.New(log.Writer(), "[bot] ", log.LstdFlags|log.Lshortfile),
		stagingDir: os.TempDir(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle processes one message to completion. Messages for the same
// conversation are handled one at a time. The returned error only reports
// delivery failures; domain failures are answered with a notice.
func (d *Dispatcher) Handle(ctx context.Context, msg Message, out Outbound) error {
	session := d.sessions.Lock(msg.ConversationID)
	defer session.Unlock()

	r := resolve(msg.Text)
	if state, active := session.State(); active {
		if r.action == ActionCancel {
			observability.RecordAction(string(ActionCancel))
			observability.RecordWorkflowCancelled()
			session.Clear()
			return out.SendText(ctx, msg.ConversationID, Reply{Text: textCancelled, Keyboard: MainKeyboard()})
		}
		return d.step(ctx, session, state, msg, out)
	}

	observability.RecordAction(string(r.action))
	switch r.action {
	case ActionStart:
		return d.welcome(ctx, msg, out)
	case ActionRun:
		state := workflow.Start()
		session.Set(state)
		return out.SendText(ctx, msg.ConversationID, promptFor(state))
	case ActionWeek:
		return d.week(ctx, msg, out, r.source)
	case ActionLastRun:
		return d.lastRun(ctx, msg, out, r.source)
	case ActionGoal:
		return d.goal(ctx, msg, out, r)
	case ActionExport:
		return d.exportRuns(ctx, msg, out, r.source)
	case ActionStats:
		return d.summary(ctx, msg, out)
	case ActionCancel:
		return out.SendText(ctx, msg.ConversationID, Reply{Text: textNothingToCancel, Keyboard: MainKeyboard()})
	default:
		return out.SendText(ctx, msg.ConversationID, Reply{Text: textUnknown, Keyboard: MainKeyboard()})
	}
}

func (d *Dispatcher) step(ctx context.Context, session *workflow.Session, state workflow.State, msg Message, out Outbound) error {
	outcome := workflow.Advance(state, msg.Text)
	observability.RecordWorkflowStep(string(state.Step()), !outcome.Invalid)

	if outcome.Invalid {
		return out.SendText(ctx, msg.ConversationID, rejectionFor(state.Step()))
	}
	if !outcome.Committed() {
		session.Set(outcome.Next)
		return out.SendText(ctx, msg.ConversationID, promptFor(outcome.Next))
	}

	run, err := d.service.RecordRun(ctx, *outcome.Entry)
	if err != nil {
		// The state stays at the note step so the user can resend it.
		d.logger.Printf("record run for conversation %s: %v", msg.ConversationID, err)
		return out.SendText(ctx, msg.ConversationID, Reply{Text: textSaveFailed, Markdown: true})
	}
	session.Clear()

	report := renderCommit(run, nil, 0)
	if stats, goal, err := d.weekContext(ctx); err != nil {
		d.logger.Printf("load stats after run %s: %v", run.ID, err)
	} else {
		report = renderCommit(run, &stats, goal)
	}
	return out.SendText(ctx, msg.ConversationID, Reply{Text: report, Markdown: true, Keyboard: MainKeyboard()})
}

func (d *Dispatcher) weekContext(ctx context.Context) (domain.Stats, float64, error) {
	stats, err := d.service.Stats(ctx)
	if err != nil {
		return domain.Stats{}, 0, err
	}
	goal, err := d.service.WeeklyGoal(ctx)
	if err != nil {
		return domain.Stats{}, 0, err
	}
	return stats, goal, nil
}

func (d *Dispatcher) welcome(ctx context.Context, msg Message, out Outbound) error {
	goal, err := d.service.WeeklyGoal(ctx)
	if err != nil {
		return d.fail(ctx, msg, out, "load weekly goal", err)
	}
	return out.SendText(ctx, msg.ConversationID, Reply{Text: renderWelcome(msg.SenderName, goal), Markdown: true, Keyboard: MainKeyboard()})
}

func (d *Dispatcher) week(ctx context.Context, msg Message, out Outbound, src source) error {
	stats, goal, err := d.weekContext(ctx)
	if err != nil {
		return d.fail(ctx, msg, out, "compute week stats", err)
	}

	text := renderWeekMenu(stats, goal)
	if src == fromCommand {
		text = renderWeekCommand(stats, goal)
	}
	return out.SendText(ctx, msg.ConversationID, Reply{Text: text, Markdown: true})
}

func (d *Dispatcher) lastRun(ctx context.Context, msg Message, out Outbound, src source) error {
	run, err := d.service.LastRun(ctx)
	if errors.Is(err, domain.ErrNoRuns) {
		text := textNoRunsMenu
		if src == fromCommand {
			text = textNoRunsCommand
		}
		return out.SendText(ctx, msg.ConversationID, Reply{Text: text, Markdown: true})
	}
	if err != nil {
		return d.fail(ctx, msg, out, "load last run", err)
	}

	text := renderLastRunMenu(run)
	if src == fromCommand {
		text = renderLastRunCommand(run)
	}
	return out.SendText(ctx, msg.ConversationID, Reply{Text: text, Markdown: true})
}

func (d *Dispatcher) goal(ctx context.Context, msg Message, out Outbound, r route) error {
	current, err := d.service.WeeklyGoal(ctx)
	if err != nil {
		return d.fail(ctx, msg, out, "load weekly goal", err)
	}
	if r.source == fromMenu {
		return out.SendText(ctx, msg.ConversationID, Reply{Text: renderGoalMenu(current), Markdown: true})
	}
	if len(r.args) == 0 {
		return out.SendText(ctx, msg.ConversationID, Reply{Text: renderGoalUsage(current), Markdown: true})
	}

	km, ok := workflow.ParseDecimal(r.args[0])
	if !ok {
		return out.SendText(ctx, msg.ConversationID, Reply{Text: textInvalidGoal, Markdown: true})
	}
	if err := d.service.SetWeeklyGoal(ctx, km); err != nil {
		if errors.Is(err, domain.ErrInvalidGoal) {
			return out.SendText(ctx, msg.ConversationID, Reply{Text: textInvalidGoal, Markdown: true})
		}
		return d.fail(ctx, msg, out, "set weekly goal", err)
	}
	return out.SendText(ctx, msg.ConversationID, Reply{Text: renderGoalUpdated(km), Markdown: true})
}

func (d *Dispatcher) summary(ctx context.Context, msg Message, out Outbound) error {
	summary, err := d.service.Summary(ctx)
	if err != nil {
		return d.fail(ctx, msg, out, "summarize runs", err)
	}
	return out.SendText(ctx, msg.ConversationID, Reply{Text: renderSummary(summary), Markdown: true})
}

func (d *Dispatcher) fail(ctx context.Context, msg Message, out Outbound, op string, err error) error {
	d.logger.Printf("%s for conversation %s: %v", op, msg.ConversationID, err)
	return out.SendText(ctx, msg.ConversationID, Reply{Text: textFailure, Markdown: true})
}
