package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/runtracker/internal/domain"
	"example.com/runtracker/internal/persistence/memory"
	"example.com/runtracker/internal/workflow"
)

type sentDocument struct {
	Document
	Content string
}

type recorder struct {
	mu      sync.Mutex
	replies []Reply
	docs    []sentDocument
	docErr  error
}

func (r *recorder) SendText(_ context.Context, _ string, reply Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, reply)
	return nil
}

func (r *recorder) SendDocument(_ context.Context, _ string, doc Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.docErr != nil {
		return r.docErr
	}
	content, err := os.ReadFile(doc.Path)
	if err != nil {
		return err
	}
	r.docs = append(r.docs, sentDocument{Document: doc, Content: string(content)})
	return nil
}

func (r *recorder) last() Reply {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.replies) == 0 {
		return Reply{}
	}
	return r.replies[len(r.replies)-1]
}

type flakyStore struct {
	*memory.Store
	failAppend bool
}

func (s *flakyStore) Append(ctx context.Context, run domain.Run) error {
	if s.failAppend {
		return errors.New("disk full")
	}
	return s.Store.Append(ctx, run)
}

type fixture struct {
	dispatcher *Dispatcher
	store      *flakyStore
	out        *recorder
	stagingDir string
}

// Wednesday; the week started on Monday 29 April.
var fixedNow = time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := &flakyStore{Store: memory.NewStore(0)}
	service := domain.NewService(store, domain.WithClock(func() time.Time { return fixedNow }))
	staging := t.TempDir()
	return &fixture{
		dispatcher: NewDispatcher(service, workflow.NewSessions(0), WithStagingDir(staging)),
		store:      store,
		out:        &recorder{},
		stagingDir: staging,
	}
}

func (f *fixture) send(t *testing.T, conversation string, texts ...string) Reply {
	t.Helper()
	for _, text := range texts {
		require.NoError(t, f.dispatcher.Handle(context.Background(), Message{ConversationID: conversation, SenderName: "Ann", Text: text}, f.out))
	}
	return f.out.last()
}

func (f *fixture) state(conversation string) (workflow.State, bool) {
	session := f.dispatcher.sessions.Lock(conversation)
	defer session.Unlock()
	return session.State()
}

func TestFullStatsOnEmptyStore(t *testing.T) {
	f := newFixture(t)

	reply := f.send(t, "c1", "/stats")
	require.True(t, reply.Markdown)
	require.Contains(t, reply.Text, "*Total runs:* 0")
	require.Contains(t, reply.Text, "*Total distance:* 0.0 km")
	require.Contains(t, reply.Text, "*Average pace:* 0:00 min/km")
	require.Contains(t, reply.Text, "*This week:* 0.0 km")
	require.Contains(t, reply.Text, "*This month:* 0.0 km")
	require.Contains(t, reply.Text, "*Today:* 0.0 km")

	require.Equal(t, reply.Text, f.send(t, "c1", LabelAllStats).Text)
}

func TestCommitRunReport(t *testing.T) {
	f := newFixture(t)

	f.send(t, "c1", LabelNewRun)
	reply := f.send(t, "c1", "10", "50", "140", "Tempo", "-")

	require.Contains(t, reply.Text, "✅ *Run saved!*")
	require.Contains(t, reply.Text, "📅 *Date:* 01.05.24")
	require.Contains(t, reply.Text, "🎯 *Type:* Tempo")
	require.Contains(t, reply.Text, "📏 *Distance:* 10.0 km")
	require.Contains(t, reply.Text, "⏱ *Time:* 50 min")
	require.Contains(t, reply.Text, "❤️ *Heart rate:* 140 bpm")
	require.Contains(t, reply.Text, "🏃 *Pace:* 5:00 min/km")
	require.Contains(t, reply.Text, "🚀 *Speed:* 12.0 km/h")
	require.NotContains(t, reply.Text, "Note:")
	require.Contains(t, reply.Text, "📅 *Today:* 10.0 km")
	require.Contains(t, reply.Text, "📈 *Week (29.04.24–01.05.24):* 10.0 km of 70 km")
	require.Contains(t, reply.Text, "📆 *Month:* 10.0 km")
	require.Equal(t, MainKeyboard(), reply.Keyboard)

	_, active := f.state("c1")
	require.False(t, active)

	runs, err := f.store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC), runs[0].Date)
	require.Empty(t, runs[0].Note)
}

func TestCommitReportFieldOrder(t *testing.T) {
	f := newFixture(t)
	reply := f.send(t, "c1", "/run", "8,4", "45", "150", "Long", "windy_day")

	order := []string{"Run saved", "Date:", "Type:", "Distance:", "Time:", "Heart rate:", "Pace:", "Speed:", "Note:", "Statistics:", "Today:", "Week (", "Month:"}
	position := -1
	for _, marker := range order {
		idx := strings.Index(reply.Text, marker)
		require.Greater(t, idx, position, marker)
		position = idx
	}
	require.Contains(t, reply.Text, `📝 *Note:* windy\_day`)
}

func TestWorkflowPromptsAndKeyboards(t *testing.T) {
	f := newFixture(t)

	reply := f.send(t, "c1", "/run")
	require.Contains(t, reply.Text, "distance")
	require.True(t, reply.Keyboard.Remove)

	reply = f.send(t, "c1", "12")
	require.Contains(t, reply.Text, "time in minutes")

	reply = f.send(t, "c1", "60")
	require.Contains(t, reply.Text, "heart rate")

	reply = f.send(t, "c1", "150")
	require.Contains(t, reply.Text, "workout type")
	require.Equal(t, [][]string{{"Easy", "Tempo"}, {"Intervals", "Long"}}, reply.Keyboard.Rows)
	require.True(t, reply.Keyboard.OneTime)

	reply = f.send(t, "c1", "Intervals")
	require.Contains(t, reply.Text, "note")
}

func TestValidationKeepsState(t *testing.T) {
	f := newFixture(t)
	f.send(t, "c1", "/run", "5", "45")

	reply := f.send(t, "c1", "300")
	require.Contains(t, reply.Text, "1 to 220")
	state, active := f.state("c1")
	require.True(t, active)
	require.Equal(t, workflow.AwaitHeartRate{DistanceKm: 5, DurationMin: 45}, state)

	reply = f.send(t, "c1", "easy")
	require.Contains(t, reply.Text, "1 to 220")

	f.send(t, "c1", "150")
	reply = f.send(t, "c1", "easy")
	require.Contains(t, reply.Text, "Easy, Tempo, Intervals or Long")
	state, _ = f.state("c1")
	require.Equal(t, workflow.AwaitWorkoutType{DistanceKm: 5, DurationMin: 45, AvgHeartRate: 150}, state)

	runs, err := f.store.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, runs)
}

func TestCommandsDuringWorkflowAreStepInput(t *testing.T) {
	f := newFixture(t)
	f.send(t, "c1", "/run")

	reply := f.send(t, "c1", "/stats")
	require.Contains(t, reply.Text, "Invalid distance")
	state, _ := f.state("c1")
	require.Equal(t, workflow.AwaitDistance{}, state)
}

func TestCancelDiscardsState(t *testing.T) {
	steps := []string{"5", "30", "140", "Easy"}
	for depth := 0; depth <= len(steps); depth++ {
		for _, cancel := range []string{"/cancel", "/cancel@runbot"} {
			t.Run(fmt.Sprintf("%s after %d answers", cancel, depth), func(t *testing.T) {
				f := newFixture(t)

				f.send(t, "c1", append([]string{"/run"}, steps[:depth]...)...)
				_, active := f.state("c1")
				require.True(t, active)

				reply := f.send(t, "c1", cancel)
				require.Equal(t, textCancelled, reply.Text)
				require.Equal(t, MainKeyboard(), reply.Keyboard)
				_, active = f.state("c1")
				require.False(t, active)

				f.send(t, "c1", "/run")
				state, active := f.state("c1")
				require.True(t, active)
				require.Equal(t, workflow.AwaitDistance{}, state)

				runs, err := f.store.List(context.Background())
				require.NoError(t, err)
				require.Empty(t, runs)
			})
		}
	}
}

func TestExponentInputsAreReadInFull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.send(t, "c1", "/run", "1e2", "600", "140", "Easy", "-")
	runs, err := f.store.List(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, 100.0, runs[0].DistanceKm)

	f.send(t, "c1", "/goal 1e2")
	goal, err := f.store.WeeklyGoal(ctx)
	require.NoError(t, err)
	require.Equal(t, 100.0, goal)
}

func TestCancelWhileIdle(t *testing.T) {
	f := newFixture(t)
	reply := f.send(t, "c1", "/cancel")
	require.Equal(t, textNothingToCancel, reply.Text)
}

func TestGoalCommands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reply := f.send(t, "c1", "/goal 0")
	require.Equal(t, textInvalidGoal, reply.Text)
	goal, err := f.store.WeeklyGoal(ctx)
	require.NoError(t, err)
	require.Equal(t, 70.0, goal)

	f.send(t, "c1", "/goal abc")
	f.send(t, "c1", "/goal 501")
	goal, _ = f.store.WeeklyGoal(ctx)
	require.Equal(t, 70.0, goal)

	reply = f.send(t, "c1", "/goal")
	require.Contains(t, reply.Text, "*🎯 Current goal:* 70 km per week")

	reply = f.send(t, "c1", "/goal 42,5")
	require.Contains(t, reply.Text, "New weekly goal: 42.5 km")
	goal, _ = f.store.WeeklyGoal(ctx)
	require.Equal(t, 42.5, goal)

	reply = f.send(t, "c1", LabelGoal)
	require.Contains(t, reply.Text, "*🎯 Current weekly goal:* 42.5 km")

	reply = f.send(t, "c1", "/start")
	require.Contains(t, reply.Text, "*Hi, Ann!*")
	require.Contains(t, reply.Text, "*Current weekly goal:* 42.5 km")
}

func TestWeekReportVariants(t *testing.T) {
	f := newFixture(t)
	f.send(t, "c1", "/goal 10")
	f.send(t, "c1", "/run", "15", "80", "150", "Long", "-")

	menu := f.send(t, "c1", LabelWeek)
	require.Contains(t, menu.Text, "*📊 Week 29.04.24–01.05.24*")
	require.Contains(t, menu.Text, "*Distance:* 15.0 km of 10 km")
	require.Contains(t, menu.Text, "*Progress:* 100%")
	require.Contains(t, menu.Text, strings.Repeat("▰", 10))
	require.Contains(t, menu.Text, "*This month:* 15.0 km")

	command := f.send(t, "c1", "/week")
	require.Contains(t, command.Text, "*Progress:* 150%")
	require.NotContains(t, command.Text, "▰")
	require.NotContains(t, command.Text, "month")
}

func TestProgressBar(t *testing.T) {
	require.Equal(t, "▱▱▱▱▱▱▱▱▱▱", progressBar(0))
	require.Equal(t, "▰▰▰▰▱▱▱▱▱▱", progressBar(49))
	require.Equal(t, "▰▰▰▰▰▰▰▰▰▰", progressBar(100))
}

func TestLastRunVariants(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, textNoRunsMenu, f.send(t, "c1", LabelLastRun).Text)
	require.Equal(t, textNoRunsCommand, f.send(t, "c1", "/last").Text)

	f.send(t, "c1", "/run", "10.5", "52", "145", "Tempo", "good one")

	menu := f.send(t, "c1", LabelLastRun)
	require.Contains(t, menu.Text, "*Distance:* 10.5 km")
	require.Contains(t, menu.Text, "*Heart rate:* 145 bpm")
	require.Contains(t, menu.Text, "*Speed:*")
	require.Contains(t, menu.Text, "*Note:* good one")

	command := f.send(t, "c1", "/last")
	require.Contains(t, command.Text, "*🕒 Last run (01.05.24)*")
	require.Contains(t, command.Text, "*Type:* Tempo")
	require.NotContains(t, command.Text, "Heart rate")
}

func TestTwoSameDayRuns(t *testing.T) {
	f := newFixture(t)
	f.send(t, "c1", "/run", "10", "50", "140", "Tempo", "-")
	reply := f.send(t, "c1", "/run", "5", "30", "130", "Easy", "cool down")

	require.Contains(t, reply.Text, "📅 *Today:* 15.0 km")

	runs, err := f.store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, 10.0, runs[0].DistanceKm)
	require.Equal(t, 5.0, runs[1].DistanceKm)
}

func TestExport(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, textNoExportMenu, f.send(t, "c1", LabelExport).Text)
	require.Equal(t, textNoExportCommand, f.send(t, "c1", "/export").Text)
	require.Empty(t, f.out.docs)

	f.send(t, "c1", "/run", "10.5", "52", "145", "Tempo", `some "note", with comma`)
	f.send(t, "c1", LabelExport, "/export")

	require.Len(t, f.out.docs, 2)
	require.Equal(t, "running_tracker_2024-05-01.csv", f.out.docs[0].Filename)
	require.Equal(t, "running_data_2024-05-01.csv", f.out.docs[1].Filename)
	require.Equal(t, "text/csv", f.out.docs[0].ContentType)
	require.Equal(t,
		"Date,Distance (km),Duration (min),Heart Rate (bpm),Type,Note\n"+
			`2024-05-01,10.5,52,145,Tempo,"some ""note"", with comma"`,
		f.out.docs[0].Content)

	entries, err := os.ReadDir(f.stagingDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestExportDeliveryFailure(t *testing.T) {
	f := newFixture(t)
	f.send(t, "c1", "/run", "5", "25", "150", "Easy", "-")

	f.out.docErr = errors.New("upload rejected")
	reply := f.send(t, "c1", LabelExport)
	require.Equal(t, textExportFailedMenu, reply.Text)
	require.Equal(t, textExportFailedCommand, f.send(t, "c1", "/export").Text)

	entries, err := os.ReadDir(f.stagingDir)
	require.NoError(t, err)
	require.Empty(t, entries)

	runs, err := f.store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
}

func TestExportStagingFailure(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.stagingDir = f.stagingDir + "/missing"
	f.send(t, "c1", "/run", "5", "25", "150", "Easy", "-")

	require.Equal(t, textExportFailedMenu, f.send(t, "c1", LabelExport).Text)
	require.Empty(t, f.out.docs)
}

func TestStoreFailureKeepsNoteStep(t *testing.T) {
	f := newFixture(t)
	f.store.failAppend = true

	reply := f.send(t, "c1", "/run", "5", "25", "150", "Easy", "first try")
	require.Equal(t, textSaveFailed, reply.Text)
	state, active := f.state("c1")
	require.True(t, active)
	require.Equal(t, workflow.AwaitNote{DistanceKm: 5, DurationMin: 25, AvgHeartRate: 150, WorkoutType: domain.WorkoutEasy}, state)

	f.store.failAppend = false
	reply = f.send(t, "c1", "second try")
	require.Contains(t, reply.Text, "Run saved")
	_, active = f.state("c1")
	require.False(t, active)
}

func TestUnknownInputWhileIdle(t *testing.T) {
	f := newFixture(t)
	for _, text := range []string{"hello", "/unknown", "", "Tempo"} {
		reply := f.send(t, "c1", text)
		require.Equal(t, textUnknown, reply.Text)
	}
}

func TestConversationsAreIndependent(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("chat-%d", i)
			for _, text := range []string{"/run", "5", "30", "140", "Easy", "-"} {
				_ = f.dispatcher.Handle(context.Background(), Message{ConversationID: id, Text: text}, f.out)
			}
		}(i)
	}
	wg.Wait()

	runs, err := f.store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 10)
}

func TestResolve(t *testing.T) {
	cases := []struct {
		text   string
		action Action
		source source
		args   []string
	}{
		{LabelNewRun, ActionRun, fromMenu, nil},
		{" " + LabelWeek + " ", ActionWeek, fromMenu, nil},
		{"/run", ActionRun, fromCommand, []string{}},
		{"/help", ActionStart, fromCommand, []string{}},
		{"/goal 80", ActionGoal, fromCommand, []string{"80"}},
		{"/goal   80   extra", ActionGoal, fromCommand, []string{"80", "extra"}},
		{"/stats@run_tracker_bot", ActionStats, fromCommand, []string{}},
		{"/nope", ActionUnknown, fromMenu, nil},
		{"week", ActionUnknown, fromMenu, nil},
	}
	for _, tc := range cases {
		r := resolve(tc.text)
		require.Equal(t, tc.action, r.action, tc.text)
		if tc.action == ActionUnknown {
			continue
		}
		require.Equal(t, tc.source, r.source, tc.text)
		require.Equal(t, tc.args, r.args, tc.text)
	}
}
