package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockSentinel/internal/batch"
	"StockSentinel/internal/cooldown"
	"StockSentinel/internal/model"
	"StockSentinel/internal/recorder"
	"StockSentinel/internal/store"
	"StockSentinel/pkg/errors"
	"StockSentinel/pkg/logger"
)

type fakePusher struct {
	mu   sync.Mutex
	msgs map[string][]string
}

func (p *fakePusher) Push(_ context.Context, chatID, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.msgs == nil {
		p.msgs = map[string][]string{}
	}
	p.msgs[chatID] = append(p.msgs[chatID], text)
	return nil
}

func (p *fakePusher) count(chatID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.msgs[chatID])
}

type countingAnalyzer struct {
	mu    sync.Mutex
	calls []string
}

func (a *countingAnalyzer) Analyze(_ context.Context, symbol string, s model.Settings) *model.AnalysisResult {
	a.mu.Lock()
	a.calls = append(a.calls, symbol)
	a.mu.Unlock()
	return &model.AnalysisResult{Symbol: model.NormalizeSymbol(symbol), Signal: model.SignalHold, Reason: s.Strategy, AnalyzedAt: time.Now()}
}

type failingMarkRun struct {
	*store.ScheduleRepository
}

func (f failingMarkRun) MarkRun(context.Context, string, time.Time) error {
	return errors.New("database is locked")
}

// staleSchedules serves a ListActive snapshot taken before another instance claimed the hour.
type staleSchedules struct {
	*store.ScheduleRepository
	snapshot []model.Schedule
}

func (s staleSchedules) ListActive(context.Context) ([]model.Schedule, error) {
	return s.snapshot, nil
}

type fixture struct {
	sched     *Scheduler
	schedules *store.ScheduleRepository
	watchlist *store.WatchlistRepository
	analyzer  *countingAnalyzer
	pusher    *fakePusher
	rec       *recorder.SQLRecorder
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	db, err := store.Open("sqlite", ":memory:", logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		schedules: store.NewScheduleRepository(db),
		watchlist: store.NewWatchlistRepository(db),
		analyzer:  &countingAnalyzer{},
		pusher:    &fakePusher{},
		rec:       recorder.NewSQLRecorder(db, logger.Nop()),
	}
	orch := batch.NewOrchestrator(f.analyzer, batch.Config{}, logger.Nop())
	f.sched = NewScheduler(context.Background(), Deps{
		Schedules: f.schedules,
		Watchlist: f.watchlist,
		Batch:     orch,
		Analyzer:  f.analyzer,
		Pusher:    f.pusher,
		Recorder:  f.rec,
		Cooldown:  cooldown.NewMemoryGuard(),
	}, Options{Location: time.UTC}, logger.Nop())
	f.sched.now = func() time.Time { return now }
	return f
}

func (f *fixture) seed(t *testing.T, userID, alert string, symbols ...string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.schedules.Upsert(ctx, model.Schedule{UserID: userID, AlertTime: alert, Active: true}))
	for _, s := range symbols {
		require.NoError(t, f.watchlist.AddItem(ctx, model.WatchlistItem{UserID: userID, Symbol: s}))
	}
}

func TestCheckJobs_FiresOncePerHour(t *testing.T) {
	now := time.Date(2024, 6, 3, 8, 0, 10, 0, time.UTC)
	f := newFixture(t, now)
	f.seed(t, "100", "08:00", "PTT.BK", "AOT.BK")
	f.seed(t, "200", "09:00", "AAPL")

	ctx := context.Background()
	fired, err := f.sched.CheckJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
	assert.ElementsMatch(t, []string{"PTT.BK", "AOT.BK"}, f.analyzer.calls)

	// header + 2 results + footer
	assert.Equal(t, 4, f.pusher.count("100"))
	assert.Equal(t, 0, f.pusher.count("200"))

	sch, err := f.schedules.Get(ctx, "100")
	require.NoError(t, err)
	require.NotNil(t, sch.LastRun)
	assert.True(t, sch.LastRun.Equal(now.Truncate(time.Second)))

	// redelivered trigger within the same hour
	fired, err = f.sched.CheckJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, fired)
	assert.Len(t, f.analyzer.calls, 2)

	hist, err := f.rec.History(ctx, "PTT.BK", 5)
	require.NoError(t, err)
	assert.Len(t, hist, 1)
}

func TestCheckJobs_SkipsWhenMarkRunFails(t *testing.T) {
	now := time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	f.seed(t, "100", "08:00", "PTT.BK")
	f.sched.deps.Schedules = failingMarkRun{f.schedules}

	fired, err := f.sched.CheckJobs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, fired)
	assert.Empty(t, f.analyzer.calls)
}

func TestCheckJobs_SkipsHourClaimedElsewhere(t *testing.T) {
	now := time.Date(2024, 6, 3, 8, 0, 10, 0, time.UTC)
	f := newFixture(t, now)
	f.seed(t, "100", "08:00", "PTT.BK")
	ctx := context.Background()

	snapshot, err := f.schedules.ListActive(ctx)
	require.NoError(t, err)
	require.NoError(t, f.schedules.MarkRun(ctx, "100", now.Add(-5*time.Second)))
	f.sched.deps.Schedules = staleSchedules{ScheduleRepository: f.schedules, snapshot: snapshot}

	fired, err := f.sched.CheckJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, fired)
	assert.Empty(t, f.analyzer.calls)
	assert.Equal(t, 0, f.pusher.count("100"))
}

func TestHandleCommand_WatchlistLifecycle(t *testing.T) {
	f := newFixture(t, time.Now())
	ctx := context.Background()

	assert.Contains(t, f.sched.HandleCommand(ctx, "7", "/add ptt.bk"), "PTT.BK")
	assert.Contains(t, f.sched.HandleCommand(ctx, "7", "/watchlist"), "1. PTT.BK")
	assert.Contains(t, f.sched.HandleCommand(ctx, "7", "/remove PTT.BK"), "ลบ")
	assert.Contains(t, f.sched.HandleCommand(ctx, "7", "/remove PTT.BK"), "ไม่พบ")
	assert.Contains(t, f.sched.HandleCommand(ctx, "7", "/watchlist"), "/add")
}

func TestHandleCommand_AddKeepsOverridesAndCapsWatchlist(t *testing.T) {
	f := newFixture(t, time.Now())
	ctx := context.Background()

	assert.Contains(t, f.sched.HandleCommand(ctx, "7", "/add AAPL"), "เพิ่ม AAPL")
	assert.Contains(t, f.sched.HandleCommand(ctx, "7", "/set AAPL strategy growth"), "Growth")
	assert.Contains(t, f.sched.HandleCommand(ctx, "7", "/add aapl"), "อยู่ในรายการแล้ว")

	items, err := f.watchlist.ListItems(ctx, "7")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Strategy)
	assert.Equal(t, "Growth", *items[0].Strategy)

	for i := 1; i < model.MaxWatchlistItems; i++ {
		f.sched.HandleCommand(ctx, "7", fmt.Sprintf("/add S%02d", i))
	}
	assert.Contains(t, f.sched.HandleCommand(ctx, "7", "/add EXTRA"), "รายการเต็ม")
	items, err = f.watchlist.ListItems(ctx, "7")
	require.NoError(t, err)
	assert.Len(t, items, model.MaxWatchlistItems)
}

func TestHandleCommand_Settings(t *testing.T) {
	f := newFixture(t, time.Now())
	ctx := context.Background()
	f.seed(t, "7", "08:00", "PTT.BK", "AAPL")

	assert.Contains(t, f.sched.HandleCommand(ctx, "7", "/set strategy dca"), "DCA")
	assert.Contains(t, f.sched.HandleCommand(ctx, "7", "/set risk HIGH"), "High")
	assert.Contains(t, f.sched.HandleCommand(ctx, "7", "/set format full"), "Full")

	u, err := f.watchlist.GetUserDefaults(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, model.UserDefaults{UserID: "7", Strategy: "DCA", Risk: "High", ReportFormat: "Full"}, u)

	assert.Contains(t, f.sched.HandleCommand(ctx, "7", "/set ptt.bk strategy dividend"), "PTT.BK")
	assert.Contains(t, f.sched.HandleCommand(ctx, "7", "/set PTT.BK format summary"), "Summary")
	assert.Contains(t, f.sched.HandleCommand(ctx, "7", "/set MSFT risk low"), "ไม่พบ MSFT")
	assert.Contains(t, f.sched.HandleCommand(ctx, "7", "/set format verbose"), "summary หรือ full")
	assert.Contains(t, f.sched.HandleCommand(ctx, "7", "/set horizon long"), "ใช้: /set")
	assert.Contains(t, f.sched.HandleCommand(ctx, "7", "/set"), "ใช้: /set")

	out := f.sched.HandleCommand(ctx, "7", "/settings")
	assert.Contains(t, out, "strategy: DCA | goal: Medium | risk: High | format: Full")
	assert.Contains(t, out, "<b>PTT.BK</b>\n  strategy: Dividend | goal: Medium | risk: High | format: Summary")
	assert.NotContains(t, out, "AAPL")

	// the batch uses item override, then user default, then system default
	_, err = f.sched.RunForUser(ctx, "7", "command")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"PTT.BK", "AAPL"}, f.analyzer.calls)
	f.pusher.mu.Lock()
	msgs := strings.Join(f.pusher.msgs["7"], "\n")
	f.pusher.mu.Unlock()
	assert.Contains(t, msgs, "เหตุผล: Dividend")
	assert.Contains(t, msgs, "เหตุผล: DCA")

	assert.Contains(t, f.sched.HandleCommand(ctx, "7", "/set PTT.BK strategy default"), "ค่าเริ่มต้น")
	items, err := f.watchlist.ListItems(ctx, "7")
	require.NoError(t, err)
	for _, it := range items {
		if it.Symbol == "PTT.BK" {
			assert.Nil(t, it.Strategy)
			require.NotNil(t, it.ReportFormat)
		}
	}
}

func TestHandleCommand_AnalyzeCooldown(t *testing.T) {
	f := newFixture(t, time.Now())
	ctx := context.Background()
	require.NoError(t, f.watchlist.SetUserDefaults(ctx, model.UserDefaults{UserID: "7", Strategy: "Growth"}))

	first := f.sched.HandleCommand(ctx, "7", "/analyze@sentinel_bot nvda")
	assert.Contains(t, first, "NVDA")
	assert.Contains(t, first, "Growth")

	second := f.sched.HandleCommand(ctx, "7", "/analyze NVDA")
	assert.Contains(t, second, "30 วินาที")
	assert.Len(t, f.analyzer.calls, 1)
}

func TestHandleCommand_Alert(t *testing.T) {
	f := newFixture(t, time.Now())
	ctx := context.Background()

	assert.Contains(t, f.sched.HandleCommand(ctx, "7", "/alert 08:45"), "09:00")
	sch, err := f.schedules.Get(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, "09:00", sch.AlertTime)
	assert.True(t, sch.Active)

	assert.Contains(t, f.sched.HandleCommand(ctx, "7", "/alert off"), "ปิด")
	sch, err = f.schedules.Get(ctx, "7")
	require.NoError(t, err)
	assert.False(t, sch.Active)

	assert.Contains(t, f.sched.HandleCommand(ctx, "7", "/alert later"), "HH:MM")
}

func TestHandleCommand_Help(t *testing.T) {
	f := newFixture(t, time.Now())
	out := f.sched.HandleCommand(context.Background(), "7", "hello")
	assert.True(t, strings.HasPrefix(out, "คำสั่งที่ใช้ได้"))
}

func TestRegisterAll(t *testing.T) {
	f := newFixture(t, time.Now())
	assert.NoError(t, f.sched.RegisterAll("0 0 * * * *", "0 30 3 * * *"))
	assert.Error(t, f.sched.RegisterAll("not a cron", ""))
}
