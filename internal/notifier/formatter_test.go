package notifier

import (
	"strings"
	"testing"
	"time"

	"StockSentinel/internal/model"
)

func sampleResult() *model.AnalysisResult {
	return &model.AnalysisResult{
		Symbol:      "AAPL",
		CompanyName: "Apple Inc",
		Quote:       model.Quote{Price: 1234.5, Change: 12.3, PercentChange: 1.01},
		Metrics:     model.Metrics{PERatio: 28.456, DividendYield: 0.5, MarketCap: "2900000"},
		Indicators: model.IndicatorSet{
			RSI14:         model.Some(55.5),
			RangeHigh:     model.Some(1300),
			RangeLow:      model.Some(1100),
			RangePosition: model.Some(67.25),
		},
		News:        []string{"Q3 beats <estimates>"},
		Signal:      model.SignalBuy,
		Reason:      "ราคาต่ำกว่ามูลค่าพื้นฐาน",
		NewsSummary: "ข่าวดี",
	}
}

func TestFormatResult_Summary(t *testing.T) {
	out := FormatResult(sampleResult(), FormatSummary)

	for _, want := range []string{"🟢 <b>AAPL</b> Apple Inc", "1,234.5", "+1.01%", "<b>BUY</b>", "ราคาต่ำกว่ามูลค่าพื้นฐาน"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "RSI") {
		t.Errorf("summary should not include indicators:\n%s", out)
	}
}

func TestFormatResult_Full(t *testing.T) {
	out := FormatResult(sampleResult(), "full")

	for _, want := range []string{"P/E: 28.46", "ปันผล: 0.50%", "2,900,000", "RSI(14): 55.5", "SMA(50): N/A", "1,100 - 1,300 (ตำแหน่ง 67%)", "&lt;estimates&gt;"} {
		if !strings.Contains(out, want) {
			t.Errorf("full report missing %q:\n%s", want, out)
		}
	}
}

func TestFormatResult_Error(t *testing.T) {
	res := model.NewErrorResult("ptt.bk", "no data", time.Now())
	out := FormatResult(res, FormatFull)
	if !strings.Contains(out, "PTT.BK") || !strings.Contains(out, "no data") {
		t.Errorf("unexpected error report:\n%s", out)
	}
	if strings.Contains(out, "P/E") {
		t.Errorf("error report should not render metrics:\n%s", out)
	}
}

func TestFormatBatch(t *testing.T) {
	if got := FormatBatchHeader(3, 95*time.Second); !strings.Contains(got, "3 หุ้น") || !strings.Contains(got, "2 นาที") {
		t.Errorf("header = %q", got)
	}
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	footer := FormatBatchFooter(model.BatchRun{Items: 3, Errors: 1, StartedAt: start, FinishedAt: start.Add(62 * time.Second)})
	if !strings.Contains(footer, "3 รายการ") || !strings.Contains(footer, "1m2s") {
		t.Errorf("footer = %q", footer)
	}
}

func TestFormatWatchlist(t *testing.T) {
	if got := FormatWatchlist(nil); !strings.Contains(got, "/add") {
		t.Errorf("empty watchlist = %q", got)
	}
	got := FormatWatchlist([]model.WatchlistItem{{Symbol: "PTT.BK"}, {Symbol: "AAPL"}})
	if !strings.Contains(got, "1. PTT.BK") || !strings.Contains(got, "2. AAPL") {
		t.Errorf("watchlist = %q", got)
	}
}

func TestFormatSettings(t *testing.T) {
	growth := "Growth"
	got := FormatSettings(model.UserDefaults{Risk: "High"}, []model.WatchlistItem{
		{Symbol: "PTT.BK"},
		{Symbol: "AAPL", Strategy: &growth},
	})
	if !strings.Contains(got, "strategy: Value | goal: Medium | risk: High | format: Summary") {
		t.Errorf("defaults missing:\n%s", got)
	}
	if !strings.Contains(got, "<b>AAPL</b>\n  strategy: Growth | goal: Medium | risk: High") {
		t.Errorf("override missing:\n%s", got)
	}
	if strings.Contains(got, "PTT.BK") {
		t.Errorf("items without overrides should be omitted:\n%s", got)
	}
}

func TestSplitMessage(t *testing.T) {
	text := strings.Repeat("line of text\n", 10)
	chunks := splitMessage(text, 30)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if len(c) > 30 {
			t.Errorf("chunk too long: %d", len(c))
		}
	}
	if got := splitMessage("short", 30); len(got) != 1 || got[0] != "short" {
		t.Errorf("short message split: %v", got)
	}

	thai := strings.Repeat("ก", 20) // 3 bytes per rune
	for _, c := range splitMessage(thai, 10) {
		if !strings.HasPrefix(c, "ก") {
			t.Errorf("chunk split inside a rune: %q", c)
		}
	}
}
