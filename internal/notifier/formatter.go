package notifier

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"StockSentinel/internal/model"
)

// Report formats.
const (
	FormatSummary = "Summary"
	FormatFull    = "Full"
)

const na = "N/A"

var signalIcons = map[model.Signal]string{
	model.SignalBuy:   "🟢",
	model.SignalSell:  "🔴",
	model.SignalHold:  "🟡",
	model.SignalWait:  "⚪",
	model.SignalError: "⚠️",
}

// FormatResult renders one analysis. Full adds fundamentals, indicators and headlines.
func FormatResult(res *model.AnalysisResult, format string) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%s <b>%s</b>", signalIcons[res.Signal], esc(res.Symbol)))
	if res.CompanyName != "" {
		b.WriteString(" " + esc(res.CompanyName))
	}
	b.WriteString("\n")

	if res.Signal == model.SignalError {
		b.WriteString(esc(res.Reason) + "\n")
		return b.String()
	}

	q := res.Quote
	b.WriteString(fmt.Sprintf("ราคา: %s (%+.2f, %+.2f%%)\n", price(q.Price), q.Change, q.PercentChange))
	b.WriteString(fmt.Sprintf("สัญญาณ: <b>%s</b>\n", res.Signal))
	b.WriteString(fmt.Sprintf("เหตุผล: %s\n", esc(res.Reason)))

	if !strings.EqualFold(format, FormatFull) {
		return b.String()
	}

	b.WriteString("\n📊 <b>ปัจจัยพื้นฐาน</b>\n")
	b.WriteString(fmt.Sprintf("  P/E: %s | ปันผล: %s\n", ratio(res.Metrics.PERatio), percent(res.Metrics.DividendYield)))
	b.WriteString(fmt.Sprintf("  มูลค่าตลาด: %s\n", marketCap(res.Metrics.MarketCap)))

	b.WriteString("📈 <b>เทคนิค</b>\n")
	b.WriteString(fmt.Sprintf("  RSI(14): %s | SMA(50): %s\n", indicator(res.Indicators.RSI14), indicator(res.Indicators.SMA50)))
	b.WriteString(fmt.Sprintf("  ช่วงราคา: %s - %s", indicator(res.Indicators.RangeLow), indicator(res.Indicators.RangeHigh)))
	if p := res.Indicators.RangePosition; p.Valid {
		b.WriteString(fmt.Sprintf(" (ตำแหน่ง %.0f%%)", p.Value))
	}
	b.WriteString("\n")

	b.WriteString("📰 <b>ข่าว</b>\n")
	b.WriteString(fmt.Sprintf("  %s\n", esc(res.NewsSummary)))
	for _, h := range res.News {
		b.WriteString(fmt.Sprintf("  • %s\n", esc(h)))
	}
	if len(res.Degraded) > 0 {
		b.WriteString(fmt.Sprintf("\n<i>ข้อมูลไม่ครบ: %s</i>\n", strings.Join(res.Degraded, ", ")))
	}
	return b.String()
}

// FormatBatchHeader announces a batch run and its expected duration.
func FormatBatchHeader(count int, estimate time.Duration) string {
	return fmt.Sprintf("⏳ <b>กำลังวิเคราะห์ %d หุ้น</b>\nใช้เวลาประมาณ %s\n", count, approxDuration(estimate))
}

// FormatBatchFooter closes a batch report.
func FormatBatchFooter(run model.BatchRun) string {
	elapsed := run.FinishedAt.Sub(run.StartedAt).Round(time.Second)
	return fmt.Sprintf("✅ วิเคราะห์เสร็จ %d รายการ (ผิดพลาด %d) ใช้เวลา %s", run.Items, run.Errors, elapsed)
}

// FormatWatchlist lists a user's symbols.
func FormatWatchlist(items []model.WatchlistItem) string {
	if len(items) == 0 {
		return "รายการหุ้นว่างเปล่า ใช้ /add SYMBOL เพื่อเพิ่ม"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📋 <b>รายการหุ้น</b> (%d)\n", len(items)))
	for i, it := range items {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, esc(it.Symbol)))
	}
	return b.String()
}

// FormatSettings lists the user's effective defaults and every item that overrides them.
func FormatSettings(user model.UserDefaults, items []model.WatchlistItem) string {
	var b strings.Builder
	d := model.WatchlistItem{}.Resolve(user)
	b.WriteString("⚙️ <b>ค่าเริ่มต้น</b>\n")
	b.WriteString(settingsLine(d))
	for _, it := range items {
		if !it.HasOverrides() {
			continue
		}
		b.WriteString(fmt.Sprintf("<b>%s</b>\n", esc(it.Symbol)))
		b.WriteString(settingsLine(it.Resolve(user)))
	}
	return b.String()
}

func settingsLine(s model.Settings) string {
	return fmt.Sprintf("  strategy: %s | goal: %s | risk: %s | format: %s\n",
		esc(s.Strategy), esc(s.Goal), esc(s.Risk), esc(s.ReportFormat))
}

func approxDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d วินาที", int(d.Seconds()))
	}
	return fmt.Sprintf("%d นาที", int((d+30*time.Second)/time.Minute))
}

func price(v float64) string {
	if v <= 0 {
		return na
	}
	return humanize.CommafWithDigits(v, 2)
}

func ratio(v float64) string {
	if v == 0 {
		return na
	}
	return fmt.Sprintf("%.2f", v)
}

func percent(v float64) string {
	if v == 0 {
		return na
	}
	return fmt.Sprintf("%.2f%%", v)
}

func indicator(i model.Indicator) string {
	if !i.Valid {
		return na
	}
	return humanize.CommafWithDigits(i.Value, 2)
}

// marketCap renders a numeric market cap with grouping; other strings pass through.
func marketCap(s string) string {
	if s == "" {
		return na
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return humanize.CommafWithDigits(v, 2)
	}
	return esc(s)
}

func esc(s string) string { return html.EscapeString(s) }
