package analysis

import (
	"regexp"
	"strings"

	"StockSentinel/internal/model"
)

// Placeholders used when the generator output is missing a segment.
const (
	PendingReason   = "รอการวิเคราะห์เพิ่มเติม"
	NoNewsSummary   = "ไม่มีข่าวสำคัญในช่วงนี้"
	AIFailureReason = "AI ประมวลผลขัดข้อง"
)

// signalPattern matches "SIGNAL | REASON | NEWS_SUMMARY". The last group keeps
// everything after the second pipe, including further pipes and newlines.
var signalPattern = regexp.MustCompile(`(?is)(BUY|SELL|HOLD|WAIT)\s*\|\s*(.*?)\s*\|\s*(.*)`)

// ParseSignal extracts a verdict from free text. It never fails: unknown
// shapes fall back to a keyword scan and WAIT.
func ParseSignal(text string) model.Verdict {
	if m := signalPattern.FindStringSubmatch(text); m != nil {
		return model.Verdict{
			Signal:      model.Signal(strings.ToUpper(m[1])),
			Reason:      orDefault(m[2], PendingReason),
			NewsSummary: orDefault(m[3], NoNewsSummary),
		}
	}

	parts := strings.Split(text, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	v := model.Verdict{
		Signal:      scanSignal(parts[0]),
		Reason:      PendingReason,
		NewsSummary: NoNewsSummary,
	}
	if len(parts) > 1 {
		v.Reason = orDefault(parts[1], PendingReason)
	}
	if len(parts) > 2 {
		v.NewsSummary = orDefault(parts[2], NoNewsSummary)
	}
	return v
}

func scanSignal(segment string) model.Signal {
	upper := strings.ToUpper(segment)
	for _, s := range model.Signals {
		if strings.Contains(upper, string(s)) {
			return s
		}
	}
	return model.SignalWait
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}

func aiFailure() model.Verdict {
	return model.Verdict{Signal: model.SignalWait, Reason: AIFailureReason, NewsSummary: "-"}
}
