package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"StockSentinel/internal/model"
)

func TestParseSignal(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		signal  model.Signal
		reason  string
		summary string
	}{
		{
			name:    "well formed thai",
			in:      "BUY | ราคาต่ำกว่ามูลค่าพื้นฐาน | ข่าวดีจากผลประกอบการ",
			signal:  model.SignalBuy,
			reason:  "ราคาต่ำกว่ามูลค่าพื้นฐาน",
			summary: "ข่าวดีจากผลประกอบการ",
		},
		{
			name:    "no pipes falls back to keyword scan",
			in:      "hold for now",
			signal:  model.SignalHold,
			reason:  PendingReason,
			summary: NoNewsSummary,
		},
		{
			name:    "lower case with preamble",
			in:      "Answer: sell|overvalued|weak guidance",
			signal:  model.SignalSell,
			reason:  "overvalued",
			summary: "weak guidance",
		},
		{
			name:    "summary keeps extra pipes",
			in:      "WAIT | mixed | a | b",
			signal:  model.SignalWait,
			reason:  "mixed",
			summary: "a | b",
		},
		{
			name:    "unknown keyword defaults to wait",
			in:      "ACCUMULATE | cheap",
			signal:  model.SignalWait,
			reason:  "cheap",
			summary: NoNewsSummary,
		},
		{
			name:    "empty",
			in:      "",
			signal:  model.SignalWait,
			reason:  PendingReason,
			summary: NoNewsSummary,
		},
		{
			name:    "empty reason segment",
			in:      "BUY |  | news",
			signal:  model.SignalBuy,
			reason:  PendingReason,
			summary: "news",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ParseSignal(tt.in)
			assert.Equal(t, tt.signal, v.Signal)
			assert.Equal(t, tt.reason, v.Reason)
			assert.Equal(t, tt.summary, v.NewsSummary)
		})
	}
}
