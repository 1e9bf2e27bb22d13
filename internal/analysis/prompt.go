package analysis

import (
	"fmt"
	"strings"

	"StockSentinel/internal/model"
)

// MaxPromptHeadlines caps the news lines embedded in a prompt.
const MaxPromptHeadlines = 5

// BuildPrompt renders the single-turn instruction sent to the generator.
func BuildPrompt(data *model.RawMarketData, ind model.IndicatorSet, s model.Settings) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze stock %s for a user with Strategy='%s', Goal='%s' and Risk='%s'.\n",
		data.Symbol, s.Strategy, s.Goal, s.Risk)
	fmt.Fprintf(&b, "Current Data: Price=%.2f, P/E=%s, DivYield=%s%%\n",
		data.Quote.Price, optional(data.Fundamentals.PERatio), optional(data.Fundamentals.DividendYield))

	b.WriteString("Technical Indicators:\n")
	fmt.Fprintf(&b, "- RSI (14): %s\n", indicator(ind.RSI14))
	fmt.Fprintf(&b, "- SMA (50): %s\n", indicator(ind.SMA50))
	fmt.Fprintf(&b, "- Market Cap: %s\n", orNA(ind.MarketCap))
	fmt.Fprintf(&b, "- 52W Range: %s - %s\n", indicator(ind.RangeLow), indicator(ind.RangeHigh))
	fmt.Fprintf(&b, "- 52W Position: %s\n", position(ind.RangePosition))

	b.WriteString("Recent News:\n")
	news := data.News
	if len(news) > MaxPromptHeadlines {
		news = news[:MaxPromptHeadlines]
	}
	if len(news) == 0 {
		b.WriteString("- (no recent headlines)\n")
	}
	for _, h := range news {
		fmt.Fprintf(&b, "- %s\n", h)
	}

	b.WriteString("\nRules:\n")
	b.WriteString("1. Reply with exactly one line in the format: SIGNAL | REASON | NEWS_SUMMARY\n")
	b.WriteString("2. SIGNAL must be one of BUY, SELL, HOLD, WAIT.\n")
	b.WriteString("3. REASON must be a single short sentence in Thai.\n")
	b.WriteString("4. NEWS_SUMMARY must summarize the news above in one short Thai sentence.\n")
	return b.String()
}

func indicator(i model.Indicator) string {
	if !i.Valid {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", i.Value)
}

func position(i model.Indicator) string {
	if !i.Valid {
		return "N/A"
	}
	return fmt.Sprintf("%.0f%%", i.Value)
}

func optional(v float64) string {
	if v == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", v)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
