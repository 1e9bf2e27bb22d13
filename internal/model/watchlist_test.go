package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestClassifyMarket(t *testing.T) {
	tests := []struct {
		symbol string
		want   Market
	}{
		{"PTT.BK", MarketDomestic},
		{"ptt.bk", MarketDomestic},
		{" kbank.Bk ", MarketDomestic},
		{"AAPL", MarketGlobal},
		{"BK", MarketGlobal},
		{"BRK.B", MarketGlobal},
	}
	for _, tt := range tests {
		if got := ClassifyMarket(tt.symbol); got != tt.want {
			t.Errorf("ClassifyMarket(%q) = %s, want %s", tt.symbol, got, tt.want)
		}
	}
	assert.Equal(t, "PTT", BaseSymbol("ptt.bk"))
}

func TestWatchlistItemResolve(t *testing.T) {
	t.Run("item overrides user", func(t *testing.T) {
		item := WatchlistItem{Symbol: "AAPL", Strategy: strPtr("Growth"), ReportFormat: strPtr("Full")}
		user := UserDefaults{Strategy: "Dividend", Goal: "Long"}
		got := item.Resolve(user)
		assert.Equal(t, Settings{Strategy: "Growth", Goal: "Long", Risk: "Medium", ReportFormat: "Full"}, got)
	})

	t.Run("system defaults", func(t *testing.T) {
		got := WatchlistItem{Symbol: "PTT.BK"}.Resolve(UserDefaults{})
		assert.Equal(t, DefaultSettings, got)
	})

	t.Run("empty override falls through", func(t *testing.T) {
		got := WatchlistItem{Goal: strPtr("")}.Resolve(UserDefaults{Goal: "Short"})
		assert.Equal(t, "Short", got.Goal)
	})
}

func TestFundamentalsRecordIsValid(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		rec  FundamentalsRecord
		want bool
	}{
		{"fresh with pe", FundamentalsRecord{PERatio: 12.5, UpdatedAt: now.Add(-24 * time.Hour)}, true},
		{"zero pe", FundamentalsRecord{PERatio: 0, UpdatedAt: now.Add(-time.Hour)}, false},
		{"40 days old", FundamentalsRecord{PERatio: 12.5, UpdatedAt: now.Add(-40 * 24 * time.Hour)}, false},
		{"exactly 30 days", FundamentalsRecord{PERatio: 12.5, UpdatedAt: now.Add(-FundamentalsValidity)}, false},
		{"never updated", FundamentalsRecord{PERatio: 12.5}, false},
	}
	for _, tt := range tests {
		if got := tt.rec.IsValid(now); got != tt.want {
			t.Errorf("%s: IsValid = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFormatMarketCap(t *testing.T) {
	assert.Equal(t, "", FormatMarketCap(0))
	assert.Equal(t, "2850000.12", FormatMarketCap(2850000.1234))
}

func TestNormalizeSettingValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"growth", "Growth"},
		{"DCA", "DCA"},
		{"ai", "AI-Auto"},
		{"full", "Full"},
		{"momentum", "Momentum"},
		{"MOMENTUM", "Momentum"},
		{"default", ""},
		{" reset ", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeSettingValue(tt.in); got != tt.want {
			t.Errorf("NormalizeSettingValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseSettingField(t *testing.T) {
	f, ok := ParseSettingField("Format")
	assert.True(t, ok)
	assert.Equal(t, FieldReportFormat, f)

	_, ok = ParseSettingField("horizon")
	assert.False(t, ok)

	assert.True(t, ValidSettingValue(FieldReportFormat, "Full"))
	assert.False(t, ValidSettingValue(FieldReportFormat, "Verbose"))
	assert.True(t, ValidSettingValue(FieldStrategy, "Momentum"))
}

func TestUserDefaultsSet(t *testing.T) {
	var u UserDefaults
	u.Set(FieldStrategy, "Growth")
	u.Set(FieldReportFormat, "Full")
	assert.Equal(t, UserDefaults{Strategy: "Growth", ReportFormat: "Full"}, u)
	assert.False(t, WatchlistItem{Symbol: "AAPL"}.HasOverrides())
	assert.True(t, WatchlistItem{Symbol: "AAPL", Risk: strPtr("High")}.HasOverrides())
}
