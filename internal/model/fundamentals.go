package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// FundamentalsValidity is how long a fetched record is trusted.
const FundamentalsValidity = 30 * 24 * time.Hour // 30 days

// FundamentalsRecord is the cached slow-changing data for one symbol.
type FundamentalsRecord struct {
	Symbol        string    `json:"symbol"`
	CompanyName   string    `json:"company_name"`
	MarketCap     string    `json:"market_cap"`
	PERatio       float64   `json:"pe_ratio"`
	DividendYield float64   `json:"dividend_yield"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsValid reports whether the record is young enough and carries a P/E.
// A record with P/E == 0 is treated as a failed earlier fetch.
func (r FundamentalsRecord) IsValid(now time.Time) bool {
	if r.UpdatedAt.IsZero() {
		return false
	}
	return now.Sub(r.UpdatedAt) < FundamentalsValidity && r.PERatio != 0
}

// IsEmpty reports whether no field carries data.
func (r FundamentalsRecord) IsEmpty() bool {
	return r.CompanyName == "" && r.MarketCap == "" && r.PERatio == 0 && r.DividendYield == 0
}

// FormatMarketCap renders a market capitalisation as a plain decimal string,
// rounded to two places. Zero or negative values yield "".
func FormatMarketCap(v float64) string {
	if v <= 0 {
		return ""
	}
	return decimal.NewFromFloat(v).Round(2).String()
}
