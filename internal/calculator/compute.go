package calculator

import (
	"math"

	"StockSentinel/internal/model"
	"StockSentinel/pkg/errors"
)

// Compute derives the indicator set from a price history. Indicators that
// lack data are left invalid rather than defaulted.
func Compute(history model.PriceHistory) model.IndicatorSet {
	var set model.IndicatorSet
	closes := history.Closes()

	if v, err := CalculateRSI(closes, RSIPeriod); err == nil {
		set.RSI14 = model.Some(v)
	}
	if v, err := CalculateSMA(closes, SMAPeriod); err == nil {
		set.SMA50 = model.Some(v)
	}
	if h, l, err := CalculateRange(history); err == nil {
		set.RangeHigh = model.Some(h)
		set.RangeLow = model.Some(l)
	}
	return set
}

// ComputeAt is Compute plus the position of price within the range.
func ComputeAt(history model.PriceHistory, price float64) model.IndicatorSet {
	set := Compute(history)
	if v, err := RangePosition(price, set); err == nil {
		set.RangePosition = model.Some(v)
	}
	return set
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// finiteResult rejects NaN and Inf so a corrupt close never becomes a valid indicator.
func finiteResult(name string, v float64) (float64, error) {
	if !isFinite(v) {
		return 0, errors.Wrapf(errors.ErrInvalidInput, "%s is not finite", name)
	}
	return v, nil
}
