package calculator

import (
	"math"

	"StockSentinel/internal/model"
	"StockSentinel/pkg/errors"
)

// CalculateRange returns the high and low over every bar in the history.
// Bar highs/lows are used when the provider supplied them, closes otherwise;
// non-finite values are skipped.
// The window is whatever the provider returned, so this only approximates a 52-week range.
func CalculateRange(history model.PriceHistory) (high, low float64, err error) {
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, b := range history.Bars {
		h, l := b.High, b.Low
		if h == 0 || !isFinite(h) {
			h = b.Close
		}
		if l == 0 || !isFinite(l) {
			l = b.Close
		}
		if isFinite(h) && h > high {
			high = h
		}
		if isFinite(l) && l < low {
			low = l
		}
	}
	if math.IsInf(high, -1) || math.IsInf(low, 1) {
		return 0, 0, errors.Wrapf(errors.ErrInsufficientData, "no usable bars in %d", history.Len())
	}
	return high, low, nil
}

// RangePosition returns where price sits within the computed range as a
// percentage clamped to [0, 100]. A flat range puts price at 50.
func RangePosition(price float64, set model.IndicatorSet) (float64, error) {
	if !set.RangeHigh.Valid || !set.RangeLow.Valid {
		return 0, errors.Wrap(errors.ErrInsufficientData, "range unavailable")
	}
	if price <= 0 || !isFinite(price) {
		return 0, errors.Wrapf(errors.ErrInvalidInput, "price %v", price)
	}
	high, low := set.RangeHigh.Value, set.RangeLow.Value
	switch {
	case high < low:
		return 0, errors.Wrapf(errors.ErrInvalidInput, "range high %v below low %v", high, low)
	case high == low:
		return 50, nil
	}
	return math.Max(0, math.Min(100, (price-low)/(high-low)*100)), nil
}
