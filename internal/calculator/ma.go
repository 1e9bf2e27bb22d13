package calculator

import (
	"github.com/markcheno/go-talib"

	"StockSentinel/pkg/errors"
)

// SMAPeriod is the moving-average window reported with every analysis.
const SMAPeriod = 50

// CalculateSMA computes the simple moving average of the last period prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.Wrap(errors.ErrInvalidInput, "period must be positive")
	}
	if len(prices) < period {
		return 0, errors.Wrapf(errors.ErrInsufficientData, "sma(%d) needs %d points, have %d", period, period, len(prices))
	}
	return finiteResult("sma", rollingMean(prices, period))
}

// rollingMean returns the mean of the trailing window. Only the window is handed
// to talib so the running sum never carries residue from earlier points.
func rollingMean(values []float64, period int) float64 {
	window := values[len(values)-period:]
	out := talib.Sma(window, period)
	return out[len(out)-1]
}
