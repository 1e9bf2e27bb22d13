package calculator

import "StockSentinel/pkg/errors"

// RSIPeriod is the RSI lookback.
const RSIPeriod = 14

// CalculateRSI computes RSI from simple rolling means of gains and losses.
//
// The first position has no predecessor and counts as a zero change, so
// exactly period closes already fill a full window. When the mean loss is
// zero the result is 100 if there were gains and 50 for a flat series.
// A NaN or Inf price inside the window is an error.
func CalculateRSI(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.Wrap(errors.ErrInvalidInput, "period must be positive")
	}
	if len(prices) < period {
		return 0, errors.Wrapf(errors.ErrInsufficientData, "rsi(%d) needs %d points, have %d", period, period, len(prices))
	}

	gains := make([]float64, len(prices))
	losses := make([]float64, len(prices))
	for i := 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	avgGain := rollingMean(gains, period)
	avgLoss := rollingMean(losses, period)

	if !isFinite(avgGain) || !isFinite(avgLoss) {
		return 0, errors.Wrap(errors.ErrInvalidInput, "rsi window contains non-finite prices")
	}
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50.0, nil
		}
		return 100.0, nil
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs), nil
}
