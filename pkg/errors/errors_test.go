package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapPreservesSentinel(t *testing.T) {
	err := Wrapf(ErrNoPriceData, "quote %s", "AAPL")
	assert.True(t, Is(err, ErrNoPriceData))
	assert.Equal(t, "quote AAPL: no price data", err.Error())
	assert.Nil(t, Wrap(nil, "ignored"))
}

func TestMultiError(t *testing.T) {
	var m MultiError
	assert.Nil(t, m.ToError())

	m.Add(nil)
	m.Add(Wrap(ErrProviderUnavailable, "profile"))
	m.Add(ErrInsufficientData)

	err := m.ToError()
	assert.Error(t, err)
	assert.True(t, Is(err, ErrProviderUnavailable))
	assert.True(t, Is(err, ErrInsufficientData))
	assert.Contains(t, err.Error(), "multiple errors (2)")
}
