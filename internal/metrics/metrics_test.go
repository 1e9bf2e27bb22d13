package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordProviderCall(t *testing.T) {
	Init()
	Init()

	before := testutil.ToFloat64(ProviderCalls.WithLabelValues("twelvedata", "/quote", "error"))
	RecordProviderCall("twelvedata", "/quote", 10*time.Millisecond, errors.New("boom"))
	after := testutil.ToFloat64(ProviderCalls.WithLabelValues("twelvedata", "/quote", "error"))

	assert.Equal(t, before+1, after)
}
