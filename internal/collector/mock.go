package collector

import (
	"context"
	"sync"
	"time"

	"StockSentinel/internal/model"
	"StockSentinel/pkg/errors"
)

// MockProvider returns controllable fixed data for development and testing.
// It satisfies every provider interface. Set the *Err fields to inject failures.
type MockProvider struct {
	Price        float64
	Bars         int
	Headlines    []string
	Macro        []string
	Fundamentals model.FundamentalsRecord

	QuoteErr   error
	HistoryErr error
	ProfileErr error
	NewsErr    error

	// HistoryFailures fails that many history calls before succeeding.
	HistoryFailures int

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockProvider) record(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[name]++
	return m.calls[name]
}

// Calls reports how many times a method was invoked.
func (m *MockProvider) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *MockProvider) GetQuote(_ context.Context, symbol string) (*model.Quote, error) {
	m.record("GetQuote")
	if m.QuoteErr != nil {
		return nil, m.QuoteErr
	}
	if m.Price <= 0 {
		return nil, errors.Wrapf(errors.ErrNoPriceData, "mock %s", symbol)
	}
	return &model.Quote{Symbol: symbol, Name: symbol, Price: m.Price, PreviousClose: m.Price * 0.99, Change: m.Price * 0.01}, nil
}

func (m *MockProvider) GetHistory(_ context.Context, symbol, _ string, size int) (model.PriceHistory, error) {
	n := m.record("GetHistory")
	if n <= m.HistoryFailures {
		return model.PriceHistory{}, errors.Wrap(errors.ErrProviderUnavailable, "mock history")
	}
	if m.HistoryErr != nil {
		return model.PriceHistory{}, m.HistoryErr
	}
	count := m.Bars
	if count == 0 {
		count = size
	}
	return model.PriceHistory{Symbol: symbol, Bars: generateMockBars(m.Price, count)}, nil
}

func (m *MockProvider) GetProfile(_ context.Context, symbol string) (model.FundamentalsRecord, error) {
	m.record("GetProfile")
	if m.ProfileErr != nil {
		return model.FundamentalsRecord{}, m.ProfileErr
	}
	rec := m.Fundamentals
	rec.Symbol = symbol
	return rec, nil
}

func (m *MockProvider) GetCompanyNews(_ context.Context, _ string, _, _ time.Time) ([]string, error) {
	m.record("GetCompanyNews")
	if m.NewsErr != nil {
		return nil, m.NewsErr
	}
	return m.Headlines, nil
}

func (m *MockProvider) GetMarketNews(_ context.Context) ([]string, error) {
	m.record("GetMarketNews")
	if m.NewsErr != nil {
		return nil, m.NewsErr
	}
	return m.Macro, nil
}

func (m *MockProvider) GetSnapshot(ctx context.Context, symbol string) (*DomesticSnapshot, error) {
	q, err := m.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	f := m.Fundamentals
	f.Symbol = symbol
	return &DomesticSnapshot{Quote: *q, Fundamentals: f}, nil
}

// GetOrFetch lets the mock stand in for the fundamentals cache.
func (m *MockProvider) GetOrFetch(ctx context.Context, symbol string) model.FundamentalsRecord {
	rec, err := m.GetProfile(ctx, symbol)
	if err != nil {
		return model.FundamentalsRecord{Symbol: symbol}
	}
	return rec
}

func generateMockBars(basePrice float64, count int) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   time.Now().AddDate(0, 0, -(count - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
