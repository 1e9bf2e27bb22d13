package analysis

import (
	"context"
	"time"

	"StockSentinel/internal/calculator"
	"StockSentinel/internal/llm"
	"StockSentinel/internal/metrics"
	"StockSentinel/internal/model"
	"StockSentinel/pkg/logger"
)

// NoDataReason is reported when no price could be fetched.
const NoDataReason = "ไม่สามารถดึงข้อมูลได้ (ตลาดปิดหรืออยู่นอกเวลาทำการ)"

// MarketData fetches everything needed to analyze one symbol.
type MarketData interface {
	Fetch(ctx context.Context, symbol string) (*model.RawMarketData, error)
}

// Engine runs the fetch, indicator, prompt, generate and parse chain for one symbol.
type Engine struct {
	data MarketData
	gen  llm.Generator
	log  *logger.Logger
	now  func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(data MarketData, gen llm.Generator, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Get()
	}
	return &Engine{data: data, gen: gen, log: log.With("component", "analysis"), now: time.Now}
}

// Analyze never returns nil and never fails. Missing price data yields an
// ERROR result; generator failures yield WAIT.
func (e *Engine) Analyze(ctx context.Context, symbol string, s model.Settings) *model.AnalysisResult {
	sym := model.NormalizeSymbol(symbol)

	data, err := e.data.Fetch(ctx, sym)
	if err != nil || data == nil || !data.Quote.HasPrice() {
		e.log.Warnw("no market data", "symbol", sym, "error", err)
		res := model.NewErrorResult(sym, NoDataReason, e.now())
		metrics.Analyses.WithLabelValues(string(res.Market), string(res.Signal)).Inc()
		return res
	}

	ind := calculator.ComputeAt(data.History, data.Quote.Price)
	ind.MarketCap = data.Fundamentals.MarketCap

	prompt := BuildPrompt(data, ind, s)
	verdict := e.generate(ctx, sym, prompt)

	name := data.Fundamentals.CompanyName
	if name == "" {
		name = data.Quote.Name
	}

	res := &model.AnalysisResult{
		Symbol:      data.Symbol,
		Market:      data.Market,
		CompanyName: name,
		Quote:       data.Quote,
		Metrics: model.Metrics{
			PERatio:       data.Fundamentals.PERatio,
			DividendYield: data.Fundamentals.DividendYield,
			MarketCap:     data.Fundamentals.MarketCap,
		},
		Indicators:  ind,
		History:     data.History.Closes(),
		News:        data.News,
		Signal:      verdict.Signal,
		Reason:      verdict.Reason,
		NewsSummary: verdict.NewsSummary,
		Degraded:    data.Degraded,
		AnalyzedAt:  e.now(),
	}
	metrics.Analyses.WithLabelValues(string(res.Market), string(res.Signal)).Inc()
	e.log.Infow("analysis complete", "symbol", sym, "signal", res.Signal, "degraded", len(res.Degraded))
	return res
}

func (e *Engine) generate(ctx context.Context, sym, prompt string) (v model.Verdict) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Errorw("generator panicked", "symbol", sym, "panic", r)
			v = aiFailure()
		}
	}()

	if e.gen == nil {
		return aiFailure()
	}
	text, err := e.gen.Generate(ctx, prompt)
	if err != nil {
		e.log.Warnw("generator failed", "symbol", sym, "model", e.gen.Model(), "error", err)
		return aiFailure()
	}
	return ParseSignal(text)
}
