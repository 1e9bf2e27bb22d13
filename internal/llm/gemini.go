package llm

import (
	"context"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"StockSentinel/internal/metrics"
	"StockSentinel/pkg/errors"
	"StockSentinel/pkg/logger"
)

// GeminiConfig configures the Gemini generator.
type GeminiConfig struct {
	APIKey            string
	Model             string
	Timeout           time.Duration
	RequestsPerMinute int
	Temperature       float32
}

// GeminiGenerator calls the Gemini API through the genai SDK.
type GeminiGenerator struct {
	client  *genai.Client
	cfg     GeminiConfig
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewGeminiGenerator creates a generator. Without an API key it is created
// unconfigured and every Generate call fails with ErrAIUnavailable.
func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig, log *logger.Logger) (*GeminiGenerator, error) {
	if log == nil {
		log = logger.Get()
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}
	g := &GeminiGenerator{cfg: cfg, log: log.With("component", "gemini", "model", cfg.Model)}
	if cfg.RequestsPerMinute > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}

	if cfg.APIKey == "" {
		g.log.Warn("GEMINI_API_KEY not set, analyses will fall back to WAIT")
		return g, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize genai client")
	}
	g.client = client
	return g, nil
}

// Model returns the configured model name.
func (g *GeminiGenerator) Model() string { return g.cfg.Model }

// Generate sends a single-turn prompt and returns the concatenated text parts.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (text string, err error) {
	if g.client == nil {
		return "", errors.Wrap(errors.ErrAIUnavailable, "gemini not configured")
	}
	start := time.Now()
	defer func() { metrics.RecordAICall(g.cfg.Model, time.Since(start), err) }()

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", errors.Wrap(err, "rate limiter gemini")
		}
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.cfg.Temperature),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, contents, config)
	if err != nil {
		return "", errors.Wrapf(errors.ErrAIUnavailable, "generate content: %v", err)
	}

	var b strings.Builder
	if resp != nil {
		for _, candidate := range resp.Candidates {
			if candidate == nil || candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part != nil && part.Text != "" {
					b.WriteString(part.Text)
				}
			}
			if b.Len() > 0 {
				break
			}
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", errors.ErrAIEmptyResponse
	}
	return out, nil
}
