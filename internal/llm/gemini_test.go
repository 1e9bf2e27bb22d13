package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockSentinel/pkg/errors"
	"StockSentinel/pkg/logger"
)

func TestGeminiWithoutKeyIsUnavailable(t *testing.T) {
	g, err := NewGeminiGenerator(context.Background(), GeminiConfig{}, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", g.Model())

	_, err = g.Generate(context.Background(), "hello")
	assert.True(t, errors.Is(err, errors.ErrAIUnavailable))
}

func TestGeneratorFunc(t *testing.T) {
	var g Generator = GeneratorFunc(func(_ context.Context, p string) (string, error) {
		return "BUY | " + p + " | -", nil
	})
	out, err := g.Generate(context.Background(), "cheap")
	require.NoError(t, err)
	assert.Equal(t, "BUY | cheap | -", out)
}
