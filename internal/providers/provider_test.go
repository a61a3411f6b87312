package providers

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gavelhq/gavel/internal/config"
)

func TestNew_Openrouter(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "test-key")

	cfg := config.Default()
	p, err := New(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "openrouter", p.Name())
}

func TestNew_Anthropic(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	cfg := config.Default()
	cfg.Provider = "anthropic"
	p, err := New(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())
}

func TestNew_MissingKey(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")

	_, err := New(config.Default(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENROUTER_API_KEY")
}

func TestNew_UnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Provider = "carrier-pigeon"
	_, err := New(cfg, nil)
	assert.Error(t, err)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(&openai.APIError{HTTPStatusCode: 429}))
	assert.True(t, isRetryable(&openai.APIError{HTTPStatusCode: 503}))
	assert.False(t, isRetryable(&openai.APIError{HTTPStatusCode: 401}))
	assert.False(t, isRetryable(errors.New("plain error")))
	assert.True(t, isRetryable(errors.Join(errors.New("wrapped"), &openai.APIError{HTTPStatusCode: 500})))
}

func TestRetryWithBackoff_NonRetryableFailsFast(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), 3, func() error {
		calls++
		return errors.New("bad request")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "non-retryable errors must not be retried")
}

func TestRetryWithBackoff_Success(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), 3, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
