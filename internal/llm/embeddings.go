package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"helpdesk-kb/internal/contextutil"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	// DefaultMaxInputChars is the longest input, in characters, sent to the embedding model.
	DefaultMaxInputChars = 8000
	// DefaultBatchSize is the number of texts sent per remote call.
	DefaultBatchSize = 100
)

// EmbeddingsConfig configures an EmbeddingsClient.
type EmbeddingsConfig struct {
	BaseURL       string
	APIKey        string
	Model         string
	Dimension     int // expected vector size; 0 disables the check
	BatchSize     int
	MaxInputChars int
	MaxRetries    int
	RetryDelay    time.Duration
	RateLimit     float64 // requests per second; 0 means unlimited
	Timeout       time.Duration
	HTTPClient    *http.Client
}

// EmbeddingsClient generates embeddings through an OpenAI-compatible endpoint.
type EmbeddingsClient struct {
	cfg     EmbeddingsConfig
	client  *openai.Client
	limiter *rate.Limiter
}

// NewEmbeddingsClient creates a new embeddings client. Zero-valued sizes fall back to defaults.
func NewEmbeddingsClient(cfg EmbeddingsConfig) *EmbeddingsClient {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = DefaultMaxInputChars
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	oaCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oaCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		oaCfg.HTTPClient = cfg.HTTPClient
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return &EmbeddingsClient{
		cfg:     cfg,
		client:  openai.NewClientWithConfig(oaCfg),
		limiter: limiter,
	}
}

// Dimension returns the expected vector size.
func (c *EmbeddingsClient) Dimension() int {
	return c.cfg.Dimension
}

// GenerateEmbedding embeds a single text after truncating it to MaxInputChars.
func (c *EmbeddingsClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if c.cfg.APIKey == "" {
		return nil, &EmbeddingError{Op: "generate", Reason: "missing API key"}
	}

	vecs, err := c.embedWithRetry(ctx, "generate", []string{truncateRunes(text, c.cfg.MaxInputChars)})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// GenerateEmbeddingsBatch embeds texts in input order, one remote call per BatchSize texts.
// The first failing batch aborts the whole operation with that batch's error.
func (c *EmbeddingsClient) GenerateEmbeddingsBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if c.cfg.APIKey == "" {
		return nil, &EmbeddingError{Op: "batch", Reason: "missing API key"}
	}

	logger := contextutil.LoggerFromContext(ctx)
	result := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += c.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, &EmbeddingError{Op: "batch", Reason: "cancelled", Err: err}
		}

		end := min(start+c.cfg.BatchSize, len(texts))
		batch := make([]string, end-start)
		for i, t := range texts[start:end] {
			batch[i] = truncateRunes(t, c.cfg.MaxInputChars)
		}

		vecs, err := c.embedWithRetry(ctx, "batch", batch)
		if err != nil {
			logger.ErrorContext(ctx, "embedding batch failed", "batch_start", start, "batch_size", len(batch), "error", err)
			return nil, err
		}
		result = append(result, vecs...)
	}

	return result, nil
}

func (c *EmbeddingsClient) embedWithRetry(ctx context.Context, op string, batch []string) ([][]float32, error) {
	logger := contextutil.LoggerFromContext(ctx)
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := CalculateBackoff(c.cfg.RetryDelay, attempt)
			logger.WarnContext(ctx, "retrying embedding request", "attempt", attempt+1, "delay", delay, "error", lastErr)
			if err := sleepContext(ctx, delay); err != nil {
				return nil, &EmbeddingError{Op: op, Reason: "cancelled", Err: err}
			}
		}

		vecs, err := c.embed(ctx, batch)
		if err == nil {
			return vecs, nil
		}
		if ee, ok := err.(*EmbeddingError); ok {
			// Malformed responses are not transient.
			return nil, ee
		}
		lastErr = err
		if !isRetryable(err) {
			break
		}
	}

	return nil, &EmbeddingError{Op: op, Reason: "remote call failed", Err: lastErr}
}

// embed performs one remote call and validates the response shape.
func (c *EmbeddingsClient) embed(ctx context.Context, batch []string) ([][]float32, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	callCtx := ctx
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	resp, err := c.client.CreateEmbeddings(callCtx, openai.EmbeddingRequestStrings{
		Input: batch,
		Model: openai.EmbeddingModel(c.cfg.Model),
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(batch) {
		return nil, &EmbeddingError{
			Op:     "batch",
			Reason: fmt.Sprintf("expected %d embeddings, got %d", len(batch), len(resp.Data)),
		}
	}

	// Items may arrive out of order; place each by its index.
	out := make([][]float32, len(batch))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(batch) || out[item.Index] != nil {
			return nil, &EmbeddingError{Op: "batch", Reason: fmt.Sprintf("invalid embedding index %d", item.Index)}
		}
		if c.cfg.Dimension > 0 && len(item.Embedding) != c.cfg.Dimension {
			return nil, &EmbeddingError{
				Op:     "batch",
				Reason: fmt.Sprintf("embedding %d has size %d, expected %d", item.Index, len(item.Embedding), c.cfg.Dimension),
			}
		}
		out[item.Index] = item.Embedding
	}

	return out, nil
}

func truncateRunes(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
