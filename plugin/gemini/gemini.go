// Package gemini is the thin client over the hosted generative language
// API: text generation, embeddings, and image description. Every call is
// bounded by a timeout and retried with backoff; the rest of the program
// only sees the sentinel errors below.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"

	"github.com/tripweaver/tripweaver/internal/retry"
)

var (
	// ErrEmbedding marks embedding failures, including malformed vectors.
	ErrEmbedding = errors.New("gemini: embedding failed")
	// ErrGeneration marks generation failures after retries. This is the
	// only error kind fatal to an answer.
	ErrGeneration = errors.New("gemini: generation failed")
	// ErrTimeout marks calls that exceeded their configured bound. It is
	// always joined with the kind of the failing call.
	ErrTimeout = errors.New("gemini: request timed out")
)

const visionPrompt = "You are an expert in Vietnamese culture and travel. " +
	"Describe this image in detail. If it's a landmark, name it. If it's food, " +
	"identify the dish. Provide some interesting context or history about what you see."

// Config carries the client knobs. Zero timeouts fall back to the observed
// production bounds.
type Config struct {
	APIKey         string
	ChatModel      string
	EmbeddingModel string

	GenerateTimeout time.Duration
	EmbedTimeout    time.Duration
	VisionTimeout   time.Duration

	Retry retry.Config
}

func (c Config) normalized() Config {
	if c.ChatModel == "" {
		c.ChatModel = "gemini-2.5-flash"
	}
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = "text-embedding-004"
	}
	if c.GenerateTimeout <= 0 {
		c.GenerateTimeout = 30 * time.Second
	}
	if c.EmbedTimeout <= 0 {
		c.EmbedTimeout = 30 * time.Second
	}
	if c.VisionTimeout <= 0 {
		c.VisionTimeout = 45 * time.Second
	}
	if c.Retry.Attempts == 0 {
		c.Retry = retry.Default
	}
	if c.Retry.Retryable == nil {
		c.Retry.Retryable = func(err error) bool { return !errors.Is(err, context.Canceled) }
	}
	return c
}

// Client wraps the googleai provider.
type Client struct {
	llm *googleai.GoogleAI
	cfg Config
}

// New dials the API. Safety categories are disabled so valid travel answers
// are not blocked.
func New(ctx context.Context, cfg Config) (*Client, error) {
	cfg = cfg.normalized()
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(cfg.APIKey),
		googleai.WithDefaultModel(cfg.ChatModel),
		googleai.WithDefaultEmbeddingModel(cfg.EmbeddingModel),
		googleai.WithHarmThreshold(googleai.HarmBlockNone),
	)
	if err != nil {
		return nil, fmt.Errorf("gemini: init client: %w", err)
	}
	return &Client{llm: llm, cfg: cfg}, nil
}

// Generate maps a prompt to generated text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var out string
	err := retry.Do(ctx, c.cfg.Retry, "generate", func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.GenerateTimeout)
		defer cancel()
		text, err := llms.GenerateFromSinglePrompt(callCtx, c.llm, prompt)
		if err != nil {
			return err
		}
		out = text
		return nil
	})
	if err != nil {
		return "", wrap(ErrGeneration, err)
	}
	return out, nil
}

// Embed maps text to a fixed-length vector.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds several texts in one call. The loader uses this with
// batches of 100.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := retry.Do(ctx, c.cfg.Retry, "embed", func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.EmbedTimeout)
		defer cancel()
		vecs, err := c.llm.CreateEmbedding(callCtx, texts)
		if err != nil {
			return err
		}
		if len(vecs) != len(texts) {
			return fmt.Errorf("got %d vectors for %d texts", len(vecs), len(texts))
		}
		for i, v := range vecs {
			if len(v) == 0 {
				return fmt.Errorf("empty vector for text %d", i)
			}
		}
		out = vecs
		return nil
	})
	if err != nil {
		return nil, wrap(ErrEmbedding, err)
	}
	return out, nil
}

// DescribeImage returns a travel-savvy description of the given image.
func (c *Client) DescribeImage(ctx context.Context, image []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	msg := llms.MessageContent{
		Role: llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{
			llms.BinaryPart(mimeType, image),
			llms.TextPart(visionPrompt),
		},
	}

	var out string
	err := retry.Do(ctx, c.cfg.Retry, "describe-image", func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.VisionTimeout)
		defer cancel()
		resp, err := c.llm.GenerateContent(callCtx, []llms.MessageContent{msg})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("empty response")
		}
		out = resp.Choices[0].Content
		return nil
	})
	if err != nil {
		return "", wrap(ErrGeneration, err)
	}
	return out, nil
}

func wrap(kind, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w: %w", kind, ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", kind, err)
}
