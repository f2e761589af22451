// Package cache implements the semantic query cache: a lookup that treats
// lexically different but semantically equivalent queries ("Best time to
// visit Hanoi?" / "When should I go to Hanoi?") as the same key, bounded by
// a similarity threshold and a TTL.
package cache

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Entry is one stored query/response pair. Entries are append-only and
// never mutated; expiry is purely read-side.
type Entry struct {
	Query     string
	Embedding []float32
	Response  string
	CachedAt  time.Time
}

// Hit describes the cache entry selected for a query.
type Hit struct {
	Query      string
	Response   string
	Similarity float64
	CachedAt   time.Time
}

// Embedder maps text to a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index is the nearest-neighbor storage behind the cache. The vector store
// implements it; tests use an in-memory fake.
type Index interface {
	// Nearest returns up to k entries closest to the embedding, in any
	// order. The cache does its own similarity and freshness filtering.
	Nearest(ctx context.Context, embedding []float32, k int) ([]Entry, error)
	Insert(ctx context.Context, e Entry) error
}

// Config carries the cache knobs with their fixed production defaults.
type Config struct {
	// Threshold is the cosine similarity a candidate must strictly exceed.
	Threshold float64
	// TTL bounds entry age; an entry with age > TTL is never returned.
	TTL time.Duration
	// TopK is the candidate fan-out per lookup.
	TopK int
}

func (c Config) normalized() Config {
	if c.Threshold <= 0 {
		c.Threshold = 0.92
	}
	if c.TTL <= 0 {
		c.TTL = time.Hour
	}
	if c.TopK <= 0 {
		c.TopK = 8
	}
	return c
}

// Cache decides whether a sufficiently similar, still-fresh prior response
// exists for a query.
type Cache struct {
	idx   Index
	embed Embedder
	cfg   Config
	now   func() time.Time
}

func New(idx Index, embed Embedder, cfg Config) *Cache {
	return &Cache{idx: idx, embed: embed, cfg: cfg.normalized(), now: time.Now}
}

// Lookup embeds the query and returns the freshest, most similar prior
// entry, or nil on a miss. The query embedding is returned either way so
// callers can reuse it for retrieval and for Store. Index failures degrade
// to a miss; embedding failures are returned for the caller to absorb.
// Lookup never writes.
func (c *Cache) Lookup(ctx context.Context, query string) (*Hit, []float32, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil, errors.New("empty query")
	}
	embedding, err := c.embed.Embed(ctx, query)
	if err != nil {
		return nil, nil, errors.Wrap(err, "embed query")
	}

	candidates, err := c.idx.Nearest(ctx, embedding, c.cfg.TopK)
	if err != nil {
		slog.Warn("cache index read failed, treating as miss", "err", err)
		return nil, embedding, nil
	}

	now := c.now()
	var best *Entry
	var bestSim float64
	for i := range candidates {
		e := &candidates[i]
		if now.Sub(e.CachedAt) > c.cfg.TTL {
			continue
		}
		sim := Cosine(embedding, e.Embedding)
		if sim <= c.cfg.Threshold {
			continue
		}
		// Equal similarity prefers the most recently cached entry.
		if best == nil || sim > bestSim || (sim == bestSim && e.CachedAt.After(best.CachedAt)) {
			best, bestSim = e, sim
		}
	}
	if best == nil {
		return nil, embedding, nil
	}
	return &Hit{
		Query:      best.Query,
		Response:   best.Response,
		Similarity: bestSim,
		CachedAt:   best.CachedAt,
	}, embedding, nil
}

// Store appends a new entry stamped with the current time. Caching is a
// best-effort optimization: failures are logged and swallowed, and no
// de-duplication is attempted for near-identical queries.
func (c *Cache) Store(ctx context.Context, query string, embedding []float32, response string) {
	if len(embedding) == 0 {
		return
	}
	e := Entry{
		Query:     query,
		Embedding: embedding,
		Response:  response,
		CachedAt:  c.now(),
	}
	if err := c.idx.Insert(ctx, e); err != nil {
		slog.Warn("cache store failed, response unaffected", "err", err)
	}
}

// Cosine returns the cosine similarity of a and b in [-1, 1]. Mismatched or
// zero-norm vectors score 0 so they can never clear the threshold.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
