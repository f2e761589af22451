package chat

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pkg/errors"

	"github.com/tripweaver/tripweaver/internal/cache"
)

// ErrEmptyQuery rejects blank input before any external call is made.
var ErrEmptyQuery = errors.New("chat: empty query")

// Retriever supplies knowledge context for a query embedding.
type Retriever interface {
	Retrieve(ctx context.Context, embedding []float32) (*Knowledge, error)
}

// QueryCache is the semantic cache surface the engine consumes.
type QueryCache interface {
	Lookup(ctx context.Context, query string) (*cache.Hit, []float32, error)
	Store(ctx context.Context, query string, embedding []float32, response string)
}

// Answer is the result of one engine call. CacheHit is per-answer state:
// callers accumulate their own hit/miss counters, the engine keeps none.
type Answer struct {
	Response string
	// History is the updated conversation including the new user and
	// assistant turns (and a summary turn if compaction ran).
	History       History
	CacheHit      bool
	HitSimilarity float64
	Compacted     bool
	// Sources are the semantic-search matches behind a generated answer.
	// Empty on cache hits.
	Sources []Match
}

// Engine is the assistant's only entry point: compaction, cache lookup,
// retrieval-augmented generation, cache store.
type Engine struct {
	cache     QueryCache
	retriever Retriever
	gen       Generator
	compactor *Compactor
}

func NewEngine(qc QueryCache, retriever Retriever, gen Generator, compactor *Compactor) *Engine {
	return &Engine{cache: qc, retriever: retriever, gen: gen, compactor: compactor}
}

// Answer processes one user query against the given history. The input
// history is not mutated. Cache, embedding and retrieval failures all
// degrade gracefully; only generation failure is returned, since without it
// there is no response to give.
func (e *Engine) Answer(ctx context.Context, query string, history History) (*Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	history = append(history.Clone(), Turn{Role: RoleUser, Text: query})
	history, compacted := e.compactor.MaybeCompact(ctx, history)

	hit, embedding, err := e.cache.Lookup(ctx, query)
	if err != nil {
		// Embedding unavailable: skip the cache and retrieval, still answer.
		slog.Warn("query embedding failed, skipping cache and retrieval", "err", err)
	}

	if hit != nil {
		slog.Info("semantic cache hit", "similarity", hit.Similarity, "cached_query", hit.Query)
		history = append(history, Turn{Role: RoleAssistant, Text: hit.Response})
		return &Answer{
			Response:      hit.Response,
			History:       history,
			CacheHit:      true,
			HitSimilarity: hit.Similarity,
			Compacted:     compacted,
		}, nil
	}

	var kn *Knowledge
	if embedding != nil {
		kn, err = e.retriever.Retrieve(ctx, embedding)
		if err != nil {
			slog.Warn("knowledge retrieval failed, answering without context", "err", err)
			kn = nil
		}
	}

	// History is rendered without the just-appended user turn; the question
	// goes in its own prompt slot.
	prompt := BuildPrompt(query, kn, history[:len(history)-1])
	response, err := e.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, errors.Wrap(err, "generate answer")
	}

	if embedding != nil {
		e.cache.Store(ctx, query, embedding, response)
	}

	history = append(history, Turn{Role: RoleAssistant, Text: response})
	answer := &Answer{
		Response:  response,
		History:   history,
		Compacted: compacted,
	}
	if kn != nil {
		answer.Sources = kn.Matches
	}
	return answer, nil
}
