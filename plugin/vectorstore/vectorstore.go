// Package vectorstore wraps chromem-go with disk persistence and the two
// collections the assistant needs: the place knowledge index and the
// semantic query cache index. The two record shapes are kept in disjoint
// collections rather than flagged rows in one.
package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"
	chromem "github.com/philippgille/chromem-go"

	"github.com/tripweaver/tripweaver/store"
)

const (
	placesCollection = "places"
	cacheCollection  = "query_cache"
)

// SearchResult is a single semantic-search hit against the place index.
type SearchResult struct {
	PlaceID string
	Score   float32
}

// CacheRecord is a stored query/response pair with its embedding.
type CacheRecord struct {
	ID        string
	Query     string
	Response  string
	Embedding []float32
	CachedAt  time.Time
}

// Store wraps chromem-go with disk persistence.
type Store struct {
	mu      sync.RWMutex
	db      *chromem.DB
	embedFn chromem.EmbeddingFunc
}

// New creates (or opens) the persistent vector store at dataDir/vectorstore/.
// embedFn is only consulted for documents added without a precomputed
// embedding; the loader and cache always precompute.
func New(dataDir string, embedFn chromem.EmbeddingFunc) (*Store, error) {
	dir := filepath.Join(dataDir, "vectorstore")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create vectorstore dir: %w", err)
	}
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("open vectorstore: %w", err)
	}
	return &Store{db: db, embedFn: embedFn}, nil
}

func (s *Store) getOrCreateCollection(name string) *chromem.Collection {
	col := s.db.GetCollection(name, s.embedFn)
	if col == nil {
		var err error
		col, err = s.db.CreateCollection(name, nil, s.embedFn)
		if err != nil {
			slog.Error("failed to create vector collection", "collection", name, "err", err)
			return nil
		}
	}
	return col
}

// query wraps Collection.QueryEmbedding with the k-clamping the underlying
// library needs. chromem sometimes rejects nResults despite Count checks, so
// k steps down until the query succeeds.
func (s *Store) query(ctx context.Context, name string, embedding []float32, k int) ([]chromem.Result, error) {
	col := s.getOrCreateCollection(name)
	if col == nil {
		return nil, fmt.Errorf("vectorstore: nil collection %q", name)
	}
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	var results []chromem.Result
	var err error
	for attemptK := k; attemptK > 0; attemptK-- {
		results, err = col.QueryEmbedding(ctx, embedding, attemptK, nil, nil)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}

// AddPlace indexes (or re-indexes) a place with its precomputed embedding.
func (s *Store) AddPlace(ctx context.Context, place *store.Place, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.getOrCreateCollection(placesCollection)
	if col == nil {
		return fmt.Errorf("vectorstore: nil collection %q", placesCollection)
	}
	doc := chromem.Document{
		ID:        place.ID,
		Content:   place.SemanticText,
		Embedding: embedding,
		Metadata: map[string]string{
			"name": place.Name,
			"type": place.Type,
		},
	}
	return col.AddDocument(ctx, doc)
}

// SearchPlaces returns the IDs of the k places nearest to the embedding.
func (s *Store) SearchPlaces(ctx context.Context, embedding []float32, k int) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results, err := s.query(ctx, placesCollection, embedding, k)
	if err != nil {
		return nil, err
	}
	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, SearchResult{PlaceID: r.ID, Score: r.Similarity})
	}
	return out, nil
}

// ResetPlaces drops the place index. The loader calls this before a
// re-import.
func (s *Store) ResetPlaces(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.DeleteCollection(placesCollection)
}

// AddCacheRecord appends a query/response pair to the cache index. Records
// are never mutated; expiry is enforced by the cache layer on read.
func (s *Store) AddCacheRecord(ctx context.Context, rec CacheRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.getOrCreateCollection(cacheCollection)
	if col == nil {
		return fmt.Errorf("vectorstore: nil collection %q", cacheCollection)
	}
	if rec.ID == "" {
		rec.ID = shortuuid.New()
	}
	doc := chromem.Document{
		ID:        rec.ID,
		Content:   rec.Query,
		Embedding: rec.Embedding,
		Metadata: map[string]string{
			"response": rec.Response,
			"cachedAt": rec.CachedAt.UTC().Format(time.RFC3339Nano),
		},
	}
	return col.AddDocument(ctx, doc)
}

// NearestCacheRecords returns up to k cache records nearest to the
// embedding. Freshness filtering happens upstream: chromem metadata filters
// are equality-only, and the cache layer must check recency itself anyway.
func (s *Store) NearestCacheRecords(ctx context.Context, embedding []float32, k int) ([]CacheRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results, err := s.query(ctx, cacheCollection, embedding, k)
	if err != nil {
		return nil, err
	}
	out := make([]CacheRecord, 0, len(results))
	for _, r := range results {
		cachedAt, err := time.Parse(time.RFC3339Nano, r.Metadata["cachedAt"])
		if err != nil {
			slog.Warn("skipping cache record with bad timestamp", "id", r.ID, "err", err)
			continue
		}
		out = append(out, CacheRecord{
			ID:        r.ID,
			Query:     r.Content,
			Response:  r.Metadata["response"],
			Embedding: r.Embedding,
			CachedAt:  cachedAt,
		})
	}
	return out, nil
}
