// Package loader ingests the travel dataset into the place catalog and the
// vector index. A load replaces everything: the catalog and the place
// vectors are cleared first, then documents are embedded in batches and
// inserted.
package loader

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/tripweaver/tripweaver/store"
)

const (
	batchSize       = 100
	maxInFlight     = 4
	maxSemanticText = 1000
)

// Embedder batches texts into vectors.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type catalog interface {
	UpsertPlace(ctx context.Context, place *store.Place) error
	DeleteAllPlaces(ctx context.Context) error
}

type vectorIndex interface {
	AddPlace(ctx context.Context, place *store.Place, embedding []float32) error
	ResetPlaces(ctx context.Context) error
}

type dataset struct {
	Nodes []*store.Place `json:"nodes"`
}

// Loader wires the dataset file into both stores.
type Loader struct {
	catalog  catalog
	vectors  vectorIndex
	embedder Embedder
}

func New(catalog catalog, vectors vectorIndex, embedder Embedder) *Loader {
	return &Loader{catalog: catalog, vectors: vectors, embedder: embedder}
}

// LoadFile reads a dataset JSON file and imports it. Returns the number of
// documents imported.
func (l *Loader) LoadFile(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.Wrap(err, "read dataset")
	}
	var ds dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return 0, errors.Wrap(err, "parse dataset")
	}
	return l.Load(ctx, ds.Nodes)
}

// Load replaces the catalog and place index with the given nodes. Nodes
// without embeddable text are skipped with a warning.
func (l *Loader) Load(ctx context.Context, nodes []*store.Place) (int, error) {
	places := make([]*store.Place, 0, len(nodes))
	for _, n := range nodes {
		if n.ID == "" {
			slog.Warn("skipping node without id", "name", n.Name)
			continue
		}
		if n.SemanticText == "" {
			n.SemanticText = fallbackText(n.Description)
		}
		if n.SemanticText == "" {
			slog.Warn("skipping node without embeddable text", "id", n.ID)
			continue
		}
		places = append(places, n)
	}

	if err := l.catalog.DeleteAllPlaces(ctx); err != nil {
		return 0, errors.Wrap(err, "clear catalog")
	}
	if err := l.vectors.ResetPlaces(ctx); err != nil {
		return 0, errors.Wrap(err, "clear place index")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInFlight)
	for start := 0; start < len(places); start += batchSize {
		batch := places[start:min(start+batchSize, len(places))]
		g.Go(func() error {
			return l.loadBatch(gctx, batch)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	slog.Info("dataset imported", "documents", len(places))
	return len(places), nil
}

func (l *Loader) loadBatch(ctx context.Context, batch []*store.Place) error {
	texts := make([]string, len(batch))
	for i, p := range batch {
		texts[i] = p.SemanticText
	}
	vectors, err := l.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return errors.Wrap(err, "embed batch")
	}
	for i, p := range batch {
		if err := l.catalog.UpsertPlace(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert place %s", p.ID)
		}
		if err := l.vectors.AddPlace(ctx, p, vectors[i]); err != nil {
			return errors.Wrapf(err, "index place %s", p.ID)
		}
	}
	return nil
}

func fallbackText(description string) string {
	if len(description) > maxSemanticText {
		return description[:maxSemanticText]
	}
	return description
}
