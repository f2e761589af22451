// Package knowledge turns a query embedding into grounded context: vector
// search over the place index, hydrated from the relational store, expanded
// one hop along the dataset's connection graph.
package knowledge

import (
	"context"

	"github.com/pkg/errors"

	"github.com/tripweaver/tripweaver/internal/chat"
	"github.com/tripweaver/tripweaver/plugin/vectorstore"
	"github.com/tripweaver/tripweaver/store"
)

type vectorSearcher interface {
	SearchPlaces(ctx context.Context, embedding []float32, k int) ([]vectorstore.SearchResult, error)
}

type placeLister interface {
	ListPlaces(ctx context.Context, find *store.FindPlace) ([]*store.Place, error)
}

// Retriever resolves query embeddings against the place catalog.
type Retriever struct {
	search vectorSearcher
	places placeLister
	topK   int
}

func NewRetriever(search vectorSearcher, places placeLister, topK int) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	return &Retriever{search: search, places: places, topK: topK}
}

// Retrieve runs vector search and relational expansion for one embedding.
// Matches keep the search ranking; Related holds the connected places that
// were not already matched, each listed once.
func (r *Retriever) Retrieve(ctx context.Context, embedding []float32) (*chat.Knowledge, error) {
	results, err := r.search.SearchPlaces(ctx, embedding, r.topK)
	if err != nil {
		return nil, errors.Wrap(err, "search places")
	}
	if len(results) == 0 {
		return &chat.Knowledge{}, nil
	}

	ids := make([]string, 0, len(results))
	scores := make(map[string]float32, len(results))
	for _, res := range results {
		ids = append(ids, res.PlaceID)
		scores[res.PlaceID] = res.Score
	}

	matched, err := r.places.ListPlaces(ctx, &store.FindPlace{IDs: ids})
	if err != nil {
		return nil, errors.Wrap(err, "hydrate matched places")
	}
	byID := make(map[string]*store.Place, len(matched))
	for _, p := range matched {
		byID[p.ID] = p
	}

	kn := &chat.Knowledge{}
	seen := make(map[string]bool, len(results))
	for _, res := range results {
		seen[res.PlaceID] = true
	}
	var relatedIDs []string
	for _, res := range results {
		p, ok := byID[res.PlaceID]
		if !ok {
			// Indexed but no longer in the catalog, likely a stale vector
			// from before a re-import.
			continue
		}
		kn.Matches = append(kn.Matches, chat.Match{
			ID:          p.ID,
			Name:        p.Name,
			Type:        p.Type,
			Description: p.Description,
			Score:       scores[p.ID],
		})
		for _, conn := range p.Connections {
			if !seen[conn.Target] {
				seen[conn.Target] = true
				relatedIDs = append(relatedIDs, conn.Target)
			}
		}
	}

	if len(relatedIDs) > 0 {
		related, err := r.places.ListPlaces(ctx, &store.FindPlace{IDs: relatedIDs})
		if err != nil {
			return nil, errors.Wrap(err, "hydrate related places")
		}
		for _, p := range related {
			kn.Related = append(kn.Related, chat.Match{
				ID:          p.ID,
				Name:        p.Name,
				Type:        p.Type,
				Description: p.Description,
			})
		}
	}

	return kn, nil
}
