package knowledge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tripweaver/tripweaver/plugin/vectorstore"
	"github.com/tripweaver/tripweaver/store"
)

type fakeSearcher struct {
	results []vectorstore.SearchResult
	err     error
	gotK    int
}

func (f *fakeSearcher) SearchPlaces(_ context.Context, _ []float32, k int) ([]vectorstore.SearchResult, error) {
	f.gotK = k
	return f.results, f.err
}

type fakeLister struct {
	places map[string]*store.Place
	err    error
}

func (f *fakeLister) ListPlaces(_ context.Context, find *store.FindPlace) ([]*store.Place, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*store.Place
	for _, id := range find.IDs {
		if p, ok := f.places[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func catalog() *fakeLister {
	return &fakeLister{places: map[string]*store.Place{
		"city_hanoi": {
			ID: "city_hanoi", Type: "city", Name: "Hanoi", Description: "Capital of Vietnam.",
			Connections: []store.Connection{{Target: "dish_pho", Relation: "famous_for"}, {Target: "site_hoan_kiem", Relation: "contains"}},
		},
		"dish_pho":       {ID: "dish_pho", Type: "dish", Name: "Pho", Description: "Noodle soup."},
		"site_hoan_kiem": {ID: "site_hoan_kiem", Type: "landmark", Name: "Hoan Kiem Lake", Description: "Lake in the Old Quarter."},
	}}
}

func TestRetrieveMatchesAndRelated(t *testing.T) {
	searcher := &fakeSearcher{results: []vectorstore.SearchResult{
		{PlaceID: "city_hanoi", Score: 0.91},
		{PlaceID: "dish_pho", Score: 0.85},
	}}
	r := NewRetriever(searcher, catalog(), 5)

	kn, err := r.Retrieve(context.Background(), []float32{1, 0})
	require.NoError(t, err)
	require.Equal(t, 5, searcher.gotK)

	require.Len(t, kn.Matches, 2)
	require.Equal(t, "Hanoi", kn.Matches[0].Name)
	require.InDelta(t, 0.91, kn.Matches[0].Score, 1e-6)
	require.Equal(t, "Pho", kn.Matches[1].Name)

	// dish_pho is connected to city_hanoi but already matched, so only the
	// lake shows up as related.
	require.Len(t, kn.Related, 1)
	require.Equal(t, "Hoan Kiem Lake", kn.Related[0].Name)
	require.Zero(t, kn.Related[0].Score)
}

func TestRetrieveNoResults(t *testing.T) {
	r := NewRetriever(&fakeSearcher{}, catalog(), 5)

	kn, err := r.Retrieve(context.Background(), []float32{1, 0})
	require.NoError(t, err)
	require.Empty(t, kn.Matches)
	require.Empty(t, kn.Related)
}

func TestRetrieveSkipsStaleVectors(t *testing.T) {
	searcher := &fakeSearcher{results: []vectorstore.SearchResult{
		{PlaceID: "deleted_place", Score: 0.99},
		{PlaceID: "dish_pho", Score: 0.8},
	}}
	r := NewRetriever(searcher, catalog(), 5)

	kn, err := r.Retrieve(context.Background(), []float32{1, 0})
	require.NoError(t, err)
	require.Len(t, kn.Matches, 1)
	require.Equal(t, "dish_pho", kn.Matches[0].ID)
}

func TestRetrieveSearchError(t *testing.T) {
	r := NewRetriever(&fakeSearcher{err: errors.New("index offline")}, catalog(), 5)

	_, err := r.Retrieve(context.Background(), []float32{1, 0})
	require.Error(t, err)
}

func TestRetrieveListError(t *testing.T) {
	searcher := &fakeSearcher{results: []vectorstore.SearchResult{{PlaceID: "city_hanoi", Score: 0.9}}}
	r := NewRetriever(searcher, &fakeLister{err: errors.New("db locked")}, 5)

	_, err := r.Retrieve(context.Background(), []float32{1, 0})
	require.Error(t, err)
}

func TestNewRetrieverDefaultsTopK(t *testing.T) {
	searcher := &fakeSearcher{}
	r := NewRetriever(searcher, catalog(), 0)
	_, err := r.Retrieve(context.Background(), []float32{1, 0})
	require.NoError(t, err)
	require.Equal(t, 5, searcher.gotK)
}
