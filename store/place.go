package store

import "context"

// Place is a knowledge document from the travel dataset: a city, landmark,
// dish, activity or similar node.
type Place struct {
	ID          string       `json:"id"`
	Type        string       `json:"type"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Tags        []string     `json:"tags,omitempty"`
	Connections []Connection `json:"connections,omitempty"`
	// SemanticText is the string that was embedded for this place.
	SemanticText string `json:"semantic_text,omitempty"`
}

// Connection links a place to a related place in the dataset graph.
type Connection struct {
	Target   string `json:"target"`
	Relation string `json:"relation,omitempty"`
}

// FindPlace filters for ListPlaces.
type FindPlace struct {
	IDs  []string
	Type *string
}

// UpsertPlace inserts or replaces a place by ID.
func (s *Store) UpsertPlace(ctx context.Context, place *Place) error {
	return s.driver.UpsertPlace(ctx, place)
}

// ListPlaces returns places matching the filter.
func (s *Store) ListPlaces(ctx context.Context, find *FindPlace) ([]*Place, error) {
	return s.driver.ListPlaces(ctx, find)
}

// CountPlaces returns the catalog size.
func (s *Store) CountPlaces(ctx context.Context) (int64, error) {
	return s.driver.CountPlaces(ctx)
}

// DeleteAllPlaces empties the catalog. The loader calls this before a
// re-import to avoid duplicates.
func (s *Store) DeleteAllPlaces(ctx context.Context) error {
	return s.driver.DeleteAllPlaces(ctx)
}
