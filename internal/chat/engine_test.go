package chat

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tripweaver/tripweaver/internal/cache"
)

// mapEmbedder returns a fixed vector per known text and an arbitrary stable
// vector for everything else.
type mapEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (m *mapEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

type memIndex struct {
	entries    []cache.Entry
	nearestErr error
	insertErr  error
}

func (m *memIndex) Nearest(_ context.Context, _ []float32, _ int) ([]cache.Entry, error) {
	if m.nearestErr != nil {
		return nil, m.nearestErr
	}
	return m.entries, nil
}

func (m *memIndex) Insert(_ context.Context, e cache.Entry) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.entries = append(m.entries, e)
	return nil
}

type seqGen struct {
	responses []string
	err       error
	calls     int
}

func (g *seqGen) Generate(_ context.Context, _ string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	g.calls++
	if g.calls <= len(g.responses) {
		return g.responses[g.calls-1], nil
	}
	return "generated", nil
}

type fakeRetriever struct {
	kn    *Knowledge
	err   error
	calls int
}

func (r *fakeRetriever) Retrieve(_ context.Context, _ []float32) (*Knowledge, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.kn, nil
}

func newEngine(idx cache.Index, emb cache.Embedder, retriever Retriever, gen Generator) *Engine {
	qc := cache.New(idx, emb, cache.Config{})
	return NewEngine(qc, retriever, gen, NewCompactor(gen, CompactorConfig{}))
}

func TestAnswerMissThenHit(t *testing.T) {
	ctx := context.Background()
	emb := &mapEmbedder{vectors: map[string][]float32{"Best time to visit Hanoi?": {1, 0}}}
	gen := &seqGen{responses: []string{"R1"}}
	eng := newEngine(&memIndex{}, emb, &fakeRetriever{}, gen)

	first, err := eng.Answer(ctx, "Best time to visit Hanoi?", nil)
	require.NoError(t, err)
	require.False(t, first.CacheHit)
	require.Equal(t, "R1", first.Response)
	require.Equal(t, 1, gen.calls)
	require.Equal(t, History{
		{Role: RoleUser, Text: "Best time to visit Hanoi?"},
		{Role: RoleAssistant, Text: "R1"},
	}, first.History)

	second, err := eng.Answer(ctx, "Best time to visit Hanoi?", first.History)
	require.NoError(t, err)
	require.True(t, second.CacheHit)
	require.Equal(t, "R1", second.Response)
	require.InDelta(t, 1.0, second.HitSimilarity, 1e-9)
	// No second generation for a cache hit.
	require.Equal(t, 1, gen.calls)
	require.Len(t, second.History, 4)
}

func TestAnswerParaphraseServedFromCache(t *testing.T) {
	// "When should I go to Hanoi?" embeds at cosine similarity 0.95 to the
	// original question, above the 0.92 threshold.
	sim := 0.95
	emb := &mapEmbedder{vectors: map[string][]float32{
		"Best time to visit Hanoi?":  {1, 0},
		"When should I go to Hanoi?": {float32(sim), float32(math.Sqrt(1 - sim*sim))},
	}}
	gen := &seqGen{responses: []string{"R1"}}
	eng := newEngine(&memIndex{}, emb, &fakeRetriever{}, gen)

	ctx := context.Background()
	first, err := eng.Answer(ctx, "Best time to visit Hanoi?", nil)
	require.NoError(t, err)
	require.Equal(t, "R1", first.Response)

	second, err := eng.Answer(ctx, "When should I go to Hanoi?", nil)
	require.NoError(t, err)
	require.True(t, second.CacheHit)
	require.Equal(t, "R1", second.Response)
	require.Greater(t, second.HitSimilarity, 0.92)
	require.Equal(t, 1, gen.calls)
}

func TestAnswerUnreachableStoreStillAnswers(t *testing.T) {
	idx := &memIndex{nearestErr: errors.New("store down"), insertErr: errors.New("store down")}
	gen := &seqGen{responses: []string{"R1"}}
	eng := newEngine(idx, &mapEmbedder{}, &fakeRetriever{}, gen)

	a, err := eng.Answer(context.Background(), "anything", nil)
	require.NoError(t, err)
	require.False(t, a.CacheHit)
	require.Equal(t, "R1", a.Response)
}

func TestAnswerEmbeddingFailureSkipsCacheAndRetrieval(t *testing.T) {
	retriever := &fakeRetriever{}
	gen := &seqGen{responses: []string{"R1"}}
	eng := newEngine(&memIndex{}, &mapEmbedder{err: errors.New("quota")}, retriever, gen)

	a, err := eng.Answer(context.Background(), "anything", nil)
	require.NoError(t, err)
	require.False(t, a.CacheHit)
	require.Equal(t, "R1", a.Response)
	require.Zero(t, retriever.calls)
	require.Empty(t, a.Sources)
}

func TestAnswerRetrievalFailureDegradesToEmptyContext(t *testing.T) {
	retriever := &fakeRetriever{err: errors.New("index corrupt")}
	gen := &seqGen{responses: []string{"R1"}}
	eng := newEngine(&memIndex{}, &mapEmbedder{}, retriever, gen)

	a, err := eng.Answer(context.Background(), "anything", nil)
	require.NoError(t, err)
	require.Equal(t, "R1", a.Response)
	require.Empty(t, a.Sources)
}

func TestAnswerGenerationFailureIsFatal(t *testing.T) {
	genErr := errors.New("model overloaded")
	eng := newEngine(&memIndex{}, &mapEmbedder{}, &fakeRetriever{}, &seqGen{err: genErr})

	a, err := eng.Answer(context.Background(), "anything", nil)
	require.ErrorIs(t, err, genErr)
	require.Nil(t, a)
}

func TestAnswerEmptyQueryRejected(t *testing.T) {
	eng := newEngine(&memIndex{}, &mapEmbedder{}, &fakeRetriever{}, &seqGen{})
	_, err := eng.Answer(context.Background(), "  \n ", nil)
	require.ErrorIs(t, err, ErrEmptyQuery)
}

func TestAnswerReportsSources(t *testing.T) {
	kn := &Knowledge{Matches: []Match{{ID: "dish_pho", Name: "Pho", Type: "dish", Score: 0.9}}}
	eng := newEngine(&memIndex{}, &mapEmbedder{}, &fakeRetriever{kn: kn}, &seqGen{responses: []string{"R1"}})

	a, err := eng.Answer(context.Background(), "what should I eat", nil)
	require.NoError(t, err)
	require.Equal(t, kn.Matches, a.Sources)
}

func TestAnswerCompactsLongHistory(t *testing.T) {
	gen := &seqGen{responses: []string{"summary of the trip", "R"}}
	eng := newEngine(&memIndex{}, &mapEmbedder{}, &fakeRetriever{}, gen)

	history := pairedHistory(5) // 5 user turns so far
	snapshot := history.Clone()

	a, err := eng.Answer(context.Background(), "question 6", history)
	require.NoError(t, err)
	require.True(t, a.Compacted)
	// [summary, question 5, answer 5, question 6] plus the new answer.
	require.Len(t, a.History, 5)
	require.Equal(t, RoleSummary, a.History[0].Role)
	require.Equal(t, "summary of the trip", a.History[0].Text)
	require.Equal(t, Turn{Role: RoleAssistant, Text: "R"}, a.History[4])
	// Caller-held history is untouched.
	require.Equal(t, snapshot, history)
}
