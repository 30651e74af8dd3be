package knowledge

import (
	"context"
	"errors"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusflow/support-agent/internal/log"
)

// fakeQuerier records upserts and serves canned search results.
type fakeQuerier struct {
	upserted  []Document
	deleted   []string
	results   []Result
	searchErr error
}

func (f *fakeQuerier) UpsertDocument(_ context.Context, doc Document, _ pgvector.Vector) error {
	f.upserted = append(f.upserted, doc)
	return nil
}

func (f *fakeQuerier) SearchDocuments(_ context.Context, _ pgvector.Vector, _ int) ([]Result, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.results, nil
}

func (f *fakeQuerier) CountDocuments(context.Context) (int64, error) {
	return int64(len(f.upserted)), nil
}

func (f *fakeQuerier) DeleteBySource(_ context.Context, source string) error {
	f.deleted = append(f.deleted, source)
	return nil
}

// fakeEmbedder returns a fixed-size vector per input.
type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func TestStoreAdd(t *testing.T) {
	querier := &fakeQuerier{}
	store := New(querier, &fakeEmbedder{}, log.NewNop())

	err := store.Add(context.Background(), Document{ID: "refund-policy-1", Content: "Refunds within 30 days."})
	require.NoError(t, err)
	require.Len(t, querier.upserted, 1)
	assert.Equal(t, "refund-policy-1", querier.upserted[0].ID)
}

func TestStoreAddEmbeddingFailure(t *testing.T) {
	store := New(&fakeQuerier{}, &fakeEmbedder{err: errors.New("down")}, log.NewNop())

	err := store.Add(context.Background(), Document{ID: "d1", Content: "text"})
	assert.Error(t, err)
}

func TestStoreAddBatchSingleEmbeddingCall(t *testing.T) {
	querier := &fakeQuerier{}
	embedder := &fakeEmbedder{}
	store := New(querier, embedder, log.NewNop())

	docs := []Document{
		{ID: "a", Content: "one"},
		{ID: "b", Content: "two"},
		{ID: "c", Content: "three"},
	}
	require.NoError(t, store.AddBatch(context.Background(), docs))
	assert.Equal(t, 1, embedder.calls)
	assert.Len(t, querier.upserted, 3)
}

func TestStoreSearchFiltersByMinScore(t *testing.T) {
	querier := &fakeQuerier{results: []Result{
		{Document: Document{ID: "a", Source: "Refund Policy"}, Score: 0.82},
		{Document: Document{ID: "b", Source: "Billing FAQ"}, Score: 0.41},
		{Document: Document{ID: "c", Source: "Plans"}, Score: 0.12},
	}}
	store := New(querier, &fakeEmbedder{}, log.NewNop())

	results, err := store.Search(context.Background(), "refund policy", 3, 0.35)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Document.ID)
	assert.Equal(t, "b", results[1].Document.ID)
}

func TestStoreReplaceDeletesThenInserts(t *testing.T) {
	querier := &fakeQuerier{}
	store := New(querier, &fakeEmbedder{}, log.NewNop())

	err := store.Replace(context.Background(), "Refund Policy", []Document{
		{ID: "rp-1", Content: "Refunds within 30 days.", Source: "Refund Policy"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Refund Policy"}, querier.deleted)
	assert.Len(t, querier.upserted, 1)
}

func TestRelevanceBand(t *testing.T) {
	assert.Equal(t, "High", RelevanceBand(0.9))
	assert.Equal(t, "High", RelevanceBand(0.75))
	assert.Equal(t, "Medium", RelevanceBand(0.6))
	assert.Equal(t, "Low", RelevanceBand(0.2))
}
