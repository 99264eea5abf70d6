package biz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/librarian/internal/librarian/store"
)

// === Mock 实现 ===

// mockVectorIndex 模拟 VectorIndex。
type mockVectorIndex struct {
	matches     []store.VectorMatch
	err         error
	searchCalls int
	lastTopK    int
}

func (m *mockVectorIndex) Search(ctx context.Context, embedding []float32, topK int) ([]store.VectorMatch, error) {
	m.searchCalls++
	m.lastTopK = topK
	if m.err != nil {
		return nil, m.err
	}
	if topK < len(m.matches) {
		return m.matches[:topK], nil
	}
	return m.matches, nil
}

func (m *mockVectorIndex) Count(ctx context.Context) (int64, error) {
	return int64(len(m.matches)), nil
}

func (m *mockVectorIndex) Close(ctx context.Context) error {
	return nil
}

var _ store.VectorIndex = (*mockVectorIndex)(nil)

// mockEmbedder 模拟 EmbeddingProvider。
type mockEmbedder struct {
	embedding []float32
	err       error
	calls     int
}

func (m *mockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = m.embedding
	}
	return result, nil
}

func (m *mockEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.embedding, nil
}

func (m *mockEmbedder) Name() string {
	return "mock-embedding"
}

func newTestRetriever(index *mockVectorIndex, embedder *mockEmbedder) *Retriever {
	return NewRetriever(index, embedder, &RetrieverConfig{TopK: 5})
}

// === 测试 ===

func TestSearchEmptyQueryShortCircuits(t *testing.T) {
	index := &mockVectorIndex{}
	embedder := &mockEmbedder{embedding: []float32{0.1, 0.2}}
	r := newTestRetriever(index, embedder)

	for _, query := range []string{"", "   ", "\t\n"} {
		candidates, err := r.Search(context.Background(), query, 5, nil)
		require.NoError(t, err)
		assert.Empty(t, candidates)
	}

	// 空查询既不编码也不检索
	assert.Equal(t, 0, embedder.calls)
	assert.Equal(t, 0, index.searchCalls)
}

func TestSearchDistanceThresholdBoundary(t *testing.T) {
	index := &mockVectorIndex{
		matches: []store.VectorMatch{
			{BookID: "b1", Distance: 0.4999},
			{BookID: "b2", Distance: 0.5},
			{BookID: "b3", Distance: 0.5001},
		},
	}
	r := newTestRetriever(index, &mockEmbedder{embedding: []float32{0.1}})

	candidates, err := r.Search(context.Background(), "fantasy", 5, nil)
	require.NoError(t, err)

	// 阈值比较是严格大于：恰好等于 MaxDistance 的候选保留，超过的排除
	require.Len(t, candidates, 2)
	assert.Equal(t, "b1", candidates[0].BookID)
	assert.Equal(t, 0.5001, candidates[0].Score)
	assert.Equal(t, "b2", candidates[1].BookID)
	assert.Equal(t, 0.5, candidates[1].Score)
}

func TestSearchPreservesIndexOrder(t *testing.T) {
	index := &mockVectorIndex{
		matches: []store.VectorMatch{
			{BookID: "b1", Distance: 0.1},
			{BookID: "b2", Distance: 0.2},
			{BookID: "b3", Distance: 0.3},
		},
	}
	r := newTestRetriever(index, &mockEmbedder{embedding: []float32{0.1}})

	candidates, err := r.Search(context.Background(), "fantasy magic adventure", 5, nil)
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	assert.Equal(t, "b1", candidates[0].BookID)
	assert.Equal(t, "b2", candidates[1].BookID)
	assert.Equal(t, "b3", candidates[2].BookID)
}

func TestSearchScoreRounding(t *testing.T) {
	index := &mockVectorIndex{
		matches: []store.VectorMatch{
			{BookID: "b1", Distance: 0.123456789},
		},
	}
	r := newTestRetriever(index, &mockEmbedder{embedding: []float32{0.1}})

	candidates, err := r.Search(context.Background(), "question", 5, nil)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	assert.Equal(t, 0.8765, candidates[0].Score)
}

func TestSearchMinScoreFilter(t *testing.T) {
	index := &mockVectorIndex{
		matches: []store.VectorMatch{
			{BookID: "b1", Distance: 0.1}, // score 0.9
			{BookID: "b2", Distance: 0.4}, // score 0.6
		},
	}
	r := newTestRetriever(index, &mockEmbedder{embedding: []float32{0.1}})

	minScore := 0.8
	candidates, err := r.Search(context.Background(), "question", 5, &minScore)
	require.NoError(t, err)

	require.Len(t, candidates, 1)
	assert.Equal(t, "b1", candidates[0].BookID)
}

func TestSearchUsesDefaultTopK(t *testing.T) {
	index := &mockVectorIndex{}
	r := newTestRetriever(index, &mockEmbedder{embedding: []float32{0.1}})

	_, err := r.Search(context.Background(), "question", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, index.lastTopK)
}

func TestSearchDeterministic(t *testing.T) {
	index := &mockVectorIndex{
		matches: []store.VectorMatch{
			{BookID: "b1", Distance: 0.12345},
			{BookID: "b2", Distance: 0.2},
		},
	}
	r := newTestRetriever(index, &mockEmbedder{embedding: []float32{0.1}})

	first, err := r.Search(context.Background(), "question", 5, nil)
	require.NoError(t, err)
	second, err := r.Search(context.Background(), "question", 5, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSearchIndexError(t *testing.T) {
	index := &mockVectorIndex{err: errors.New("milvus unreachable")}
	r := newTestRetriever(index, &mockEmbedder{embedding: []float32{0.1}})

	_, err := r.Search(context.Background(), "question", 5, nil)
	assert.Error(t, err)
}

func TestSearchEmbedError(t *testing.T) {
	index := &mockVectorIndex{}
	r := newTestRetriever(index, &mockEmbedder{err: errors.New("encoder down")})

	_, err := r.Search(context.Background(), "question", 5, nil)
	assert.Error(t, err)
	assert.Equal(t, 0, index.searchCalls)
}
