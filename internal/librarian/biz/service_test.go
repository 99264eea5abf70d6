package biz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/librarian/internal/librarian/store"
	"github.com/kart-io/librarian/internal/model"
	"github.com/kart-io/librarian/pkg/llm"
)

// mockBookStore 模拟 BookStore，复刻真实实现的顺序保持和静默跳过语义。
type mockBookStore struct {
	books   map[string]model.Book
	err     error
	lastIDs []string
}

func (m *mockBookStore) FetchByIDs(ctx context.Context, ids []string) ([]model.Book, error) {
	m.lastIDs = ids
	if m.err != nil {
		return nil, m.err
	}
	result := make([]model.Book, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if b, ok := m.books[id]; ok {
			result = append(result, b)
		}
	}
	return result, nil
}

func (m *mockBookStore) Count(ctx context.Context) (int64, error) {
	return int64(len(m.books)), nil
}

var _ store.BookStore = (*mockBookStore)(nil)

// mockChat 模拟 ChatProvider。
type mockChat struct {
	response      string
	err           error
	generateCalls int
	lastPrompt    string
}

func (m *mockChat) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	return m.response, m.err
}

func (m *mockChat) Generate(ctx context.Context, prompt string, systemPrompt string) (string, error) {
	m.generateCalls++
	m.lastPrompt = prompt
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockChat) Name() string {
	return "mock-chat"
}

var _ llm.ChatProvider = (*mockChat)(nil)

func newTestService(index *mockVectorIndex, books *mockBookStore, chat *mockChat) *LibrarianService {
	return NewLibrarianService(index, books, &mockEmbedder{embedding: []float32{0.1}}, chat, nil, &ServiceConfig{
		RetrieverConfig:     &RetrieverConfig{TopK: 5},
		GeneratorConfig:     &GeneratorConfig{},
		MaxDescriptionChars: 200,
	})
}

func bookFixtures() map[string]model.Book {
	books := make(map[string]model.Book)
	for _, b := range testBooks() {
		books[b.BookID] = b
	}
	return books
}

func TestAskAcceptedAnswer(t *testing.T) {
	index := &mockVectorIndex{
		matches: []store.VectorMatch{
			{BookID: "b1", Distance: 0.1},
			{BookID: "b2", Distance: 0.2},
			{BookID: "b3", Distance: 0.3},
		},
	}
	books := &mockBookStore{books: bookFixtures()}
	chat := &mockChat{response: "The Hobbit [1] and Mistborn [2] fit best."}
	svc := newTestService(index, books, chat)

	result, err := svc.Ask(context.Background(), &AskRequest{Question: "fantasy magic adventure", TopK: 5})
	require.NoError(t, err)

	assert.Equal(t, "fantasy magic adventure", result.Question)
	assert.Equal(t, "The Hobbit [1] and Mistborn [2] fit best.", result.Answer)
	// 三本书在 sources 中，但只有被引用的两本进入 citations
	assert.Len(t, result.Sources, 3)
	assert.Equal(t, map[string]string{"[1]": "b1", "[2]": "b2"}, result.Citations)
}

func TestAskNoCandidatesRefusesWithoutGenerator(t *testing.T) {
	index := &mockVectorIndex{
		matches: []store.VectorMatch{
			{BookID: "b1", Distance: 0.9},
		},
	}
	books := &mockBookStore{books: bookFixtures()}
	chat := &mockChat{response: "should never be called"}
	svc := newTestService(index, books, chat)

	result, err := svc.Ask(context.Background(), &AskRequest{Question: "quantum accounting", TopK: 5})
	require.NoError(t, err)

	assert.Equal(t, RefusalAnswer, result.Answer)
	assert.Empty(t, result.Citations)
	assert.Empty(t, result.Sources)
	// 空上下文不得触发模型调用
	assert.Equal(t, 0, chat.generateCalls)
}

func TestAskExplicitBookIDsSkipsSearch(t *testing.T) {
	index := &mockVectorIndex{}
	books := &mockBookStore{books: bookFixtures()}
	chat := &mockChat{response: "Mistborn [1] and The Hobbit [2] share a theme."}
	svc := newTestService(index, books, chat)

	result, err := svc.Ask(context.Background(), &AskRequest{
		Question: "compare these",
		BookIDs:  []string{"b2", "b1"},
	})
	require.NoError(t, err)

	// 完全绕过检索，按显式顺序取书
	assert.Equal(t, 0, index.searchCalls)
	assert.Equal(t, []string{"b2", "b1"}, books.lastIDs)
	require.Len(t, result.Sources, 2)
	assert.Equal(t, "b2", result.Sources[0].BookID)
	assert.Equal(t, "b1", result.Sources[1].BookID)
}

func TestAskModelRefusalDespiteSources(t *testing.T) {
	index := &mockVectorIndex{
		matches: []store.VectorMatch{
			{BookID: "b1", Distance: 0.1},
			{BookID: "b2", Distance: 0.2},
			{BookID: "b3", Distance: 0.3},
		},
	}
	books := &mockBookStore{books: bookFixtures()}
	chat := &mockChat{response: "I don’t have enough information from the available books to answer this question."}
	svc := newTestService(index, books, chat)

	result, err := svc.Ask(context.Background(), &AskRequest{Question: "what did the author eat", TopK: 5})
	require.NoError(t, err)

	assert.Equal(t, RefusalAnswer, result.Answer)
	assert.Empty(t, result.Citations)
}

func TestAskGeneratorFailureIsUpstreamError(t *testing.T) {
	index := &mockVectorIndex{
		matches: []store.VectorMatch{{BookID: "b1", Distance: 0.1}},
	}
	books := &mockBookStore{books: bookFixtures()}
	chat := &mockChat{err: errors.New("model service timeout")}
	svc := newTestService(index, books, chat)

	_, err := svc.Ask(context.Background(), &AskRequest{Question: "question", TopK: 5})
	require.Error(t, err)
	// 服务故障必须与正常拒答可区分
	assert.True(t, errors.Is(err, ErrUpstream))
}

func TestAskSearchFailureIsUpstreamError(t *testing.T) {
	index := &mockVectorIndex{err: errors.New("milvus unreachable")}
	books := &mockBookStore{books: bookFixtures()}
	chat := &mockChat{response: "unused"}
	svc := newTestService(index, books, chat)

	_, err := svc.Ask(context.Background(), &AskRequest{Question: "question", TopK: 5})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstream))
}

func TestAskPromptContainsContextAndQuestion(t *testing.T) {
	index := &mockVectorIndex{
		matches: []store.VectorMatch{{BookID: "b1", Distance: 0.1}},
	}
	books := &mockBookStore{books: bookFixtures()}
	chat := &mockChat{response: "An adventure story [1]."}
	svc := newTestService(index, books, chat)

	_, err := svc.Ask(context.Background(), &AskRequest{Question: "what is it about", TopK: 5})
	require.NoError(t, err)

	assert.Contains(t, chat.lastPrompt, "[1] The Hobbit")
	assert.Contains(t, chat.lastPrompt, "what is it about")
	assert.NotContains(t, chat.lastPrompt, "{{context}}")
	assert.NotContains(t, chat.lastPrompt, "{{question}}")
}

func TestStats(t *testing.T) {
	index := &mockVectorIndex{
		matches: []store.VectorMatch{{BookID: "b1", Distance: 0.1}},
	}
	books := &mockBookStore{books: bookFixtures()}
	chat := &mockChat{}
	svc := newTestService(index, books, chat)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats["indexed_vectors"])
	assert.Equal(t, int64(3), stats["book_count"])
	assert.Equal(t, "mock-embedding", stats["embed_provider"])
	assert.Equal(t, "mock-chat", stats["chat_provider"])
}
