package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/librarian/internal/librarian/biz"
	"github.com/kart-io/librarian/internal/model"
)

// mockService 模拟 biz.Service。
type mockService struct {
	result  *model.AskResult
	err     error
	lastReq *biz.AskRequest
}

func (m *mockService) Ask(ctx context.Context, req *biz.AskRequest) (*model.AskResult, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockService) Stats(ctx context.Context) (map[string]any, error) {
	if m.err != nil {
		return nil, m.err
	}
	return map[string]any{"book_count": int64(3)}, nil
}

var _ biz.Service = (*mockService)(nil)

func setupRouter(svc biz.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h := NewAssistantHandler(svc)
	engine.POST("/v1/assistant/ask", h.Ask)
	engine.GET("/v1/assistant/stats", h.Stats)
	return engine
}

func doAsk(t *testing.T, engine *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/assistant/ask", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestAskSuccess(t *testing.T) {
	svc := &mockService{
		result: &model.AskResult{
			Question:  "fantasy books",
			Answer:    "The Hobbit [1] is a classic.",
			Citations: map[string]string{"[1]": "b1"},
			Sources:   []model.Book{{BookID: "b1", Title: "The Hobbit"}},
		},
	}
	engine := setupRouter(svc)

	w := doAsk(t, engine, `{"question":"fantasy books","top_k":3}`)

	require.Equal(t, http.StatusOK, w.Code)

	var resp SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, 3, svc.lastReq.TopK)
	assert.Equal(t, "fantasy books", svc.lastReq.Question)
}

func TestAskRefusalIsStillOK(t *testing.T) {
	svc := &mockService{
		result: &model.AskResult{
			Question:  "unknown topic",
			Answer:    biz.RefusalAnswer,
			Citations: map[string]string{},
			Sources:   []model.Book{},
		},
	}
	engine := setupRouter(svc)

	w := doAsk(t, engine, `{"question":"unknown topic"}`)

	// 拒答是正常结果，不是错误
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAskMissingQuestion(t *testing.T) {
	engine := setupRouter(&mockService{})

	w := doAsk(t, engine, `{"top_k":3}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAskUpstreamUnavailable(t *testing.T) {
	svc := &mockService{
		err: fmt.Errorf("%w: milvus unreachable", biz.ErrUpstream),
	}
	engine := setupRouter(svc)

	w := doAsk(t, engine, `{"question":"fantasy"}`)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAskBookIDsPassedThrough(t *testing.T) {
	svc := &mockService{
		result: &model.AskResult{
			Answer:    "Both [1] and [2].",
			Citations: map[string]string{"[1]": "B1", "[2]": "B2"},
		},
	}
	engine := setupRouter(svc)

	w := doAsk(t, engine, `{"question":"compare","book_ids":["B1","B2"]}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"B1", "B2"}, svc.lastReq.BookIDs)
}

func TestStatsSuccess(t *testing.T) {
	engine := setupRouter(&mockService{})

	req := httptest.NewRequest(http.MethodGet, "/v1/assistant/stats", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatsUpstreamUnavailable(t *testing.T) {
	engine := setupRouter(&mockService{err: fmt.Errorf("%w: postgres down", biz.ErrUpstream)})

	req := httptest.NewRequest(http.MethodGet, "/v1/assistant/stats", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
