// Package handler provides HTTP handlers for the librarian service.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/librarian/internal/librarian/biz"
)

// askTimeout bounds one full ask pipeline. Generation against an external
// model service is the least predictable dependency.
const askTimeout = 60 * time.Second

// AssistantHandler handles assistant HTTP requests.
type AssistantHandler struct {
	service biz.Service
}

// NewAssistantHandler creates a new AssistantHandler.
func NewAssistantHandler(service biz.Service) *AssistantHandler {
	return &AssistantHandler{service: service}
}

// SuccessResponse is a standard success response.
type SuccessResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// AskRequest represents an ask request.
type AskRequest struct {
	Question string   `json:"question" binding:"required"`
	TopK     int      `json:"top_k"`
	MinScore *float64 `json:"min_score"`
	BookIDs  []string `json:"book_ids"`
}

// Ask runs the question-answering pipeline.
func (h *AssistantHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), askTimeout)
	defer cancel()

	result, err := h.service.Ask(ctx, &biz.AskRequest{
		Question: req.Question,
		TopK:     req.TopK,
		MinScore: req.MinScore,
		BookIDs:  req.BookIDs,
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			c.JSON(http.StatusRequestTimeout, ErrorResponse{
				Code:    408,
				Message: "Ask timeout: the request took too long to process. Please try again or simplify your question.",
			})
			return
		}
		if errors.Is(err, biz.ErrUpstream) {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Code: 503, Message: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: result})
}

// Stats returns knowledge base statistics.
func (h *AssistantHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		if errors.Is(err, biz.ErrUpstream) {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Code: 503, Message: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: stats})
}
