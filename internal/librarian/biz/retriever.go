package biz

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/librarian/internal/librarian/store"
	"github.com/kart-io/librarian/internal/model"
	"github.com/kart-io/librarian/pkg/llm"
)

// MaxDistance 余弦距离的相关性阈值。距离严格大于该值的候选被丢弃。
// 这是一个固定常量，不在运行时推导。
const MaxDistance = 0.5

// RetrieverConfig 检索器配置。
type RetrieverConfig struct {
	// TopK 默认返回的结果数量。
	TopK int
}

// Retriever 负责语义检索。对向量索引做最近邻查询，
// 并按距离阈值和可选的最低分数过滤。
type Retriever struct {
	index         store.VectorIndex
	embedProvider llm.EmbeddingProvider
	config        *RetrieverConfig
}

// NewRetriever 创建检索器实例。
func NewRetriever(
	index store.VectorIndex,
	embedProvider llm.EmbeddingProvider,
	config *RetrieverConfig,
) *Retriever {
	return &Retriever{
		index:         index,
		embedProvider: embedProvider,
		config:        config,
	}
}

// Search 执行语义检索。空白查询直接返回空结果，不是错误。
// 结果保持索引返回的距离升序，分数为 1 - 距离，保留 4 位小数。
// minScore 为 nil 时不做最低分数过滤。
func (r *Retriever) Search(ctx context.Context, query string, topK int, minScore *float64) ([]model.Candidate, error) {
	if strings.TrimSpace(query) == "" {
		return []model.Candidate{}, nil
	}

	if topK <= 0 {
		topK = r.config.TopK
	}

	embedding, err := r.embedProvider.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := r.index.Search(ctx, embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search vector index: %w", err)
	}

	candidates := make([]model.Candidate, 0, len(matches))
	for _, m := range matches {
		// 阈值比较是严格大于，距离恰好等于 MaxDistance 的候选保留。
		if m.Distance > MaxDistance {
			continue
		}
		score := round4(1 - m.Distance)
		if minScore != nil && score < *minScore {
			continue
		}
		candidates = append(candidates, model.Candidate{
			BookID: m.BookID,
			Score:  score,
		})
	}

	logger.Infow("semantic search completed",
		"top_k", topK,
		"raw_matches", len(matches),
		"candidates", len(candidates),
	)

	return candidates, nil
}

// round4 将分数保留 4 位小数，保证测试和日志中的可复现性。
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
