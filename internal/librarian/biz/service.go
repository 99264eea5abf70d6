package biz

import (
	"context"
	"errors"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/kart-io/librarian/internal/librarian/store"
	"github.com/kart-io/librarian/internal/model"
	"github.com/kart-io/librarian/pkg/llm"
)

// ErrUpstream 标记向量索引或模型服务不可用。调用方以此区分
// 服务故障和正常拒答，两者不可混淆。
var ErrUpstream = errors.New("upstream service unavailable")

// AskRequest 一次问答请求。
type AskRequest struct {
	// Question 用户问题。
	Question string
	// TopK 检索返回数量，不为正时使用配置默认值。
	TopK int
	// MinScore 可选的最低分数过滤。
	MinScore *float64
	// BookIDs 显式指定图书集。非空时完全跳过检索，
	// 直接按该顺序取书构建上下文。
	BookIDs []string
}

// Service 定义问答服务接口。
type Service interface {
	// Ask 执行一次完整的问答流水线。
	Ask(ctx context.Context, req *AskRequest) (*model.AskResult, error)
	// Stats 获取知识库统计信息。
	Stats(ctx context.Context) (map[string]any, error)
}

// LibrarianService 组合检索、取书、上下文构建、生成和依据判定，
// 提供完整的问答服务。每次请求在单个流水线内顺序执行，
// 服务自身不持有可变状态，可安全并发调用。
type LibrarianService struct {
	retriever      *Retriever
	generator      *Generator
	contextBuilder *ContextBuilder
	cache          *AnswerCache
	index          store.VectorIndex
	books          store.BookStore
	embedProvider  llm.EmbeddingProvider
	chatProvider   llm.ChatProvider
}

// ServiceConfig 问答服务配置。
type ServiceConfig struct {
	RetrieverConfig     *RetrieverConfig
	GeneratorConfig     *GeneratorConfig
	AnswerCacheConfig   *AnswerCacheConfig
	MaxDescriptionChars int
}

// NewLibrarianService 创建问答服务实例。
func NewLibrarianService(
	index store.VectorIndex,
	books store.BookStore,
	embedProvider llm.EmbeddingProvider,
	chatProvider llm.ChatProvider,
	cache *AnswerCache,
	config *ServiceConfig,
) *LibrarianService {
	return &LibrarianService{
		retriever:      NewRetriever(index, embedProvider, config.RetrieverConfig),
		generator:      NewGenerator(chatProvider, config.GeneratorConfig),
		contextBuilder: NewContextBuilder(config.MaxDescriptionChars),
		cache:          cache,
		index:          index,
		books:          books,
		embedProvider:  embedProvider,
		chatProvider:   chatProvider,
	}
}

// Ask 执行一次问答。流程：检索（或显式图书集）→ 取书 → 构建上下文 →
// 生成 → 依据判定。返回的结果只有两种合法形态：带至少一条引用的回答，
// 或固定拒答句加空引用映射。
func (s *LibrarianService) Ask(ctx context.Context, req *AskRequest) (*model.AskResult, error) {
	// 1. 尝试缓存
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, req.Question, req.TopK, req.BookIDs); err == nil && cached != nil {
			return cached, nil
		}
	}

	// 2. 确定候选图书 ID
	var ids []string
	if len(req.BookIDs) > 0 {
		// 显式图书集路径，完全绕过检索。
		ids = req.BookIDs
		logger.Infow("using explicit book ids", "count", len(ids))
	} else {
		candidates, err := s.retriever.Search(ctx, req.Question, req.TopK, req.MinScore)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		ids = make([]string, len(candidates))
		for i, c := range candidates {
			ids[i] = c.BookID
		}
	}

	// 3. 按检索顺序取书，未知 ID 静默跳过
	sources, err := s.books.FetchByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	// 4. 构建上下文和引用映射
	contextText, citationMap := s.contextBuilder.Build(sources)

	// 5. 空上下文直接拒答，不调用生成器
	if len(sources) == 0 {
		logger.Infow("no grounded sources, refusing", "question_length", len(req.Question))
		return &model.AskResult{
			Question:  req.Question,
			Answer:    RefusalAnswer,
			Citations: map[string]string{},
			Sources:   []model.Book{},
		}, nil
	}

	// 6. 生成并判定
	raw, err := s.generator.GenerateAnswer(ctx, req.Question, contextText)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	answer, citations := ReviewAnswer(raw, citationMap)

	result := &model.AskResult{
		Question:  req.Question,
		Answer:    answer,
		Citations: citations,
		Sources:   sources,
	}

	// 7. 写缓存，失败不影响返回
	if s.cache != nil {
		_ = s.cache.Set(ctx, req.Question, req.TopK, req.BookIDs, result)
	}

	return result, nil
}

// Stats 获取知识库统计信息。
func (s *LibrarianService) Stats(ctx context.Context) (map[string]any, error) {
	indexCount, err := s.index.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	bookCount, err := s.books.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	stats := map[string]any{
		"indexed_vectors": indexCount,
		"book_count":      bookCount,
		"embed_provider":  s.embedProvider.Name(),
		"chat_provider":   s.chatProvider.Name(),
	}

	if s.cache != nil {
		if cacheStats, err := s.cache.Stats(ctx); err == nil {
			stats["cache"] = cacheStats
		}
	}

	return stats, nil
}

// 确保 LibrarianService 实现了 Service 接口。
var _ Service = (*LibrarianService)(nil)
