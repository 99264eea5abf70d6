// Package librarian provides the librarian service server implementation.
package librarian

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/librarian/internal/librarian/biz"
	"github.com/kart-io/librarian/internal/librarian/handler"
	"github.com/kart-io/librarian/internal/librarian/router"
	"github.com/kart-io/librarian/internal/librarian/store"
	milvuscomponent "github.com/kart-io/librarian/pkg/component/milvus"
	postgrescomponent "github.com/kart-io/librarian/pkg/component/postgres"
	"github.com/kart-io/librarian/pkg/llm"
	// 导入 LLM 供应商以自动注册
	_ "github.com/kart-io/librarian/pkg/llm/gemini"
	_ "github.com/kart-io/librarian/pkg/llm/ollama"
	_ "github.com/kart-io/librarian/pkg/llm/openai"
	assistantopts "github.com/kart-io/librarian/pkg/options/assistant"
	cacheopts "github.com/kart-io/librarian/pkg/options/cache"
	llmopts "github.com/kart-io/librarian/pkg/options/llm"
	logopts "github.com/kart-io/librarian/pkg/options/logger"
	milvusopts "github.com/kart-io/librarian/pkg/options/milvus"
	postgresopts "github.com/kart-io/librarian/pkg/options/postgres"
	httpopts "github.com/kart-io/librarian/pkg/options/server/http"
	"github.com/kart-io/librarian/pkg/server"
)

// Name is the name of the application.
const Name = "librarian"

// Config contains application-related configurations.
type Config struct {
	HTTPOptions      *httpopts.Options
	LogOptions       *logopts.Options
	MilvusOptions    *milvusopts.Options
	PostgresOptions  *postgresopts.Options
	EmbeddingOptions *llmopts.ProviderOptions
	ChatOptions      *llmopts.ProviderOptions
	AssistantOptions *assistantopts.Options
	CacheOptions     *cacheopts.Options
}

// Server represents the librarian server.
type Server struct {
	srv           *server.Server
	milvusClose   func()
	postgresClose func()
	redisClose    func()
}

// NewServer initializes and returns a new Server instance.
func (cfg *Config) NewServer(ctx context.Context) (*Server, error) {
	// 1. 初始化日志
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting librarian service...")

	// 2. 初始化 Milvus 客户端
	milvusClient, err := milvuscomponent.New(cfg.MilvusOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize milvus: %w", err)
	}
	logger.Info("Milvus client initialized")

	// 3. 初始化 Postgres 客户端
	postgresClient, err := postgrescomponent.NewWithContext(ctx, cfg.PostgresOptions)
	if err != nil {
		_ = milvusClient.Close(context.Background())
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}
	logger.Info("Postgres client initialized")

	// 4. 初始化 Store 层
	vectorIndex := store.NewMilvusIndex(milvusClient, cfg.AssistantOptions.Collection)
	bookStore := store.NewGormBookStore(postgresClient.DB())
	logger.Info("Store layer initialized")

	// 5. 初始化 Redis 回答缓存（可选）
	var answerCache *biz.AnswerCache
	var redisClose func()
	if cfg.CacheOptions.Enabled {
		redisOpts := cfg.CacheOptions.Redis
		if redisOpts == nil {
			logger.Warn("Cache is enabled but no Redis configuration provided in CacheOptions")
		} else {
			redisClient := goredis.NewClient(&goredis.Options{
				Addr:         fmt.Sprintf("%s:%d", redisOpts.Host, redisOpts.Port),
				Password:     redisOpts.Password,
				DB:           redisOpts.Database,
				MaxRetries:   redisOpts.MaxRetries,
				PoolSize:     redisOpts.PoolSize,
				MinIdleConns: redisOpts.MinIdleConns,
			})

			if err := redisClient.Ping(ctx).Err(); err != nil {
				logger.Warnw("failed to connect to redis, cache will be disabled", "error", err.Error())
				_ = redisClient.Close()
			} else {
				answerCache = biz.NewAnswerCache(redisClient, &biz.AnswerCacheConfig{
					Enabled:   true,
					TTL:       cfg.CacheOptions.TTL,
					KeyPrefix: cfg.CacheOptions.KeyPrefix,
				})
				redisClose = func() { _ = redisClient.Close() }
				logger.Infow("Redis cache initialized",
					"host", redisOpts.Host,
					"port", redisOpts.Port,
					"ttl", cfg.CacheOptions.TTL,
				)
			}
		}
	} else {
		logger.Info("Cache is disabled")
	}

	// 6. 初始化 LLM 供应商
	embedProvider, err := llm.NewEmbeddingProvider(cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	logger.Infow("Embedding provider initialized",
		"provider", cfg.EmbeddingOptions.Provider,
		"model", cfg.EmbeddingOptions.Model,
	)

	chatProvider, err := llm.NewChatProvider(cfg.ChatOptions.Provider, cfg.ChatOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat provider: %w", err)
	}
	logger.Infow("Chat provider initialized",
		"provider", cfg.ChatOptions.Provider,
		"model", cfg.ChatOptions.Model,
	)

	// 7. 初始化 Biz 层
	service := biz.NewLibrarianService(vectorIndex, bookStore, embedProvider, chatProvider, answerCache, &biz.ServiceConfig{
		RetrieverConfig: &biz.RetrieverConfig{
			TopK: cfg.AssistantOptions.TopK,
		},
		GeneratorConfig: &biz.GeneratorConfig{
			PromptTemplate: cfg.AssistantOptions.PromptTemplate,
		},
		MaxDescriptionChars: cfg.AssistantOptions.MaxDescriptionChars,
	})
	logger.Infow("Librarian service initialized",
		"collection", cfg.AssistantOptions.Collection,
		"top_k", cfg.AssistantOptions.TopK,
		"cache.enabled", answerCache != nil,
	)

	// 8. 初始化 Handler 层和路由
	assistantHandler := handler.NewAssistantHandler(service)
	srv := server.New(cfg.HTTPOptions)
	router.Register(srv, assistantHandler)

	logger.Info("Librarian service is ready")
	return &Server{
		srv:           srv,
		milvusClose:   func() { _ = milvusClient.Close(context.Background()) },
		postgresClose: func() { _ = postgresClient.Close() },
		redisClose:    redisClose,
	}, nil
}

// Run starts the server and blocks until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	defer func() {
		if s.milvusClose != nil {
			s.milvusClose()
		}
		if s.postgresClose != nil {
			s.postgresClose()
		}
		if s.redisClose != nil {
			s.redisClose()
		}
	}()
	return s.srv.Run(ctx)
}
