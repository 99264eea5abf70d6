package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/librarian/internal/model"
)

// AnswerCacheConfig 回答缓存配置。
type AnswerCacheConfig struct {
	// Enabled 是否启用缓存。
	Enabled bool
	// TTL 缓存过期时间。
	TTL time.Duration
	// KeyPrefix 缓存键前缀。
	KeyPrefix string
}

// AnswerCache 回答结果缓存。流水线本身无状态，缓存只是可选的加速层，
// 缓存故障不影响正常问答。
type AnswerCache struct {
	redis  *goredis.Client
	config *AnswerCacheConfig
}

// NewAnswerCache 创建回答缓存实例。
func NewAnswerCache(redis *goredis.Client, config *AnswerCacheConfig) *AnswerCache {
	if config == nil {
		config = &AnswerCacheConfig{
			Enabled:   false,
			TTL:       1 * time.Hour,
			KeyPrefix: "librarian:ask:",
		}
	}
	return &AnswerCache{
		redis:  redis,
		config: config,
	}
}

// cacheKey 基于问题、topK 和显式图书集生成缓存键（SHA256 哈希）。
func (c *AnswerCache) cacheKey(question string, topK int, bookIDs []string) string {
	payload := fmt.Sprintf("%s|%d|%s", question, topK, strings.Join(bookIDs, ","))
	hash := sha256.Sum256([]byte(payload))
	return c.config.KeyPrefix + hex.EncodeToString(hash[:])
}

// Get 从缓存获取回答结果。未命中返回 (nil, nil)。
func (c *AnswerCache) Get(ctx context.Context, question string, topK int, bookIDs []string) (*model.AskResult, error) {
	if !c.config.Enabled || c.redis == nil {
		return nil, nil
	}

	key := c.cacheKey(question, topK, bookIDs)

	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			logger.Debugw("cache miss", "key", key)
			return nil, nil
		}
		logger.Warnw("failed to get from cache", "error", err.Error(), "key", key)
		return nil, err
	}

	var result model.AskResult
	if err := json.Unmarshal(data, &result); err != nil {
		logger.Warnw("failed to unmarshal cached result", "error", err.Error(), "key", key)
		_ = c.redis.Del(ctx, key).Err()
		return nil, err
	}

	logger.Infow("cache hit", "key", key, "answer_length", len(result.Answer))
	return &result, nil
}

// Set 将回答结果写入缓存。
func (c *AnswerCache) Set(ctx context.Context, question string, topK int, bookIDs []string, result *model.AskResult) error {
	if !c.config.Enabled || c.redis == nil {
		return nil
	}

	key := c.cacheKey(question, topK, bookIDs)

	data, err := json.Marshal(result)
	if err != nil {
		logger.Warnw("failed to marshal result for caching", "error", err.Error())
		return err
	}

	if err := c.redis.Set(ctx, key, data, c.config.TTL).Err(); err != nil {
		logger.Warnw("failed to set cache", "error", err.Error(), "key", key)
		return err
	}

	logger.Debugw("cached ask result", "key", key, "ttl", c.config.TTL)
	return nil
}

// Stats 获取缓存统计信息。
func (c *AnswerCache) Stats(ctx context.Context) (map[string]any, error) {
	if !c.config.Enabled || c.redis == nil {
		return map[string]any{
			"enabled": false,
		}, nil
	}

	pattern := c.config.KeyPrefix + "*"
	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()

	keyCount := 0
	for iter.Next(ctx) {
		keyCount++
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	return map[string]any{
		"enabled":    true,
		"key_count":  keyCount,
		"ttl":        c.config.TTL.String(),
		"key_prefix": c.config.KeyPrefix,
	}, nil
}
