package store

import (
	"context"

	"github.com/kart-io/librarian/internal/model"
)

// VectorMatch 表示向量索引的一次命中。
type VectorMatch struct {
	// BookID 命中的图书 ID。
	BookID string
	// Distance 与查询向量的余弦距离，越小越相似。
	Distance float64
}

// VectorIndex 定义向量索引接口。索引为只读，建库由离线流水线完成。
type VectorIndex interface {
	// Search 按向量相似度检索，结果按距离升序排列。
	Search(ctx context.Context, embedding []float32, topK int) ([]VectorMatch, error)

	// Count 返回索引中的向量条目数。
	Count(ctx context.Context) (int64, error)

	// Close 关闭连接。
	Close(ctx context.Context) error
}

// BookStore 定义图书元数据存储接口。
type BookStore interface {
	// FetchByIDs 按 ID 批量获取图书，结果顺序与传入 ID 顺序一致。
	FetchByIDs(ctx context.Context, ids []string) ([]model.Book, error)

	// Count 返回图书总数。
	Count(ctx context.Context) (int64, error)
}
