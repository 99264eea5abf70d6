package store

import (
	"context"
	"fmt"

	"github.com/kart-io/librarian/pkg/component/milvus"
)

// MilvusIndex 实现基于 Milvus 的向量索引。
type MilvusIndex struct {
	client     *milvus.Client
	collection string
}

// NewMilvusIndex 创建 Milvus 索引实例。
func NewMilvusIndex(client *milvus.Client, collection string) *MilvusIndex {
	return &MilvusIndex{
		client:     client,
		collection: collection,
	}
}

// Search 执行向量相似度搜索，结果按距离升序排列。
func (s *MilvusIndex) Search(ctx context.Context, embedding []float32, topK int) ([]VectorMatch, error) {
	hits, err := s.client.SearchByVector(ctx, s.collection, embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search milvus: %w", err)
	}

	matches := make([]VectorMatch, len(hits))
	for i, h := range hits {
		matches[i] = VectorMatch{
			BookID:   h.ID,
			Distance: float64(h.Distance),
		}
	}

	return matches, nil
}

// Count 返回集合中的条目数。
func (s *MilvusIndex) Count(ctx context.Context) (int64, error) {
	return s.client.GetCollectionStats(ctx, s.collection)
}

// Close 关闭 Milvus 连接。
func (s *MilvusIndex) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

// 确保 MilvusIndex 实现了 VectorIndex 接口。
var _ VectorIndex = (*MilvusIndex)(nil)
