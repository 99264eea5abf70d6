package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/kart-io/librarian/internal/model"
)

// GormBookStore 实现基于 GORM 的图书元数据存储。
type GormBookStore struct {
	db *gorm.DB
}

// NewGormBookStore 创建图书存储实例。
func NewGormBookStore(db *gorm.DB) *GormBookStore {
	return &GormBookStore{db: db}
}

// FetchByIDs 按 ID 批量获取图书。数据库按 IN 查询返回的顺序不确定，
// 这里按传入 ID 顺序重排，未知 ID 被跳过，重复 ID 只保留首次出现。
func (s *GormBookStore) FetchByIDs(ctx context.Context, ids []string) ([]model.Book, error) {
	if len(ids) == 0 {
		return []model.Book{}, nil
	}

	var rows []model.Book
	if err := s.db.WithContext(ctx).Where("book_id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch books: %w", err)
	}

	byID := make(map[string]model.Book, len(rows))
	for _, b := range rows {
		byID[b.BookID] = b
	}

	books := make([]model.Book, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if b, ok := byID[id]; ok {
			books = append(books, b)
		}
	}

	return books, nil
}

// Count 返回图书总数。
func (s *GormBookStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Book{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count books: %w", err)
	}
	return count, nil
}

// 确保 GormBookStore 实现了 BookStore 接口。
var _ BookStore = (*GormBookStore)(nil)
