package biz

import (
	"fmt"
	"strings"

	"github.com/kart-io/librarian/internal/model"
)

// RefusalAnswer 固定的拒答句。拒答时必须逐字返回这一句。
const RefusalAnswer = "I don’t have enough information from the available books to answer this question."

// refusalSignal 拒答信号子串，对生成文本做大小写不敏感匹配。
// 被接受的回答如果在引文中恰好包含该短语也会被判为拒答，
// 自我报告的拒答信号优先于任何引用标记。
const refusalSignal = "enough information"

// DefaultMaxDescriptionChars 上下文中单本书简介的默认截断长度。
const DefaultMaxDescriptionChars = 200

// noBooksContext 空文档列表对应的上下文文本。
const noBooksContext = "No books available."

// ContextBuilder 负责构建有界的枚举上下文和引用映射。
type ContextBuilder struct {
	// MaxDescriptionChars 单本书简介的截断长度。
	MaxDescriptionChars int
}

// NewContextBuilder 创建上下文构建器。maxDescriptionChars 不为正时使用默认值。
func NewContextBuilder(maxDescriptionChars int) *ContextBuilder {
	if maxDescriptionChars <= 0 {
		maxDescriptionChars = DefaultMaxDescriptionChars
	}
	return &ContextBuilder{MaxDescriptionChars: maxDescriptionChars}
}

// Build 按传入顺序枚举图书，每本一行，标记从 [1] 开始。
// 返回的引用映射以标记为键、图书 ID 为值，与行的顺序一致。
// 空列表返回 noBooksContext 和空映射，调用方必须直接走拒答路径，
// 不得携带空上下文调用生成器。
func (b *ContextBuilder) Build(books []model.Book) (string, map[string]string) {
	if len(books) == 0 {
		return noBooksContext, map[string]string{}
	}

	lines := make([]string, 0, len(books))
	citations := make(map[string]string, len(books))

	for i, book := range books {
		marker := fmt.Sprintf("[%d]", i+1)
		desc := truncateRunes(book.Details, b.MaxDescriptionChars)
		lines = append(lines, fmt.Sprintf("%s %s | %s | %s | %s",
			marker, book.Title, book.Author, book.Genres, desc))
		citations[marker] = book.BookID
	}

	return strings.Join(lines, "\n"), citations
}

// ReviewAnswer 是幻觉闸门。对生成的原始文本做四类判定：
// 拒答信号、零引用、以及调用方已处理的空上下文和生成失败。
// 接受时返回去除首尾空白的原文和实际出现在文中的引用子集，
// 拒答时返回固定拒答句和空映射。
func ReviewAnswer(raw string, citationMap map[string]string) (string, map[string]string) {
	answer := strings.TrimSpace(raw)

	if strings.Contains(strings.ToLower(answer), refusalSignal) {
		return RefusalAnswer, map[string]string{}
	}

	used := make(map[string]string, len(citationMap))
	for marker, bookID := range citationMap {
		if strings.Contains(answer, marker) {
			used[marker] = bookID
		}
	}

	// 一条引用都没有的回答视为无依据，无论内容看起来多正确。
	if len(used) == 0 {
		return RefusalAnswer, map[string]string{}
	}

	return answer, used
}

// truncateRunes 按字符数截断，避免把多字节字符截成半个。
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
