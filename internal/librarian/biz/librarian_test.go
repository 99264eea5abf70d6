package biz

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/librarian/internal/model"
)

func testBooks() []model.Book {
	return []model.Book{
		{BookID: "b1", Title: "The Hobbit", Author: "J.R.R. Tolkien", Genres: "Fantasy", Details: "A hobbit goes on an adventure."},
		{BookID: "b2", Title: "Mistborn", Author: "Brandon Sanderson", Genres: "Fantasy", Details: "A street urchin discovers magic."},
		{BookID: "b3", Title: "Dune", Author: "Frank Herbert", Genres: "Science Fiction", Details: "A desert planet holds a precious resource."},
	}
}

func TestBuildContextEnumeration(t *testing.T) {
	b := NewContextBuilder(200)

	contextText, citations := b.Build(testBooks())

	lines := strings.Split(contextText, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "[1] The Hobbit | J.R.R. Tolkien | Fantasy | A hobbit goes on an adventure.", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "[2] Mistborn"))
	assert.True(t, strings.HasPrefix(lines[2], "[3] Dune"))

	assert.Equal(t, map[string]string{
		"[1]": "b1",
		"[2]": "b2",
		"[3]": "b3",
	}, citations)
}

func TestBuildContextTruncatesDescription(t *testing.T) {
	b := NewContextBuilder(10)

	books := []model.Book{
		{BookID: "b1", Title: "T", Author: "A", Genres: "G", Details: strings.Repeat("x", 50)},
	}
	contextText, _ := b.Build(books)

	assert.Equal(t, "[1] T | A | G | "+strings.Repeat("x", 10), contextText)
}

func TestBuildContextEmptyList(t *testing.T) {
	b := NewContextBuilder(200)

	contextText, citations := b.Build(nil)

	assert.Equal(t, noBooksContext, contextText)
	assert.Empty(t, citations)
}

func TestBuildContextDefaultTruncation(t *testing.T) {
	b := NewContextBuilder(0)
	assert.Equal(t, DefaultMaxDescriptionChars, b.MaxDescriptionChars)
}

func TestReviewAnswerAccepted(t *testing.T) {
	citationMap := map[string]string{"[1]": "b1", "[2]": "b2", "[3]": "b3"}

	answer, citations := ReviewAnswer("  The Hobbit [1] and Mistborn [2] both feature unlikely heroes.  ", citationMap)

	assert.Equal(t, "The Hobbit [1] and Mistborn [2] both feature unlikely heroes.", answer)
	// 只有实际出现在文中的标记进入引用映射
	assert.Equal(t, map[string]string{"[1]": "b1", "[2]": "b2"}, citations)
}

func TestReviewAnswerRefusalSignalOverridesCitations(t *testing.T) {
	citationMap := map[string]string{"[1]": "b1"}

	answer, citations := ReviewAnswer("Based on [1], I don't have ENOUGH INFORMATION to say.", citationMap)

	assert.Equal(t, RefusalAnswer, answer)
	assert.Empty(t, citations)
}

func TestReviewAnswerNoCitationsRefused(t *testing.T) {
	citationMap := map[string]string{"[1]": "b1", "[2]": "b2"}

	answer, citations := ReviewAnswer("Dragons are generally fond of gold.", citationMap)

	assert.Equal(t, RefusalAnswer, answer)
	assert.Empty(t, citations)
}

func TestReviewAnswerCitationLiteralism(t *testing.T) {
	citationMap := map[string]string{"[1]": "b1", "[2]": "b2", "[3]": "b3"}

	answer, citations := ReviewAnswer("Both stories [1][2] involve chosen ones.", citationMap)

	require.NotEqual(t, RefusalAnswer, answer)
	for marker := range citations {
		assert.Contains(t, answer, marker)
	}
	assert.NotContains(t, citations, "[3]")
}
