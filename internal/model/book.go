// Package model defines the domain data structures shared across layers.
package model

// Book is a catalog entry as stored in the relational database.
type Book struct {
	BookID        string `json:"book_id" gorm:"column:book_id;primaryKey"`
	Title         string `json:"book_title" gorm:"column:book_title"`
	Author        string `json:"author" gorm:"column:author"`
	Genres        string `json:"genres" gorm:"column:genres"`
	Details       string `json:"book_details" gorm:"column:book_details"`
	NumPages      int    `json:"num_pages" gorm:"column:num_pages"`
	CoverImageURL string `json:"cover_image_url" gorm:"column:cover_image_url"`
}

// TableName maps Book to the books table.
func (Book) TableName() string {
	return "books"
}

// Candidate is a retrieval hit that passed the distance threshold.
// Score is a similarity in [0,1], already rounded for presentation.
type Candidate struct {
	BookID string  `json:"book_id"`
	Score  float64 `json:"score"`
}

// AskResult is the outcome of one question-answering run.
type AskResult struct {
	// Question is the original user question, echoed back.
	Question string `json:"question"`

	// Answer is either a grounded answer citing sources or the fixed
	// refusal sentence.
	Answer string `json:"answer"`

	// Citations maps citation markers like "[1]" to book ids.
	Citations map[string]string `json:"citations"`

	// Sources lists the books that backed the answer, in context order.
	Sources []Book `json:"sources"`
}
