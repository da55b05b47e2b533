// Package domain defines the core legal-article types and validation for the
// LégiRoute engine pipeline. It acts as the validation gate at pipeline entry
// points: extraction, dataset loading, and retrieval rehydration all construct
// articles through NewArticle.
package domain

import (
	"strings"
	"unicode/utf8"
)

// DefaultContext is the root label used when an article has no resolvable
// ancestor hierarchy.
const DefaultContext = "Code de la Route"

// citationBase is the Légifrance article URL template; the article id is
// appended verbatim.
const citationBase = "https://www.legifrance.gouv.fr/codes/article_lc/"

// minContentLength is the minimum trimmed content length accepted by NewArticle.
const minContentLength = 5

// Article represents a single article of the French traffic code.
// It is immutable after construction; derived values are computed on demand
// so they stay a pure function of the fields.
type Article struct {
	// ID is the unique LEGI identifier (e.g. LEGIARTI000006841193).
	ID string `json:"id"`
	// Number is the human-readable citation (e.g. R413-17).
	Number string `json:"article_number"`
	// Content is the raw article text.
	Content string `json:"content"`
	// Context is the hierarchical path of ancestor section titles,
	// joined by " > ".
	Context string `json:"context"`
	// URL is an optional stored citation URL. Empty means "derive from ID".
	URL string `json:"url,omitempty"`
}

// NewArticle validates raw fields and constructs an Article.
// It fails with a *ValidationError when id or number is empty, or when the
// trimmed content is shorter than 5 characters.
func NewArticle(id, number, content, context string) (Article, error) {
	if id == "" {
		return Article{}, NewValidationError("id", id, ErrMissingID)
	}
	if number == "" {
		return Article{}, NewValidationError("article_number", number, ErrMissingNumber)
	}
	if utf8.RuneCountInString(strings.TrimSpace(content)) < minContentLength {
		return Article{}, NewValidationError("content", content, ErrContentTooShort)
	}
	if context == "" {
		context = DefaultContext
	}
	return Article{ID: id, Number: number, Content: content, Context: context}, nil
}

// EmbeddingBlob returns the text embedded and stored for this article.
// The exact byte layout matters: it doubles as the vector store's document
// text, so identical fields must always yield an identical blob.
func (a Article) EmbeddingBlob() string {
	return a.Context + " \nArticle " + a.Number + " : " + a.Content
}

// CitationURL returns the official Légifrance URL for this article.
// A stored URL (set during rehydration) takes precedence.
func (a Article) CitationURL() string {
	if a.URL != "" {
		return a.URL
	}
	return citationBase + a.ID
}

// RetrievalResult pairs an article with its similarity score from the vector
// store. Lower score means more similar. Results carry no ordering guarantee
// of their own; callers sort if they need to.
type RetrievalResult struct {
	Article Article `json:"article"`
	Score   float64 `json:"score"`
}
