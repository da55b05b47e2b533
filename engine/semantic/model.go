package semantic

import "github.com/google/uuid"

// Record is one article entry to persist in the vector collection.
type Record struct {
	// ArticleID is the LEGI identifier; it alone determines idempotency.
	ArticleID string
	Embedding []float32
	// Document is the article's embedding blob, stored as the point's
	// document text and returned verbatim by Query.
	Document string
	// Meta holds the citation metadata {article_id, num, category, url}.
	Meta Meta
}

// Meta is the metadata payload stored with each point.
type Meta struct {
	ArticleID string
	Num       string
	Category  string
	URL       string
}

// Hit is a single nearest-neighbor match.
type Hit struct {
	// Score is the store's native distance; lower means more similar.
	Score    float64
	Document string
	Meta     map[string]string
}

// PointID derives the deterministic point UUID for an article id. One article
// id always maps to the same point, which is what makes upserts idempotent.
func PointID(articleID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(articleID)).String()
}
