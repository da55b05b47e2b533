package retrieval

import (
	"fmt"
	"strings"

	"github.com/legiroute/legiroute/engine/domain"
)

// NoArticlesFound is the sentinel context block emitted when retrieval came
// back empty; the generator's system prompt knows this phrase.
const NoArticlesFound = "AUCUN ARTICLE TROUVÉ."

// FilterByRelevance keeps the results whose distance is strictly below
// threshold. A score exactly equal to the threshold is excluded.
func FilterByRelevance(results []domain.RetrievalResult, threshold float64) []domain.RetrievalResult {
	kept := make([]domain.RetrievalResult, 0, len(results))
	for _, r := range results {
		if r.Score < threshold {
			kept = append(kept, r)
		}
	}
	return kept
}

// FormatContext renders retrieval results into the grounding text block fed
// to the generator: one numbered SOURCE section per result, in input order.
func FormatContext(results []domain.RetrievalResult) string {
	if len(results) == 0 {
		return NoArticlesFound
	}

	var b strings.Builder
	for i, res := range results {
		art := res.Article
		fmt.Fprintf(&b, "\n--- SOURCE %d : Article %s ---\n", i+1, art.Number)
		fmt.Fprintf(&b, "Chemin : %s\n", art.Context)
		fmt.Fprintf(&b, "Contenu : %s\n", art.Content)
		fmt.Fprintf(&b, "URL : %s\n", art.CitationURL())
	}
	return b.String()
}
