package usecase

import (
	"strings"

	"github.com/pricesheet/worker/internal/domain"
)

// Normalize builds the query for a product name: lower-cased, whitespace
// tokenized, empty tokens dropped.
func Normalize(name string) domain.Query {
	return domain.NewQuery(name)
}

// LowerText lower-cases scraped text the same way queries and policy terms are.
func LowerText(s string) string {
	return domain.LowerText(s)
}

// MatchesAllTokens reports whether every token occurs in the lower-cased candidate.
// An empty token list matches everything; callers reject empty queries upstream.
func MatchesAllTokens(tokens []string, candidate string) bool {
	lower := LowerText(candidate)
	for _, token := range tokens {
		if !strings.Contains(lower, token) {
			return false
		}
	}
	return true
}

// ContainsAnyTerm reports whether any term occurs in the lower-cased candidate.
func ContainsAnyTerm(terms []string, candidate string) bool {
	lower := LowerText(candidate)
	for _, term := range terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}
