package domain

import "strings"

// Query is a normalized product name
type Query struct {
	Raw    string
	Lower  string
	tokens []string
}

// NewQuery lower-cases name and splits it on whitespace, dropping empty tokens.
func NewQuery(name string) Query {
	lower := LowerText(name)
	return Query{
		Raw:    name,
		Lower:  lower,
		tokens: strings.Fields(lower),
	}
}

// Tokens returns a copy of the query tokens in order.
func (q Query) Tokens() []string {
	out := make([]string, len(q.tokens))
	copy(out, q.tokens)
	return out
}

// IsEmpty reports whether the query has no tokens. An empty query matches every name.
func (q Query) IsEmpty() bool {
	return len(q.tokens) == 0
}

// ResultFragment is one raw search result entry as scraped from the page.
// Empty fields mean the sub-element was absent.
type ResultFragment struct {
	Name      string `json:"name"`
	PriceText string `json:"priceText,omitempty"`
	Link      string `json:"link,omitempty"`
	// ExtractError is set when a sub-element was present but could not be read.
	ExtractError string `json:"extractError,omitempty"`
}

// Offer is an accepted price and link pair
type Offer struct {
	Price float64 `json:"price"`
	Link  string  `json:"link"`
}
