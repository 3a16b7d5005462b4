package domain

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// textLanguage drives lower-casing of product names and policy terms (the shopping results are pt-BR)
var textLanguage = language.BrazilianPortuguese

// LowerText lower-cases text for matching. Queries, policy terms and scraped
// names all go through it so context-sensitive letters fold the same way.
// A new Caser is created per call because Casers are not safe for concurrent use.
func LowerText(s string) string {
	if s == "" {
		return ""
	}
	return cases.Lower(textLanguage).String(s)
}
