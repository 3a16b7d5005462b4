package usecase

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/pricesheet/worker/internal/domain"
)

// numericPriceRegex is what must remain of a price once symbols and separators are gone
var numericPriceRegex = regexp.MustCompile(`^\d+(\.\d+)?$`)

// PriceParser converts "thousands-dot, decimal-comma" price text ("R$ 1.234,56") to a number
type PriceParser struct {
	currencySymbols []string
	feeTerms        []string
}

// NewPriceParser creates a parser from the policy's currency symbols and fee terms
func NewPriceParser(policy domain.Policy) *PriceParser {
	return &PriceParser{
		currencySymbols: policy.CurrencySymbols(),
		feeTerms:        policy.FeeTerms(),
	}
}

// HasFeeMarker reports whether the price text mentions extra fees or taxes.
func (p *PriceParser) HasFeeMarker(raw string) bool {
	return ContainsAnyTerm(p.feeTerms, raw)
}

// Parse strips currency symbols and whitespace, drops the thousands separators
// and turns the decimal comma into a point. Anything but digits with an
// optional fraction left over is an error wrapping domain.ErrInvalidPrice.
func (p *PriceParser) Parse(raw string) (float64, error) {
	cleaned := raw
	for _, symbol := range p.currencySymbols {
		cleaned = removeFold(cleaned, symbol)
	}
	cleaned = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, cleaned)
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")

	if !numericPriceRegex.MatchString(cleaned) {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidPrice, raw)
	}

	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", domain.ErrInvalidPrice, raw, err)
	}
	return price, nil
}

// removeFold removes every case-insensitive occurrence of sub from s
func removeFold(s, sub string) string {
	if sub == "" {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		if i+len(sub) <= len(s) && strings.EqualFold(s[i:i+len(sub)], sub) {
			i += len(sub)
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}
