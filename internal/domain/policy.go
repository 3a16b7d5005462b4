package domain

import "strings"

// DefaultMaxOffers is the number of offers written per product when unset.
const DefaultMaxOffers = 10

// Default policy terms for the Brazilian shopping results.
var (
	DefaultBannedTerms      = []string{"usado", "used", "kit", "controle remoto", "hélices", "airdrop", "maleta"}
	DefaultFeeTerms         = []string{"taxas", "impostos"}
	DefaultUntrustedDomains = []string{"shopee", "aliexpress", "alibaba", "temu"}
	DefaultCurrencySymbols  = []string{"R$"}
)

// Policy is the read-only set of filtering rules. Build it with NewPolicy.
type Policy struct {
	bannedTerms      []string
	feeTerms         []string
	untrustedDomains []string
	currencySymbols  []string
	maxOffers        int
}

// PolicyConfig holds the raw values a Policy is built from
type PolicyConfig struct {
	BannedTerms      []string
	FeeTerms         []string
	UntrustedDomains []string
	CurrencySymbols  []string
	MaxOffers        int
}

// NewPolicy copies and lower-cases the configured terms. Blank terms are dropped
// since an empty term would match every text.
func NewPolicy(cfg PolicyConfig) Policy {
	maxOffers := cfg.MaxOffers
	if maxOffers <= 0 {
		maxOffers = DefaultMaxOffers
	}

	return Policy{
		bannedTerms:      lowerTerms(cfg.BannedTerms),
		feeTerms:         lowerTerms(cfg.FeeTerms),
		untrustedDomains: lowerTerms(cfg.UntrustedDomains),
		currencySymbols:  trimTerms(cfg.CurrencySymbols),
		maxOffers:        maxOffers,
	}
}

// DefaultPolicy returns the built-in policy
func DefaultPolicy() Policy {
	return NewPolicy(PolicyConfig{
		BannedTerms:      DefaultBannedTerms,
		FeeTerms:         DefaultFeeTerms,
		UntrustedDomains: DefaultUntrustedDomains,
		CurrencySymbols:  DefaultCurrencySymbols,
		MaxOffers:        DefaultMaxOffers,
	})
}

func (p Policy) BannedTerms() []string      { return cloneTerms(p.bannedTerms) }
func (p Policy) FeeTerms() []string         { return cloneTerms(p.feeTerms) }
func (p Policy) UntrustedDomains() []string { return cloneTerms(p.untrustedDomains) }
func (p Policy) CurrencySymbols() []string  { return cloneTerms(p.currencySymbols) }
func (p Policy) MaxOffers() int             { return p.maxOffers }

func lowerTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = LowerText(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// currency symbols keep their case ("R$" vs "r$" both appear in the wild, the
// parser strips case-insensitively)
func trimTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func cloneTerms(terms []string) []string {
	out := make([]string, len(terms))
	copy(out, terms)
	return out
}
