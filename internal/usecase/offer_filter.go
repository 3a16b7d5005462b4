package usecase

import (
	"log"

	"github.com/pricesheet/worker/internal/domain"
)

// RejectReason says which check a fragment failed. Accepted means it passed all of them.
type RejectReason string

const (
	Accepted              RejectReason = ""
	RejectMalformed       RejectReason = "malformed"
	RejectMissingName     RejectReason = "missing_name"
	RejectBannedTerm      RejectReason = "banned_term"
	RejectMissingTokens   RejectReason = "missing_tokens"
	RejectMissingPrice    RejectReason = "missing_price"
	RejectFeeMarker       RejectReason = "fee_marker"
	RejectUnparsablePrice RejectReason = "unparsable_price"
	RejectMissingLink     RejectReason = "missing_link"
	RejectUntrustedDomain RejectReason = "untrusted_domain"
)

// FilterConfig holds configuration for the offer filter
type FilterConfig struct {
	Policy             domain.Policy
	EnableDebugLogging bool
}

// OfferFilter decides whether a single result fragment becomes an offer
type OfferFilter struct {
	policy             domain.Policy
	bannedTerms        []string
	untrustedDomains   []string
	priceParser        *PriceParser
	enableDebugLogging bool
}

// NewOfferFilter creates a new offer filter for the given policy
func NewOfferFilter(config FilterConfig) *OfferFilter {
	return &OfferFilter{
		policy:             config.Policy,
		bannedTerms:        config.Policy.BannedTerms(),
		untrustedDomains:   config.Policy.UntrustedDomains(),
		priceParser:        NewPriceParser(config.Policy),
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// Policy returns the policy the filter was built with
func (f *OfferFilter) Policy() domain.Policy {
	return f.policy
}

// Evaluate runs the fragment through the checks in a fixed order and stops at
// the first failure:
//
//	malformed/missing name -> banned term -> query tokens -> missing price ->
//	fee marker -> price parse -> missing link -> untrusted domain
//
// Missing or broken fields never produce an error, only a reject reason.
func (f *OfferFilter) Evaluate(query domain.Query, fragment domain.ResultFragment) (domain.Offer, RejectReason) {
	offer, reason := f.evaluate(query, fragment)

	if f.enableDebugLogging {
		if reason == Accepted {
			log.Printf("[FILTER] %q accepted: %.2f %s", fragment.Name, offer.Price, offer.Link)
		} else {
			log.Printf("[FILTER] %q rejected: %s", fragment.Name, reason)
		}
	}

	return offer, reason
}

func (f *OfferFilter) evaluate(query domain.Query, fragment domain.ResultFragment) (domain.Offer, RejectReason) {
	if fragment.ExtractError != "" {
		return domain.Offer{}, RejectMalformed
	}
	if fragment.Name == "" {
		return domain.Offer{}, RejectMissingName
	}

	name := LowerText(fragment.Name)
	if ContainsAnyTerm(f.bannedTerms, name) {
		return domain.Offer{}, RejectBannedTerm
	}
	if !MatchesAllTokens(query.Tokens(), name) {
		return domain.Offer{}, RejectMissingTokens
	}

	if fragment.PriceText == "" {
		return domain.Offer{}, RejectMissingPrice
	}
	if f.priceParser.HasFeeMarker(fragment.PriceText) {
		return domain.Offer{}, RejectFeeMarker
	}
	price, err := f.priceParser.Parse(fragment.PriceText)
	if err != nil {
		return domain.Offer{}, RejectUnparsablePrice
	}

	if fragment.Link == "" {
		return domain.Offer{}, RejectMissingLink
	}
	if !IsTrustedLink(f.untrustedDomains, fragment.Link) {
		return domain.Offer{}, RejectUntrustedDomain
	}

	return domain.Offer{Price: price, Link: fragment.Link}, Accepted
}
