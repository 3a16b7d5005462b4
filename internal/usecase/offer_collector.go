package usecase

import (
	"log"

	"github.com/pricesheet/worker/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Report counts the outcome of a collection pass
type Report struct {
	Total    int                  `json:"total"`
	Accepted int                  `json:"accepted"`
	Rejected map[RejectReason]int `json:"rejected"`
}

// CollectorConfig holds configuration for the offer collector
type CollectorConfig struct {
	// Parallelism > 1 evaluates fragments concurrently; output order is unaffected.
	Parallelism        int
	EnableDebugLogging bool
}

// OfferCollector runs the offer filter over a page of fragments
type OfferCollector struct {
	filter             *OfferFilter
	parallelism        int
	enableDebugLogging bool
}

// NewOfferCollector creates a new collector around filter
func NewOfferCollector(filter *OfferFilter, config CollectorConfig) *OfferCollector {
	parallelism := config.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}

	return &OfferCollector{
		filter:             filter,
		parallelism:        parallelism,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// Collect returns the accepted offers in page order. It does not truncate.
func (c *OfferCollector) Collect(query domain.Query, fragments []domain.ResultFragment) []domain.Offer {
	offers, _ := c.CollectWithReport(query, fragments)
	return offers
}

// CollectWithReport is Collect plus per-reason rejection counts.
func (c *OfferCollector) CollectWithReport(query domain.Query, fragments []domain.ResultFragment) ([]domain.Offer, Report) {
	results := c.evaluateAll(query, fragments)

	report := Report{
		Total:    len(fragments),
		Rejected: make(map[RejectReason]int),
	}
	offers := make([]domain.Offer, 0, len(results))
	for _, r := range results {
		if r.reason != Accepted {
			report.Rejected[r.reason]++
			continue
		}
		offers = append(offers, r.offer)
	}
	report.Accepted = len(offers)

	if c.enableDebugLogging {
		log.Printf("[COLLECT] %q: %d fragments, %d accepted, rejected %v",
			query.Raw, report.Total, report.Accepted, report.Rejected)
	}

	return offers, report
}

type evaluation struct {
	offer  domain.Offer
	reason RejectReason
}

// evaluateAll fills one slot per fragment so the page order survives parallel evaluation
func (c *OfferCollector) evaluateAll(query domain.Query, fragments []domain.ResultFragment) []evaluation {
	results := make([]evaluation, len(fragments))

	if c.parallelism == 1 || len(fragments) < 2 {
		for i, fragment := range fragments {
			offer, reason := c.filter.Evaluate(query, fragment)
			results[i] = evaluation{offer: offer, reason: reason}
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(c.parallelism)
	for i := range fragments {
		i := i
		g.Go(func() error {
			offer, reason := c.filter.Evaluate(query, fragments[i])
			results[i] = evaluation{offer: offer, reason: reason}
			return nil
		})
	}
	// evaluation never fails
	_ = g.Wait()

	return results
}
