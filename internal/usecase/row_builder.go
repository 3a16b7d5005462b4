package usecase

import "github.com/pricesheet/worker/internal/domain"

// BuildRow keeps the first maxOffers offers in collector order (never re-sorted
// by price) and returns the row to write. It never sets a timestamp: callers
// stamp rows that actually have offers.
func BuildRow(productName string, offers []domain.Offer, maxOffers int) domain.ProductRow {
	row := domain.ProductRow{Name: productName}
	if len(offers) == 0 || maxOffers <= 0 {
		return row
	}

	n := min(len(offers), maxOffers)
	row.Offers = make([]domain.Offer, n)
	copy(row.Offers, offers[:n])
	return row
}
