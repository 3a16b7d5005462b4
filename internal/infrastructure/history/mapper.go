package history

import (
	"strings"
	"time"

	"github.com/pricesheet/worker/internal/domain"
)

type offerDocument struct {
	Price float64 `bson:"price"`
	Link  string  `bson:"link"`
}

type snapshotDocument struct {
	ProductKey  string          `bson:"product_key"`
	ProductName string          `bson:"product_name"`
	Query       string          `bson:"query"`
	Row         int             `bson:"row"`
	Offers      []offerDocument `bson:"offers"`
	OfferCount  int             `bson:"offer_count"`
	MinPrice    *float64        `bson:"min_price,omitempty"`
	SearchedAt  time.Time       `bson:"searched_at"`
}

// productKey folds a product name for lookups.
func productKey(name string) string {
	return domain.LowerText(strings.Join(strings.Fields(name), " "))
}

func toDocument(s domain.Snapshot) snapshotDocument {
	doc := snapshotDocument{
		ProductKey:  productKey(s.ProductName),
		ProductName: s.ProductName,
		Query:       s.Query,
		Row:         s.RowIndex,
		Offers:      make([]offerDocument, 0, len(s.Offers)),
		OfferCount:  len(s.Offers),
		SearchedAt:  s.SearchedAt.UTC(),
	}

	for _, o := range s.Offers {
		doc.Offers = append(doc.Offers, offerDocument{Price: o.Price, Link: o.Link})
		if doc.MinPrice == nil || o.Price < *doc.MinPrice {
			p := o.Price
			doc.MinPrice = &p
		}
	}

	return doc
}

func fromDocument(doc snapshotDocument) domain.Snapshot {
	offers := make([]domain.Offer, 0, len(doc.Offers))
	for _, o := range doc.Offers {
		offers = append(offers, domain.Offer{Price: o.Price, Link: o.Link})
	}

	return domain.Snapshot{
		ProductName: doc.ProductName,
		Query:       doc.Query,
		RowIndex:    doc.Row,
		Offers:      offers,
		SearchedAt:  doc.SearchedAt,
	}
}
