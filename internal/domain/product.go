package domain

import "time"

// TimestampLayout is the sheet format for the last-search timestamp (DD/MM/YYYY HH:MM:SS).
const TimestampLayout = "02/01/2006 15:04:05"

// ProductRef is one product name read from the sheet
type ProductRef struct {
	RowIndex int    `json:"row"`
	Name     string `json:"name"`
}

// ProductRow is the write model for one sheet row.
// Name is never written back; only the offer cells and the timestamp are.
type ProductRow struct {
	Name       string    `json:"name"`
	Offers     []Offer   `json:"offers"`
	SearchedAt time.Time `json:"searchedAt,omitempty"`
}

// Cells flattens the offers into price, link pairs.
func (r ProductRow) Cells() []interface{} {
	cells := make([]interface{}, 0, len(r.Offers)*2)
	for _, o := range r.Offers {
		cells = append(cells, o.Price, o.Link)
	}
	return cells
}

// HasTimestamp reports whether the row carries a search timestamp to write.
func (r ProductRow) HasTimestamp() bool {
	return !r.SearchedAt.IsZero()
}

// Timestamp formats SearchedAt in loc. Returns "" when no timestamp is set.
func (r ProductRow) Timestamp(loc *time.Location) string {
	if !r.HasTimestamp() {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	return r.SearchedAt.In(loc).Format(TimestampLayout)
}

// Snapshot is a historical record of the offers found for a product
type Snapshot struct {
	ProductName string    `json:"productName"`
	Query       string    `json:"query"`
	RowIndex    int       `json:"row"`
	Offers      []Offer   `json:"offers"`
	SearchedAt  time.Time `json:"searchedAt"`
}
