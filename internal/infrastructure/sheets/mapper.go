package sheets

import (
	"fmt"
	"strings"
	"time"

	"github.com/pricesheet/worker/internal/domain"
)

// valueRange mirrors the Sheets API ValueRange resource
type valueRange struct {
	Range          string          `json:"range,omitempty"`
	MajorDimension string          `json:"majorDimension,omitempty"`
	Values         [][]interface{} `json:"values"`
}

// MapRowToValues converts a product row into the single-row value grid
// written at the offers column: price, link, price, link...
func MapRowToValues(row domain.ProductRow) [][]interface{} {
	return [][]interface{}{row.Cells()}
}

// MapTimestampValues converts the row's search time into the timestamp cell.
func MapTimestampValues(row domain.ProductRow, loc *time.Location) [][]interface{} {
	return [][]interface{}{{row.Timestamp(loc)}}
}

// MapValuesToProducts turns the product column into product refs. Row
// numbers are 1-based sheet rows; blank cells are skipped without shifting
// the numbering.
func MapValuesToProducts(values [][]interface{}, headerRows int) []domain.ProductRef {
	products := make([]domain.ProductRef, 0, len(values))
	for i, cells := range values {
		if i < headerRows || len(cells) == 0 {
			continue
		}
		name := strings.TrimSpace(cellString(cells[0]))
		if name == "" {
			continue
		}
		products = append(products, domain.ProductRef{
			RowIndex: i + 1,
			Name:     name,
		})
	}
	return products
}

func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
