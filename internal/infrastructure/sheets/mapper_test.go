package sheets

import (
	"testing"
	"time"

	"github.com/pricesheet/worker/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestMapRowToValues(t *testing.T) {
	row := domain.ProductRow{
		Offers: []domain.Offer{
			{Price: 450, Link: "https://a.example"},
			{Price: 1299.9, Link: "https://b.example"},
		},
	}

	got := MapRowToValues(row)
	assert.Equal(t, [][]interface{}{{450.0, "https://a.example", 1299.9, "https://b.example"}}, got)
}

func TestMapRowToValues_Empty(t *testing.T) {
	got := MapRowToValues(domain.ProductRow{})
	assert.Len(t, got, 1)
	assert.Empty(t, got[0])
}

func TestMapTimestampValues(t *testing.T) {
	saoPaulo := time.FixedZone("BRT", -3*60*60)
	row := domain.ProductRow{SearchedAt: time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)}

	assert.Equal(t, [][]interface{}{{"09/03/2024 11:05:07"}}, MapTimestampValues(row, saoPaulo))
}

func TestMapValuesToProducts(t *testing.T) {
	tests := []struct {
		name       string
		values     [][]interface{}
		headerRows int
		want       []domain.ProductRef
	}{
		{
			name:       "nil sheet",
			values:     nil,
			headerRows: 1,
			want:       []domain.ProductRef{},
		},
		{
			name:       "header skipped and numbering kept",
			values:     [][]interface{}{{"Produto"}, {"A"}, {""}, {"B"}},
			headerRows: 1,
			want:       []domain.ProductRef{{RowIndex: 2, Name: "A"}, {RowIndex: 4, Name: "B"}},
		},
		{
			name:       "no header",
			values:     [][]interface{}{{"A"}},
			headerRows: 0,
			want:       []domain.ProductRef{{RowIndex: 1, Name: "A"}},
		},
		{
			name:       "numeric cell",
			values:     [][]interface{}{{"Produto"}, {float64(3080)}},
			headerRows: 1,
			want:       []domain.ProductRef{{RowIndex: 2, Name: "3080"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapValuesToProducts(tt.values, tt.headerRows))
		})
	}
}
