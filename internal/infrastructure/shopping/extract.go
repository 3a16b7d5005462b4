package shopping

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pricesheet/worker/internal/domain"
)

// Selectors locates the parts of a shopping result card.
type Selectors struct {
	SearchBox  string `mapstructure:"search_box"`
	Result     string `mapstructure:"result"`
	Name       string `mapstructure:"name"`
	Price      string `mapstructure:"price"`
	LinkMarker string `mapstructure:"link_marker"`
}

// DefaultSelectors returns the selectors of the Google Shopping results page.
func DefaultSelectors() Selectors {
	return Selectors{
		SearchBox:  ".yyJm8b",
		Result:     ".i0X6df",
		Name:       ".tAxDx",
		Price:      ".a8Pemb",
		LinkMarker: ".bONr3b",
	}
}

// withDefaults fills blank selectors from DefaultSelectors.
func (s Selectors) withDefaults() Selectors {
	d := DefaultSelectors()
	if s.SearchBox == "" {
		s.SearchBox = d.SearchBox
	}
	if s.Result == "" {
		s.Result = d.Result
	}
	if s.Name == "" {
		s.Name = d.Name
	}
	if s.Price == "" {
		s.Price = d.Price
	}
	if s.LinkMarker == "" {
		s.LinkMarker = d.LinkMarker
	}
	return s
}

// ExtractFragment reads name, price text and link out of one result card.
// Absent sub-elements leave their field empty; the filter decides what to do
// with them.
func ExtractFragment(card *goquery.Selection, base *url.URL, sel Selectors) domain.ResultFragment {
	sel = sel.withDefaults()

	fragment := domain.ResultFragment{
		Name:      cleanText(card.Find(sel.Name).First().Text()),
		PriceText: cleanText(card.Find(sel.Price).First().Text()),
	}

	marker := card.Find(sel.LinkMarker).First()
	if marker.Length() == 0 {
		return fragment
	}

	// The anchor wrapping the marker carries the offer link.
	href, ok := marker.Parent().Attr("href")
	if !ok {
		href, ok = marker.Closest("a").Attr("href")
	}
	if !ok {
		fragment.ExtractError = fmt.Sprintf("link marker %q has no enclosing anchor", sel.LinkMarker)
		return fragment
	}
	fragment.Link = resolveLink(base, href)

	return fragment
}

// ParseFragments extracts every result card of an HTML page in page order.
func ParseFragments(r io.Reader, pageURL string, sel Selectors) ([]domain.ResultFragment, error) {
	sel = sel.withDefaults()

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse results page: %w", err)
	}

	var base *url.URL
	if pageURL != "" {
		base, _ = url.Parse(pageURL)
	}

	var fragments []domain.ResultFragment
	doc.Find(sel.Result).Each(func(_ int, card *goquery.Selection) {
		fragments = append(fragments, ExtractFragment(card, base, sel))
	})

	return fragments, nil
}

func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if base == nil || ref.IsAbs() {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
