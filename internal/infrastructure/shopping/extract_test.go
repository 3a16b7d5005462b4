package shopping

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultsPage = `<!DOCTYPE html>
<html><body>
<div class="sh-dgr__grid-result">
  <div class="i0X6df">
    <h3 class="tAxDx">Mouse Gamer  Logitech G203</h3>
    <span class="a8Pemb">R$&nbsp;129,90</span>
    <a href="https://www.kabum.com.br/produto/123"><span class="bONr3b">KaBuM!</span></a>
  </div>
  <div class="i0X6df">
    <h3 class="tAxDx">Mouse Gamer Logitech G203 Lightsync</h3>
    <span class="a8Pemb">R$ 1.299,00</span>
    <a href="/url?q=https://loja.example/p/9"><span class="bONr3b">Loja</span></a>
  </div>
  <div class="i0X6df">
    <h3 class="tAxDx">Mouse sem preço</h3>
    <a href="https://loja.example/sem-preco"><span class="bONr3b">Loja</span></a>
  </div>
  <div class="i0X6df">
    <span class="a8Pemb">R$ 10,00</span>
  </div>
</div>
</body></html>`

func TestParseFragments_PageOrder(t *testing.T) {
	fragments, err := ParseFragments(strings.NewReader(resultsPage), "https://www.google.com.br/search?q=mouse", DefaultSelectors())
	require.NoError(t, err)
	require.Len(t, fragments, 4)

	assert.Equal(t, "Mouse Gamer Logitech G203", fragments[0].Name)
	assert.Equal(t, "R$ 129,90", fragments[0].PriceText)
	assert.Equal(t, "https://www.kabum.com.br/produto/123", fragments[0].Link)
	assert.Empty(t, fragments[0].ExtractError)

	assert.Equal(t, "R$ 1.299,00", fragments[1].PriceText)
	assert.Equal(t, "https://www.google.com.br/url?q=https://loja.example/p/9", fragments[1].Link)

	assert.Equal(t, "Mouse sem preço", fragments[2].Name)
	assert.Empty(t, fragments[2].PriceText)
	assert.Equal(t, "https://loja.example/sem-preco", fragments[2].Link)

	assert.Empty(t, fragments[3].Name)
	assert.Equal(t, "R$ 10,00", fragments[3].PriceText)
	assert.Empty(t, fragments[3].Link)
	assert.Empty(t, fragments[3].ExtractError)
}

func TestParseFragments_NoResults(t *testing.T) {
	fragments, err := ParseFragments(strings.NewReader("<html><body><p>Nada</p></body></html>"), "", DefaultSelectors())
	require.NoError(t, err)
	assert.Empty(t, fragments)
}

func TestExtractFragment(t *testing.T) {
	base, _ := url.Parse("https://shopping.example/results")

	tests := []struct {
		name      string
		html      string
		wantLink  string
		wantError string
	}{
		{
			name:     "anchor is the marker's parent",
			html:     `<div class="i0X6df"><b class="tAxDx">Drone</b><i class="a8Pemb">R$ 5</i><a href="https://a.example/x"><span class="bONr3b"></span></a></div>`,
			wantLink: "https://a.example/x",
		},
		{
			name:     "anchor further up",
			html:     `<div class="i0X6df"><b class="tAxDx">Drone</b><i class="a8Pemb">R$ 5</i><a href="/offer/1"><div><span class="bONr3b"></span></div></a></div>`,
			wantLink: "https://shopping.example/offer/1",
		},
		{
			name:      "marker without anchor",
			html:      `<div class="i0X6df"><b class="tAxDx">Drone</b><i class="a8Pemb">R$ 5</i><div><span class="bONr3b"></span></div></div>`,
			wantError: "no enclosing anchor",
		},
		{
			name:     "missing marker",
			html:     `<div class="i0X6df"><b class="tAxDx">Drone</b><i class="a8Pemb">R$ 5</i></div>`,
			wantLink: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(tt.html))
			require.NoError(t, err)

			fragment := ExtractFragment(doc.Find(".i0X6df").First(), base, Selectors{})
			assert.Equal(t, "Drone", fragment.Name)
			if tt.wantError != "" {
				assert.Contains(t, fragment.ExtractError, tt.wantError)
				return
			}
			assert.Empty(t, fragment.ExtractError)
			assert.Equal(t, tt.wantLink, fragment.Link)
		})
	}
}

func TestSelectors_WithDefaults(t *testing.T) {
	sel := Selectors{Result: ".card"}.withDefaults()

	assert.Equal(t, ".card", sel.Result)
	assert.Equal(t, ".tAxDx", sel.Name)
	assert.Equal(t, ".a8Pemb", sel.Price)
	assert.Equal(t, ".bONr3b", sel.LinkMarker)
	assert.Equal(t, ".yyJm8b", sel.SearchBox)
}
