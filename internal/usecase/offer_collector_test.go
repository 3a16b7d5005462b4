package usecase

import (
	"fmt"
	"testing"

	"github.com/pricesheet/worker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCollector(parallelism int) *OfferCollector {
	return NewOfferCollector(newTestFilter(), CollectorConfig{Parallelism: parallelism})
}

func mixedFragments() []domain.ResultFragment {
	return []domain.ResultFragment{
		{Name: "Mouse Gamer RGB A", PriceText: "R$ 300,00", Link: "https://loja.com/a"},
		{Name: "Mouse Gamer RGB Usado", PriceText: "R$ 50,00", Link: "https://loja.com/used"},
		{Name: "Mouse Gamer RGB B", PriceText: "R$ 100,00", Link: "https://loja.com/b"},
		{Name: "Mouse Gamer RGB C", PriceText: "grátis", Link: "https://loja.com/free"},
		{Name: "Mouse Gamer RGB D", PriceText: "R$ 200,00", Link: "https://shopee.com.br/d"},
		{ExtractError: "price element unreadable"},
		{Name: "Mouse Gamer RGB E", PriceText: "R$ 150,00 + impostos", Link: "https://loja.com/e"},
		{Name: "Mouse Gamer RGB F", PriceText: "R$ 1.250,00", Link: "https://loja.com/f"},
	}
}

func TestNewOfferCollector(t *testing.T) {
	assert.Equal(t, 1, newTestCollector(0).parallelism)
	assert.Equal(t, 1, newTestCollector(-3).parallelism)
	assert.Equal(t, 4, newTestCollector(4).parallelism)
}

func TestCollect_KeepsPageOrder(t *testing.T) {
	c := newTestCollector(1)
	query := Normalize("mouse gamer rgb")

	offers := c.Collect(query, mixedFragments())

	// not sorted by price: page order is the contract
	want := []domain.Offer{
		{Price: 300, Link: "https://loja.com/a"},
		{Price: 100, Link: "https://loja.com/b"},
		{Price: 1250, Link: "https://loja.com/f"},
	}
	assert.Equal(t, want, offers)
}

func TestCollect_ContinuesAfterBrokenFragments(t *testing.T) {
	c := newTestCollector(1)
	query := Normalize("mouse")

	fragments := []domain.ResultFragment{
		{ExtractError: "name element unreadable"},
		{Name: "Mouse", PriceText: "???", Link: "https://loja.com/1"},
		{},
		{Name: "Mouse", PriceText: "R$ 10,00", Link: "https://loja.com/2"},
	}

	offers := c.Collect(query, fragments)
	require.Len(t, offers, 1)
	assert.Equal(t, "https://loja.com/2", offers[0].Link)
}

func TestCollect_EmptyInput(t *testing.T) {
	c := newTestCollector(1)

	assert.Empty(t, c.Collect(Normalize("mouse"), nil))
	assert.Empty(t, c.Collect(Normalize("mouse"), []domain.ResultFragment{}))
}

func TestCollect_NoLimit(t *testing.T) {
	c := newTestCollector(1)
	query := Normalize("cabo usb")

	var fragments []domain.ResultFragment
	for i := 0; i < 25; i++ {
		fragments = append(fragments, domain.ResultFragment{
			Name:      fmt.Sprintf("Cabo USB %d", i),
			PriceText: fmt.Sprintf("R$ %d,00", i+1),
			Link:      fmt.Sprintf("https://loja.com/%d", i),
		})
	}

	assert.Len(t, c.Collect(query, fragments), 25)
}

func TestCollect_Idempotent(t *testing.T) {
	c := newTestCollector(1)
	query := Normalize("mouse gamer rgb")
	fragments := mixedFragments()

	first := c.Collect(query, fragments)
	second := c.Collect(query, fragments)

	assert.Equal(t, first, second)
}

func TestCollect_ParallelMatchesSequential(t *testing.T) {
	query := Normalize("cabo usb")

	var fragments []domain.ResultFragment
	for i := 0; i < 200; i++ {
		name := fmt.Sprintf("Cabo USB tipo C %d", i)
		if i%7 == 0 {
			name += " usado"
		}
		link := fmt.Sprintf("https://loja.com/%d", i)
		if i%11 == 0 {
			link = fmt.Sprintf("https://aliexpress.com/%d", i)
		}
		fragments = append(fragments, domain.ResultFragment{
			Name:      name,
			PriceText: fmt.Sprintf("R$ %d,%02d", i+1, i%100),
			Link:      link,
		})
	}

	sequential := newTestCollector(1).Collect(query, fragments)
	parallel := newTestCollector(8).Collect(query, fragments)

	require.NotEmpty(t, sequential)
	assert.Equal(t, sequential, parallel)
}

func TestCollectWithReport(t *testing.T) {
	c := newTestCollector(2)
	query := Normalize("mouse gamer rgb")

	offers, report := c.CollectWithReport(query, mixedFragments())

	assert.Len(t, offers, 3)
	assert.Equal(t, 8, report.Total)
	assert.Equal(t, 3, report.Accepted)
	assert.Equal(t, map[RejectReason]int{
		RejectBannedTerm:      1,
		RejectUnparsablePrice: 1,
		RejectUntrustedDomain: 1,
		RejectMalformed:       1,
		RejectFeeMarker:       1,
	}, report.Rejected)
}

func TestCollect_IsSubsequenceOfInput(t *testing.T) {
	c := newTestCollector(3)
	query := Normalize("mouse gamer rgb")
	fragments := mixedFragments()

	offers := c.Collect(query, fragments)

	j := 0
	for _, fragment := range fragments {
		if j < len(offers) && fragment.Link == offers[j].Link {
			j++
		}
	}
	assert.Equal(t, len(offers), j, "offers must appear in input order")
}
