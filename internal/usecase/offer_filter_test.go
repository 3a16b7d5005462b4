package usecase

import (
	"testing"

	"github.com/pricesheet/worker/internal/domain"
)

func newTestFilter() *OfferFilter {
	return NewOfferFilter(FilterConfig{Policy: domain.DefaultPolicy()})
}

func TestNewOfferFilter(t *testing.T) {
	t.Run("copies policy terms", func(t *testing.T) {
		f := newTestFilter()
		if len(f.bannedTerms) != len(domain.DefaultBannedTerms) {
			t.Errorf("bannedTerms = %v, want %v", f.bannedTerms, domain.DefaultBannedTerms)
		}
		if len(f.untrustedDomains) != len(domain.DefaultUntrustedDomains) {
			t.Errorf("untrustedDomains = %v, want %v", f.untrustedDomains, domain.DefaultUntrustedDomains)
		}
		if f.Policy().MaxOffers() != domain.DefaultMaxOffers {
			t.Errorf("MaxOffers = %d, want %d", f.Policy().MaxOffers(), domain.DefaultMaxOffers)
		}
	})

	t.Run("debug logging flag", func(t *testing.T) {
		f := NewOfferFilter(FilterConfig{Policy: domain.DefaultPolicy(), EnableDebugLogging: true})
		if !f.enableDebugLogging {
			t.Error("expected debug logging to be enabled")
		}
	})
}

func TestEvaluate_Scenarios(t *testing.T) {
	f := newTestFilter()
	query := Normalize("mouse gamer rgb")

	testCases := []struct {
		name      string
		fragment  domain.ResultFragment
		want      RejectReason
		wantOffer domain.Offer
	}{
		{
			name: "accepts matching trusted offer",
			fragment: domain.ResultFragment{
				Name:      "Mouse Gamer RGB 7200dpi",
				PriceText: "R$ 129,90",
				Link:      "https://loja.com/x",
			},
			want:      Accepted,
			wantOffer: domain.Offer{Price: 129.90, Link: "https://loja.com/x"},
		},
		{
			name: "rejects banned term",
			fragment: domain.ResultFragment{
				Name:      "Mouse Gamer RGB Usado",
				PriceText: "R$ 129,90",
				Link:      "https://loja.com/x",
			},
			want: RejectBannedTerm,
		},
		{
			name: "rejects fee marker before parsing",
			fragment: domain.ResultFragment{
				Name:      "Mouse Gamer RGB",
				PriceText: "R$ 50,00 + taxas",
				Link:      "https://loja.com/x",
			},
			want: RejectFeeMarker,
		},
		{
			name: "rejects untrusted domain",
			fragment: domain.ResultFragment{
				Name:      "Mouse Gamer RGB",
				PriceText: "R$ 50,00",
				Link:      "https://shopee.com.br/abc",
			},
			want: RejectUntrustedDomain,
		},
		{
			name: "rejects non-numeric price",
			fragment: domain.ResultFragment{
				Name:      "Mouse Gamer RGB",
				PriceText: "grátis",
				Link:      "https://loja.com/x",
			},
			want: RejectUnparsablePrice,
		},
		{
			name: "rejects missing query token",
			fragment: domain.ResultFragment{
				Name:      "Mouse Gamer",
				PriceText: "R$ 50,00",
				Link:      "https://loja.com/x",
			},
			want: RejectMissingTokens,
		},
		{
			name:     "rejects missing name",
			fragment: domain.ResultFragment{PriceText: "R$ 50,00", Link: "https://loja.com/x"},
			want:     RejectMissingName,
		},
		{
			name: "rejects malformed fragment",
			fragment: domain.ResultFragment{
				Name:         "Mouse Gamer RGB",
				PriceText:    "R$ 50,00",
				Link:         "https://loja.com/x",
				ExtractError: "link anchor has no href",
			},
			want: RejectMalformed,
		},
		{
			name:     "rejects missing price",
			fragment: domain.ResultFragment{Name: "Mouse Gamer RGB", Link: "https://loja.com/x"},
			want:     RejectMissingPrice,
		},
		{
			name:     "rejects missing link",
			fragment: domain.ResultFragment{Name: "Mouse Gamer RGB", PriceText: "R$ 50,00"},
			want:     RejectMissingLink,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			offer, reason := f.Evaluate(query, tc.fragment)
			if reason != tc.want {
				t.Fatalf("reason = %q, want %q", reason, tc.want)
			}
			if tc.want != Accepted && offer != (domain.Offer{}) {
				t.Errorf("rejected fragment produced offer %+v", offer)
			}
			if tc.want == Accepted && offer != tc.wantOffer {
				t.Errorf("offer = %+v, want %+v", offer, tc.wantOffer)
			}
		})
	}
}

func TestEvaluate_CheckOrder(t *testing.T) {
	f := newTestFilter()
	query := Normalize("mouse gamer")

	t.Run("banned term wins over missing tokens", func(t *testing.T) {
		_, reason := f.Evaluate(query, domain.ResultFragment{Name: "Teclado usado"})
		if reason != RejectBannedTerm {
			t.Errorf("reason = %q, want %q", reason, RejectBannedTerm)
		}
	})

	t.Run("fee marker wins over parse failure", func(t *testing.T) {
		_, reason := f.Evaluate(query, domain.ResultFragment{
			Name:      "Mouse Gamer",
			PriceText: "grátis + impostos",
		})
		if reason != RejectFeeMarker {
			t.Errorf("reason = %q, want %q", reason, RejectFeeMarker)
		}
	})

	t.Run("parse failure wins over missing link", func(t *testing.T) {
		_, reason := f.Evaluate(query, domain.ResultFragment{
			Name:      "Mouse Gamer",
			PriceText: "consulte",
		})
		if reason != RejectUnparsablePrice {
			t.Errorf("reason = %q, want %q", reason, RejectUnparsablePrice)
		}
	})

	t.Run("malformed wins over everything", func(t *testing.T) {
		_, reason := f.Evaluate(query, domain.ResultFragment{ExtractError: "broken"})
		if reason != RejectMalformed {
			t.Errorf("reason = %q, want %q", reason, RejectMalformed)
		}
	})
}

func TestEvaluate_CaseFoldingIsConsistent(t *testing.T) {
	t.Run("name equal to query is accepted", func(t *testing.T) {
		f := newTestFilter()
		for _, name := range []string{"ΟΔΟΣ", "Câmera AÇÃO", "DRONE DJI"} {
			offer, reason := f.Evaluate(Normalize(name), domain.ResultFragment{
				Name:      name,
				PriceText: "R$ 10,00",
				Link:      "https://loja.com/g",
			})
			if reason != Accepted {
				t.Errorf("%q: reason = %q, want %q", name, reason, Accepted)
			}
			if offer.Price != 10.0 {
				t.Errorf("%q: price = %v, want 10", name, offer.Price)
			}
		}
	})

	t.Run("configured banned term matches its own spelling", func(t *testing.T) {
		f := NewOfferFilter(FilterConfig{Policy: domain.NewPolicy(domain.PolicyConfig{
			BannedTerms:     []string{"ΤΕΣΤΟΣ"},
			CurrencySymbols: domain.DefaultCurrencySymbols,
		})})
		_, reason := f.Evaluate(Normalize("mouse"), domain.ResultFragment{
			Name:      "mouse ΤΕΣΤΟΣ",
			PriceText: "R$ 10,00",
			Link:      "https://loja.com/g",
		})
		if reason != RejectBannedTerm {
			t.Errorf("reason = %q, want %q", reason, RejectBannedTerm)
		}
	})
}

func TestEvaluate_Deterministic(t *testing.T) {
	f := newTestFilter()
	query := Normalize("drone dji")
	fragment := domain.ResultFragment{
		Name:      "Drone DJI Mini 3",
		PriceText: "R$ 3.499,00",
		Link:      "https://loja.com/drone",
	}

	firstOffer, firstReason := f.Evaluate(query, fragment)
	for i := 0; i < 50; i++ {
		offer, reason := f.Evaluate(query, fragment)
		if offer != firstOffer || reason != firstReason {
			t.Fatalf("run %d: got (%+v, %q), want (%+v, %q)", i, offer, reason, firstOffer, firstReason)
		}
	}
}

func TestEvaluate_AcceptedOffersSatisfyPolicy(t *testing.T) {
	policy := domain.DefaultPolicy()
	f := NewOfferFilter(FilterConfig{Policy: policy})
	parser := NewPriceParser(policy)
	query := Normalize("fone bluetooth")

	names := []string{"Fone Bluetooth JBL", "Fone Bluetooth Usado", "Fone com fio", "Kit Fone Bluetooth", "FONE BLUETOOTH SONY"}
	prices := []string{"R$ 199,90", "R$ 10,00 + taxas", "sob consulta", "", "R$ 1.099,00"}
	links := []string{"https://loja.com/a", "https://temu.com/b", "", "https://magalu.com/c"}

	for _, name := range names {
		for _, price := range prices {
			for _, link := range links {
				fragment := domain.ResultFragment{Name: name, PriceText: price, Link: link}
				offer, reason := f.Evaluate(query, fragment)
				if reason != Accepted {
					continue
				}
				if !MatchesAllTokens(query.Tokens(), name) {
					t.Errorf("accepted %q without all tokens", name)
				}
				if ContainsAnyTerm(policy.BannedTerms(), name) {
					t.Errorf("accepted banned name %q", name)
				}
				if parser.HasFeeMarker(price) {
					t.Errorf("accepted fee price %q", price)
				}
				if offer.Price < 0 {
					t.Errorf("accepted negative price %v", offer.Price)
				}
				if !IsTrustedLink(policy.UntrustedDomains(), offer.Link) {
					t.Errorf("accepted untrusted link %q", offer.Link)
				}
			}
		}
	}
}

func TestEvaluate_CustomPolicy(t *testing.T) {
	f := NewOfferFilter(FilterConfig{Policy: domain.NewPolicy(domain.PolicyConfig{
		BannedTerms:      []string{"Recondicionado"},
		UntrustedDomains: []string{"Mercadolivre"},
		CurrencySymbols:  []string{"R$"},
	})})
	query := Normalize("iphone")

	_, reason := f.Evaluate(query, domain.ResultFragment{
		Name: "iPhone 13 recondicionado", PriceText: "R$ 2.000,00", Link: "https://loja.com",
	})
	if reason != RejectBannedTerm {
		t.Errorf("reason = %q, want %q", reason, RejectBannedTerm)
	}

	_, reason = f.Evaluate(query, domain.ResultFragment{
		Name: "iPhone 13 usado", PriceText: "R$ 2.000,00", Link: "https://www.mercadolivre.com.br/p",
	})
	if reason != RejectUntrustedDomain {
		t.Errorf("reason = %q, want %q", reason, RejectUntrustedDomain)
	}
}
