package emi

import (
	"math"
	"reflect"
	"testing"
)

func defaultGenerator() *Generator {
	return NewGenerator(DefaultTenures())
}

func TestGenerateOffers_AmountAboveLimit(t *testing.T) {
	g := defaultGenerator()

	if offers := g.GenerateOffers(10000, 5000); len(offers) != 0 {
		t.Fatalf("expected no offers for amount above limit, got %d", len(offers))
	}
}

func TestGenerateOffers_NonPositiveAmount(t *testing.T) {
	g := defaultGenerator()

	if offers := g.GenerateOffers(0, 5000); len(offers) != 0 {
		t.Fatalf("expected no offers for zero amount, got %d", len(offers))
	}
	if offers := g.GenerateOffers(-100, 5000); len(offers) != 0 {
		t.Fatalf("expected no offers for negative amount, got %d", len(offers))
	}
}

func TestGenerateOffers_ZeroRateTenure(t *testing.T) {
	g := defaultGenerator()

	offers := g.GenerateOffers(3000, 10000)
	if len(offers) != 3 {
		t.Fatalf("offers = %d, want 3", len(offers))
	}

	first := offers[0]
	if first.TenureMonths != 3 {
		t.Fatalf("tenure = %d, want 3", first.TenureMonths)
	}
	if first.MonthlyAmount != 1000 {
		t.Fatalf("monthly = %v, want 1000", first.MonthlyAmount)
	}
	if first.TotalAmount != 3000 {
		t.Fatalf("total = %v, want 3000 for no-cost EMI", first.TotalAmount)
	}
	if first.ProcessingFee != 0 {
		t.Fatalf("fee = %v, want 0 for zero-rate tenure", first.ProcessingFee)
	}
}

func TestGenerateOffers_AmortizationIdentity(t *testing.T) {
	g := defaultGenerator()

	offers := g.GenerateOffers(5000, 10000)
	for _, o := range offers {
		if o.InterestRate == 0 {
			continue
		}
		diff := math.Abs(o.MonthlyAmount*float64(o.TenureMonths) - o.TotalAmount)
		if diff > 0.01*float64(o.TenureMonths) {
			t.Fatalf("tenure %d: monthly %v * %d != total %v (diff %v)",
				o.TenureMonths, o.MonthlyAmount, o.TenureMonths, o.TotalAmount, diff)
		}
		if o.TotalAmount <= 5000 {
			t.Fatalf("tenure %d: total %v must exceed principal for non-zero rate", o.TenureMonths, o.TotalAmount)
		}
		if o.ProcessingFee != 50 {
			t.Fatalf("tenure %d: fee = %v, want 50 (1%% of amount)", o.TenureMonths, o.ProcessingFee)
		}
	}
}

func TestGenerateOffers_Deterministic(t *testing.T) {
	g := defaultGenerator()

	a := g.GenerateOffers(7500, 20000)
	b := g.GenerateOffers(7500, 20000)

	if !reflect.DeepEqual(a, b) {
		t.Fatalf("identical inputs produced different offers:\n%+v\n%+v", a, b)
	}
}

func TestGenerateOffers_TenureOrder(t *testing.T) {
	g := defaultGenerator()

	offers := g.GenerateOffers(900, 1000)
	want := []int{3, 6, 9}
	for i, o := range offers {
		if o.TenureMonths != want[i] {
			t.Fatalf("offer %d tenure = %d, want %d", i, o.TenureMonths, want[i])
		}
	}
}
