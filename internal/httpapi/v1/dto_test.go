package v1

import "testing"

func TestCurrencyRound(t *testing.T) {
	rub, err := newCurrency("RUB")
	if err != nil {
		t.Fatalf("newCurrency: %v", err)
	}
	cases := []struct {
		in, want float64
	}{
		{10661.8460, 10661.85},
		{12.3449, 12.34},
		{-7.126, -7.13},
		{0.004, 0},
		{1e17, 1e17},
		{1e300, 1e300},
	}
	for _, c := range cases {
		if got := rub.round(c.in); got != c.want {
			t.Errorf("round(%v) = %v, want %v", c.in, got, c.want)
		}
	}

	jpy, err := newCurrency("JPY")
	if err != nil {
		t.Fatalf("newCurrency: %v", err)
	}
	if got := jpy.round(1234.6); got != 1235 {
		t.Fatalf("JPY has no minor unit, got %v", got)
	}

	if _, err := newCurrency("XXXX"); err == nil {
		t.Fatalf("expected an unknown currency to be rejected")
	}
}
