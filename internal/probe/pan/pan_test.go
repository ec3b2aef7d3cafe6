package pan

import "testing"

func digitsOf(s string) []int {
	d := make([]int, len(s))
	for i, c := range s {
		d[i] = int(c - '0')
	}
	return d
}

func TestLuhnGenerateVerifyRoundTrip(t *testing.T) {
	cases := []string{"420509235024", "510510510510510", "4012888888188", "1"}
	for _, s := range cases {
		digits := digitsOf(s)
		check := generate(digits)
		full := append(append([]int{}, digits...), check)
		if !verify(full) {
			t.Fatalf("verify(%s + generate(%s)) should be true, check digit was %d", s, s, check)
		}
	}
}

func TestVerifyKnownMasterCardTestNumber(t *testing.T) {
	if !verify(digitsOf("5105105105105100")) {
		t.Fatalf("expected known MasterCard test number to verify")
	}
}

func TestVerifyRejectsWrongCheckDigit(t *testing.T) {
	digits := digitsOf("420509235024")
	check := generate(digits)
	wrong := (check + 1) % 10
	full := append(append([]int{}, digits...), wrong)
	if wrong != check && verify(full) {
		t.Fatalf("mutated check digit should not verify")
	}
}

func TestMaskLength(t *testing.T) {
	card := "4111111111111111"
	got := mask(card, 4)
	if len(got) != len(card) {
		t.Fatalf("mask length = %d, want %d", len(got), len(card))
	}
	if got[len(got)-4:] != card[len(card)-4:] {
		t.Fatalf("mask did not preserve last 4 digits: %q", got)
	}
	for _, c := range got[:len(got)-4] {
		if c != '*' {
			t.Fatalf("expected leading characters to be masked, got %q", got)
		}
	}
}

func TestMatchBrandVisa(t *testing.T) {
	name, ok := matchBrand("4111111111111111")
	if !ok || name != "VISA" {
		t.Fatalf("matchBrand(4111...) = %q, %v; want VISA, true", name, ok)
	}
}

func TestMatchBrandMasterCard(t *testing.T) {
	name, ok := matchBrand("5105105105105100")
	if !ok || name != "MasterCard" {
		t.Fatalf("matchBrand(5105...) = %q, %v; want MasterCard, true", name, ok)
	}
}
