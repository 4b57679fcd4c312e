package catalog

import "testing"

func TestLookup(t *testing.T) {
	it, ok := Lookup("product_kit")
	if !ok {
		t.Fatal("expected product_kit to exist")
	}
	if it.PriceCents != 42000 {
		t.Errorf("expected kit price 42000, got %d", it.PriceCents)
	}

	if _, ok := Lookup("product_unknown"); ok {
		t.Error("expected lookup miss for unknown value")
	}
}

func TestTotalIncludesCourier(t *testing.T) {
	it, _ := Lookup("product_kit")
	if got := TotalCents(it); got != 48000 {
		t.Errorf("expected kit total 48000, got %d", got)
	}
}

func TestFormatRand(t *testing.T) {
	cases := map[int]string{
		48000: "R480",
		6000:  "R60",
		12550: "R125.50",
	}
	for cents, want := range cases {
		if got := FormatRand(cents); got != want {
			t.Errorf("FormatRand(%d) = %s, want %s", cents, got, want)
		}
	}
}
