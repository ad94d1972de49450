package catalog

import "testing"

func strPtr(v string) *string { return &v }

func floatPtr(v float64) *float64 { return &v }

func TestScore(t *testing.T) {
	full := Candidate{
		Name:         "Basmati Rice 1kg",
		Brand:        strPtr("India Gate"),
		Category:     strPtr("Grocery"),
		Description:  strPtr("Long grain aged basmati"),
		Barcode:      strPtr("8901234567890"),
		ImageURL:     strPtr("https://cdn.example.com/rice.jpg"),
		ThumbnailURL: strPtr("https://cdn.example.com/rice_t.jpg"),
		MediumURL:    strPtr("https://cdn.example.com/rice_m.jpg"),
		WeightGrams:  floatPtr(1000),
	}

	cases := []struct {
		name      string
		candidate Candidate
		want      int
	}{
		{"empty", Candidate{}, 0},
		{"only name", Candidate{Name: "Basmati Rice 1kg"}, 15},
		{"name and barcode", Candidate{Name: "Basmati Rice 1kg", Barcode: strPtr("8901234567890")}, 45},
		{"required fields", Candidate{
			Name:     "Basmati Rice 1kg",
			Brand:    strPtr("India Gate"),
			Category: strPtr("Grocery"),
		}, 40},
		{"full record", full, 100},
		{"whitespace fields ignored", Candidate{
			Name:  "Basmati Rice 1kg",
			Brand: strPtr("   "),
		}, 15},
		{"zero weight ignored", Candidate{
			Name:        "Basmati Rice 1kg",
			WeightGrams: floatPtr(0),
		}, 15},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Score(tc.candidate); got != tc.want {
				t.Fatalf("Score() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestScoreDeterminism(t *testing.T) {
	c := Candidate{
		Name:    "Basmati Rice 1kg",
		Brand:   strPtr("India Gate"),
		Barcode: strPtr("8901234567890"),
	}
	first := Score(c)
	for i := 0; i < 10; i++ {
		if got := Score(c); got != first {
			t.Fatalf("score changed between runs: %d vs %d", first, got)
		}
	}
}
