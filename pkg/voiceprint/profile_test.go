package voiceprint

import "testing"

func TestPickColorPrefersUnderused(t *testing.T) {
	randIndex := func(n int) int { return 3 }

	var existing []*Profile
	if got := pickColor(existing, randIndex); got != palette[0] {
		t.Fatalf("first pick = %s, want %s", got, palette[0])
	}

	// One use does not exclude a color; two uses do.
	existing = append(existing, &Profile{Color: palette[0]})
	if got := pickColor(existing, randIndex); got != palette[0] {
		t.Fatalf("second pick = %s, want %s", got, palette[0])
	}
	existing = append(existing, &Profile{Color: palette[0]})
	if got := pickColor(existing, randIndex); got != palette[1] {
		t.Fatalf("third pick = %s, want %s", got, palette[1])
	}
}

func TestPickColorSaturatedFallsBackToRandom(t *testing.T) {
	var existing []*Profile
	for _, c := range palette {
		existing = append(existing, &Profile{Color: c}, &Profile{Color: c})
	}
	randIndex := func(n int) int {
		if n != len(palette) {
			t.Fatalf("randIndex n = %d, want %d", n, len(palette))
		}
		return 5
	}
	if got := pickColor(existing, randIndex); got != palette[5] {
		t.Fatalf("saturated pick = %s, want %s", got, palette[5])
	}
}
