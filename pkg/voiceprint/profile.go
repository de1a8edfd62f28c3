package voiceprint

import "time"

// Profile is one enrolled speaker. ID is opaque and immutable once created;
// the embedding dimension is constant across all profiles in a registry.
type Profile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Role       string    `json:"role,omitempty"`
	Group      string    `json:"group,omitempty"`
	Color      string    `json:"color"`
	Embedding  []float32 `json:"embedding"`
	EnrolledAt time.Time `json:"enrolled_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// palette is the fixed set of profile colors. Enrollment prefers colors
// used fewer than twice across existing profiles to keep identities
// visually distinct.
var palette = []string{
	"#E5484D", // red
	"#F76B15", // orange
	"#FFC53D", // amber
	"#30A46C", // green
	"#00A2C7", // cyan
	"#3E63DD", // indigo
	"#8E4EC6", // violet
	"#E93D82", // pink
}

// pickColor chooses the first palette color used fewer than twice across
// existing profiles; when every color is saturated it falls back to a
// uniform random pick via randIndex.
func pickColor(existing []*Profile, randIndex func(n int) int) string {
	counts := make(map[string]int, len(palette))
	for _, p := range existing {
		counts[p.Color]++
	}
	for _, c := range palette {
		if counts[c] < 2 {
			return c
		}
	}
	return palette[randIndex(len(palette))]
}
