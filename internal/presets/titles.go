package presets

import (
	"math/rand"
	"strings"
)

// Title word tables per genre. Titles are built as one word from each
// column, e.g. "Neon Highway Drift".
var titleWords = map[string][3][]string{
	"dark_synthwave": {
		{"Neon", "Golden", "Velvet", "Distant", "Fading", "Electric", "Violet", "Amber", "Midnight", "Sunset"},
		{"Highway", "Dreams", "Horizon", "Memories", "Skyline", "Coast", "Summer", "Escape", "Paradise", "Waves"},
		{"Drive", "Drift", "Echoes", "Glow", "Reflections", "Reverie", "Promise", "Return", "Embrace", "Journey"},
	},
	"deep_house": {
		{"Hollow", "Submerged", "Distant", "Veiled", "Shadowed", "Buried", "Midnight", "Sunken", "Lost", "Frozen"},
		{"Warehouse", "Bunker", "Tunnel", "Depths", "Basement", "Underground", "Sector", "Chamber", "Void", "Cavern"},
		{"Pulse", "Echo", "Drift", "Descent", "Current", "Signal", "Motion", "Ritual", "Passage", "Transmission"},
	},
	"ambient_electronic": {
		{"Distant", "Hollow", "Fading", "Cold", "Empty", "Lost", "Frozen", "Buried", "Silent", "Void"},
		{"Horizon", "Wasteland", "Grid", "Expanse", "Threshold", "Boundary", "Abyss", "Sector", "Zone", "Edge"},
		{"Signals", "Echoes", "Remnants", "Ghosts", "Traces", "Fragments", "Memories", "Transmissions", "Static", "Drift"},
	},
	"lofi_beats": {
		{"Dark", "Broken", "Hollow", "Static", "Glitch", "Distant", "Faded", "Void", "Grey", "Shadowed"},
		{"Circuit", "Terminal", "Basement", "Underground", "Concrete", "Midnight", "Urban", "Digital", "Neon", "Analog"},
		{"Signals", "Fragments", "Noise", "Decay", "Static", "Dreams", "Echoes", "Transmissions", "Loops", "Sessions"},
	},
	"minimal_techno": {
		{"Stark", "Cold", "Raw", "Mono", "Void", "Grid", "Black", "Steel", "Iron", "Null"},
		{"Sector", "Node", "Block", "Cell", "Unit", "Phase", "Vector", "Zone", "Terminal", "Core"},
		{"Machine", "System", "Pattern", "Sequence", "Matrix", "Code", "Process", "Function", "Protocol", "Loop"},
	},
	"neo_classical": {
		{"Fallen", "Distant", "Fading", "Silent", "Cold", "Hollow", "Dark", "Lost", "Buried", "Frozen"},
		{"Empire", "Kingdom", "Throne", "Skyline", "Horizon", "Monument", "Cathedral", "Tower", "Citadel", "Ruins"},
		{"Descent", "Requiem", "Elegy", "Collapse", "Awakening", "Departure", "Ending", "Reckoning", "Echo", "Legacy"},
	},
}

const fallbackTitleGenre = "dark_synthwave"

// SynthesizeTitles builds count unique track titles from the genre's word
// tables. The result is deterministic for a given rng seed; a nil rng uses
// the shared source. Attempts are bounded, so the slice may be shorter than
// count only when the word tables cannot produce enough unique titles.
func SynthesizeTitles(genre string, count int, rng *rand.Rand) []string {
	if count <= 0 {
		return nil
	}
	words, ok := titleWords[strings.ToLower(strings.TrimSpace(genre))]
	if !ok {
		words = titleWords[fallbackTitleGenre]
	}

	pick := rand.Intn
	if rng != nil {
		pick = rng.Intn
	}

	seen := make(map[string]struct{}, count)
	titles := make([]string, 0, count)
	maxAttempts := count * 10
	for attempts := 0; len(titles) < count && attempts < maxAttempts; attempts++ {
		title := words[0][pick(len(words[0]))] + " " +
			words[1][pick(len(words[1]))] + " " +
			words[2][pick(len(words[2]))]
		if _, dup := seen[title]; dup {
			continue
		}
		seen[title] = struct{}{}
		titles = append(titles, title)
	}
	return titles
}
