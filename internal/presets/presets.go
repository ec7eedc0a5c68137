package presets

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Preset describes one generation style: the prompt sent to the music
// service, the style tags, and the tempo used in published metadata.
type Preset struct {
	Key          string
	Name         string
	Style        string
	Prompt       string
	BPM          int
	NegativeTags string
}

var genrePresets = map[string]Preset{
	"dark_synthwave": {
		Key:   "dark_synthwave",
		Name:  "Dreamy Synthwave",
		Style: "80s synthwave, dreamy retrowave, nostalgic outrun, emotional synthwave",
		Prompt: "Dreamy 80s synthwave with nostalgic emotional vibes. " +
			"Lush analog synthesizers, warm pads, shimmering arpeggios, gentle pulsing bass. " +
			"Nostalgic sunset drives and neon-lit nights. Emotional and cinematic. " +
			"Gated reverb drums, chorus-drenched leads, ethereal synth melodies. Bittersweet and hopeful. 92 BPM.",
		BPM:          92,
		NegativeTags: "vocals, singing, saxophone, sax, harsh, industrial, aggressive, heavy, distorted",
	},
	"deep_house": {
		Key:   "deep_house",
		Name:  "Chill Deep House",
		Style: "Chill deep house, smooth electronic, laid-back grooves",
		Prompt: "Smooth chill deep house perfect for focused work sessions. " +
			"Warm rolling basslines, soft Rhodes chords, gentle shuffling percussion. " +
			"Mellow filtered pads, subtle grooves, relaxed atmosphere. " +
			"Coffee shop meets late-night lounge. Unobtrusive yet engaging. 110 BPM.",
		BPM:          110,
		NegativeTags: "vocals, drops, aggressive, intense, buildup, mainstream edm, harsh",
	},
	"ambient_electronic": {
		Key:   "ambient_electronic",
		Name:  "Ambient Focus",
		Style: "Ambient electronic, peaceful soundscape, atmospheric focus music",
		Prompt: "Peaceful ambient electronic soundscape for deep concentration. " +
			"Slowly evolving pads, gentle textures, spacious atmospheres. " +
			"Soft drones, subtle melodic fragments, calming washes of sound. " +
			"Like floating through clouds. Meditative and serene. Perfect for deep work. 70 BPM.",
		BPM:          70,
		NegativeTags: "vocals, drums, percussion, harsh, intense, fast, aggressive",
	},
	"lofi_beats": {
		Key:   "lofi_beats",
		Name:  "Lo-Fi Chill",
		Style: "Lo-fi hip hop, chill beats, jazzy lo-fi, study music",
		Prompt: "Warm lo-fi hip hop beats perfect for studying and coding. " +
			"Mellow jazzy samples, soft dusty drums, gentle vinyl crackle. " +
			"Smooth Rhodes chords, laid-back grooves, cozy late-night vibes. " +
			"Like a rainy afternoon with coffee. Nostalgic and comforting. 85 BPM.",
		BPM:          85,
		NegativeTags: "vocals, singing, intense, fast, aggressive, harsh, loud",
	},
	"minimal_techno": {
		Key:   "minimal_techno",
		Name:  "Minimal Electronic",
		Style: "Minimal electronic, downtempo, hypnotic grooves, subtle techno",
		Prompt: "Minimal electronic with hypnotic subtle grooves for focused work. " +
			"Soft clicks and gentle percussion, warm filtered basslines. " +
			"Slowly evolving patterns, understated melodies, spacious mix. " +
			"Repetitive but not intrusive. Background texture for concentration. 100 BPM.",
		BPM:          100,
		NegativeTags: "vocals, aggressive, pounding, harsh, loud, intense, drops",
	},
	"neo_classical": {
		Key:   "neo_classical",
		Name:  "Neo Classical",
		Style: "Neo classical, modern classical, cinematic piano, orchestral ambient",
		Prompt: "Gentle neo-classical music blending piano with soft electronic textures. " +
			"Delicate piano melodies, subtle string arrangements, ambient pads. " +
			"Emotional and introspective modern classical with minimalist sensibility. " +
			"Warm and contemplative. Beautiful background for creative work. 75 BPM.",
		BPM:          75,
		NegativeTags: "vocals, drums, harsh, loud, fast, aggressive, intense",
	},
}

// MoodWords lists the overlay mood vocabulary used when no mood is supplied.
var MoodWords = []string{
	"FLOW", "FOCUS", "CLARITY", "PROGRESS", "DISCIPLINE",
	"DRIVE", "VISION", "MOMENTUM", "AMBITION", "THRIVE",
	"GRIND", "RISE", "FORGE", "PEAK", "DEPTH",
	"CALM", "EXECUTE", "CREATE", "BUILD", "MASTERY",
}

// Get returns the preset for a genre key.
func Get(genre string) (Preset, bool) {
	preset, ok := genrePresets[strings.ToLower(strings.TrimSpace(genre))]
	return preset, ok
}

// Keys returns the known genre keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(genrePresets))
	for key := range genrePresets {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// All returns every preset, ordered by key.
func All() []Preset {
	out := make([]Preset, 0, len(genrePresets))
	for _, key := range Keys() {
		out = append(out, genrePresets[key])
	}
	return out
}

var titleCaser = cases.Title(language.English)

// DisplayName converts a genre key into a readable label, preferring the
// preset's configured name when the key is known.
func DisplayName(genre string) string {
	if preset, ok := Get(genre); ok {
		return preset.Name
	}
	return titleCaser.String(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(genre)), "_", " "))
}
