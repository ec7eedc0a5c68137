package assembly

import (
	"fmt"
	"strings"
	"time"
)

// TransitionKind selects how consecutive tracks are joined.
type TransitionKind string

const (
	// TransitionCut appends tracks with no overlap.
	TransitionCut TransitionKind = "cut"
	// TransitionCrossfade overlaps the tail of each track with the head of
	// the next, linearly cross-fading gain.
	TransitionCrossfade TransitionKind = "crossfade"
)

// TransitionPolicy is the join policy applied between every consecutive
// pair of tracks.
type TransitionPolicy struct {
	Kind              TransitionKind
	CrossfadeDuration time.Duration
}

// Track is one measured input to the mix, in its final position.
type Track struct {
	Path       string
	Title      string
	Duration   time.Duration
	MeanVolume float64 // measured dBFS
	Gain       float64 // dB applied to reach the target
}

// MixSpec is the sole input to assembly: an ordered track sequence plus the
// transition policy and loudness target. Order is the original request
// order, never completion order.
type MixSpec struct {
	Tracks         []Track
	Transition     TransitionPolicy
	TargetLoudness float64 // dBFS
	OutputFormat   string
	OutputBitrate  string
	Warmth         bool
}

// GainFor computes the per-track gain that moves a measured mean loudness
// onto the target. Positive boosts, negative attenuates.
func GainFor(targetDBFS, measuredDBFS float64) float64 {
	return targetDBFS - measuredDBFS
}

// ExpectedDuration is the duration the assembled mix must have: the sum of
// input durations minus one crossfade overlap per join. Zero overlap under
// cut.
func ExpectedDuration(tracks []Track, policy TransitionPolicy) time.Duration {
	var total time.Duration
	for _, track := range tracks {
		total += track.Duration
	}
	if policy.Kind == TransitionCrossfade && len(tracks) >= 2 {
		total -= time.Duration(len(tracks)-1) * policy.CrossfadeDuration
	}
	return total
}

// buildFilterGraph renders the ffmpeg filter_complex that normalizes each
// input to its computed gain and joins them per the transition policy. The
// returned label names the final audio stream.
func buildFilterGraph(spec MixSpec) (string, string) {
	var graph strings.Builder

	for i, track := range spec.Tracks {
		fmt.Fprintf(&graph, "[%d:a]volume=%.2fdB[a%d];", i, track.Gain, i)
	}

	var label string
	switch {
	case len(spec.Tracks) == 1:
		label = "a0"
	case spec.Transition.Kind == TransitionCrossfade:
		overlap := spec.Transition.CrossfadeDuration.Seconds()
		label = "a0"
		for i := 1; i < len(spec.Tracks); i++ {
			next := fmt.Sprintf("x%d", i)
			fmt.Fprintf(&graph, "[%s][a%d]acrossfade=d=%.3f:c1=tri:c2=tri[%s];", label, i, overlap, next)
			label = next
		}
	default:
		for i := range spec.Tracks {
			fmt.Fprintf(&graph, "[a%d]", i)
		}
		fmt.Fprintf(&graph, "concat=n=%d:v=0:a=1[cat];", len(spec.Tracks))
		label = "cat"
	}

	if spec.Warmth {
		fmt.Fprintf(&graph, "[%s]bass=g=2:f=120:w=0.6,treble=g=-1.5:f=8000[warm];", label)
		label = "warm"
	}

	return strings.TrimSuffix(graph.String(), ";"), label
}

// buildArgs renders the full ffmpeg invocation for the mix.
func buildArgs(spec MixSpec, outputPath string) []string {
	args := []string{"-hide_banner", "-y"}
	for _, track := range spec.Tracks {
		args = append(args, "-i", track.Path)
	}

	graph, label := buildFilterGraph(spec)
	args = append(args, "-filter_complex", graph, "-map", "["+label+"]")

	switch spec.OutputFormat {
	case "mp3":
		args = append(args, "-c:a", "libmp3lame")
	case "aac", "m4a":
		args = append(args, "-c:a", "aac")
	case "flac":
		args = append(args, "-c:a", "flac")
	}
	if spec.OutputBitrate != "" && spec.OutputFormat != "flac" {
		args = append(args, "-b:a", spec.OutputBitrate)
	}

	return append(args, outputPath)
}
