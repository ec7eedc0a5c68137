package assembly

import (
	"strings"
	"testing"
	"time"
)

func secs(n float64) time.Duration {
	return time.Duration(n * float64(time.Second))
}

func TestExpectedDurationCutIsExactSum(t *testing.T) {
	tracks := []Track{
		{Duration: secs(180)},
		{Duration: secs(200.5)},
		{Duration: secs(95)},
	}
	got := ExpectedDuration(tracks, TransitionPolicy{Kind: TransitionCut})
	if got != secs(475.5) {
		t.Errorf("duration = %v, want %v", got, secs(475.5))
	}
}

func TestExpectedDurationCrossfadeSubtractsPerJoin(t *testing.T) {
	tracks := []Track{
		{Duration: secs(180)},
		{Duration: secs(200)},
		{Duration: secs(100)},
		{Duration: secs(120)},
	}
	policy := TransitionPolicy{Kind: TransitionCrossfade, CrossfadeDuration: 3 * time.Second}
	// sum 600s minus (4-1)*3s.
	if got := ExpectedDuration(tracks, policy); got != secs(591) {
		t.Errorf("duration = %v, want %v", got, secs(591))
	}
}

func TestExpectedDurationSingleTrackIgnoresCrossfade(t *testing.T) {
	tracks := []Track{{Duration: secs(240)}}
	policy := TransitionPolicy{Kind: TransitionCrossfade, CrossfadeDuration: 5 * time.Second}
	if got := ExpectedDuration(tracks, policy); got != secs(240) {
		t.Errorf("duration = %v", got)
	}
}

func TestGainFor(t *testing.T) {
	if got := GainFor(-14, -21.5); got != 7.5 {
		t.Errorf("gain = %v, want 7.5", got)
	}
	if got := GainFor(-14, -9); got != -5 {
		t.Errorf("gain = %v, want -5", got)
	}
}

func TestBuildFilterGraphCut(t *testing.T) {
	spec := MixSpec{
		Tracks: []Track{
			{Path: "a.mp3", Gain: 2.5},
			{Path: "b.mp3", Gain: -1},
			{Path: "c.mp3", Gain: 0},
		},
		Transition: TransitionPolicy{Kind: TransitionCut},
	}
	graph, label := buildFilterGraph(spec)
	if label != "cat" {
		t.Errorf("label = %q", label)
	}
	for _, want := range []string{
		"[0:a]volume=2.50dB[a0]",
		"[1:a]volume=-1.00dB[a1]",
		"concat=n=3:v=0:a=1[cat]",
	} {
		if !strings.Contains(graph, want) {
			t.Errorf("graph missing %q: %s", want, graph)
		}
	}
	if strings.Contains(graph, "acrossfade") {
		t.Errorf("cut graph contains crossfade: %s", graph)
	}
}

func TestBuildFilterGraphCrossfadeChainsPairwise(t *testing.T) {
	spec := MixSpec{
		Tracks: []Track{
			{Path: "a.mp3"}, {Path: "b.mp3"}, {Path: "c.mp3"},
		},
		Transition: TransitionPolicy{Kind: TransitionCrossfade, CrossfadeDuration: 3 * time.Second},
	}
	graph, label := buildFilterGraph(spec)
	if label != "x2" {
		t.Errorf("label = %q", label)
	}
	for _, want := range []string{
		"[a0][a1]acrossfade=d=3.000:c1=tri:c2=tri[x1]",
		"[x1][a2]acrossfade=d=3.000:c1=tri:c2=tri[x2]",
	} {
		if !strings.Contains(graph, want) {
			t.Errorf("graph missing %q: %s", want, graph)
		}
	}
}

func TestBuildFilterGraphWarmthWrapsFinalStream(t *testing.T) {
	spec := MixSpec{
		Tracks: []Track{{Path: "a.mp3"}, {Path: "b.mp3"}},
		Transition: TransitionPolicy{
			Kind: TransitionCut,
		},
		Warmth: true,
	}
	graph, label := buildFilterGraph(spec)
	if label != "warm" {
		t.Errorf("label = %q", label)
	}
	if !strings.Contains(graph, "bass=g=2") {
		t.Errorf("graph missing warmth filter: %s", graph)
	}
}

func TestBuildArgsMP3(t *testing.T) {
	spec := MixSpec{
		Tracks:        []Track{{Path: "a.mp3"}, {Path: "b.mp3"}},
		Transition:    TransitionPolicy{Kind: TransitionCut},
		OutputFormat:  "mp3",
		OutputBitrate: "320k",
	}
	args := buildArgs(spec, "/tmp/mix.mp3")
	joined := strings.Join(args, " ")
	for _, want := range []string{
		"-i a.mp3", "-i b.mp3",
		"-c:a libmp3lame", "-b:a 320k",
		"-map [cat]",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %s", want, joined)
		}
	}
	if args[len(args)-1] != "/tmp/mix.mp3" {
		t.Errorf("output path not last: %v", args)
	}
}
