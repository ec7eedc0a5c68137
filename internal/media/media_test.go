package media

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"mixdown/internal/services"
)

type scriptedRunner struct {
	output string
	err    error
	calls  [][]string
}

func (r *scriptedRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	return r.output, r.err
}

func TestProberDuration(t *testing.T) {
	runner := &scriptedRunner{output: "182.450000\n"}
	prober := NewProber(runner, "ffmpeg", "ffprobe")

	duration, err := prober.Duration(context.Background(), "/tmp/track.mp3")
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	if duration != time.Duration(182.45*float64(time.Second)) {
		t.Errorf("duration = %v", duration)
	}
	if runner.calls[0][0] != "ffprobe" {
		t.Errorf("called %v", runner.calls[0])
	}
}

func TestProberDurationUnreadableIsPermanent(t *testing.T) {
	runner := &scriptedRunner{err: errors.New("moov atom not found")}
	prober := NewProber(runner, "", "")

	_, err := prober.Duration(context.Background(), "/tmp/bad.mp3")
	if !services.IsPermanent(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if !strings.Contains(err.Error(), "/tmp/bad.mp3") {
		t.Errorf("error does not name the asset: %v", err)
	}
}

func TestProberMeanVolume(t *testing.T) {
	runner := &scriptedRunner{output: `
[Parsed_volumedetect_0 @ 0x5555] n_samples: 7938000
[Parsed_volumedetect_0 @ 0x5555] mean_volume: -21.3 dB
[Parsed_volumedetect_0 @ 0x5555] max_volume: -4.1 dB
`}
	prober := NewProber(runner, "ffmpeg", "ffprobe")

	mean, err := prober.MeanVolume(context.Background(), "/tmp/track.mp3")
	if err != nil {
		t.Fatalf("MeanVolume: %v", err)
	}
	if mean != -21.3 {
		t.Errorf("mean = %v", mean)
	}
}

func TestProberMeanVolumeMissingMeasurement(t *testing.T) {
	runner := &scriptedRunner{output: "no filter output here"}
	prober := NewProber(runner, "", "")

	_, err := prober.MeanVolume(context.Background(), "/tmp/track.mp3")
	if !services.IsPermanent(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestTailLines(t *testing.T) {
	output := "one\ntwo\n\nthree\nfour\nfive\nsix\nseven\n"
	got := tailLines(output, 3)
	if got != "five | six | seven" {
		t.Errorf("got %q", got)
	}
}
