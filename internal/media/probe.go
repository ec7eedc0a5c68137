package media

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"mixdown/internal/services"
)

// Prober inspects local audio files with ffprobe/ffmpeg.
type Prober struct {
	runner        Runner
	ffmpegBinary  string
	ffprobeBinary string
}

// NewProber constructs a prober using the given binaries.
func NewProber(runner Runner, ffmpegBinary, ffprobeBinary string) *Prober {
	if runner == nil {
		runner = CommandRunner{}
	}
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	if ffprobeBinary == "" {
		ffprobeBinary = "ffprobe"
	}
	return &Prober{runner: runner, ffmpegBinary: ffmpegBinary, ffprobeBinary: ffprobeBinary}
}

// Duration returns the playable duration of the file. A file ffprobe cannot
// read is reported as a permanent error naming the file.
func (p *Prober) Duration(ctx context.Context, path string) (time.Duration, error) {
	output, err := p.runner.Run(ctx, p.ffprobeBinary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, services.Wrap(services.ErrPermanent, "assembling", "probe",
			fmt.Sprintf("unreadable asset %s", path), err)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(output), 64)
	if err != nil || seconds <= 0 {
		return 0, services.Wrap(services.ErrPermanent, "assembling", "probe",
			fmt.Sprintf("asset %s has no playable duration (%q)", path, strings.TrimSpace(output)), nil)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

var meanVolumePattern = regexp.MustCompile(`mean_volume:\s*(-?\d+(?:\.\d+)?)\s*dB`)

// MeanVolume measures the file's mean loudness in dBFS using the
// volumedetect filter.
func (p *Prober) MeanVolume(ctx context.Context, path string) (float64, error) {
	output, err := p.runner.Run(ctx, p.ffmpegBinary,
		"-hide_banner",
		"-i", path,
		"-af", "volumedetect",
		"-f", "null", "-",
	)
	if err != nil {
		return 0, services.Wrap(services.ErrPermanent, "assembling", "probe",
			fmt.Sprintf("unreadable asset %s", path), err)
	}
	match := meanVolumePattern.FindStringSubmatch(output)
	if match == nil {
		return 0, services.Wrap(services.ErrPermanent, "assembling", "probe",
			fmt.Sprintf("asset %s: volumedetect produced no measurement", path), nil)
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, services.Wrap(services.ErrPermanent, "assembling", "probe",
			fmt.Sprintf("asset %s: parse mean volume %q", path, match[1]), err)
	}
	return value, nil
}
