package assembly

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"mixdown/internal/logging"
	"mixdown/internal/media"
	"mixdown/internal/services"
)

// durationTolerance bounds how far the exported mix may drift from the
// planned duration before the run is considered corrupt. Encoder padding on
// mp3 frames accounts for well under a second.
const durationTolerance = 2 * time.Second

// Input names one fetched audio asset in its mix position.
type Input struct {
	Path  string
	Title string
}

// Result describes the assembled mix.
type Result struct {
	Path     string
	Duration time.Duration
	Tracks   []Track
}

// Engine measures, normalizes, joins, and exports audio tracks as one
// continuous file. Unlike generation and fetching, any failure here is
// fatal to the run: a gapless mix cannot be partially produced.
type Engine struct {
	runner       media.Runner
	prober       *media.Prober
	ffmpegBinary string
	logger       *slog.Logger
}

// NewEngine constructs an assembly engine.
func NewEngine(runner media.Runner, prober *media.Prober, ffmpegBinary string, logger *slog.Logger) *Engine {
	if runner == nil {
		runner = media.CommandRunner{}
	}
	if prober == nil {
		prober = media.NewProber(runner, ffmpegBinary, "")
	}
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{runner: runner, prober: prober, ffmpegBinary: ffmpegBinary, logger: logger}
}

// Assemble normalizes every input to the target loudness, joins them in the
// given order under the transition policy, and exports once to outputPath.
func (e *Engine) Assemble(ctx context.Context, inputs []Input, spec MixSpec, outputPath string) (Result, error) {
	if len(inputs) == 0 {
		return Result{}, services.Wrap(services.ErrValidation, "assembling", "plan", "no tracks to assemble", nil)
	}

	spec.Tracks = make([]Track, len(inputs))
	for i, input := range inputs {
		duration, err := e.prober.Duration(ctx, input.Path)
		if err != nil {
			return Result{}, err
		}
		mean, err := e.prober.MeanVolume(ctx, input.Path)
		if err != nil {
			return Result{}, err
		}
		spec.Tracks[i] = Track{
			Path:       input.Path,
			Title:      input.Title,
			Duration:   duration,
			MeanVolume: mean,
			Gain:       GainFor(spec.TargetLoudness, mean),
		}
		e.logger.Debug("measured track",
			logging.String("path", input.Path),
			logging.Duration("duration", duration),
			logging.Float64("mean_dbfs", mean),
			logging.Float64("gain_db", spec.Tracks[i].Gain),
		)
	}

	planned := ExpectedDuration(spec.Tracks, spec.Transition)
	e.logger.Info("assembling mix",
		logging.Int("tracks", len(spec.Tracks)),
		logging.String("transition", string(spec.Transition.Kind)),
		logging.Duration("planned_duration", planned),
	)

	if _, err := e.runner.Run(ctx, e.ffmpegBinary, buildArgs(spec, outputPath)...); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "assembling", "export", "ffmpeg failed", err)
	}
	if info, err := os.Stat(outputPath); err != nil || info.Size() == 0 {
		return Result{}, services.Wrap(services.ErrExternalTool, "assembling", "export",
			fmt.Sprintf("mix file %s missing or empty", outputPath), err)
	}

	actual, err := e.prober.Duration(ctx, outputPath)
	if err != nil {
		return Result{}, err
	}
	if drift := time.Duration(math.Abs(float64(actual - planned))); drift > durationTolerance {
		return Result{}, services.Wrap(services.ErrExternalTool, "assembling", "export",
			fmt.Sprintf("mix duration %s drifted %s from planned %s", actual, drift, planned), nil)
	}

	return Result{Path: outputPath, Duration: actual, Tracks: spec.Tracks}, nil
}
