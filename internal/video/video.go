// Package video encodes the final artifact: one still image looped over
// the assembled audio track, with a brief fade-in, at a fixed frame rate.
// It also renders the publish thumbnail with an optional text overlay.
package video

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"mixdown/internal/logging"
	"mixdown/internal/media"
	"mixdown/internal/services"
)

// Settings holds the encode parameters for the final video.
type Settings struct {
	Width        int
	Height       int
	FPS          int
	Codec        string
	Preset       string
	CRF          int
	AudioCodec   string
	AudioBitrate string
	FadeIn       time.Duration
}

// OverlaySettings holds the thumbnail text overlay parameters.
type OverlaySettings struct {
	Enabled  bool
	FontFile string
	FontSize int
	Color    string
}

// Encoder drives ffmpeg for video composition.
type Encoder struct {
	runner       media.Runner
	ffmpegBinary string
	logger       *slog.Logger
}

// NewEncoder constructs a video encoder.
func NewEncoder(runner media.Runner, ffmpegBinary string, logger *slog.Logger) *Encoder {
	if runner == nil {
		runner = media.CommandRunner{}
	}
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Encoder{runner: runner, ffmpegBinary: ffmpegBinary, logger: logger}
}

// Compose loops the still image for the full duration of the audio track
// and writes one video file. The encode is synchronous and fatal on error.
func (e *Encoder) Compose(ctx context.Context, imagePath, audioPath, outputPath string, settings Settings) error {
	args := composeArgs(imagePath, audioPath, outputPath, settings)
	e.logger.Info("encoding video",
		logging.String("image", imagePath),
		logging.String("audio", audioPath),
		logging.String("output", outputPath),
	)
	if _, err := e.runner.Run(ctx, e.ffmpegBinary, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "encoding", "compose", "ffmpeg failed", err)
	}
	if info, err := os.Stat(outputPath); err != nil || info.Size() == 0 {
		return services.Wrap(services.ErrExternalTool, "encoding", "compose",
			fmt.Sprintf("video file %s missing or empty", outputPath), err)
	}
	return nil
}

func composeArgs(imagePath, audioPath, outputPath string, s Settings) []string {
	filters := []string{
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase", s.Width, s.Height),
		fmt.Sprintf("crop=%d:%d", s.Width, s.Height),
	}
	if s.FadeIn > 0 {
		filters = append(filters, fmt.Sprintf("fade=t=in:st=0:d=%.1f", s.FadeIn.Seconds()))
	}

	return []string{
		"-hide_banner", "-y",
		"-loop", "1",
		"-i", imagePath,
		"-i", audioPath,
		"-vf", strings.Join(filters, ","),
		"-c:v", s.Codec,
		"-preset", s.Preset,
		"-tune", "stillimage",
		"-crf", fmt.Sprintf("%d", s.CRF),
		"-pix_fmt", "yuv420p",
		"-r", fmt.Sprintf("%d", s.FPS),
		"-c:a", s.AudioCodec,
		"-b:a", s.AudioBitrate,
		"-shortest",
		outputPath,
	}
}

// RenderThumbnail scales the source image to the video resolution and, when
// the overlay is enabled, centers the mix title over it.
func (e *Encoder) RenderThumbnail(ctx context.Context, imagePath, title, outputPath string, settings Settings, overlay OverlaySettings) error {
	args := thumbnailArgs(imagePath, title, outputPath, settings, overlay)
	if _, err := e.runner.Run(ctx, e.ffmpegBinary, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "encoding", "thumbnail", "ffmpeg failed", err)
	}
	if info, err := os.Stat(outputPath); err != nil || info.Size() == 0 {
		return services.Wrap(services.ErrExternalTool, "encoding", "thumbnail",
			fmt.Sprintf("thumbnail %s missing or empty", outputPath), err)
	}
	return nil
}

func thumbnailArgs(imagePath, title, outputPath string, s Settings, overlay OverlaySettings) []string {
	filters := []string{
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase", s.Width, s.Height),
		fmt.Sprintf("crop=%d:%d", s.Width, s.Height),
	}
	if overlay.Enabled && strings.TrimSpace(title) != "" {
		draw := []string{
			"text='" + escapeDrawtext(title) + "'",
			fmt.Sprintf("fontsize=%d", overlay.FontSize),
			"fontcolor=" + overlay.Color,
			"x=(w-text_w)/2",
			"y=(h-text_h)/2",
			"shadowcolor=black@0.6",
			"shadowx=4",
			"shadowy=4",
		}
		if overlay.FontFile != "" {
			draw = append(draw, "fontfile="+overlay.FontFile)
		}
		filters = append(filters, "drawtext="+strings.Join(draw, ":"))
	}

	return []string{
		"-hide_banner", "-y",
		"-i", imagePath,
		"-vf", strings.Join(filters, ","),
		"-frames:v", "1",
		outputPath,
	}
}

// escapeDrawtext escapes the characters the drawtext filter treats
// specially inside a quoted text value.
func escapeDrawtext(text string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\\\'`,
		`:`, `\:`,
		`%`, `\%`,
	)
	return replacer.Replace(text)
}
