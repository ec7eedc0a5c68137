// Package metadata builds the structured record that accompanies every
// finished run: video title and description, track list with timestamps,
// per-phase failure records, and which fallback tier produced each optional
// asset.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"mixdown/internal/presets"
)

// TrackRecord describes one track that made it into the final mix.
type TrackRecord struct {
	Index       int           `json:"index"`
	Title       string        `json:"title"`
	JobID       string        `json:"job_id"`
	Duration    time.Duration `json:"duration_ns"`
	StartOffset time.Duration `json:"start_offset_ns"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// FailureRecord describes one track slot or phase item that did not
// survive. The run still completed; these are reported, never swallowed.
type FailureRecord struct {
	Index  int    `json:"index"`
	Title  string `json:"title,omitempty"`
	Phase  string `json:"phase"`
	Reason string `json:"reason"`
}

// Document is the run's metadata record, written as JSON beside the final
// artifacts.
type Document struct {
	Mood          string          `json:"mood"`
	Genre         string          `json:"genre"`
	GenreName     string          `json:"genre_name"`
	CreatedAt     time.Time       `json:"created_at"`
	VideoTitle    string          `json:"video_title"`
	Description   string          `json:"description"`
	Tags          []string        `json:"tags"`
	Tracks        []TrackRecord   `json:"tracks"`
	Failures      []FailureRecord `json:"failures"`
	TotalDuration time.Duration   `json:"total_duration_ns"`
	TitlesTier    string          `json:"titles_tier"`
	ThumbnailTier string          `json:"thumbnail_tier"`
	AudioPath     string          `json:"audio_path"`
	VideoPath     string          `json:"video_path"`
	ThumbnailPath string          `json:"thumbnail_path"`
}

// Params carries everything the builder needs from the run.
type Params struct {
	Mood          string
	Preset        presets.Preset
	Tracks        []TrackRecord
	Failures      []FailureRecord
	TotalDuration time.Duration
	Crossfade     time.Duration // per-join overlap, zero under cut
	TitlesTier    string
	ThumbnailTier string
	CreatedAt     time.Time
	AudioPath     string
	VideoPath     string
	ThumbnailPath string
}

// Build assembles the document. Track start offsets are derived from the
// preceding durations minus the accumulated crossfade overlap, so the
// description's timestamps land on the audible track boundaries.
func Build(params Params) Document {
	tracks := make([]TrackRecord, len(params.Tracks))
	copy(tracks, params.Tracks)

	var offset time.Duration
	for i := range tracks {
		tracks[i].StartOffset = offset
		offset += tracks[i].Duration - params.Crossfade
	}

	doc := Document{
		Mood:          params.Mood,
		Genre:         params.Preset.Key,
		GenreName:     params.Preset.Name,
		CreatedAt:     params.CreatedAt,
		VideoTitle:    videoTitle(params.Mood, params.Preset.Name, params.TotalDuration),
		Tags:          buildTags(params.Mood, params.Preset),
		Tracks:        tracks,
		Failures:      params.Failures,
		TotalDuration: params.TotalDuration,
		TitlesTier:    params.TitlesTier,
		ThumbnailTier: params.ThumbnailTier,
		AudioPath:     params.AudioPath,
		VideoPath:     params.VideoPath,
		ThumbnailPath: params.ThumbnailPath,
	}
	doc.Description = buildDescription(doc)
	return doc
}

// WriteFile writes the document as indented JSON.
func (d Document) WriteFile(path string) error {
	encoded, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(path, append(encoded, '\n'), 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

func videoTitle(mood, genreName string, total time.Duration) string {
	return fmt.Sprintf("%s %s Mix — %s of Focus Music",
		presets.DisplayName(mood), genreName, FormatLength(total))
}

func buildDescription(doc Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s for deep work, coding, and late-night focus.\n\n", doc.VideoTitle)

	b.WriteString("Tracklist:\n")
	for _, track := range doc.Tracks {
		fmt.Fprintf(&b, "%s  %s\n", FormatTimestamp(track.StartOffset), track.Title)
	}

	b.WriteString("\n")
	for i, tag := range doc.Tags {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString("#" + strings.ReplaceAll(tag, " ", ""))
	}
	b.WriteString("\n")
	return b.String()
}

func buildTags(mood string, preset presets.Preset) []string {
	tags := []string{
		strings.ToLower(mood),
		strings.ToLower(preset.Name),
		"focus music",
		"coding music",
		"study music",
	}
	seen := make(map[string]bool, len(tags))
	unique := tags[:0]
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		unique = append(unique, tag)
	}
	return unique
}

// FormatTimestamp renders a track offset as M:SS, or H:MM:SS past an hour.
func FormatTimestamp(d time.Duration) string {
	d = d.Round(time.Second)
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// FormatLength renders a total duration for human titles: "2 Hours",
// "1 Hour", "45 Minutes".
func FormatLength(d time.Duration) string {
	minutes := int(d.Round(time.Minute).Minutes())
	switch {
	case minutes >= 120 && minutes%60 < 15:
		return fmt.Sprintf("%d Hours", minutes/60)
	case minutes >= 60 && minutes < 75:
		return "1 Hour"
	case minutes >= 60:
		hours := float64(minutes) / 60
		return strings.TrimSuffix(fmt.Sprintf("%.1f", hours), ".0") + " Hours"
	case minutes <= 1:
		return "1 Minute"
	default:
		return fmt.Sprintf("%d Minutes", minutes)
	}
}
