// Package pipeline sequences one run end to end: title resolution,
// concurrent track generation alongside thumbnail resolution, asset
// fetching, audio assembly, video encoding, and metadata. Generation and
// fetch failures are collected per track and never abort siblings; only
// assembly, encoding, or a surviving track count below the viability
// threshold fail the run.
package pipeline

import (
	"context"
	"time"

	"mixdown/internal/assembly"
	"mixdown/internal/batch"
	"mixdown/internal/enrich"
	"mixdown/internal/fetch"
	"mixdown/internal/metadata"
	"mixdown/internal/presets"
	"mixdown/internal/services/suno"
	"mixdown/internal/video"
)

// Phase names one stage of the run's linear state machine.
type Phase string

const (
	PhaseInit           Phase = "init"
	PhaseTitlesResolved Phase = "titles_resolved"
	PhaseGenerating     Phase = "generating"
	PhaseFetching       Phase = "fetching"
	PhaseAssembling     Phase = "assembling"
	PhaseEncoding       Phase = "encoding"
	PhaseMetadataReady  Phase = "metadata_ready"
	PhaseDone           Phase = "done"
	PhaseFailed         Phase = "failed"
)

// Progress is one phase-transition report delivered to the CLI layer.
type Progress struct {
	Phase   Phase
	Message string
	Item    int // 1-based track slot, zero for phase-level events
	Total   int
}

// ProgressFunc consumes progress reports. It must not block.
type ProgressFunc func(Progress)

// Request is the user's ask: a mood, a genre preset, and a track count.
type Request struct {
	Mood       string
	Genre      string
	TrackCount int
}

// TrackFailure records one track slot that did not survive to the mix.
type TrackFailure struct {
	Index  int // 1-based request slot
	Title  string
	Phase  Phase
	Reason string
}

// RunResult is the terminal state of one pipeline invocation. Constructed
// only by the orchestrator; immutable once returned.
type RunResult struct {
	RunID         string
	Mood          string
	Genre         string
	AudioPath     string
	VideoPath     string
	ThumbnailPath string
	MetadataPath  string
	PublishID     string
	VideoTitle    string
	Duration      time.Duration
	Tracks        []metadata.TrackRecord
	Failures      []TrackFailure
	TitlesTier    enrich.Tier
	ThumbnailTier enrich.Tier
}

// Generator is the slice of the generation client the pipeline needs.
type Generator interface {
	Generate(ctx context.Context, req suno.GenerationRequest) (suno.GenerationResult, error)
}

// Fetcher downloads generated assets under its own admission pool.
type Fetcher interface {
	FetchAll(ctx context.Context, requests []fetch.Request) []batch.Outcome[fetch.Asset]
}

// Assembler produces the continuous mix from ordered fetched tracks.
type Assembler interface {
	Assemble(ctx context.Context, inputs []assembly.Input, spec assembly.MixSpec, outputPath string) (assembly.Result, error)
}

// Encoder produces the final video and the publish thumbnail.
type Encoder interface {
	Compose(ctx context.Context, imagePath, audioPath, outputPath string, settings video.Settings) error
	RenderThumbnail(ctx context.Context, imagePath, title, outputPath string, settings video.Settings, overlay video.OverlaySettings) error
}

// TitleSource resolves per-track titles through the two-tier fallback.
type TitleSource interface {
	Resolve(ctx context.Context, preset presets.Preset, count int) ([]string, enrich.Tier, error)
}

// ThumbnailSource resolves the cover image through the two-tier fallback.
type ThumbnailSource interface {
	Resolve(ctx context.Context, outputPath string) (string, enrich.Tier, error)
}
