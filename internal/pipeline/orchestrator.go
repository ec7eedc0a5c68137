package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"mixdown/internal/assembly"
	"mixdown/internal/batch"
	"mixdown/internal/config"
	"mixdown/internal/enrich"
	"mixdown/internal/fetch"
	"mixdown/internal/fileutil"
	"mixdown/internal/logging"
	"mixdown/internal/metadata"
	"mixdown/internal/notifications"
	"mixdown/internal/presets"
	"mixdown/internal/publish"
	"mixdown/internal/services"
	"mixdown/internal/services/suno"
	"mixdown/internal/store"
	"mixdown/internal/video"
)

// Deps are the collaborators one orchestrator drives. Ledger may be nil to
// run without persistence.
type Deps struct {
	Generator Generator
	Fetcher   Fetcher
	Assembler Assembler
	Encoder   Encoder
	Titles    TitleSource
	Thumbnail ThumbnailSource
	Notifier  notifications.Service
	Publisher publish.Publisher
	Ledger    *store.Store
}

// Orchestrator sequences one run through its phases.
type Orchestrator struct {
	cfg      *config.Config
	logger   *slog.Logger
	deps     Deps
	progress ProgressFunc
	now      func() time.Time
}

// Option customizes the orchestrator.
type Option func(*Orchestrator)

// WithProgress registers the phase-transition callback.
func WithProgress(fn ProgressFunc) Option {
	return func(o *Orchestrator) {
		o.progress = fn
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// New constructs an orchestrator.
func New(cfg *config.Config, logger *slog.Logger, deps Deps, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	o := &Orchestrator{
		cfg:    cfg,
		logger: logger,
		deps:   deps,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type runState struct {
	id       string
	request  Request
	preset   presets.Preset
	runDir   string
	tempDir  string
	failures []TrackFailure
}

// Run executes one pipeline invocation to its terminal state. Partial track
// failures are reported in the result; the returned error is non-nil only
// for fatal outcomes, in which case no partial output is published.
func (o *Orchestrator) Run(ctx context.Context, request Request) (RunResult, error) {
	preset, ok := presets.Get(request.Genre)
	if !ok {
		return RunResult{}, services.Wrap(services.ErrValidation, "init", "request",
			fmt.Sprintf("unknown genre %q (known: %s)", request.Genre, strings.Join(presets.Keys(), ", ")), nil)
	}
	if request.TrackCount < 1 {
		return RunResult{}, services.Wrap(services.ErrValidation, "init", "request",
			fmt.Sprintf("track count must be at least 1, got %d", request.TrackCount), nil)
	}
	request.Mood = strings.ToLower(strings.TrimSpace(request.Mood))
	if request.Mood == "" {
		request.Mood = "dark"
	}

	state := &runState{
		id:      uuid.NewString(),
		request: request,
		preset:  preset,
	}
	ctx = services.WithRunID(ctx, state.id)
	logger := o.logger.With(logging.String(logging.FieldRunID, state.id))

	state.runDir = filepath.Join(o.cfg.Paths.OutputDir, fmt.Sprintf("%s_%s_%s",
		fileutil.SanitizeName(request.Mood), preset.Key, o.now().Format("20060102_150405")))
	state.tempDir = filepath.Join(o.cfg.Paths.TempDir, state.id)
	for _, dir := range []string{state.runDir, state.tempDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return RunResult{}, fmt.Errorf("create run directory %q: %w", dir, err)
		}
	}

	// One run at a time. Generation concurrency is budgeted per run, so
	// overlapping runs would blow through the service's rate limits.
	runLock := flock.New(filepath.Join(o.cfg.Paths.TempDir, "mixdown.lock"))
	locked, err := runLock.TryLock()
	if err != nil {
		return RunResult{}, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return RunResult{}, fmt.Errorf("another run is already in progress")
	}
	defer func() { _ = runLock.Unlock() }()

	if o.deps.Ledger != nil {
		if err := o.deps.Ledger.CreateRun(ctx, store.Run{
			ID: state.id, Mood: request.Mood, Genre: preset.Key,
			TrackCount: request.TrackCount, Status: string(PhaseInit),
		}); err != nil {
			logger.Warn("record run", logging.Error(err))
		}
	}
	if o.deps.Notifier != nil {
		_ = o.deps.Notifier.NotifyRunStarted(ctx, request.Mood, preset.Name, request.TrackCount)
	}
	o.report(Progress{Phase: PhaseInit, Message: fmt.Sprintf("%s %s, %d tracks", request.Mood, preset.Name, request.TrackCount)})

	result, err := o.execute(ctx, logger, state)
	if err != nil {
		o.fail(ctx, logger, state, err)
		return RunResult{}, err
	}

	if o.cfg.Pipeline.CleanupTemp {
		if removeErr := os.RemoveAll(state.tempDir); removeErr != nil {
			logger.Warn("cleanup temp dir", logging.Error(removeErr))
		}
	}
	if o.deps.Ledger != nil {
		if err := o.deps.Ledger.FinishRun(ctx, store.Run{
			ID: state.id, Status: string(PhaseDone),
			AudioPath: result.AudioPath, VideoPath: result.VideoPath, ThumbnailPath: result.ThumbnailPath,
			TitlesTier: string(result.TitlesTier), ThumbnailTier: string(result.ThumbnailTier),
		}); err != nil {
			logger.Warn("record run completion", logging.Error(err))
		}
	}
	if o.deps.Notifier != nil {
		_ = o.deps.Notifier.NotifyRunCompleted(ctx, result.VideoTitle, result.Duration)
	}
	o.report(Progress{Phase: PhaseDone, Message: result.VideoPath})
	return result, nil
}

func (o *Orchestrator) execute(ctx context.Context, logger *slog.Logger, state *runState) (RunResult, error) {
	request := state.request
	preset := state.preset

	// Titles first: every generation request needs its human title.
	titles, titlesTier, err := o.deps.Titles.Resolve(ctx, preset, request.TrackCount)
	if err != nil {
		return RunResult{}, err
	}
	o.setStatus(ctx, logger, state, PhaseTitlesResolved)
	o.report(Progress{Phase: PhaseTitlesResolved, Message: string(titlesTier), Total: len(titles)})

	// Track generation and thumbnail resolution share no state and run
	// concurrently. Neither aborts the other: generation is fail-soft per
	// track, and the thumbnail's fallback tier absorbs primary failures.
	o.setStatus(ctx, logger, state, PhaseGenerating)
	coverPath := filepath.Join(state.tempDir, "cover.jpg")

	var (
		outcomes      []batch.Outcome[suno.GenerationResult]
		thumbnailTier enrich.Tier
		thumbnailErr  error
	)
	var group errgroup.Group
	group.Go(func() error {
		outcomes = o.generateAll(ctx, preset, titles)
		return nil
	})
	group.Go(func() error {
		coverPath, thumbnailTier, thumbnailErr = o.deps.Thumbnail.Resolve(ctx, coverPath)
		return nil
	})
	_ = group.Wait()
	if thumbnailErr != nil {
		return RunResult{}, thumbnailErr
	}

	generated := make([]metadata.TrackRecord, 0, len(outcomes))
	urls := make([]string, 0, len(outcomes))
	for i, outcome := range outcomes {
		slot := i + 1
		if !outcome.OK() {
			state.failures = append(state.failures, TrackFailure{
				Index: slot, Title: titles[i], Phase: PhaseGenerating, Reason: outcome.Err.Error(),
			})
			o.recordTrack(ctx, logger, state, store.Track{
				RunID: state.id, Index: slot, Title: titles[i],
				Status: "failed", ErrorMessage: outcome.Err.Error(),
			})
			continue
		}
		generated = append(generated, metadata.TrackRecord{
			Index:       slot,
			Title:       titles[i],
			JobID:       outcome.Value.JobID,
			Duration:    outcome.Value.Duration,
			GeneratedAt: o.now().UTC(),
		})
		urls = append(urls, outcome.Value.AudioURL)
		o.recordTrack(ctx, logger, state, store.Track{
			RunID: state.id, Index: slot, Title: titles[i], JobID: outcome.Value.JobID,
			Status: "complete", Duration: outcome.Value.Duration,
		})
	}
	if o.deps.Notifier != nil {
		_ = o.deps.Notifier.NotifyGenerationCompleted(ctx, len(generated), request.TrackCount)
	}
	if err := o.checkViability(len(generated), request.TrackCount, PhaseGenerating); err != nil {
		return RunResult{}, err
	}

	// Fetch keeps request order; a failed download drops only its track.
	o.setStatus(ctx, logger, state, PhaseFetching)
	o.report(Progress{Phase: PhaseFetching, Total: len(generated)})
	fetchRequests := make([]fetch.Request, len(generated))
	for i, record := range generated {
		fetchRequests[i] = fetch.Request{
			URL:  urls[i],
			Path: filepath.Join(state.tempDir, fileutil.TrackFileName(record.Index, record.Title, ".mp3")),
			Kind: fetch.KindAudio,
		}
	}
	fetched := make([]metadata.TrackRecord, 0, len(generated))
	inputs := make([]assembly.Input, 0, len(generated))
	for i, outcome := range o.deps.Fetcher.FetchAll(ctx, fetchRequests) {
		record := generated[i]
		if !outcome.OK() {
			state.failures = append(state.failures, TrackFailure{
				Index: record.Index, Title: record.Title, Phase: PhaseFetching, Reason: outcome.Err.Error(),
			})
			o.recordTrack(ctx, logger, state, store.Track{
				RunID: state.id, Index: record.Index, Title: record.Title, JobID: record.JobID,
				Status: "fetch_failed", ErrorMessage: outcome.Err.Error(),
			})
			continue
		}
		fetched = append(fetched, record)
		inputs = append(inputs, assembly.Input{Path: outcome.Value.Path, Title: record.Title})
	}
	if err := o.checkViability(len(fetched), request.TrackCount, PhaseFetching); err != nil {
		return RunResult{}, err
	}

	// Assembly and encoding are the fatal phases: a gapless mix cannot be
	// partially produced.
	o.setStatus(ctx, logger, state, PhaseAssembling)
	o.report(Progress{Phase: PhaseAssembling, Total: len(inputs)})
	audioPath := filepath.Join(state.runDir, "mix."+o.cfg.Mixer.OutputFormat)
	mix, err := o.deps.Assembler.Assemble(ctx, inputs, o.mixSpec(), audioPath)
	if err != nil {
		return RunResult{}, err
	}
	for i := range fetched {
		fetched[i].Duration = mix.Tracks[i].Duration
	}

	doc := metadata.Build(metadata.Params{
		Mood:          request.Mood,
		Preset:        preset,
		Tracks:        fetched,
		Failures:      toFailureRecords(state.failures),
		TotalDuration: mix.Duration,
		Crossfade:     o.crossfadeOverlap(),
		TitlesTier:    string(titlesTier),
		ThumbnailTier: string(thumbnailTier),
		CreatedAt:     o.now().UTC(),
		AudioPath:     audioPath,
	})

	o.setStatus(ctx, logger, state, PhaseEncoding)
	o.report(Progress{Phase: PhaseEncoding})
	videoPath := filepath.Join(state.runDir, "mix.mp4")
	settings, err := o.videoSettings()
	if err != nil {
		return RunResult{}, err
	}
	if err := o.deps.Encoder.Compose(ctx, coverPath, audioPath, videoPath, settings); err != nil {
		return RunResult{}, err
	}
	thumbnailPath := filepath.Join(state.runDir, "thumbnail.jpg")
	if err := o.deps.Encoder.RenderThumbnail(ctx, coverPath, doc.VideoTitle, thumbnailPath, settings, video.OverlaySettings{
		Enabled:  o.cfg.Overlay.Enabled,
		FontFile: o.cfg.Overlay.FontFile,
		FontSize: o.cfg.Overlay.FontSize,
		Color:    o.cfg.Overlay.Color,
	}); err != nil {
		return RunResult{}, err
	}

	o.setStatus(ctx, logger, state, PhaseMetadataReady)
	doc.VideoPath = videoPath
	doc.ThumbnailPath = thumbnailPath
	metadataPath := filepath.Join(state.runDir, "metadata.json")
	if err := doc.WriteFile(metadataPath); err != nil {
		return RunResult{}, err
	}
	o.report(Progress{Phase: PhaseMetadataReady, Message: metadataPath})

	result := RunResult{
		RunID:         state.id,
		Mood:          request.Mood,
		Genre:         preset.Key,
		AudioPath:     audioPath,
		VideoPath:     videoPath,
		ThumbnailPath: thumbnailPath,
		MetadataPath:  metadataPath,
		VideoTitle:    doc.VideoTitle,
		Duration:      mix.Duration,
		Tracks:        fetched,
		Failures:      state.failures,
		TitlesTier:    titlesTier,
		ThumbnailTier: thumbnailTier,
	}

	// Publishing is outside the viability contract: a publish failure is
	// reported, never fatal to an already-finished artifact.
	if o.deps.Publisher != nil && o.deps.Publisher.Enabled() {
		publishID, err := o.deps.Publisher.Publish(ctx, videoPath, thumbnailPath, publish.Metadata{
			Title:       doc.VideoTitle,
			Description: doc.Description,
			Tags:        doc.Tags,
			Category:    o.cfg.Publish.Category,
			Privacy:     o.cfg.Publish.Privacy,
		})
		if err != nil {
			logger.Warn("publish failed", logging.Error(err))
			state.failures = append(state.failures, TrackFailure{Phase: "publishing", Reason: err.Error()})
			result.Failures = state.failures
		} else {
			result.PublishID = publishID
		}
	}

	return result, nil
}

// generateAll fans the batch out to the generation client under the
// generation admission pool. Outcomes preserve request order.
func (o *Orchestrator) generateAll(ctx context.Context, preset presets.Preset, titles []string) []batch.Outcome[suno.GenerationResult] {
	requests := make([]suno.GenerationRequest, len(titles))
	for i, title := range titles {
		requests[i] = suno.GenerationRequest{
			Prompt:       preset.Prompt,
			Style:        preset.Style,
			Title:        title,
			NegativeTags: preset.NegativeTags,
		}
	}
	total := len(requests)
	return batch.RunAll(ctx, requests, int64(o.cfg.Suno.MaxConcurrent),
		func(ctx context.Context, index int, req suno.GenerationRequest) (suno.GenerationResult, error) {
			ctx = services.WithTrack(ctx, index+1)
			result, err := o.deps.Generator.Generate(ctx, req)
			message := "complete"
			if err != nil {
				message = err.Error()
			}
			o.report(Progress{Phase: PhaseGenerating, Message: message, Item: index + 1, Total: total})
			return result, err
		})
}

// checkViability enforces the surviving-track minimum. Zero survivors is
// always fatal; the configured minimum may raise the bar.
func (o *Orchestrator) checkViability(surviving, requested int, phase Phase) error {
	minTracks := o.cfg.Pipeline.MinTracks
	if minTracks < 1 {
		minTracks = 1
	}
	if surviving >= minTracks {
		return nil
	}
	return services.Wrap(services.ErrPermanent, string(phase), "viability",
		fmt.Sprintf("only %d of %d tracks survived, need at least %d", surviving, requested, minTracks), nil)
}

func (o *Orchestrator) mixSpec() assembly.MixSpec {
	return assembly.MixSpec{
		Transition: assembly.TransitionPolicy{
			Kind:              assembly.TransitionKind(o.cfg.Mixer.Transition),
			CrossfadeDuration: time.Duration(o.cfg.Mixer.CrossfadeDurationMs) * time.Millisecond,
		},
		TargetLoudness: o.cfg.Mixer.TargetLoudnessDBFS,
		OutputFormat:   o.cfg.Mixer.OutputFormat,
		OutputBitrate:  o.cfg.Mixer.OutputBitrate,
		Warmth:         o.cfg.Mixer.Warmth,
	}
}

func (o *Orchestrator) crossfadeOverlap() time.Duration {
	if o.cfg.Mixer.Transition != string(assembly.TransitionCrossfade) {
		return 0
	}
	return time.Duration(o.cfg.Mixer.CrossfadeDurationMs) * time.Millisecond
}

func (o *Orchestrator) videoSettings() (video.Settings, error) {
	width, height, err := config.ParseResolution(o.cfg.Video.Resolution)
	if err != nil {
		return video.Settings{}, services.Wrap(services.ErrConfiguration, "encoding", "settings", "resolution", err)
	}
	return video.Settings{
		Width:        width,
		Height:       height,
		FPS:          o.cfg.Video.FPS,
		Codec:        o.cfg.Video.Codec,
		Preset:       o.cfg.Video.Preset,
		CRF:          o.cfg.Video.CRF,
		AudioCodec:   o.cfg.Video.AudioCodec,
		AudioBitrate: o.cfg.Video.AudioBitrate,
		FadeIn:       time.Duration(o.cfg.Video.FadeInSecs) * time.Second,
	}, nil
}

func (o *Orchestrator) setStatus(ctx context.Context, logger *slog.Logger, state *runState, phase Phase) {
	logger.Info("phase", logging.String(logging.FieldPhase, string(phase)))
	if o.deps.Ledger != nil {
		if err := o.deps.Ledger.UpdateRunStatus(ctx, state.id, string(phase), ""); err != nil {
			logger.Warn("record phase", logging.Error(err))
		}
	}
}

func (o *Orchestrator) recordTrack(ctx context.Context, logger *slog.Logger, state *runState, track store.Track) {
	if o.deps.Ledger == nil {
		return
	}
	if err := o.deps.Ledger.RecordTrack(ctx, track); err != nil {
		logger.Warn("record track", logging.Error(err))
	}
}

func (o *Orchestrator) fail(ctx context.Context, logger *slog.Logger, state *runState, err error) {
	logger.Error("run failed", logging.Error(err))
	if o.deps.Ledger != nil {
		if updateErr := o.deps.Ledger.UpdateRunStatus(ctx, state.id, string(PhaseFailed), err.Error()); updateErr != nil {
			logger.Warn("record failure", logging.Error(updateErr))
		}
	}
	if o.deps.Notifier != nil {
		_ = o.deps.Notifier.NotifyRunFailed(ctx, err.Error())
	}
	o.report(Progress{Phase: PhaseFailed, Message: err.Error()})
}

func (o *Orchestrator) report(progress Progress) {
	if o.progress != nil {
		o.progress(progress)
	}
}

func toFailureRecords(failures []TrackFailure) []metadata.FailureRecord {
	if len(failures) == 0 {
		return nil
	}
	records := make([]metadata.FailureRecord, len(failures))
	for i, failure := range failures {
		records[i] = metadata.FailureRecord{
			Index:  failure.Index,
			Title:  failure.Title,
			Phase:  string(failure.Phase),
			Reason: failure.Reason,
		}
	}
	return records
}
