package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"mixdown/internal/assembly"
	"mixdown/internal/batch"
	"mixdown/internal/config"
	"mixdown/internal/enrich"
	"mixdown/internal/fetch"
	"mixdown/internal/metadata"
	"mixdown/internal/presets"
	"mixdown/internal/publish"
	"mixdown/internal/services"
	"mixdown/internal/services/suno"
	"mixdown/internal/store"
	"mixdown/internal/video"
)

type fakeTitles struct {
	tier enrich.Tier
	err  error
}

func (f fakeTitles) Resolve(_ context.Context, _ presets.Preset, count int) ([]string, enrich.Tier, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	titles := make([]string, count)
	for i := range titles {
		titles[i] = fmt.Sprintf("Track %02d", i+1)
	}
	tier := f.tier
	if tier == "" {
		tier = enrich.TierPrimary
	}
	return titles, tier, nil
}

type fakeThumbnail struct {
	tier enrich.Tier
	err  error
}

func (f fakeThumbnail) Resolve(_ context.Context, outputPath string) (string, enrich.Tier, error) {
	if f.err != nil {
		return "", "", f.err
	}
	if err := os.WriteFile(outputPath, []byte("jpeg"), 0o644); err != nil {
		return "", "", err
	}
	tier := f.tier
	if tier == "" {
		tier = enrich.TierPrimary
	}
	return outputPath, tier, nil
}

// fakeGenerator fails the slots whose title appears in failTitles.
type fakeGenerator struct {
	mu         sync.Mutex
	calls      int
	failTitles map[string]error
}

func (f *fakeGenerator) Generate(_ context.Context, req suno.GenerationRequest) (suno.GenerationResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if err, ok := f.failTitles[req.Title]; ok {
		return suno.GenerationResult{}, err
	}
	return suno.GenerationResult{
		JobID:    "job-" + req.Title,
		Title:    req.Title,
		AudioURL: "https://cdn.example.com/" + strings.ReplaceAll(req.Title, " ", "_") + ".mp3",
		ImageURL: "https://cdn.example.com/cover.jpg",
		Duration: 3 * time.Minute,
	}, nil
}

// fakeFetcher writes each requested file unless the slot is marked to fail.
type fakeFetcher struct {
	failIndexes map[int]error
}

func (f *fakeFetcher) FetchAll(_ context.Context, requests []fetch.Request) []batch.Outcome[fetch.Asset] {
	outcomes := make([]batch.Outcome[fetch.Asset], len(requests))
	for i, req := range requests {
		outcomes[i].Index = i
		if err, ok := f.failIndexes[i]; ok {
			outcomes[i].Err = err
			continue
		}
		if err := os.WriteFile(req.Path, []byte("audio"), 0o644); err != nil {
			outcomes[i].Err = err
			continue
		}
		outcomes[i].Value = fetch.Asset{URL: req.URL, Path: req.Path, Size: 5, Kind: req.Kind}
	}
	return outcomes
}

type fakeAssembler struct {
	inputs []assembly.Input
	err    error
}

func (f *fakeAssembler) Assemble(_ context.Context, inputs []assembly.Input, spec assembly.MixSpec, outputPath string) (assembly.Result, error) {
	f.inputs = inputs
	if f.err != nil {
		return assembly.Result{}, f.err
	}
	if err := os.WriteFile(outputPath, []byte("mix"), 0o644); err != nil {
		return assembly.Result{}, err
	}
	tracks := make([]assembly.Track, len(inputs))
	var total time.Duration
	for i, input := range inputs {
		tracks[i] = assembly.Track{Path: input.Path, Title: input.Title, Duration: 3 * time.Minute}
		total += 3 * time.Minute
	}
	if spec.Transition.Kind == assembly.TransitionCrossfade && len(inputs) > 1 {
		total -= time.Duration(len(inputs)-1) * spec.Transition.CrossfadeDuration
	}
	return assembly.Result{Path: outputPath, Duration: total, Tracks: tracks}, nil
}

type fakeEncoder struct {
	composed  bool
	overlayed string
}

func (f *fakeEncoder) Compose(_ context.Context, _, _, outputPath string, _ video.Settings) error {
	f.composed = true
	return os.WriteFile(outputPath, []byte("mp4"), 0o644)
}

func (f *fakeEncoder) RenderThumbnail(_ context.Context, _, title, outputPath string, _ video.Settings, _ video.OverlaySettings) error {
	f.overlayed = title
	return os.WriteFile(outputPath, []byte("thumb"), 0o644)
}

type fakePublisher struct {
	enabled bool
	id      string
	err     error
	meta    publish.Metadata
}

func (f *fakePublisher) Enabled() bool { return f.enabled }

func (f *fakePublisher) Publish(_ context.Context, _, _ string, meta publish.Metadata) (string, error) {
	f.meta = meta
	return f.id, f.err
}

type testHarness struct {
	cfg       *config.Config
	generator *fakeGenerator
	fetcher   *fakeFetcher
	assembler *fakeAssembler
	encoder   *fakeEncoder
	titles    fakeTitles
	thumbnail fakeThumbnail
	publisher *fakePublisher
	ledger    *store.Store
	progress  []Progress
	mu        sync.Mutex
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.TempDir = filepath.Join(base, "tmp")
	cfg.Suno.APIKey = "test"
	return &testHarness{
		cfg:       &cfg,
		generator: &fakeGenerator{},
		fetcher:   &fakeFetcher{},
		assembler: &fakeAssembler{},
		encoder:   &fakeEncoder{},
		publisher: &fakePublisher{},
	}
}

func (h *testHarness) orchestrator() *Orchestrator {
	deps := Deps{
		Generator: h.generator,
		Fetcher:   h.fetcher,
		Assembler: h.assembler,
		Encoder:   h.encoder,
		Titles:    h.titles,
		Thumbnail: h.thumbnail,
		Publisher: h.publisher,
		Ledger:    h.ledger,
	}
	return New(h.cfg, nil, deps, WithProgress(func(p Progress) {
		h.mu.Lock()
		h.progress = append(h.progress, p)
		h.mu.Unlock()
	}))
}

func (h *testHarness) phases() []Phase {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []Phase
	var last Phase
	for _, p := range h.progress {
		if p.Phase != last {
			out = append(out, p.Phase)
			last = p.Phase
		}
	}
	return out
}

func TestRunProducesAllArtifacts(t *testing.T) {
	h := newHarness(t)
	result, err := h.orchestrator().Run(context.Background(), Request{Mood: "dark", Genre: "lofi_beats", TrackCount: 3})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for name, path := range map[string]string{
		"audio":     result.AudioPath,
		"video":     result.VideoPath,
		"thumbnail": result.ThumbnailPath,
		"metadata":  result.MetadataPath,
	} {
		info, statErr := os.Stat(path)
		if statErr != nil || info.Size() == 0 {
			t.Errorf("%s artifact missing at %s: %v", name, path, statErr)
		}
	}
	if len(result.Tracks) != 3 || len(result.Failures) != 0 {
		t.Errorf("tracks/failures = %d/%d", len(result.Tracks), len(result.Failures))
	}
	if result.TitlesTier != enrich.TierPrimary || result.ThumbnailTier != enrich.TierPrimary {
		t.Errorf("tiers = %s/%s", result.TitlesTier, result.ThumbnailTier)
	}
	if !strings.Contains(result.VideoTitle, "Lo-Fi") || h.encoder.overlayed != result.VideoTitle {
		t.Errorf("video title %q, overlay %q", result.VideoTitle, h.encoder.overlayed)
	}

	want := []Phase{PhaseInit, PhaseTitlesResolved, PhaseGenerating, PhaseFetching,
		PhaseAssembling, PhaseEncoding, PhaseMetadataReady, PhaseDone}
	got := h.phases()
	if len(got) != len(want) {
		t.Fatalf("phases = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("phase[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestRunSurvivesOneRejectedTrack(t *testing.T) {
	h := newHarness(t)
	h.generator.failTitles = map[string]error{
		"Track 03": services.Wrap(services.ErrPermanent, "generating", "job", "content rejected", nil),
	}

	result, err := h.orchestrator().Run(context.Background(), Request{Mood: "dark", Genre: "lofi_beats", TrackCount: 4})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.Tracks) != 3 {
		t.Fatalf("got %d tracks", len(result.Tracks))
	}
	if len(h.assembler.inputs) != 3 {
		t.Fatalf("assembler got %d inputs", len(h.assembler.inputs))
	}
	// Survivors keep request order with the failed slot removed.
	for i, want := range []string{"Track 01", "Track 02", "Track 04"} {
		if h.assembler.inputs[i].Title != want {
			t.Errorf("input[%d] = %q, want %q", i, h.assembler.inputs[i].Title, want)
		}
	}
	if len(result.Failures) != 1 {
		t.Fatalf("failures = %v", result.Failures)
	}
	failure := result.Failures[0]
	if failure.Index != 3 || failure.Phase != PhaseGenerating || !strings.Contains(failure.Reason, "content rejected") {
		t.Errorf("failure = %+v", failure)
	}
}

func TestRunFailsWhenNoTracksSurvive(t *testing.T) {
	h := newHarness(t)
	h.generator.failTitles = map[string]error{
		"Track 01": services.ErrTimeout,
		"Track 02": services.ErrTimeout,
	}

	_, err := h.orchestrator().Run(context.Background(), Request{Mood: "dark", Genre: "lofi_beats", TrackCount: 2})
	if !services.IsPermanent(err) {
		t.Fatalf("expected permanent failure, got %v", err)
	}
	if len(h.assembler.inputs) != 0 {
		t.Error("assembler should not run with zero tracks")
	}
	got := h.phases()
	if got[len(got)-1] != PhaseFailed {
		t.Errorf("final phase = %s", got[len(got)-1])
	}
}

func TestMinTracksRaisesViabilityBar(t *testing.T) {
	h := newHarness(t)
	h.cfg.Pipeline.MinTracks = 3
	h.generator.failTitles = map[string]error{
		"Track 01": services.ErrTimeout,
		"Track 02": services.ErrTimeout,
	}

	_, err := h.orchestrator().Run(context.Background(), Request{Mood: "dark", Genre: "lofi_beats", TrackCount: 4})
	if err == nil || !strings.Contains(err.Error(), "need at least 3") {
		t.Fatalf("expected viability failure, got %v", err)
	}
}

func TestFetchFailureDropsOnlyItsTrack(t *testing.T) {
	h := newHarness(t)
	h.fetcher.failIndexes = map[int]error{
		1: services.Wrap(services.ErrTransient, "fetching", "download", "connection reset", nil),
	}

	result, err := h.orchestrator().Run(context.Background(), Request{Mood: "dark", Genre: "lofi_beats", TrackCount: 3})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Tracks) != 2 {
		t.Fatalf("got %d tracks", len(result.Tracks))
	}
	if len(result.Failures) != 1 || result.Failures[0].Index != 2 || result.Failures[0].Phase != PhaseFetching {
		t.Errorf("failures = %+v", result.Failures)
	}
}

func TestThumbnailSecondaryTierReported(t *testing.T) {
	h := newHarness(t)
	h.thumbnail = fakeThumbnail{tier: enrich.TierSecondary}

	result, err := h.orchestrator().Run(context.Background(), Request{Mood: "dark", Genre: "lofi_beats", TrackCount: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ThumbnailTier != enrich.TierSecondary {
		t.Errorf("tier = %s", result.ThumbnailTier)
	}
	if result.ThumbnailPath == "" {
		t.Error("thumbnail path empty")
	}
}

func TestMissingThumbnailLastResortIsFatal(t *testing.T) {
	h := newHarness(t)
	h.thumbnail = fakeThumbnail{
		err: services.Wrap(services.ErrPermanent, "enriching", "thumbnail", "fallback of last resort unavailable", nil),
	}

	_, err := h.orchestrator().Run(context.Background(), Request{Mood: "dark", Genre: "lofi_beats", TrackCount: 1})
	if !services.IsPermanent(err) {
		t.Fatalf("expected permanent failure, got %v", err)
	}
	if len(h.assembler.inputs) != 0 {
		t.Error("assembler should not run after fatal thumbnail failure")
	}
}

func TestUnknownGenreRejectedBeforeWork(t *testing.T) {
	h := newHarness(t)
	_, err := h.orchestrator().Run(context.Background(), Request{Mood: "dark", Genre: "polka", TrackCount: 2})
	if !services.IsPermanent(err) {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if h.generator.calls != 0 {
		t.Error("no generation should start for an unknown genre")
	}
}

func TestPublishFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	h.publisher.enabled = true
	h.publisher.err = services.Wrap(services.ErrTransient, "publishing", "upload", "http 503", nil)

	result, err := h.orchestrator().Run(context.Background(), Request{Mood: "dark", Genre: "lofi_beats", TrackCount: 1})
	if err != nil {
		t.Fatalf("publish failure must not fail the run: %v", err)
	}
	if result.PublishID != "" {
		t.Errorf("publish id = %q", result.PublishID)
	}
	found := false
	for _, failure := range result.Failures {
		if failure.Phase == "publishing" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected publishing failure record, got %+v", result.Failures)
	}
}

func TestPublishSuccessRecordsID(t *testing.T) {
	h := newHarness(t)
	h.publisher.enabled = true
	h.publisher.id = "vid-7"
	h.cfg.Publish.Privacy = "unlisted"

	result, err := h.orchestrator().Run(context.Background(), Request{Mood: "chill", Genre: "deep_house", TrackCount: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.PublishID != "vid-7" {
		t.Errorf("publish id = %q", result.PublishID)
	}
	if h.publisher.meta.Title != result.VideoTitle || h.publisher.meta.Privacy != "unlisted" {
		t.Errorf("publish metadata = %+v", h.publisher.meta)
	}
}

func TestLedgerRecordsRunAndTracks(t *testing.T) {
	h := newHarness(t)
	ledger, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { ledger.Close() })
	h.ledger = ledger
	h.generator.failTitles = map[string]error{
		"Track 02": services.Wrap(services.ErrPermanent, "generating", "job", "content rejected", nil),
	}

	result, err := h.orchestrator().Run(context.Background(), Request{Mood: "dark", Genre: "lofi_beats", TrackCount: 3})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	run, err := ledger.GetRun(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != string(PhaseDone) || run.VideoPath != result.VideoPath {
		t.Errorf("run = %+v", run)
	}
	tracks, err := ledger.ListTracks(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("ListTracks: %v", err)
	}
	if len(tracks) != 3 {
		t.Fatalf("got %d track rows", len(tracks))
	}
	byStatus := map[string]int{}
	for _, track := range tracks {
		byStatus[track.Status]++
	}
	if byStatus["complete"] != 2 || byStatus["failed"] != 1 {
		t.Errorf("statuses = %v", byStatus)
	}
}

func TestCleanupTempRemovesWorkDir(t *testing.T) {
	h := newHarness(t)
	result, err := h.orchestrator().Run(context.Background(), Request{Mood: "dark", Genre: "lofi_beats", TrackCount: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(h.cfg.Paths.TempDir, result.RunID)); !os.IsNotExist(err) {
		t.Errorf("temp run dir should be removed, stat err = %v", err)
	}
}

func TestMetadataDocumentWritten(t *testing.T) {
	h := newHarness(t)
	h.cfg.Mixer.Transition = string(assembly.TransitionCrossfade)

	result, err := h.orchestrator().Run(context.Background(), Request{Mood: "dark", Genre: "lofi_beats", TrackCount: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	data, err := os.ReadFile(result.MetadataPath)
	if err != nil {
		t.Fatalf("read metadata: %v", err)
	}
	content := string(data)
	for _, want := range []string{result.VideoTitle, "Track 01", "Track 02", metadata.FormatTimestamp(0)} {
		if !strings.Contains(content, want) {
			t.Errorf("metadata missing %q", want)
		}
	}
}
