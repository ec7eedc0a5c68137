package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mixdown/internal/assembly"
	"mixdown/internal/config"
	"mixdown/internal/deps"
	"mixdown/internal/enrich"
	"mixdown/internal/fetch"
	"mixdown/internal/logging"
	"mixdown/internal/media"
	"mixdown/internal/metadata"
	"mixdown/internal/notifications"
	"mixdown/internal/pipeline"
	"mixdown/internal/publish"
	"mixdown/internal/services/gemini"
	"mixdown/internal/services/suno"
	"mixdown/internal/store"
	"mixdown/internal/video"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var (
		mood        string
		genre       string
		tracks      int
		transition  string
		publishFlag bool
		keepTemp    bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate tracks and assemble a continuous mix video",
		Long: `Generate submits one music-generation job per track, downloads the
finished audio, joins the tracks into a loudness-normalized continuous mix,
and renders the mix as a still-image video with a generated thumbnail.

Individual track failures are tolerated: the mix is assembled from the
tracks that survive, and every dropped slot is reported in the run's
metadata document.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if transition != "" {
				cfg.Mixer.Transition = strings.ToLower(strings.TrimSpace(transition))
			}
			// Publishing is opt-in per run; --publish requires the
			// publish section to be configured.
			cfg.Publish.Enabled = publishFlag
			if keepTemp {
				cfg.Pipeline.CleanupTemp = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				return fmt.Errorf("missing required tools: %v (see `mixdown status`)", missing)
			}

			logger, err := ctx.buildLogger(cfg)
			if err != nil {
				return err
			}

			ledger, err := store.Open(ledgerPath(cfg))
			if err != nil {
				// The run ledger is a convenience; a broken database
				// should not block generation.
				logger.Warn("open run ledger", logging.Error(err))
				ledger = nil
			}
			if ledger != nil {
				defer ledger.Close()
			}

			deps := wireDependencies(cfg, logger)
			deps.Ledger = ledger
			orchestrator := pipeline.New(cfg, logger, deps,
				pipeline.WithProgress(newProgressPrinter(cmd)))

			result, err := orchestrator.Run(cmd.Context(), pipeline.Request{
				Mood:       mood,
				Genre:      genre,
				TrackCount: tracks,
			})
			if err != nil {
				return err
			}

			printRunSummary(cmd, result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&mood, "mood", "m", "dark", "Mood descriptor for titles and artwork")
	cmd.Flags().StringVarP(&genre, "genre", "g", "", "Genre preset key (see `mixdown presets`)")
	cmd.Flags().IntVarP(&tracks, "tracks", "n", 10, "Number of tracks to generate")
	cmd.Flags().StringVar(&transition, "transition", "", "Override the transition policy (cut or crossfade)")
	cmd.Flags().BoolVar(&publishFlag, "publish", false, "Upload the finished video to the configured publish target")
	cmd.Flags().BoolVar(&keepTemp, "keep-temp", false, "Keep per-run temp files for inspection")
	_ = cmd.MarkFlagRequired("genre")

	return cmd
}

func wireDependencies(cfg *config.Config, logger *slog.Logger) pipeline.Deps {
	runner := media.CommandRunner{}
	prober := media.NewProber(runner, cfg.FFmpegBinary(), cfg.FFprobeBinary())

	sunoClient := suno.NewClient(suno.Config{
		APIKey:         cfg.Suno.APIKey,
		BaseURL:        cfg.Suno.BaseURL,
		CallbackURL:    cfg.Suno.CallbackURL,
		Model:          cfg.Suno.Model,
		Instrumental:   cfg.Suno.Instrumental,
		PollInterval:   time.Duration(cfg.Suno.PollIntervalSeconds) * time.Second,
		JobTimeout:     time.Duration(cfg.Suno.JobTimeoutSeconds) * time.Second,
		ResubmitFailed: cfg.Suno.ResubmitFailed,
	})

	geminiClient := gemini.NewClient(gemini.Config{
		APIKey:     cfg.Gemini.APIKey,
		BaseURL:    cfg.Gemini.BaseURL,
		TextModel:  cfg.Gemini.TextModel,
		ImageModel: cfg.Gemini.ImageModel,
		Timeout:    time.Duration(cfg.Gemini.TimeoutSeconds) * time.Second,
	})

	// Title and thumbnail fallbacks draw randomly; separate sources since
	// the two resolvers run on different goroutines.
	titleRNG := rand.New(rand.NewSource(time.Now().UnixNano()))
	thumbRNG := rand.New(rand.NewSource(time.Now().UnixNano() + 1))

	return pipeline.Deps{
		Generator: sunoClient,
		Fetcher:   fetch.New(cfg.Mixer.MaxDownloads),
		Assembler: assembly.NewEngine(runner, prober, cfg.FFmpegBinary(), logger),
		Encoder:   video.NewEncoder(runner, cfg.FFmpegBinary(), logger),
		Titles:    enrich.NewTitleResolver(geminiClient, logger, titleRNG),
		Thumbnail: enrich.NewThumbnailResolver(geminiClient, cfg.Paths.AssetsDir, logger, thumbRNG),
		Notifier:  notifications.NewService(cfg),
		Publisher: publish.NewService(cfg),
	}
}

func newProgressPrinter(cmd *cobra.Command) pipeline.ProgressFunc {
	out := cmd.OutOrStdout()
	return func(p pipeline.Progress) {
		switch {
		case p.Item > 0:
			fmt.Fprintf(out, "[%s] track %d/%d: %s\n", p.Phase, p.Item, p.Total, p.Message)
		case p.Message != "":
			fmt.Fprintf(out, "[%s] %s\n", p.Phase, p.Message)
		default:
			fmt.Fprintf(out, "[%s]\n", p.Phase)
		}
	}
}

func printRunSummary(cmd *cobra.Command, result pipeline.RunResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n%s\n", result.VideoTitle)
	fmt.Fprintf(out, "  run:       %s\n", result.RunID)
	fmt.Fprintf(out, "  duration:  %s\n", metadata.FormatTimestamp(result.Duration))
	fmt.Fprintf(out, "  audio:     %s\n", result.AudioPath)
	fmt.Fprintf(out, "  video:     %s\n", result.VideoPath)
	fmt.Fprintf(out, "  thumbnail: %s (%s)\n", result.ThumbnailPath, result.ThumbnailTier)
	fmt.Fprintf(out, "  metadata:  %s\n", result.MetadataPath)
	if result.PublishID != "" {
		fmt.Fprintf(out, "  published: %s\n", result.PublishID)
	}
	if len(result.Failures) > 0 {
		rows := make([][]string, 0, len(result.Failures))
		for _, failure := range result.Failures {
			index := ""
			if failure.Index > 0 {
				index = fmt.Sprintf("%d", failure.Index)
			}
			rows = append(rows, []string{index, failure.Title, string(failure.Phase), failure.Reason})
		}
		fmt.Fprintf(out, "\n%d slot(s) did not survive:\n", len(result.Failures))
		fmt.Fprintln(out, renderTable([]string{"#", "Title", "Phase", "Reason"}, rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft}))
	}
}
