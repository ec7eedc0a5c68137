package enrich

import (
	"context"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mixdown/internal/fileutil"
	"mixdown/internal/presets"
	"mixdown/internal/services"
)

// ImageGenerator is the slice of the enrichment client thumbnails need:
// one call to invent an image prompt and one to render it.
type ImageGenerator interface {
	CompleteText(ctx context.Context, prompt string) (string, error)
	GenerateImage(ctx context.Context, prompt, outputPath string) error
}

// ThumbnailResolver produces the run's cover image. The primary tier
// generates a fresh image; the secondary picks a pre-generated image from
// the local assets directory at random.
type ThumbnailResolver struct {
	generator ImageGenerator
	assetsDir string
	logger    *slog.Logger
	rng       *rand.Rand
}

// NewThumbnailResolver constructs a thumbnail resolver. rng may be nil for
// a non-deterministic fallback pick.
func NewThumbnailResolver(generator ImageGenerator, assetsDir string, logger *slog.Logger, rng *rand.Rand) *ThumbnailResolver {
	return &ThumbnailResolver{generator: generator, assetsDir: assetsDir, logger: logger, rng: rng}
}

// Resolve writes the cover image to outputPath and reports which tier
// produced it.
func (r *ThumbnailResolver) Resolve(ctx context.Context, outputPath string) (string, Tier, error) {
	primary := func(ctx context.Context) (string, error) {
		if r.generator == nil {
			return "", services.Wrap(services.ErrConfiguration, "enriching", "thumbnail", "no enrichment client", nil)
		}
		imagePrompt, err := r.generator.CompleteText(ctx, presets.ThumbnailPrompt)
		if err != nil {
			return "", err
		}
		if err := r.generator.GenerateImage(ctx, imagePrompt, outputPath); err != nil {
			return "", err
		}
		return outputPath, nil
	}

	secondary := func(_ context.Context) (string, error) {
		source, err := r.pickLocalAsset()
		if err != nil {
			return "", err
		}
		if err := fileutil.CopyFile(source, outputPath); err != nil {
			return "", err
		}
		return outputPath, nil
	}

	return Resolve(ctx, r.logger, "thumbnail", primary, secondary)
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

func (r *ThumbnailResolver) pickLocalAsset() (string, error) {
	entries, err := os.ReadDir(r.assetsDir)
	if err != nil {
		return "", services.Wrap(services.ErrPermanent, "enriching", "thumbnail",
			"read assets directory "+r.assetsDir, err)
	}

	var candidates []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			candidates = append(candidates, filepath.Join(r.assetsDir, entry.Name()))
		}
	}
	if len(candidates) == 0 {
		return "", services.Wrap(services.ErrPermanent, "enriching", "thumbnail",
			"no pre-generated images in "+r.assetsDir, nil)
	}
	sort.Strings(candidates)

	if r.rng != nil {
		return candidates[r.rng.Intn(len(candidates))], nil
	}
	return candidates[rand.Intn(len(candidates))], nil
}
