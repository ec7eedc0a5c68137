package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"mixdown/internal/presets"
	"mixdown/internal/services"
	"mixdown/internal/services/gemini"
)

// TextCompleter is the slice of the enrichment client titles need.
type TextCompleter interface {
	CompleteText(ctx context.Context, prompt string) (string, error)
}

// TitleResolver produces one unique title per track slot. The primary tier
// asks the enrichment model; the secondary synthesizes titles from the
// genre's fixed word lists and cannot fail.
type TitleResolver struct {
	completer TextCompleter
	logger    *slog.Logger
	rng       *rand.Rand
}

// NewTitleResolver constructs a title resolver. rng may be nil for a
// non-deterministic fallback.
func NewTitleResolver(completer TextCompleter, logger *slog.Logger, rng *rand.Rand) *TitleResolver {
	return &TitleResolver{completer: completer, logger: logger, rng: rng}
}

// Resolve returns exactly count titles plus the tier that produced them.
func (r *TitleResolver) Resolve(ctx context.Context, preset presets.Preset, count int) ([]string, Tier, error) {
	primary := func(ctx context.Context) ([]string, error) {
		if r.completer == nil {
			return nil, services.Wrap(services.ErrConfiguration, "enriching", "titles", "no enrichment client", nil)
		}
		completion, err := r.completer.CompleteText(ctx, presets.TitlePrompt(preset.Name, preset.Style, count))
		if err != nil {
			return nil, err
		}
		titles := gemini.ParseTitleLines(completion, count)
		if len(titles) < count {
			return nil, services.Wrap(services.ErrTransient, "enriching", "titles",
				fmt.Sprintf("model returned %d titles, need %d", len(titles), count), nil)
		}
		return titles, nil
	}

	secondary := func(_ context.Context) ([]string, error) {
		return presets.SynthesizeTitles(preset.Key, count, r.rng), nil
	}

	return Resolve(ctx, r.logger, "titles", primary, secondary)
}
