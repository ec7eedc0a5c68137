package enrich

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"mixdown/internal/presets"
	"mixdown/internal/services"
)

func TestResolvePrimarySucceeds(t *testing.T) {
	value, tier, err := Resolve(context.Background(), nil, "asset",
		func(_ context.Context) (string, error) { return "generated", nil },
		func(_ context.Context) (string, error) { return "fallback", nil },
	)
	if err != nil || value != "generated" || tier != TierPrimary {
		t.Fatalf("got %q/%v/%v", value, tier, err)
	}
}

func TestResolveSubstitutesSecondaryOnPrimaryFailure(t *testing.T) {
	var primaryCalls int
	value, tier, err := Resolve(context.Background(), nil, "asset",
		func(_ context.Context) (string, error) {
			primaryCalls++
			return "", errors.New("service down")
		},
		func(_ context.Context) (string, error) { return "fallback", nil },
	)
	if err != nil {
		t.Fatalf("fallback should absorb primary failure: %v", err)
	}
	if value != "fallback" || tier != TierSecondary {
		t.Errorf("got %q/%v", value, tier)
	}
	if primaryCalls != 1 {
		t.Errorf("primary retried: %d calls", primaryCalls)
	}
}

func TestResolveMissingLastResortIsPermanent(t *testing.T) {
	_, _, err := Resolve(context.Background(), nil, "asset",
		func(_ context.Context) (string, error) { return "", errors.New("down") },
		func(_ context.Context) (string, error) { return "", errors.New("nothing local") },
	)
	if !services.IsPermanent(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

type fakeEnricher struct {
	textErr  error
	text     string
	imageErr error
}

func (f *fakeEnricher) CompleteText(_ context.Context, _ string) (string, error) {
	return f.text, f.textErr
}

func (f *fakeEnricher) GenerateImage(_ context.Context, _ string, outputPath string) error {
	if f.imageErr != nil {
		return f.imageErr
	}
	return os.WriteFile(outputPath, []byte("generated image"), 0o644)
}

func TestTitleResolverPrimary(t *testing.T) {
	preset, _ := presets.Get("lofi_beats")
	resolver := NewTitleResolver(&fakeEnricher{text: "Midnight Grid\nSignal Decay\nEcho Vault"}, nil, nil)

	titles, tier, err := resolver.Resolve(context.Background(), preset, 3)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if tier != TierPrimary || len(titles) != 3 || titles[0] != "Midnight Grid" {
		t.Errorf("got %v via %v", titles, tier)
	}
}

func TestTitleResolverFallsBackOnShortCompletion(t *testing.T) {
	preset, _ := presets.Get("lofi_beats")
	rng := rand.New(rand.NewSource(42))
	resolver := NewTitleResolver(&fakeEnricher{text: "Only One Title"}, nil, rng)

	titles, tier, err := resolver.Resolve(context.Background(), preset, 5)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if tier != TierSecondary {
		t.Errorf("tier = %v", tier)
	}
	if len(titles) != 5 {
		t.Errorf("got %d titles", len(titles))
	}
}

func TestTitleResolverFallsBackOnError(t *testing.T) {
	preset, _ := presets.Get("lofi_beats")
	resolver := NewTitleResolver(&fakeEnricher{textErr: errors.New("quota")}, nil, rand.New(rand.NewSource(1)))

	titles, tier, err := resolver.Resolve(context.Background(), preset, 4)
	if err != nil || tier != TierSecondary || len(titles) != 4 {
		t.Fatalf("got %v/%v/%v", titles, tier, err)
	}
}

func TestThumbnailResolverPrimary(t *testing.T) {
	out := filepath.Join(t.TempDir(), "thumb.jpg")
	resolver := NewThumbnailResolver(&fakeEnricher{text: "an image prompt"}, t.TempDir(), nil, nil)

	path, tier, err := resolver.Resolve(context.Background(), out)
	if err != nil || tier != TierPrimary || path != out {
		t.Fatalf("got %q/%v/%v", path, tier, err)
	}
	if data, _ := os.ReadFile(out); string(data) != "generated image" {
		t.Errorf("content = %q", data)
	}
}

func TestThumbnailResolverFallsBackToLocalAsset(t *testing.T) {
	assets := t.TempDir()
	if err := os.WriteFile(filepath.Join(assets, "cover_a.jpg"), []byte("local cover"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(assets, "notes.txt"), []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "thumb.jpg")
	resolver := NewThumbnailResolver(&fakeEnricher{textErr: errors.New("down")}, assets, nil, rand.New(rand.NewSource(1)))

	path, tier, err := resolver.Resolve(context.Background(), out)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if tier != TierSecondary || path != out {
		t.Errorf("got %q via %v", path, tier)
	}
	if data, _ := os.ReadFile(out); string(data) != "local cover" {
		t.Errorf("content = %q", data)
	}
}

func TestThumbnailResolverNoLocalAssetsIsFatal(t *testing.T) {
	resolver := NewThumbnailResolver(&fakeEnricher{textErr: errors.New("down")}, t.TempDir(), nil, nil)
	_, _, err := resolver.Resolve(context.Background(), filepath.Join(t.TempDir(), "thumb.jpg"))
	if !services.IsPermanent(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}
