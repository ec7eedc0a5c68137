package services

import (
	"context"
	"errors"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("connection reset")
	err := Wrap(ErrTransient, "generating", "submit", "post failed", base)
	if !IsTransient(err) {
		t.Fatalf("expected transient classification for %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause to survive: %v", err)
	}
	if got := err.Error(); got != "transient failure: generating: submit: post failed: connection reset" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "", "", "", nil)
	if !IsTransient(err) {
		t.Fatalf("nil marker should default to transient, got %v", err)
	}
	if got := err.Error(); got != "transient failure: service failure" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestPermanentClassification(t *testing.T) {
	if !IsPermanent(Wrap(ErrPermanent, "generating", "poll", "policy violation", nil)) {
		t.Fatal("expected permanent classification")
	}
	if !IsPermanent(Wrap(ErrValidation, "init", "", "unknown genre", nil)) {
		t.Fatal("validation errors are permanent")
	}
	if IsPermanent(Wrap(ErrTimeout, "generating", "await", "", nil)) {
		t.Fatal("timeouts are not permanent per-item failures")
	}
}

func TestContextCarriers(t *testing.T) {
	ctx := context.Background()
	if _, ok := RunIDFromContext(ctx); ok {
		t.Fatal("unexpected run id on fresh context")
	}
	ctx = WithRunID(ctx, "run-1")
	ctx = WithPhase(ctx, "fetching")
	ctx = WithTrack(ctx, 3)

	if id, ok := RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("run id = %q, %v", id, ok)
	}
	if phase, ok := PhaseFromContext(ctx); !ok || phase != "fetching" {
		t.Fatalf("phase = %q, %v", phase, ok)
	}
	if track, ok := TrackFromContext(ctx); !ok || track != 3 {
		t.Fatalf("track = %d, %v", track, ok)
	}
}
