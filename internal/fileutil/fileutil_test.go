package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload" {
		t.Fatalf("copied content %q", data)
	}
}

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Neon Drift", "Neon_Drift"},
		{"a/b\\c:d", "abcd"},
		{"  spaced  out  ", "spaced__out"},
		{"", "untitled"},
		{"///", "untitled"},
	}
	for _, tc := range cases {
		if got := SanitizeName(tc.in); got != tc.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTrackFileName(t *testing.T) {
	if got := TrackFileName(3, "Neon Drift", "mp3"); got != "03_Neon_Drift.mp3" {
		t.Fatalf("got %q", got)
	}
	if got := TrackFileName(0, "x", ""); got != "01_x.mp3" {
		t.Fatalf("got %q", got)
	}
}
