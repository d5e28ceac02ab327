package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"mediaboost/internal/infra"
)

func newTestScratch(t *testing.T) *Scratch {
	t.Helper()
	s, err := NewScratch(filepath.Join(t.TempDir(), "scratch"), infra.Logger(zerolog.New(io.Discard)))
	if err != nil {
		t.Fatalf("NewScratch: %v", err)
	}
	return s
}

func TestScratchSaveKeepsExtensionAndBytes(t *testing.T) {
	s := newTestScratch(t)

	path, n, err := s.Save(strings.NewReader("payload"), "holiday clip.mp4")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if n != 7 {
		t.Fatalf("n = %d, want 7", n)
	}
	if filepath.Ext(path) != ".mp4" {
		t.Fatalf("path %q lost the source extension", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("data = %q", data)
	}
}

func TestScratchSaveGeneratesUniqueNames(t *testing.T) {
	s := newTestScratch(t)

	a, _, err := s.Save(strings.NewReader("one"), "clip.mp4")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	b, _, err := s.Save(strings.NewReader("two"), "clip.mp4")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if a == b {
		t.Fatalf("same path for two saves: %q", a)
	}
}

func TestScratchRemoveIsIdempotent(t *testing.T) {
	s := newTestScratch(t)

	path, _, err := s.Save(strings.NewReader("x"), "clip.mp4")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	s.Remove(path)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("file survived Remove")
	}
	s.Remove(path)
	s.Remove("")
}
