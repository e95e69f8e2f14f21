package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultMatchesSpecConstants(t *testing.T) {
	cfg := Default()
	if cfg.FrameSize != 24 {
		t.Fatalf("default FrameSize = %d, want 24", cfg.FrameSize)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg != Default() {
		t.Fatalf("Load of a missing file = %+v, want defaults %+v", cfg, Default())
	}
}

func TestLoadOverlaysYAMLOntoDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minidb.yaml")
	if err := os.WriteFile(path, []byte("frame_size: 48\ndata_dir: /tmp/minidb\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.FrameSize != 48 {
		t.Fatalf("FrameSize = %d, want 48", cfg.FrameSize)
	}
	if cfg.DataDir != "/tmp/minidb" {
		t.Fatalf("DataDir = %q, want /tmp/minidb", cfg.DataDir)
	}
	if cfg.SourceDir != DefaultSourceDir {
		t.Fatalf("SourceDir = %q, want default %q preserved", cfg.SourceDir, DefaultSourceDir)
	}
}

func TestLoadRejectsNonPositiveFrameSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minidb.yaml")
	if err := os.WriteFile(path, []byte("frame_size: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a non-positive frame_size")
	}
}
