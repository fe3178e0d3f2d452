package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadScenarioFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ring.yaml")
	content := "name: ring\nboards_x: 2\nboards_y: 1\nparams:\n  devices: 70\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write scenario file: %v", err)
	}

	s, err := LoadScenarioFile(path)
	if err != nil {
		t.Fatalf("LoadScenarioFile: %v", err)
	}
	if s.Name != "ring" || s.BoardsX != 2 || s.BoardsY != 1 {
		t.Fatalf("s = %+v, want Name:ring BoardsX:2 BoardsY:1", s)
	}
	if got := s.Param("devices", 0); got != 70 {
		t.Errorf("Param(devices) = %d, want 70", got)
	}
	if got := s.Param("missing", 42); got != 42 {
		t.Errorf("Param(missing) = %d, want fallback 42", got)
	}
}

func TestLoadScenarioFileMissing(t *testing.T) {
	if _, err := LoadScenarioFile("/nonexistent/path/scenario.yaml"); err == nil {
		t.Fatal("LoadScenarioFile with missing path: want error, got nil")
	}
}
