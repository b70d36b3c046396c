package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/distr1/zinoma/internal/target"
)

func TestCleanOutputs_RemovesDeclaredOutputPaths(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	if err := os.MkdirAll(out, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(out, "artifact"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	id := target.Id{ProjectDir: dir, Name: "a"}
	targets := map[target.Id]target.Target{
		id: {Kind: target.Build, Build: &target.BuildTarget{
			Metadata:  target.Metadata{ID: id, ProjectDir: dir},
			Output:    target.Resources{Files: []target.FilesResource{{Paths: []string{out}}}},
			HasOutput: true,
		}},
	}

	cleanOutputs(targets, newLogger(0))

	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be removed, stat err = %v", out, err)
	}
}

func TestCleanOutputs_SkipsTargetsWithoutDeclaredOutput(t *testing.T) {
	dir := t.TempDir()
	id := target.Id{ProjectDir: dir, Name: "a"}
	targets := map[target.Id]target.Target{
		id: {Kind: target.Build, Build: &target.BuildTarget{
			Metadata: target.Metadata{ID: id, ProjectDir: dir},
		}},
	}

	// Must not panic or touch the filesystem when HasOutput is false.
	cleanOutputs(targets, newLogger(0))
}

func TestNewRootCmd_DefaultFlagValues(t *testing.T) {
	projectDir, verbosity, watch, clean, zshComplete = "", 0, false, false, false
	cmd := newRootCmd()

	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	if projectDir != "." {
		t.Errorf("default project dir = %q, want .", projectDir)
	}
	if watch || clean || zshComplete || verbosity != 0 {
		t.Errorf("expected all flags to default to zero values")
	}
}
