package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/distr1/zinoma/internal/target"
)

func writeYAML(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "zinoma.yml"), []byte(content), 0o644); err != nil {
		t.Fatalf("writing zinoma.yml: %v", err)
	}
}

func TestLoad_SingleProject(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, `
targets:
  a:
    build: "echo a"
  b:
    dependencies: [a]
    build: "echo b"
`)

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	targets, roots, err := c.Resolve([]string{"b"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(targets) != 2 {
		t.Fatalf("expected 2 reachable targets, got %d", len(targets))
	}
	if len(roots) != 1 || roots[0].Name != "b" {
		t.Fatalf("unexpected roots: %+v", roots)
	}
}

func TestLoad_RejectsInvalidTargetName(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, `
targets:
  "bad name":
    build: "echo a"
`)

	if _, err := Load(dir); err == nil {
		t.Fatal("expected an error for an invalid target name")
	}
}

func TestLoad_ImportsSiblingProject(t *testing.T) {
	root := t.TempDir()
	lib := filepath.Join(root, "lib")
	if err := os.Mkdir(lib, 0o755); err != nil {
		t.Fatal(err)
	}

	writeYAML(t, lib, `
name: lib
targets:
  build:
    build: "echo lib"
`)
	writeYAML(t, root, `
imports:
  lib: ./lib
targets:
  app:
    dependencies: [build]
    build: "echo app"
`)

	c, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	targets, _, err := c.Resolve([]string{"app"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(targets) != 2 {
		t.Fatalf("expected 2 reachable targets across both projects, got %d", len(targets))
	}
}

func TestLoad_ImportNameMismatchErrors(t *testing.T) {
	root := t.TempDir()
	lib := filepath.Join(root, "lib")
	if err := os.Mkdir(lib, 0o755); err != nil {
		t.Fatal(err)
	}

	writeYAML(t, lib, `
name: somethingelse
targets: {}
`)
	writeYAML(t, root, `
imports:
  lib: ./lib
targets: {}
`)

	if _, err := Load(root); err == nil {
		t.Fatal("expected an error when the imported project's declared name disagrees with the import key")
	}
}

func TestResolve_DuplicateTargetNameAcrossProjectsErrors(t *testing.T) {
	root := t.TempDir()
	lib := filepath.Join(root, "lib")
	if err := os.Mkdir(lib, 0o755); err != nil {
		t.Fatal(err)
	}

	writeYAML(t, lib, `
name: lib
targets:
  build:
    build: "echo lib"
`)
	writeYAML(t, root, `
imports:
  lib: ./lib
targets:
  build:
    build: "echo root"
`)

	c, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, _, err := c.Resolve([]string{"build"}); err == nil {
		t.Fatal("expected an error for duplicate target names across projects")
	}
}

func TestResolve_MissingDependencyErrors(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, `
targets:
  a:
    dependencies: [nonexistent]
    build: "echo a"
`)

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, _, err := c.Resolve([]string{"a"}); err == nil {
		t.Fatal("expected an error for a missing dependency")
	}
}

func TestResolve_CycleErrors(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, `
targets:
  a:
    dependencies: [b]
    build: "echo a"
  b:
    dependencies: [a]
    build: "echo b"
`)

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, _, err := c.Resolve([]string{"a"}); err == nil {
		t.Fatal("expected an error for a dependency cycle")
	}
}

func TestResolve_ConvertsPathsRelativeToProjectDir(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, `
targets:
  a:
    input_paths: ["src"]
    output_paths: ["out"]
    build: "echo a"
`)

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	targets, _, err := c.Resolve([]string{"a"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	id := target.Id{ProjectDir: c.RootDir, Name: "a"}
	bt := targets[id].Build
	if bt == nil {
		t.Fatal("expected a build target")
	}
	wantIn := filepath.Join(c.RootDir, "src")
	if got := bt.Input.Files[0].Paths[0]; got != wantIn {
		t.Errorf("input path = %q, want %q", got, wantIn)
	}
	wantOut := filepath.Join(c.RootDir, "out")
	if got := bt.Output.Files[0].Paths[0]; got != wantOut {
		t.Errorf("output path = %q, want %q", got, wantOut)
	}
}

func TestResolve_EmptyRequestedDefaultsToRootProjectTargets(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, `
targets:
  a:
    build: "echo a"
  b:
    build: "echo b"
`)

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	names := c.RootTargetNames()
	if len(names) != 2 {
		t.Fatalf("expected 2 root target names, got %d: %v", len(names), names)
	}
}
