package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/distr1/zinoma/internal/target"
)

func TestIsTmpEditorFile(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"/my/project/src/main.go", false},
		{"/my/project/src/main.go~", true},
		{"/my/project/src/.main.go.swp", true},
		{"/my/project/src/.main.go.swx", true},
	}
	for _, c := range cases {
		if got := isTmpEditorFile(c.path); got != c.want {
			t.Errorf("isTmpEditorFile(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func waitForInvalidation(t *testing.T, w *Watcher) {
	t.Helper()
	select {
	case <-w.Invalidated():
	case err := <-w.Errs():
		t.Fatalf("watcher error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for invalidation")
	}
}

func TestWatcher_FileChangeInvalidates(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	res := target.Resources{Files: []target.FilesResource{{Paths: []string{dir}}}}
	w, err := New("t", res, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("changed"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitForInvalidation(t, w)
}

func TestWatcher_IgnoresChangesUnderWorkDir(t *testing.T) {
	dir := t.TempDir()
	workDir := filepath.Join(dir, ".zinoma")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		t.Fatal(err)
	}

	res := target.Resources{Files: []target.FilesResource{{Paths: []string{dir}}}}
	w, err := New("t", res, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(workDir, "a.checksums"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-w.Invalidated():
		t.Fatal("a write under .zinoma must not invalidate the target it belongs to")
	case err := <-w.Errs():
		t.Fatalf("watcher error: %v", err)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_MissingPathDoesNotError(t *testing.T) {
	dir := t.TempDir()
	res := target.Resources{Files: []target.FilesResource{{Paths: []string{filepath.Join(dir, "nonexistent")}}}}

	var warned bool
	w, err := New("t", res, func(format string, args ...interface{}) { warned = true })
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if !warned {
		t.Error("expected a warning for a non-existing watch path")
	}
}
