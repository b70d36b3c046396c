// Package state persists and retrieves the TargetEnvState fingerprint of a
// Build target under its project's work directory, the way the teacher
// persists build artifacts atomically via google/renameio
// (cmd/distri/build.go, internal/build/build.go) rather than a plain
// os.Create/os.Rename dance.
package state

import (
	"errors"
	"log"
	"os"

	"github.com/google/renameio"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/xerrors"

	"github.com/distr1/zinoma/internal/fingerprint"
	"github.com/distr1/zinoma/internal/workdir"
)

// TargetEnvState is the persisted fingerprint of a Build target: the state
// of its declared input resources, and — if it declares outputs — the
// state of those too (spec §3).
type TargetEnvState struct {
	Input     fingerprint.ResourcesState
	Output    fingerprint.ResourcesState
	HasOutput bool
}

// Store reads, writes, and deletes the persisted fingerprint file for a
// single target, at <project_dir>/.zinoma/<target_name>.checksums.
type Store struct {
	ProjectDir string
	TargetName string
}

// Read loads the persisted TargetEnvState. A missing file is not an error:
// it returns (nil, nil). A corrupt file is treated the same way, but is
// first deleted and logged (spec §4.2, §7 item 5) so a future run doesn't
// keep tripping over it. The log line goes through the standard log
// package and is printed at every -v level; it has no debug-level gate.
func (s Store) Read() (*TargetEnvState, error) {
	path := workdir.ChecksumsFile(s.ProjectDir, s.TargetName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, xerrors.Errorf("reading checksums file %s: %w", path, err)
	}

	var out TargetEnvState
	if err := msgpack.Unmarshal(b, &out); err != nil {
		log.Printf("state: dropping corrupted checksums file %s: %v", path, err)
		if delErr := s.Delete(); delErr != nil {
			log.Printf("state: failed to drop corrupted checksums file %s: %v", path, delErr)
		}
		return nil, nil
	}

	return &out, nil
}

// Delete removes the persisted fingerprint file, if any. A missing file is
// not an error.
func (s Store) Delete() error {
	path := workdir.ChecksumsFile(s.ProjectDir, s.TargetName)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return xerrors.Errorf("deleting checksums file %s: %w", path, err)
	}
	return nil
}

// Write persists envState, creating the work directory if necessary and
// writing the file atomically (renameio writes a temporary file and renames
// it into place), so a crash mid-write leaves the previous file, or none,
// rather than a partially written one.
func (s Store) Write(envState TargetEnvState) error {
	dir := workdir.Path(s.ProjectDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return xerrors.Errorf("creating work directory %s: %w", dir, err)
	}

	b, err := msgpack.Marshal(envState)
	if err != nil {
		return xerrors.Errorf("serializing checksums for %s: %w", s.TargetName, err)
	}

	path := workdir.ChecksumsFile(s.ProjectDir, s.TargetName)
	if err := renameio.WriteFile(path, b, 0o644); err != nil {
		return xerrors.Errorf("writing checksums file %s: %w", path, err)
	}

	return nil
}
