package watcher

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/distr1/zinoma/internal/workdir"
)

var errPathNotFound = errors.New("watcher: path not found")

// addRecursive installs a watch on path and, if path is a directory, every
// directory beneath it. fsnotify does not recurse on its own (unlike the
// notify crate's RecursiveMode::Recursive), so the teacher's idiom is to
// walk and add each directory individually.
func addRecursive(fsw *fsnotify.Watcher, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errPathNotFound
		}
		return err
	}

	if workdir.Contains(path) {
		return nil
	}

	if !info.IsDir() {
		return fsw.Add(path)
	}

	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		// .zinoma holds persisted fingerprints this target's own build just
		// wrote; watching it would self-invalidate on every successful run.
		if workdir.Contains(p) {
			return filepath.SkipDir
		}
		return fsw.Add(p)
	})
}
