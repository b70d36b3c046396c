// Package workdir knows the one literal every other package needs to agree
// on: the name of the per-project directory that holds persisted
// fingerprints, and that it is never walked, watched, or fingerprinted.
package workdir

import (
	"path/filepath"
	"strings"
)

// Name is the literal directory name used under every project directory
// (spec §6 "Environment": "The work directory name is the literal .zinoma").
const Name = ".zinoma"

// Path returns the work directory for a given project directory.
func Path(projectDir string) string {
	return filepath.Join(projectDir, Name)
}

// ChecksumsFile returns the path of the persisted fingerprint file for a
// target named targetName in projectDir (spec §6 "Persisted state layout").
func ChecksumsFile(projectDir, targetName string) string {
	return filepath.Join(Path(projectDir), targetName+".checksums")
}

// Contains reports whether path has Name as one of its path segments,
// i.e. whether it lives inside a (possibly nested) work directory. Used by
// both the resource fingerprinter's file walk and the watcher's setup to
// exclude .zinoma from traversal.
func Contains(path string) bool {
	for _, segment := range strings.Split(filepath.ToSlash(path), "/") {
		if segment == Name {
			return true
		}
	}
	return false
}
