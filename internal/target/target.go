// Package target holds the data model shared by the rest of the engine: the
// identity of a target, its dependency metadata, and the resource
// declarations (files, commands) used by the incremental runner.
package target

import "fmt"

// Id is an opaque, totally ordered identifier for a target: the pair of its
// project directory and its name within that project. It is stable for the
// lifetime of a single run and is safe to use as a map key.
type Id struct {
	ProjectDir string
	Name       string
}

func (id Id) String() string {
	return fmt.Sprintf("%s (%s)", id.Name, id.ProjectDir)
}

// Less provides a total order over Ids, used when a deterministic iteration
// order is needed (e.g. logging, tests).
func (id Id) Less(other Id) bool {
	if id.ProjectDir != other.ProjectDir {
		return id.ProjectDir < other.ProjectDir
	}
	return id.Name < other.Name
}

// Kind identifies which of the three target variants a Target is.
type Kind int

const (
	// Build is a one-shot target: it runs build_script to completion and is
	// then available until invalidated.
	Build Kind = iota
	// Service is a long-running target: run_script is spawned as a child
	// process that is expected to keep running.
	Service
	// Aggregate has no script of its own; it is available exactly when all
	// of its dependencies are available.
	Aggregate
)

func (k Kind) String() string {
	switch k {
	case Build:
		return "build"
	case Service:
		return "service"
	case Aggregate:
		return "aggregate"
	default:
		return "unknown"
	}
}

// FilesResource is a set of paths to recursively walk, optionally filtered
// by extension. An empty Extensions set means "accept every regular file".
type FilesResource struct {
	Paths      []string
	Extensions map[string]bool
}

// Accepts reports whether a file with the given name matches this resource's
// extension filter.
func (r FilesResource) Accepts(name string) bool {
	if len(r.Extensions) == 0 {
		return true
	}
	ext := extensionOf(name)
	return r.Extensions[ext]
}

func extensionOf(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[i+1:]
		}
		if name[i] == '/' {
			break
		}
	}
	return ""
}

// Resources is a declaration of files and command outputs that together
// determine a target's fingerprint.
type Resources struct {
	Files []FilesResource
	Cmds  []string
}

// IsEmpty reports whether this resource set declares nothing at all, in
// which case the incremental runner can never skip execution (spec §4.3
// step 1, §8 "Target with empty input_paths: never skipped").
func (r Resources) IsEmpty() bool {
	return len(r.Files) == 0 && len(r.Cmds) == 0
}

// AllPaths returns every path this resource set watches, across all its
// FilesResource entries, used by the filesystem watcher to install one
// recursive watch per path.
func (r Resources) AllPaths() []string {
	var paths []string
	for _, fr := range r.Files {
		paths = append(paths, fr.Paths...)
	}
	return paths
}

// Metadata is common to every target kind.
type Metadata struct {
	ID           Id
	ProjectDir   string
	Dependencies map[Id]bool
}

// BuildTarget runs BuildScript to produce Output from Input, and may be
// skipped when neither has changed since the last successful run.
type BuildTarget struct {
	Metadata
	Input       Resources
	Output      Resources // zero value means "no declared output"
	HasOutput   bool
	BuildScript string
}

// ServiceTarget runs RunScript as a long-lived child process, restarted
// whenever Input changes or a dependency is invalidated.
type ServiceTarget struct {
	Metadata
	Input     Resources
	HasInput  bool
	RunScript string
}

// AggregateTarget has no script; it is available once all dependencies are.
type AggregateTarget struct {
	Metadata
}

// Target is a tagged union over the three target kinds. Exactly one of
// Build/Service/Aggregate is non-nil, matching Kind.
type Target struct {
	Kind      Kind
	Build     *BuildTarget
	Service   *ServiceTarget
	Aggregate *AggregateTarget
}

// Metadata returns the common metadata regardless of which variant this
// Target wraps.
func (t Target) Metadata() Metadata {
	switch t.Kind {
	case Build:
		return t.Build.Metadata
	case Service:
		return t.Service.Metadata
	case Aggregate:
		return t.Aggregate.Metadata
	default:
		panic("target: invalid Kind")
	}
}

// ID is a convenience accessor equivalent to Metadata().ID.
func (t Target) ID() Id { return t.Metadata().ID }

// Dependencies is a convenience accessor equivalent to Metadata().Dependencies.
func (t Target) Dependencies() map[Id]bool { return t.Metadata().Dependencies }
