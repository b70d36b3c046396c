package config

import (
	"path/filepath"

	"golang.org/x/xerrors"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/distr1/zinoma/internal/target"
)

type flatTarget struct {
	projectDir string
	name       string
	raw        yamlTarget
}

// RootTargetNames returns the top-level target names declared directly in
// the root project — the default root set when the CLI's positional
// TARGETS argument is empty (spec §6).
func (c *Config) RootTargetNames() []string {
	root := c.projects[c.RootDir]
	names := make([]string, 0, len(root.Targets))
	for name := range root.Targets {
		names = append(names, name)
	}
	return names
}

func (c *Config) flatten() (map[string]flatTarget, error) {
	flat := make(map[string]flatTarget)
	for dir, project := range c.projects {
		for name, t := range project.Targets {
			if existing, ok := flat[name]; ok {
				return nil, xerrors.Errorf(
					"projects %s and %s both contain a target named %s; please disambiguate",
					existing.projectDir, dir, name)
			}
			flat[name] = flatTarget{projectDir: dir, name: name, raw: t}
		}
	}
	return flat, nil
}

// Resolve validates the dependency graph reachable from requested (the
// whole graph is rejected if any reachable target has a cycle or a missing
// dependency; names were already validated by Load) and converts it into the target.Target
// set the engine operates on, along with the resolved root target ids.
func (c *Config) Resolve(requested []string) (map[target.Id]target.Target, []target.Id, error) {
	flat, err := c.flatten()
	if err != nil {
		return nil, nil, err
	}

	for _, name := range requested {
		if _, ok := flat[name]; !ok {
			return nil, nil, xerrors.Errorf("target %s does not exist", name)
		}
	}

	reachable, err := closure(flat, requested)
	if err != nil {
		return nil, nil, err
	}

	if err := checkAcyclic(reachable, flat); err != nil {
		return nil, nil, err
	}

	targets := make(map[target.Id]target.Target, len(reachable))
	for name := range reachable {
		ft := flat[name]
		t, err := toTarget(ft, flat)
		if err != nil {
			return nil, nil, err
		}
		targets[t.ID()] = t
	}

	roots := make([]target.Id, 0, len(requested))
	for _, name := range requested {
		roots = append(roots, target.Id{ProjectDir: flat[name].projectDir, Name: name})
	}

	return targets, roots, nil
}

// closure returns every target name transitively reachable from roots via
// dependencies, erroring the first time a dependency name does not exist.
func closure(flat map[string]flatTarget, roots []string) (map[string]bool, error) {
	seen := make(map[string]bool, len(flat))
	var visit func(name string) error
	visit = func(name string) error {
		if seen[name] {
			return nil
		}
		ft, ok := flat[name]
		if !ok {
			return xerrors.Errorf("target %s does not exist", name)
		}
		seen[name] = true
		for _, dep := range ft.raw.Dependencies {
			if err := visit(dep); err != nil {
				return xerrors.Errorf("target %s: %w", name, err)
			}
		}
		return nil
	}
	for _, name := range roots {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return seen, nil
}

// checkAcyclic builds the dependency graph over reachable and runs
// gonum's topological sort over it purely to detect cycles — the sort
// order itself is unused, since actors schedule themselves via message
// passing rather than a precomputed build order (spec §9: "Actor cycles
// are impossible by construction" relies on this check having already run).
func checkAcyclic(reachable map[string]bool, flat map[string]flatTarget) error {
	ids := make(map[string]int64, len(reachable))
	var next int64
	for name := range reachable {
		ids[name] = next
		next++
	}

	g := simple.NewDirectedGraph()
	for _, id := range ids {
		g.AddNode(simple.Node(id))
	}
	for name := range reachable {
		for _, dep := range flat[name].raw.Dependencies {
			if dep == name {
				// gonum's simple graphs reject self edges with a panic.
				return xerrors.Errorf("dependency graph has a cycle: target %s depends on itself", name)
			}
			g.SetEdge(g.NewEdge(simple.Node(ids[name]), simple.Node(ids[dep])))
		}
	}

	if _, err := topo.Sort(g); err != nil {
		return xerrors.Errorf("dependency graph has a cycle: %w", err)
	}
	return nil
}

func toTarget(ft flatTarget, flat map[string]flatTarget) (target.Target, error) {
	id := target.Id{ProjectDir: ft.projectDir, Name: ft.name}

	deps := make(map[target.Id]bool, len(ft.raw.Dependencies))
	for _, dep := range ft.raw.Dependencies {
		depFt := flat[dep]
		deps[target.Id{ProjectDir: depFt.projectDir, Name: dep}] = true
	}

	meta := target.Metadata{ID: id, ProjectDir: ft.projectDir, Dependencies: deps}

	input := resourcesFrom(ft.projectDir, ft.raw.InputPaths)
	output := resourcesFrom(ft.projectDir, ft.raw.OutputPaths)

	switch {
	case ft.raw.Build != "" && ft.raw.Service != "":
		return target.Target{}, xerrors.Errorf("target %s declares both build and service", ft.name)

	case ft.raw.Build != "":
		return target.Target{Kind: target.Build, Build: &target.BuildTarget{
			Metadata:    meta,
			Input:       input,
			Output:      output,
			HasOutput:   len(ft.raw.OutputPaths) > 0,
			BuildScript: ft.raw.Build,
		}}, nil

	case ft.raw.Service != "":
		return target.Target{Kind: target.Service, Service: &target.ServiceTarget{
			Metadata:  meta,
			Input:     input,
			HasInput:  len(ft.raw.InputPaths) > 0,
			RunScript: ft.raw.Service,
		}}, nil

	default:
		return target.Target{Kind: target.Aggregate, Aggregate: &target.AggregateTarget{Metadata: meta}}, nil
	}
}

func resourcesFrom(projectDir string, paths []string) target.Resources {
	if len(paths) == 0 {
		return target.Resources{}
	}
	abs := make([]string, len(paths))
	for i, p := range paths {
		abs[i] = filepath.Join(projectDir, p)
	}
	return target.Resources{Files: []target.FilesResource{{Paths: abs}}}
}
