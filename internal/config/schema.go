// Package config loads a project's zinoma.yml file (and any sibling
// projects it imports), validates target names and the dependency graph,
// and produces the target.Target set the engine runs. Configuration
// loading is one of the external collaborators spec §1 calls out as out
// of scope for the execution engine itself, but SPEC_FULL.md's ambient
// stack still requires it to exist and use the teacher's ecosystem (YAML
// via gopkg.in/yaml.v3, DAG validation via gonum).
//
// Grounded on original_source/src/config/yaml/{mod,schema}.rs and
// src/config/ir.rs, adapted from serde_yaml + lazy_static regex to
// yaml.v3 struct tags + a package-level regexp.MustCompile, and from a
// hand-rolled recursive DFS cycle check to gonum's graph/simple +
// graph/topo.Sort.
package config

// yamlTarget is the on-disk shape of a single target entry.
type yamlTarget struct {
	Dependencies []string `yaml:"dependencies"`
	InputPaths   []string `yaml:"input_paths"`
	OutputPaths  []string `yaml:"output_paths"`
	Build        string   `yaml:"build"`
	Service      string   `yaml:"service"`
}

// yamlProject is the on-disk shape of a zinoma.yml file.
type yamlProject struct {
	Name    string                `yaml:"name"`
	Imports map[string]string     `yaml:"imports"`
	Targets map[string]yamlTarget `yaml:"targets"`
}
