package config

import (
	"os"
	"path/filepath"
	"regexp"

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

var nameRe = regexp.MustCompile(`^\w[-\w]*$`)

// IsValidName reports whether name is a legal target or project name:
// spec §6's `^\w[-\w]*$`.
func IsValidName(name string) bool { return nameRe.MatchString(name) }

// Config is a fully loaded and cross-validated set of projects, keyed by
// their canonical directory.
type Config struct {
	RootDir  string
	projects map[string]yamlProject
}

// Load reads the zinoma.yml file in rootDir and every project it
// transitively imports, validating project/target names and import name
// agreement as it goes.
func Load(rootDir string) (*Config, error) {
	canonicalRoot, err := canonicalDir(rootDir)
	if err != nil {
		return nil, err
	}

	projects := make(map[string]yamlProject)
	if err := addProject(canonicalRoot, projects); err != nil {
		return nil, err
	}

	return &Config{RootDir: canonicalRoot, projects: projects}, nil
}

func addProject(projectDir string, projects map[string]yamlProject) error {
	if _, ok := projects[projectDir]; ok {
		return nil
	}

	project, err := loadProject(projectDir)
	if err != nil {
		return err
	}
	projects[projectDir] = project

	for importName, importRel := range project.Imports {
		importDir, err := canonicalDir(filepath.Join(projectDir, importRel))
		if err != nil {
			return xerrors.Errorf("importing %s: %w", importName, err)
		}

		if err := addProject(importDir, projects); err != nil {
			return xerrors.Errorf("importing %s: %w", importName, err)
		}

		imported := projects[importDir]
		if imported.Name == "" {
			return xerrors.Errorf("importing %s: project at %s has no name, so it cannot be imported", importName, importDir)
		}
		if imported.Name != importName {
			return xerrors.Errorf("importing %s: project at %s should be imported as %s", importName, importDir, imported.Name)
		}
	}

	return nil
}

func loadProject(projectDir string) (yamlProject, error) {
	path := filepath.Join(projectDir, "zinoma.yml")
	b, err := os.ReadFile(path)
	if err != nil {
		return yamlProject{}, xerrors.Errorf("reading %s: %w", path, err)
	}

	var project yamlProject
	if err := yaml.Unmarshal(b, &project); err != nil {
		return yamlProject{}, xerrors.Errorf("parsing %s: %w", path, err)
	}

	if project.Name != "" && !IsValidName(project.Name) {
		return yamlProject{}, xerrors.Errorf("%s: %q is not a valid project name", path, project.Name)
	}

	for targetName := range project.Targets {
		if !IsValidName(targetName) {
			return yamlProject{}, xerrors.Errorf("%s: %q is not a valid target name", path, targetName)
		}
	}

	return project, nil
}

func canonicalDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", xerrors.Errorf("resolving %s: %w", dir, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", xerrors.Errorf("directory %s does not exist", abs)
		}
		return "", xerrors.Errorf("resolving %s: %w", abs, err)
	}
	info, err := os.Stat(resolved)
	if err != nil || !info.IsDir() {
		return "", xerrors.Errorf("%s is not a directory", resolved)
	}
	return resolved, nil
}
