// Package manifest loads and resolves the environment manifest: named
// command sequences with passthrough variables, dependency sources and
// command inclusion between environments.
package manifest

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the manifest file name looked up when none is given.
const DefaultFile = "environments.yaml"

// Environment is one named run environment as declared in the manifest.
type Environment struct {
	// Include references other environments whose resolved command
	// lists are prepended, in order, before this environment's own.
	Include []string `yaml:"include,omitempty"`

	// Commands is the ordered command sequence.
	Commands []string `yaml:"commands,omitempty"`

	// PassEnv lists variable name patterns allowed through from the
	// ambient environment (literal names or globs like "CODECOV_*").
	PassEnv []string `yaml:"passenv,omitempty"`

	// Deps lists dependency sources: "-r <path>" for a requirement
	// manifest file, anything else as a literal package name.
	Deps []string `yaml:"deps,omitempty"`
}

// Manifest is the parsed environment manifest.
type Manifest struct {
	// Default is the list of environments run when none are requested.
	Default []string `yaml:"default,omitempty"`

	// Environments maps environment names to their definitions.
	Environments map[string]Environment `yaml:"environments"`

	// Dir is the directory the manifest was loaded from. Relative
	// dependency manifest paths resolve against it.
	Dir string `yaml:"-"`
}

// ResolvedEnv is an environment with all includes flattened.
type ResolvedEnv struct {
	Name     string
	Commands []string
	PassEnv  []string
	Deps     []Dep
}

// Dep is a single resolved dependency source.
type Dep struct {
	// Requirement is the path to a requirement manifest file, empty
	// for literal packages.
	Requirement string

	// Package is a literal package name, empty for requirement files.
	Package string
}

// String returns the installer argument form of the dependency.
func (d Dep) String() string {
	if d.Requirement != "" {
		return "-r " + d.Requirement
	}
	return d.Package
}

// Load reads and validates a manifest file.
func Load(filePath string) (*Manifest, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestNotFound, err)
	}

	var m Manifest
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	if abs, err := filepath.Abs(filepath.Dir(filePath)); err == nil {
		m.Dir = abs
	} else {
		m.Dir = filepath.Dir(filePath)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the manifest invariants: every include reference must
// name a declared environment, the inclusion graph must be acyclic,
// every runnable environment must resolve to at least one command, and
// passenv patterns must be well-formed.
func (m *Manifest) Validate() error {
	if len(m.Environments) == 0 {
		return fmt.Errorf("manifest declares no environments")
	}

	for name, env := range m.Environments {
		for _, ref := range env.Include {
			if _, ok := m.Environments[ref]; !ok {
				return fmt.Errorf("environment %q includes unknown environment %q", name, ref)
			}
		}
		for _, pattern := range env.PassEnv {
			if _, err := path.Match(pattern, ""); err != nil {
				return fmt.Errorf("environment %q: bad passenv pattern %q: %v", name, pattern, err)
			}
		}
	}

	for name := range m.Environments {
		if err := m.checkCycle(name, nil); err != nil {
			return err
		}
	}

	for name := range m.Environments {
		resolved, err := m.Resolve(name)
		if err != nil {
			return err
		}
		if len(resolved.Commands) == 0 {
			return fmt.Errorf("environment %q resolves to no commands", name)
		}
	}

	for _, name := range m.Default {
		if _, ok := m.Environments[name]; !ok {
			return fmt.Errorf("default environment %q is not declared", name)
		}
	}

	return nil
}

// checkCycle walks include edges depth-first looking for name on the path.
func (m *Manifest) checkCycle(name string, trail []string) error {
	for _, seen := range trail {
		if seen == name {
			return fmt.Errorf("environment include cycle: %s", strings.Join(append(trail, name), " -> "))
		}
	}
	trail = append(trail, name)
	for _, ref := range m.Environments[name].Include {
		if err := m.checkCycle(ref, trail); err != nil {
			return err
		}
	}
	return nil
}

// Names returns the declared environment names, unordered.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Environments))
	for name := range m.Environments {
		names = append(names, name)
	}
	return names
}

// DefaultEnvs returns the default environment list, falling back to all
// declared environments when the manifest declares no default.
func (m *Manifest) DefaultEnvs() []string {
	if len(m.Default) > 0 {
		return m.Default
	}
	return m.Names()
}

// Resolve flattens an environment: included environments' commands come
// first in declaration order, then the environment's own commands.
// Passenv patterns and deps of included environments are merged in the
// same order, without duplicates.
func (m *Manifest) Resolve(name string) (*ResolvedEnv, error) {
	env, ok := m.Environments[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEnv, name)
	}

	resolved := &ResolvedEnv{Name: name}
	seenPass := map[string]bool{}
	seenDep := map[string]bool{}

	var merge func(env Environment) error
	merge = func(env Environment) error {
		for _, ref := range env.Include {
			if err := merge(m.Environments[ref]); err != nil {
				return err
			}
		}
		resolved.Commands = append(resolved.Commands, env.Commands...)
		for _, pattern := range env.PassEnv {
			if !seenPass[pattern] {
				seenPass[pattern] = true
				resolved.PassEnv = append(resolved.PassEnv, pattern)
			}
		}
		for _, raw := range env.Deps {
			if seenDep[raw] {
				continue
			}
			seenDep[raw] = true
			dep, err := parseDep(raw, m.Dir)
			if err != nil {
				return fmt.Errorf("environment %q: %w", name, err)
			}
			resolved.Deps = append(resolved.Deps, dep)
		}
		return nil
	}

	if err := merge(env); err != nil {
		return nil, err
	}
	return resolved, nil
}

// parseDep interprets one dependency source. Requirement paths resolve
// relative to the manifest directory.
func parseDep(raw, baseDir string) (Dep, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Dep{}, fmt.Errorf("empty dependency source")
	}
	if strings.HasPrefix(raw, "-r") {
		reqPath := strings.TrimSpace(strings.TrimPrefix(raw, "-r"))
		if reqPath == "" {
			return Dep{}, fmt.Errorf("requirement source %q names no file", raw)
		}
		if !filepath.IsAbs(reqPath) {
			reqPath = filepath.Join(baseDir, reqPath)
		}
		return Dep{Requirement: reqPath}, nil
	}
	return Dep{Package: raw}, nil
}
