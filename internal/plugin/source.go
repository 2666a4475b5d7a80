// SPDX-License-Identifier: MIT
package plugin

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	goplugin "plugin"
	"strings"

	"gopkg.in/yaml.v3"

	"termviz/internal/log"
	"termviz/pkg/viz"
)

// Source produces a plugin value. Open is called once, by Load.
type Source interface {
	Name() string
	Open() (any, error)
}

// NewVisualizerSymbol is the symbol a Go plugin must export.
const NewVisualizerSymbol = "NewVisualizer"

// Manifest is the YAML file format for a configured visualizer.
type Manifest struct {
	Kind    string    `yaml:"kind"`
	Name    string    `yaml:"name"`
	Enabled *bool     `yaml:"enabled"`
	Options yaml.Node `yaml:"options"`
}

// IsEnabled reports whether the manifest should be loaded. Manifests are
// enabled unless they say otherwise.
func (m *Manifest) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// ManifestSource instantiates a catalog kind with options from a manifest.
type ManifestSource struct {
	Path     string
	Manifest Manifest
	catalog  *Catalog
}

func (s *ManifestSource) Name() string { return filepath.Base(s.Path) }

// DisplayName returns the manifest's name override, if any.
func (s *ManifestSource) DisplayName() string { return s.Manifest.Name }

func (s *ManifestSource) Open() (any, error) {
	f, ok := s.catalog.Lookup(s.Manifest.Kind)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, s.Manifest.Kind)
	}
	return f(&s.Manifest.Options)
}

// symbolLookup resolves an exported symbol in an opened Go plugin.
type symbolLookup func(name string) (goplugin.Symbol, error)

// Seam for tests; Go plugins can only be built with -buildmode=plugin.
var openGoPlugin = func(path string) (symbolLookup, error) {
	p, err := goplugin.Open(path)
	if err != nil {
		return nil, err
	}
	return p.Lookup, nil
}

// GoPluginSource loads a visualizer from a shared object built with
// -buildmode=plugin.
type GoPluginSource struct {
	Path string
}

func (s *GoPluginSource) Name() string { return filepath.Base(s.Path) }

func (s *GoPluginSource) Open() (any, error) {
	lookup, err := openGoPlugin(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Go plugin: %w", err)
	}
	sym, err := lookup(NewVisualizerSymbol)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", NewVisualizerSymbol, err)
	}
	switch f := sym.(type) {
	case func() viz.Visualizer:
		return f(), nil
	case *func() viz.Visualizer:
		return (*f)(), nil
	case func() any:
		return f(), nil
	default:
		return nil, fmt.Errorf("%s has unsupported type %T", NewVisualizerSymbol, sym)
	}
}

// brokenSource stands in for a file that could not be turned into a source,
// so the failure is reported by Load alongside the others.
type brokenSource struct {
	name string
	err  error
}

func (s brokenSource) Name() string       { return s.name }
func (s brokenSource) Open() (any, error) { return nil, s.err }

// Discover lists the plugin sources in dir in lexical filename order.
// YAML files are manifests resolved against catalog and .so files are Go
// plugins; anything else is ignored. When dir does not exist, or holds no
// candidate files, the catalog's built-ins are returned instead.
func Discover(dir string, catalog *Catalog) ([]Source, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		log.Infof("plugin: directory %q not found, using %d built-in visualizers", dir, len(catalog.Kinds()))
		return catalog.Sources(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read plugin directory: %w", err)
	}

	var sources []Source
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			src, ok := readManifest(path, catalog)
			if ok {
				sources = append(sources, src)
			}
		case ".so":
			sources = append(sources, &GoPluginSource{Path: path})
		default:
			log.Debugf("plugin: ignoring %s", path)
		}
	}

	if len(sources) == 0 {
		log.Warnf("plugin: no plugins in %q, using %d built-in visualizers", dir, len(catalog.Kinds()))
		return catalog.Sources(), nil
	}
	return sources, nil
}

// readManifest returns the source for a manifest file, or false when the
// manifest disables itself.
func readManifest(path string, catalog *Catalog) (Source, bool) {
	name := filepath.Base(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return brokenSource{name, fmt.Errorf("failed to read manifest: %w", err)}, true
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return brokenSource{name, fmt.Errorf("failed to parse manifest: %w", err)}, true
	}
	if !m.IsEnabled() {
		log.Infof("plugin: %s is disabled", name)
		return nil, false
	}
	if m.Kind == "" {
		return brokenSource{name, errors.New("manifest has no kind")}, true
	}
	return &ManifestSource{Path: path, Manifest: m, catalog: catalog}, true
}
