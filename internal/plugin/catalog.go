package plugin

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"termviz/pkg/viz"
)

// Factory builds a visualizer from its options. opts is nil when the
// visualizer is loaded without a manifest.
type Factory func(opts *yaml.Node) (viz.Visualizer, error)

// Catalog is the ordered set of visualizers compiled into the binary.
type Catalog struct {
	kinds     []string
	factories map[string]Factory
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[string]Factory)}
}

// Register adds a kind. Registering a kind twice replaces its factory but
// keeps its original position.
func (c *Catalog) Register(kind string, f Factory) {
	if _, ok := c.factories[kind]; !ok {
		c.kinds = append(c.kinds, kind)
	}
	c.factories[kind] = f
}

// Kinds returns the registered kinds in registration order.
func (c *Catalog) Kinds() []string {
	return append([]string(nil), c.kinds...)
}

// Lookup returns the factory for kind.
func (c *Catalog) Lookup(kind string) (Factory, bool) {
	f, ok := c.factories[kind]
	return f, ok
}

// Sources returns one source per kind, in registration order, each built
// with default options.
func (c *Catalog) Sources() []Source {
	out := make([]Source, 0, len(c.kinds))
	for _, k := range c.kinds {
		out = append(out, builtinSource{kind: k, factory: c.factories[k]})
	}
	return out
}

// DecodeOptions decodes a manifest options node into dst. A nil or empty
// node leaves dst untouched so factories can pre-fill defaults.
func DecodeOptions(node *yaml.Node, dst any) error {
	if node == nil || node.Kind == 0 {
		return nil
	}
	if err := node.Decode(dst); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}

type builtinSource struct {
	kind    string
	factory Factory
}

func (s builtinSource) Name() string { return "builtin:" + s.kind }

func (s builtinSource) Open() (any, error) {
	return s.factory(nil)
}
