// SPDX-License-Identifier: MIT
/*
Package plugin discovers, loads and sequences visualizer plugins.

Plugins come from three kinds of Source:
  - Built-ins registered in a Catalog
  - YAML manifests that configure a catalog kind
  - Go shared objects built with -buildmode=plugin

Every call into plugin code (open, setup, draw and key handling) runs behind a
recover boundary, so a misbehaving plugin costs a frame, never the process.
*/
package plugin

import (
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"time"

	"termviz/internal/log"
	"termviz/pkg/viz"
)

// Options tunes plugin loading.
type Options struct {
	// FaultLogInterval is the minimum time between fault log lines from one
	// plugin.
	FaultLogInterval time.Duration
}

// Registry holds the loaded plugins and the active index. It is never empty.
type Registry struct {
	plugins []*Plugin
	index   int
	closed  bool
}

// Open turns one source into a plugin, running its Setup. It never panics.
func Open(src Source, opts Options) (p *Plugin, err error) {
	obj, err := openGuarded(src)
	if err != nil {
		return nil, err
	}
	vis, ok := obj.(viz.Visualizer)
	if !ok {
		return nil, fmt.Errorf("%w (got %T)", ErrMissingDraw, obj)
	}

	p = &Plugin{Source: src.Name(), vis: vis, logEvery: opts.FaultLogInterval}
	if p.Name, err = nameOf(src, vis); err != nil {
		return nil, err
	}
	p.setup, _ = obj.(viz.Setupper)
	p.keys, _ = obj.(viz.KeyHandler)

	if err := p.runSetup(); err != nil {
		return nil, fmt.Errorf("setup failed: %w", err)
	}
	return p, nil
}

func openGuarded(src Source) (obj any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &FaultError{Plugin: src.Name(), Op: "open", Value: r, Stack: debug.Stack()}
		}
	}()
	obj, err = src.Open()
	if err == nil && obj == nil {
		err = fmt.Errorf("%w (got nil)", ErrMissingDraw)
	}
	return obj, err
}

func nameOf(src Source, vis viz.Visualizer) (name string, err error) {
	if d, ok := src.(interface{ DisplayName() string }); ok && d.DisplayName() != "" {
		return d.DisplayName(), nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = &FaultError{Plugin: src.Name(), Op: "name", Value: r, Stack: debug.Stack()}
		}
	}()
	if name = vis.Name(); name == "" {
		name = src.Name()
	}
	return name, nil
}

// Load opens every source in order. Sources that fail are logged and
// skipped; Load fails with ErrNoPlugins only if none survive.
func Load(sources []Source, opts Options) (*Registry, error) {
	r := &Registry{}
	var errs []error
	for _, src := range sources {
		p, err := Open(src, opts)
		if err != nil {
			log.Warnf("plugin: skipping %s: %v", src.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		log.Infof("plugin: loaded %q from %s", p.Name, p.Source)
		r.plugins = append(r.plugins, p)
	}
	if len(r.plugins) == 0 {
		if len(errs) == 0 {
			return nil, ErrNoPlugins
		}
		return nil, fmt.Errorf("%w: %w", ErrNoPlugins, errors.Join(errs...))
	}
	return r, nil
}

// Active returns the plugin currently drawn.
func (r *Registry) Active() *Plugin { return r.plugins[r.index] }

// Next activates the following plugin, wrapping around, and returns it.
func (r *Registry) Next() *Plugin {
	r.index = (r.index + 1) % len(r.plugins)
	return r.Active()
}

// Previous activates the preceding plugin, wrapping around, and returns it.
func (r *Registry) Previous() *Plugin {
	r.index = (r.index - 1 + len(r.plugins)) % len(r.plugins)
	return r.Active()
}

// Index returns the zero-based active index.
func (r *Registry) Index() int { return r.index }

// Len returns the number of loaded plugins.
func (r *Registry) Len() int { return len(r.plugins) }

// Names returns plugin names in load order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.plugins))
	for i, p := range r.plugins {
		names[i] = p.Name
	}
	return names
}

// Close releases plugins implementing io.Closer. Later calls are no-ops.
func (r *Registry) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	var errs []error
	for _, p := range r.plugins {
		c, ok := p.vis.(io.Closer)
		if !ok {
			continue
		}
		if err := closeGuarded(p, c); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name, err))
		}
	}
	return errors.Join(errs...)
}

func closeGuarded(p *Plugin, c io.Closer) (err error) {
	defer p.recoverInto("close", &err)
	return c.Close()
}
