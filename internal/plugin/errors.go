// SPDX-License-Identifier: MIT
package plugin

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPlugins is returned by Load when no source produced a usable plugin.
	ErrNoPlugins = errors.New("no visualizer plugins could be loaded")
	// ErrMissingDraw is returned for a source whose value does not implement
	// viz.Visualizer.
	ErrMissingDraw = errors.New("value does not implement viz.Visualizer")
	// ErrUnknownKind is returned for a manifest naming a kind the catalog
	// does not provide.
	ErrUnknownKind = errors.New("unknown visualizer kind")
)

// FaultError records a panic raised inside plugin code.
type FaultError struct {
	Plugin string
	Op     string // the plugin call that panicked, e.g. "draw" or "key"
	Value  any    // the recovered value
	Stack  []byte
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("plugin %q panicked in %s: %v", e.Plugin, e.Op, e.Value)
}

// Unwrap exposes the recovered value when the plugin panicked with an error.
func (e *FaultError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
