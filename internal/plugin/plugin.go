// SPDX-License-Identifier: MIT
package plugin

import (
	"fmt"
	"runtime/debug"
	"time"

	"termviz/internal/log"
	"termviz/pkg/viz"
)

// Plugin is a loaded visualizer with its optional capabilities resolved.
type Plugin struct {
	Name   string
	Source string

	vis   viz.Visualizer
	setup viz.Setupper // nil if absent
	keys  viz.KeyHandler

	faults     int
	quietSince int // faults not yet logged
	lastLog    time.Time
	logEvery   time.Duration
}

// Visualizer returns the wrapped plugin value.
func (p *Plugin) Visualizer() viz.Visualizer { return p.vis }

// HandlesKeys reports whether the plugin implements viz.KeyHandler.
func (p *Plugin) HandlesKeys() bool { return p.keys != nil }

// Faults returns the number of failed calls into the plugin.
func (p *Plugin) Faults() int { return p.faults }

// Draw renders one frame. A panic is recovered and returned as a
// *FaultError; the plugin stays usable.
func (p *Plugin) Draw(s viz.Surface, spectrum viz.Spectrum, height, width int, energy, hueOffset float64) (err error) {
	defer func() {
		if err != nil {
			p.fault(err)
		}
	}()
	defer p.recoverInto("draw", &err)
	return p.vis.Draw(s, spectrum, height, width, energy, hueOffset)
}

// HandleKey forwards k to the plugin. It reports false when the plugin has
// no key handler, did not consume the key, or panicked.
func (p *Plugin) HandleKey(k viz.Key) (handled bool) {
	if p.keys == nil {
		return false
	}
	var err error
	defer func() {
		if err != nil {
			handled = false
			p.fault(err)
		}
	}()
	defer p.recoverInto("key", &err)
	return p.keys.HandleKey(k)
}

func (p *Plugin) runSetup() (err error) {
	if p.setup == nil {
		return nil
	}
	defer p.recoverInto("setup", &err)
	return p.setup.Setup()
}

func (p *Plugin) recoverInto(op string, err *error) {
	if r := recover(); r != nil {
		*err = &FaultError{Plugin: p.Name, Op: op, Value: r, Stack: debug.Stack()}
	}
}

// fault counts a failure and logs it unless one was logged within the last
// logEvery. Suppressed faults are reported with the next logged one.
func (p *Plugin) fault(err error) {
	p.faults++
	now := time.Now()
	if !p.lastLog.IsZero() && now.Sub(p.lastLog) < p.logEvery {
		p.quietSince++
		return
	}
	suffix := ""
	if p.quietSince > 0 {
		suffix = fmt.Sprintf(" (%d similar suppressed)", p.quietSince)
	}
	log.Errorf("plugin: %s: %v%s [total faults %d]", p.Name, err, suffix, p.faults)
	if fe, ok := err.(*FaultError); ok {
		log.Debugf("plugin: %s stack:\n%s", p.Name, fe.Stack)
	}
	p.lastLog = now
	p.quietSince = 0
}
