package scheduler

import (
	"github.com/charmbracelet/bubbles/key"

	"termviz/internal/config"
	"termviz/pkg/viz"
)

// State is the frame loop's run state.
type State int

const (
	Running State = iota
	Paused
	Terminated
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// AppState is everything the frame loop mutates between ticks. It is only
// touched from the loop goroutine.
type AppState struct {
	State       State
	Sensitivity float64
	HueOffset   float64 // in [0,1)
	Spectrum    viz.Spectrum

	// Terminal size seen by the last drawn frame.
	Height, Width int

	Ticks      uint64
	Frames     uint64 // ticks that analysed a fresh audio frame
	Stale      uint64 // ticks that reused the previous spectrum
	DrawFaults uint64
}

type keyMap struct {
	Quit            key.Binding
	Next            key.Binding
	Previous        key.Binding
	Pause           key.Binding
	SensitivityUp   key.Binding
	SensitivityDown key.Binding
}

func newKeyMap(k config.KeyConfig) keyMap {
	return keyMap{
		Quit:            key.NewBinding(key.WithKeys(k.Quit...), key.WithHelp(first(k.Quit), "quit")),
		Next:            key.NewBinding(key.WithKeys(k.Next...), key.WithHelp(first(k.Next), "next")),
		Previous:        key.NewBinding(key.WithKeys(k.Previous...), key.WithHelp(first(k.Previous), "previous")),
		Pause:           key.NewBinding(key.WithKeys(k.Pause...), key.WithHelp(first(k.Pause), "pause")),
		SensitivityUp:   key.NewBinding(key.WithKeys(k.SensitivityUp...), key.WithHelp(first(k.SensitivityUp), "sensitivity +")),
		SensitivityDown: key.NewBinding(key.WithKeys(k.SensitivityDown...), key.WithHelp(first(k.SensitivityDown), "sensitivity -")),
	}
}

func first(keys []string) string {
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}
