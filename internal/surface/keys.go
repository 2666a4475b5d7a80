package surface

import (
	"strings"

	"github.com/gdamore/tcell/v2"

	"termviz/pkg/viz"
)

var keyNames = map[tcell.Key]string{
	tcell.KeyEnter:      "enter",
	tcell.KeyTab:        "tab",
	tcell.KeyBacktab:    "shift+tab",
	tcell.KeyEscape:     "esc",
	tcell.KeyBackspace:  "backspace",
	tcell.KeyBackspace2: "backspace",
	tcell.KeyDelete:     "delete",
	tcell.KeyInsert:     "insert",
	tcell.KeyUp:         "up",
	tcell.KeyDown:       "down",
	tcell.KeyLeft:       "left",
	tcell.KeyRight:      "right",
	tcell.KeyHome:       "home",
	tcell.KeyEnd:        "end",
	tcell.KeyPgUp:       "pgup",
	tcell.KeyPgDn:       "pgdown",
	tcell.KeyF1:         "f1",
	tcell.KeyF2:         "f2",
	tcell.KeyF3:         "f3",
	tcell.KeyF4:         "f4",
	tcell.KeyF5:         "f5",
	tcell.KeyF6:         "f6",
	tcell.KeyF7:         "f7",
	tcell.KeyF8:         "f8",
	tcell.KeyF9:         "f9",
	tcell.KeyF10:        "f10",
	tcell.KeyF11:        "f11",
	tcell.KeyF12:        "f12",
}

// KeyName converts a tcell key event to the names used in key bindings:
// printable keys are the rune itself ("q", "M", " "), everything else a
// lower-case name such as "ctrl+c", "esc" or "alt+x". It reports false
// for keys without a name.
func KeyName(ev *tcell.EventKey) (viz.Key, bool) {
	if ev.Key() == tcell.KeyRune {
		r := string(ev.Rune())
		if ev.Modifiers()&tcell.ModAlt != 0 {
			r = "alt+" + r
		}
		return viz.Key(r), true
	}

	if name, ok := keyNames[ev.Key()]; ok {
		return viz.Key(name), true
	}

	if k := ev.Key(); k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ {
		return viz.Key("ctrl+" + string(rune('a'+int(k-tcell.KeyCtrlA)))), true
	}

	return viz.Key(strings.ToLower(ev.Name())), false
}
