// Package tui holds the interactive device picker shown by `termviz devices`
// before the visualizer takes over the terminal.
package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"termviz/internal/audio"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)
)

// Seam for tests.
var hostDevices = audio.HostDevices

// commonSampleRates are offered alongside the device's default rate.
var commonSampleRates = []float64{44100, 48000, 88200, 96000}

// ScreenType defines which screen is currently active
type ScreenType int

const (
	ListScreen ScreenType = iota
	ConfigScreen
)

// Selection is the outcome of the picker.
type Selection struct {
	DeviceID   int
	DeviceName string
	SampleRate float64
	Cancelled  bool
}

type pickerKeys struct {
	Quit, Up, Down, Enter, Back key.Binding
}

var keys = pickerKeys{
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c")),
	Up:    key.NewBinding(key.WithKeys("up", "k")),
	Down:  key.NewBinding(key.WithKeys("down", "j")),
	Enter: key.NewBinding(key.WithKeys("enter")),
	Back:  key.NewBinding(key.WithKeys("esc")),
}

// DevicePickerModel is the Bubble Tea model that chooses an input device and
// a sample rate.
type DevicePickerModel struct {
	devices       []audio.Device // input-capable only
	selectedIndex int
	viewport      viewport.Model
	ready         bool
	err           error
	activeScreen  ScreenType

	sampleRates     []float64
	sampleRateIndex int

	selection Selection
}

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

// NewDevicePickerModel creates the picker on the list screen.
func NewDevicePickerModel() DevicePickerModel {
	return DevicePickerModel{
		activeScreen: ListScreen,
		selection:    Selection{Cancelled: true},
	}
}

// Init fetches the device list.
func (m DevicePickerModel) Init() tea.Cmd {
	return fetchDevices
}

func fetchDevices() tea.Msg {
	all, err := hostDevices()
	if err != nil {
		return errMsg{err}
	}
	var inputs []audio.Device
	for _, d := range all {
		if d.MaxInputChannels > 0 {
			inputs = append(inputs, d)
		}
	}
	return devicesMsg{inputs}
}

// Update handles input and updates the model
func (m DevicePickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.refresh()

	case devicesMsg:
		m.devices = msg.devices
		for i, d := range m.devices {
			if d.IsDefaultInput {
				m.selectedIndex = i
			}
		}
		m.refresh()

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}
		if m.err != nil {
			return m, tea.Quit
		}

		switch m.activeScreen {
		case ListScreen:
			switch {
			case key.Matches(msg, keys.Up):
				m.selectedIndex = max(0, m.selectedIndex-1)
			case key.Matches(msg, keys.Down):
				m.selectedIndex = max(0, min(len(m.devices)-1, m.selectedIndex+1))
			case key.Matches(msg, keys.Enter):
				if len(m.devices) > 0 {
					m.activeScreen = ConfigScreen
					m.sampleRates, m.sampleRateIndex = rateChoices(m.devices[m.selectedIndex].DefaultSampleRate)
				}
			}
		case ConfigScreen:
			switch {
			case key.Matches(msg, keys.Back):
				m.activeScreen = ListScreen
			case key.Matches(msg, keys.Up):
				m.sampleRateIndex = max(0, m.sampleRateIndex-1)
			case key.Matches(msg, keys.Down):
				m.sampleRateIndex = min(len(m.sampleRates)-1, m.sampleRateIndex+1)
			case key.Matches(msg, keys.Enter):
				d := m.devices[m.selectedIndex]
				m.selection = Selection{
					DeviceID:   d.ID,
					DeviceName: d.Name,
					SampleRate: m.sampleRates[m.sampleRateIndex],
				}
				return m, tea.Quit
			}
		}
		m.refresh()
	}

	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

// rateChoices returns the rates to offer and the index of def among them.
func rateChoices(def float64) ([]float64, int) {
	rates := slices.Clone(commonSampleRates)
	if def > 0 && !slices.Contains(rates, def) {
		rates = append(rates, def)
		slices.Sort(rates)
	}
	idx := slices.Index(rates, def)
	return rates, max(0, idx)
}

func (m *DevicePickerModel) refresh() {
	if !m.ready {
		return
	}
	if m.activeScreen == ConfigScreen {
		m.viewport.SetContent(m.renderDeviceConfig())
	} else {
		m.viewport.SetContent(m.renderDevices())
	}
}

// Selection returns the device and rate chosen, or Cancelled.
func (m DevicePickerModel) Selection() Selection { return m.selection }

// View renders the UI
func (m DevicePickerModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress any key to exit.", m.err)
	}

	var title, help string
	if m.activeScreen == ListScreen {
		title = titleStyle.Render("Select Input Device")
		help = infoStyle.Render("↑/↓: Navigate • Enter: Configure • q: Quit")
	} else {
		title = titleStyle.Render("Device Configuration")
		help = infoStyle.Render("↑/↓: Change Rate • Enter: Start • Esc: Back • q: Quit")
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

func (m DevicePickerModel) renderDevices() string {
	if len(m.devices) == 0 {
		return "No input devices found."
	}

	var sb strings.Builder
	for i, d := range m.devices {
		info := fmt.Sprintf("[%d] %s (%s)", d.ID, d.Name, d.Kind())
		if d.IsDefaultInput {
			info += " *default*"
		}
		info += fmt.Sprintf("\n    Host API: %s, input channels: %d\n", d.HostAPI, d.MaxInputChannels)
		info += fmt.Sprintf("    Default sample rate: %.0f Hz\n", d.DefaultSampleRate)

		if i == m.selectedIndex {
			info = highlightStyle.Render(info)
		}
		sb.WriteString(info)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m DevicePickerModel) renderDeviceConfig() string {
	var sb strings.Builder
	d := m.devices[m.selectedIndex]

	fmt.Fprintf(&sb, "Configure Device: %s\n\n", d.Name)
	sb.WriteString("Sample Rate:\n")
	for i, rate := range m.sampleRates {
		marker := " "
		if i == m.sampleRateIndex {
			marker = "▶"
		}
		line := fmt.Sprintf("  %s %.0f Hz\n", marker, rate)
		if i == m.sampleRateIndex {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
	}
	return sb.String()
}

// PickDevice runs the picker on the alternate screen and returns the
// choice.
func PickDevice() (Selection, error) {
	p := tea.NewProgram(NewDevicePickerModel(), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return Selection{Cancelled: true}, fmt.Errorf("device picker failed: %w", err)
	}
	m := final.(DevicePickerModel)
	if m.err != nil {
		return Selection{Cancelled: true}, m.err
	}
	return m.Selection(), nil
}
