package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"termviz/internal/audio"
)

func stubDevices(t *testing.T, devices []audio.Device, err error) {
	t.Helper()
	orig := hostDevices
	hostDevices = func() ([]audio.Device, error) { return devices, err }
	t.Cleanup(func() { hostDevices = orig })
}

var testDevices = []audio.Device{
	{ID: 0, Name: "Built-in Microphone", HostAPI: "Core Audio", MaxInputChannels: 2, DefaultSampleRate: 44100},
	{ID: 1, Name: "Built-in Output", HostAPI: "Core Audio", MaxOutputChannels: 2, DefaultSampleRate: 44100},
	{ID: 2, Name: "USB Interface", HostAPI: "Core Audio", MaxInputChannels: 8, MaxOutputChannels: 8, DefaultSampleRate: 96000, IsDefaultInput: true},
	{ID: 3, Name: "Odd Rate Mic", HostAPI: "ALSA", MaxInputChannels: 1, DefaultSampleRate: 32000},
}

func runKeys(t *testing.T, m tea.Model, keys ...tea.KeyMsg) (tea.Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		m, cmd = m.Update(k)
	}
	return m, cmd
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func loaded(t *testing.T) tea.Model {
	t.Helper()
	stubDevices(t, testDevices, nil)
	var m tea.Model = NewDevicePickerModel()
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	m, _ = m.Update(m.Init()())
	return m
}

func TestPicker_FiltersInputsAndSelectsDefault(t *testing.T) {
	m := loaded(t).(DevicePickerModel)
	if len(m.devices) != 3 {
		t.Fatalf("devices = %d, want 3 input-capable", len(m.devices))
	}
	if m.devices[m.selectedIndex].ID != 2 {
		t.Errorf("initial selection = device %d, want default input 2", m.devices[m.selectedIndex].ID)
	}
	if v := m.View(); !strings.Contains(v, "USB Interface") || strings.Contains(v, "Built-in Output") {
		t.Errorf("view lists wrong devices:\n%s", v)
	}
}

func TestPicker_ChooseDeviceAndRate(t *testing.T) {
	m, cmd := runKeys(t, loaded(t), keyMsg("up"), keyMsg("up"), keyMsg("up"), keyMsg("enter"), keyMsg("down"), keyMsg("enter"))
	if cmd == nil {
		t.Fatal("no quit command after confirming")
	}
	sel := m.(DevicePickerModel).Selection()
	want := Selection{DeviceID: 0, DeviceName: "Built-in Microphone", SampleRate: 48000}
	if sel != want {
		t.Errorf("selection = %+v, want %+v", sel, want)
	}
}

func TestPicker_UnlistedDefaultRateOffered(t *testing.T) {
	m, _ := runKeys(t, loaded(t), keyMsg("down"), keyMsg("enter"))
	pm := m.(DevicePickerModel)
	if pm.sampleRates[pm.sampleRateIndex] != 32000 {
		t.Errorf("preselected rate = %v, want device default 32000", pm.sampleRates[pm.sampleRateIndex])
	}
	if pm.sampleRateIndex != 0 {
		t.Errorf("32000 should sort first, index = %d", pm.sampleRateIndex)
	}
}

func TestPicker_BackAndQuit(t *testing.T) {
	m, _ := runKeys(t, loaded(t), keyMsg("enter"), keyMsg("esc"))
	if m.(DevicePickerModel).activeScreen != ListScreen {
		t.Error("esc did not return to the list")
	}
	m, cmd := runKeys(t, m, keyMsg("q"))
	if cmd == nil || !m.(DevicePickerModel).Selection().Cancelled {
		t.Error("q did not cancel")
	}
}

func TestPicker_Error(t *testing.T) {
	stubDevices(t, nil, errors.New("no host"))
	var m tea.Model = NewDevicePickerModel()
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	m, _ = m.Update(m.Init()())
	if !strings.Contains(m.View(), "no host") {
		t.Errorf("view = %q", m.View())
	}
}

func TestRateChoices(t *testing.T) {
	rates, idx := rateChoices(48000)
	if len(rates) != 4 || idx != 1 {
		t.Errorf("rateChoices(48000) = %v, %d", rates, idx)
	}
	rates, idx = rateChoices(0)
	if len(rates) != 4 || idx != 0 {
		t.Errorf("rateChoices(0) = %v, %d", rates, idx)
	}
}
