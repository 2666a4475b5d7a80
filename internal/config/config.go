// SPDX-License-Identifier: MIT
package config

import "time"

// Core configuration constants that define the boundaries and defaults
// for the visualizer.
const (
	// Audio capture
	DefaultDeviceID        = MinDeviceID // System default input device
	DefaultChannels        = 1           // Mono capture
	DefaultSampleRate      = 44100       // CD-quality audio
	DefaultFramesPerBuffer = 2048        // ~46ms at 44.1kHz
	DefaultQueueDepth      = 2           // Frames held between capture and analysis
	DefaultReadTimeout     = 8 * time.Millisecond
	DefaultGateThreshold   = 0.0005 // Peak below this fraction of full scale is silence

	// Spectral analysis
	DefaultWindow        = "Hann"
	DefaultBands         = 64
	DefaultMinHz         = 30.0
	DefaultMaxHz         = 16000.0
	DefaultFloorDB       = 60.0
	DefaultSmoothing     = 0.5 // EMA weight of the newest frame
	DefaultEnergyGain    = 2.0
	DefaultBassFocus     = 0.15
	DefaultBeatThreshold = 0.2
	DefaultBeatRatio     = 1.3
	DefaultBeatCooldown  = 5 // Ticks

	// Display and frame loop
	DefaultFPS             = 60
	DefaultHueStep         = 0.005
	DefaultColorLevels     = 6   // 6x6x6 colour cube
	DefaultPaletteCapacity = 240 // 256 minus the 16 system colours
	DefaultSensitivity     = 1.0
	DefaultMinSensitivity  = 0.1
	DefaultMaxSensitivity  = 5.0
	DefaultSensitivityStep = 0.1

	// Plugins
	DefaultPluginDir        = "visualizers"
	DefaultFaultLogInterval = time.Second

	// Logging
	DefaultLogLevel = "info"
	DefaultLogFile  = "termviz.log"

	// Recording
	DefaultRecordBitDepth = 16

	// Hardware and processing limits
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MinBufferFrames = 256
	MaxBufferFrames = 8192 // Maximum frames per buffer (power of 2)
)

// Config is the complete runtime configuration. It is built from defaults,
// an optional YAML file, ENV_* overrides and finally command line flags.
type Config struct {
	Debug     bool            `yaml:"debug"`
	LogLevel  string          `yaml:"log_level" validate:"oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`
	LogFile   string          `yaml:"log_file"`
	Audio     AudioConfig     `yaml:"audio"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Display   DisplayConfig   `yaml:"display"`
	Plugins   PluginConfig    `yaml:"plugins"`
	Keys      KeyConfig       `yaml:"keys"`
	Recording RecordingConfig `yaml:"recording"`

	// Command is a one-off command chosen on the command line ("list",
	// "devices", "plugins"). Empty runs the visualizer.
	Command string `yaml:"-"`
}

// AudioConfig holds capture settings.
type AudioConfig struct {
	InputDevice     int           `yaml:"input_device" validate:"gte=-1"`                          // PortAudio device index, -1 for default.
	InputChannels   int           `yaml:"input_channels" validate:"gte=1,lte=32"`                  // Channels captured; only the first is analysed.
	SampleRate      float64       `yaml:"sample_rate" validate:"gte=8000,lte=192000"`              // Hz.
	FramesPerBuffer int           `yaml:"frames_per_buffer" validate:"gte=256,lte=8192,pow2"`      // Samples per audio frame and FFT size.
	LowLatency      bool          `yaml:"low_latency"`                                             // Use the device's low input latency.
	QueueDepth      int           `yaml:"queue_depth" validate:"gte=1,lte=2"`                      // Drop-oldest queue depth.
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gt=0"`                            // Longest the frame loop waits for audio.
	GateThreshold   float64       `yaml:"gate_threshold" validate:"gte=0,lte=1"`                   // Noise gate, fraction of full scale.
	InputFile       string        `yaml:"input_file"`                                              // Replay a WAV file instead of the microphone.
	Loop            bool          `yaml:"loop"`                                                    // Restart InputFile at EOF.
}

// AnalysisConfig holds the spectral analysis tuning parameters.
type AnalysisConfig struct {
	Window        string  `yaml:"window"`
	Bands         int     `yaml:"bands" validate:"gte=4,lte=512"`
	MinHz         float64 `yaml:"min_hz" validate:"gt=0"`
	MaxHz         float64 `yaml:"max_hz" validate:"gtfield=MinHz"`
	FloorDB       float64 `yaml:"floor_db" validate:"gte=10,lte=160"`
	Smoothing     float64 `yaml:"smoothing" validate:"gt=0,lte=1"`
	EnergyGain    float64 `yaml:"energy_gain" validate:"gt=0"`
	BassFocus     float64 `yaml:"bass_focus" validate:"gt=0,lte=1"`
	BeatThreshold float64 `yaml:"beat_threshold" validate:"gte=0"`
	BeatRatio     float64 `yaml:"beat_ratio" validate:"gte=1"`
	BeatCooldown  int     `yaml:"beat_cooldown" validate:"gte=0"`
}

// DisplayConfig holds frame loop and colour settings.
type DisplayConfig struct {
	FPS             int     `yaml:"fps" validate:"gte=1,lte=240"`
	HueStep         float64 `yaml:"hue_step" validate:"gte=0,lt=1"`
	ShowStatus      bool    `yaml:"show_status"`
	ColorLevels     int     `yaml:"color_levels" validate:"gte=2,lte=16"`
	PaletteCapacity int     `yaml:"palette_capacity" validate:"gte=1,lte=1024"`
	Sensitivity     float64 `yaml:"sensitivity" validate:"gt=0"`
	MinSensitivity  float64 `yaml:"min_sensitivity" validate:"gt=0"`
	MaxSensitivity  float64 `yaml:"max_sensitivity" validate:"gtfield=MinSensitivity"`
	SensitivityStep float64 `yaml:"sensitivity_step" validate:"gt=0"`
}

// PluginConfig controls plugin discovery.
type PluginConfig struct {
	Dir              string        `yaml:"dir"`
	FaultLogInterval time.Duration `yaml:"fault_log_interval" validate:"gte=0"`
}

// KeyConfig lists the keys bound to each global action. Keys use the names
// produced by the surface: the rune itself for printable keys, lower-case
// names ("ctrl+c", "esc") otherwise.
type KeyConfig struct {
	Quit            []string `yaml:"quit" validate:"required,min=1"`
	Next            []string `yaml:"next" validate:"required,min=1"`
	Previous        []string `yaml:"previous"`
	Pause           []string `yaml:"pause"`
	SensitivityUp   []string `yaml:"sensitivity_up"`
	SensitivityDown []string `yaml:"sensitivity_down"`
}

// RecordingConfig holds settings for recording the captured audio to WAV.
type RecordingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Output   string `yaml:"output" validate:"required_if=Enabled true"`
	BitDepth int    `yaml:"bit_depth" validate:"oneof=16 24 32"`
}

// NewConfig returns a Config populated with the built-in defaults.
func NewConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		LogFile:  DefaultLogFile,
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			InputChannels:   DefaultChannels,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			QueueDepth:      DefaultQueueDepth,
			ReadTimeout:     DefaultReadTimeout,
			GateThreshold:   DefaultGateThreshold,
		},
		Analysis: AnalysisConfig{
			Window:        DefaultWindow,
			Bands:         DefaultBands,
			MinHz:         DefaultMinHz,
			MaxHz:         DefaultMaxHz,
			FloorDB:       DefaultFloorDB,
			Smoothing:     DefaultSmoothing,
			EnergyGain:    DefaultEnergyGain,
			BassFocus:     DefaultBassFocus,
			BeatThreshold: DefaultBeatThreshold,
			BeatRatio:     DefaultBeatRatio,
			BeatCooldown:  DefaultBeatCooldown,
		},
		Display: DisplayConfig{
			FPS:             DefaultFPS,
			HueStep:         DefaultHueStep,
			ShowStatus:      true,
			ColorLevels:     DefaultColorLevels,
			PaletteCapacity: DefaultPaletteCapacity,
			Sensitivity:     DefaultSensitivity,
			MinSensitivity:  DefaultMinSensitivity,
			MaxSensitivity:  DefaultMaxSensitivity,
			SensitivityStep: DefaultSensitivityStep,
		},
		Plugins: PluginConfig{
			Dir:              DefaultPluginDir,
			FaultLogInterval: DefaultFaultLogInterval,
		},
		Keys: KeyConfig{
			Quit:            []string{"q", "ctrl+c"},
			Next:            []string{"m"},
			Previous:        []string{"M"},
			Pause:           []string{" "},
			SensitivityUp:   []string{"+", "="},
			SensitivityDown: []string{"-"},
		},
		Recording: RecordingConfig{
			BitDepth: DefaultRecordBitDepth,
		},
	}
}
