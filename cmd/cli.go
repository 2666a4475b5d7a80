// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"termviz/internal/config"
	"termviz/pkg/build"
)

// Command names stored in config.Command.
const (
	CommandRun     = ""
	CommandList    = "list"
	CommandDevices = "devices"
	CommandPlugins = "plugins"
)

// flagValues receives the raw flag values. Only flags the user set are
// copied onto the loaded configuration.
type flagValues struct {
	configPath      string
	deviceID        int
	channels        int
	sampleRate      float64
	framesPerBuffer int
	lowLatency      bool
	input           string
	loop            bool
	pluginDir       string
	fps             int
	record          bool
	output          string
	logFile         string
	verbose         bool
}

// ParseArgs parses the command line, loads the configuration file and
// applies the flags on top. It returns a nil config when there is nothing
// to run, for example after --help or --version.
func ParseArgs(args []string) (*config.Config, error) {
	buildInfo := build.GetBuildInfo()
	var (
		flags   flagValues
		options *config.Config
	)

	resolve := func(cmd *cobra.Command, command string) error {
		cfg, err := config.LoadConfig(flags.configPath)
		if err != nil {
			return err
		}
		flags.apply(cmd.Flags(), cfg)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid flags: %w", err)
		}
		cfg.Command = command
		options = cfg
		return nil
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return resolve(cmd, CommandRun)
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List available audio devices",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return resolve(cmd, CommandList)
			},
		},
		&cobra.Command{
			Use:   "devices",
			Short: "Pick an input device interactively, then run the visualizer on it",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return resolve(cmd, CommandDevices)
			},
		},
		&cobra.Command{
			Use:   "plugins",
			Short: "List discovered visualizer plugins and whether they load",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return resolve(cmd, CommandPlugins)
			},
		},
	)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "",
		"Path to a YAML configuration file (default "+config.DefaultConfigFile+" if present)")

	// Audio Device Configuration
	pf.IntVarP(&flags.deviceID, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	pf.IntVarP(&flags.channels, "channels", "c", config.DefaultChannels,
		"Number of channels to capture; only the first is analysed")
	pf.Float64VarP(&flags.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	pf.IntVarP(&flags.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer, also the FFT size (power of two)")
	pf.BoolVarP(&flags.lowLatency, "low-latency", "l", false,
		"Use low latency mode for real-time processing")
	pf.StringVarP(&flags.input, "input", "i", "",
		"Visualize a WAV file instead of a capture device")
	pf.BoolVar(&flags.loop, "loop", false,
		"Restart the --input file when it ends")

	// Visualizer Configuration
	pf.StringVarP(&flags.pluginDir, "plugins", "p", config.DefaultPluginDir,
		"Directory of plugin manifests (*.yaml) and Go plugins (*.so)")
	pf.IntVar(&flags.fps, "fps", config.DefaultFPS,
		"Target frames per second")

	// Recording Configuration
	pf.BoolVarP(&flags.record, "record", "r", false,
		"Record audio from the specified input device")
	pf.StringVarP(&flags.output, "output", "o", "",
		"Output file name. Default is recording-DD-MM-YYYY-HHMMSS.wav")

	// Debug Configuration
	pf.StringVar(&flags.logFile, "log-file", config.DefaultLogFile,
		"Log file; the terminal is taken over while the visualizer runs")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false,
		"Show verbose output")

	// Execute the CLI
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	return options, nil
}

// apply copies every flag the user set onto cfg.
func (f *flagValues) apply(fs *pflag.FlagSet, cfg *config.Config) {
	set := func(name string) bool { return fs.Changed(name) }

	if set("device") {
		cfg.Audio.InputDevice = f.deviceID
	}
	if set("channels") {
		cfg.Audio.InputChannels = f.channels
	}
	if set("sample-rate") {
		cfg.Audio.SampleRate = f.sampleRate
	}
	if set("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = f.framesPerBuffer
	}
	if set("low-latency") {
		cfg.Audio.LowLatency = f.lowLatency
	}
	if set("input") {
		cfg.Audio.InputFile = f.input
	}
	if set("loop") {
		cfg.Audio.Loop = f.loop
	}
	if set("plugins") {
		cfg.Plugins.Dir = f.pluginDir
	}
	if set("fps") {
		cfg.Display.FPS = f.fps
	}
	if set("record") {
		cfg.Recording.Enabled = f.record
	}
	if set("output") {
		cfg.Recording.Output = f.output
	}
	if set("log-file") {
		cfg.LogFile = f.logFile
	}
	if set("verbose") && f.verbose {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}

	if cfg.Recording.Enabled && cfg.Recording.Output == "" {
		cfg.Recording.Output = "recording-" + time.Now().UTC().Format("02-01-2006-150405") + ".wav"
	}
}
