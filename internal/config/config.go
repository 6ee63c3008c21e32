// ABOUTME: Command line, environment and file configuration for both binaries
// ABOUTME: pflag flags bound into viper over defaults and an optional YAML file
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio/output"
	"github.com/Resonate-Protocol/resonate-synth/pkg/audio/wave"
	"github.com/Resonate-Protocol/resonate-synth/pkg/engine"
)

// EnvPrefix prefixes environment overrides, e.g. RESONATE_SYNTH_SAMPLE_RATE
const EnvPrefix = "RESONATE_SYNTH"

// Program selects which binary's flags are registered
type Program int

const (
	Synth Program = iota
	ToneServer
	ToneListen
)

func (p Program) String() string {
	switch p {
	case ToneServer:
		return "resonate-tone-server"
	case ToneListen:
		return "resonate-tone-listen"
	}
	return "resonate-synth"
}

// Config is the validated configuration for one run
type Config struct {
	Stream engine.Config

	// Synth
	Backend       string
	BaseFrequency float64
	AmplitudeStep float64
	HoldTimeout   time.Duration
	NoTUI         bool

	// Tone server
	Listen    string
	MDNS      bool
	TUI       bool
	Debug     bool
	Frequency float64

	// Tone listener; an empty Server means discover one over mDNS
	Server string

	// Shared
	Waveform   wave.Waveform
	Amplitude  float64
	Name       string
	LogFile    string
	ConfigFile string
}

func setDefaults(v *viper.Viper, program Program) {
	v.SetDefault("sample-rate", engine.DefaultSampleRate)
	v.SetDefault("channels", engine.DefaultChannels)
	v.SetDefault("blocks", engine.DefaultBlocks)
	v.SetDefault("block-samples", engine.DefaultBlockSamples)
	v.SetDefault("waveform", "sine")
	if program == ToneServer {
		v.SetDefault("amplitude", 0.5)
	} else {
		v.SetDefault("amplitude", 1.0)
	}
	v.SetDefault("name", "")
	v.SetDefault("log-file", program.String()+".log")

	v.SetDefault("backend", "oto")
	v.SetDefault("base-frequency", 110.0)
	v.SetDefault("amplitude-step", 0.01)
	v.SetDefault("hold-ms", 120)
	v.SetDefault("no-tui", false)

	v.SetDefault("listen", ":8928")
	v.SetDefault("mdns", true)
	v.SetDefault("tui", false)
	v.SetDefault("debug", false)
	v.SetDefault("frequency", 440.0)

	v.SetDefault("server", "")
}

func newFlagSet(program Program) *pflag.FlagSet {
	fs := pflag.NewFlagSet(program.String(), pflag.ContinueOnError)

	fs.String("config", "", "YAML config file")
	fs.Int("sample-rate", engine.DefaultSampleRate, "Sample rate in Hz")
	fs.Int("channels", engine.DefaultChannels, "Output channels")
	fs.Int("blocks", engine.DefaultBlocks, "Blocks in the buffer pool")
	fs.Int("block-samples", engine.DefaultBlockSamples, "Samples per block (multiple of channels)")
	fs.String("waveform", "sine", "Waveform: sine, triangle, square, sawtooth, noise, pulse")
	fs.String("name", "", "Friendly name (default: hostname-based)")
	fs.String("log-file", program.String()+".log", "Log file path")

	switch program {
	case Synth:
		fs.String("backend", "oto", "Output backend: "+strings.Join(output.Backends, ", "))
		fs.Float64("amplitude", 1.0, "Initial amplitude (0-1)")
		fs.Float64("base-frequency", 110.0, "Frequency of the lowest piano key in Hz")
		fs.Float64("amplitude-step", 0.01, "Amplitude change per up/down key press")
		fs.Int("hold-ms", 120, "Milliseconds a key counts as held after its last repeat")
		fs.Bool("no-tui", false, "Disable the TUI and play a fixed tone")
		fs.Float64("frequency", 440.0, "Tone frequency in Hz without the TUI")
	case ToneServer:
		fs.Float64("amplitude", 0.5, "Tone amplitude (0-1)")
		fs.String("listen", ":8928", "WebSocket listen address")
		fs.Bool("mdns", true, "Advertise the stream over mDNS")
		fs.Bool("tui", false, "Show the server status TUI")
		fs.Bool("debug", false, "Log every dropped chunk")
		fs.Float64("frequency", 440.0, "Tone frequency in Hz")
	case ToneListen:
		fs.String("backend", "oto", "Output backend: "+strings.Join(output.Backends, ", "))
		fs.String("server", "", "Tone server host:port (default: discover via mDNS)")
	}

	return fs
}

// Load parses args and layers flags over environment, config file and defaults
func Load(program Program, args []string) (*Config, error) {
	v := viper.New()
	setDefaults(v, program)

	fs := newFlagSet(program)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	configFile := v.GetString("config")
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	w, err := wave.ParseWaveform(v.GetString("waveform"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Stream: engine.Config{
			SampleRate:   v.GetInt("sample-rate"),
			Channels:     v.GetInt("channels"),
			Blocks:       v.GetInt("blocks"),
			BlockSamples: v.GetInt("block-samples"),
		},
		Backend:       strings.ToLower(v.GetString("backend")),
		BaseFrequency: v.GetFloat64("base-frequency"),
		AmplitudeStep: v.GetFloat64("amplitude-step"),
		HoldTimeout:   time.Duration(v.GetInt("hold-ms")) * time.Millisecond,
		NoTUI:         v.GetBool("no-tui"),
		Listen:        v.GetString("listen"),
		MDNS:          v.GetBool("mdns"),
		TUI:           v.GetBool("tui"),
		Debug:         v.GetBool("debug"),
		Frequency:     v.GetFloat64("frequency"),
		Server:        v.GetString("server"),
		Waveform:      w,
		Amplitude:     v.GetFloat64("amplitude"),
		Name:          v.GetString("name"),
		LogFile:       v.GetString("log-file"),
		ConfigFile:    configFile,
	}

	if cfg.Name == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		cfg.Name = fmt.Sprintf("%s-%s", hostname, program)
	}

	if err := cfg.Validate(program); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values the selected program uses
func (c *Config) Validate(program Program) error {
	var errs []error

	if err := c.Stream.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Amplitude < 0 || c.Amplitude > 1 {
		errs = append(errs, fmt.Errorf("amplitude %v out of range [0, 1]", c.Amplitude))
	}
	if c.Frequency < 0 {
		errs = append(errs, fmt.Errorf("frequency %v must not be negative", c.Frequency))
	}

	if program != ToneServer && !slices.Contains(output.Backends, c.Backend) {
		errs = append(errs, fmt.Errorf("unknown backend %q (supported: %s)", c.Backend, strings.Join(output.Backends, ", ")))
	}

	switch program {
	case Synth:
		if c.BaseFrequency <= 0 {
			errs = append(errs, fmt.Errorf("base frequency %v must be positive", c.BaseFrequency))
		}
		if c.AmplitudeStep <= 0 || c.AmplitudeStep > 1 {
			errs = append(errs, fmt.Errorf("amplitude step %v out of range (0, 1]", c.AmplitudeStep))
		}
		if c.HoldTimeout <= 0 {
			errs = append(errs, fmt.Errorf("hold time %v must be positive", c.HoldTimeout))
		}
	case ToneServer:
		if c.Listen == "" {
			errs = append(errs, errors.New("listen address must not be empty"))
		}
	}

	return errors.Join(errs...)
}
