// Package config loads the operator configuration: defaults, then an
// optional YAML file, then AUDIOPILOT_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/audiopilot/audiopilot/autoeq"
	"github.com/audiopilot/audiopilot/discovery"
	"github.com/audiopilot/audiopilot/session"
	"github.com/audiopilot/audiopilot/spectrum"
)

// Environment variables that override the file.
const (
	EnvMixerIP    = "AUDIOPILOT_MIXER_IP"
	EnvMixerPort  = "AUDIOPILOT_MIXER_PORT"
	EnvListenAddr = "AUDIOPILOT_LISTEN_ADDR"
	EnvLogLevel   = "AUDIOPILOT_LOG_LEVEL"
	EnvPlotAddr   = "AUDIOPILOT_PLOT_ADDR"
	EnvSubnets    = "AUDIOPILOT_SUBNETS"
)

type Config struct {
	Mixer     Mixer                `yaml:"mixer"`
	Discovery Discovery            `yaml:"discovery"`
	Keeper    session.KeeperConfig `yaml:"keeper"`
	AutoEQ    AutoEQ               `yaml:"autoeq"`
	Plot      Plot                 `yaml:"plot"`
	Log       Log                  `yaml:"log"`
}

type Mixer struct {
	IP         string  `yaml:"ip"`
	Port       int     `yaml:"port"`
	ListenAddr string  `yaml:"listen_addr"`
	GainOffset float64 `yaml:"gain_offset"`
	Channel    int     `yaml:"channel"`
}

type Discovery struct {
	Subnets []string      `yaml:"subnets"`
	Timeout time.Duration `yaml:"timeout"`
	Workers int           `yaml:"workers"`
}

type AutoEQ struct {
	Period     time.Duration `yaml:"period"`
	Similarity float64       `yaml:"similarity_db"`
	Profile    string        `yaml:"profile"`

	// Profiles replace or add to the built-in profiles by name.
	Profiles []autoeq.Profile `yaml:"profiles"`
}

type Plot struct {
	Addr string `yaml:"addr"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Mixer: Mixer{
			Port:       discovery.DefaultPort,
			ListenAddr: ":10024",
			GainOffset: spectrum.DefaultGainOffset,
		},
		Discovery: Discovery{
			Subnets: append([]string(nil), discovery.DefaultSubnets...),
			Timeout: discovery.DefaultTimeout,
			Workers: discovery.DefaultWorkers,
		},
		Keeper: session.DefaultKeeperConfig(),
		AutoEQ: AutoEQ{
			Period:     autoeq.DefaultPeriod,
			Similarity: autoeq.DefaultSimilarity,
			Profile:    autoeq.MidPitch,
		},
		Log: Log{Level: "info", Format: "json"},
	}
}

// Load reads path over the defaults, applies the environment and validates
// the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment. Unset or unparsable
// variables leave the field alone.
func (c *Config) ApplyEnv() {
	c.Mixer.IP = EnvOr(EnvMixerIP, c.Mixer.IP)
	c.Mixer.Port = EnvIntOr(EnvMixerPort, c.Mixer.Port)
	c.Mixer.ListenAddr = EnvOr(EnvListenAddr, c.Mixer.ListenAddr)
	c.Log.Level = EnvOr(EnvLogLevel, c.Log.Level)
	c.Plot.Addr = EnvOr(EnvPlotAddr, c.Plot.Addr)
	if v := EnvOr(EnvSubnets, ""); v != "" {
		var subnets []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				subnets = append(subnets, s)
			}
		}
		c.Discovery.Subnets = subnets
	}
}

// Validate reports every problem found, joined.
func (c Config) Validate() error {
	var errs []error
	if c.Mixer.Port <= 0 || c.Mixer.Port > 65535 {
		errs = append(errs, fmt.Errorf("mixer.port %d out of range", c.Mixer.Port))
	}
	if c.Mixer.ListenAddr == "" {
		errs = append(errs, errors.New("mixer.listen_addr is required"))
	}
	if c.Mixer.Channel != 0 && (c.Mixer.Channel < 1 || c.Mixer.Channel > 32) {
		errs = append(errs, fmt.Errorf("mixer.channel %d out of range 1..32", c.Mixer.Channel))
	}
	if len(c.Discovery.Subnets) == 0 {
		errs = append(errs, errors.New("discovery.subnets is empty"))
	}
	if c.Discovery.Timeout <= 0 || c.Discovery.Workers <= 0 {
		errs = append(errs, errors.New("discovery.timeout and discovery.workers must be positive"))
	}
	if err := c.Keeper.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.AutoEQ.Period <= 0 {
		errs = append(errs, errors.New("autoeq.period must be positive"))
	}
	profiles := c.Profiles()
	bands := autoeq.DefaultBands()
	for _, p := range c.AutoEQ.Profiles {
		if err := p.Validate(bands); err != nil {
			errs = append(errs, err)
		}
	}
	if _, ok := profiles[c.AutoEQ.Profile]; !ok {
		errs = append(errs, fmt.Errorf("autoeq.profile %q is not defined", c.AutoEQ.Profile))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be json or console", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Profiles merges the configured profiles over the built-in ones.
func (c Config) Profiles() map[string]autoeq.Profile {
	profiles := autoeq.DefaultProfiles()
	for _, p := range c.AutoEQ.Profiles {
		profiles[p.Name] = p
	}
	return profiles
}

// Scanner returns a discovery scanner for the configured mixer port.
func (c Config) Scanner(logger *zap.Logger) *discovery.Scanner {
	return &discovery.Scanner{
		Port:    c.Mixer.Port,
		Timeout: c.Discovery.Timeout,
		Workers: c.Discovery.Workers,
		Logger:  logger,
	}
}

// Session returns the settings for session.ChooseMixer.
func (c Config) Session(logger *zap.Logger) session.Config {
	return session.Config{
		Port:       c.Mixer.Port,
		ListenAddr: c.Mixer.ListenAddr,
		GainOffset: c.Mixer.GainOffset,
		Keeper:     c.Keeper,
		EQ: autoeq.Options{
			Period:     c.AutoEQ.Period,
			Similarity: c.AutoEQ.Similarity,
			Profiles:   c.Profiles(),
		},
		Logger: logger,
	}
}
