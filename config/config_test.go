package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/audiopilot/audiopilot/autoeq"
	"github.com/audiopilot/audiopilot/session"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audiopilot.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("Load(\"\") = %+v, want the defaults", cfg)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
mixer:
  ip: 192.168.1.20
  channel: 4
discovery:
  timeout: 250ms
keeper:
  keepalive_interval: 2s
  renew_interval: 5s
  subscription_lifetime: 10s
autoeq:
  period: 500ms
  profile: Soprano
  profiles:
    - name: Soprano
      multipliers:
        Low: 0.5
        High: -1.1
log:
  format: console
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mixer.IP != "192.168.1.20" || cfg.Mixer.Channel != 4 || cfg.Mixer.Port != 10023 {
		t.Errorf("Mixer = %+v", cfg.Mixer)
	}
	if cfg.Discovery.Timeout != 250*time.Millisecond || cfg.Discovery.Workers != 100 {
		t.Errorf("Discovery = %+v", cfg.Discovery)
	}
	if cfg.Keeper.KeepaliveInterval != 2*time.Second || cfg.Keeper.MeterAlias != "/meters" {
		t.Errorf("Keeper = %+v", cfg.Keeper)
	}
	if cfg.AutoEQ.Period != 500*time.Millisecond || cfg.Log.Format != "console" || cfg.Log.Level != "info" {
		t.Errorf("AutoEQ = %+v, Log = %+v", cfg.AutoEQ, cfg.Log)
	}

	profiles := cfg.Profiles()
	if len(profiles) != 4 || profiles["Soprano"].Multipliers[autoeq.BandHigh] != -1.1 {
		t.Errorf("Profiles() = %v", profiles)
	}

	sc := cfg.Session(nil)
	if sc.Port != 10023 || sc.EQ.Period != 500*time.Millisecond || len(sc.EQ.Profiles) != 4 {
		t.Errorf("Session() = %+v", sc)
	}
	if s := cfg.Scanner(nil); s.Timeout != 250*time.Millisecond || s.Port != 10023 {
		t.Errorf("Scanner() = %+v", s)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv(EnvMixerPort, "20023")
	t.Setenv(EnvListenAddr, `"127.0.0.1:0"`)
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvPlotAddr, ":8080")
	t.Setenv(EnvSubnets, "10.0.0, 10.0.1,")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mixer.Port != 20023 || cfg.Mixer.ListenAddr != "127.0.0.1:0" {
		t.Errorf("Mixer = %+v", cfg.Mixer)
	}
	if cfg.Log.Level != "debug" || cfg.Plot.Addr != ":8080" {
		t.Errorf("Log = %+v, Plot = %+v", cfg.Log, cfg.Plot)
	}
	if !reflect.DeepEqual(cfg.Discovery.Subnets, []string{"10.0.0", "10.0.1"}) {
		t.Errorf("Subnets = %q", cfg.Discovery.Subnets)
	}

	t.Setenv(EnvMixerPort, "not-a-port")
	if cfg, _ := Load(""); cfg.Mixer.Port != 10023 {
		t.Errorf("unparsable port override gave %d", cfg.Mixer.Port)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"renew_too_slow", "keeper:\n  renew_interval: 12s\n", "renew interval"},
		{"bad_channel", "mixer:\n  channel: 40\n", "mixer.channel"},
		{"unknown_profile", "autoeq:\n  profile: Baritone\n", "autoeq.profile"},
		{"unknown_band", "autoeq:\n  profiles:\n    - name: X\n      multipliers:\n        Sub: 1\n", "unknown band"},
		{"bad_format", "log:\n  format: xml\n", "log.format"},
		{"not_yaml", "mixer: [", "parsing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.want)
			}
		})
	}

	cfg := Default()
	cfg.Keeper.RenewInterval = time.Minute
	if err := cfg.Validate(); !errors.Is(err, session.ErrRenewInterval) {
		t.Errorf("Validate() = %v, want ErrRenewInterval", err)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of a missing file succeeded")
	}
}
