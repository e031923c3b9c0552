package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"defaults", func(*Config) {}, ""},
		{"cert without key", func(c *Config) { c.tlsCert = "cert.pem" }, "tls-key"},
		{"port zero", func(c *Config) { c.port = 0 }, "invalid port"},
		{"port too high", func(c *Config) { c.port = 70000 }, "invalid port"},
		{"negative timeout", func(c *Config) { c.sessionTimeout = -time.Second }, "session timeout"},
		{"no stages", func(c *Config) { c.stages = 0 }, "game options"},
		{"no rounds", func(c *Config) { c.rounds = 0 }, "game options"},
		{"no time limit", func(c *Config) { c.timeLimit = 0 }, "game options"},
		{"unknown creator policy", func(c *Config) { c.creatorPolicy = "random" }, "game options"},
		{"unknown reset policy", func(c *Config) { c.resetPolicy = "wipe" }, "game options"},
		{"single team", func(c *Config) { c.maxTeams = 1 }, "game options"},
		{"tls pair", func(c *Config) { c.tlsCert, c.tlsKey = "cert.pem", "key.pem" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.modify(cfg)

			err := cfg.validate()
			switch {
			case tt.want == "" && err != nil:
				t.Fatalf("validate() = %v, want nil", err)
			case tt.want != "" && err == nil:
				t.Fatalf("validate() = nil, want error containing %q", tt.want)
			case tt.want != "" && !strings.Contains(err.Error(), tt.want):
				t.Fatalf("validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestGameOptionsFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.creatorPolicy = "rotating"
	cfg.resetPolicy = "host"
	cfg.tick = 250 * time.Millisecond

	opts := cfg.gameOptions()

	if opts.CreatorPolicy != "rotating" || opts.ResetPolicy != "host" {
		t.Errorf("policies = %q/%q", opts.CreatorPolicy, opts.ResetPolicy)
	}
	if opts.TickInterval != 250*time.Millisecond || opts.MaxStages != 1 || opts.MaxRounds != 1 {
		t.Errorf("options = %+v", opts)
	}
	if opts.Logf == nil {
		t.Error("Logf not wired")
	}
}

// preRun parses args and applies the env and config file layers without
// starting the server.
func preRun(t *testing.T, args ...string) *Config {
	t.Helper()

	cfg := &Config{}
	cmd := newCmd(cfg)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	if err := cmd.PreRunE(cmd, nil); err != nil {
		t.Fatalf("PreRunE: %v", err)
	}

	return cfg
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("FAKEFINDER_ROUNDS", "7")
	t.Setenv("FAKEFINDER_CREATOR_POLICY", "rotating")
	t.Setenv("FAKEFINDER_TICK", "500ms")

	cfg := preRun(t, "--stages", "2")

	if cfg.rounds != 7 {
		t.Errorf("rounds = %d, want 7", cfg.rounds)
	}
	if cfg.creatorPolicy != "rotating" {
		t.Errorf("creator policy = %q", cfg.creatorPolicy)
	}
	if cfg.tick != 500*time.Millisecond {
		t.Errorf("tick = %s", cfg.tick)
	}
	if cfg.stages != 2 {
		t.Errorf("stages = %d, want 2", cfg.stages)
	}
}

func TestFlagsBeatEnvironment(t *testing.T) {
	t.Setenv("FAKEFINDER_PORT", "9000")

	if cfg := preRun(t, "--port", "9100"); cfg.port != 9100 {
		t.Errorf("port = %d, want 9100", cfg.port)
	}
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fakefinder.yaml")
	data := "time-limit: 45\nreset-policy: host\nmax-teams: 4\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := preRun(t, "--config", path)

	if cfg.timeLimit != 45 || cfg.resetPolicy != "host" || cfg.maxTeams != 4 {
		t.Errorf("config file not applied: timeLimit=%d resetPolicy=%q maxTeams=%d",
			cfg.timeLimit, cfg.resetPolicy, cfg.maxTeams)
	}
	if err := cfg.validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}
