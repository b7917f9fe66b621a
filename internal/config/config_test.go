package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lifesuit/companion/internal/sim"
)

const validYAML = `
server:
  host: "0.0.0.0"
  port: 9090
tailscale:
  enabled: true
  hostname: "suit-lab"
  state_dir: "/var/lib/lifesuit/ts"
simulation:
  tick_interval: 20ms
  speed: 0.8
schedule:
  window_start: "08:30"
  window_end: "10:00"
  enabled: true
coach:
  api_key: "sk-test"
  model: "gpt-4o"
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestLoadValid verifies that a well-formed YAML config loads with all fields populated.
func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("server.host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("server.port = %d, want 9090", cfg.Server.Port)
	}
	if !cfg.Tailscale.Enabled || cfg.Tailscale.Hostname != "suit-lab" {
		t.Errorf("tailscale = %+v", cfg.Tailscale)
	}
	if cfg.Simulation.TickInterval != 20*time.Millisecond {
		t.Errorf("simulation.tick_interval = %v, want 20ms", cfg.Simulation.TickInterval)
	}
	if cfg.Simulation.Speed != 0.8 {
		t.Errorf("simulation.speed = %v, want 0.8", cfg.Simulation.Speed)
	}
	if cfg.Coach.APIKey != "sk-test" || cfg.Coach.Model != "gpt-4o" {
		t.Errorf("coach = %+v", cfg.Coach)
	}

	p := cfg.Schedule.Program()
	if !p.Enabled || p.WindowStart != sim.MustTimeOfDay("08:30") || p.WindowEnd != sim.MustTimeOfDay("10:00") {
		t.Errorf("program = %+v", p)
	}
}

// TestLoadDefaults verifies a missing file yields the defaults.
func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Simulation.TickInterval != 16*time.Millisecond || cfg.Simulation.Speed != sim.DefaultSpeed {
		t.Errorf("simulation = %+v", cfg.Simulation)
	}
	if cfg.Schedule.WindowStart != "00:00" || cfg.Schedule.WindowEnd != "23:59" || cfg.Schedule.Enabled {
		t.Errorf("schedule = %+v", cfg.Schedule)
	}
	if cfg.Coach.APIKey != "" {
		t.Errorf("coach.api_key = %q, want empty", cfg.Coach.APIKey)
	}
}

// TestEnvOverride verifies that LIFESUIT_ env vars take precedence over YAML values.
func TestEnvOverride(t *testing.T) {
	t.Setenv("LIFESUIT_SERVER_PORT", "7000")
	t.Setenv("LIFESUIT_SIM_SPEED", "1.5")
	t.Setenv("LIFESUIT_SCHEDULE_ENABLED", "false")
	t.Setenv("LIFESUIT_COACH_API_KEY", "env-key")

	cfg, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("server.port = %d, want 7000", cfg.Server.Port)
	}
	if cfg.Simulation.Speed != 1.5 {
		t.Errorf("simulation.speed = %v, want 1.5", cfg.Simulation.Speed)
	}
	if cfg.Schedule.Enabled {
		t.Error("schedule.enabled = true, want false")
	}
	if cfg.Coach.APIKey != "env-key" {
		t.Errorf("coach.api_key = %q, want %q", cfg.Coach.APIKey, "env-key")
	}
	// Unchanged fields should keep YAML values
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("server.host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
}

// TestOpenAIKeyFallback verifies OPENAI_API_KEY fills an unset coach key.
func TestOpenAIKeyFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-shared")
	cfg, err := Load(writeTemp(t, "server:\n  port: 8080\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Coach.APIKey != "sk-shared" {
		t.Errorf("coach.api_key = %q, want %q", cfg.Coach.APIKey, "sk-shared")
	}
}

// TestValidation verifies bad values are rejected before startup.
func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"port out of range", "server:\n  port: 70000\n"},
		{"zero speed", "simulation:\n  speed: -1\n"},
		{"negative tick", "simulation:\n  tick_interval: -5ms\n"},
		{"malformed window", "schedule:\n  window_start: \"8am\"\n"},
		{"inverted window", "schedule:\n  window_start: \"18:00\"\n  window_end: \"09:00\"\n"},
		{"tailscale without hostname", "tailscale:\n  enabled: true\n  hostname: \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeTemp(t, tt.yaml)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

// TestLoadUnreadableFile verifies that a path that cannot be read returns an error.
func TestLoadUnreadableFile(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("expected error for a directory path")
	}
}

// TestLoadMalformedYAML verifies parse errors surface.
func TestLoadMalformedYAML(t *testing.T) {
	if _, err := Load(writeTemp(t, "server: [unclosed")); err == nil {
		t.Fatal("expected parse error")
	}
}
