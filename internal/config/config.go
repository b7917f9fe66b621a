package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/lifesuit/companion/internal/sim"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Tailscale  TailscaleConfig  `yaml:"tailscale"`
	Simulation SimulationConfig `yaml:"simulation"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Coach      CoachConfig      `yaml:"coach"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type SimulationConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	Speed        float64       `yaml:"speed"`
}

// ScheduleConfig is the timed-rehab program's initial window, as "HH:mm".
type ScheduleConfig struct {
	WindowStart string `yaml:"window_start"`
	WindowEnd   string `yaml:"window_end"`
	Enabled     bool   `yaml:"enabled"`
}

// Program converts the schedule into a sim.Program. Call after Load, which
// has already validated the times.
func (s ScheduleConfig) Program() sim.Program {
	start, _ := sim.ParseTimeOfDay(s.WindowStart)
	end, _ := sim.ParseTimeOfDay(s.WindowEnd)
	return sim.NewProgram(start, end, s.Enabled)
}

type CoachConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// Default returns the configuration used for anything a file leaves unset.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "127.0.0.1", Port: 8080},
		Tailscale: TailscaleConfig{
			Hostname: "lifesuit",
		},
		Simulation: SimulationConfig{
			TickInterval: 16 * time.Millisecond,
			Speed:        sim.DefaultSpeed,
		},
		Schedule: ScheduleConfig{WindowStart: "00:00", WindowEnd: "23:59"},
		Coach:    CoachConfig{Model: "gpt-4o-mini"},
	}
}

// Load reads config from a YAML file over the defaults, then applies
// environment variable overrides. A missing file is not an error.
// Env vars use the prefix LIFESUIT_ and underscore-separated paths:
//
//	LIFESUIT_SERVER_HOST, LIFESUIT_SERVER_PORT,
//	LIFESUIT_TAILSCALE_ENABLED, LIFESUIT_TAILSCALE_HOSTNAME, LIFESUIT_TAILSCALE_STATE_DIR,
//	LIFESUIT_SIM_TICK_INTERVAL, LIFESUIT_SIM_SPEED,
//	LIFESUIT_SCHEDULE_START, LIFESUIT_SCHEDULE_END, LIFESUIT_SCHEDULE_ENABLED,
//	LIFESUIT_COACH_API_KEY, LIFESUIT_COACH_MODEL
//
// OPENAI_API_KEY is honored when no coach key is set.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LIFESUIT_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("LIFESUIT_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LIFESUIT_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	if v := os.Getenv("LIFESUIT_TAILSCALE_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
	}
	if v := os.Getenv("LIFESUIT_TAILSCALE_STATE_DIR"); v != "" {
		cfg.Tailscale.StateDir = v
	}
	if v := os.Getenv("LIFESUIT_SIM_TICK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Simulation.TickInterval = d
		}
	}
	if v := os.Getenv("LIFESUIT_SIM_SPEED"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Simulation.Speed = f
		}
	}
	if v := os.Getenv("LIFESUIT_SCHEDULE_START"); v != "" {
		cfg.Schedule.WindowStart = v
	}
	if v := os.Getenv("LIFESUIT_SCHEDULE_END"); v != "" {
		cfg.Schedule.WindowEnd = v
	}
	if v := os.Getenv("LIFESUIT_SCHEDULE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Schedule.Enabled = b
		}
	}
	if v := os.Getenv("LIFESUIT_COACH_API_KEY"); v != "" {
		cfg.Coach.APIKey = v
	} else if cfg.Coach.APIKey == "" {
		cfg.Coach.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if v := os.Getenv("LIFESUIT_COACH_MODEL"); v != "" {
		cfg.Coach.Model = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	if c.Simulation.TickInterval <= 0 {
		return fmt.Errorf("simulation.tick_interval must be positive")
	}
	if c.Simulation.Speed <= 0 || c.Simulation.Speed > sim.MaxAngle {
		return fmt.Errorf("simulation.speed %v out of range", c.Simulation.Speed)
	}
	start, err := sim.ParseTimeOfDay(c.Schedule.WindowStart)
	if err != nil {
		return fmt.Errorf("schedule.window_start: %w", err)
	}
	end, err := sim.ParseTimeOfDay(c.Schedule.WindowEnd)
	if err != nil {
		return fmt.Errorf("schedule.window_end: %w", err)
	}
	if end <= start {
		return fmt.Errorf("schedule.window_end %s must be after window_start %s", end, start)
	}
	return nil
}
