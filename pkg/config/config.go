package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the controller configuration, loaded once at process start.
type Config struct {
	Version    string           `yaml:"version" json:"version"`
	RobotID    string           `yaml:"robot_id" json:"robot_id"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
	Server     ServerConfig     `yaml:"server" json:"server"`
	Bridge     BridgeConfig     `yaml:"bridge" json:"bridge"`
	Control    ControlConfig    `yaml:"control" json:"control"`
	Defaults   DefaultsConfig   `yaml:"defaults" json:"defaults"`
	Telemetry  []TelemetryTopic `yaml:"telemetry_topics" json:"telemetry_topics"`
	Processing ProcessingConfig `yaml:"processing" json:"processing"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level   string `yaml:"level" json:"level"`
	LogPath string `yaml:"log_path,omitempty" json:"log_path,omitempty"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	HTTPPort int `yaml:"http_port" json:"http_port"`
}

// BridgeConfig holds the ZeroMQ robot-bridge endpoints. An empty
// ControlAddress means no bridge is configured and the controller runs in
// simulation mode; that is a handled condition, not a validation error.
type BridgeConfig struct {
	ControlAddress   string   `yaml:"control_address" json:"control_address"`
	CommandAddress   string   `yaml:"command_address" json:"command_address"`
	TelemetryAddress string   `yaml:"telemetry_address" json:"telemetry_address"`
	VelocityTopics   []string `yaml:"velocity_topics" json:"velocity_topics"`
	ProbeTimeoutMs   int      `yaml:"probe_timeout_ms" json:"probe_timeout_ms"`
}

// ControlConfig holds the motion control loop timing settings.
type ControlConfig struct {
	PublishRateHz       int `yaml:"publish_rate_hz" json:"publish_rate_hz"`
	StopBurstCount      int `yaml:"stop_burst_count" json:"stop_burst_count"`
	StopBurstIntervalMs int `yaml:"stop_burst_interval_ms" json:"stop_burst_interval_ms"`
	SimOdomTickMs       int `yaml:"sim_odom_tick_ms" json:"sim_odom_tick_ms"`
	SimLaserTickMs      int `yaml:"sim_laser_tick_ms" json:"sim_laser_tick_ms"`
	SimBatteryTickS     int `yaml:"sim_battery_tick_s" json:"sim_battery_tick_s"`
}

// DefaultsConfig holds fallback values applied to missing or unparsable
// numeric command inputs.
type DefaultsConfig struct {
	LinearSpeed  float64 `yaml:"linear_speed" json:"linear_speed"`
	AngularSpeed float64 `yaml:"angular_speed" json:"angular_speed"`
	PatternPause float64 `yaml:"pattern_pause_ms" json:"pattern_pause_ms"`
}

// TelemetryTopic maps an inbound bridge topic to a telemetry kind and a
// processing priority.
type TelemetryTopic struct {
	Name     string `yaml:"name" json:"name"`
	Kind     string `yaml:"kind" json:"kind"`
	Priority string `yaml:"priority" json:"priority"`
}

// ProcessingConfig holds telemetry worker pool sizing.
type ProcessingConfig struct {
	HighPriorityWorkers     int `yaml:"high_priority_workers" json:"high_priority_workers"`
	StandardPriorityWorkers int `yaml:"standard_priority_workers" json:"standard_priority_workers"`
	LowPriorityWorkers      int `yaml:"low_priority_workers" json:"low_priority_workers"`
}

// LoadConfig loads configuration from the specified file path and applies
// environment variable overrides and built-in defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	config.applyEnvOverrides()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// applyEnvOverrides lets deployment environments point the controller at a
// bridge without editing the config file.
func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("BRIDGE_ADDR"); addr != "" {
		c.Bridge.ControlAddress = addr
	}
	if addr := os.Getenv("BRIDGE_COMMAND_ADDR"); addr != "" {
		c.Bridge.CommandAddress = addr
	}
	if addr := os.Getenv("BRIDGE_TELEMETRY_ADDR"); addr != "" {
		c.Bridge.TelemetryAddress = addr
	}
}

// applyDefaults fills zero-valued fields with documented defaults.
func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8080
	}
	if len(c.Bridge.VelocityTopics) == 0 {
		c.Bridge.VelocityTopics = []string{
			"cmd_vel",
			"mobile_base/commands/velocity",
			"cmd_vel_mux/input/teleop",
		}
	}
	if c.Bridge.ProbeTimeoutMs == 0 {
		c.Bridge.ProbeTimeoutMs = 10000
	}
	if c.Control.PublishRateHz == 0 {
		c.Control.PublishRateHz = 10
	}
	if c.Control.StopBurstCount == 0 {
		c.Control.StopBurstCount = 5
	}
	if c.Control.StopBurstIntervalMs == 0 {
		c.Control.StopBurstIntervalMs = 10
	}
	if c.Control.SimOdomTickMs == 0 {
		c.Control.SimOdomTickMs = 100
	}
	if c.Control.SimLaserTickMs == 0 {
		c.Control.SimLaserTickMs = 200
	}
	if c.Control.SimBatteryTickS == 0 {
		c.Control.SimBatteryTickS = 30
	}
	if c.Defaults.LinearSpeed == 0 {
		c.Defaults.LinearSpeed = 0.2
	}
	if c.Defaults.AngularSpeed == 0 {
		c.Defaults.AngularSpeed = 0.5
	}
	if c.Defaults.PatternPause == 0 {
		c.Defaults.PatternPause = 500
	}
	if len(c.Telemetry) == 0 {
		c.Telemetry = []TelemetryTopic{
			{Name: "odom", Kind: "odometry", Priority: "HIGH"},
			{Name: "scan", Kind: "laser", Priority: "STANDARD"},
			{Name: "battery_state", Kind: "battery", Priority: "LOW"},
		}
	}
	if c.Processing.HighPriorityWorkers == 0 {
		c.Processing.HighPriorityWorkers = 2
	}
	if c.Processing.StandardPriorityWorkers == 0 {
		c.Processing.StandardPriorityWorkers = 2
	}
	if c.Processing.LowPriorityWorkers == 0 {
		c.Processing.LowPriorityWorkers = 1
	}
}

// Validate checks fields that have no sensible fallback. The bridge section
// is deliberately not required: its absence selects simulation mode.
func (c *Config) Validate() error {
	if c.Server.HTTPPort < 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid server http_port: %d", c.Server.HTTPPort)
	}
	if c.Bridge.ControlAddress != "" && c.Bridge.CommandAddress == "" {
		return fmt.Errorf("bridge.command_address is required when bridge.control_address is set")
	}
	for _, t := range c.Telemetry {
		if t.Name == "" || t.Kind == "" {
			return fmt.Errorf("telemetry topic entries require name and kind")
		}
	}
	return nil
}

// BridgeConfigured reports whether a bridge endpoint is available. This is
// the configuration-presence check the backend selector runs first.
func (c *Config) BridgeConfigured() bool {
	return c.Bridge.ControlAddress != ""
}

// TelemetryTopicByName returns the telemetry mapping for a bridge topic.
func (c *Config) TelemetryTopicByName(name string) (TelemetryTopic, bool) {
	for _, t := range c.Telemetry {
		if t.Name == name {
			return t, true
		}
	}
	return TelemetryTopic{}, false
}
