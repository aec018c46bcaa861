package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var DebugLog func(string, ...interface{})

type Config struct {
	DefaultSettings DefaultSettings `yaml:"default_settings"`
	Database        Database        `yaml:"database"`
	Elasticsearch   Elasticsearch   `yaml:"elasticsearch"`
	Remote          Remote          `yaml:"remote"`
}

type DefaultSettings struct {
	OutputFormat string `yaml:"output_format"`
	Timeout      int    `yaml:"timeout"`
	Validate     bool   `yaml:"validate"`
}

type Database struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type Elasticsearch struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Index    string `yaml:"index"`
}

// Remote controls $extends imports fetched over http(s).
type Remote struct {
	Enabled bool `yaml:"enabled"`
	// Timeout in seconds; zero falls back to default_settings.timeout.
	Timeout int `yaml:"timeout"`
}

type Manager struct {
	config     *Config
	configPath string
}

func NewManager(configPath string) *Manager {
	return &Manager{
		configPath: configPath,
	}
}

// Default is the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		DefaultSettings: DefaultSettings{
			OutputFormat: "json",
			Timeout:      10,
			Validate:     true,
		},
		Database: Database{
			Host: "localhost",
			Port: 5432,
			User: "postgres",
		},
	}
}

// LoadConfig reads the config file. An explicitly given path must exist;
// when none is given and none is found, defaults are used.
func (m *Manager) LoadConfig() error {
	explicit := m.configPath != ""
	if !explicit {
		m.configPath = m.findConfigFile()
	}

	if m.configPath == "" {
		if DebugLog != nil {
			DebugLog("no config file found, using defaults")
		}
		m.config = Default()
		return nil
	}

	if DebugLog != nil {
		DebugLog("loading config from %s", m.configPath)
	}

	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found at %s. Please create one based on config.yaml.example", m.configPath)
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := m.validateConfig(config); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if DebugLog != nil {
		DebugLog("run registry enabled: %v, run index enabled: %v, remote imports enabled: %v",
			config.Database.Enabled, config.Elasticsearch.Enabled, config.Remote.Enabled)
	}

	m.config = config
	return nil
}

func (m *Manager) GetConfig() *Config {
	return m.config
}

// ConfigPath is the file the config was loaded from, or "" for defaults.
func (m *Manager) ConfigPath() string {
	return m.configPath
}

func (m *Manager) findConfigFile() string {
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}

	if _, err := os.Stat("config/config.yaml"); err == nil {
		return "config/config.yaml"
	}

	if configPath := GetDefaultConfigPath(); configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		configPath := filepath.Join(homeDir, ".tunecfg", "config.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}

	return ""
}

func (m *Manager) validateConfig(config *Config) error {
	if config.DefaultSettings.Timeout <= 0 {
		return fmt.Errorf("timeout must be greater than 0")
	}

	switch config.DefaultSettings.OutputFormat {
	case "json", "yaml":
	default:
		return fmt.Errorf("output_format must be json or yaml, got %q", config.DefaultSettings.OutputFormat)
	}

	if config.Remote.Timeout < 0 {
		return fmt.Errorf("remote timeout must not be negative")
	}

	if config.Database.Enabled && (config.Database.Port <= 0 || config.Database.Host == "") {
		return fmt.Errorf("database host and port are required when the database is enabled")
	}

	if config.Elasticsearch.Enabled && config.Elasticsearch.URL == "" {
		return fmt.Errorf("elasticsearch url is required when elasticsearch is enabled")
	}

	return nil
}

// RemoteTimeout is the effective timeout, in seconds, for remote imports.
func (c *Config) RemoteTimeout() int {
	if c.Remote.Timeout > 0 {
		return c.Remote.Timeout
	}
	return c.DefaultSettings.Timeout
}
