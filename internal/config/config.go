package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Pool struct {
		TTL     string `yaml:"ttl"`
		Dir     string `yaml:"dir"`     // directory of <pool>.json files
		Path    string `yaml:"path"`    // single questions file served as Default
		Default string `yaml:"default"` // pool used when a client does not name one
	} `yaml:"pool"`
	Quiz struct {
		TimeLimit string `yaml:"time_limit"`
		Tick      string `yaml:"tick"`
		Count     int    `yaml:"count"`
	} `yaml:"quiz"`
	Log struct {
		Env   string `yaml:"env"`
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load reads YAML config from path. A missing file yields the zero config so the
// service can run on defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// DefaultPool returns the configured default pool id.
func (c Config) DefaultPool() string {
	if c.Pool.Default != "" {
		return c.Pool.Default
	}
	return "default"
}

// QuestionCount returns the configured number of questions per quiz.
func (c Config) QuestionCount() int {
	if c.Quiz.Count > 0 {
		return c.Quiz.Count
	}
	return 20
}
