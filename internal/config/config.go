package config

import (
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Project struct {
		Root    string   `yaml:"root"`
		Include []string `yaml:"include"` // glob patterns, defaults to **/*.py(i)
		Exclude []string `yaml:"exclude"`
	} `yaml:"project"`
	Cache struct {
		Path string `yaml:"path"` // SQLite database location
	} `yaml:"cache"`
	Rules struct {
		// Severity maps a diagnostic code to "error", "warning" or "ignore".
		Severity map[string]string `yaml:"severity"`
	} `yaml:"rules"`
}

func Default() *Config {
	var cfg Config
	cfg.Project.Root = "."
	cfg.Cache.Path = ".pycheck.db"
	return &cfg
}

func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config; a missing file falls back to defaults.
	file, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// 3. Override with Environment Variables if present
	if root := os.Getenv("PYCHECK_ROOT"); root != "" {
		cfg.Project.Root = root
	}
	if cache := os.Getenv("PYCHECK_CACHE"); cache != "" {
		cfg.Cache.Path = cache
	}

	return cfg, nil
}
