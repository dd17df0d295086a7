package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds server settings, loaded from an optional YAML file and
// overridable via DWP_* environment variables.
type Config struct {
	Port         int    `yaml:"port"`
	DBPath       string `yaml:"db_path"`
	CompanyName  string `yaml:"company_name"`
	CompanyEmail string `yaml:"company_email"`
}

func defaultConfig() Config {
	return Config{
		Port:         9000,
		DBPath:       "dwp.db",
		CompanyName:  "Your Company",
		CompanyEmail: "admin@example.com",
	}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if v := os.Getenv("DWP_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("DWP_PORT: %w", err)
		}
		cfg.Port = p
	}
	if v := os.Getenv("DWP_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("DWP_COMPANY_NAME"); v != "" {
		cfg.CompanyName = v
	}
	if v := os.Getenv("DWP_COMPANY_EMAIL"); v != "" {
		cfg.CompanyEmail = v
	}
	return cfg, nil
}
