// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"termviz/internal/log"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is searched for in the working directory when no path
// is given.
const DefaultConfigFile = "termviz.yaml"

// LoadConfig loads configuration from the YAML file at path. If path is
// empty, DefaultConfigFile is used when present and the built-in defaults
// otherwise. Environment overrides are applied after the file and the result
// is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		if path == "" {
			return nil, fmt.Errorf("invalid default configuration: %w", err)
		}
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies ENV_* variables on top of the file values.
// Unparsable values are reported rather than silently ignored.
func (c *Config) applyEnvOverrides() error {
	var errs []error

	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		b, err := strconv.ParseBool(val)
		if err != nil {
			errs = append(errs, fmt.Errorf("ENV_DEBUG: %w", err))
		} else {
			c.Debug = b
			log.Debugf("configuration: overriding debug from env: %v", b)
		}
	}

	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = strings.TrimSpace(val)
		log.Debugf("configuration: overriding log_level from env: %s", c.LogLevel)
	}

	// ENV_PLUGIN_DIR
	if val, ok := os.LookupEnv("ENV_PLUGIN_DIR"); ok {
		c.Plugins.Dir = val
		log.Debugf("configuration: overriding plugins.dir from env: %s", val)
	}

	// ENV_FPS
	if val, ok := os.LookupEnv("ENV_FPS"); ok {
		n, err := strconv.Atoi(val)
		if err != nil {
			errs = append(errs, fmt.Errorf("ENV_FPS: %w", err))
		} else {
			c.Display.FPS = n
			log.Debugf("configuration: overriding display.fps from env: %d", n)
		}
	}

	// ENV_SENSITIVITY
	if val, ok := os.LookupEnv("ENV_SENSITIVITY"); ok {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("ENV_SENSITIVITY: %w", err))
		} else {
			c.Display.Sensitivity = f
			log.Debugf("configuration: overriding display.sensitivity from env: %g", f)
		}
	}

	return errors.Join(errs...)
}
