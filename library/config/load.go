// Package config loads the settings file into the shared configuration.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"

	"github.com/smithery-ai/smithery-cookbook/library/log"
)

// LoadFromFile merges a YAML settings file into the shared configuration.
// An empty path is allowed: every setting has a default.
func LoadFromFile(cfgPath string) error {
	cfgPath = strings.TrimSpace(cfgPath)
	if cfgPath == "" {
		log.Logger.Debug("no configuration file, use defaults")
		return nil
	}

	if _, err := os.Stat(cfgPath); err != nil {
		return errors.Wrapf(err, "stat configuration %q", cfgPath)
	}

	gconfig.S.Set("cfg_dir", filepath.Dir(cfgPath))
	if err := gconfig.S.LoadFromFile(cfgPath); err != nil {
		return errors.Wrapf(err, "load configuration %q", cfgPath)
	}

	log.Logger.Info("load configuration", zap.String("config", cfgPath))
	return nil
}

// EnvOverlay copies environment variables into configuration keys.
// Keys map an environment variable name to a dotted configuration key;
// unset variables leave the existing value untouched.
func EnvOverlay(lookup func(string) (string, bool), keys map[string]string) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	for env, key := range keys {
		value, ok := lookup(env)
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}

		gconfig.S.Set(key, value)
	}
}
