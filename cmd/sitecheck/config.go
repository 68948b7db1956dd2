package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tomyan/sitecheck/internal/runconfig"
)

// configPaths lists where sitecheck.toml is looked up, in order.
func configPaths() []string {
	paths := []string{filepath.Join(".", runconfig.FileName)}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, runconfig.FileName))
	}
	return paths
}

// loadConfigFile loads the run configuration into cfg. An explicit path
// must exist; otherwise the first sitecheck.toml found in the CWD or home
// directory is used, and the defaults when there is none. Values in the
// file override defaults but are themselves overridden by env and flags.
func loadConfigFile(cfg *Config, explicit string) error {
	if explicit != "" {
		rc, err := runconfig.Load(explicit)
		if err != nil {
			return err
		}
		applyFileConfig(cfg, rc, explicit)
		return nil
	}

	for _, p := range configPaths() {
		rc, err := runconfig.Load(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		applyFileConfig(cfg, rc, p)
		return nil
	}

	cfg.Run = runconfig.Default()
	return nil
}

func applyFileConfig(cfg *Config, rc *runconfig.Config, path string) {
	cfg.Run = rc
	cfg.ConfigPath = path
	cfg.Host = rc.Chrome.Host
	cfg.Port = rc.Chrome.Port
}
