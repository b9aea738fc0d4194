// Package config loads binary defaults from the environment, optionally seeded from a
// .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Env holds defaults for the towerproof binaries. Flags override every field.
type Env struct {
	DataDir    string `env:"TOWERPROOF_DATA_DIR" envDefault:"./data"`
	IndexPath  string `env:"TOWERPROOF_INDEX_PATH"`
	TuningPath string `env:"TOWERPROOF_TUNING" envDefault:"./configs/tuning.yaml"`
	Parallel   int    `env:"TOWERPROOF_PARALLEL" envDefault:"4"`
	AuditCount int    `env:"TOWERPROOF_AUDIT_COUNT" envDefault:"3"`
	AuditSeed  uint32 `env:"TOWERPROOF_AUDIT_SEED" envDefault:"1"`
	MaxTicks   uint32 `env:"TOWERPROOF_MAX_TICKS" envDefault:"200000"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadDotEnv reads the given .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads .env then parses Env.
func Load() (Env, error) {
	var e Env
	if err := LoadDotEnv(); err != nil {
		return e, err
	}
	if err := ParseEnv(&e); err != nil {
		return e, err
	}
	if e.IndexPath == "" {
		e.IndexPath = e.DataDir + "/index/verdicts.sqlite"
	}
	if e.Parallel < 1 {
		e.Parallel = 1
	}
	return e, nil
}
