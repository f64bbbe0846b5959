package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/bcdannyboy/pathsim/paths"
	"github.com/joho/godotenv"
)

// Environment overrides for the engine block.
const (
	EnvSeed    = "PATHSIM_SEED"
	EnvPaths   = "PATHSIM_PATHS"
	EnvWorkers = "PATHSIM_WORKERS"
)

// LoadEnv loads envFile into the process environment. A missing file is not an error.
// Variables already set win over the file.
func LoadEnv(envFile string) error {
	if envFile == "" {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}
	return nil
}

// ApplyEnv overrides engine fields from PATHSIM_* variables.
func ApplyEnv(cfg *paths.EngineConfig) error {
	if err := envInt(EnvPaths, &cfg.NumberOfPaths); err != nil {
		return err
	}
	if err := envInt(EnvWorkers, &cfg.Workers); err != nil {
		return err
	}
	if val, ok := os.LookupEnv(EnvSeed); ok {
		seed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", EnvSeed, val, err)
		}
		cfg.Seed = seed
	}
	return nil
}

func envInt(key string, dst *int) error {
	val, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("%s=%q: %w", key, val, err)
	}
	*dst = i
	return nil
}
