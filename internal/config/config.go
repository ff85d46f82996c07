package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/stride/internal/models"
)

// Environment variables that override policy file values.
const (
	EnvHabitWindowDays    = "STRIDE_HABIT_WINDOW_DAYS"
	EnvHealthyBand        = "STRIDE_HEALTHY_BAND"
	EnvAtRiskBand         = "STRIDE_AT_RISK_BAND"
	EnvNeedsAttentionDays = "STRIDE_NEEDS_ATTENTION_DAYS"
	EnvLoaderBatchSize    = "STRIDE_LOADER_BATCH_SIZE"
	EnvCacheSize          = "STRIDE_CACHE_SIZE"
)

// ExpandPath replaces a leading "~" with the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// LoadPolicy builds the engine policy from defaults, the YAML file at path
// (skipped when it does not exist) and STRIDE_* environment overrides, in
// that order. The result is validated.
func LoadPolicy(path string) (models.Policy, error) {
	policy := models.DefaultPolicy()

	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return models.Policy{}, err
		}
		if err := decodeFile(expanded, &policy); err != nil {
			return models.Policy{}, err
		}
	}

	if err := overrideFromEnv(&policy); err != nil {
		return models.Policy{}, err
	}

	if err := policy.Validate(); err != nil {
		return models.Policy{}, fmt.Errorf("invalid policy: %w", err)
	}
	return policy, nil
}

func decodeFile(path string, policy *models.Policy) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to open policy file: %w", err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(policy); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode policy file %s: %w", path, err)
	}
	return nil
}

func overrideFromEnv(policy *models.Policy) error {
	for _, o := range []struct {
		env    string
		target *int
	}{
		{EnvHabitWindowDays, &policy.HabitWindowDays},
		{EnvHealthyBand, &policy.HealthyBand},
		{EnvAtRiskBand, &policy.AtRiskBand},
		{EnvNeedsAttentionDays, &policy.NeedsAttentionDays},
		{EnvLoaderBatchSize, &policy.LoaderBatchSize},
		{EnvCacheSize, &policy.CacheSize},
	} {
		raw := strings.TrimSpace(os.Getenv(o.env))
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", o.env, raw, err)
		}
		*o.target = v
	}
	return nil
}

// WritePolicy saves policy as YAML, creating parent directories as needed.
func WritePolicy(path string, policy models.Policy) error {
	expanded, err := ExpandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(policy)
	if err != nil {
		return fmt.Errorf("failed to encode policy: %w", err)
	}
	if err := os.WriteFile(expanded, data, 0600); err != nil {
		return fmt.Errorf("failed to write policy file: %w", err)
	}
	return nil
}
