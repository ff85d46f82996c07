package models

import (
	"fmt"

	"github.com/julianstephens/stride/internal/constants"
)

// Policy holds the tunable thresholds used by the scoring engine and loader.
type Policy struct {
	HabitWindowDays    int `yaml:"habit_window_days"`
	HealthyBand        int `yaml:"healthy_band"`
	AtRiskBand         int `yaml:"at_risk_band"`
	NeedsAttentionDays int `yaml:"needs_attention_days"`
	LoaderBatchSize    int `yaml:"loader_batch_size"`
	CacheSize          int `yaml:"cache_size"`
}

func DefaultPolicy() Policy {
	return Policy{
		HabitWindowDays:    constants.DefaultHabitWindowDays,
		HealthyBand:        constants.DefaultHealthyBand,
		AtRiskBand:         constants.DefaultAtRiskBand,
		NeedsAttentionDays: constants.DefaultNeedsAttentionDays,
		LoaderBatchSize:    constants.DefaultLoaderBatchSize,
		CacheSize:          constants.DefaultCacheSize,
	}
}

// Validate checks that every threshold is usable.
func (p Policy) Validate() error {
	if p.HabitWindowDays < 1 {
		return fmt.Errorf("habit_window_days must be at least 1, got %d", p.HabitWindowDays)
	}
	if p.HealthyBand < 0 {
		return fmt.Errorf("healthy_band must not be negative, got %d", p.HealthyBand)
	}
	if p.AtRiskBand < p.HealthyBand {
		return fmt.Errorf("at_risk_band (%d) must not be smaller than healthy_band (%d)", p.AtRiskBand, p.HealthyBand)
	}
	if p.NeedsAttentionDays < 1 {
		return fmt.Errorf("needs_attention_days must be at least 1, got %d", p.NeedsAttentionDays)
	}
	if p.LoaderBatchSize < 1 {
		return fmt.Errorf("loader_batch_size must be at least 1, got %d", p.LoaderBatchSize)
	}
	if p.CacheSize < 1 {
		return fmt.Errorf("cache_size must be at least 1, got %d", p.CacheSize)
	}
	return nil
}
