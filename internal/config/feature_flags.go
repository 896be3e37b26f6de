package config

import (
	"fmt"
	"os"
	"strconv"
)

// FeatureFlags holds the two independently rollout-able toggles this
// engine exposes on top of its fixed detection pipeline.
type FeatureFlags struct {
	// UseVariantFilter gates the six-way PH/PL variant allow-list. When
	// disabled every classified pivot is stored regardless of variant.
	UseVariantFilter bool `json:"use_variant_filter" mapstructure:"use_variant_filter"`

	// InsertSyntheticPivots gates fake-pivot insertion between
	// consecutive same-kind pivots. When disabled, alternation breaks
	// are left as-is and the eight-pivot validator's structural
	// precondition will simply reject more windows.
	InsertSyntheticPivots bool `json:"insert_synthetic_pivots" mapstructure:"insert_synthetic_pivots"`
}

// DefaultFeatureFlags returns the safe defaults from the configuration
// table: both toggles enabled.
func DefaultFeatureFlags() *FeatureFlags {
	return &FeatureFlags{
		UseVariantFilter:      true,
		InsertSyntheticPivots: true,
	}
}

// LoadFeatureFlagsFromEnv loads feature flags from environment variables,
// falling back to DefaultFeatureFlags for anything unset or malformed.
func LoadFeatureFlagsFromEnv() *FeatureFlags {
	flags := DefaultFeatureFlags()

	if val := os.Getenv("USE_VARIANT_FILTER"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			flags.UseVariantFilter = enabled
		}
	}

	if val := os.Getenv("INSERT_SYNTHETIC_PIVOTS"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			flags.InsertSyntheticPivots = enabled
		}
	}

	return flags
}

// LogConfiguration renders the current flag state for startup logging.
func (f *FeatureFlags) LogConfiguration() string {
	return fmt.Sprintf("FeatureFlags{UseVariantFilter=%t, InsertSyntheticPivots=%t}",
		f.UseVariantFilter, f.InsertSyntheticPivots)
}
