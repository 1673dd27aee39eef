// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package plan selects and orders scan targets for a tier.
package plan

import "fmt"

// Tier names a scan depth preset.
type Tier string

const (
	// TierInstant is the fastest preset: changed files only, small
	// context, aggressive caching.
	TierInstant Tier = "instant"

	// TierStandard adds impacted-file analysis with a medium context.
	TierStandard Tier = "standard"

	// TierDeep disables the findings cache and doubles the context
	// budget for a full re-examination.
	TierDeep Tier = "deep"
)

// TierConfig is the behavior profile of one tier.
type TierConfig struct {
	Name Tier `json:"name" yaml:"name"`

	// TokenBudget caps the assembled context size per target.
	TokenBudget int `json:"token_budget" yaml:"token_budget"`

	// UseCache enables findings replay for unchanged units.
	UseCache bool `json:"use_cache" yaml:"use_cache"`

	// IncludeImpacted adds transitive dependents of changed files to
	// the target list.
	IncludeImpacted bool `json:"include_impacted" yaml:"include_impacted"`

	// Parallelism bounds concurrent per-file workers.
	Parallelism int `json:"parallelism" yaml:"parallelism"`
}

var tierTable = map[Tier]TierConfig{
	TierInstant: {
		Name:            TierInstant,
		TokenBudget:     4000,
		UseCache:        true,
		IncludeImpacted: false,
		Parallelism:     10,
	},
	TierStandard: {
		Name:            TierStandard,
		TokenBudget:     8000,
		UseCache:        true,
		IncludeImpacted: true,
		Parallelism:     5,
	},
	TierDeep: {
		Name:            TierDeep,
		TokenBudget:     16000,
		UseCache:        false,
		IncludeImpacted: true,
		Parallelism:     3,
	},
}

// Config returns the configuration for a tier.
func Config(t Tier) (TierConfig, error) {
	cfg, ok := tierTable[t]
	if !ok {
		return TierConfig{}, fmt.Errorf("%w: %q", ErrUnknownTier, t)
	}
	return cfg, nil
}

// Tiers returns the known tier names in depth order.
func Tiers() []Tier {
	return []Tier{TierInstant, TierStandard, TierDeep}
}
