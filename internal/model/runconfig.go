package model

import (
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
)

// Default brand lists used when a run configuration supplies none. Injected
// once at construction time so downstream consolidation never falls back
// on its own.
var (
	DefaultTargetBrands = []string{"Acme"}
)

// Defaults applied by NewRunConfiguration.
const (
	DefaultConcurrency = 5
	DefaultMaxRetries  = 3
	DefaultCallTimeout = 60 * time.Second
	DefaultCacheTTL    = 7 * 24 * time.Hour
	DefaultLocale      = "en-US"
)

// RunConfiguration holds every knob for a single analysis run. It is built
// once by NewRunConfiguration and read-only thereafter.
type RunConfiguration struct {
	TargetBrands     []string      `json:"target_brands"`
	CompetitorBrands []string      `json:"competitor_brands"`
	PriorityDomains  []string      `json:"priority_domains"`
	GenerationModel  string        `json:"generation_model"`
	AnalysisModel    string        `json:"analysis_model"`
	Locale           string        `json:"locale"`
	Concurrency      int           `json:"concurrency"`
	MaxRetries       int           `json:"max_retries"`
	CallTimeout      time.Duration `json:"call_timeout"`
	CacheEnabled     bool          `json:"cache_enabled"`
	CacheTTL         time.Duration `json:"cache_ttl"`
}

// RunConfigurationParams is the caller-supplied input to NewRunConfiguration.
// Zero values take documented defaults.
type RunConfigurationParams struct {
	TargetBrands     []string
	CompetitorBrands []string
	PriorityDomains  []string
	GenerationModel  string
	AnalysisModel    string
	Locale           string
	Concurrency      int
	MaxRetries       int
	CallTimeout      time.Duration
	CacheEnabled     bool
	CacheTTL         time.Duration
}

// NewRunConfiguration validates params, applies defaults exactly once, and
// returns an immutable configuration. Model IDs are required; everything
// else has defaults.
func NewRunConfiguration(p RunConfigurationParams) (*RunConfiguration, error) {
	if p.GenerationModel == "" {
		return nil, eris.New("run config: generation model is required")
	}
	if p.AnalysisModel == "" {
		return nil, eris.New("run config: analysis model is required")
	}

	locale := p.Locale
	if locale == "" {
		locale = DefaultLocale
	}
	if _, err := language.Parse(locale); err != nil {
		return nil, eris.Wrapf(err, "run config: invalid locale %q", locale)
	}

	cfg := &RunConfiguration{
		TargetBrands:     cloneNonEmpty(p.TargetBrands),
		CompetitorBrands: cloneNonEmpty(p.CompetitorBrands),
		PriorityDomains:  cloneNonEmpty(p.PriorityDomains),
		GenerationModel:  p.GenerationModel,
		AnalysisModel:    p.AnalysisModel,
		Locale:           locale,
		Concurrency:      p.Concurrency,
		MaxRetries:       p.MaxRetries,
		CallTimeout:      p.CallTimeout,
		CacheEnabled:     p.CacheEnabled,
		CacheTTL:         p.CacheTTL,
	}

	if len(cfg.TargetBrands) == 0 {
		cfg.TargetBrands = append([]string(nil), DefaultTargetBrands...)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}

	return cfg, nil
}

// AllBrands returns targets followed by competitors.
func (c *RunConfiguration) AllBrands() []string {
	out := make([]string, 0, len(c.TargetBrands)+len(c.CompetitorBrands))
	out = append(out, c.TargetBrands...)
	out = append(out, c.CompetitorBrands...)
	return out
}

// IsTargetBrand reports whether name is one of the configured target brands
// (exact match).
func (c *RunConfiguration) IsTargetBrand(name string) bool {
	return contains(c.TargetBrands, name)
}

// IsCompetitorBrand reports whether name is one of the configured competitor
// brands (exact match).
func (c *RunConfiguration) IsCompetitorBrand(name string) bool {
	return contains(c.CompetitorBrands, name)
}

func contains(list []string, name string) bool {
	for _, s := range list {
		if s == name {
			return true
		}
	}
	return false
}

func cloneNonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
