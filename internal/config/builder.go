package config

import (
	"fmt"
	"strings"

	"github.com/MyCarrier-DevOps/go-gitgraph/internal/graph"
)

// Builder constructs a Config by layering overrides on top of defaults.
type Builder struct {
	overrides []*Config
}

// NewBuilder creates a new configuration builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add adds a configuration override. Overrides are applied in order:
// later overrides take precedence over earlier ones.
func (b *Builder) Add(override *Config) *Builder {
	if override != nil {
		b.overrides = append(b.overrides, override)
	}
	return b
}

// Build starts from defaults, applies all overrides and validates the result.
func (b *Builder) Build() (*Config, error) {
	cfg := CreateDefaultConfiguration()

	for _, override := range b.overrides {
		mergeConfig(cfg, override)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// mergeConfig applies non-nil fields from src to dst.
func mergeConfig(dst, src *Config) {
	mergePtr(&dst.TolerateCycles, src.TolerateCycles)

	mergePtr(&dst.Remote.Owner, src.Remote.Owner)
	mergePtr(&dst.Remote.Repo, src.Remote.Repo)
	mergePtr(&dst.Remote.Ref, src.Remote.Ref)
	mergePtr(&dst.Remote.BaseURL, src.Remote.BaseURL)
	mergePtr(&dst.Remote.MaxCommits, src.Remote.MaxCommits)
	mergePtr(&dst.Remote.Concurrency, src.Remote.Concurrency)
	mergePtr(&dst.Remote.GraphQL, src.Remote.GraphQL)

	mergePtr(&dst.Clone.URL, src.Clone.URL)
	mergePtr(&dst.Clone.Location, src.Clone.Location)
	mergePtr(&dst.Clone.Branch, src.Clone.Branch)
	mergePtr(&dst.Clone.NoFetch, src.Clone.NoFetch)
	mergePtr(&dst.Clone.Username, src.Clone.Username)
}

func mergePtr[T any](dst **T, src *T) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

func validate(cfg *Config) error {
	if n := *cfg.Remote.MaxCommits; n < 0 {
		return invalid("remote.max-commits", fmt.Errorf("must not be negative, got %d", n))
	}
	if n := *cfg.Remote.Concurrency; n < 1 {
		return invalid("remote.concurrency", fmt.Errorf("must be at least 1, got %d", n))
	}
	if strings.TrimSpace(*cfg.Clone.URL) != "" && strings.TrimSpace(*cfg.Clone.Branch) == "" {
		return invalid("clone.branch", fmt.Errorf("required when clone.url is set"))
	}
	return nil
}

func invalid(key string, err error) error {
	return graph.NewOpError("validate config", key, graph.ErrInvalidConfiguration, err)
}
