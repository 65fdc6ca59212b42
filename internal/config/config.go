// Package config provides YAML configuration loading, defaults and
// override merging for gitgraph.
package config

// Config is the root configuration for gitgraph. All optional fields are
// pointers to support merge semantics during configuration building.
type Config struct {
	// TolerateCycles makes ordering commands skip dependency cycles
	// instead of failing.
	TolerateCycles *bool        `yaml:"tolerate-cycles" json:"tolerate-cycles"`
	Remote         RemoteConfig `yaml:"remote" json:"remote"`
	Clone          CloneConfig  `yaml:"clone" json:"clone"`
}

// RemoteConfig configures the GitHub backend.
type RemoteConfig struct {
	Owner       *string `yaml:"owner" json:"owner"`
	Repo        *string `yaml:"repo" json:"repo"`
	Ref         *string `yaml:"ref" json:"ref"`
	BaseURL     *string `yaml:"base-url" json:"base-url"`
	MaxCommits  *int    `yaml:"max-commits" json:"max-commits"`
	Concurrency *int    `yaml:"concurrency" json:"concurrency"`
	GraphQL     *bool   `yaml:"graphql" json:"graphql"`
}

// CloneConfig configures a dynamic repository cloned before reading.
type CloneConfig struct {
	URL      *string `yaml:"url" json:"url"`
	Location *string `yaml:"location" json:"location"`
	Branch   *string `yaml:"branch" json:"branch"`
	NoFetch  *bool   `yaml:"no-fetch" json:"no-fetch"`
	Username *string `yaml:"username" json:"username"`
}
