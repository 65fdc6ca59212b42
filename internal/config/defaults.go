package config

const (
	// DefaultConcurrency bounds the GitHub requests in flight.
	DefaultConcurrency = 4

	// DefaultMaxCommits leaves commit listings uncapped.
	DefaultMaxCommits = 0
)

// CreateDefaultConfiguration returns a Config with every field populated.
func CreateDefaultConfiguration() *Config {
	return &Config{
		TolerateCycles: boolPtr(false),
		Remote: RemoteConfig{
			Owner:       stringPtr(""),
			Repo:        stringPtr(""),
			Ref:         stringPtr(""),
			BaseURL:     stringPtr(""),
			MaxCommits:  intPtr(DefaultMaxCommits),
			Concurrency: intPtr(DefaultConcurrency),
			GraphQL:     boolPtr(true),
		},
		Clone: CloneConfig{
			URL:      stringPtr(""),
			Location: stringPtr(""),
			Branch:   stringPtr(""),
			NoFetch:  boolPtr(false),
			Username: stringPtr(""),
		},
	}
}
