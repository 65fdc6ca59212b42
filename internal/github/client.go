// Package github is the remote backend: it builds a graph.Repository
// snapshot from the GitHub REST and GraphQL APIs.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/MyCarrier-DevOps/go-gitgraph/internal/graph"

	"github.com/bradleyfalzon/ghinstallation/v2"
	gh "github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

// ClientConfig holds the configuration for creating a GitHub API client.
type ClientConfig struct {
	// Token is a GitHub personal access token or GITHUB_TOKEN.
	// Falls back to GITHUB_TOKEN env var if empty.
	Token string

	// AppID is the GitHub App ID for app authentication.
	// Falls back to GH_APP_ID env var if zero.
	AppID int64

	// AppKey is the GitHub App private key PEM content.
	// Falls back to GH_APP_PRIVATE_KEY env var if empty.
	AppKey string

	// AppKeyPath is the path to a GitHub App private key PEM file, used
	// when no key content is given.
	// Falls back to GH_APP_PRIVATE_KEY_PATH env var if empty.
	AppKeyPath string

	// BaseURL is a custom GitHub API base URL for GitHub Enterprise.
	// Falls back to GITHUB_API_URL env var if empty.
	BaseURL string

	// Owner is the repository owner, used to find the app installation.
	Owner string
}

// NewClient creates an authenticated GitHub API client.
// Auth resolution order: Token → GITHUB_TOKEN env → App credentials → error.
func NewClient(ctx context.Context, cfg ClientConfig) (*gh.Client, error) {
	baseURL := ResolveBaseURL(cfg.BaseURL)

	if token := resolveString(cfg.Token, "GITHUB_TOKEN"); token != "" {
		return newTokenClient(ctx, token, baseURL)
	}

	appID := cfg.AppID
	if appID == 0 {
		if s := os.Getenv("GH_APP_ID"); s != "" {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, graph.NewOpError("parse GH_APP_ID", s, graph.ErrInvalidConfiguration, err)
			}
			appID = v
		}
	}
	if appID != 0 {
		appKey, err := resolveAppKey(cfg)
		if err != nil {
			return nil, err
		}
		if len(appKey) > 0 {
			return newAppClient(ctx, appID, appKey, cfg.Owner, baseURL)
		}
	}

	return nil, graph.NewOpError("create GitHub client", "", graph.ErrUnauthorized,
		errors.New("no GitHub authentication provided: set GITHUB_TOKEN, use --token, or provide --github-app-id with --github-app-key or --github-app-key-path"))
}

// resolveAppKey returns the App private key PEM: key content from the flag or
// GH_APP_PRIVATE_KEY first, then the file named by the flag or
// GH_APP_PRIVATE_KEY_PATH. No key at all is not an error.
func resolveAppKey(cfg ClientConfig) ([]byte, error) {
	if key := resolveString(cfg.AppKey, "GH_APP_PRIVATE_KEY"); key != "" {
		return []byte(key), nil
	}
	path := resolveString(cfg.AppKeyPath, "GH_APP_PRIVATE_KEY_PATH")
	if path == "" {
		return nil, nil
	}
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, graph.NewOpError("read GitHub App private key", path, graph.ErrInvalidConfiguration, err)
	}
	return key, nil
}

func newTokenClient(ctx context.Context, token, baseURL string) (*gh.Client, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := gh.NewClient(oauth2.NewClient(ctx, ts))

	if baseURL != "" {
		return client.WithEnterpriseURLs(baseURL, baseURL)
	}
	return client, nil
}

func newAppClient(ctx context.Context, appID int64, key []byte, owner, baseURL string) (*gh.Client, error) {
	appTransport, err := ghinstallation.NewAppsTransport(http.DefaultTransport, appID, key)
	if err != nil {
		return nil, fmt.Errorf("creating GitHub App transport: %w", err)
	}
	if baseURL != "" {
		appTransport.BaseURL = baseURL
	}

	appClient := gh.NewClient(&http.Client{Transport: appTransport})
	if baseURL != "" {
		appClient, err = appClient.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("setting enterprise URL: %w", err)
		}
	}

	installationID, err := findInstallation(ctx, appClient, owner)
	if err != nil {
		return nil, err
	}

	installTransport, err := ghinstallation.New(http.DefaultTransport, appID, installationID, key)
	if err != nil {
		return nil, fmt.Errorf("creating installation transport: %w", err)
	}
	if baseURL != "" {
		installTransport.BaseURL = baseURL
	}

	client := gh.NewClient(&http.Client{Transport: installTransport})
	if baseURL != "" {
		return client.WithEnterpriseURLs(baseURL, baseURL)
	}
	return client, nil
}

// findInstallation finds the GitHub App installation for the given owner.
func findInstallation(ctx context.Context, client *gh.Client, owner string) (int64, error) {
	opts := &gh.ListOptions{PerPage: 100}

	for {
		installations, resp, err := client.Apps.ListInstallations(ctx, opts)
		if err != nil {
			return 0, classifyError("list app installations", owner, err)
		}

		for _, inst := range installations {
			if inst.GetAccount().GetLogin() == owner {
				return inst.GetID(), nil
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return 0, graph.NewOpError("find app installation", owner, graph.ErrNotFound, nil)
}

// classifyError maps a GitHub API failure to a graph error kind.
func classifyError(op, id string, err error) error {
	if err == nil {
		return nil
	}

	var (
		rateErr  *gh.RateLimitError
		abuseErr *gh.AbuseRateLimitError
		gqlErr   *graphQLError
		respErr  *gh.ErrorResponse
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s %s: %w", op, id, err)
	case errors.As(err, &rateErr), errors.As(err, &abuseErr):
		return graph.NewOpError(op, id, graph.ErrRateLimited, err)
	case errors.As(err, &gqlErr):
		return graph.NewOpError(op, id, gqlErr.kind(), err)
	case errors.As(err, &respErr) && respErr.Response != nil:
		return graph.NewOpError(op, id, kindForStatus(respErr.Response.StatusCode), err)
	}
	return graph.NewOpError(op, id, nil, err)
}

func kindForStatus(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return graph.ErrUnauthorized
	case http.StatusForbidden:
		return graph.ErrForbidden
	case http.StatusNotFound:
		return graph.ErrNotFound
	case http.StatusTooManyRequests:
		return graph.ErrRateLimited
	}
	return nil
}

// resolveString returns the flag value if non-empty, otherwise the env var value.
func resolveString(flag, envKey string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv(envKey)
}

// ResolveBaseURL resolves the GitHub API base URL from the flag value or
// the GITHUB_API_URL environment variable. Returns empty string for github.com.
func ResolveBaseURL(flagValue string) string {
	return resolveString(flagValue, "GITHUB_API_URL")
}
