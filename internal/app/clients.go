package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flarebyte/tracker-snapshot/internal/config"
	"github.com/flarebyte/tracker-snapshot/internal/hosting/github"
	"github.com/flarebyte/tracker-snapshot/internal/vault"
)

// NewTrackerClient connects to the repository an endpoint names. The token
// comes from the endpoint's environment variable, then from the vault.
func NewTrackerClient(ctx context.Context, role string, ep config.EndpointConfig, vaultBackend string, log *slog.Logger) (*github.Client, error) {
	if ep.Repository == "" {
		return nil, fmt.Errorf("%s.repository is not configured (use --%s owner/name)", role, role)
	}
	if ep.Provider != "" && ep.Provider != "github" {
		return nil, fmt.Errorf("%s.provider: unsupported provider %q", role, ep.Provider)
	}
	var lookup github.SecretLookup
	if ep.TokenSecret != "" {
		lookup = vault.Lookup(vaultBackend, ep.TokenSecret)
	}
	token, err := github.ResolveToken(ctx, ep.TokenEnv, lookup)
	if err != nil {
		return nil, fmt.Errorf("%s token: %w", role, err)
	}
	return github.New(github.Config{
		Owner:   ep.Owner(),
		Repo:    ep.Name(),
		Token:   token,
		BaseURL: ep.BaseURL,
		Logger:  log.With("endpoint", role, "repository", ep.Repository),
	})
}
