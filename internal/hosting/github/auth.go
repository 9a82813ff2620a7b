package github

import (
	"context"
	"fmt"
	"os"
)

// DefaultTokenEnv is read when no token variable is configured.
const DefaultTokenEnv = "GITHUB_TOKEN"

// SecretLookup fetches a stored secret, typically from the vault.
type SecretLookup func(ctx context.Context) (string, error)

// ResolveToken gets the GitHub API token from the environment variable
// envVar (GITHUB_TOKEN when empty), falling back to lookup.
func ResolveToken(ctx context.Context, envVar string, lookup SecretLookup) (string, error) {
	if envVar == "" {
		envVar = DefaultTokenEnv
	}
	if token := os.Getenv(envVar); token != "" {
		return token, nil
	}
	if lookup != nil {
		token, err := lookup(ctx)
		if err != nil {
			return "", fmt.Errorf("%s is not set and the vault lookup failed: %w", envVar, err)
		}
		if token != "" {
			return token, nil
		}
	}
	return "", fmt.Errorf("%s environment variable is not set and no token is stored in the vault (required for GitHub API access)", envVar)
}
