package vault

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
)

// EnvPrefix prefixes the environment variables read by the env backend.
const EnvPrefix = "TSNAP_SECRET_"

// EnvVaultDAO reads secrets from TSNAP_SECRET_<NAME> variables. It cannot
// persist anything.
type EnvVaultDAO struct{}

// EnvName returns the variable holding the named secret: upper case, with
// dashes and dots turned into underscores.
func EnvName(name string) string {
	r := strings.NewReplacer("-", "_", ".", "_", " ", "_")
	return EnvPrefix + strings.ToUpper(r.Replace(name))
}

func (EnvVaultDAO) ListSecrets(ctx context.Context) ([]SecretMetadata, error) {
	var out []SecretMetadata
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(k, EnvPrefix) || v == "" {
			continue
		}
		name := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(k, EnvPrefix), "_", "-"))
		out = append(out, SecretMetadata{Name: name, IsSet: true, Backend: "env"})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (EnvVaultDAO) GetSecretMetadata(ctx context.Context, name string) (SecretMetadata, error) {
	return SecretMetadata{Name: name, IsSet: os.Getenv(EnvName(name)) != "", Backend: "env"}, nil
}

func (EnvVaultDAO) SetSecret(ctx context.Context, name string, value []byte) error {
	return fmt.Errorf("env backend is read-only: export %s instead", EnvName(name))
}

func (EnvVaultDAO) UnsetSecret(ctx context.Context, name string) error {
	return fmt.Errorf("env backend is read-only: unset %s instead", EnvName(name))
}

func (EnvVaultDAO) GetSecretForInternalUse(ctx context.Context, name string) ([]byte, error) {
	v := os.Getenv(EnvName(name))
	if v == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return []byte(v), nil
}
