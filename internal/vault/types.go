package vault

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// VaultDAO defines the operations required to manage secrets in a backend vault.
// Implementations must never log or print secret values.
type VaultDAO interface {
	// ListSecrets returns metadata for all secrets in the backend for this service.
	ListSecrets(ctx context.Context) ([]SecretMetadata, error)
	// GetSecretMetadata returns metadata for a specific secret name. If the secret is not set,
	// implementations return metadata with IsSet=false and no error.
	GetSecretMetadata(ctx context.Context, name string) (SecretMetadata, error)
	// SetSecret creates or updates a secret value.
	SetSecret(ctx context.Context, name string, value []byte) error
	// UnsetSecret deletes the secret.
	UnsetSecret(ctx context.Context, name string) error
	// GetSecretForInternalUse fetches the raw secret value for internal usage only.
	// CLI code must never print or log this value.
	GetSecretForInternalUse(ctx context.Context, name string) ([]byte, error)
}

// SecretMetadata contains non-sensitive information about a secret.
type SecretMetadata struct {
	Name      string     `json:"name"`
	IsSet     bool       `json:"is_set"`
	Backend   string     `json:"backend"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

const (
	// ServiceName groups all secrets belonging to this application in the Keychain.
	ServiceName = "tsnap-vault"
)

// ErrNotFound is returned by GetSecretForInternalUse for unset secrets.
var ErrNotFound = errors.New("secret not found")

// NewVaultDAO constructs a DAO for the selected backend.
func NewVaultDAO(backend string) (VaultDAO, error) {
	switch backend {
	case "keychain":
		return newKeychainVaultDAO()
	case "", "env":
		return EnvVaultDAO{}, nil
	default:
		return nil, fmt.Errorf("vault backend not implemented: %s", backend)
	}
}

// Lookup returns a function reading one secret as a string, for token
// resolution. An unset secret yields an empty string and no error.
func Lookup(backend, name string) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		dao, err := NewVaultDAO(backend)
		if err != nil {
			return "", err
		}
		b, err := dao.GetSecretForInternalUse(ctx, name)
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
