//go:build !darwin

package vault

import (
	"context"
	"errors"
)

var errKeychainUnsupported = errors.New("keychain backend not supported on this OS (use vault.backend: env)")

type KeychainVaultDAO struct{}

func newKeychainVaultDAO() (VaultDAO, error) { return nil, errKeychainUnsupported }

func (d *KeychainVaultDAO) ListSecrets(ctx context.Context) ([]SecretMetadata, error) {
	return nil, errKeychainUnsupported
}
func (d *KeychainVaultDAO) GetSecretMetadata(ctx context.Context, name string) (SecretMetadata, error) {
	return SecretMetadata{Name: name, Backend: "keychain"}, errKeychainUnsupported
}
func (d *KeychainVaultDAO) SetSecret(ctx context.Context, name string, value []byte) error {
	return errKeychainUnsupported
}
func (d *KeychainVaultDAO) UnsetSecret(ctx context.Context, name string) error {
	return errKeychainUnsupported
}
func (d *KeychainVaultDAO) GetSecretForInternalUse(ctx context.Context, name string) ([]byte, error) {
	return nil, errKeychainUnsupported
}
