//go:build darwin

package vault

import (
	"context"
	"fmt"

	keychain "github.com/keybase/go-keychain"
)

// KeychainVaultDAO implements VaultDAO backed by the macOS Keychain.
// Secrets are generic passwords under Service=tsnap-vault and Account=<name>.
type KeychainVaultDAO struct{}

func newKeychainVaultDAO() (VaultDAO, error) { return &KeychainVaultDAO{}, nil }

func item(name string) keychain.Item {
	it := keychain.NewItem()
	it.SetSecClass(keychain.SecClassGenericPassword)
	it.SetService(ServiceName)
	if name != "" {
		it.SetAccount(name)
	}
	return it
}

func metadata(r keychain.QueryResult) SecretMetadata {
	md := SecretMetadata{Name: r.Account, IsSet: true, Backend: "keychain"}
	if !r.ModificationDate.IsZero() {
		t := r.ModificationDate
		md.UpdatedAt = &t
	}
	return md
}

func (d *KeychainVaultDAO) ListSecrets(ctx context.Context) ([]SecretMetadata, error) {
	q := item("")
	q.SetMatchLimit(keychain.MatchLimitAll)
	q.SetReturnAttributes(true)
	results, err := keychain.QueryItem(q)
	if err != nil {
		return nil, fmt.Errorf("keychain list: %w", err)
	}
	out := make([]SecretMetadata, 0, len(results))
	for _, r := range results {
		out = append(out, metadata(r))
	}
	return out, nil
}

func (d *KeychainVaultDAO) GetSecretMetadata(ctx context.Context, name string) (SecretMetadata, error) {
	q := item(name)
	q.SetMatchLimit(keychain.MatchLimitOne)
	q.SetReturnAttributes(true)
	rr, err := keychain.QueryItem(q)
	if err != nil {
		return SecretMetadata{Name: name, Backend: "keychain"}, fmt.Errorf("keychain query: %w", err)
	}
	if len(rr) == 0 {
		return SecretMetadata{Name: name, Backend: "keychain"}, nil
	}
	return metadata(rr[0]), nil
}

func (d *KeychainVaultDAO) SetSecret(ctx context.Context, name string, value []byte) error {
	upd := item(name)
	upd.SetLabel("tsnap secret: " + name)
	upd.SetData(value)
	upd.SetAccessible(keychain.AccessibleAfterFirstUnlock)
	if err := keychain.UpdateItem(item(name), upd); err != nil {
		// Not found: add instead.
		if aerr := keychain.AddItem(upd); aerr != nil {
			return fmt.Errorf("keychain add: %w", aerr)
		}
	}
	return nil
}

func (d *KeychainVaultDAO) UnsetSecret(ctx context.Context, name string) error {
	return keychain.DeleteItem(item(name))
}

func (d *KeychainVaultDAO) GetSecretForInternalUse(ctx context.Context, name string) ([]byte, error) {
	q := item(name)
	q.SetMatchLimit(keychain.MatchLimitOne)
	q.SetReturnData(true)
	rr, err := keychain.QueryItem(q)
	if err != nil {
		return nil, fmt.Errorf("keychain get: %w", err)
	}
	if len(rr) == 0 || rr[0].Data == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	out := make([]byte, len(rr[0].Data))
	copy(out, rr[0].Data)
	return out, nil
}
