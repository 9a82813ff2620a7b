package config

import "runtime"

func defaultVaultBackend() string {
	if runtime.GOOS == "darwin" {
		return VaultKeychain
	}
	return VaultEnv
}
