package secret

import (
	"os/exec"
	"strings"
)

const keychainService = "redcapprep"

// KeychainStore implements SecretStore using the macOS Keychain
// via the `security` CLI tool. Add entries with:
//
//	security add-generic-password -s redcapprep -a <key> -w <password>
type KeychainStore struct{}

// NewKeychainStore creates a new KeychainStore.
func NewKeychainStore() *KeychainStore {
	return &KeychainStore{}
}

// Get retrieves a secret from the macOS Keychain.
// Returns empty slice and nil error if the key doesn't exist.
func (k *KeychainStore) Get(key string) ([]byte, error) {
	cmd := exec.Command("security", "find-generic-password",
		"-a", key,
		"-s", keychainService,
		"-w", // output only the password
	)
	out, err := cmd.Output()
	if err != nil {
		// "security" exits 44 when the item is missing; any other failure is
		// also reported as not found.
		return nil, nil
	}
	return []byte(strings.TrimSpace(string(out))), nil
}
