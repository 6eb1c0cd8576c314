package secret

import (
	"fmt"
	"os"
	"strings"
)

// SecretStore looks up sensitive values such as database passwords so they
// can stay out of the configuration file.
type SecretStore interface {
	// Get retrieves the secret value for the given key.
	// Returns empty slice and nil error if key does not exist.
	Get(key string) ([]byte, error)
}

// New returns the store named kind: "env" (default) or "keychain".
func New(kind string) (SecretStore, error) {
	switch kind {
	case "", "env":
		return EnvStore{Prefix: DefaultEnvPrefix}, nil
	case "keychain":
		return NewKeychainStore(), nil
	}
	return nil, fmt.Errorf("unknown secret store %q", kind)
}

// DefaultEnvPrefix prefixes the environment variables read by EnvStore.
const DefaultEnvPrefix = "REDCAPPREP_SECRET_"

// EnvStore reads secrets from environment variables named Prefix + KEY,
// with the key upper-cased and '-' or '.' replaced by '_'.
type EnvStore struct {
	Prefix string
}

func (e EnvStore) Get(key string) ([]byte, error) {
	name := e.Prefix + strings.NewReplacer("-", "_", ".", "_").Replace(strings.ToUpper(key))
	v, ok := os.LookupEnv(name)
	if !ok {
		return nil, nil
	}
	return []byte(v), nil
}

// ExpandDSN replaces the <password> and <db_password> placeholders in dsn
// with the secret stored under key. An empty key leaves dsn unchanged.
func ExpandDSN(store SecretStore, key, dsn string) (string, error) {
	if key == "" {
		return dsn, nil
	}
	value, err := store.Get(key)
	if err != nil {
		return "", fmt.Errorf("secret %s: %w", key, err)
	}
	if len(value) == 0 {
		return "", fmt.Errorf("secret %s: not found", key)
	}
	password := string(value)
	dsn = strings.ReplaceAll(dsn, "<password>", password)
	dsn = strings.ReplaceAll(dsn, "<db_password>", password)
	return dsn, nil
}
