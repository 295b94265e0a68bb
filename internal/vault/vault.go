package vault

import (
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

// ServiceName is the keychain service under which procgate secrets live.
const ServiceName = "procgate"

// DefaultAccount is the keychain account holding the database password.
const DefaultAccount = "database"

// Vault stores database credentials in the OS keychain, with fallback to
// environment variables.
type Vault struct{}

// New creates a new Vault instance.
func New() *Vault {
	return &Vault{}
}

// Set stores a secret for the given account in the OS keychain.
func (v *Vault) Set(account, secret string) error {
	return keyring.Set(ServiceName, account, secret)
}

// Get retrieves the secret for the given account. It first checks the OS
// keychain, then falls back to PROCGATE_SECRET_{UPPER(account)}.
func (v *Vault) Get(account string) (string, error) {
	secret, err := keyring.Get(ServiceName, account)
	if err == nil && secret != "" {
		return secret, nil
	}

	envKey := envKeyFor(account)
	if val := os.Getenv(envKey); val != "" {
		return val, nil
	}

	return "", fmt.Errorf("no secret found for account %q: not in keychain and %s not set", account, envKey)
}

// Delete removes the secret for the given account from the OS keychain.
func (v *Vault) Delete(account string) error {
	return keyring.Delete(ServiceName, account)
}

// ResolveRef parses a secret reference and retrieves the secret.
// Supported formats:
//   - "keyring://procgate/<account>"
//   - "env:VARIABLE_NAME"
//   - "file:///path/to/secret"
func (v *Vault) ResolveRef(ref string) (string, error) {
	switch {
	case strings.HasPrefix(ref, "keyring://"):
		path := strings.TrimPrefix(ref, "keyring://")
		parts := strings.SplitN(path, "/", 2)
		if len(parts) != 2 || parts[0] != ServiceName || parts[1] == "" {
			return "", fmt.Errorf("invalid secret reference format: %q (expected \"keyring://procgate/<account>\")", ref)
		}
		return v.Get(parts[1])

	case strings.HasPrefix(ref, "env:"):
		envVar := strings.TrimPrefix(ref, "env:")
		if val := os.Getenv(envVar); val != "" {
			return val, nil
		}
		return "", fmt.Errorf("environment variable %q is not set", envVar)

	case strings.HasPrefix(ref, "file://"):
		filePath := strings.TrimPrefix(ref, "file://")
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("reading secret file %q: %w", filePath, err)
		}
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("secret file %q is empty", filePath)
		}
		return secret, nil
	}

	return "", fmt.Errorf("invalid secret reference format: %q (expected \"keyring://procgate/<account>\", \"env:VARIABLE_NAME\", or \"file:///path/to/secret\")", ref)
}

// DatabasePassword picks the database password: an explicit plain value
// wins, then the reference is resolved. Both empty means no password.
func (v *Vault) DatabasePassword(plain, ref string) (string, error) {
	if plain != "" {
		return plain, nil
	}
	if ref == "" {
		return "", nil
	}
	return v.ResolveRef(ref)
}

func envKeyFor(account string) string {
	return "PROCGATE_SECRET_" + strings.ToUpper(strings.ReplaceAll(account, "-", "_"))
}
