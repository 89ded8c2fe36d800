package config

import (
	stderrors "errors"
	"os"

	"github.com/zalando/go-keyring"

	"github.com/matzehuels/ticketblaster/pkg/errors"
)

// Credentials authenticate against the SMTP relay.
type Credentials struct {
	Username string
	Password string
}

// PasswordSource reports where a password was found.
type PasswordSource string

const (
	SourceEnv     PasswordSource = "env"
	SourceKeyring PasswordSource = "keyring"
)

// SecretStore persists SMTP passwords keyed by account.
type SecretStore interface {
	Get(account string) (string, error)
	Set(account, password string) error
	Delete(account string) error
}

// Keyring stores secrets in the OS keychain (Secret Service, macOS
// Keychain or Windows Credential Manager).
type Keyring struct {
	Service string
}

// NewKeyring returns a store under the application's service name.
func NewKeyring() Keyring {
	return Keyring{Service: AppName}
}

func (k Keyring) Get(account string) (string, error) {
	pw, err := keyring.Get(k.Service, account)
	if err != nil {
		return "", wrapKeyring(err, "cannot read password for %s", account)
	}
	return pw, nil
}

func (k Keyring) Set(account, password string) error {
	if account == "" {
		return errors.New(errors.ErrCodeCredentials, "sender address is empty")
	}
	if err := keyring.Set(k.Service, account, password); err != nil {
		return wrapKeyring(err, "cannot store password for %s", account)
	}
	return nil
}

func (k Keyring) Delete(account string) error {
	if err := keyring.Delete(k.Service, account); err != nil {
		return wrapKeyring(err, "cannot delete password for %s", account)
	}
	return nil
}

func wrapKeyring(err error, format string, args ...any) error {
	if stderrors.Is(err, keyring.ErrNotFound) {
		return errors.Wrap(errors.ErrCodeCredentials, err, format+": not found", args...)
	}
	return errors.Wrap(errors.ErrCodeCredentials, err, format, args...)
}

// ResolvePassword finds the password for account, trying the
// TICKETBLASTER_SMTP_PASSWORD variable first and then store. A nil store
// skips the keyring.
func ResolvePassword(account string, store SecretStore) (string, PasswordSource, error) {
	if pw := os.Getenv(EnvPassword); pw != "" {
		return pw, SourceEnv, nil
	}
	if store != nil && account != "" {
		if pw, err := store.Get(account); err == nil && pw != "" {
			return pw, SourceKeyring, nil
		}
	}
	return "", "", errors.New(errors.ErrCodeCredentials,
		"no SMTP password for %q: set %s or run 'ticketblaster credentials set'", account, EnvPassword)
}
