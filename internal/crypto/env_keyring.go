package crypto

import (
	"errors"
	"fmt"
	"os"
)

type envKeyring struct{}

func newEnvKeyring() Keyring {
	return &envKeyring{}
}

// GetKey retrieves the encryption key from the CASETRAIL_DB_KEY environment variable
func (k *envKeyring) GetKey() (string, error) {
	key := os.Getenv(EnvKeyName)
	if key == "" {
		return "", fmt.Errorf("%s environment variable not set", EnvKeyName)
	}
	return key, nil
}

// SetKey always fails; the variable is owned by the caller's shell
func (k *envKeyring) SetKey(password string) error {
	return fmt.Errorf("cannot persist key in %s", EnvKeyName)
}

func (k *envKeyring) DeleteKey() error {
	return errors.New("environment key must be unset manually")
}

func (k *envKeyring) IsAvailable() bool {
	return os.Getenv(EnvKeyName) != ""
}
