package crypto

import (
	"errors"
	"fmt"
	"strings"
)

// Keyring provides secure key storage abstraction
type Keyring interface {
	GetKey() (string, error)
	SetKey(password string) error
	DeleteKey() error
	IsAvailable() bool
}

const (
	ServiceName = "casetrail"
	KeyName     = "db-encryption-key"

	// EnvKeyName overrides the system keyring, for CI and headless hosts
	EnvKeyName = "CASETRAIL_DB_KEY"
)

// NewKeyring returns the environment keyring backed by the system keyring
func NewKeyring() Keyring {
	return &chainKeyring{
		keyrings: []Keyring{newEnvKeyring(), newSystemKeyring()},
	}
}

// chainKeyring reads from the first keyring holding a key and writes to
// the first available one that accepts writes.
type chainKeyring struct {
	keyrings []Keyring
}

func (c *chainKeyring) GetKey() (string, error) {
	var errs []string
	for _, k := range c.keyrings {
		key, err := k.GetKey()
		if err == nil {
			return key, nil
		}
		errs = append(errs, err.Error())
	}
	return "", fmt.Errorf("no encryption key found: %s", strings.Join(errs, "; "))
}

func (c *chainKeyring) SetKey(password string) error {
	if password == "" {
		return errors.New("password cannot be empty")
	}
	var lastErr error
	for _, k := range c.keyrings {
		if err := k.SetKey(password); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

func (c *chainKeyring) DeleteKey() error {
	var lastErr error
	for _, k := range c.keyrings {
		if err := k.DeleteKey(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

func (c *chainKeyring) IsAvailable() bool {
	for _, k := range c.keyrings {
		if k.IsAvailable() {
			return true
		}
	}
	return false
}
