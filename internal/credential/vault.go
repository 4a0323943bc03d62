package credential

import (
	"github.com/zalando/go-keyring"
)

const keyringService = "mongoscope"

// Vault stores URI passwords outside the persisted registry state.
type Vault interface {
	SetPassword(profileID, password string) error
	GetPassword(profileID string) (string, error)
	DeletePassword(profileID string) error
}

// KeyringVault stores passwords in the OS keyring.
type KeyringVault struct{}

// NewKeyringVault creates a keyring-backed vault.
func NewKeyringVault() *KeyringVault {
	return &KeyringVault{}
}

// SetPassword stores a password in the OS keyring. An empty password
// deletes any stored entry.
func (v *KeyringVault) SetPassword(profileID, password string) error {
	if password == "" {
		_ = keyring.Delete(keyringService, profileID)
		return nil
	}
	return keyring.Set(keyringService, profileID, password)
}

// GetPassword retrieves a password from the OS keyring. A missing entry
// is not an error.
func (v *KeyringVault) GetPassword(profileID string) (string, error) {
	password, err := keyring.Get(keyringService, profileID)
	if err == keyring.ErrNotFound {
		return "", nil
	}
	return password, err
}

// DeletePassword removes a password from the OS keyring.
func (v *KeyringVault) DeletePassword(profileID string) error {
	err := keyring.Delete(keyringService, profileID)
	if err == keyring.ErrNotFound {
		return nil
	}
	return err
}

// MemoryVault is an in-memory vault for tests and environments without
// a keyring daemon.
type MemoryVault struct {
	passwords map[string]string
}

// NewMemoryVault creates an empty in-memory vault.
func NewMemoryVault() *MemoryVault {
	return &MemoryVault{passwords: make(map[string]string)}
}

func (v *MemoryVault) SetPassword(profileID, password string) error {
	if password == "" {
		delete(v.passwords, profileID)
		return nil
	}
	v.passwords[profileID] = password
	return nil
}

func (v *MemoryVault) GetPassword(profileID string) (string, error) {
	return v.passwords[profileID], nil
}

func (v *MemoryVault) DeletePassword(profileID string) error {
	delete(v.passwords, profileID)
	return nil
}
