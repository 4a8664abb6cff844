package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	service = "charmlink"
	dsnUser = "postgres-dsn"
)

var (
	// ErrNotFound is returned when no DSN is stored in the keyring
	ErrNotFound = errors.New("dsn not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring is not available
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// GetDSN retrieves the PostgreSQL connection string from the OS keyring.
func GetDSN() (string, error) {
	dsn, err := keyring.Get(service, dsnUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return dsn, nil
}

// SetDSN stores the PostgreSQL connection string in the OS keyring.
func SetDSN(dsn string) error {
	if dsn == "" {
		return errors.New("dsn cannot be empty")
	}
	if err := keyring.Set(service, dsnUser, dsn); err != nil {
		return fmt.Errorf("store dsn in keyring: %w", err)
	}
	return nil
}

// DeleteDSN removes the stored connection string.
func DeleteDSN() error {
	if err := keyring.Delete(service, dsnUser); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete dsn from keyring: %w", err)
	}
	return nil
}
