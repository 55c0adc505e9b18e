package secrets

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	alphanumeric    = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	passwordAlpha   = alphanumeric + "!@#$%&*+=?"
	lowerAlphaDigit = "abcdefghijklmnopqrstuvwxyz0123456789"

	// MachineSecretLength is fixed: the secret doubles as the public
	// sign-in identifier, so its shape is part of the external contract.
	MachineSecretLength = 16
	passwordLength      = 24
	roleSecretLength    = 32
)

func randomString(alphabet string, length int) (string, error) {
	out := make([]byte, length)
	max := big.NewInt(int64(len(alphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random char: %w", err)
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}

// NewMachineSecret generates the public machine identifier for a brand user,
// e.g. "K3x9Qz2mA8pL1nR4".
func NewMachineSecret() (string, error) {
	return randomString(alphanumeric, MachineSecretLength)
}

// NewPassword generates a brand-user password. The plaintext is surfaced to
// the caller exactly once; only its bcrypt hash is ever persisted.
func NewPassword() (string, error) {
	return randomString(passwordAlpha, passwordLength)
}

// NewRoleSecret generates the password for a partition's restricted database
// role. Alphanumeric only, so it is always safe inside DDL string literals.
func NewRoleSecret() (string, error) {
	return randomString(alphanumeric, roleSecretLength)
}

// NewSuffix generates the short random suffix appended to derived partition
// identifiers.
func NewSuffix(length int) (string, error) {
	return randomString(lowerAlphaDigit, length)
}
