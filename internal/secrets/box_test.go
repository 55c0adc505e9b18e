package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBox_EncryptDecryptRoundtrip(t *testing.T) {
	key, err := GenerateMasterKey()
	require.NoError(t, err)

	box, err := NewBox(key)
	require.NoError(t, err)

	ciphertext, err := box.Encrypt("s3cret-role-password")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret-role-password", ciphertext)

	plaintext, err := box.Decrypt(ciphertext)
	require.NoError(t, err)
	require.Equal(t, "s3cret-role-password", plaintext)
}

func TestBox_EncryptNotDeterministic(t *testing.T) {
	key, err := GenerateMasterKey()
	require.NoError(t, err)
	box, err := NewBox(key)
	require.NoError(t, err)

	c1, err := box.Encrypt("same")
	require.NoError(t, err)
	c2, err := box.Encrypt("same")
	require.NoError(t, err)
	require.NotEqual(t, c1, c2, "GCM nonce must randomize ciphertext")
}

func TestBox_WrongKeyFails(t *testing.T) {
	key1, _ := GenerateMasterKey()
	key2, _ := GenerateMasterKey()
	box1, err := NewBox(key1)
	require.NoError(t, err)
	box2, err := NewBox(key2)
	require.NoError(t, err)

	ciphertext, err := box1.Encrypt("payload")
	require.NoError(t, err)

	_, err = box2.Decrypt(ciphertext)
	require.Error(t, err)
}

func TestNewBox_RejectsShortKey(t *testing.T) {
	_, err := NewBox("too-short")
	require.Error(t, err)
}

func TestRandomGenerators(t *testing.T) {
	secret, err := NewMachineSecret()
	require.NoError(t, err)
	require.Len(t, secret, MachineSecretLength)
	for _, r := range secret {
		require.Contains(t, alphanumeric, string(r))
	}

	password, err := NewPassword()
	require.NoError(t, err)
	require.Len(t, password, passwordLength)

	roleSecret, err := NewRoleSecret()
	require.NoError(t, err)
	require.Len(t, roleSecret, roleSecretLength)
	require.False(t, strings.ContainsAny(roleSecret, "'\"\\"), "role secret must be safe inside DDL literals")

	// Two draws should never collide.
	other, err := NewMachineSecret()
	require.NoError(t, err)
	require.NotEqual(t, secret, other)
}
