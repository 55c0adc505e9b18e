package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestPair(t *testing.T, ttl time.Duration) (*Generator, *Verifier) {
	t.Helper()
	key, err := GenerateEphemeralKey()
	require.NoError(t, err)
	gen := NewGenerator(key, "brandhub-core", "brandhub", "test-key", ttl)
	ver := NewVerifier(&key.PublicKey, "brandhub-core", "brandhub")
	return gen, ver
}

func TestTenantTokenRoundtrip(t *testing.T) {
	gen, ver := newTestPair(t, time.Hour)

	signed, err := gen.Tenant("user-1", "brand-1", "bensu_kitchen_7f3a", []string{"Owner"})
	require.NoError(t, err)

	claims, err := ver.ParseAndValidate(signed)
	require.NoError(t, err)
	require.Equal(t, ContextTenant, claims.Context)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "brand-1", claims.BrandID)
	require.Equal(t, "bensu_kitchen_7f3a", claims.Schema)
	require.Equal(t, []string{"Owner"}, claims.Roles)
	require.NotEmpty(t, claims.ID)
}

func TestPrincipalTokenRoundtrip(t *testing.T) {
	gen, ver := newTestPair(t, time.Hour)

	signed, err := gen.Principal("principal-1", []string{"PlatformAdmin"})
	require.NoError(t, err)

	claims, err := ver.ParseAndValidate(signed)
	require.NoError(t, err)
	require.Equal(t, ContextPrincipal, claims.Context)
	require.Equal(t, "principal-1", claims.Subject)
	require.Empty(t, claims.BrandID)
	require.Empty(t, claims.Schema)
}

func TestExpiredTokenRejected(t *testing.T) {
	gen, ver := newTestPair(t, -time.Minute)

	signed, err := gen.Principal("principal-1", nil)
	require.NoError(t, err)

	_, err = ver.ParseAndValidate(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTamperedTokenRejected(t *testing.T) {
	gen, ver := newTestPair(t, time.Hour)

	signed, err := gen.Tenant("user-1", "brand-1", "schema_x", nil)
	require.NoError(t, err)

	parts := strings.Split(signed, ".")
	require.Len(t, parts, 3)
	parts[1] = parts[1][:len(parts[1])-2] + "xx"

	_, err = ver.ParseAndValidate(strings.Join(parts, "."))
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestWrongKeyRejected(t *testing.T) {
	gen, _ := newTestPair(t, time.Hour)
	otherKey, err := GenerateEphemeralKey()
	require.NoError(t, err)
	ver := NewVerifier(&otherKey.PublicKey, "brandhub-core", "brandhub")

	signed, err := gen.Principal("principal-1", nil)
	require.NoError(t, err)

	_, err = ver.ParseAndValidate(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}

// During an overlapping rotation the verifier holds the new key as default
// and the retired key under its kid; tokens signed under either must verify.
func TestKeyRotationOverlap(t *testing.T) {
	oldKey, err := GenerateEphemeralKey()
	require.NoError(t, err)
	newKey, err := GenerateEphemeralKey()
	require.NoError(t, err)

	oldGen := NewGenerator(oldKey, "brandhub-core", "brandhub", "2026-01", time.Hour)
	newGen := NewGenerator(newKey, "brandhub-core", "brandhub", "2026-08", time.Hour)

	ver := NewVerifier(&newKey.PublicKey, "brandhub-core", "brandhub")
	ver.AddKey("2026-08", &newKey.PublicKey)
	ver.AddKey("2026-01", &oldKey.PublicKey)

	oldSigned, err := oldGen.Principal("principal-1", nil)
	require.NoError(t, err)
	newSigned, err := newGen.Principal("principal-1", nil)
	require.NoError(t, err)

	_, err = ver.ParseAndValidate(oldSigned)
	require.NoError(t, err)
	_, err = ver.ParseAndValidate(newSigned)
	require.NoError(t, err)

	// Once the retired key is gone, its tokens die with it.
	bare := NewVerifier(&newKey.PublicKey, "brandhub-core", "brandhub")
	bare.AddKey("2026-08", &newKey.PublicKey)
	_, err = bare.ParseAndValidate(oldSigned)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestWrongAudienceRejected(t *testing.T) {
	key, err := GenerateEphemeralKey()
	require.NoError(t, err)
	gen := NewGenerator(key, "brandhub-core", "someone-else", "", time.Hour)
	ver := NewVerifier(&key.PublicKey, "brandhub-core", "brandhub")

	signed, err := gen.Principal("principal-1", nil)
	require.NoError(t, err)

	_, err = ver.ParseAndValidate(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}
