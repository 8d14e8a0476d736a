package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "concierge"
	testAudience = "concierge-dashboard"
)

func newTestKeypair(t *testing.T) (*rsa.PrivateKey, *rsa.PublicKey) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return priv, &priv.PublicKey
}

// signBackdated signs a token whose 30-day validity window started `age` ago.
func signBackdated(t *testing.T, priv *rsa.PrivateKey, age time.Duration) string {
	t.Helper()
	issued := time.Now().Add(-age)
	claims := &Claims{
		BusinessID: 42,
		Roles:      []string{"business"},
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    testIssuer,
			Audience:  []string{testAudience},
			IssuedAt:  jwtlib.NewNumericDate(issued),
			NotBefore: jwtlib.NewNumericDate(issued),
			ExpiresAt: jwtlib.NewNumericDate(issued.Add(30 * 24 * time.Hour)),
		},
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, claims).SignedString(priv)
	require.NoError(t, err)
	return signed
}

func TestGenerateAndVerify(t *testing.T) {
	priv, pub := newTestKeypair(t)
	gen := NewGenerator(priv, testIssuer, testAudience, "key-1", 30*24*time.Hour)
	ver := NewVerifier(pub, testIssuer, testAudience)

	token, jti, err := gen.Generate(7, []string{"business"})
	require.NoError(t, err)
	assert.NotEmpty(t, jti)

	claims, err := ver.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.BusinessID)
	assert.True(t, claims.HasRole("business"))
	assert.False(t, claims.IsAdmin())
	assert.Equal(t, jti, claims.ID)
}

func TestVerify_ThirtyDayWindow(t *testing.T) {
	priv, pub := newTestKeypair(t)
	ver := NewVerifier(pub, testIssuer, testAudience)

	// Issued 29 days ago: still inside the window.
	_, err := ver.Verify(signBackdated(t, priv, 29*24*time.Hour))
	assert.NoError(t, err)

	// Issued 31 days ago: past expiry.
	_, err = ver.Verify(signBackdated(t, priv, 31*24*time.Hour))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_UniformRejection(t *testing.T) {
	priv, pub := newTestKeypair(t)
	otherPriv, _ := newTestKeypair(t)
	gen := NewGenerator(priv, testIssuer, testAudience, "", 30*24*time.Hour)
	ver := NewVerifier(pub, testIssuer, testAudience)

	// Expired, foreign-signed, malformed, wrong issuer: all the same error.
	cases := map[string]string{
		"expired":   signBackdated(t, priv, 31*24*time.Hour),
		"malformed": "not.a.token",
		"empty":     "",
	}

	foreign, _, err := NewGenerator(otherPriv, testIssuer, testAudience, "", time.Hour).Generate(1, nil)
	require.NoError(t, err)
	cases["foreign signature"] = foreign

	wrongIssuer := NewGenerator(priv, "someone-else", testAudience, "", time.Hour)
	tok, _, err := wrongIssuer.Generate(1, nil)
	require.NoError(t, err)
	cases["wrong issuer"] = tok

	for name, raw := range cases {
		_, err := ver.Verify(raw)
		assert.ErrorIs(t, err, ErrInvalidToken, name)
	}

	// Sanity: a good token still passes.
	good, _, err := gen.Generate(1, nil)
	require.NoError(t, err)
	_, err = ver.Verify(good)
	assert.NoError(t, err)
}

func TestClaims_Roles(t *testing.T) {
	c := &Claims{Roles: []string{"admin"}}
	assert.True(t, c.IsAdmin())
	assert.False(t, c.IsSuperAdmin())

	c = &Claims{Roles: []string{"super_admin"}}
	assert.True(t, c.IsAdmin())
	assert.True(t, c.IsSuperAdmin())
}
