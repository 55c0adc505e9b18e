package token

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ContextKind discriminates the two identity models a token can carry.
// It is embedded in every issued token and drives every downstream
// authorization decision; the two kinds must never be confusable.
type ContextKind string

const (
	ContextPrincipal ContextKind = "PRINCIPAL"
	ContextTenant    ContextKind = "TENANT"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the signed claim set. BrandID and Schema are set only for
// TENANT-context tokens; Roles are a snapshot at issue time (TENANT role
// freshness is bounded by the token lifetime).
type Claims struct {
	Context ContextKind `json:"ctx"`
	BrandID string      `json:"brand_id,omitempty"`
	Schema  string      `json:"schema,omitempty"`
	Roles   []string    `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Generator mints RS256-signed tokens.
type Generator struct {
	priv     *rsa.PrivateKey
	issuer   string
	audience string
	kid      string // key id for rotation
	ttl      time.Duration
}

func NewGenerator(priv *rsa.PrivateKey, issuer, audience, kid string, ttl time.Duration) *Generator {
	return &Generator{priv: priv, issuer: issuer, audience: audience, kid: kid, ttl: ttl}
}

// Principal mints a PRINCIPAL-context token.
func (g *Generator) Principal(principalID string, roles []string) (string, error) {
	return g.generate(&Claims{
		Context: ContextPrincipal,
		Roles:   roles,
	}, principalID)
}

// Tenant mints a TENANT-context token bound to one brand partition.
func (g *Generator) Tenant(brandUserID, brandID, schema string, roles []string) (string, error) {
	return g.generate(&Claims{
		Context: ContextTenant,
		BrandID: brandID,
		Schema:  schema,
		Roles:   roles,
	}, brandUserID)
}

func (g *Generator) generate(claims *Claims, subject string) (string, error) {
	if g.priv == nil {
		return "", fmt.Errorf("token generator has nil private key")
	}
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    g.issuer,
		Subject:   subject,
		Audience:  []string{g.audience},
		ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if g.kid != "" {
		tok.Header["kid"] = g.kid
	}
	return tok.SignedString(g.priv)
}

// Verifier validates signed tokens. Keys are looked up by kid with a
// default fallback, so rotation can overlap.
type Verifier struct {
	pubKeys  map[string]*rsa.PublicKey
	defPub   *rsa.PublicKey
	issuer   string
	audience string
}

func NewVerifier(def *rsa.PublicKey, issuer, audience string) *Verifier {
	return &Verifier{
		pubKeys:  map[string]*rsa.PublicKey{},
		defPub:   def,
		issuer:   issuer,
		audience: audience,
	}
}

func (v *Verifier) AddKey(kid string, pub *rsa.PublicKey) {
	v.pubKeys[kid] = pub
}

// ParseAndValidate checks signature, expiry, issuer and audience, and
// returns the claims. All failures collapse into ErrInvalidToken.
func (v *Verifier) ParseAndValidate(tokenStr string) (*Claims, error) {
	claims := new(Claims)
	parser := jwt.NewParser(
		jwt.WithAudience(v.audience),
		jwt.WithIssuer(v.issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
	)

	tok, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid != "" {
			if k, ok := v.pubKeys[kid]; ok {
				return k, nil
			}
		}
		return v.defPub, nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Context != ContextPrincipal && claims.Context != ContextTenant {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
