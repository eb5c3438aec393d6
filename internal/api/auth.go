package api

import (
	"errors"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

// DefaultJWKSCacheTTL bounds how long a resolved signing key is reused.
const DefaultJWKSCacheTTL = 15 * time.Minute

var (
	errInvalidClaims = errors.New("invalid claims")
	errMissingSub    = errors.New("missing sub")
)

// Auth validates incoming JWT tokens, either RS256 against an Auth0 JWKS or
// HS256 against a shared secret in test mode.
type Auth struct {
	JWKS       *keyfunc.JWKS
	Audience   string
	Issuer     string
	TestMode   bool
	TestSecret []byte

	parser      *jwt.Parser
	keyCache    sync.Map
	keyCacheTTL time.Duration
}

type cachedKey struct {
	key       any
	expiresAt time.Time
}

// NewAuth creates an Auth that verifies RS256 tokens with keys from jwks.
func NewAuth(jwks *keyfunc.JWKS, audience, issuer string, keyCacheTTL time.Duration) *Auth {
	return &Auth{
		JWKS:        jwks,
		Audience:    audience,
		Issuer:      issuer,
		parser:      jwt.NewParser(jwt.WithValidMethods([]string{"RS256"})),
		keyCacheTTL: keyCacheTTL,
	}
}

// NewTestAuth creates an Auth that accepts HS256 tokens signed with secret.
func NewTestAuth(secret []byte) *Auth {
	return &Auth{
		TestMode:   true,
		TestSecret: secret,
		parser:     jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
	}
}

// UserIDFromAuthHeader extracts the user identifier from an Authorization header value.
func (a *Auth) UserIDFromAuthHeader(h string) (string, error) {
	token, err := bearerTokenFromString(h)
	if err != nil {
		return "", err
	}
	return a.UserIDFromBearer(token)
}

// UserIDFromBearer verifies a raw token and returns its subject.
func (a *Auth) UserIDFromBearer(token string) (string, error) {
	if token == "" {
		return "", errBadAuthorization
	}

	parsed, err := a.parser.Parse(token, a.keyFor)
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", errInvalidClaims
	}

	now := time.Now().Add(time.Minute).Unix()
	switch {
	case !claims.VerifyExpiresAt(now, true):
		return "", errors.New("token expired")
	case !claims.VerifyNotBefore(now, false):
		return "", errors.New("token not valid yet")
	case !claims.VerifyIssuedAt(now, false):
		return "", errors.New("token used before issued")
	case a.Audience != "" && !claims.VerifyAudience(a.Audience, false):
		return "", errors.New("invalid audience")
	case a.Issuer != "" && !claims.VerifyIssuer(a.Issuer, false):
		return "", errors.New("invalid issuer")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", errMissingSub
	}
	return sub, nil
}

func (a *Auth) keyFor(t *jwt.Token) (any, error) {
	if a.TestMode {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.TestSecret, nil
	}
	if a.JWKS == nil {
		return nil, errors.New("jwks not configured")
	}

	kid, _ := t.Header["kid"].(string)
	cacheable := kid != "" && a.keyCacheTTL > 0
	if cacheable {
		if cached, ok := a.keyCache.Load(kid); ok {
			entry := cached.(cachedKey)
			if time.Now().Before(entry.expiresAt) {
				return entry.key, nil
			}
			a.keyCache.Delete(kid)
		}
	}

	key, err := a.JWKS.Keyfunc(t)
	if err != nil {
		return nil, err
	}
	if cacheable {
		a.keyCache.Store(kid, cachedKey{key: key, expiresAt: time.Now().Add(a.keyCacheTTL)})
	}
	return key, nil
}
