package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenType = "Bearer"

// registeredClaims are never treated as custom claims when refreshing.
var registeredClaims = map[string]struct{}{
	"sub": {}, "iat": {}, "exp": {}, "typ": {},
	"nbf": {}, "iss": {}, "aud": {}, "jti": {},
}

// DefaultSensitiveClaimKeywords is the denylist applied to custom claim
// keys before signing. It is a defense-in-depth filter: the primary
// guarantee is that secret material is never placed into a claims map in
// the first place. Matching is by case-insensitive substring, so a claim
// like "has_keyfile" is dropped too ("key"); callers must not rely on such
// claims round-tripping.
var DefaultSensitiveClaimKeywords = []string{
	"password", "passwd", "pwd", "secret", "token", "key", "private", "credential",
}

// TokenManager issues and validates stateless HS256-signed tokens binding a
// subject identifier. Tokens are never stored server-side; invalidation is
// achieved by removing the underlying session.
type TokenManager struct {
	secret            []byte
	defaultExpiration time.Duration
	denylist          []string
	now               func() time.Time
}

// TokenOption configures a TokenManager.
type TokenOption func(*TokenManager)

// WithTokenClock overrides the clock used for issued-at and expiry
// validation. Intended for tests.
func WithTokenClock(now func() time.Time) TokenOption {
	return func(m *TokenManager) {
		m.now = now
	}
}

// WithSensitiveClaimKeywords replaces the claim-key denylist.
func WithSensitiveClaimKeywords(keywords []string) TokenOption {
	return func(m *TokenManager) {
		m.denylist = keywords
	}
}

// NewTokenManager creates a token manager signing with the operator secret.
func NewTokenManager(secret string, defaultExpiration time.Duration, opts ...TokenOption) (*TokenManager, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}
	m := &TokenManager{
		secret:            []byte(secret),
		defaultExpiration: defaultExpiration,
		denylist:          DefaultSensitiveClaimKeywords,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// CreateToken issues a signed token for subject with the given custom
// claims. Claims with sensitive keys are silently dropped. A zero
// expiration uses the manager default. Every token carries a random jti, so
// two tokens for the same subject are never byte-identical.
func (m *TokenManager) CreateToken(subject string, claims map[string]any, expiration time.Duration) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if expiration <= 0 {
		expiration = m.defaultExpiration
	}

	now := m.now()
	payload := jwt.MapClaims{
		"sub": subject,
		"iat": jwt.NewNumericDate(now),
		"exp": jwt.NewNumericDate(now.Add(expiration)),
		"typ": tokenType,
		"jti": uuid.NewString(),
	}
	for k, v := range claims {
		if m.isSensitiveClaim(k) {
			continue
		}
		if _, reserved := registeredClaims[k]; reserved {
			continue
		}
		payload[k] = v
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return token, nil
}

// DecodeToken verifies the signature and returns the claims. With
// verifyExpiration false the expiry claim is ignored, the only sanctioned
// way to inspect an expired token (refresh and invalidate flows).
func (m *TokenManager) DecodeToken(token string, verifyExpiration bool) (map[string]any, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	}
	if !verifyExpiration {
		parserOpts = append(parserOpts, jwt.WithoutClaimsValidation())
	}

	parsed, err := jwt.NewParser(parserOpts...).Parse(token, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		if verifyExpiration && errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", ErrSessionExpired)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// RefreshToken reissues a token with a fresh issued-at and the same subject
// and custom claims, ignoring the old token's expiry. The old token is not
// revoked; it simply stops resolving once its session is gone.
func (m *TokenManager) RefreshToken(token string, expiration time.Duration) (string, error) {
	claims, err := m.DecodeToken(token, false)
	if err != nil {
		return "", err
	}

	subject, _ := claims["sub"].(string)
	if subject == "" {
		return "", fmt.Errorf("%w: token missing subject claim", ErrInvalidToken)
	}

	custom := make(map[string]any, len(claims))
	for k, v := range claims {
		if _, reserved := registeredClaims[k]; reserved {
			continue
		}
		custom[k] = v
	}

	return m.CreateToken(subject, custom, expiration)
}

// Subject returns the subject claim, verifying expiry according to
// verifyExpiration.
func (m *TokenManager) Subject(token string, verifyExpiration bool) (string, error) {
	claims, err := m.DecodeToken(token, verifyExpiration)
	if err != nil {
		return "", err
	}
	subject, _ := claims["sub"].(string)
	if subject == "" {
		return "", fmt.Errorf("%w: token missing subject claim", ErrInvalidToken)
	}
	return subject, nil
}

func (m *TokenManager) isSensitiveClaim(key string) bool {
	lower := strings.ToLower(key)
	for _, keyword := range m.denylist {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// ExtractBearerToken pulls the token out of an Authorization header value.
// The header must be exactly two whitespace-separated fields with a
// case-insensitive "bearer" scheme; any other shape yields "".
func ExtractBearerToken(header string) string {
	fields := strings.Fields(header)
	if len(fields) != 2 || !strings.EqualFold(fields[0], "bearer") {
		return ""
	}
	return fields[1]
}
