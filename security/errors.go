package security

import "errors"

var (
	// ErrSecretTooShort indicates the operator secret fails the minimum
	// length precondition. Fatal at construction, never recovered.
	ErrSecretTooShort = errors.New("secret must be at least 32 characters")
	// ErrEncrypt indicates the envelope could not be produced.
	ErrEncrypt = errors.New("encryption failed")
	// ErrDecrypt indicates the envelope could not be opened. Tampering,
	// staleness, and wrong-key failures are deliberately indistinguishable.
	ErrDecrypt = errors.New("invalid or expired envelope")
	// ErrInvalidToken indicates a structurally malformed or badly signed token.
	ErrInvalidToken = errors.New("invalid token")
	// ErrSessionExpired indicates the token or its underlying session has
	// passed its expiry.
	ErrSessionExpired = errors.New("session has expired")
	// ErrSecurity wraps any other failure on a secret-bearing path.
	ErrSecurity = errors.New("security operation failed")
)
