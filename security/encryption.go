package security

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/awnumar/memguard"

	"github.com/kpgate/kpgate/internal/util"
)

// MinSecretLength is the minimum operator secret length accepted by the
// encryption service and the token manager.
const MinSecretLength = 32

const (
	envelopeVersion   = 0x01
	envelopeHeaderLen = 1 + 8 // version byte + big-endian unix seconds
)

var (
	kdfSalt = []byte("kpgate/envelope/v1")
	kdfInfo = []byte("password envelope key")
)

// EncryptionService produces authenticated, timestamped envelopes for short
// secret strings held only in process memory. The envelope layout is
//
//	version(1) || created-unix-seconds(8, big-endian) || nonce || ciphertext
//
// base64url-encoded, with the header authenticated as GCM additional data.
// The derived key lives in a memguard-locked buffer for the lifetime of the
// service.
type EncryptionService struct {
	key *memguard.LockedBuffer
	now func() time.Time
}

// EncryptionOption configures an EncryptionService.
type EncryptionOption func(*EncryptionService)

// WithEncryptionClock overrides the clock used for envelope timestamps and
// staleness checks. Intended for tests.
func WithEncryptionClock(now func() time.Time) EncryptionOption {
	return func(s *EncryptionService) {
		s.now = now
	}
}

// NewEncryptionService derives the envelope key from the operator secret.
// Secrets shorter than MinSecretLength are rejected.
func NewEncryptionService(secret string, opts ...EncryptionOption) (*EncryptionService, error) {
	s := &EncryptionService{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.install(secret); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *EncryptionService) install(secret string) error {
	if len(secret) < MinSecretLength {
		return ErrSecretTooShort
	}
	raw, err := util.DeriveKey(secret, kdfSalt, kdfInfo)
	if err != nil {
		return fmt.Errorf("deriving envelope key: %w", err)
	}
	if s.key != nil {
		s.key.Destroy()
	}
	// NewBufferFromBytes wipes raw after copying it into locked memory.
	s.key = memguard.NewBufferFromBytes(raw)
	return nil
}

// Encrypt seals plaintext into a self-contained envelope embedding the
// creation timestamp.
func (s *EncryptionService) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("%w: empty plaintext", ErrEncrypt)
	}

	header := make([]byte, envelopeHeaderLen)
	header[0] = envelopeVersion
	binary.BigEndian.PutUint64(header[1:], uint64(s.now().Unix()))

	blob, err := util.SealAESGCM([]byte(plaintext), s.key.Bytes(), header)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncrypt, err)
	}

	out := make([]byte, 0, envelopeHeaderLen+len(blob))
	out = append(out, header...)
	out = append(out, blob...)
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Decrypt opens an envelope. When maxAge is positive, envelopes whose
// embedded timestamp is older than maxAge fail. Malformed input, tampering,
// a rotated key, and staleness all return the same error so callers cannot
// distinguish the cause.
func (s *EncryptionService) Decrypt(ciphertext string, maxAge time.Duration) (string, error) {
	if ciphertext == "" {
		return "", ErrDecrypt
	}

	raw, err := base64.RawURLEncoding.DecodeString(ciphertext)
	if err != nil || len(raw) <= envelopeHeaderLen || raw[0] != envelopeVersion {
		return "", ErrDecrypt
	}

	header, blob := raw[:envelopeHeaderLen], raw[envelopeHeaderLen:]

	plaintext, err := util.OpenAESGCM(blob, s.key.Bytes(), header)
	if err != nil {
		return "", ErrDecrypt
	}

	if maxAge > 0 {
		created := time.Unix(int64(binary.BigEndian.Uint64(header[1:])), 0)
		if s.now().Sub(created) >= maxAge {
			return "", ErrDecrypt
		}
	}

	return string(plaintext), nil
}

// Rotate replaces the derived key with one derived from newSecret. Every
// envelope produced under the previous key becomes undecryptable; callers
// that need continuity must decrypt before rotating and re-encrypt after.
func (s *EncryptionService) Rotate(newSecret string) error {
	return s.install(newSecret)
}

// Destroy wipes the key material. The service is unusable afterwards.
func (s *EncryptionService) Destroy() {
	if s.key != nil {
		s.key.Destroy()
	}
}
