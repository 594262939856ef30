package util

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFKD normalization so that visually identical secrets
// entered on different platforms derive the same key.
func Normalize(s string) string {
	return norm.NFKD.String(s)
}

// DeriveKey derives a fixed-length key from an operator secret via
// HKDF-SHA256. The secret is NFKD-normalized before derivation.
func DeriveKey(secret string, salt, info []byte) ([]byte, error) {
	h := hkdf.New(sha256.New, []byte(Normalize(secret)), salt, info)
	k := make([]byte, AESKeySize)
	if _, err := io.ReadFull(h, k); err != nil {
		return nil, fmt.Errorf("reading from HKDF: %w", err)
	}
	return k, nil
}
