package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a random hex id, optionally prefixed ("sync_3f9a...").
func NewID(prefix string) string {
	return withPrefix(prefix, 16)
}

// ShortID is NewID with 8 random bytes, for log correlation.
func ShortID(prefix string) string {
	return withPrefix(prefix, 8)
}

func withPrefix(prefix string, size int) string {
	buf := make([]byte, size)
	_, _ = rand.Read(buf)
	if prefix == "" {
		return hex.EncodeToString(buf)
	}
	return prefix + "_" + hex.EncodeToString(buf)
}
