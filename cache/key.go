package cache

import (
	"encoding/hex"
	"strings"

	"github.com/zeebo/xxh3"
)

// KeyLength is the length of a derived key in characters.
const KeyLength = 32

// DeriveKey computes the cache key for a source text.
//
// The key is the XXH3-128 digest of the trimmed text, hex-encoded. It is a
// pure function of the text: identical input always yields the same key.
// Distinct texts may collide; with 128 bits this is accepted as negligible.
func DeriveKey(text string) string {
	sum := xxh3.HashString128(strings.TrimSpace(text)).Bytes()
	return hex.EncodeToString(sum[:])
}
