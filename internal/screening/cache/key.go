// Package cache stores aggregated findings keyed by a fingerprint of the
// entity string.
package cache

import (
	"crypto/md5" //nolint:gosec // fingerprint for key derivation, not security
	"encoding/hex"
	"strings"
)

// KeyPrefix namespaces every screening key so flushes never touch other data.
const KeyPrefix = "entity_check:"

// Key derives the cache key for entity: the prefix plus the hex MD5 of the
// trimmed, lower-cased string.
func Key(entity string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(entity)))) //nolint:gosec
	return KeyPrefix + hex.EncodeToString(sum[:])
}
