package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
)

// Key builds a cache key from a namespace prefix and the JSON encoding of
// the given parts. The prefix stays readable in the key so backends like
// redis can be inspected by namespace; the parts are hashed in full, so a
// marker environment can participate without blowing up key length.
func Key(prefix string, parts ...any) string {
	h := sha256.New()
	_, _ = io.WriteString(h, prefix)
	enc := json.NewEncoder(h)
	for _, part := range parts {
		_ = enc.Encode(part)
	}
	return prefix + ":" + hex.EncodeToString(h.Sum(nil))
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
