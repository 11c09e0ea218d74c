package receipt

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash is the de-duplication key of a receipt: lowercase hex SHA-256 of its UTF-8 bytes.
func Hash(blob string) string {
	sum := sha256.Sum256([]byte(blob))
	return hex.EncodeToString(sum[:])
}

const excerptLen = 100

// Excerpt keeps the first 100 bytes of a receipt for display. The hash, not
// the excerpt, identifies the receipt.
func Excerpt(blob string) string {
	if len(blob) > excerptLen {
		blob = blob[:excerptLen]
	}
	return blob + "..."
}
