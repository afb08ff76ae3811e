package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashContent returns the hex SHA-256 of data, used to correlate documents in logs
// without recording their contents.
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
