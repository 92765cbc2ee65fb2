// internal/utils/crypto.go
package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashBytes returns the hex sha256 digest used as the exact-duplicate
// fingerprint of an upload.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func HashString(input string) string {
	return HashBytes([]byte(input))
}

func ValidateFileHash(fileData []byte, expectedHash string) bool {
	return HashBytes(fileData) == expectedHash
}
