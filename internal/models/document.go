package models

import (
	"crypto/sha256"
	"encoding/hex"
)

// DocumentID derives the session key from normalized document text.
func DocumentID(normalizedText string) string {
	sum := sha256.Sum256([]byte(normalizedText))
	return hex.EncodeToString(sum[:])[:DocumentIDLength]
}
