package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const (
	stampBytes = 16
	sealLength = 16
)

// NewStamp returns 32 upper-case hex characters of crypto randomness.
func NewStamp() (string, error) {
	b := make([]byte, stampBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate stamp: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

// Seal hashes the office name and the exact issuance instant. Anyone holding
// both can recompute it.
func Seal(officeName string, issuedAt time.Time) string {
	sum := sha256.Sum256([]byte(officeName + "|" + issuedAt.UTC().Format(time.RFC3339Nano)))
	return strings.ToUpper(hex.EncodeToString(sum[:]))[:sealLength]
}
