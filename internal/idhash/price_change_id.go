package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// ComputePriceChangeID computes a deterministic price change ID using SHA256.
// Formula: SHA256(commodity|market|market_type|YYYY-MM-DD)
// Names are compared case-insensitively with surrounding spaces removed.
// Returns hex-encoded hash (64 characters).
func ComputePriceChangeID(
	commodity string,
	market string,
	marketType string,
	date time.Time,
) string {
	data := fmt.Sprintf("%s|%s|%s|%s",
		normalize(commodity),
		normalize(market),
		normalize(marketType),
		date.UTC().Format("2006-01-02"),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeRecordID computes a deterministic ID for a raw market document from
// its canonical JSON encoding.
func ComputeRecordID(canonicalJSON []byte) string {
	hash := sha256.Sum256(canonicalJSON)
	return hex.EncodeToString(hash[:])
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
