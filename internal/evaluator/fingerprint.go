package evaluator

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

const noBarMillis = "-1"

// Fingerprint hashes the canonical '|'-joined parts with SHA-256 as lowercase hex.
func Fingerprint(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatInt(v int) string {
	return strconv.Itoa(v)
}

// barMillis renders the epoch millis of t, or the -1 sentinel when absent.
func barMillis(t *time.Time) string {
	if t == nil {
		return noBarMillis
	}
	return strconv.FormatInt(t.UnixMilli(), 10)
}
