package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"unicode"
)

// NormalizeDescription trims, lower-cases and collapses internal whitespace.
func NormalizeDescription(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Fingerprint derives the dedup key of a ledger entry from its date,
// normalized description and absolute amount. Sign is ignored so a refund
// line reprinted with the opposite sign still collides.
func Fingerprint(date Date, description string, amount Money) string {
	raw := date.ISO() + "\x00" + NormalizeDescription(description) + "\x00" + amount.Fixed2()
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// ContentKey is a looser identity than Fingerprint: punctuation is dropped and
// the signed amount kept. Rows sharing it are treated as true duplicates.
func ContentKey(date Date, description string, amount Money) string {
	var b strings.Builder
	for _, r := range strings.ToLower(description) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return date.ISO() + "|" + b.String() + "|" + strconv.FormatInt(amount.Cents, 10)
}
