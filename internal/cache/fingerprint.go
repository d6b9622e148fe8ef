package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/crediscan/crediscan/internal/types"
)

// Fingerprint derives the deterministic cache key for a company and
// operation kind. Logically equal inputs produce identical fingerprints:
// names are lowercased and inner whitespace is collapsed, domains are
// lowercased and stripped of scheme and www prefix.
func Fingerprint(id types.CompanyID, kind Kind) string {
	h := sha256.New()
	h.Write([]byte(string(kind)))
	h.Write([]byte{0})
	h.Write([]byte(NormalizeName(id.Name)))
	h.Write([]byte{0})
	h.Write([]byte(NormalizeDomain(id.Domain)))
	return hex.EncodeToString(h.Sum(nil))
}

// NormalizeName canonicalizes a company name: lowercase, trimmed, with runs
// of whitespace collapsed to single spaces.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// NormalizeDomain canonicalizes a company domain: lowercase, trimmed, with
// scheme, www prefix and trailing slashes removed.
func NormalizeDomain(domain string) string {
	d := strings.TrimSpace(strings.ToLower(domain))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	return strings.TrimRight(d, "/")
}
