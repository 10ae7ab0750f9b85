// Package idgen synthesizes stable external IDs for event requests.
//
// Intake rows arrive from the sheet without a durable key, so the ID is
// derived from a canonical composite of the fields that make a submission
// unique: email, submission timestamp, organization, and contact name.
// Current time is deliberately excluded — the same row must yield the
// same ID on every run, forever. Bump idVersion if the canonical string
// or encoding ever changes.
package idgen

import (
	"crypto/sha256"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const (
	// idVersion is folded into the canonical string so a future format
	// change cannot silently collide with IDs minted under the old one.
	idVersion = "1"

	// idPrefix namespaces event-request IDs.
	idPrefix = "evt"

	// idLength is the number of base36 characters after the prefix.
	idLength = 12

	base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// ExternalID derives the deterministic external ID for an intake
// submission. Inputs are case-folded and trimmed so cosmetic edits in the
// sheet do not mint a new identity; submittedOn is truncated to the
// second because spreadsheet timestamps carry no finer precision.
func ExternalID(email string, submittedOn time.Time, organization, contactName string) string {
	canonical := strings.Join([]string{
		idVersion,
		canonicalize(email),
		fmt.Sprintf("%d", submittedOn.Truncate(time.Second).Unix()),
		canonicalize(organization),
		canonicalize(contactName),
	}, "|")

	sum := sha256.Sum256([]byte(canonical))
	return idPrefix + "-" + encodeBase36(sum[:8], idLength)
}

// ProjectExternalID derives the deterministic external ID for a project
// first observed on the sheet. Projects have no submission timestamp,
// so identity hangs on name, owner email, and target date.
func ProjectExternalID(name, email string, targetDate time.Time) string {
	canonical := strings.Join([]string{
		idVersion,
		canonicalize(name),
		canonicalize(email),
		targetDate.UTC().Format("2006-01-02"),
	}, "|")

	sum := sha256.Sum256([]byte(canonical))
	return "prj-" + encodeBase36(sum[:8], idLength)
}

func canonicalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// encodeBase36 converts data to a base36 string of exactly length chars,
// zero-padded on the left and truncated to the least significant digits.
func encodeBase36(data []byte, length int) string {
	num := new(big.Int).SetBytes(data)
	base := big.NewInt(36)
	zero := big.NewInt(0)
	mod := new(big.Int)

	chars := make([]byte, 0, length)
	for num.Cmp(zero) > 0 {
		num.DivMod(num, base, mod)
		chars = append(chars, base36Alphabet[mod.Int64()])
	}

	var b strings.Builder
	for i := len(chars) - 1; i >= 0; i-- {
		b.WriteByte(chars[i])
	}

	s := b.String()
	if len(s) < length {
		s = strings.Repeat("0", length-len(s)) + s
	}
	if len(s) > length {
		s = s[len(s)-length:]
	}
	return s
}
