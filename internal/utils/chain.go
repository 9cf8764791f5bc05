package utils

import (
	"errors"
	"strings"
)

// MaxChainNameLength caps chain tags stored in public records and event subjects.
const MaxChainNameLength = 32

var ErrInvalidChainName = errors.New("chain name must be non-empty, without whitespace, and at most 32 characters")

// NormalizeChainName canonicalizes a chain tag: trimmed, upper-cased, bounded.
// Chain tags appear in public events, so the format is enforced before anything
// is queued.
func NormalizeChainName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || len(trimmed) > MaxChainNameLength {
		return "", ErrInvalidChainName
	}
	if strings.ContainsAny(trimmed, " \t\r\n") {
		return "", ErrInvalidChainName
	}
	return strings.ToUpper(trimmed), nil
}
