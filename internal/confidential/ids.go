package confidential

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ComputationID is a 32-byte unguessable identifier minted once per
// confidential invocation. It correlates all sealed outputs derived from one
// input and indexes the coordinator's computation record.
type ComputationID [32]byte

// NewComputationID mints an identifier from the operating system CSPRNG.
// There is deliberately no time-based fallback: a predictable ID would let an
// adversary correlate requests or pre-stage callbacks.
func NewComputationID() (ComputationID, error) {
	var id ComputationID
	if _, err := rand.Read(id[:]); err != nil {
		return ComputationID{}, fmt.Errorf("%w: %v", ErrEntropyUnavailable, err)
	}
	return id, nil
}

// Hex formats the ID with 0x prefix for records and events.
func (id ComputationID) Hex() string {
	return "0x" + common.Bytes2Hex(id[:])
}

// ParseComputationID parses a 0x-prefixed 64-hex-char identifier.
func ParseComputationID(s string) (ComputationID, error) {
	var id ComputationID
	trimmed := strings.TrimPrefix(s, "0x")
	if len(trimmed) != 64 {
		return id, fmt.Errorf("computation ID must be 32 bytes hex encoded")
	}
	raw := common.FromHex("0x" + trimmed)
	if len(raw) != 32 {
		return id, fmt.Errorf("computation ID must be 32 bytes hex encoded")
	}
	copy(id[:], raw)
	return id, nil
}
