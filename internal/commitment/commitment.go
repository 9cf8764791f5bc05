package commitment

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Digest is a 32-byte keccak256 commitment digest.
type Digest [32]byte

// Hex formats the digest with 0x prefix, matching on-chain event encoding.
func (d Digest) Hex() string {
	return "0x" + common.Bytes2Hex(d[:])
}

// Commit hashes an arbitrary byte buffer into a commitment digest.
func Commit(data []byte) Digest {
	var d Digest
	copy(d[:], crypto.Keccak256(data))
	return d
}

// CommitBridgeAmount binds all fields of a bridge request into one digest:
// amount (8 bytes LE) || source chain || dest chain || user key.
// Chain tags are length-prefixed so field boundaries cannot be shifted
// between the two variable-length segments.
func CommitBridgeAmount(amount uint64, sourceChain, destChain string, userKey [32]byte) Digest {
	data := make([]byte, 0, 8+2+len(sourceChain)+2+len(destChain)+32)

	var amountBytes [8]byte
	binary.LittleEndian.PutUint64(amountBytes[:], amount)
	data = append(data, amountBytes[:]...)

	data = appendLengthPrefixed(data, []byte(sourceChain))
	data = appendLengthPrefixed(data, []byte(destChain))
	data = append(data, userKey[:]...)

	return Commit(data)
}

// CommitVerification binds a verification request: tx hash || expected-amount
// ciphertext || blockchain tag || timestamp.
func CommitVerification(txHash string, expectedAmount []byte, blockchain string, timestamp uint64) Digest {
	data := make([]byte, 0, 2+len(txHash)+2+len(expectedAmount)+2+len(blockchain)+8)
	data = appendLengthPrefixed(data, []byte(txHash))
	data = appendLengthPrefixed(data, expectedAmount)
	data = appendLengthPrefixed(data, []byte(blockchain))

	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], timestamp)
	data = append(data, ts[:]...)

	return Commit(data)
}

// CommitSwap binds all fields of a swap request: source-amount ciphertext ||
// exchange rate (8 bytes LE) || slippage tolerance (8 bytes LE). Substituting
// the rate or the slippage changes the digest.
func CommitSwap(sourceAmount []byte, exchangeRate, slippageTolerance uint64) Digest {
	data := make([]byte, 0, 2+len(sourceAmount)+16)
	data = appendLengthPrefixed(data, sourceAmount)

	var scratch [8]byte
	binary.LittleEndian.PutUint64(scratch[:], exchangeRate)
	data = append(data, scratch[:]...)
	binary.LittleEndian.PutUint64(scratch[:], slippageTolerance)
	data = append(data, scratch[:]...)

	return Commit(data)
}

// CommitBTCAddress binds a withdrawal-address request: address || recipient
// key || timestamp (8 bytes LE).
func CommitBTCAddress(address string, recipientKey [32]byte, timestamp uint64) Digest {
	data := make([]byte, 0, 2+len(address)+32+8)
	data = appendLengthPrefixed(data, []byte(address))
	data = append(data, recipientKey[:]...)

	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], timestamp)
	data = append(data, ts[:]...)

	return Commit(data)
}

// CommitBytes commits an opaque ciphertext blob (swap source amounts,
// sealed addresses). Kept separate from Commit so callers binding a single
// field still go through length prefixing.
func CommitBytes(blob []byte) Digest {
	data := appendLengthPrefixed(make([]byte, 0, 2+len(blob)), blob)
	return Commit(data)
}

func appendLengthPrefixed(dst, field []byte) []byte {
	var l [2]byte
	binary.LittleEndian.PutUint16(l[:], uint16(len(field)))
	dst = append(dst, l[:]...)
	return append(dst, field...)
}
