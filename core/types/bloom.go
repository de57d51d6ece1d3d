package types

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"
)

// BloomBitLength is the filter width in bits (2048).
const BloomBitLength = 8 * BloomLength

// The block-level bloom is an execution output: under delayed execution it
// never appears in a block's own header, only as the ParentBloom deferred
// field of the child. Each entry lights three bits, chosen from the first
// six bytes of the entry's keccak hash read as three uint16 values mod 2048.

// bloomBit resolves one of the 2048 bit positions to its byte index and
// mask. Bit 0 lives in the last byte of the array.
func bloomBit(pos uint) (int, byte) {
	return BloomLength - 1 - int(pos/8), 1 << (pos % 8)
}

func bloomPositions(entry []byte) [3]uint {
	h := sha3.NewLegacyKeccak256()
	h.Write(entry)
	sum := h.Sum(nil)

	var pos [3]uint
	for i := range pos {
		pos[i] = uint(binary.BigEndian.Uint16(sum[2*i:])) % BloomBitLength
	}
	return pos
}

// BloomAdd lights the three bits the entry maps to.
func BloomAdd(bloom *Bloom, entry []byte) {
	for _, pos := range bloomPositions(entry) {
		idx, mask := bloomBit(pos)
		bloom[idx] |= mask
	}
}

// BloomContains reports whether all three of the entry's bits are set.
// False positives are inherent; false negatives are not.
func BloomContains(bloom Bloom, entry []byte) bool {
	for _, pos := range bloomPositions(entry) {
		idx, mask := bloomBit(pos)
		if bloom[idx]&mask == 0 {
			return false
		}
	}
	return true
}

// LogsBloom folds a log set into a filter: each log contributes its
// emitting address and every topic.
func LogsBloom(logs []*Log) Bloom {
	var bloom Bloom
	for _, l := range logs {
		BloomAdd(&bloom, l.Address.Bytes())
		for _, topic := range l.Topics {
			BloomAdd(&bloom, topic.Bytes())
		}
	}
	return bloom
}

// CreateBloom unions the per-receipt blooms into the block-level filter the
// child header will carry as ParentBloom. Skipped transactions emit no logs,
// so their receipts contribute nothing.
func CreateBloom(receipts Receipts) Bloom {
	var bloom Bloom
	for _, r := range receipts {
		for i, b := range r.Bloom {
			bloom[i] |= b
		}
	}
	return bloom
}
