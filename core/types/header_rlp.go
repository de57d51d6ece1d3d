package types

import (
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// headerFields returns the header's fields in the canonical consensus order.
// The signature triple is appended only when withSig is set; the signing
// digest covers every field except the triple itself.
func headerFields(h *Header, withSig bool) []interface{} {
	fields := []interface{}{
		h.ParentHash,
		h.UncleHash,
		h.Coinbase,
		h.TxHash,
		h.Difficulty,
		h.Number,
		h.GasLimit,
		h.Time,
		h.Extra,
		h.MixDigest,
		h.Nonce,
		h.BaseFee,
		h.WithdrawalsHash,
		h.BlobGasUsed,
		h.ExcessBlobGas,
		h.ParentBeaconRoot,
		h.PreStateRoot,
		h.ParentReceiptHash,
		h.ParentBloom,
		h.ParentRequestsHash,
		h.ParentGasUsed,
	}
	if withSig {
		fields = append(fields, h.SigV, h.SigR, h.SigS)
	}
	return fields
}

// EncodeRLP returns the canonical RLP encoding of the full header,
// signature triple included.
func (h *Header) EncodeRLP() ([]byte, error) {
	return rlp.EncodeToBytes(headerFields(h, true))
}

// computeHeaderHash computes the keccak256 hash of the RLP-encoded header.
func computeHeaderHash(h *Header) Hash {
	enc, err := h.EncodeRLP()
	if err != nil {
		return Hash{}
	}
	return BytesToHash(crypto.Keccak256(enc))
}
