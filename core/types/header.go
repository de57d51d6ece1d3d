package types

import (
	"math/big"
	"sync/atomic"

	"github.com/holiman/uint256"
)

// Header represents a block header in the delayed-execution chain.
//
// Fields fall into three classes:
//
//   - Immediate fields commit to data that is available before the block
//     executes: structural linkage, the transaction and withdrawal lists,
//     and the fee-market parameters.
//
//   - Deferred fields carry the execution outputs of the PARENT block.
//     PreStateRoot is the state root after the parent executed (the state
//     this block executes on top of); ParentReceiptHash, ParentBloom,
//     ParentRequestsHash and ParentGasUsed are the parent's receipt
//     commitments and gas accounting. None of them describe this block's
//     own transactions.
//
//   - The signature triple (SigV, SigR, SigS) is the coinbase's commitment
//     over every other field. It binds the coinbase to the upfront
//     inclusion-cost liability for exactly this header's content.
type Header struct {
	// Immediate fields.
	ParentHash Hash
	UncleHash  Hash
	Coinbase   Address
	TxHash     Hash
	Difficulty *big.Int
	Number     *big.Int
	GasLimit   uint64
	Time       uint64
	Extra      []byte
	MixDigest  Hash
	Nonce      BlockNonce
	BaseFee    *uint256.Int

	WithdrawalsHash  Hash
	BlobGasUsed      uint64
	ExcessBlobGas    uint64
	ParentBeaconRoot Hash

	// Deferred fields: execution outputs of the parent block.
	PreStateRoot       Hash
	ParentReceiptHash  Hash
	ParentBloom        Bloom
	ParentRequestsHash Hash
	ParentGasUsed      uint64

	// Coinbase signature over the signing digest of all fields above.
	SigV byte
	SigR *uint256.Int
	SigS *uint256.Int

	// Cache fields (not part of the consensus encoding).
	hash atomic.Pointer[Hash]
}

// Hash returns the keccak256 hash of the full RLP-encoded header,
// signature included, caching on first call.
func (h *Header) Hash() Hash {
	if cached := h.hash.Load(); cached != nil {
		return *cached
	}
	hash := computeHeaderHash(h)
	h.hash.Store(&hash)
	return hash
}

// NumberU64 returns the block number as uint64, treating nil as zero.
func (h *Header) NumberU64() uint64 {
	if h.Number == nil {
		return 0
	}
	return h.Number.Uint64()
}

// CopyHeader creates a deep copy of a header, dropping the hash cache.
func CopyHeader(h *Header) *Header {
	cpy := Header{
		ParentHash:         h.ParentHash,
		UncleHash:          h.UncleHash,
		Coinbase:           h.Coinbase,
		TxHash:             h.TxHash,
		GasLimit:           h.GasLimit,
		Time:               h.Time,
		MixDigest:          h.MixDigest,
		Nonce:              h.Nonce,
		WithdrawalsHash:    h.WithdrawalsHash,
		BlobGasUsed:        h.BlobGasUsed,
		ExcessBlobGas:      h.ExcessBlobGas,
		ParentBeaconRoot:   h.ParentBeaconRoot,
		PreStateRoot:       h.PreStateRoot,
		ParentReceiptHash:  h.ParentReceiptHash,
		ParentBloom:        h.ParentBloom,
		ParentRequestsHash: h.ParentRequestsHash,
		ParentGasUsed:      h.ParentGasUsed,
		SigV:               h.SigV,
	}
	if h.Difficulty != nil {
		cpy.Difficulty = new(big.Int).Set(h.Difficulty)
	}
	if h.Number != nil {
		cpy.Number = new(big.Int).Set(h.Number)
	}
	if h.BaseFee != nil {
		cpy.BaseFee = new(uint256.Int).Set(h.BaseFee)
	}
	if len(h.Extra) > 0 {
		cpy.Extra = make([]byte, len(h.Extra))
		copy(cpy.Extra, h.Extra)
	}
	if h.SigR != nil {
		cpy.SigR = new(uint256.Int).Set(h.SigR)
	}
	if h.SigS != nil {
		cpy.SigS = new(uint256.Int).Set(h.SigS)
	}
	return &cpy
}
