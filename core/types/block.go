package types

import (
	"math/big"
	"sync/atomic"

	"github.com/holiman/uint256"
)

// Withdrawal represents a validator withdrawal from the beacon chain.
// Amounts are denominated in Gwei and credited unconditionally.
type Withdrawal struct {
	Index          uint64
	ValidatorIndex uint64
	Address        Address
	Amount         uint64 // in Gwei
}

// Body contains the transactions and auxiliary data of a block.
type Body struct {
	Transactions []*Transaction
	Uncles       []*Header
	Withdrawals  []*Withdrawal
}

// Block pairs a signed header with its body. Blocks are immutable once
// constructed; the header and body are copied on the way in.
type Block struct {
	header *Header
	body   Body

	hash atomic.Pointer[Hash]
}

// NewBlock creates a new block with the given header and body.
// A nil body is treated as an empty body.
func NewBlock(header *Header, body *Body) *Block {
	b := &Block{header: CopyHeader(header)}
	if body != nil {
		b.body.Transactions = make([]*Transaction, len(body.Transactions))
		copy(b.body.Transactions, body.Transactions)

		b.body.Uncles = make([]*Header, len(body.Uncles))
		for i, uncle := range body.Uncles {
			b.body.Uncles[i] = CopyHeader(uncle)
		}

		if body.Withdrawals != nil {
			b.body.Withdrawals = make([]*Withdrawal, len(body.Withdrawals))
			for i, w := range body.Withdrawals {
				wCopy := *w
				b.body.Withdrawals[i] = &wCopy
			}
		}
	}
	return b
}

// Header returns a copy of the block header.
func (b *Block) Header() *Header { return CopyHeader(b.header) }

// Body returns the block body.
func (b *Block) Body() *Body {
	return &Body{
		Transactions: b.body.Transactions,
		Uncles:       b.body.Uncles,
		Withdrawals:  b.body.Withdrawals,
	}
}

// Transactions returns the block's transactions.
func (b *Block) Transactions() []*Transaction { return b.body.Transactions }

// Uncles returns the block's uncle headers.
func (b *Block) Uncles() []*Header { return b.body.Uncles }

// Withdrawals returns the block's withdrawals.
func (b *Block) Withdrawals() []*Withdrawal { return b.body.Withdrawals }

// Number returns the block number.
func (b *Block) Number() *big.Int {
	if b.header.Number == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(b.header.Number)
}

// NumberU64 returns the block number as uint64.
func (b *Block) NumberU64() uint64 { return b.header.NumberU64() }

// GasLimit returns the gas limit of the block.
func (b *Block) GasLimit() uint64 { return b.header.GasLimit }

// Time returns the block timestamp.
func (b *Block) Time() uint64 { return b.header.Time }

// BaseFee returns the block base fee.
func (b *Block) BaseFee() *uint256.Int {
	if b.header.BaseFee == nil {
		return nil
	}
	return new(uint256.Int).Set(b.header.BaseFee)
}

// ParentHash returns the parent block hash.
func (b *Block) ParentHash() Hash { return b.header.ParentHash }

// TxHash returns the transactions root hash.
func (b *Block) TxHash() Hash { return b.header.TxHash }

// UncleHash returns the uncle hash.
func (b *Block) UncleHash() Hash { return b.header.UncleHash }

// Coinbase returns the block coinbase address.
func (b *Block) Coinbase() Address { return b.header.Coinbase }

// PreStateRoot returns the deferred pre-state root carried by the header.
func (b *Block) PreStateRoot() Hash { return b.header.PreStateRoot }

// Hash returns the keccak256 hash of the block header.
func (b *Block) Hash() Hash {
	if cached := b.hash.Load(); cached != nil {
		return *cached
	}
	h := b.header.Hash()
	b.hash.Store(&h)
	return h
}
