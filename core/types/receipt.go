package types

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// Receipt status values.
const (
	ReceiptStatusFailed     = uint64(0)
	ReceiptStatusSuccessful = uint64(1)
)

// Receipt represents the result of a transaction inside an executed block.
// A skipped transaction still produces a receipt: it carries no logs, a
// failed status, and a cumulative gas that advances by the transaction's
// inclusion gas only.
type Receipt struct {
	// Consensus fields
	Type              uint8
	Status            uint64
	CumulativeGasUsed uint64
	Bloom             Bloom
	Logs              []*Log

	// Skip marker. Skipped receipts are a local observability aid; only
	// the consensus fields above feed the receipts root.
	Skipped    bool
	SkipReason string

	// Derived fields
	TxHash            Hash
	GasUsed           uint64
	EffectiveGasPrice *uint256.Int

	// Blob transaction fields
	BlobGasUsed  uint64
	BlobGasPrice *uint256.Int

	// Inclusion information
	BlockHash        Hash
	BlockNumber      uint64
	TransactionIndex uint
}

// NewReceipt creates a new receipt with the given status and cumulative gas.
func NewReceipt(txType uint8, status uint64, cumulativeGasUsed uint64) *Receipt {
	return &Receipt{
		Type:              txType,
		Status:            status,
		CumulativeGasUsed: cumulativeGasUsed,
	}
}

// Succeeded reports whether the receipt indicates a successful transaction.
func (r *Receipt) Succeeded() bool {
	return r.Status == ReceiptStatusSuccessful
}

// EncodeRLP returns the canonical consensus encoding of the receipt:
// a bare RLP list for legacy receipts, a type-prefixed list otherwise.
// This is the encoding the receipts root commits to.
func (r *Receipt) EncodeRLP() ([]byte, error) {
	fields := []interface{}{
		r.Status,
		r.CumulativeGasUsed,
		r.Bloom,
		encodeLogs(r.Logs),
	}
	if r.Type == LegacyTxType {
		return rlp.EncodeToBytes(fields)
	}
	return encodeTyped(r.Type, fields)
}

func encodeLogs(logs []*Log) []interface{} {
	out := make([]interface{}, len(logs))
	for i, log := range logs {
		out[i] = []interface{}{log.Address, log.Topics, log.Data}
	}
	return out
}

// DeriveReceiptFields populates the derived fields on a list of receipts
// after block execution: block context, per-transaction hashes, and global
// log indices.
func DeriveReceiptFields(receipts []*Receipt, blockHash Hash, blockNumber uint64, txs []*Transaction) {
	var logIndex uint

	for i, receipt := range receipts {
		receipt.BlockHash = blockHash
		receipt.BlockNumber = blockNumber
		receipt.TransactionIndex = uint(i)

		if i < len(txs) {
			receipt.TxHash = txs[i].Hash()
		}

		for _, log := range receipt.Logs {
			log.BlockHash = blockHash
			log.BlockNumber = blockNumber
			log.TxIndex = uint(i)
			log.Index = logIndex
			if i < len(txs) {
				log.TxHash = txs[i].Hash()
			}
			logIndex++
		}
	}
}
