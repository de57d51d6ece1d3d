package types

import (
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// Canonical transaction encoding. Legacy transactions encode as a bare RLP
// list; typed transactions as a one-byte type prefix followed by the RLP
// list of their payload. This encoding feeds both the transaction hash and
// the transactions-root recomputation, so it must be deterministic.

// EncodeRLP returns the canonical encoding of the transaction, signature
// included.
func (tx *Transaction) EncodeRLP() ([]byte, error) {
	switch inner := tx.inner.(type) {
	case *LegacyTx:
		return rlp.EncodeToBytes([]interface{}{
			inner.Nonce,
			inner.GasPrice,
			inner.Gas,
			toBytes(inner.To),
			inner.Value,
			inner.Data,
			legacyWireV(inner),
			inner.R,
			inner.S,
		})
	case *DynamicFeeTx:
		return encodeTyped(DynamicFeeTxType, []interface{}{
			inner.ChainID,
			inner.Nonce,
			inner.GasTipCap,
			inner.GasFeeCap,
			inner.Gas,
			toBytes(inner.To),
			inner.Value,
			inner.Data,
			inner.AccessList,
			inner.V,
			inner.R,
			inner.S,
		})
	case *BlobTx:
		return encodeTyped(BlobTxType, []interface{}{
			inner.ChainID,
			inner.Nonce,
			inner.GasTipCap,
			inner.GasFeeCap,
			inner.Gas,
			inner.To,
			inner.Value,
			inner.Data,
			inner.AccessList,
			inner.BlobFeeCap,
			inner.BlobHashes,
			inner.V,
			inner.R,
			inner.S,
		})
	case *SetCodeTx:
		return encodeTyped(SetCodeTxType, []interface{}{
			inner.ChainID,
			inner.Nonce,
			inner.GasTipCap,
			inner.GasFeeCap,
			inner.Gas,
			inner.To,
			inner.Value,
			inner.Data,
			inner.AccessList,
			inner.AuthList,
			inner.V,
			inner.R,
			inner.S,
		})
	default:
		return nil, errUnsupportedTxType
	}
}

// SigningHash returns the digest the sender signed, parameterized by the
// chain id for replay protection. A legacy transaction's protection status
// is a property of the transaction itself: one signed before replay
// protection existed commits to six fields only, so the EIP-155 suffix is
// keyed off the transaction's own chain id, never the caller's.
func (tx *Transaction) SigningHash(chainID uint64) Hash {
	switch inner := tx.inner.(type) {
	case *LegacyTx:
		fields := []interface{}{
			inner.Nonce,
			inner.GasPrice,
			inner.Gas,
			toBytes(inner.To),
			inner.Value,
			inner.Data,
		}
		if inner.ChainID != nil && !inner.ChainID.IsZero() {
			fields = append(fields, inner.ChainID.Uint64(), uint(0), uint(0))
		}
		return rlpHash(fields)
	case *DynamicFeeTx:
		return typedHash(DynamicFeeTxType, []interface{}{
			uint256.NewInt(chainID),
			inner.Nonce,
			inner.GasTipCap,
			inner.GasFeeCap,
			inner.Gas,
			toBytes(inner.To),
			inner.Value,
			inner.Data,
			inner.AccessList,
		})
	case *BlobTx:
		return typedHash(BlobTxType, []interface{}{
			uint256.NewInt(chainID),
			inner.Nonce,
			inner.GasTipCap,
			inner.GasFeeCap,
			inner.Gas,
			inner.To,
			inner.Value,
			inner.Data,
			inner.AccessList,
			inner.BlobFeeCap,
			inner.BlobHashes,
		})
	case *SetCodeTx:
		return typedHash(SetCodeTxType, []interface{}{
			uint256.NewInt(chainID),
			inner.Nonce,
			inner.GasTipCap,
			inner.GasFeeCap,
			inner.Gas,
			inner.To,
			inner.Value,
			inner.Data,
			inner.AccessList,
			inner.AuthList,
		})
	default:
		return Hash{}
	}
}

// hashEncoded computes the keccak256 hash of the canonical encoding.
func (tx *Transaction) hashEncoded() Hash {
	enc, err := tx.EncodeRLP()
	if err != nil {
		return Hash{}
	}
	return BytesToHash(crypto.Keccak256(enc))
}

// legacyWireV maps a legacy transaction's recovery id to its wire V value:
// 27/28 without replay protection, chainID*2+35+recid with it.
func legacyWireV(inner *LegacyTx) uint64 {
	if inner.ChainID == nil || inner.ChainID.IsZero() {
		return 27 + uint64(inner.V)
	}
	return inner.ChainID.Uint64()*2 + 35 + uint64(inner.V)
}

func encodeTyped(txType byte, fields []interface{}) ([]byte, error) {
	payload, err := rlp.EncodeToBytes(fields)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 1+len(payload))
	out[0] = txType
	copy(out[1:], payload)
	return out, nil
}

func typedHash(txType byte, fields []interface{}) Hash {
	payload, err := rlp.EncodeToBytes(fields)
	if err != nil {
		return Hash{}
	}
	return BytesToHash(crypto.Keccak256([]byte{txType}, payload))
}

func rlpHash(v interface{}) Hash {
	enc, err := rlp.EncodeToBytes(v)
	if err != nil {
		return Hash{}
	}
	return BytesToHash(crypto.Keccak256(enc))
}

// toBytes encodes an optional recipient: empty string for contract creation.
func toBytes(to *Address) []byte {
	if to == nil {
		return []byte{}
	}
	return to[:]
}
