package types

import (
	"sync/atomic"

	"github.com/holiman/uint256"
)

// Transaction type identifiers. The chain supports the legacy gas-price
// variant, the fee-market variant, the blob-carrying variant, and the
// set-code (delegation) variant.
const (
	LegacyTxType     = 0x00
	DynamicFeeTxType = 0x02
	BlobTxType       = 0x03
	SetCodeTxType    = 0x04
)

// GasPerBlob is the blob gas consumed by each blob (2^17).
const GasPerBlob = 131072

// Transaction is an immutable, sender-signed instruction. Only derived
// quantities (sender address, hashes) are cached on it after decoding.
type Transaction struct {
	inner TxData
	hash  atomic.Pointer[Hash]
	from  atomic.Pointer[Address] // cached sender address
}

// NewTransaction creates a transaction wrapping a copy of the inner data.
func NewTransaction(inner TxData) *Transaction {
	return &Transaction{inner: inner.copy()}
}

// SetSender caches the sender address on the transaction.
func (tx *Transaction) SetSender(addr Address) {
	a := addr
	tx.from.Store(&a)
}

// Sender returns the cached sender address, or nil if not yet recovered.
func (tx *Transaction) Sender() *Address {
	return tx.from.Load()
}

// TxData is the underlying data of a transaction variant.
type TxData interface {
	txType() byte
	chainID() *uint256.Int
	accessList() AccessList
	data() []byte
	gas() uint64
	gasPrice() *uint256.Int
	gasTipCap() *uint256.Int
	gasFeeCap() *uint256.Int
	value() *uint256.Int
	nonce() uint64
	to() *Address
	rawSignature() (v byte, r, s *uint256.Int)

	copy() TxData
}

// AccessList is a list of address-slot pairs declared by a transaction.
type AccessList []AccessTuple

// AccessTuple is a single address and its declared storage slots.
type AccessTuple struct {
	Address     Address
	StorageKeys []Hash
}

// Authorization is a set-code authorization entry.
type Authorization struct {
	ChainID *uint256.Int
	Address Address
	Nonce   uint64
	V       byte
	R, S    *uint256.Int
}

// LegacyTx is the pre-fee-market transaction: a single gas price.
type LegacyTx struct {
	Nonce    uint64
	GasPrice *uint256.Int
	Gas      uint64
	To       *Address
	Value    *uint256.Int
	Data     []byte
	V        byte
	R, S     *uint256.Int
	ChainID  *uint256.Int
}

func (tx *LegacyTx) txType() byte              { return LegacyTxType }
func (tx *LegacyTx) chainID() *uint256.Int     { return tx.ChainID }
func (tx *LegacyTx) accessList() AccessList    { return nil }
func (tx *LegacyTx) data() []byte              { return tx.Data }
func (tx *LegacyTx) gas() uint64               { return tx.Gas }
func (tx *LegacyTx) gasPrice() *uint256.Int    { return tx.GasPrice }
func (tx *LegacyTx) gasTipCap() *uint256.Int   { return tx.GasPrice }
func (tx *LegacyTx) gasFeeCap() *uint256.Int   { return tx.GasPrice }
func (tx *LegacyTx) value() *uint256.Int       { return tx.Value }
func (tx *LegacyTx) nonce() uint64             { return tx.Nonce }
func (tx *LegacyTx) to() *Address              { return tx.To }
func (tx *LegacyTx) rawSignature() (byte, *uint256.Int, *uint256.Int) {
	return tx.V, tx.R, tx.S
}
func (tx *LegacyTx) copy() TxData {
	return &LegacyTx{
		Nonce:    tx.Nonce,
		GasPrice: copyU256(tx.GasPrice),
		Gas:      tx.Gas,
		To:       copyAddressPtr(tx.To),
		Value:    copyU256(tx.Value),
		Data:     copyBytes(tx.Data),
		V:        tx.V,
		R:        copyU256(tx.R),
		S:        copyU256(tx.S),
		ChainID:  copyU256(tx.ChainID),
	}
}

// DynamicFeeTx is the fee-market transaction: max fee and priority fee caps.
type DynamicFeeTx struct {
	ChainID    *uint256.Int
	Nonce      uint64
	GasTipCap  *uint256.Int // max priority fee per gas
	GasFeeCap  *uint256.Int // max fee per gas
	Gas        uint64
	To         *Address
	Value      *uint256.Int
	Data       []byte
	AccessList AccessList
	V          byte
	R, S       *uint256.Int
}

func (tx *DynamicFeeTx) txType() byte            { return DynamicFeeTxType }
func (tx *DynamicFeeTx) chainID() *uint256.Int   { return tx.ChainID }
func (tx *DynamicFeeTx) accessList() AccessList  { return tx.AccessList }
func (tx *DynamicFeeTx) data() []byte            { return tx.Data }
func (tx *DynamicFeeTx) gas() uint64             { return tx.Gas }
func (tx *DynamicFeeTx) gasPrice() *uint256.Int  { return tx.GasFeeCap }
func (tx *DynamicFeeTx) gasTipCap() *uint256.Int { return tx.GasTipCap }
func (tx *DynamicFeeTx) gasFeeCap() *uint256.Int { return tx.GasFeeCap }
func (tx *DynamicFeeTx) value() *uint256.Int     { return tx.Value }
func (tx *DynamicFeeTx) nonce() uint64           { return tx.Nonce }
func (tx *DynamicFeeTx) to() *Address            { return tx.To }
func (tx *DynamicFeeTx) rawSignature() (byte, *uint256.Int, *uint256.Int) {
	return tx.V, tx.R, tx.S
}
func (tx *DynamicFeeTx) copy() TxData {
	return &DynamicFeeTx{
		ChainID:    copyU256(tx.ChainID),
		Nonce:      tx.Nonce,
		GasTipCap:  copyU256(tx.GasTipCap),
		GasFeeCap:  copyU256(tx.GasFeeCap),
		Gas:        tx.Gas,
		To:         copyAddressPtr(tx.To),
		Value:      copyU256(tx.Value),
		Data:       copyBytes(tx.Data),
		AccessList: copyAccessList(tx.AccessList),
		V:          tx.V,
		R:          copyU256(tx.R),
		S:          copyU256(tx.S),
	}
}

// BlobTx is the blob-carrying transaction. It references blob data by
// versioned hash; the blobs themselves travel in a sidecar.
type BlobTx struct {
	ChainID    *uint256.Int
	Nonce      uint64
	GasTipCap  *uint256.Int
	GasFeeCap  *uint256.Int
	Gas        uint64
	To         Address // blob txs cannot create contracts
	Value      *uint256.Int
	Data       []byte
	AccessList AccessList
	BlobFeeCap *uint256.Int // max fee per blob gas
	BlobHashes []Hash
	V          byte
	R, S       *uint256.Int
}

func (tx *BlobTx) txType() byte            { return BlobTxType }
func (tx *BlobTx) chainID() *uint256.Int   { return tx.ChainID }
func (tx *BlobTx) accessList() AccessList  { return tx.AccessList }
func (tx *BlobTx) data() []byte            { return tx.Data }
func (tx *BlobTx) gas() uint64             { return tx.Gas }
func (tx *BlobTx) gasPrice() *uint256.Int  { return tx.GasFeeCap }
func (tx *BlobTx) gasTipCap() *uint256.Int { return tx.GasTipCap }
func (tx *BlobTx) gasFeeCap() *uint256.Int { return tx.GasFeeCap }
func (tx *BlobTx) value() *uint256.Int     { return tx.Value }
func (tx *BlobTx) nonce() uint64           { return tx.Nonce }
func (tx *BlobTx) to() *Address            { addr := tx.To; return &addr }
func (tx *BlobTx) rawSignature() (byte, *uint256.Int, *uint256.Int) {
	return tx.V, tx.R, tx.S
}
func (tx *BlobTx) copy() TxData {
	cpy := &BlobTx{
		ChainID:    copyU256(tx.ChainID),
		Nonce:      tx.Nonce,
		GasTipCap:  copyU256(tx.GasTipCap),
		GasFeeCap:  copyU256(tx.GasFeeCap),
		Gas:        tx.Gas,
		To:         tx.To,
		Value:      copyU256(tx.Value),
		Data:       copyBytes(tx.Data),
		AccessList: copyAccessList(tx.AccessList),
		BlobFeeCap: copyU256(tx.BlobFeeCap),
		V:          tx.V,
		R:          copyU256(tx.R),
		S:          copyU256(tx.S),
	}
	if tx.BlobHashes != nil {
		cpy.BlobHashes = make([]Hash, len(tx.BlobHashes))
		copy(cpy.BlobHashes, tx.BlobHashes)
	}
	return cpy
}

// SetCodeTx is the delegation transaction: it carries authorizations that
// install delegation designators on the authorizing accounts.
type SetCodeTx struct {
	ChainID    *uint256.Int
	Nonce      uint64
	GasTipCap  *uint256.Int
	GasFeeCap  *uint256.Int
	Gas        uint64
	To         Address
	Value      *uint256.Int
	Data       []byte
	AccessList AccessList
	AuthList   []Authorization
	V          byte
	R, S       *uint256.Int
}

func (tx *SetCodeTx) txType() byte            { return SetCodeTxType }
func (tx *SetCodeTx) chainID() *uint256.Int   { return tx.ChainID }
func (tx *SetCodeTx) accessList() AccessList  { return tx.AccessList }
func (tx *SetCodeTx) data() []byte            { return tx.Data }
func (tx *SetCodeTx) gas() uint64             { return tx.Gas }
func (tx *SetCodeTx) gasPrice() *uint256.Int  { return tx.GasFeeCap }
func (tx *SetCodeTx) gasTipCap() *uint256.Int { return tx.GasTipCap }
func (tx *SetCodeTx) gasFeeCap() *uint256.Int { return tx.GasFeeCap }
func (tx *SetCodeTx) value() *uint256.Int     { return tx.Value }
func (tx *SetCodeTx) nonce() uint64           { return tx.Nonce }
func (tx *SetCodeTx) to() *Address            { addr := tx.To; return &addr }
func (tx *SetCodeTx) rawSignature() (byte, *uint256.Int, *uint256.Int) {
	return tx.V, tx.R, tx.S
}
func (tx *SetCodeTx) copy() TxData {
	cpy := &SetCodeTx{
		ChainID:    copyU256(tx.ChainID),
		Nonce:      tx.Nonce,
		GasTipCap:  copyU256(tx.GasTipCap),
		GasFeeCap:  copyU256(tx.GasFeeCap),
		Gas:        tx.Gas,
		To:         tx.To,
		Value:      copyU256(tx.Value),
		Data:       copyBytes(tx.Data),
		AccessList: copyAccessList(tx.AccessList),
		V:          tx.V,
		R:          copyU256(tx.R),
		S:          copyU256(tx.S),
	}
	if tx.AuthList != nil {
		cpy.AuthList = make([]Authorization, len(tx.AuthList))
		for i, auth := range tx.AuthList {
			cpy.AuthList[i] = Authorization{
				ChainID: copyU256(auth.ChainID),
				Address: auth.Address,
				Nonce:   auth.Nonce,
				V:       auth.V,
				R:       copyU256(auth.R),
				S:       copyU256(auth.S),
			}
		}
	}
	return cpy
}

// Type returns the transaction type byte.
func (tx *Transaction) Type() uint8 { return tx.inner.txType() }

// ChainID returns the chain id the transaction was signed for, nil for
// pre-replay-protection legacy transactions.
func (tx *Transaction) ChainID() *uint256.Int { return tx.inner.chainID() }

// AccessList returns the declared access list.
func (tx *Transaction) AccessList() AccessList { return tx.inner.accessList() }

// Data returns the input data of the transaction.
func (tx *Transaction) Data() []byte { return tx.inner.data() }

// Gas returns the gas limit of the transaction.
func (tx *Transaction) Gas() uint64 { return tx.inner.gas() }

// GasPrice returns the gas price (fee cap for fee-market variants).
func (tx *Transaction) GasPrice() *uint256.Int { return tx.inner.gasPrice() }

// GasTipCap returns the max priority fee per gas.
func (tx *Transaction) GasTipCap() *uint256.Int { return tx.inner.gasTipCap() }

// GasFeeCap returns the max fee per gas.
func (tx *Transaction) GasFeeCap() *uint256.Int { return tx.inner.gasFeeCap() }

// Value returns the value transfer amount.
func (tx *Transaction) Value() *uint256.Int { return tx.inner.value() }

// Nonce returns the sender nonce.
func (tx *Transaction) Nonce() uint64 { return tx.inner.nonce() }

// To returns the recipient address, or nil for contract creation.
func (tx *Transaction) To() *Address { return tx.inner.to() }

// RawSignatureValues returns the signature triple.
func (tx *Transaction) RawSignatureValues() (v byte, r, s *uint256.Int) {
	return tx.inner.rawSignature()
}

// AuthList returns the authorization list of a set-code transaction,
// nil for every other variant.
func (tx *Transaction) AuthList() []Authorization {
	if sc, ok := tx.inner.(*SetCodeTx); ok {
		return sc.AuthList
	}
	return nil
}

// BlobFeeCap returns the max fee per blob gas of a blob transaction.
func (tx *Transaction) BlobFeeCap() *uint256.Int {
	if blob, ok := tx.inner.(*BlobTx); ok {
		return blob.BlobFeeCap
	}
	return nil
}

// BlobHashes returns the versioned hashes of a blob transaction.
func (tx *Transaction) BlobHashes() []Hash {
	if blob, ok := tx.inner.(*BlobTx); ok {
		return blob.BlobHashes
	}
	return nil
}

// BlobGas returns the blob gas consumed by the transaction, zero for
// non-blob variants.
func (tx *Transaction) BlobGas() uint64 {
	return GasPerBlob * uint64(len(tx.BlobHashes()))
}

// Hash returns the keccak256 hash of the canonical transaction encoding,
// caching on first call.
func (tx *Transaction) Hash() Hash {
	if h := tx.hash.Load(); h != nil {
		return *h
	}
	h := tx.hashEncoded()
	tx.hash.Store(&h)
	return h
}

// Helpers.

func copyU256(v *uint256.Int) *uint256.Int {
	if v == nil {
		return nil
	}
	return new(uint256.Int).Set(v)
}

func copyAddressPtr(a *Address) *Address {
	if a == nil {
		return nil
	}
	cpy := *a
	return &cpy
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	cpy := make([]byte, len(b))
	copy(cpy, b)
	return cpy
}

func copyAccessList(al AccessList) AccessList {
	if al == nil {
		return nil
	}
	cpy := make(AccessList, len(al))
	for i, tuple := range al {
		cpy[i] = AccessTuple{
			Address:     tuple.Address,
			StorageKeys: make([]Hash, len(tuple.StorageKeys)),
		}
		copy(cpy[i].StorageKeys, tuple.StorageKeys)
	}
	return cpy
}
