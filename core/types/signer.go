package types

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

var (
	ErrInvalidTxSignature = errors.New("invalid transaction signature")
	ErrInvalidChainID     = errors.New("invalid chain id for signer")
	errUnsupportedTxType  = errors.New("unsupported transaction type")
)

// Signer hashes transactions for signing and recovers their senders.
type Signer interface {
	// ChainID returns the chain id this signer operates on.
	ChainID() uint64

	// Hash returns the signing hash for the given transaction.
	Hash(tx *Transaction) Hash

	// Sender recovers the sender address from the transaction's signature.
	Sender(tx *Transaction) (Address, error)
}

// ChainSigner recovers senders for all supported transaction variants on a
// single chain. Sender recovery is the opaque secp256k1 capability; the
// delegation to crypto.SigToPub keeps this package free of curve math.
type ChainSigner struct {
	chainID uint64
}

// NewChainSigner creates a signer bound to the given chain id.
func NewChainSigner(chainID uint64) ChainSigner {
	return ChainSigner{chainID: chainID}
}

// LatestSigner returns the canonical signer for the given chain id.
func LatestSigner(chainID uint64) Signer {
	return NewChainSigner(chainID)
}

// ChainID returns the chain id.
func (s ChainSigner) ChainID() uint64 { return s.chainID }

// Hash returns the signing hash for the transaction on this chain.
func (s ChainSigner) Hash(tx *Transaction) Hash {
	return tx.SigningHash(s.chainID)
}

// Sender recovers the sender address from the transaction's signature.
// Typed transactions must carry this signer's chain id; legacy ones may
// omit it (pre-replay-protection) or must match.
func (s ChainSigner) Sender(tx *Transaction) (Address, error) {
	v, r, sv := tx.RawSignatureValues()
	if r == nil || sv == nil {
		return Address{}, ErrInvalidTxSignature
	}
	if v > 1 {
		return Address{}, fmt.Errorf("%w: recovery id %d", ErrInvalidTxSignature, v)
	}
	if txChainID := tx.ChainID(); txChainID != nil && !txChainID.IsZero() {
		if txChainID.Uint64() != s.chainID {
			return Address{}, fmt.Errorf("%w: tx has %d, signer has %d",
				ErrInvalidChainID, txChainID.Uint64(), s.chainID)
		}
	} else if tx.Type() != LegacyTxType {
		// Typed transactions always carry an explicit chain id.
		return Address{}, ErrInvalidChainID
	}
	if !crypto.ValidateSignatureValues(v, r.ToBig(), sv.ToBig(), true) {
		return Address{}, ErrInvalidTxSignature
	}

	var sig [65]byte
	rb := r.Bytes32()
	sb := sv.Bytes32()
	copy(sig[:32], rb[:])
	copy(sig[32:64], sb[:])
	sig[64] = v

	digest := s.Hash(tx)
	pub, err := crypto.SigToPub(digest[:], sig[:])
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidTxSignature, err)
	}
	return BytesToAddress(crypto.PubkeyToAddress(*pub).Bytes()), nil
}

// SignTx signs the transaction's signing hash with the given key and
// returns a copy carrying the signature. Used by tests and block builders.
func SignTx(tx *Transaction, signer Signer, key *ecdsa.PrivateKey) (*Transaction, error) {
	digest := signer.Hash(tx)
	sig, err := crypto.Sign(digest[:], key)
	if err != nil {
		return nil, err
	}
	r := new(uint256.Int).SetBytes(sig[:32])
	sv := new(uint256.Int).SetBytes(sig[32:64])
	v := sig[64]

	inner := tx.inner.copy()
	switch data := inner.(type) {
	case *LegacyTx:
		// The digest above was keyed off the transaction's own chain id, so
		// its protection status must not change here: a legacy transaction
		// built without a chain id signs (and stays) unprotected.
		data.V, data.R, data.S = v, r, sv
	case *DynamicFeeTx:
		data.V, data.R, data.S = v, r, sv
		data.ChainID = uint256.NewInt(signer.ChainID())
	case *BlobTx:
		data.V, data.R, data.S = v, r, sv
		data.ChainID = uint256.NewInt(signer.ChainID())
	case *SetCodeTx:
		data.V, data.R, data.S = v, r, sv
		data.ChainID = uint256.NewInt(signer.ChainID())
	default:
		return nil, errUnsupportedTxType
	}
	return &Transaction{inner: inner}, nil
}

var _ Signer = ChainSigner{}
