package core

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/eth2030/delayed/core/types"
)

// Static transaction validation errors. All of them are block-fatal when
// surfaced through ValidateBlock: a statically invalid transaction is never
// a skip candidate.
var (
	ErrInvalidSignature         = errors.New("invalid transaction signature")
	ErrTipAboveFeeCap           = errors.New("max priority fee exceeds max fee")
	ErrFeeTooLow                = errors.New("max fee below base fee")
	ErrBlobFeeTooLow            = errors.New("max blob fee below blob base fee")
	ErrBlobTxNoBlobHashes       = errors.New("blob transaction without blob hashes")
	ErrBlobTxInvalidHashVersion = errors.New("blob hash has invalid version byte")
	ErrEmptyAuthList            = errors.New("set-code transaction without authorizations")
)

// CheckStatic validates a single transaction against content and the
// current block's fee parameters only. It never reads account state, so
// the result is decidable before execution and identical on every retry.
// Returns the recovered sender on success.
func CheckStatic(tx *types.Transaction, signer types.Signer, baseFee, blobFee *uint256.Int) (types.Address, error) {
	sender, err := signer.Sender(tx)
	if err != nil {
		return types.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	// Fee sufficiency. Legacy transactions alias tip cap and fee cap to
	// the gas price, so the same two comparisons cover every variant.
	if tx.GasTipCap().Cmp(tx.GasFeeCap()) > 0 {
		return types.Address{}, fmt.Errorf("%w: tip %v, cap %v",
			ErrTipAboveFeeCap, tx.GasTipCap(), tx.GasFeeCap())
	}
	if tx.GasFeeCap().Cmp(baseFee) < 0 {
		return types.Address{}, fmt.Errorf("%w: cap %v, base fee %v",
			ErrFeeTooLow, tx.GasFeeCap(), baseFee)
	}

	switch tx.Type() {
	case types.BlobTxType:
		hashes := tx.BlobHashes()
		if len(hashes) == 0 {
			return types.Address{}, ErrBlobTxNoBlobHashes
		}
		for i, h := range hashes {
			if h[0] != BlobTxHashVersion {
				return types.Address{}, fmt.Errorf("%w: hash %d has version 0x%02x",
					ErrBlobTxInvalidHashVersion, i, h[0])
			}
		}
		if tx.BlobFeeCap().Cmp(blobFee) < 0 {
			return types.Address{}, fmt.Errorf("%w: cap %v, blob base fee %v",
				ErrBlobFeeTooLow, tx.BlobFeeCap(), blobFee)
		}
	case types.SetCodeTxType:
		if len(tx.AuthList()) == 0 {
			return types.Address{}, ErrEmptyAuthList
		}
	}

	return sender, nil
}
