package core

import (
	"crypto/sha256"
	"errors"
	"fmt"

	goethkzg "github.com/crate-crypto/go-eth-kzg"

	"github.com/eth2030/delayed/core/types"
)

// Blob sidecar validation errors.
var (
	ErrSidecarCountMismatch   = errors.New("sidecar blob count does not match block blob hashes")
	ErrSidecarHashMismatch    = errors.New("versioned hash does not match commitment")
	ErrSidecarProofInvalid    = errors.New("blob KZG proof verification failed")
	ErrSidecarLengthsMismatch = errors.New("sidecar blobs, commitments and proofs differ in length")
)

// BlobSidecar carries the blob payloads, commitments and proofs gossiped
// alongside a block. The block itself commits only to versioned hashes;
// the sidecar is validated statically, before execution.
type BlobSidecar struct {
	Blobs       []goethkzg.Blob
	Commitments []goethkzg.KZGCommitment
	Proofs      []goethkzg.KZGProof
}

// BlobVerifier checks blob sidecars against the versioned hashes a block's
// blob transactions commit to, using the Ethereum KZG ceremony setup.
type BlobVerifier struct {
	ctx *goethkzg.Context
}

// NewBlobVerifier initializes a verifier with the embedded trusted setup.
func NewBlobVerifier() (*BlobVerifier, error) {
	ctx, err := goethkzg.NewContext4096Secure()
	if err != nil {
		return nil, fmt.Errorf("kzg context: %w", err)
	}
	return &BlobVerifier{ctx: ctx}, nil
}

// KZGToVersionedHash maps a commitment to the versioned hash a blob
// transaction carries: sha256(commitment) with the first byte replaced by
// the version.
func KZGToVersionedHash(commitment goethkzg.KZGCommitment) types.Hash {
	h := sha256.Sum256(commitment[:])
	h[0] = BlobTxHashVersion
	return types.Hash(h)
}

// VerifySidecar checks the sidecar against the block: the i-th versioned
// hash across the block's blob transactions (in block order) must bind the
// i-th commitment, and every blob proof must verify.
func (v *BlobVerifier) VerifySidecar(block *types.Block, sidecar *BlobSidecar) error {
	if len(sidecar.Blobs) != len(sidecar.Commitments) || len(sidecar.Blobs) != len(sidecar.Proofs) {
		return fmt.Errorf("%w: %d blobs, %d commitments, %d proofs",
			ErrSidecarLengthsMismatch, len(sidecar.Blobs), len(sidecar.Commitments), len(sidecar.Proofs))
	}

	var hashes []types.Hash
	for _, tx := range block.Transactions() {
		hashes = append(hashes, tx.BlobHashes()...)
	}
	if len(hashes) != len(sidecar.Blobs) {
		return fmt.Errorf("%w: block has %d, sidecar has %d",
			ErrSidecarCountMismatch, len(hashes), len(sidecar.Blobs))
	}

	for i := range sidecar.Blobs {
		if got := KZGToVersionedHash(sidecar.Commitments[i]); got != hashes[i] {
			return fmt.Errorf("%w: blob %d: want %s, commitment binds %s",
				ErrSidecarHashMismatch, i, hashes[i], got)
		}
		if err := v.ctx.VerifyBlobKZGProof(&sidecar.Blobs[i], sidecar.Commitments[i], sidecar.Proofs[i]); err != nil {
			return fmt.Errorf("%w: blob %d: %v", ErrSidecarProofInvalid, i, err)
		}
	}
	return nil
}
