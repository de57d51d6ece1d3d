package types

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// HeaderSigningPrefix is the one-byte domain separator for header
// signatures. It is distinct from every transaction type byte, so a header
// signature can never be replayed as a transaction signature or vice versa.
const HeaderSigningPrefix byte = 0x07

// ErrMalformedHeaderSignature is returned when the header's signature
// triple is missing, non-canonical, or does not recover to a public key.
var ErrMalformedHeaderSignature = errors.New("malformed header signature")

// SigningDigest computes the hash the coinbase signs: keccak256 of the
// domain prefix followed by the canonical RLP encoding of every header
// field except the signature triple. Any mutation of any field, immediate
// or deferred, changes the digest.
func SigningDigest(h *Header) Hash {
	enc, err := rlp.EncodeToBytes(headerFields(h, false))
	if err != nil {
		return Hash{}
	}
	return BytesToHash(crypto.Keccak256([]byte{HeaderSigningPrefix}, enc))
}

// SignHeader signs the header's signing digest with the given key and
// stores the signature triple on the header. The caller is expected to
// sign with the coinbase's key; the validator enforces that later.
func SignHeader(h *Header, key *ecdsa.PrivateKey) error {
	digest := SigningDigest(h)
	sig, err := crypto.Sign(digest[:], key)
	if err != nil {
		return fmt.Errorf("header signing failed: %w", err)
	}
	h.SigR = new(uint256.Int).SetBytes(sig[:32])
	h.SigS = new(uint256.Int).SetBytes(sig[32:64])
	h.SigV = sig[64]
	return nil
}

// RecoverHeaderSigner recovers the address that signed the header's
// signing digest. A header is authentic iff the recovered address equals
// h.Coinbase; that comparison belongs to the block validator, not here.
func RecoverHeaderSigner(h *Header) (Address, error) {
	if h.SigR == nil || h.SigS == nil {
		return Address{}, ErrMalformedHeaderSignature
	}
	if h.SigV > 1 {
		return Address{}, fmt.Errorf("%w: recovery id %d", ErrMalformedHeaderSignature, h.SigV)
	}
	if !crypto.ValidateSignatureValues(h.SigV, h.SigR.ToBig(), h.SigS.ToBig(), true) {
		return Address{}, ErrMalformedHeaderSignature
	}

	var sig [65]byte
	r := h.SigR.Bytes32()
	s := h.SigS.Bytes32()
	copy(sig[:32], r[:])
	copy(sig[32:64], s[:])
	sig[64] = h.SigV

	digest := SigningDigest(h)
	pub, err := crypto.SigToPub(digest[:], sig[:])
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrMalformedHeaderSignature, err)
	}
	return BytesToAddress(crypto.PubkeyToAddress(*pub).Bytes()), nil
}
