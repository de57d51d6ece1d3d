package core

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"github.com/eth2030/delayed/core/types"
)

func TestCheckStatic(t *testing.T) {
	key := genKey(t)
	sender := addrOf(key)
	signer := types.LatestSigner(TestConfig.ChainID)
	baseFee := uint256.NewInt(1000)
	blobFee := uint256.NewInt(10)
	to := types.HexToAddress("0x1234")

	sign := func(inner types.TxData) *types.Transaction {
		tx, err := types.SignTx(types.NewTransaction(inner), signer, key)
		if err != nil {
			t.Fatal(err)
		}
		return tx
	}

	cases := []struct {
		name string
		tx   *types.Transaction
		want error
	}{
		{
			"valid dynamic fee",
			sign(&types.DynamicFeeTx{
				ChainID:   uint256.NewInt(TestConfig.ChainID),
				GasTipCap: uint256.NewInt(10),
				GasFeeCap: uint256.NewInt(2000),
				Gas:       21000,
				To:        &to,
				Value:     new(uint256.Int),
			}),
			nil,
		},
		{
			"valid legacy",
			sign(&types.LegacyTx{
				GasPrice: uint256.NewInt(2000),
				Gas:      21000,
				To:       &to,
				Value:    new(uint256.Int),
			}),
			nil,
		},
		{
			"unsigned",
			types.NewTransaction(&types.DynamicFeeTx{
				ChainID:   uint256.NewInt(TestConfig.ChainID),
				GasTipCap: uint256.NewInt(10),
				GasFeeCap: uint256.NewInt(2000),
				Gas:       21000,
				To:        &to,
				Value:     new(uint256.Int),
			}),
			ErrInvalidSignature,
		},
		{
			"tip above fee cap",
			sign(&types.DynamicFeeTx{
				ChainID:   uint256.NewInt(TestConfig.ChainID),
				GasTipCap: uint256.NewInt(3000),
				GasFeeCap: uint256.NewInt(2000),
				Gas:       21000,
				To:        &to,
				Value:     new(uint256.Int),
			}),
			ErrTipAboveFeeCap,
		},
		{
			"fee cap below base fee",
			sign(&types.DynamicFeeTx{
				ChainID:   uint256.NewInt(TestConfig.ChainID),
				GasTipCap: uint256.NewInt(1),
				GasFeeCap: uint256.NewInt(999),
				Gas:       21000,
				To:        &to,
				Value:     new(uint256.Int),
			}),
			ErrFeeTooLow,
		},
		{
			"legacy gas price below base fee",
			sign(&types.LegacyTx{
				GasPrice: uint256.NewInt(999),
				Gas:      21000,
				To:       &to,
				Value:    new(uint256.Int),
			}),
			ErrFeeTooLow,
		},
		{
			"blob tx without blob hashes",
			sign(&types.BlobTx{
				ChainID:    uint256.NewInt(TestConfig.ChainID),
				GasTipCap:  uint256.NewInt(10),
				GasFeeCap:  uint256.NewInt(2000),
				Gas:        21000,
				To:         to,
				Value:      new(uint256.Int),
				BlobFeeCap: uint256.NewInt(100),
			}),
			ErrBlobTxNoBlobHashes,
		},
		{
			"blob hash wrong version",
			sign(&types.BlobTx{
				ChainID:    uint256.NewInt(TestConfig.ChainID),
				GasTipCap:  uint256.NewInt(10),
				GasFeeCap:  uint256.NewInt(2000),
				Gas:        21000,
				To:         to,
				Value:      new(uint256.Int),
				BlobFeeCap: uint256.NewInt(100),
				BlobHashes: []types.Hash{{0x02}},
			}),
			ErrBlobTxInvalidHashVersion,
		},
		{
			"blob fee cap below blob base fee",
			sign(&types.BlobTx{
				ChainID:    uint256.NewInt(TestConfig.ChainID),
				GasTipCap:  uint256.NewInt(10),
				GasFeeCap:  uint256.NewInt(2000),
				Gas:        21000,
				To:         to,
				Value:      new(uint256.Int),
				BlobFeeCap: uint256.NewInt(9),
				BlobHashes: []types.Hash{{BlobTxHashVersion}},
			}),
			ErrBlobFeeTooLow,
		},
		{
			"set-code tx without authorizations",
			sign(&types.SetCodeTx{
				ChainID:   uint256.NewInt(TestConfig.ChainID),
				GasTipCap: uint256.NewInt(10),
				GasFeeCap: uint256.NewInt(2000),
				Gas:       60000,
				To:        to,
				Value:     new(uint256.Int),
			}),
			ErrEmptyAuthList,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CheckStatic(tc.tx, signer, baseFee, blobFee)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != sender {
					t.Fatalf("recovered %s, want %s", got, sender)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

// CheckStatic reads nothing but the transaction and the block fee
// parameters; the result never depends on account state.
func TestCheckStaticIgnoresState(t *testing.T) {
	key := genKey(t)
	signer := types.LatestSigner(TestConfig.ChainID)
	to := types.HexToAddress("0x1234")

	// Nonce 99 from an account that does not exist anywhere: still
	// statically valid. Nonce and balance are skip-predicate territory.
	tx, err := types.SignTx(types.NewTransaction(&types.DynamicFeeTx{
		ChainID:   uint256.NewInt(TestConfig.ChainID),
		Nonce:     99,
		GasTipCap: uint256.NewInt(1),
		GasFeeCap: uint256.NewInt(2000),
		Gas:       21000,
		To:        &to,
		Value:     uint256.NewInt(1_000_000),
	}), signer, key)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := CheckStatic(tx, signer, uint256.NewInt(1000), uint256.NewInt(1)); err != nil {
		t.Fatalf("state-dependent condition leaked into static validation: %v", err)
	}
}
