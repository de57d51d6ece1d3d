package core

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/holiman/uint256"

	"github.com/eth2030/delayed/core/types"
)

func transferTx(gas uint64, data []byte, feeCap, tipCap uint64) *types.Transaction {
	to := types.HexToAddress("0x1234")
	return types.NewTransaction(&types.DynamicFeeTx{
		ChainID:   uint256.NewInt(TestConfig.ChainID),
		GasTipCap: uint256.NewInt(tipCap),
		GasFeeCap: uint256.NewInt(feeCap),
		Gas:       gas,
		To:        &to,
		Value:     new(uint256.Int),
		Data:      data,
	})
}

func blobTxWithHashes(n int, feeCap, blobFeeCap uint64) *types.Transaction {
	hashes := make([]types.Hash, n)
	for i := range hashes {
		hashes[i] = types.Hash{BlobTxHashVersion, byte(i)}
	}
	return types.NewTransaction(&types.BlobTx{
		ChainID:    uint256.NewInt(TestConfig.ChainID),
		GasTipCap:  uint256.NewInt(1),
		GasFeeCap:  uint256.NewInt(feeCap),
		Gas:        21000,
		To:         types.HexToAddress("0x1234"),
		Value:      new(uint256.Int),
		BlobFeeCap: uint256.NewInt(blobFeeCap),
		BlobHashes: hashes,
	})
}

func TestCalldataTokens(t *testing.T) {
	cases := []struct {
		data []byte
		want uint64
	}{
		{nil, 0},
		{[]byte{0x00}, 1},
		{[]byte{0x01}, 4},
		{[]byte{0x00, 0x00, 0x01, 0xff}, 10},
		{bytes.Repeat([]byte{0x00}, 100), 100},
		{bytes.Repeat([]byte{0xaa}, 100), 400},
	}
	for _, c := range cases {
		if got := CalldataTokens(c.data); got != c.want {
			t.Errorf("CalldataTokens(%d bytes) = %d, want %d", len(c.data), got, c.want)
		}
	}
}

func TestInclusionGasMonotonic(t *testing.T) {
	if got := InclusionGas(transferTx(21000, nil, 10, 1)); got != TxBaseCost {
		t.Fatalf("empty calldata inclusion gas %d, want %d", got, TxBaseCost)
	}
	prev := uint64(0)
	for n := 0; n <= 256; n += 16 {
		tx := transferTx(100000, bytes.Repeat([]byte{0x01}, n), 10, 1)
		got := InclusionGas(tx)
		if got < TxBaseCost {
			t.Fatalf("inclusion gas %d below base cost", got)
		}
		if n > 0 && got <= prev {
			t.Fatalf("inclusion gas not strictly increasing at %d bytes", n)
		}
		prev = got
	}
}

func TestBlobGas(t *testing.T) {
	if got := BlobGas(transferTx(21000, nil, 10, 1)); got != 0 {
		t.Fatalf("non-blob tx blob gas %d, want 0", got)
	}
	if got := BlobGas(blobTxWithHashes(3, 10, 10)); got != 3*GasPerBlob {
		t.Fatalf("blob gas %d, want %d", got, 3*GasPerBlob)
	}
}

func TestInclusionCost(t *testing.T) {
	tx := blobTxWithHashes(2, 10, 10)
	baseFee := uint256.NewInt(7)
	blobFee := uint256.NewInt(3)

	want := new(uint256.Int).Mul(baseFee, uint256.NewInt(InclusionGas(tx)))
	want.Add(want, new(uint256.Int).Mul(blobFee, uint256.NewInt(2*GasPerBlob)))

	if got := InclusionCost(tx, baseFee, blobFee); got.Cmp(want) != 0 {
		t.Fatalf("inclusion cost %v, want %v", got, want)
	}
}

func TestMaxPossibleFee(t *testing.T) {
	tx := transferTx(50000, nil, 20, 5)
	if got := MaxPossibleFee(tx); got.Uint64() != 50000*20 {
		t.Fatalf("max possible fee %v, want %d", got, 50000*20)
	}

	btx := blobTxWithHashes(1, 20, 3)
	want := uint64(21000*20 + GasPerBlob*3)
	if got := MaxPossibleFee(btx); got.Uint64() != want {
		t.Fatalf("blob max possible fee %v, want %d", got, want)
	}
}

func TestEffectiveTip(t *testing.T) {
	baseFee := uint256.NewInt(100)

	// Tip cap binds.
	if got := EffectiveTip(transferTx(21000, nil, 200, 30), baseFee); got.Uint64() != 30 {
		t.Fatalf("tip %v, want 30", got)
	}
	// Fee cap minus base fee binds.
	if got := EffectiveTip(transferTx(21000, nil, 120, 30), baseFee); got.Uint64() != 20 {
		t.Fatalf("tip %v, want 20", got)
	}
}

func TestCalcBaseFee(t *testing.T) {
	parent := &types.Header{
		Number:   big.NewInt(1),
		GasLimit: 30_000_000,
		BaseFee:  uint256.NewInt(1_000_000_000),
	}
	target := parent.GasLimit / ElasticityMultiplier

	if got := CalcBaseFee(parent, target); got.Cmp(parent.BaseFee) != 0 {
		t.Fatalf("at target: %v, want unchanged %v", got, parent.BaseFee)
	}
	if got := CalcBaseFee(parent, parent.GasLimit); got.Cmp(parent.BaseFee) <= 0 {
		t.Fatalf("full block should raise base fee, got %v", got)
	}
	if got := CalcBaseFee(parent, 0); got.Cmp(parent.BaseFee) >= 0 {
		t.Fatalf("empty block should lower base fee, got %v", got)
	}

	// Full block raises by exactly 1/8.
	if got, want := CalcBaseFee(parent, parent.GasLimit).Uint64(), uint64(1_125_000_000); got != want {
		t.Fatalf("full block base fee %d, want %d", got, want)
	}

	// Floor at MinBaseFee.
	low := &types.Header{Number: big.NewInt(1), GasLimit: 30_000_000, BaseFee: uint256.NewInt(MinBaseFee)}
	if got := CalcBaseFee(low, 0); got.Uint64() != MinBaseFee {
		t.Fatalf("base fee fell below floor: %v", got)
	}

	// Genesis parent without a base fee.
	if got := CalcBaseFee(&types.Header{Number: big.NewInt(0), GasLimit: 30_000_000}, 0); got.Uint64() != InitialBaseFee {
		t.Fatalf("genesis base fee %v, want %d", got, InitialBaseFee)
	}
}

func TestCalcExcessBlobGas(t *testing.T) {
	target := TestConfig.TargetBlobGasPerBlock()

	if got := CalcExcessBlobGas(TestConfig, 0, target-1); got != 0 {
		t.Fatalf("below target: excess %d, want 0", got)
	}
	if got := CalcExcessBlobGas(TestConfig, 0, target+GasPerBlob); got != GasPerBlob {
		t.Fatalf("above target: excess %d, want %d", got, GasPerBlob)
	}
	if got := CalcExcessBlobGas(TestConfig, GasPerBlob, target); got != GasPerBlob {
		t.Fatalf("carried excess %d, want %d", got, GasPerBlob)
	}
}

func TestCalcBlobBaseFee(t *testing.T) {
	if got := CalcBlobBaseFee(0); got.Uint64() != MinBlobBaseFee {
		t.Fatalf("zero excess blob fee %v, want %d", got, MinBlobBaseFee)
	}
	low := CalcBlobBaseFee(GasPerBlob)
	high := CalcBlobBaseFee(100 * GasPerBlob * 10)
	if high.Cmp(low) <= 0 {
		t.Fatalf("blob fee not increasing in excess: %v vs %v", low, high)
	}
}
