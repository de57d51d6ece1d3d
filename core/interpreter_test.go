package core

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"github.com/eth2030/delayed/core/state"
	"github.com/eth2030/delayed/core/types"
)

func testEnv() *BlockEnv {
	return &BlockEnv{
		Coinbase: types.HexToAddress("0xc0"),
		Number:   1,
		Time:     1001,
		BaseFee:  uint256.NewInt(1000),
		BlobFee:  uint256.NewInt(1),
	}
}

func TestTransferInterpreterValueTransfer(t *testing.T) {
	st := state.NewMemoryStateDB()
	sender := types.HexToAddress("0x01")
	recipient := types.HexToAddress("0x02")
	st.AddBalance(sender, new(uint256.Int).Set(oneEther))

	to := recipient
	tx := types.NewTransaction(&types.DynamicFeeTx{
		ChainID:   uint256.NewInt(TestConfig.ChainID),
		GasTipCap: uint256.NewInt(100),
		GasFeeCap: uint256.NewInt(2000),
		Gas:       50000,
		To:        &to,
		Value:     uint256.NewInt(5555),
	})

	result := NewTransferInterpreter().Execute(testEnv(), tx, sender, st, tx.Gas())
	if result.Failed() {
		t.Fatalf("transfer failed: %v", result.Err)
	}
	if want := InclusionGas(tx); result.GasUsed != want {
		t.Errorf("gas used %d, want inclusion gas %d", result.GasUsed, want)
	}
	if got := st.GetBalance(recipient); got.Uint64() != 5555 {
		t.Errorf("recipient balance %v, want 5555", got)
	}
	if got := st.GetNonce(sender); got != 1 {
		t.Errorf("sender nonce %d, want 1", got)
	}

	// Sender paid value plus gas_used * (base_fee + tip).
	fee := result.GasUsed * (1000 + 100)
	want := new(uint256.Int).Sub(oneEther, uint256.NewInt(5555+fee))
	if got := st.GetBalance(sender); got.Cmp(want) != 0 {
		t.Errorf("sender balance %v, want %v", got, want)
	}
}

func TestTransferInterpreterCreateUnsupported(t *testing.T) {
	st := state.NewMemoryStateDB()
	sender := types.HexToAddress("0x01")
	st.AddBalance(sender, new(uint256.Int).Set(oneEther))

	tx := types.NewTransaction(&types.DynamicFeeTx{
		ChainID:   uint256.NewInt(TestConfig.ChainID),
		GasTipCap: uint256.NewInt(0),
		GasFeeCap: uint256.NewInt(1000),
		Gas:       100000,
		To:        nil,
		Value:     uint256.NewInt(1),
		Data:      []byte{0x60, 0x00},
	})

	result := NewTransferInterpreter().Execute(testEnv(), tx, sender, st, tx.Gas())
	if !errors.Is(result.Err, ErrUnsupportedTarget) {
		t.Fatalf("got %v, want ErrUnsupportedTarget", result.Err)
	}
	if result.GasUsed != tx.Gas() {
		t.Errorf("gas used %d, want full budget %d", result.GasUsed, tx.Gas())
	}
	// Nonce still bumps and gas is still charged; value does not move.
	if got := st.GetNonce(sender); got != 1 {
		t.Errorf("sender nonce %d, want 1", got)
	}
	want := new(uint256.Int).Sub(oneEther, uint256.NewInt(100000*1000))
	if got := st.GetBalance(sender); got.Cmp(want) != 0 {
		t.Errorf("sender balance %v, want %v", got, want)
	}
}

func TestTransferInterpreterBytecodeTarget(t *testing.T) {
	st := state.NewMemoryStateDB()
	sender := types.HexToAddress("0x01")
	target := types.HexToAddress("0x02")
	st.AddBalance(sender, new(uint256.Int).Set(oneEther))
	st.SetCode(target, []byte{0x60, 0x00, 0x60, 0x00, 0xf3})

	tx := types.NewTransaction(&types.DynamicFeeTx{
		ChainID:   uint256.NewInt(TestConfig.ChainID),
		GasTipCap: uint256.NewInt(0),
		GasFeeCap: uint256.NewInt(1000),
		Gas:       80000,
		To:        &target,
		Value:     uint256.NewInt(123),
	})

	result := NewTransferInterpreter().Execute(testEnv(), tx, sender, st, tx.Gas())
	if !errors.Is(result.Err, ErrUnsupportedTarget) {
		t.Fatalf("got %v, want ErrUnsupportedTarget", result.Err)
	}
	if result.GasUsed != tx.Gas() {
		t.Errorf("gas used %d, want full budget %d", result.GasUsed, tx.Gas())
	}
	if !st.GetBalance(target).IsZero() {
		t.Error("value moved to an unsupported target")
	}
}

func TestTransferInterpreterDelegatedTarget(t *testing.T) {
	st := state.NewMemoryStateDB()
	sender := types.HexToAddress("0x01")
	target := types.HexToAddress("0x02")
	st.AddBalance(sender, new(uint256.Int).Set(oneEther))
	code := append(append([]byte{}, types.DelegationPrefix...), types.HexToAddress("0xcc").Bytes()...)
	st.SetCode(target, code)

	tx := types.NewTransaction(&types.DynamicFeeTx{
		ChainID:   uint256.NewInt(TestConfig.ChainID),
		GasTipCap: uint256.NewInt(0),
		GasFeeCap: uint256.NewInt(1000),
		Gas:       21000,
		To:        &target,
		Value:     uint256.NewInt(42),
	})

	result := NewTransferInterpreter().Execute(testEnv(), tx, sender, st, tx.Gas())
	if result.Failed() {
		t.Fatalf("delegated target rejected: %v", result.Err)
	}
	if got := st.GetBalance(target); got.Uint64() != 42 {
		t.Errorf("target balance %v, want 42", got)
	}
}
