package core

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/eth2030/delayed/core/state"
	"github.com/eth2030/delayed/core/types"
)

// ErrUnsupportedTarget is the transfer interpreter's captured error for
// anything that would need bytecode. It lives inside a transaction's result
// and never invalidates the block.
var ErrUnsupportedTarget = errors.New("bytecode execution not supported by transfer interpreter")

// BlockEnv is the per-block environment an interpreter may read.
type BlockEnv struct {
	Coinbase types.Address
	Number   uint64
	Time     uint64
	BaseFee  *uint256.Int
	BlobFee  *uint256.Int
	Random   types.Hash
}

// ExecutionResult is what executing one transaction yields. Err is a
// captured outcome (revert, out of gas), not a processing failure; the
// engine records it in the receipt and moves on.
type ExecutionResult struct {
	GasUsed    uint64
	Logs       []*types.Log
	ReturnData []byte
	Err        error
}

// Failed reports whether the transaction's execution ended in a captured
// error.
func (r *ExecutionResult) Failed() bool { return r.Err != nil }

// Interpreter executes a single transaction's payload against state. The
// engine has already established that the sender can afford the worst-case
// fee and that gasBudget covers tx.Gas(), so implementations charge fees
// and apply effects without re-checking affordability.
type Interpreter interface {
	Execute(env *BlockEnv, tx *types.Transaction, sender types.Address, st state.StateDB, gasBudget uint64) *ExecutionResult
}

// TransferInterpreter is the reference interpreter: it settles fees and
// plain value transfers and captures an error for anything that would need
// bytecode. It keeps the engine's accounting fully exercisable without an
// opcode machine.
type TransferInterpreter struct{}

// NewTransferInterpreter creates the reference interpreter.
func NewTransferInterpreter() *TransferInterpreter {
	return &TransferInterpreter{}
}

// Execute settles one transaction. Effects applied atomically by the
// caller's snapshot discipline:
//   - sender nonce is bumped
//   - sender pays gas_used * (base_fee + tip) plus blob fees; the base and
//     blob portions are burned, the tip is credited by the engine
//   - value moves to the recipient for plain-account targets
//
// Contract creation or a call into an account with real bytecode consumes
// the full gas budget and yields a captured error.
func (ti *TransferInterpreter) Execute(env *BlockEnv, tx *types.Transaction, sender types.Address, st state.StateDB, gasBudget uint64) *ExecutionResult {
	st.SetNonce(sender, st.GetNonce(sender)+1)

	tip := EffectiveTip(tx, env.BaseFee)
	gasPrice := new(uint256.Int).Add(env.BaseFee, tip)

	chargeGas := func(gasUsed uint64) {
		fee := new(uint256.Int).Mul(gasPrice, uint256.NewInt(gasUsed))
		if blobGas := BlobGas(tx); blobGas > 0 {
			fee.Add(fee, new(uint256.Int).Mul(env.BlobFee, uint256.NewInt(blobGas)))
		}
		st.SubBalance(sender, fee)
	}

	if tx.To() == nil {
		chargeGas(gasBudget)
		return &ExecutionResult{GasUsed: gasBudget, Err: ErrUnsupportedTarget}
	}
	to := *tx.To()
	if code := st.GetCode(to); len(code) > 0 {
		if _, isDelegation := types.ParseDelegation(code); !isDelegation {
			chargeGas(gasBudget)
			return &ExecutionResult{GasUsed: gasBudget, Err: ErrUnsupportedTarget}
		}
	}

	gasUsed := InclusionGas(tx)
	if gasUsed > gasBudget {
		gasUsed = gasBudget
	}
	chargeGas(gasUsed)
	if !tx.Value().IsZero() {
		st.SubBalance(sender, tx.Value())
		st.AddBalance(to, tx.Value())
	}
	return &ExecutionResult{GasUsed: gasUsed}
}

var _ Interpreter = (*TransferInterpreter)(nil)
