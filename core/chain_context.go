package core

import (
	"github.com/holiman/uint256"

	"github.com/eth2030/delayed/core/state"
	"github.com/eth2030/delayed/core/types"
)

// ExecutionOutput is what executing a block produces. Under delayed
// execution these values are not committed by the block's own header; the
// next block carries them in its deferred fields, and its static validator
// checks them against this value.
type ExecutionOutput struct {
	StateRoot    types.Hash
	ReceiptHash  types.Hash
	Bloom        types.Bloom
	RequestsHash types.Hash
	GasUsed      uint64
}

// ChainContext is the single owner of the validation/execution inputs for
// one chain head: the parent header, the parent's execution output, and the
// mutable world state. Both the validator and the engine receive it
// explicitly; there is no process-wide chain state.
type ChainContext struct {
	Config *ChainConfig
	Signer types.Signer
	State  state.StateDB

	// Parent is the current chain head.
	Parent *types.Header

	// ParentOutput is the execution output of Parent, owned here until the
	// child block consumes it as its deferred-field reference.
	ParentOutput *ExecutionOutput
}

// NewChainContext assembles a context for validating and executing the
// child of parent.
func NewChainContext(config *ChainConfig, st state.StateDB, parent *types.Header, parentOutput *ExecutionOutput) *ChainContext {
	return &ChainContext{
		Config:       config,
		Signer:       types.LatestSigner(config.ChainID),
		State:        st,
		Parent:       parent,
		ParentOutput: parentOutput,
	}
}

// BaseFee returns the base fee every child of the current head must carry,
// derived from the parent header and the parent's executed gas.
func (ctx *ChainContext) BaseFee() *uint256.Int {
	return CalcBaseFee(ctx.Parent, ctx.ParentOutput.GasUsed)
}

// ExcessBlobGas returns the excess blob gas a child header must carry.
func (ctx *ChainContext) ExcessBlobGas() uint64 {
	return CalcExcessBlobGas(ctx.Config, ctx.Parent.ExcessBlobGas, ctx.Parent.BlobGasUsed)
}

// BlobBaseFee returns the blob base fee for a child of the current head.
func (ctx *ChainContext) BlobBaseFee() *uint256.Int {
	return CalcBlobBaseFee(ctx.ExcessBlobGas())
}

// Advance moves the context to a new head after the block has been fully
// executed, handing ownership of its execution output to the context.
func (ctx *ChainContext) Advance(header *types.Header, output *ExecutionOutput) {
	ctx.Parent = types.CopyHeader(header)
	ctx.ParentOutput = output
}
