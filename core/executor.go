package core

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/eth2030/delayed/core/types"
	"github.com/eth2030/delayed/log"
)

// ErrInternalAccounting signals a contract violation between static
// validation and execution, such as the coinbase debit underflowing after
// affordability was proven. It is a defect, never a user-triggerable
// rejection, and aborts block processing.
var ErrInternalAccounting = errors.New("internal accounting invariant violated")

// SkipReason classifies why a transaction was skipped.
type SkipReason int

const (
	SkipGasLimit SkipReason = iota + 1
	SkipInsufficientBalance
	SkipNonceMismatch
	SkipSenderNotPlain
)

func (r SkipReason) String() string {
	switch r {
	case SkipGasLimit:
		return "gas limit exceeds available block gas"
	case SkipInsufficientBalance:
		return "sender cannot afford max fee plus value"
	case SkipNonceMismatch:
		return "sender nonce mismatch"
	case SkipSenderNotPlain:
		return "sender has non-delegation code"
	default:
		return "unknown"
	}
}

// TxOutcome is the per-transaction result of block execution: either the
// transaction was skipped for a deterministic reason, or it executed and
// carries its execution result. The closed set allows exhaustive matching
// in tests.
type TxOutcome interface {
	isTxOutcome()
}

// Skipped marks a transaction that was passed over: no state mutation, no
// gas made available, the coinbase keeps bearing its inclusion cost.
type Skipped struct {
	Reason SkipReason
}

// Executed carries the interpreter's result for a transaction that ran.
type Executed struct {
	GasUsed    uint64
	Logs       []*types.Log
	ReturnData []byte
	VMErr      error
}

func (Skipped) isTxOutcome()  {}
func (Executed) isTxOutcome() {}

// BlockResult bundles everything executing one block produces.
type BlockResult struct {
	Output   *ExecutionOutput
	Receipts []*types.Receipt
	Outcomes []TxOutcome
}

// ExecutionEngine replays a statically validated block against state. One
// engine value is reusable across blocks; all per-block state lives on the
// stack of ExecuteBlock.
type ExecutionEngine struct {
	interp Interpreter
	logger *log.Logger
}

// NewExecutionEngine creates an engine backed by the given interpreter.
func NewExecutionEngine(interp Interpreter, logger *log.Logger) *ExecutionEngine {
	if logger == nil {
		logger = log.Default()
	}
	return &ExecutionEngine{interp: interp, logger: logger.Module("executor")}
}

// ExecuteBlock runs the block's transactions in order, skipping those that
// fail the skip predicate against current state, and finalizes into an
// ExecutionOutput. The block must have passed ValidateBlock; senders is the
// ordered list it returned and is reused, never re-derived.
//
// Gas-used convention: the finalized GasUsed is the sum of executed
// transactions' gas plus the inclusion gas of skipped transactions — the
// gas the coinbase actually paid for stays accounted, whether or not the
// transaction ran.
func (e *ExecutionEngine) ExecuteBlock(ctx *ChainContext, block *types.Block, senders []types.Address) (*BlockResult, error) {
	header := block.Header()
	txs := block.Transactions()
	if len(senders) != len(txs) {
		return nil, fmt.Errorf("%w: %d senders for %d transactions",
			ErrInternalAccounting, len(senders), len(txs))
	}

	baseFee := ctx.BaseFee()
	blobFee := ctx.BlobBaseFee()
	st := ctx.State

	// Init: recompute the inclusion totals exactly as the validator did and
	// debit the coinbase up-front. Affordability was proven statically; an
	// underflow here is a defect, never clamped.
	var totalInclusionGas, totalBlobGas uint64
	for _, tx := range txs {
		totalInclusionGas += InclusionGas(tx)
		totalBlobGas += BlobGas(tx)
	}
	inclusionCost := totalInclusionCost(totalInclusionGas, totalBlobGas, baseFee, blobFee)
	if st.GetBalance(header.Coinbase).Cmp(inclusionCost) < 0 {
		return nil, fmt.Errorf("%w: coinbase debit underflow, balance %v, cost %v",
			ErrInternalAccounting, st.GetBalance(header.Coinbase), inclusionCost)
	}
	st.SubBalance(header.Coinbase, inclusionCost)

	gasPool := new(GasPool).AddGas(header.GasLimit - totalInclusionGas)

	env := &BlockEnv{
		Coinbase: header.Coinbase,
		Number:   header.NumberU64(),
		Time:     header.Time,
		BaseFee:  baseFee,
		BlobFee:  blobFee,
		Random:   header.MixDigest,
	}

	outcomes := make([]TxOutcome, 0, len(txs))
	receipts := make([]*types.Receipt, 0, len(txs))
	var cumulativeGas uint64

	for i, tx := range txs {
		sender := senders[i]
		incGas := InclusionGas(tx)

		// Refund this transaction's inclusion slice into the budget; it is
		// clawed back if the transaction is skipped.
		gasPool.AddGas(incGas)

		if reason, skip := e.skipDecision(ctx, tx, sender, gasPool.Gas()); skip {
			if err := gasPool.SubGas(incGas); err != nil {
				return nil, fmt.Errorf("%w: inclusion clawback: %v", ErrInternalAccounting, err)
			}
			cumulativeGas += incGas
			outcomes = append(outcomes, Skipped{Reason: reason})
			receipts = append(receipts, e.skippedReceipt(tx, reason, cumulativeGas))
			e.logger.Debug("transaction skipped", "index", i, "sender", sender, "reason", reason)
			continue
		}

		result := e.interp.Execute(env, tx, sender, st, tx.Gas())
		if err := gasPool.SubGas(result.GasUsed); err != nil {
			return nil, fmt.Errorf("%w: tx %d used %d gas with %d available",
				ErrInternalAccounting, i, result.GasUsed, gasPool.Gas())
		}
		cumulativeGas += result.GasUsed

		// The coinbase earns the priority fee and gets back exactly this
		// transaction's slice of the up-front inclusion debit.
		tip := EffectiveTip(tx, baseFee)
		credit := new(uint256.Int).Mul(tip, uint256.NewInt(result.GasUsed))
		credit.Add(credit, InclusionCost(tx, baseFee, blobFee))
		st.AddBalance(header.Coinbase, credit)

		outcomes = append(outcomes, Executed{
			GasUsed:    result.GasUsed,
			Logs:       result.Logs,
			ReturnData: result.ReturnData,
			VMErr:      result.Err,
		})
		receipts = append(receipts, e.executedReceipt(tx, result, cumulativeGas, baseFee, blobFee, tip))
	}

	e.processWithdrawals(ctx, block.Withdrawals())

	output, err := e.finalize(ctx, receipts, cumulativeGas)
	if err != nil {
		return nil, err
	}
	types.DeriveReceiptFields(receipts, block.Hash(), header.NumberU64(), txs)

	e.logger.Info("block executed",
		"number", header.NumberU64(),
		"txs", len(txs),
		"gas_used", output.GasUsed,
		"state_root", output.StateRoot)
	return &BlockResult{Output: output, Receipts: receipts, Outcomes: outcomes}, nil
}

// skipDecision evaluates the skip predicate against current account state.
// Deterministic: the same state yields the same decision.
func (e *ExecutionEngine) skipDecision(ctx *ChainContext, tx *types.Transaction, sender types.Address, gasAvailable uint64) (SkipReason, bool) {
	if tx.Gas() > gasAvailable {
		return SkipGasLimit, true
	}
	need := new(uint256.Int).Add(MaxPossibleFee(tx), tx.Value())
	if ctx.State.GetBalance(sender).Cmp(need) < 0 {
		return SkipInsufficientBalance, true
	}
	if ctx.State.GetNonce(sender) != tx.Nonce() {
		return SkipNonceMismatch, true
	}
	if code := ctx.State.GetCode(sender); len(code) > 0 {
		if _, isDelegation := types.ParseDelegation(code); !isDelegation {
			return SkipSenderNotPlain, true
		}
	}
	return 0, false
}

func (e *ExecutionEngine) skippedReceipt(tx *types.Transaction, reason SkipReason, cumulativeGas uint64) *types.Receipt {
	r := types.NewReceipt(tx.Type(), types.ReceiptStatusFailed, cumulativeGas)
	r.Skipped = true
	r.SkipReason = reason.String()
	r.GasUsed = InclusionGas(tx)
	return r
}

func (e *ExecutionEngine) executedReceipt(tx *types.Transaction, result *ExecutionResult, cumulativeGas uint64, baseFee, blobFee, tip *uint256.Int) *types.Receipt {
	status := types.ReceiptStatusSuccessful
	if result.Failed() {
		status = types.ReceiptStatusFailed
	}
	r := types.NewReceipt(tx.Type(), status, cumulativeGas)
	r.GasUsed = result.GasUsed
	r.Logs = result.Logs
	r.Bloom = types.LogsBloom(result.Logs)
	r.EffectiveGasPrice = new(uint256.Int).Add(baseFee, tip)
	if blobGas := BlobGas(tx); blobGas > 0 {
		r.BlobGasUsed = blobGas
		r.BlobGasPrice = new(uint256.Int).Set(blobFee)
	}
	return r
}

// processWithdrawals credits withdrawal amounts (gwei denominated) to their
// recipients. Withdrawals cannot fail and consume no gas.
func (e *ExecutionEngine) processWithdrawals(ctx *ChainContext, withdrawals []*types.Withdrawal) {
	for _, w := range withdrawals {
		if w.Amount == 0 {
			continue
		}
		amount := new(uint256.Int).Mul(uint256.NewInt(w.Amount), uint256.NewInt(1_000_000_000))
		ctx.State.AddBalance(w.Address, amount)
	}
}

// finalize commits state and assembles the execution output the next
// block's deferred fields will be checked against.
func (e *ExecutionEngine) finalize(ctx *ChainContext, receipts []*types.Receipt, gasUsed uint64) (*ExecutionOutput, error) {
	receiptHash, err := types.DeriveListRoot(types.Receipts(receipts))
	if err != nil {
		return nil, fmt.Errorf("%w: receipts root: %v", ErrInternalAccounting, err)
	}
	stateRoot, err := ctx.State.Commit()
	if err != nil {
		return nil, fmt.Errorf("state commit: %w", err)
	}
	return &ExecutionOutput{
		StateRoot:    stateRoot,
		ReceiptHash:  receiptHash,
		Bloom:        types.CreateBloom(types.Receipts(receipts)),
		RequestsHash: types.EmptyRequestsHash,
		GasUsed:      gasUsed,
	}, nil
}
