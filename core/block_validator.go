package core

import (
	"errors"
	"fmt"
	"math/big"
	"runtime"
	"sync"

	"github.com/holiman/uint256"

	"github.com/eth2030/delayed/core/types"
	"github.com/eth2030/delayed/log"
)

// Umbrella validation errors. Every specific reason wraps one of these, so
// callers can match the category with errors.Is and still log the detail.
var (
	ErrInvalidHeader = errors.New("invalid header")
	ErrInvalidBlock  = errors.New("invalid block")
)

// Specific block-fatal reasons.
var (
	ErrUnknownParent        = fmt.Errorf("%w: unknown parent", ErrInvalidHeader)
	ErrInvalidNumber        = fmt.Errorf("%w: invalid block number", ErrInvalidHeader)
	ErrInvalidTimestamp     = fmt.Errorf("%w: timestamp not greater than parent", ErrInvalidHeader)
	ErrInvalidGasLimit      = fmt.Errorf("%w: invalid gas limit", ErrInvalidHeader)
	ErrExtraDataTooLong     = fmt.Errorf("%w: extra data too long", ErrInvalidHeader)
	ErrInvalidDifficulty    = fmt.Errorf("%w: nonzero difficulty", ErrInvalidHeader)
	ErrInvalidPoWNonce      = fmt.Errorf("%w: nonzero nonce", ErrInvalidHeader)
	ErrInvalidBaseFee       = fmt.Errorf("%w: invalid base fee", ErrInvalidHeader)
	ErrInvalidExcessBlobGas = fmt.Errorf("%w: invalid excess blob gas", ErrInvalidHeader)

	ErrDeferredMismatch     = fmt.Errorf("%w: deferred field mismatch", ErrInvalidBlock)
	ErrOmmersPresent        = fmt.Errorf("%w: ommers present", ErrInvalidBlock)
	ErrUnauthorizedCoinbase = fmt.Errorf("%w: header not signed by coinbase", ErrInvalidBlock)
	ErrGasOvercommit        = fmt.Errorf("%w: inclusion gas exceeds gas limit", ErrInvalidBlock)
	ErrBlobGasOvercommit    = fmt.Errorf("%w: blob gas exceeds block maximum", ErrInvalidBlock)
	ErrCoinbaseInsolvent    = fmt.Errorf("%w: coinbase cannot afford inclusion cost", ErrInvalidBlock)
	ErrTxRootMismatch       = fmt.Errorf("%w: transactions root mismatch", ErrInvalidBlock)
	ErrWithdrawalsMismatch  = fmt.Errorf("%w: withdrawals root mismatch", ErrInvalidBlock)
	ErrBlobGasUsedMismatch  = fmt.Errorf("%w: blob gas used mismatch", ErrInvalidBlock)
)

// BlockValidator certifies candidate blocks as attestable without executing
// them. It reads state only to check coinbase affordability and never
// mutates it, so validating the same block twice is free of side effects.
type BlockValidator struct {
	logger *log.Logger
}

// NewBlockValidator creates a block validator.
func NewBlockValidator(logger *log.Logger) *BlockValidator {
	if logger == nil {
		logger = log.Default()
	}
	return &BlockValidator{logger: logger.Module("validator")}
}

// ValidateBlock runs the full static validation of block against the chain
// context. On success it returns the recovered sender of every transaction
// in block order; the execution engine reuses these instead of re-deriving
// them. Any failure is block-fatal: the block must be discarded and no
// state advanced.
func (v *BlockValidator) ValidateBlock(ctx *ChainContext, block *types.Block) ([]types.Address, error) {
	header := block.Header()

	if err := v.validateHeader(ctx, header); err != nil {
		return nil, err
	}
	if err := v.validateDeferred(ctx, header); err != nil {
		return nil, err
	}

	// Ommers are a legacy of PoW; under this model a block carrying any is
	// invalid outright.
	if len(block.Uncles()) > 0 || header.UncleHash != types.EmptyUncleHash {
		return nil, fmt.Errorf("%w: %d uncles", ErrOmmersPresent, len(block.Uncles()))
	}

	// Coinbase authenticity: the signature binds the coinbase's acceptance
	// of the up-front inclusion liability to exactly this header content.
	signer, err := types.RecoverHeaderSigner(header)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorizedCoinbase, err)
	}
	if signer != header.Coinbase {
		return nil, fmt.Errorf("%w: signed by %s, coinbase %s",
			ErrUnauthorizedCoinbase, signer, header.Coinbase)
	}

	baseFee := ctx.BaseFee()
	blobFee := ctx.BlobBaseFee()

	senders, err := v.checkTransactions(ctx, block.Transactions(), baseFee, blobFee)
	if err != nil {
		return nil, err
	}

	var totalInclusionGas, totalBlobGas uint64
	for _, tx := range block.Transactions() {
		totalInclusionGas += InclusionGas(tx)
		totalBlobGas += BlobGas(tx)
	}

	if totalInclusionGas > header.GasLimit {
		return nil, fmt.Errorf("%w: %d > %d", ErrGasOvercommit, totalInclusionGas, header.GasLimit)
	}
	if totalBlobGas > ctx.Config.MaxBlobGasPerBlock() {
		return nil, fmt.Errorf("%w: %d > %d", ErrBlobGasOvercommit, totalBlobGas, ctx.Config.MaxBlobGasPerBlock())
	}

	// Affordability: the protocol is compensated for inclusion no matter
	// what execution later does. This is what makes skip-without-
	// invalidation sound.
	inclusionCost := totalInclusionCost(totalInclusionGas, totalBlobGas, baseFee, blobFee)
	coinbaseBalance := ctx.State.GetBalance(header.Coinbase)
	if coinbaseBalance.Cmp(inclusionCost) < 0 {
		return nil, fmt.Errorf("%w: balance %v, inclusion cost %v",
			ErrCoinbaseInsolvent, coinbaseBalance, inclusionCost)
	}

	if err := v.validateRoots(block, header); err != nil {
		return nil, err
	}

	if header.BlobGasUsed != totalBlobGas {
		return nil, fmt.Errorf("%w: header %d, computed %d", ErrBlobGasUsedMismatch, header.BlobGasUsed, totalBlobGas)
	}

	v.logger.Debug("block statically valid",
		"number", header.NumberU64(),
		"txs", len(block.Transactions()),
		"inclusion_gas", totalInclusionGas,
		"blob_gas", totalBlobGas)
	return senders, nil
}

// validateHeader runs the structural checks against the parent.
func (v *BlockValidator) validateHeader(ctx *ChainContext, header *types.Header) error {
	parent := ctx.Parent

	if header.ParentHash != parent.Hash() {
		return fmt.Errorf("%w: want %s, got %s", ErrUnknownParent, parent.Hash(), header.ParentHash)
	}
	expected := new(big.Int).Add(parent.Number, big.NewInt(1))
	if header.Number == nil || header.Number.Cmp(expected) != 0 {
		return fmt.Errorf("%w: want %v, got %v", ErrInvalidNumber, expected, header.Number)
	}
	if header.Time <= parent.Time {
		return fmt.Errorf("%w: child %d <= parent %d", ErrInvalidTimestamp, header.Time, parent.Time)
	}
	if len(header.Extra) > MaxExtraDataSize {
		return fmt.Errorf("%w: %d > %d", ErrExtraDataTooLong, len(header.Extra), MaxExtraDataSize)
	}
	if err := verifyGasLimit(parent.GasLimit, header.GasLimit); err != nil {
		return err
	}
	if header.Difficulty != nil && header.Difficulty.Sign() != 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidDifficulty, header.Difficulty)
	}
	if header.Nonce != (types.BlockNonce{}) {
		return fmt.Errorf("%w: got %x", ErrInvalidPoWNonce, header.Nonce)
	}

	expectedBaseFee := ctx.BaseFee()
	if header.BaseFee == nil || header.BaseFee.Cmp(expectedBaseFee) != 0 {
		return fmt.Errorf("%w: want %v, got %v", ErrInvalidBaseFee, expectedBaseFee, header.BaseFee)
	}
	expectedExcess := ctx.ExcessBlobGas()
	if header.ExcessBlobGas != expectedExcess {
		return fmt.Errorf("%w: want %d, got %d", ErrInvalidExcessBlobGas, expectedExcess, header.ExcessBlobGas)
	}
	return nil
}

// validateDeferred checks that every deferred header field equals the
// parent block's actual execution output.
func (v *BlockValidator) validateDeferred(ctx *ChainContext, header *types.Header) error {
	out := ctx.ParentOutput
	switch {
	case header.PreStateRoot != out.StateRoot:
		return fmt.Errorf("%w: pre-state root want %s, got %s",
			ErrDeferredMismatch, out.StateRoot, header.PreStateRoot)
	case header.ParentReceiptHash != out.ReceiptHash:
		return fmt.Errorf("%w: parent receipt root want %s, got %s",
			ErrDeferredMismatch, out.ReceiptHash, header.ParentReceiptHash)
	case header.ParentBloom != out.Bloom:
		return fmt.Errorf("%w: parent bloom", ErrDeferredMismatch)
	case header.ParentRequestsHash != out.RequestsHash:
		return fmt.Errorf("%w: parent requests hash want %s, got %s",
			ErrDeferredMismatch, out.RequestsHash, header.ParentRequestsHash)
	case header.ParentGasUsed != out.GasUsed:
		return fmt.Errorf("%w: parent gas used want %d, got %d",
			ErrDeferredMismatch, out.GasUsed, header.ParentGasUsed)
	}
	return nil
}

// checkTransactions runs the static per-transaction checks. Signature
// recovery has no data dependency between transactions, so the checks fan
// out across workers; the results are then scanned in block order so the
// first statically invalid transaction determines the error.
func (v *BlockValidator) checkTransactions(ctx *ChainContext, txs []*types.Transaction, baseFee, blobFee *uint256.Int) ([]types.Address, error) {
	senders := make([]types.Address, len(txs))
	errs := make([]error, len(txs))

	workers := runtime.GOMAXPROCS(0)
	if workers > len(txs) {
		workers = len(txs)
	}
	if workers > 1 {
		var wg sync.WaitGroup
		indexes := make(chan int)
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range indexes {
					senders[i], errs[i] = CheckStatic(txs[i], ctx.Signer, baseFee, blobFee)
				}
			}()
		}
		for i := range txs {
			indexes <- i
		}
		close(indexes)
		wg.Wait()
	} else {
		for i, tx := range txs {
			senders[i], errs[i] = CheckStatic(tx, ctx.Signer, baseFee, blobFee)
		}
	}

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("%w: tx %d: %v", ErrInvalidBlock, i, err)
		}
		txs[i].SetSender(senders[i])
	}
	return senders, nil
}

// validateRoots recomputes the transactions and withdrawals commitments
// from the canonical encodings and compares them to the header.
func (v *BlockValidator) validateRoots(block *types.Block, header *types.Header) error {
	txRoot, err := types.DeriveListRoot(types.Transactions(block.Transactions()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTxRootMismatch, err)
	}
	if txRoot != header.TxHash {
		return fmt.Errorf("%w: want %s, computed %s", ErrTxRootMismatch, header.TxHash, txRoot)
	}

	wRoot, err := types.DeriveListRoot(types.Withdrawals(block.Withdrawals()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWithdrawalsMismatch, err)
	}
	if wRoot != header.WithdrawalsHash {
		return fmt.Errorf("%w: want %s, computed %s", ErrWithdrawalsMismatch, header.WithdrawalsHash, wRoot)
	}
	return nil
}

// totalInclusionCost is the wei amount the coinbase owes for the whole
// block: total_inclusion_gas * base_fee + total_blob_gas * blob_fee. The
// engine recomputes the same value at Init; the two must be bit-identical.
func totalInclusionCost(inclusionGas, blobGas uint64, baseFee, blobFee *uint256.Int) *uint256.Int {
	cost := new(uint256.Int).Mul(baseFee, uint256.NewInt(inclusionGas))
	if blobGas > 0 {
		cost.Add(cost, new(uint256.Int).Mul(blobFee, uint256.NewInt(blobGas)))
	}
	return cost
}

// verifyGasLimit bounds the header gas limit and its drift from the parent.
func verifyGasLimit(parentGasLimit, headerGasLimit uint64) error {
	if headerGasLimit < MinGasLimit {
		return fmt.Errorf("%w: %d < minimum %d", ErrInvalidGasLimit, headerGasLimit, MinGasLimit)
	}
	if headerGasLimit > MaxGasLimit {
		return fmt.Errorf("%w: %d > maximum %d", ErrInvalidGasLimit, headerGasLimit, MaxGasLimit)
	}
	diff := headerGasLimit - parentGasLimit
	if headerGasLimit < parentGasLimit {
		diff = parentGasLimit - headerGasLimit
	}
	limit := parentGasLimit / GasLimitBoundDivisor
	if diff >= limit {
		return fmt.Errorf("%w: change %d exceeds limit %d", ErrInvalidGasLimit, diff, limit)
	}
	return nil
}
