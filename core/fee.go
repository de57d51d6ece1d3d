package core

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/eth2030/delayed/core/types"
)

// Gas and fee constants.
const (
	// TxBaseCost is the flat gas cost every transaction pays for inclusion.
	TxBaseCost uint64 = 21000

	// FloorCalldataGasPerToken is the per-token calldata floor cost. A zero
	// calldata byte counts as one token, a non-zero byte as four.
	FloorCalldataGasPerToken uint64 = 10

	// GasPerBlob is the gas consumed by each blob (2^17).
	GasPerBlob uint64 = 131072

	// BlobTxHashVersion is the required first byte of each versioned blob hash.
	BlobTxHashVersion = 0x01

	// MinBlobBaseFee is the minimum base fee per blob gas (1 wei).
	MinBlobBaseFee = 1

	// BlobBaseFeeUpdateFraction controls how fast the blob base fee reacts
	// to excess blob gas.
	BlobBaseFeeUpdateFraction uint64 = 3338477

	// InitialBaseFee is the genesis base fee (1 Gwei).
	InitialBaseFee uint64 = 1_000_000_000

	// MinBaseFee is the minimum execution base fee (7 wei).
	MinBaseFee uint64 = 7

	// ElasticityMultiplier relates the gas limit to the gas target.
	ElasticityMultiplier uint64 = 2

	// BaseFeeChangeDenominator bounds the base fee change per block (12.5%).
	BaseFeeChangeDenominator uint64 = 8
)

// CalldataTokens counts calldata tokens: zero bytes weigh 1 token, non-zero
// bytes weigh 4.
func CalldataTokens(data []byte) uint64 {
	var tokens uint64
	for _, b := range data {
		if b == 0 {
			tokens++
		} else {
			tokens += 4
		}
	}
	return tokens
}

// InclusionGas computes the gas a transaction consumes merely by being
// included: the flat base cost plus the calldata floor. Pure and total;
// strictly increasing in calldata length.
func InclusionGas(tx *types.Transaction) uint64 {
	return TxBaseCost + CalldataTokens(tx.Data())*FloorCalldataGasPerToken
}

// BlobGas returns the blob gas a transaction consumes; zero for non-blob
// transactions.
func BlobGas(tx *types.Transaction) uint64 {
	return GasPerBlob * uint64(len(tx.BlobHashes()))
}

// InclusionCost is the wei amount the coinbase owes up-front for including
// the transaction: inclusion_gas * base_fee + blob_gas * blob_fee.
func InclusionCost(tx *types.Transaction, baseFee, blobFee *uint256.Int) *uint256.Int {
	cost := new(uint256.Int).Mul(baseFee, uint256.NewInt(InclusionGas(tx)))
	if blobGas := BlobGas(tx); blobGas > 0 {
		blobCost := new(uint256.Int).Mul(blobFee, uint256.NewInt(blobGas))
		cost.Add(cost, blobCost)
	}
	return cost
}

// MaxPossibleFee is the largest wei amount execution could charge the
// sender: gas_limit * fee_cap + blob_gas * blob_fee_cap. The skip predicate
// compares the sender balance against this plus the transferred value.
func MaxPossibleFee(tx *types.Transaction) *uint256.Int {
	fee := new(uint256.Int).Mul(tx.GasFeeCap(), uint256.NewInt(tx.Gas()))
	if blobGas := BlobGas(tx); blobGas > 0 {
		blobFee := new(uint256.Int).Mul(tx.BlobFeeCap(), uint256.NewInt(blobGas))
		fee.Add(fee, blobFee)
	}
	return fee
}

// EffectiveTip returns the priority fee per gas the coinbase earns from an
// executed transaction: min(tip_cap, fee_cap - base_fee). The validator has
// already established fee_cap >= base_fee.
func EffectiveTip(tx *types.Transaction, baseFee *uint256.Int) *uint256.Int {
	tip := new(uint256.Int).Sub(tx.GasFeeCap(), baseFee)
	if tipCap := tx.GasTipCap(); tip.Cmp(tipCap) > 0 {
		tip.Set(tipCap)
	}
	return tip
}

// CalcBaseFee computes the base fee for the block after parent, driven by
// the parent's executed gas. Under delayed execution the parent header does
// not carry its own gas used; the caller passes the parent's execution
// output value.
func CalcBaseFee(parent *types.Header, parentGasUsed uint64) *uint256.Int {
	if parent.BaseFee == nil {
		return uint256.NewInt(InitialBaseFee)
	}

	parentGasTarget := parent.GasLimit / ElasticityMultiplier

	if parentGasUsed == parentGasTarget {
		return new(uint256.Int).Set(parent.BaseFee)
	}

	if parentGasUsed > parentGasTarget {
		gasUsedDelta := parentGasUsed - parentGasTarget
		delta := new(uint256.Int).Mul(parent.BaseFee, uint256.NewInt(gasUsedDelta))
		delta.Div(delta, uint256.NewInt(parentGasTarget))
		delta.Div(delta, uint256.NewInt(BaseFeeChangeDenominator))
		if delta.IsZero() {
			delta.SetOne()
		}
		return new(uint256.Int).Add(parent.BaseFee, delta)
	}

	gasUsedDelta := parentGasTarget - parentGasUsed
	delta := new(uint256.Int).Mul(parent.BaseFee, uint256.NewInt(gasUsedDelta))
	delta.Div(delta, uint256.NewInt(parentGasTarget))
	delta.Div(delta, uint256.NewInt(BaseFeeChangeDenominator))

	baseFee := new(uint256.Int).Sub(parent.BaseFee, delta)
	if baseFee.CmpUint64(MinBaseFee) < 0 {
		baseFee.SetUint64(MinBaseFee)
	}
	return baseFee
}

// CalcExcessBlobGas computes the excess blob gas carried into the block
// after parent.
func CalcExcessBlobGas(config *ChainConfig, parentExcessBlobGas, parentBlobGasUsed uint64) uint64 {
	sum := parentExcessBlobGas + parentBlobGasUsed
	target := config.TargetBlobGasPerBlock()
	if sum < target {
		return 0
	}
	return sum - target
}

// CalcBlobBaseFee returns the blob base fee for the given excess blob gas,
// via the fake exponential MIN_BLOB_BASE_FEE * e^(excess / UPDATE_FRACTION).
func CalcBlobBaseFee(excessBlobGas uint64) *uint256.Int {
	fee := fakeExponential(
		big.NewInt(MinBlobBaseFee),
		new(big.Int).SetUint64(excessBlobGas),
		new(big.Int).SetUint64(BlobBaseFeeUpdateFraction),
	)
	out, overflow := uint256.FromBig(fee)
	if overflow {
		return new(uint256.Int).SetAllOne()
	}
	return out
}

// fakeExponential approximates factor * e^(numerator / denominator) using a
// Taylor expansion. Exact integer arithmetic; every conforming
// implementation produces the same result.
func fakeExponential(factor, numerator, denominator *big.Int) *big.Int {
	i := big.NewInt(1)
	output := new(big.Int)
	numeratorAccum := new(big.Int).Mul(factor, denominator)
	tmp := new(big.Int)
	denom := new(big.Int)
	for numeratorAccum.Sign() > 0 {
		output.Add(output, numeratorAccum)
		tmp.Mul(numeratorAccum, numerator)
		denom.Mul(denominator, i)
		numeratorAccum.Div(tmp, denom)
		i.Add(i, big.NewInt(1))
	}
	return output.Div(output, denominator)
}
