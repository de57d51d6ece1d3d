package core

import "errors"

// ErrGasPoolExhausted is returned when the remaining block gas budget
// cannot cover a requested deduction.
var ErrGasPoolExhausted = errors.New("gas pool exhausted")

// GasPool tracks the gas available to the execution engine while it walks
// a block. It starts at gas_limit minus the block's total inclusion gas;
// each transaction's inclusion slice is refunded into the pool before its
// skip decision and clawed back if the transaction is skipped.
type GasPool uint64

// AddGas returns gas to the pool.
func (gp *GasPool) AddGas(amount uint64) *GasPool {
	*gp += GasPool(amount)
	return gp
}

// SubGas removes gas from the pool, erroring if the pool is too small.
func (gp *GasPool) SubGas(amount uint64) error {
	if uint64(*gp) < amount {
		return ErrGasPoolExhausted
	}
	*gp -= GasPool(amount)
	return nil
}

// Gas returns the amount of gas remaining in the pool.
func (gp *GasPool) Gas() uint64 {
	return uint64(*gp)
}
