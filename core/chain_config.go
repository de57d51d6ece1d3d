// Package core implements the delayed-execution block pipeline: static
// validation that certifies a block attestable before running it, and an
// execution engine that may skip individual transactions without
// invalidating the block.
package core

// ChainConfig holds chain-level configuration. The delayed-execution chain
// runs a single rule set from genesis, so there is no fork timetable; the
// config carries only the chain identity and the per-block resource bounds.
type ChainConfig struct {
	// ChainID separates signature domains between chains.
	ChainID uint64

	// MaxBlobsPerBlock bounds the number of blobs across a block's
	// transactions. Blob gas is MaxBlobsPerBlock * GasPerBlob.
	MaxBlobsPerBlock uint64
}

// MaxBlobGasPerBlock returns the blob gas ceiling for a block.
func (c *ChainConfig) MaxBlobGasPerBlock() uint64 {
	return c.MaxBlobsPerBlock * GasPerBlob
}

// TargetBlobGasPerBlock returns the blob gas target driving the blob base
// fee adjustment (half the maximum).
func (c *ChainConfig) TargetBlobGasPerBlock() uint64 {
	return c.MaxBlobGasPerBlock() / 2
}

// Header bounds.
const (
	// MaxExtraDataSize is the maximum allowed extra data in a block header.
	MaxExtraDataSize = 32

	// GasLimitBoundDivisor is the divisor for max gas limit change per block.
	GasLimitBoundDivisor uint64 = 1024

	// MinGasLimit is the minimum gas limit.
	MinGasLimit uint64 = 5000

	// MaxGasLimit is the maximum gas limit (2^63 - 1).
	MaxGasLimit uint64 = 1<<63 - 1
)

// MainnetConfig is the production configuration.
var MainnetConfig = &ChainConfig{
	ChainID:          1,
	MaxBlobsPerBlock: 6,
}

// TestConfig is the configuration used throughout the test suite.
var TestConfig = &ChainConfig{
	ChainID:          1337,
	MaxBlobsPerBlock: 6,
}
