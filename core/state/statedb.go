// Package state provides the world-state abstraction the execution engine
// mutates: balances, nonces, code, storage, with transaction-level
// snapshot/revert.
package state

import (
	"github.com/eth2030/delayed/core/types"
	"github.com/holiman/uint256"
)

// StateDB is the mutable world state seen by block execution. Balances are
// full 256-bit quantities; callers never pass nil amounts.
type StateDB interface {
	// Account operations
	CreateAccount(addr types.Address)
	AddBalance(addr types.Address, amount *uint256.Int)
	SubBalance(addr types.Address, amount *uint256.Int)
	GetBalance(addr types.Address) *uint256.Int
	GetNonce(addr types.Address) uint64
	SetNonce(addr types.Address, nonce uint64)
	GetCode(addr types.Address) []byte
	SetCode(addr types.Address, code []byte)
	GetCodeHash(addr types.Address) types.Hash

	// Storage operations
	GetState(addr types.Address, key types.Hash) types.Hash
	SetState(addr types.Address, key types.Hash, value types.Hash)

	// Account existence
	Exist(addr types.Address) bool
	Empty(addr types.Address) bool

	// Snapshot and revert for tx-level atomicity
	Snapshot() int
	RevertToSnapshot(id int)

	// Logs
	AddLog(log *types.Log)
	GetLogs(txHash types.Hash) []*types.Log

	// Commit flushes pending writes and returns the post-state root.
	Commit() (types.Hash, error)
}
