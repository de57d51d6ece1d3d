package state

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/eth2030/delayed/core/types"
)

// stateObject is an account plus its in-memory storage.
type stateObject struct {
	account          types.Account
	code             []byte
	dirtyStorage     map[types.Hash]types.Hash
	committedStorage map[types.Hash]types.Hash
}

func newStateObject() *stateObject {
	return &stateObject{
		account:          types.NewAccount(),
		dirtyStorage:     make(map[types.Hash]types.Hash),
		committedStorage: make(map[types.Hash]types.Hash),
	}
}

// MemoryStateDB is an in-memory StateDB used by the execution engine and
// its tests. It journals every mutation so a transaction can be reverted
// as a unit.
type MemoryStateDB struct {
	stateObjects map[types.Address]*stateObject
	journal      *journal
	logs         map[types.Hash][]*types.Log
}

// NewMemoryStateDB creates an empty in-memory state database.
func NewMemoryStateDB() *MemoryStateDB {
	return &MemoryStateDB{
		stateObjects: make(map[types.Address]*stateObject),
		journal:      newJournal(),
		logs:         make(map[types.Hash][]*types.Log),
	}
}

func (s *MemoryStateDB) getStateObject(addr types.Address) *stateObject {
	return s.stateObjects[addr]
}

func (s *MemoryStateDB) getOrNewStateObject(addr types.Address) *stateObject {
	if obj := s.stateObjects[addr]; obj != nil {
		return obj
	}
	s.journal.append(createAccountChange{addr: addr})
	obj := newStateObject()
	s.stateObjects[addr] = obj
	return obj
}

// --- Account operations ---

func (s *MemoryStateDB) CreateAccount(addr types.Address) {
	prev := s.stateObjects[addr]
	s.journal.append(createAccountChange{addr: addr, prev: prev})
	s.stateObjects[addr] = newStateObject()
}

func (s *MemoryStateDB) AddBalance(addr types.Address, amount *uint256.Int) {
	obj := s.getOrNewStateObject(addr)
	s.journal.append(balanceChange{addr: addr, prev: new(uint256.Int).Set(obj.account.Balance)})
	obj.account.Balance = new(uint256.Int).Add(obj.account.Balance, amount)
}

func (s *MemoryStateDB) SubBalance(addr types.Address, amount *uint256.Int) {
	obj := s.getOrNewStateObject(addr)
	s.journal.append(balanceChange{addr: addr, prev: new(uint256.Int).Set(obj.account.Balance)})
	obj.account.Balance = new(uint256.Int).Sub(obj.account.Balance, amount)
}

func (s *MemoryStateDB) GetBalance(addr types.Address) *uint256.Int {
	if obj := s.getStateObject(addr); obj != nil {
		return new(uint256.Int).Set(obj.account.Balance)
	}
	return new(uint256.Int)
}

func (s *MemoryStateDB) GetNonce(addr types.Address) uint64 {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.account.Nonce
	}
	return 0
}

func (s *MemoryStateDB) SetNonce(addr types.Address, nonce uint64) {
	obj := s.getOrNewStateObject(addr)
	s.journal.append(nonceChange{addr: addr, prev: obj.account.Nonce})
	obj.account.Nonce = nonce
}

func (s *MemoryStateDB) GetCode(addr types.Address) []byte {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.code
	}
	return nil
}

func (s *MemoryStateDB) SetCode(addr types.Address, code []byte) {
	obj := s.getOrNewStateObject(addr)
	prevHash := make([]byte, len(obj.account.CodeHash))
	copy(prevHash, obj.account.CodeHash)
	s.journal.append(codeChange{addr: addr, prevCode: obj.code, prevHash: prevHash})
	obj.code = code
	obj.account.CodeHash = crypto.Keccak256(code)
}

func (s *MemoryStateDB) GetCodeHash(addr types.Address) types.Hash {
	if obj := s.getStateObject(addr); obj != nil {
		return types.BytesToHash(obj.account.CodeHash)
	}
	return types.Hash{}
}

// --- Storage operations ---

func (s *MemoryStateDB) GetState(addr types.Address, key types.Hash) types.Hash {
	if obj := s.getStateObject(addr); obj != nil {
		if val, ok := obj.dirtyStorage[key]; ok {
			return val
		}
		return obj.committedStorage[key]
	}
	return types.Hash{}
}

func (s *MemoryStateDB) SetState(addr types.Address, key types.Hash, value types.Hash) {
	obj := s.getOrNewStateObject(addr)
	prev, prevExists := obj.dirtyStorage[key]
	s.journal.append(storageChange{addr: addr, key: key, prev: prev, prevExists: prevExists})
	obj.dirtyStorage[key] = value
}

// --- Account existence ---

func (s *MemoryStateDB) Exist(addr types.Address) bool {
	return s.stateObjects[addr] != nil
}

func (s *MemoryStateDB) Empty(addr types.Address) bool {
	obj := s.getStateObject(addr)
	if obj == nil {
		return true
	}
	return obj.account.Nonce == 0 &&
		obj.account.Balance.IsZero() &&
		types.BytesToHash(obj.account.CodeHash) == types.EmptyCodeHash
}

// --- Snapshot and revert ---

func (s *MemoryStateDB) Snapshot() int {
	return s.journal.snapshot()
}

func (s *MemoryStateDB) RevertToSnapshot(id int) {
	s.journal.revertToSnapshot(id, s)
}

// --- Logs ---

func (s *MemoryStateDB) AddLog(log *types.Log) {
	txHash := log.TxHash
	s.journal.append(logChange{txHash: txHash, prevLen: len(s.logs[txHash])})
	s.logs[txHash] = append(s.logs[txHash], log)
}

func (s *MemoryStateDB) GetLogs(txHash types.Hash) []*types.Log {
	return s.logs[txHash]
}

// --- Commit ---

// Commit flushes dirty storage and computes the post-state root. The root
// is a keccak256 over the accounts in address order, so equal states hash
// equal regardless of mutation order. A Merkle Patricia Trie would serve a
// networked node; a flat commitment is enough for a single-process engine.
func (s *MemoryStateDB) Commit() (types.Hash, error) {
	for _, obj := range s.stateObjects {
		for key, val := range obj.dirtyStorage {
			if val == (types.Hash{}) {
				delete(obj.committedStorage, key)
			} else {
				obj.committedStorage[key] = val
			}
		}
		obj.dirtyStorage = make(map[types.Hash]types.Hash)
	}

	addrs := make([]types.Address, 0, len(s.stateObjects))
	for addr := range s.stateObjects {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i][:], addrs[j][:]) < 0
	})

	var buf bytes.Buffer
	for _, addr := range addrs {
		obj := s.stateObjects[addr]
		if s.Empty(addr) {
			continue
		}
		buf.Write(addr[:])
		var nonce [8]byte
		binary.BigEndian.PutUint64(nonce[:], obj.account.Nonce)
		buf.Write(nonce[:])
		balance := obj.account.Balance.Bytes32()
		buf.Write(balance[:])
		buf.Write(obj.account.CodeHash)

		keys := make([]types.Hash, 0, len(obj.committedStorage))
		for key := range obj.committedStorage {
			keys = append(keys, key)
		}
		sort.Slice(keys, func(i, j int) bool {
			return bytes.Compare(keys[i][:], keys[j][:]) < 0
		})
		for _, key := range keys {
			val := obj.committedStorage[key]
			buf.Write(key[:])
			buf.Write(val[:])
		}
	}
	if buf.Len() == 0 {
		return types.EmptyRootHash, nil
	}
	return types.BytesToHash(crypto.Keccak256(buf.Bytes())), nil
}

// Copy returns a deep copy of the state, detached from the original's
// journal. Validation runs against copies so a rejected block leaves the
// canonical state untouched.
func (s *MemoryStateDB) Copy() *MemoryStateDB {
	cpy := NewMemoryStateDB()
	for addr, obj := range s.stateObjects {
		objCpy := newStateObject()
		objCpy.account.Nonce = obj.account.Nonce
		objCpy.account.Balance = new(uint256.Int).Set(obj.account.Balance)
		objCpy.account.Root = obj.account.Root
		objCpy.account.CodeHash = append([]byte(nil), obj.account.CodeHash...)
		objCpy.code = append([]byte(nil), obj.code...)
		for k, v := range obj.committedStorage {
			objCpy.committedStorage[k] = v
		}
		for k, v := range obj.dirtyStorage {
			objCpy.dirtyStorage[k] = v
		}
		cpy.stateObjects[addr] = objCpy
	}
	return cpy
}

// Verify interface compliance at compile time.
var _ StateDB = (*MemoryStateDB)(nil)
