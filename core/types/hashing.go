package types

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
)

// DerivableList is a list whose items can be hashed into a trie root.
type DerivableList interface {
	Len() int
	EncodeIndex(i int) ([]byte, error)
}

// Transactions implements DerivableList.
type Transactions []*Transaction

func (txs Transactions) Len() int { return len(txs) }

func (txs Transactions) EncodeIndex(i int) ([]byte, error) {
	return txs[i].EncodeRLP()
}

// Receipts implements DerivableList over consensus receipt encodings.
type Receipts []*Receipt

func (rs Receipts) Len() int { return len(rs) }

func (rs Receipts) EncodeIndex(i int) ([]byte, error) {
	return rs[i].EncodeRLP()
}

// Withdrawals implements DerivableList.
type Withdrawals []*Withdrawal

func (ws Withdrawals) Len() int { return len(ws) }

func (ws Withdrawals) EncodeIndex(i int) ([]byte, error) {
	w := ws[i]
	return rlp.EncodeToBytes([]interface{}{w.Index, w.ValidatorIndex, w.Address, w.Amount})
}

// DeriveListRoot computes the Merkle-Patricia trie root committing to the
// given list, keyed by RLP-encoded index. The stack trie wants its keys in
// ascending byte order, which for RLP-encoded indexes means 1..0x7f before
// 0 (whose encoding is 0x80) before 0x80 and up.
func DeriveListRoot(list DerivableList) (Hash, error) {
	t := trie.NewStackTrie(nil)
	for i := 1; i < list.Len() && i <= 0x7f; i++ {
		if err := updateTrie(t, i, list); err != nil {
			return Hash{}, err
		}
	}
	if list.Len() > 0 {
		if err := updateTrie(t, 0, list); err != nil {
			return Hash{}, err
		}
	}
	for i := 0x80; i < list.Len(); i++ {
		if err := updateTrie(t, i, list); err != nil {
			return Hash{}, err
		}
	}
	return BytesToHash(t.Hash().Bytes()), nil
}

func updateTrie(t *trie.StackTrie, i int, list DerivableList) error {
	key, err := rlp.EncodeToBytes(uint64(i))
	if err != nil {
		return err
	}
	value, err := list.EncodeIndex(i)
	if err != nil {
		return err
	}
	return t.Update(key, value)
}
