package core

import (
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/eth2030/delayed/core/state"
	"github.com/eth2030/delayed/core/types"
)

const testGasLimit = 30_000_000

var oneEther = uint256.MustFromDecimal("1000000000000000000")

// testChain bundles a chain context at genesis with the keys needed to
// produce authentic blocks: the coinbase key signs headers, the sender key
// signs transactions. The coinbase holds 1 ether, the sender 10.
type testChain struct {
	ctx   *ChainContext
	state *state.MemoryStateDB

	coinbaseKey *ecdsa.PrivateKey
	coinbase    types.Address
	senderKey   *ecdsa.PrivateKey
	sender      types.Address
}

func newTestChain(t *testing.T) *testChain {
	return newTestChainGasLimit(t, testGasLimit)
}

func newTestChainGasLimit(t *testing.T, gasLimit uint64) *testChain {
	t.Helper()
	coinbaseKey := genKey(t)
	senderKey := genKey(t)
	coinbase := addrOf(coinbaseKey)
	sender := addrOf(senderKey)

	st := state.NewMemoryStateDB()
	st.AddBalance(coinbase, new(uint256.Int).Set(oneEther))
	st.AddBalance(sender, new(uint256.Int).Mul(oneEther, uint256.NewInt(10)))

	parent := &types.Header{
		Number:   big.NewInt(0),
		GasLimit: gasLimit,
		Time:     1000,
		BaseFee:  uint256.NewInt(InitialBaseFee),
	}
	parentOutput := &ExecutionOutput{
		StateRoot:    types.EmptyRootHash,
		ReceiptHash:  types.EmptyRootHash,
		RequestsHash: types.EmptyRequestsHash,
		GasUsed:      gasLimit / ElasticityMultiplier,
	}
	return &testChain{
		ctx:         NewChainContext(TestConfig, st, parent, parentOutput),
		state:       st,
		coinbaseKey: coinbaseKey,
		coinbase:    coinbase,
		senderKey:   senderKey,
		sender:      sender,
	}
}

func genKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	return key
}

func addrOf(key *ecdsa.PrivateKey) types.Address {
	return types.BytesToAddress(crypto.PubkeyToAddress(key.PublicKey).Bytes())
}

// buildHeader assembles the unique header a well-behaved builder would
// produce for the given body on top of the current head. It is returned
// unsigned so tests can corrupt individual fields before signing.
func (c *testChain) buildHeader(t *testing.T, txs []*types.Transaction, withdrawals []*types.Withdrawal) *types.Header {
	t.Helper()
	txRoot, err := types.DeriveListRoot(types.Transactions(txs))
	if err != nil {
		t.Fatal(err)
	}
	wRoot, err := types.DeriveListRoot(types.Withdrawals(withdrawals))
	if err != nil {
		t.Fatal(err)
	}
	var blobGas uint64
	for _, tx := range txs {
		blobGas += BlobGas(tx)
	}
	out := c.ctx.ParentOutput
	return &types.Header{
		ParentHash:      c.ctx.Parent.Hash(),
		UncleHash:       types.EmptyUncleHash,
		Coinbase:        c.coinbase,
		TxHash:          txRoot,
		Difficulty:      new(big.Int),
		Number:          new(big.Int).Add(c.ctx.Parent.Number, big.NewInt(1)),
		GasLimit:        c.ctx.Parent.GasLimit,
		Time:            c.ctx.Parent.Time + 1,
		BaseFee:         c.ctx.BaseFee(),
		WithdrawalsHash: wRoot,
		BlobGasUsed:     blobGas,
		ExcessBlobGas:   c.ctx.ExcessBlobGas(),

		PreStateRoot:       out.StateRoot,
		ParentReceiptHash:  out.ReceiptHash,
		ParentBloom:        out.Bloom,
		ParentRequestsHash: out.RequestsHash,
		ParentGasUsed:      out.GasUsed,
	}
}

// signedBlock signs the header with the coinbase key and wraps it with the
// body into a block.
func (c *testChain) signedBlock(t *testing.T, header *types.Header, txs []*types.Transaction, withdrawals []*types.Withdrawal) *types.Block {
	t.Helper()
	if err := types.SignHeader(header, c.coinbaseKey); err != nil {
		t.Fatal(err)
	}
	return types.NewBlock(header, &types.Body{Transactions: txs, Withdrawals: withdrawals})
}

// makeBlock builds and signs a fully consistent block for the given body.
func (c *testChain) makeBlock(t *testing.T, txs []*types.Transaction, withdrawals []*types.Withdrawal) *types.Block {
	t.Helper()
	return c.signedBlock(t, c.buildHeader(t, txs, withdrawals), txs, withdrawals)
}

func (c *testChain) signTx(t *testing.T, key *ecdsa.PrivateKey, inner types.TxData) *types.Transaction {
	t.Helper()
	tx, err := types.SignTx(types.NewTransaction(inner), c.ctx.Signer, key)
	if err != nil {
		t.Fatal(err)
	}
	return tx
}

// transfer builds a signed 21000-gas value transfer. Fee cap is twice the
// genesis base fee with a 1 gwei tip.
func (c *testChain) transfer(t *testing.T, key *ecdsa.PrivateKey, nonce uint64, to types.Address, value *uint256.Int) *types.Transaction {
	t.Helper()
	return c.signTx(t, key, &types.DynamicFeeTx{
		ChainID:   uint256.NewInt(TestConfig.ChainID),
		Nonce:     nonce,
		GasTipCap: uint256.NewInt(1_000_000_000),
		GasFeeCap: uint256.NewInt(2 * InitialBaseFee),
		Gas:       21000,
		To:        &to,
		Value:     new(uint256.Int).Set(value),
	})
}

// blobTransfer builds a signed blob transaction carrying n versioned hashes.
func (c *testChain) blobTransfer(t *testing.T, key *ecdsa.PrivateKey, nonce uint64, n int) *types.Transaction {
	t.Helper()
	hashes := make([]types.Hash, n)
	for i := range hashes {
		hashes[i] = types.Hash{BlobTxHashVersion, byte(i + 1)}
	}
	return c.signTx(t, key, &types.BlobTx{
		ChainID:    uint256.NewInt(TestConfig.ChainID),
		Nonce:      nonce,
		GasTipCap:  uint256.NewInt(1_000_000_000),
		GasFeeCap:  uint256.NewInt(2 * InitialBaseFee),
		Gas:        21000,
		To:         types.HexToAddress("0x1234"),
		Value:      new(uint256.Int),
		BlobFeeCap: uint256.NewInt(100),
		BlobHashes: hashes,
	})
}

// validate runs static validation only.
func (c *testChain) validate(t *testing.T, block *types.Block) ([]types.Address, error) {
	t.Helper()
	return NewBlockValidator(nil).ValidateBlock(c.ctx, block)
}

// process validates and then executes; validation failure is a test fatal.
func (c *testChain) process(t *testing.T, block *types.Block) (*BlockResult, error) {
	t.Helper()
	senders, err := c.validate(t, block)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	engine := NewExecutionEngine(NewTransferInterpreter(), nil)
	return engine.ExecuteBlock(c.ctx, block, senders)
}
