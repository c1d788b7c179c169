package account

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"fundkit/internal/chain"
	"fundkit/internal/errkind"
)

type fakeBackend struct {
	nonce      uint64
	nonceFails int
	nonceCalls int
	balance    *big.Int
}

func (f *fakeBackend) NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error) {
	f.nonceCalls++
	if f.nonceFails > 0 {
		f.nonceFails--
		return 0, errkind.New(errkind.Transient, "request timed out")
	}
	return f.nonce, nil
}

func (f *fakeBackend) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return f.balance, nil
}

func (f *fakeBackend) BlockByNumber(ctx context.Context, number *big.Int) (*types.Block, error) {
	return nil, ethereum.NotFound
}

func (f *fakeBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return nil, ethereum.NotFound
}

func (f *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	return nil
}

func newTestClient(backend chain.Backend) *chain.Client {
	return chain.NewClient(backend, slog.New(slog.NewTextHandler(io.Discard, nil)), 0)
}

func TestInitSeedsNonceFromNode(t *testing.T) {
	backend := &fakeBackend{nonce: 41, nonceFails: 2}
	acct, err := Init(context.Background(), newTestClient(backend), testKey, big.NewInt(1))
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}
	// The seeding fetch follows the read-query retry policy.
	if backend.nonceCalls != 3 {
		t.Fatalf("expected 3 fetch attempts, got %d", backend.nonceCalls)
	}
	if n := acct.NextNonce(); n != 41 {
		t.Fatalf("expected first nonce 41, got %d", n)
	}
	// The counter is never re-read from the node.
	backend.nonce = 100
	if n := acct.NextNonce(); n != 42 {
		t.Fatalf("expected nonce 42, got %d", n)
	}
	if backend.nonceCalls != 3 {
		t.Fatalf("counter must not be re-read from the node, got %d calls", backend.nonceCalls)
	}
}

func TestBalance(t *testing.T) {
	backend := &fakeBackend{balance: big.NewInt(999)}
	acct, err := New(newTestClient(backend), testKey, big.NewInt(1), 0)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	bal, err := acct.Balance(context.Background())
	if err != nil {
		t.Fatalf("Balance error: %v", err)
	}
	if bal.Cmp(big.NewInt(999)) != 0 {
		t.Fatalf("unexpected balance: %s", bal)
	}
}

func TestBalanceWithoutClient(t *testing.T) {
	acct, err := New(nil, testKey, big.NewInt(1), 0)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if _, err := acct.Balance(context.Background()); err == nil {
		t.Fatal("expected error when no client is attached")
	}
}
