package chain

import (
	"context"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"fundkit/internal/errkind"
	"fundkit/internal/util"
)

// Backend is the subset of *ethclient.Client the toolkit uses.
type Backend interface {
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	BlockByNumber(ctx context.Context, number *big.Int) (*types.Block, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Client wraps a node backend with the retry policy used across the toolkit:
// read-only queries are retried forever on transient timeouts, broadcast is
// retried zero times (a resubmitted broadcast could double-spend if the first
// attempt actually landed).
type Client struct {
	backend Backend
	logger  *slog.Logger
	timeout time.Duration
}

func NewClient(backend Backend, logger *slog.Logger, requestTimeout time.Duration) *Client {
	return &Client{backend: backend, logger: logger, timeout: requestTimeout}
}

// Nonce returns the confirmed transaction count for addr.
func (c *Client) Nonce(ctx context.Context, addr common.Address) (uint64, error) {
	var nonce uint64
	err := c.retryRead(ctx, "nonce", func(attemptCtx context.Context) error {
		var err error
		nonce, err = c.backend.NonceAt(attemptCtx, addr, nil)
		return err
	})
	return nonce, err
}

func (c *Client) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	var balance *big.Int
	err := c.retryRead(ctx, "balance", func(attemptCtx context.Context) error {
		var err error
		balance, err = c.backend.BalanceAt(attemptCtx, addr, nil)
		return err
	})
	return balance, err
}

func (c *Client) Block(ctx context.Context, number *big.Int) (*types.Block, error) {
	var block *types.Block
	err := c.retryRead(ctx, "block", func(attemptCtx context.Context) error {
		var err error
		block, err = c.backend.BlockByNumber(attemptCtx, number)
		return err
	})
	return block, err
}

func (c *Client) LatestBlock(ctx context.Context) (*types.Block, error) {
	return c.Block(ctx, nil)
}

func (c *Client) Receipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt
	err := c.retryRead(ctx, "receipt", func(attemptCtx context.Context) error {
		var err error
		receipt, err = c.backend.TransactionReceipt(attemptCtx, txHash)
		return err
	})
	return receipt, err
}

// Send broadcasts a signed transaction exactly once. A transient timeout is
// logged and treated as delivered: the hash of the already-signed transaction
// is returned on the assumption the node received it despite the timeout.
// Any other error is a node rejection and propagates unmodified.
func (c *Client) Send(ctx context.Context, tx *types.Transaction) (common.Hash, error) {
	attemptCtx, cancel := c.attemptContext(ctx)
	defer cancel()
	if err := c.backend.SendTransaction(attemptCtx, tx); err != nil {
		if errkind.IsTransient(err) {
			c.logger.Warn("broadcast timed out, assuming delivered", "tx", tx.Hash().Hex(), "error", err)
			return tx.Hash(), nil
		}
		return common.Hash{}, err
	}
	return tx.Hash(), nil
}

func (c *Client) retryRead(ctx context.Context, name string, fn func(context.Context) error) error {
	return util.RetryForever(ctx, c.logger, name, errkind.IsTransient, func() error {
		attemptCtx, cancel := c.attemptContext(ctx)
		defer cancel()
		return fn(attemptCtx)
	})
}

func (c *Client) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}
