package chain

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

type WaitOptions struct {
	// PollInterval between receipt queries. Defaults to one second.
	PollInterval time.Duration
	// MaxWait bounds the whole wait. Zero means block until mined, which can
	// be forever if the transaction is dropped from the mempool.
	MaxWait time.Duration
}

// WaitMined blocks until the transaction has a receipt with a block number.
// Confirmation is a boolean fact: callers wanting receipt details query it
// themselves afterwards.
func (c *Client) WaitMined(ctx context.Context, txHash common.Hash, opts WaitOptions) error {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	if opts.MaxWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.MaxWait)
		defer cancel()
	}
	for {
		receipt, err := c.Receipt(ctx, txHash)
		if err == nil && receipt != nil && receipt.BlockNumber != nil {
			return nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
