package funder

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"fundkit/internal/account"
	"fundkit/internal/chain"
	"fundkit/internal/csvlog"
	"fundkit/internal/stats"
)

// Transfer is one entry in a batch funding run.
type Transfer struct {
	To     common.Address
	Amount *big.Int
	// Token routes the transfer through the ERC20 contract instead of
	// sending native currency.
	Token bool
}

type TransferResult struct {
	To      common.Address
	Amount  *big.Int
	Token   bool
	TxHash  common.Hash
	Latency time.Duration
	Err     error
}

type BatchReport struct {
	Results []TransferResult
	// Latency quantiles in seconds over the confirmed transfers,
	// keyed p50/p90/p99. Empty when nothing confirmed.
	LatencyQuantiles map[string]float64
}

var batchColumns = []string{"to", "amount", "token", "tx_hash", "latency_seconds", "error"}

// BatchColumns returns the column set SendBatch writes, for callers creating
// the results file themselves.
func BatchColumns() []string {
	return append([]string(nil), batchColumns...)
}

// SendBatch submits the transfers sequentially so nonces are assigned in
// order, then waits for confirmations concurrently. Results are appended to
// csv when it is non-nil. A submission failure stops the batch (a gap in the
// nonce sequence would stall everything behind it); confirmation failures
// are recorded per transfer.
func (s *Service) SendBatch(ctx context.Context, from *account.Account, transfers []Transfer, gasPrice *big.Int, gasLimit uint64, wait chain.WaitOptions, csv *csvlog.Writer) (*BatchReport, error) {
	results := make([]TransferResult, len(transfers))
	submitted := make([]time.Time, len(transfers))

	for i, tr := range transfers {
		nonce := from.NextNonce()
		var (
			hash common.Hash
			err  error
		)
		submitted[i] = time.Now()
		if tr.Token {
			hash, err = s.SendTokens(ctx, from, nonce, tr.To, tr.Amount, gasPrice, gasLimit)
		} else {
			hash, err = s.SendEther(ctx, from, nonce, tr.To, tr.Amount, gasPrice, gasLimit)
		}
		results[i] = TransferResult{To: tr.To, Amount: tr.Amount, Token: tr.Token, TxHash: hash, Err: err}
		if err != nil {
			return nil, err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range results {
		i := i
		g.Go(func() error {
			err := s.client.WaitMined(gctx, results[i].TxHash, wait)
			results[i].Latency = time.Since(submitted[i])
			results[i].Err = err
			return nil
		})
	}
	_ = g.Wait()

	report := &BatchReport{Results: results}
	latencies := make([]float64, 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			latencies = append(latencies, r.Latency.Seconds())
		}
	}
	if len(latencies) > 0 {
		weights := make([]float64, len(latencies))
		for i := range weights {
			weights[i] = 1
		}
		qs, err := stats.WeightedQuantiles(latencies, weights, []float64{0.5, 0.9, 0.99})
		if err == nil {
			report.LatencyQuantiles = map[string]float64{
				"p50": qs[0],
				"p90": qs[1],
				"p99": qs[2],
			}
		}
	}

	if csv != nil {
		rows := make([][]any, 0, len(results))
		for _, r := range results {
			errMsg := ""
			if r.Err != nil {
				errMsg = r.Err.Error()
			}
			rows = append(rows, []any{
				r.To.Hex(),
				r.Amount,
				r.Token,
				r.TxHash.Hex(),
				r.Latency.Seconds(),
				errMsg,
			})
		}
		if err := csv.AppendAll(rows); err != nil {
			s.logger.Error("batch csv append failed", "error", err)
		}
	}
	return report, nil
}
