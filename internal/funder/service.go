// Package funder builds, signs, and submits transfers from the operator
// account: native currency directly, tokens as calls to the configured ERC20
// contract.
package funder

import (
	"context"
	"errors"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"fundkit/internal/account"
	"fundkit/internal/chain"
	"fundkit/internal/errkind"
	"fundkit/internal/token"
)

type Service struct {
	client *chain.Client
	token  *token.Token
	logger *slog.Logger
}

func NewService(client *chain.Client, tok *token.Token, logger *slog.Logger) *Service {
	return &Service{client: client, token: tok, logger: logger}
}

// SendEther signs and broadcasts a native-currency transfer. The nonce comes
// from the caller so batches can assign the whole sequence up front.
func (s *Service) SendEther(ctx context.Context, from *account.Account, nonce uint64, to common.Address, amount, gasPrice *big.Int, gasLimit uint64) (common.Hash, error) {
	if amount == nil || gasPrice == nil {
		return common.Hash{}, errkind.New(errkind.InvalidInput, "amount and gas price are required")
	}
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    amount,
		Gas:      gasLimit,
		GasPrice: gasPrice,
	})
	return s.signAndSend(ctx, from, tx)
}

// SendTokens signs and broadcasts a transfer(recipient, amount) call against
// the configured token contract.
func (s *Service) SendTokens(ctx context.Context, from *account.Account, nonce uint64, to common.Address, amount, gasPrice *big.Int, gasLimit uint64) (common.Hash, error) {
	if s.token == nil {
		return common.Hash{}, errkind.New(errkind.Configuration, "no token contract configured")
	}
	if gasPrice == nil {
		return common.Hash{}, errkind.New(errkind.InvalidInput, "gas price is required")
	}
	data, err := s.token.TransferData(to, amount)
	if err != nil {
		return common.Hash{}, err
	}
	contract := s.token.Address()
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &contract,
		Value:    big.NewInt(0),
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	return s.signAndSend(ctx, from, tx)
}

func (s *Service) signAndSend(ctx context.Context, from *account.Account, tx *types.Transaction) (common.Hash, error) {
	if from == nil {
		return common.Hash{}, errors.New("sender account is required")
	}
	signed, err := from.SignTx(tx)
	if err != nil {
		return common.Hash{}, err
	}
	hash, err := s.client.Send(ctx, signed)
	if err != nil {
		return common.Hash{}, err
	}
	s.logger.Info("transfer submitted",
		"tx", hash.Hex(),
		"from", from.Address().Hex(),
		"to", tx.To().Hex(),
		"nonce", tx.Nonce(),
	)
	return hash, nil
}

// WaitMined blocks until the transaction is included in a block.
func (s *Service) WaitMined(ctx context.Context, txHash common.Hash, opts chain.WaitOptions) error {
	return s.client.WaitMined(ctx, txHash, opts)
}
