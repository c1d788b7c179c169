// Package app assembles the process-wide handles (node connection, operator
// account, token contract, gas station client) into one explicit context
// built once at startup and passed to whatever needs it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/sync/errgroup"

	"fundkit/internal/account"
	"fundkit/internal/api"
	"fundkit/internal/chain"
	"fundkit/internal/config"
	"fundkit/internal/errkind"
	"fundkit/internal/funder"
	"fundkit/internal/gasstation"
	"fundkit/internal/token"
)

type App struct {
	Cfg       *config.Config
	Logger    *slog.Logger
	RPCClient *rpc.Client
	EthClient *ethclient.Client
	Client    *chain.Client
	Operator  *account.Account
	Token     *token.Token
	Gas       *gasstation.Client
	Transfers *funder.Service
}

// New dials the node, loads the operator key from the configured environment
// variable, seeds the nonce counter from the node, and loads the token
// contract when one is configured.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	rpcClient, ethClient, err := chain.Dial(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	client := chain.NewClient(ethClient, logger, cfg.RequestTimeout.Duration)

	keyHex := os.Getenv(cfg.Funder.KeyEnv)
	if keyHex == "" {
		rpcClient.Close()
		return nil, errkind.New(errkind.Configuration,
			fmt.Sprintf("funder key env %s is not set", cfg.Funder.KeyEnv))
	}
	chainID := new(big.Int).SetUint64(cfg.ChainID)
	operator, err := account.Init(ctx, client, keyHex, chainID)
	if err != nil {
		rpcClient.Close()
		return nil, err
	}
	logger.Info("operator account ready", "address", operator.Address().Hex())

	var tok *token.Token
	if cfg.Token.Address != "" {
		tok, err = token.Load(common.HexToAddress(cfg.Token.Address), cfg.Token.ABIPath)
		if err != nil {
			rpcClient.Close()
			return nil, err
		}
		logger.Info("token contract loaded", "address", cfg.Token.Address)
	}

	gas := gasstation.New(&http.Client{Timeout: cfg.RequestTimeout.Duration}, cfg.GasStation.URL, *cfg.GasStation.ScalePow10)

	return &App{
		Cfg:       cfg,
		Logger:    logger,
		RPCClient: rpcClient,
		EthClient: ethClient,
		Client:    client,
		Operator:  operator,
		Token:     tok,
		Gas:       gas,
		Transfers: funder.NewService(client, tok, logger),
	}, nil
}

func (a *App) Close() {
	if a.RPCClient != nil {
		a.RPCClient.Close()
	}
}

// Run serves the HTTP API until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	server := api.NewServer(a.Cfg, a.Logger, a.Transfers, a.Operator, a.Client, a.RPCClient, a.Gas, a.Token)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.Info("api starting", "listen", a.Cfg.API.Listen)
		return server.Start(gctx)
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	return nil
}

// WaitOptions returns the configured confirmation polling options.
func (a *App) WaitOptions() chain.WaitOptions {
	return chain.WaitOptions{
		PollInterval: a.Cfg.Confirm.PollInterval.Duration,
		MaxWait:      a.Cfg.Confirm.MaxWait.Duration,
	}
}
