package chain

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"fundkit/internal/config"
	"fundkit/internal/errkind"
)

// Dial connects to the node, preferring the IPC socket when configured and
// falling back to HTTP.
func Dial(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*rpc.Client, *ethclient.Client, error) {
	if cfg.RPC.IPC != "" {
		rpcClient, err := rpc.DialIPC(ctx, cfg.RPC.IPC)
		if err == nil {
			logger.Info("node connected", "transport", "ipc", "path", cfg.RPC.IPC)
			return rpcClient, ethclient.NewClient(rpcClient), nil
		}
		if cfg.RPC.HTTP == "" {
			return nil, nil, err
		}
		logger.Warn("ipc dial failed, falling back to http", "error", err)
	}
	if cfg.RPC.HTTP == "" {
		return nil, nil, errkind.New(errkind.Configuration, "no node endpoint configured")
	}
	httpClient := &http.Client{
		Timeout: cfg.RequestTimeout.Duration,
	}
	rpcClient, err := rpc.DialHTTPWithClient(cfg.RPC.HTTP, httpClient)
	if err != nil {
		return nil, nil, err
	}
	rpcClient.SetHeader("User-Agent", "fundkit")
	logger.Info("node connected", "transport", "http", "url", cfg.RPC.HTTP)
	return rpcClient, ethclient.NewClient(rpcClient), nil
}
