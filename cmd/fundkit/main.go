package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"fundkit/internal/account"
	"fundkit/internal/app"
	"fundkit/internal/chain"
	"fundkit/internal/config"
	"fundkit/internal/csvlog"
	"fundkit/internal/funder"
)

const usage = `usage: fundkit [-config config.yaml] <command> [flags]

commands:
  balance      show ether (or token) balance of an address
  block        show a block by number (latest by default)
  gasprice     fetch a gas price estimate from the gas station
  new-account  generate a throwaway account
  send         send native currency from the funder account
  send-token   send tokens from the funder account
  wait         block until a transaction is mined
  batch        fund a list of recipients and log results to CSV
`

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	if err := run(ctx, application, args[0], args[1:]); err != nil {
		logger.Error("command failed", "command", args[0], "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, command string, args []string) error {
	switch command {
	case "balance":
		return runBalance(ctx, a, args)
	case "block":
		return runBlock(ctx, a, args)
	case "gasprice":
		return runGasPrice(ctx, a, args)
	case "new-account":
		return runNewAccount(a)
	case "send":
		return runSend(ctx, a, args, false)
	case "send-token":
		return runSend(ctx, a, args, true)
	case "wait":
		return runWait(ctx, a, args)
	case "batch":
		return runBatch(ctx, a, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func runBalance(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	address := fs.String("address", "", "address to query (defaults to the funder account)")
	asToken := fs.Bool("token", false, "query the token balance instead of ether")
	if err := fs.Parse(args); err != nil {
		return err
	}

	addr := a.Operator.Address()
	if *address != "" {
		if !common.IsHexAddress(*address) {
			return fmt.Errorf("invalid address %q", *address)
		}
		addr = common.HexToAddress(*address)
	}

	if *asToken {
		if a.Token == nil {
			return errors.New("no token contract configured")
		}
		bal, err := a.Token.BalanceOf(ctx, a.RPCClient, addr)
		if err != nil {
			return err
		}
		decimals, err := a.Token.Decimals(ctx, a.RPCClient)
		if err != nil {
			return err
		}
		fmt.Printf("%s token balance: %s (decimals: %d)\n", addr.Hex(), bal, decimals)
		return nil
	}
	bal, err := a.Client.Balance(ctx, addr)
	if err != nil {
		return err
	}
	fmt.Printf("%s balance: %s wei (%.6f ether)\n", addr.Hex(), bal, chain.WeiToEther(bal))
	return nil
}

func runBlock(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("block", flag.ExitOnError)
	number := fs.Int64("number", -1, "block number (-1 for latest)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var block *types.Block
	var err error
	if *number >= 0 {
		block, err = a.Client.Block(ctx, big.NewInt(*number))
	} else {
		block, err = a.Client.LatestBlock(ctx)
	}
	if err != nil {
		return err
	}
	fmt.Printf("block %d hash=%s txs=%d time=%d\n",
		block.NumberU64(), block.Hash().Hex(), len(block.Transactions()), block.Time())
	return nil
}

func runNewAccount(a *app.App) error {
	acct, err := account.Generate(a.Client, new(big.Int).SetUint64(a.Cfg.ChainID))
	if err != nil {
		return err
	}
	fmt.Printf("address: %s\nprivate key: %s\n", acct.Address().Hex(), acct.PrivateKeyHex())
	return nil
}

func runGasPrice(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("gasprice", flag.ExitOnError)
	threshold := fs.String("threshold", "", "estimate tier (defaults to the configured one)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tier := *threshold
	if tier == "" {
		tier = a.Cfg.GasStation.DefaultThreshold
	}
	price, err := a.Gas.GasPrice(ctx, tier)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s wei (%.2f gwei)\n", tier, price, chain.WeiToGwei(price))
	return nil
}

func runSend(ctx context.Context, a *app.App, args []string, asToken bool) error {
	name := "send"
	defaultGasLimit := uint64(21000)
	if asToken {
		name = "send-token"
		defaultGasLimit = 60000
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	to := fs.String("to", "", "recipient address")
	amountWei := fs.String("amount-wei", "", "amount in the smallest unit")
	gasPriceWei := fs.String("gas-price-wei", "", "gas price in wei (defaults to the gas station estimate)")
	gasLimit := fs.Uint64("gas-limit", defaultGasLimit, "gas limit")
	wait := fs.Bool("wait", false, "block until mined")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !common.IsHexAddress(*to) {
		return fmt.Errorf("invalid recipient %q", *to)
	}
	amount, err := parseWei(*amountWei, "amount-wei")
	if err != nil {
		return err
	}
	gasPrice, err := resolveGasPrice(ctx, a, *gasPriceWei)
	if err != nil {
		return err
	}

	nonce := a.Operator.NextNonce()
	var hash common.Hash
	if asToken {
		hash, err = a.Transfers.SendTokens(ctx, a.Operator, nonce, common.HexToAddress(*to), amount, gasPrice, *gasLimit)
	} else {
		hash, err = a.Transfers.SendEther(ctx, a.Operator, nonce, common.HexToAddress(*to), amount, gasPrice, *gasLimit)
	}
	if err != nil {
		return err
	}
	fmt.Printf("submitted %s (nonce %d)\n", hash.Hex(), nonce)

	if *wait {
		if err := a.Client.WaitMined(ctx, hash, a.WaitOptions()); err != nil {
			return err
		}
		fmt.Println("mined")
	}
	return nil
}

func runWait(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("wait", flag.ExitOnError)
	tx := fs.String("tx", "", "transaction hash")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !strings.HasPrefix(*tx, "0x") || len(*tx) != 66 {
		return fmt.Errorf("invalid tx hash %q", *tx)
	}
	if err := a.Client.WaitMined(ctx, common.HexToHash(*tx), a.WaitOptions()); err != nil {
		return err
	}
	fmt.Println("mined")
	return nil
}

func runBatch(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	recipientsPath := fs.String("recipients", "", "file with one address,amount_wei per line")
	asToken := fs.Bool("token", false, "send tokens instead of native currency")
	gasPriceWei := fs.String("gas-price-wei", "", "gas price in wei (defaults to the gas station estimate)")
	gasLimit := fs.Uint64("gas-limit", 0, "gas limit (defaults to 21000, or 60000 for tokens)")
	out := fs.String("out", "", "results CSV path (defaults to the configured output)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *recipientsPath == "" {
		return errors.New("-recipients is required")
	}
	transfers, err := loadRecipients(*recipientsPath, *asToken)
	if err != nil {
		return err
	}
	gasPrice, err := resolveGasPrice(ctx, a, *gasPriceWei)
	if err != nil {
		return err
	}
	limit := *gasLimit
	if limit == 0 {
		if *asToken {
			limit = 60000
		} else {
			limit = 21000
		}
	}
	outPath := *out
	if outPath == "" {
		outPath = a.Cfg.Output.CSVPath
	}
	csv, err := csvlog.New(outPath, funder.BatchColumns())
	if err != nil {
		return err
	}

	report, err := a.Transfers.SendBatch(ctx, a.Operator, transfers, gasPrice, limit, a.WaitOptions(), csv)
	if err != nil {
		return err
	}
	confirmed := 0
	for _, r := range report.Results {
		if r.Err == nil {
			confirmed++
		}
	}
	fmt.Printf("confirmed %d/%d transfers, results in %s\n", confirmed, len(report.Results), csv.Path())
	for _, k := range []string{"p50", "p90", "p99"} {
		if v, ok := report.LatencyQuantiles[k]; ok {
			fmt.Printf("latency %s: %.2fs\n", k, v)
		}
	}
	return nil
}

func loadRecipients(path string, asToken bool) ([]funder.Transfer, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var transfers []funder.Transfer
	for i, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: expected address,amount_wei", i+1)
		}
		addr := strings.TrimSpace(parts[0])
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("line %d: invalid address %q", i+1, addr)
		}
		amount, err := parseWei(strings.TrimSpace(parts[1]), "amount")
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		transfers = append(transfers, funder.Transfer{
			To:     common.HexToAddress(addr),
			Amount: amount,
			Token:  asToken,
		})
	}
	if len(transfers) == 0 {
		return nil, errors.New("recipients file is empty")
	}
	return transfers, nil
}

func resolveGasPrice(ctx context.Context, a *app.App, raw string) (*big.Int, error) {
	if raw != "" {
		return parseWei(raw, "gas-price-wei")
	}
	return a.Gas.GasPrice(ctx, a.Cfg.GasStation.DefaultThreshold)
}

func parseWei(value, name string) (*big.Int, error) {
	if value == "" {
		return nil, fmt.Errorf("-%s is required", name)
	}
	v, ok := new(big.Int).SetString(value, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid %s %q", name, value)
	}
	return v, nil
}
