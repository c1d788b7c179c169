// Package token holds the handle to the fixed ERC20 contract transfers are
// routed through. The contract interface is loaded once at startup from a
// JSON description file.
package token

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"fundkit/internal/errkind"
)

var (
	selectorBalanceOf = mustSelector("0x70a08231")
	selectorDecimals  = mustSelector("0x313ce567")
)

type Token struct {
	address common.Address
	abi     abi.ABI
}

// Load reads the contract interface description from abiPath. A missing or
// unreadable file is a configuration error: nothing can be sent without it.
func Load(address common.Address, abiPath string) (*Token, error) {
	data, err := os.ReadFile(abiPath)
	if err != nil {
		return nil, errkind.Wrap(errkind.Configuration, fmt.Errorf("read token abi: %w", err))
	}
	return FromJSON(address, string(data))
}

func FromJSON(address common.Address, abiJSON string) (*Token, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, errkind.Wrap(errkind.Configuration, fmt.Errorf("parse token abi: %w", err))
	}
	if _, ok := parsed.Methods["transfer"]; !ok {
		return nil, errkind.New(errkind.Configuration, "token abi has no transfer method")
	}
	return &Token{address: address, abi: parsed}, nil
}

func (t *Token) Address() common.Address {
	return t.address
}

// TransferData packs the calldata for transfer(recipient, amount).
func (t *Token) TransferData(recipient common.Address, amount *big.Int) ([]byte, error) {
	if amount == nil {
		return nil, errkind.New(errkind.InvalidInput, "amount is required")
	}
	if amount.Sign() < 0 {
		return nil, errkind.New(errkind.InvalidInput, "amount must be non-negative")
	}
	return t.abi.Pack("transfer", recipient, amount)
}

func (t *Token) BalanceOf(ctx context.Context, rpcClient *rpc.Client, owner common.Address) (*big.Int, error) {
	if rpcClient == nil {
		return nil, errors.New("rpc client is nil")
	}
	data := append([]byte{}, selectorBalanceOf...)
	data = append(data, common.LeftPadBytes(owner.Bytes(), 32)...)
	call := map[string]string{
		"to":   t.address.Hex(),
		"data": hexutil.Encode(data),
	}
	var out string
	if err := rpcClient.CallContext(ctx, &out, "eth_call", call, "latest"); err != nil {
		return nil, err
	}
	return decodeHexBig(out)
}

func (t *Token) Decimals(ctx context.Context, rpcClient *rpc.Client) (uint8, error) {
	if rpcClient == nil {
		return 0, errors.New("rpc client is nil")
	}
	call := map[string]string{
		"to":   t.address.Hex(),
		"data": hexutil.Encode(append([]byte{}, selectorDecimals...)),
	}
	var out string
	if err := rpcClient.CallContext(ctx, &out, "eth_call", call, "latest"); err != nil {
		return 0, err
	}
	v, err := decodeHexBig(out)
	if err != nil {
		return 0, err
	}
	if v.Sign() < 0 || v.BitLen() > 8 {
		return 0, fmt.Errorf("decimals out of range: %s", v.String())
	}
	return uint8(v.Uint64()), nil
}

func decodeHexBig(value string) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, errors.New("hex value is empty")
	}
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		value = value[2:]
	}
	value = strings.TrimLeft(value, "0")
	if value == "" {
		return big.NewInt(0), nil
	}
	if len(value)%2 == 1 {
		value = "0" + value
	}
	v, ok := new(big.Int).SetString(value, 16)
	if !ok {
		return nil, errors.New("invalid hex number")
	}
	return v, nil
}

func mustSelector(hex string) []byte {
	b, err := hexutil.Decode(hex)
	if err != nil {
		panic(err)
	}
	if len(b) != 4 {
		panic("selector must be 4 bytes")
	}
	return b
}
