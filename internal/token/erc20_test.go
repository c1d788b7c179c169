package token

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"fundkit/internal/errkind"
)

const erc20ABI = `[
  {"constant":false,"inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"},
  {"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"}
]`

func TestTransferData(t *testing.T) {
	contract := common.HexToAddress("0x5555555555555555555555555555555555555555")
	tok, err := FromJSON(contract, erc20ABI)
	if err != nil {
		t.Fatalf("FromJSON error: %v", err)
	}
	recipient := common.HexToAddress("0x2222222222222222222222222222222222222222")
	amount := big.NewInt(1000000)

	data, err := tok.TransferData(recipient, amount)
	if err != nil {
		t.Fatalf("TransferData error: %v", err)
	}
	expected := "0xa9059cbb" + hex32(recipient.Big()) + hex32(amount)
	if got := hexutil.Encode(data); got != expected {
		t.Fatalf("unexpected calldata\nexpected=%s\nactual=%s", expected, got)
	}
	if tok.Address() != contract {
		t.Fatalf("unexpected contract address: %s", tok.Address().Hex())
	}
}

func TestTransferDataInvalidAmount(t *testing.T) {
	tok, err := FromJSON(common.Address{}, erc20ABI)
	if err != nil {
		t.Fatalf("FromJSON error: %v", err)
	}
	if _, err := tok.TransferData(common.Address{}, nil); errkind.Of(err) != errkind.InvalidInput {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := tok.TransferData(common.Address{}, big.NewInt(-1)); errkind.Of(err) != errkind.InvalidInput {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "erc20.json")
	if err := os.WriteFile(path, []byte(erc20ABI), 0o644); err != nil {
		t.Fatalf("write abi: %v", err)
	}
	if _, err := Load(common.Address{}, path); err != nil {
		t.Fatalf("Load error: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(common.Address{}, filepath.Join(t.TempDir(), "missing.json"))
	if errkind.Of(err) != errkind.Configuration {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestLoadABIWithoutTransfer(t *testing.T) {
	_, err := FromJSON(common.Address{}, `[{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"}]`)
	if errkind.Of(err) != errkind.Configuration {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

// rpcStub serves eth_call over JSON-RPC, answering by calldata selector.
func rpcStub(t *testing.T, results map[string]string) *rpc.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage   `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if req.Method != "eth_call" || len(req.Params) == 0 {
			t.Errorf("unexpected request: method=%s params=%d", req.Method, len(req.Params))
			return
		}
		var call struct {
			Data string `json:"data"`
		}
		if err := json.Unmarshal(req.Params[0], &call); err != nil {
			t.Errorf("decode call object: %v", err)
			return
		}
		result, ok := results[call.Data[:10]]
		if !ok {
			t.Errorf("unexpected selector in calldata %s", call.Data)
			return
		}
		resp, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
		_, _ = w.Write(resp)
	}))
	t.Cleanup(srv.Close)
	client, err := rpc.DialHTTP(srv.URL)
	if err != nil {
		t.Fatalf("dial stub: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

func TestBalanceOf(t *testing.T) {
	owner := common.HexToAddress("0x2222222222222222222222222222222222222222")
	client := rpcStub(t, map[string]string{
		"0x70a08231": "0x" + hex32(big.NewInt(1500)),
	})
	tok, err := FromJSON(common.HexToAddress("0x5555555555555555555555555555555555555555"), erc20ABI)
	if err != nil {
		t.Fatalf("FromJSON error: %v", err)
	}
	bal, err := tok.BalanceOf(context.Background(), client, owner)
	if err != nil {
		t.Fatalf("BalanceOf error: %v", err)
	}
	if bal.Cmp(big.NewInt(1500)) != 0 {
		t.Fatalf("unexpected balance: %s", bal)
	}
}

func TestBalanceOfZeroResult(t *testing.T) {
	// Some nodes answer an empty word for a zero balance.
	client := rpcStub(t, map[string]string{"0x70a08231": "0x"})
	tok, err := FromJSON(common.Address{}, erc20ABI)
	if err != nil {
		t.Fatalf("FromJSON error: %v", err)
	}
	bal, err := tok.BalanceOf(context.Background(), client, common.Address{})
	if err != nil {
		t.Fatalf("BalanceOf error: %v", err)
	}
	if bal.Sign() != 0 {
		t.Fatalf("expected zero balance, got %s", bal)
	}
}

func TestDecimals(t *testing.T) {
	client := rpcStub(t, map[string]string{
		"0x313ce567": "0x" + hex32(big.NewInt(18)),
	})
	tok, err := FromJSON(common.Address{}, erc20ABI)
	if err != nil {
		t.Fatalf("FromJSON error: %v", err)
	}
	decimals, err := tok.Decimals(context.Background(), client)
	if err != nil {
		t.Fatalf("Decimals error: %v", err)
	}
	if decimals != 18 {
		t.Fatalf("unexpected decimals: %d", decimals)
	}
}

func TestDecimalsOutOfRange(t *testing.T) {
	client := rpcStub(t, map[string]string{
		"0x313ce567": "0x" + hex32(big.NewInt(300)),
	})
	tok, err := FromJSON(common.Address{}, erc20ABI)
	if err != nil {
		t.Fatalf("FromJSON error: %v", err)
	}
	if _, err := tok.Decimals(context.Background(), client); err == nil || !strings.Contains(err.Error(), "out of range") {
		t.Fatalf("expected out-of-range error, got %v", err)
	}
}

func hex32(v *big.Int) string {
	return hexutil.Encode(common.LeftPadBytes(v.Bytes(), 32))[2:]
}
