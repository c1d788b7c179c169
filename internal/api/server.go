package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"

	"fundkit/internal/account"
	"fundkit/internal/chain"
	"fundkit/internal/config"
	"fundkit/internal/errkind"
	"fundkit/internal/funder"
	"fundkit/internal/gasstation"
	"fundkit/internal/token"
)

type Server struct {
	cfg       *config.Config
	logger    *slog.Logger
	funder    *funder.Service
	operator  *account.Account
	client    *chain.Client
	rpcClient *rpc.Client
	gas       *gasstation.Client
	token     *token.Token
}

func NewServer(cfg *config.Config, logger *slog.Logger, svc *funder.Service, operator *account.Account, client *chain.Client, rpcClient *rpc.Client, gas *gasstation.Client, tok *token.Token) *Server {
	return &Server{
		cfg:       cfg,
		logger:    logger,
		funder:    svc,
		operator:  operator,
		client:    client,
		rpcClient: rpcClient,
		gas:       gas,
		token:     tok,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.withAuth(s.handleHealth))
	mux.HandleFunc("/balance", s.withAuth(s.handleBalance))
	mux.HandleFunc("/gasprice", s.withAuth(s.handleGasPrice))
	mux.HandleFunc("/send", s.withAuth(s.handleSend))
	mux.HandleFunc("/send/token", s.withAuth(s.handleSendToken))
	mux.HandleFunc("/wait", s.withAuth(s.handleWait))
	return mux
}

func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.API.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctxTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctxTimeout)
	}()
	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.API.AuthToken != "" {
			token := r.Header.Get("X-API-Key")
			if token == "" {
				auth := r.Header.Get("Authorization")
				if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
					token = strings.TrimSpace(auth[7:])
				}
			}
			if token != s.cfg.API.AuthToken {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	addr := s.operator.Address()
	if v := r.URL.Query().Get("address"); v != "" {
		parsed, err := parseAddress(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		addr = parsed
	}
	if r.URL.Query().Get("token") != "" {
		if s.token == nil {
			writeError(w, http.StatusBadRequest, "no token contract configured")
			return
		}
		bal, err := s.token.BalanceOf(r.Context(), s.rpcClient, addr)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		decimals, err := s.token.Decimals(r.Context(), s.rpcClient)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"address":  addr.Hex(),
			"token":    s.token.Address().Hex(),
			"balance":  bal.String(),
			"decimals": decimals,
		})
		return
	}
	bal, err := s.client.Balance(r.Context(), addr)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"address":     addr.Hex(),
		"balance_wei": bal.String(),
		"ether":       chain.WeiToEther(bal),
	})
}

func (s *Server) handleGasPrice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	threshold := r.URL.Query().Get("threshold")
	if threshold == "" {
		threshold = s.cfg.GasStation.DefaultThreshold
	}
	price, err := s.gas.GasPrice(r.Context(), threshold)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"threshold": threshold,
		"wei":       price.String(),
		"gwei":      chain.WeiToGwei(price),
	})
}

type sendRequest struct {
	To          string `json:"to"`
	AmountWei   string `json:"amount_wei"`
	GasPriceWei string `json:"gas_price_wei,omitempty"`
	GasLimit    uint64 `json:"gas_limit,omitempty"`
	Wait        bool   `json:"wait,omitempty"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	s.handleTransfer(w, r, false)
}

func (s *Server) handleSendToken(w http.ResponseWriter, r *http.Request) {
	s.handleTransfer(w, r, true)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request, asToken bool) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req sendRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseAddress(req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := parseBigInt(req.AmountWei, "amount_wei")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	gasPrice, err := s.resolveGasPrice(r.Context(), req.GasPriceWei)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	gasLimit := req.GasLimit
	if gasLimit == 0 {
		if asToken {
			gasLimit = 60000
		} else {
			gasLimit = 21000
		}
	}
	nonce := s.operator.NextNonce()
	var hash common.Hash
	if asToken {
		hash, err = s.funder.SendTokens(r.Context(), s.operator, nonce, to, amount, gasPrice, gasLimit)
	} else {
		hash, err = s.funder.SendEther(r.Context(), s.operator, nonce, to, amount, gasPrice, gasLimit)
	}
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if req.Wait {
		opts := chain.WaitOptions{
			PollInterval: s.cfg.Confirm.PollInterval.Duration,
			MaxWait:      s.cfg.Confirm.MaxWait.Duration,
		}
		if err := s.client.WaitMined(r.Context(), hash, opts); err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"tx_hash": hash.Hex(), "mined": false, "wait_error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tx_hash": hash.Hex(), "mined": true, "nonce": nonce})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tx_hash": hash.Hex(), "nonce": nonce})
}

type waitRequest struct {
	TxHash string `json:"tx_hash"`
}

func (s *Server) handleWait(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req waitRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !strings.HasPrefix(req.TxHash, "0x") || len(req.TxHash) != 66 {
		writeError(w, http.StatusBadRequest, "invalid tx hash")
		return
	}
	opts := chain.WaitOptions{
		PollInterval: s.cfg.Confirm.PollInterval.Duration,
		MaxWait:      s.cfg.Confirm.MaxWait.Duration,
	}
	if err := s.client.WaitMined(r.Context(), common.HexToHash(req.TxHash), opts); err != nil {
		writeError(w, http.StatusGatewayTimeout, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tx_hash": req.TxHash, "mined": true})
}

func (s *Server) resolveGasPrice(ctx context.Context, raw string) (*big.Int, error) {
	if raw != "" {
		return parseBigInt(raw, "gas_price_wei")
	}
	return s.gas.GasPrice(ctx, s.cfg.GasStation.DefaultThreshold)
}

func readJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer r.Body.Close()
	b, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if len(b) == 0 {
		return errors.New("empty body")
	}
	return json.Unmarshal(b, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// statusFor maps an error's kind to an HTTP status: caller mistakes are 400,
// local misconfiguration is 500, everything coming back from the node (a
// rejection or an unclassified upstream failure) is 502.
func statusFor(err error) int {
	switch errkind.Of(err) {
	case errkind.InvalidInput:
		return http.StatusBadRequest
	case errkind.Configuration:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func parseAddress(value string) (common.Address, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return common.Address{}, errors.New("address is required")
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, errors.New("invalid address")
	}
	return common.HexToAddress(value), nil
}

func parseBigInt(value, field string) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, errors.New(field + " is required")
	}
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, errors.New("invalid " + field)
	}
	if v.Sign() < 0 {
		return nil, errors.New(field + " must be non-negative")
	}
	return v, nil
}
