// Package account wraps a signing key and the in-memory nonce counter that
// sequences its outgoing transactions. Once seeded, the counter is the sole
// source of truth for the next nonce: it is never re-read from the node
// during the process lifetime, so pending unconfirmed transactions cannot
// race the sequence.
package account

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"fundkit/internal/chain"
)

type Account struct {
	key     *ecdsa.PrivateKey
	address common.Address
	signer  types.Signer
	client  *chain.Client

	mu   sync.Mutex
	next uint64
}

// New builds an account with an explicit starting nonce.
func New(client *chain.Client, privateKeyHex string, chainID *big.Int, startNonce uint64) (*Account, error) {
	key, err := parseKey(privateKeyHex)
	if err != nil {
		return nil, err
	}
	return fromKey(client, key, chainID, startNonce), nil
}

// Init builds an account and seeds the nonce counter from the node's
// transaction count for the derived address. The fetch follows the standard
// read-query retry policy.
func Init(ctx context.Context, client *chain.Client, privateKeyHex string, chainID *big.Int) (*Account, error) {
	key, err := parseKey(privateKeyHex)
	if err != nil {
		return nil, err
	}
	a := fromKey(client, key, chainID, 0)
	nonce, err := client.Nonce(ctx, a.address)
	if err != nil {
		return nil, err
	}
	a.next = nonce
	return a, nil
}

// Generate creates an account with a fresh key and a zero nonce, for
// throwaway recipients in tests and load runs.
func Generate(client *chain.Client, chainID *big.Int) (*Account, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return fromKey(client, key, chainID, 0), nil
}

func fromKey(client *chain.Client, key *ecdsa.PrivateKey, chainID *big.Int, startNonce uint64) *Account {
	return &Account{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		signer:  types.LatestSignerForChainID(chainID),
		client:  client,
		next:    startNonce,
	}
}

func (a *Account) Address() common.Address {
	return a.address
}

// NextNonce returns the current counter value and advances it by one.
// Get-and-increment is atomic so concurrent senders sharing the handle still
// get unique, gapless nonces.
func (a *Account) NextNonce() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.next
	a.next++
	return n
}

func (a *Account) Balance(ctx context.Context) (*big.Int, error) {
	if a.client == nil {
		return nil, errors.New("account has no node client")
	}
	return a.client.Balance(ctx, a.address)
}

func (a *Account) SignTx(tx *types.Transaction) (*types.Transaction, error) {
	return types.SignTx(tx, a.signer, a.key)
}

func (a *Account) PrivateKeyHex() string {
	return "0x" + hex.EncodeToString(crypto.FromECDSA(a.key))
}

func parseKey(privateKeyHex string) (*ecdsa.PrivateKey, error) {
	privateKeyHex = strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	if privateKeyHex == "" {
		return nil, errors.New("private key is required")
	}
	return crypto.HexToECDSA(privateKeyHex)
}
