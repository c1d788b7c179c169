// Package gasstation queries an ethgasstation-style HTTP endpoint for gas
// price estimates. One GET per call: no retry, no caching, no fallback.
package gasstation

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
)

const DefaultThreshold = "safeLow"

type Client struct {
	httpClient *http.Client
	url        string
	scale      *big.Int
}

// New builds a client for the estimation endpoint at url. scalePow10 converts
// the station's reporting unit to wei; the classic ethgasstation API reports
// tenths of gwei, so the factor is 10^8.
func New(httpClient *http.Client, url string, scalePow10 int) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(scalePow10)), nil)
	return &Client{httpClient: httpClient, url: url, scale: scale}
}

// GasPrice fetches the estimate tier named by threshold and returns it in wei.
func (c *Client) GasPrice(ctx context.Context, threshold string) (*big.Int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gas station returned status %d", res.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode gas station response: %w", err)
	}
	raw, ok := body[threshold]
	if !ok {
		return nil, fmt.Errorf("gas station response has no %q field", threshold)
	}
	v, ok := raw.(float64)
	if !ok {
		return nil, fmt.Errorf("gas station field %q is not numeric", threshold)
	}
	wei, _ := new(big.Float).Mul(big.NewFloat(v), new(big.Float).SetInt(c.scale)).Int(nil)
	return wei, nil
}

// SafeLow returns the estimate for the cheapest tier the station considers
// safe.
func (c *Client) SafeLow(ctx context.Context) (*big.Int, error) {
	return c.GasPrice(ctx, DefaultThreshold)
}
