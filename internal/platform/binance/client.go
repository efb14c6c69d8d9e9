// Package binance is the REST and WebSocket client layer for the exchange's
// spot API: signed order placement, account balances, average prices, and the
// per-symbol kline stream.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/minutebar/candlebot/internal/crypto"
	"github.com/minutebar/candlebot/internal/domain"
)

// Client is the REST client for the exchange spot API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	auth       *crypto.HMACAuth
	// now is swappable for deterministic signing in tests.
	now func() time.Time
}

// NewClient creates a REST client.
//
// baseURL is the API root, e.g. "https://api.binance.com" (or the testnet
// host "https://testnet.binance.vision").
func NewClient(baseURL string, auth *crypto.HMACAuth) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		auth: auth,
		now:  time.Now,
	}
}

// CreateOrder submits one market order and returns the exchange's ack. The
// fill list in the ack may be empty; callers must tolerate that. No retry is
// attempted on failure.
func (c *Client) CreateOrder(ctx context.Context, symbol string, side domain.OrderSide, typ domain.OrderType, quantity float64) (domain.OrderAck, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", string(side))
	params.Set("type", string(typ))
	params.Set("quantity", strconv.FormatFloat(quantity, 'f', -1, 64))

	respBody, err := c.doSignedRequest(ctx, http.MethodPost, "/api/v3/order", params)
	if err != nil {
		return domain.OrderAck{}, fmt.Errorf("binance: create order: %w: %v", domain.ErrOrderRejected, err)
	}

	var apiResp APIOrderResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return domain.OrderAck{}, fmt.Errorf("binance: decode order response: %w", err)
	}
	return apiResp.ToDomainAck(), nil
}

// FreeBalance returns the free (unlocked) balance of one asset.
func (c *Client) FreeBalance(ctx context.Context, asset string) (float64, error) {
	respBody, err := c.doSignedRequest(ctx, http.MethodGet, "/api/v3/account", url.Values{})
	if err != nil {
		return 0, fmt.Errorf("binance: get account: %w", err)
	}

	var account apiAccount
	if err := json.Unmarshal(respBody, &account); err != nil {
		return 0, fmt.Errorf("binance: decode account: %w", err)
	}
	for _, b := range account.Balances {
		if b.Asset != asset {
			continue
		}
		free, err := strconv.ParseFloat(b.Free, 64)
		if err != nil {
			return 0, fmt.Errorf("binance: parse balance %s=%q: %w", asset, b.Free, err)
		}
		return free, nil
	}
	return 0, fmt.Errorf("binance: balance for %s: %w", asset, domain.ErrNotFound)
}

// AvgPrice returns the current average price for a symbol. This endpoint is
// public and unsigned.
func (c *Client) AvgPrice(ctx context.Context, symbol string) (float64, error) {
	endpoint := fmt.Sprintf("%s/api/v3/avgPrice?symbol=%s", c.baseURL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("binance: build avg price request: %w", err)
	}

	respBody, err := c.do(req)
	if err != nil {
		return 0, fmt.Errorf("binance: avg price %s: %w", symbol, err)
	}

	var avg apiAvgPrice
	if err := json.Unmarshal(respBody, &avg); err != nil {
		return 0, fmt.Errorf("binance: decode avg price: %w", err)
	}
	price, err := strconv.ParseFloat(avg.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("binance: parse avg price %q: %w", avg.Price, err)
	}
	return price, nil
}

// doSignedRequest appends the timestamp, signs the query string, and executes
// the request with the API key header set.
func (c *Client) doSignedRequest(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	params.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
	query := params.Encode()
	query += "&signature=" + c.auth.SignQuery(query)

	endpoint := c.baseURL + path + "?" + query
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-MBX-APIKEY", c.auth.Key)

	return c.do(req)
}

// do executes a request and maps non-2xx responses to errors carrying the
// exchange's error message.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr APIError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("HTTP %d code %d: %s", resp.StatusCode, apiErr.Code, apiErr.Message)
		}
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return body, nil
}
