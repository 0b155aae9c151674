package wallet

import (
	"context"
	"fmt"
	"time"

	"TradePilot/internal/domain/repository"
	"TradePilot/internal/domain/service"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const provider = "wallet"

// Client talks to the custodial wallet API that holds the trading wallet.
type Client struct {
	http      *resty.Client
	networkID string
	metrics   repository.Metrics
}

var _ service.BalanceProvider = (*Client)(nil)

type ClientOption func(*Client)

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

func WithMetrics(m repository.Metrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

func NewClient(baseURL, apiKey, networkID string, opts ...ClientOption) *Client {
	hc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(60*time.Second).
		SetAuthToken(apiKey).
		SetHeader("Accept", "application/json")

	c := &Client{http: hc, networkID: networkID}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type Details struct {
	Address   string `json:"address"`
	NetworkID string `json:"network_id"`
}

type balanceResponse struct {
	Asset   string          `json:"asset"`
	Balance decimal.Decimal `json:"balance"`
}

// SwapRequest trades Amount of FromAsset into ToAsset. Assets are "eth" or a token contract.
type SwapRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	FromAsset string          `json:"from_asset_id"`
	ToAsset   string          `json:"to_asset_id"`
	NetworkID string          `json:"network_id"`
}

type SwapResult struct {
	TransactionHash string          `json:"transaction_hash"`
	Status          string          `json:"status"`
	FromAmount      decimal.Decimal `json:"from_amount"`
	ToAmount        decimal.Decimal `json:"to_amount"`
}

type apiError struct {
	Message string `json:"message"`
}

func (c *Client) Details(ctx context.Context) (*Details, error) {
	var out Details
	if err := c.do(ctx, "details", func(r *resty.Request) (*resty.Response, error) {
		return r.SetResult(&out).Get("/v1/wallet")
	}); err != nil {
		return nil, err
	}
	return &out, nil
}

// Balance returns the wallet balance of asset.
func (c *Client) Balance(ctx context.Context, asset string) (decimal.Decimal, error) {
	var out balanceResponse
	if err := c.do(ctx, "balance", func(r *resty.Request) (*resty.Response, error) {
		return r.SetQueryParams(map[string]string{"asset_id": asset, "network_id": c.networkID}).
			SetResult(&out).
			Get("/v1/wallet/balances")
	}); err != nil {
		return decimal.Zero, err
	}
	return out.Balance, nil
}

func (c *Client) ETHBalance(ctx context.Context) (decimal.Decimal, error) {
	return c.Balance(ctx, "eth")
}

func (c *Client) Swap(ctx context.Context, req SwapRequest) (*SwapResult, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("swap amount must be positive, got %s", req.Amount)
	}
	if req.NetworkID == "" {
		req.NetworkID = c.networkID
	}
	var out SwapResult
	if err := c.do(ctx, "swap", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(req).SetResult(&out).Post("/v1/wallet/trades")
	}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, op string, call func(*resty.Request) (*resty.Response, error)) error {
	start := time.Now()
	var apiErr apiError
	resp, err := call(c.http.R().SetContext(ctx).SetError(&apiErr))
	if err == nil && resp.IsError() {
		msg := apiErr.Message
		if msg == "" {
			msg = resp.Status()
		}
		err = fmt.Errorf("wallet %s: status %d: %s", op, resp.StatusCode(), msg)
	} else if err != nil {
		err = fmt.Errorf("wallet %s: %w", op, err)
	}
	if c.metrics != nil {
		c.metrics.ObserveExternalCall(provider, op, time.Since(start), err)
	}
	return err
}
