package zapper

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"TradePilot/internal/domain/models"
	"TradePilot/internal/domain/repository"
	"TradePilot/internal/domain/service"
	"TradePilot/pkg/logger"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const provider = "zapper"

const portfolioQuery = `
query GetCompletePortfolio($addresses: [Address!]!) {
  portfolio(addresses: $addresses) {
    tokenBalances {
      address
      token {
        balanceUSD
        baseToken {
          address
          symbol
        }
        balance
      }
    }
  }
}`

// Client reads wallet token balances from the Zapper GraphQL API.
type Client struct {
	http    *resty.Client
	wallet  string
	metrics repository.Metrics
	log     *logger.Logger
}

var _ service.PortfolioProvider = (*Client)(nil)

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

func WithMetrics(m repository.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New builds a client for endpoint. The API key is sent as HTTP Basic credentials.
func New(endpoint, apiKey, wallet string, lgr *logger.Logger, opts ...Option) *Client {
	hc := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(apiKey)))

	c := &Client{http: hc, wallet: wallet, log: lgr}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type portfolioResponse struct {
	Data struct {
		Portfolio struct {
			TokenBalances []struct {
				Address string `json:"address"`
				Token   *struct {
					Balance    decimal.NullDecimal `json:"balance"`
					BalanceUSD decimal.NullDecimal `json:"balanceUSD"`
					BaseToken  *struct {
						Address string `json:"address"`
						Symbol  string `json:"symbol"`
					} `json:"baseToken"`
				} `json:"token"`
			} `json:"tokenBalances"`
		} `json:"portfolio"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// Holdings returns the wallet's token balances keyed by lower-cased contract address.
// Entries without a base token are skipped.
func (c *Client) Holdings(ctx context.Context) ([]models.Holding, error) {
	start := time.Now()
	var out portfolioResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(graphQLRequest{
			Query:     portfolioQuery,
			Variables: map[string]interface{}{"addresses": []string{c.wallet}},
		}).
		SetResult(&out).
		Post("")

	switch {
	case err != nil:
		err = &models.DataProviderError{Provider: provider, Query: "portfolio", Err: err}
	case resp.IsError():
		err = &models.DataProviderError{Provider: provider, Status: resp.StatusCode(), Query: "portfolio"}
	case len(out.Errors) > 0:
		msgs := make([]string, 0, len(out.Errors))
		for _, e := range out.Errors {
			msgs = append(msgs, e.Message)
		}
		err = &models.DataProviderError{
			Provider: provider,
			Status:   resp.StatusCode(),
			Query:    "portfolio",
			Err:      fmt.Errorf("graphql: %s", strings.Join(msgs, "; ")),
		}
	}
	if c.metrics != nil {
		c.metrics.ObserveExternalCall(provider, "portfolio", time.Since(start), err)
	}
	if err != nil {
		return nil, err
	}

	holdings := make([]models.Holding, 0, len(out.Data.Portfolio.TokenBalances))
	for _, tb := range out.Data.Portfolio.TokenBalances {
		if tb.Token == nil || tb.Token.BaseToken == nil {
			c.log.Warn("skipping token balance without base token", logger.String("address", tb.Address))
			continue
		}
		symbol := tb.Token.BaseToken.Symbol
		if symbol == "" {
			symbol = "UNKNOWN"
		}
		holdings = append(holdings, models.Holding{
			ContractAddress: models.NormalizeAddress(tb.Token.BaseToken.Address),
			Symbol:          symbol,
			Balance:         tb.Token.Balance.Decimal,
			BalanceUSD:      tb.Token.BalanceUSD.Decimal,
		})
	}
	return holdings, nil
}
