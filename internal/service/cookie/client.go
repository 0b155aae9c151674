package cookie

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"TradePilot/internal/domain/models"
	"TradePilot/internal/domain/repository"
	"TradePilot/internal/domain/service"
	"TradePilot/pkg/cache"
	"TradePilot/pkg/logger"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const provider = "cookie"

// Client implements service.MarketDataGateway against the Cookie data API.
type Client struct {
	http     *resty.Client
	limiter  *rate.Limiter
	cache    cache.Service
	cacheTTL time.Duration
	metrics  repository.Metrics
	log      *logger.Logger
}

var _ service.MarketDataGateway = (*Client)(nil)

type Option func(*Client)

// WithCache caches interval metrics for ttl. Posts are never cached.
func WithCache(c cache.Service, ttl time.Duration) Option {
	return func(cl *Client) {
		cl.cache = c
		cl.cacheTTL = ttl
	}
}

// WithRateLimit caps outbound requests per second. Zero disables the limit.
func WithRateLimit(rps float64) Option {
	return func(cl *Client) {
		if rps > 0 {
			cl.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.http.SetTimeout(d)
		}
	}
}

func WithMetrics(m repository.Metrics) Option {
	return func(cl *Client) { cl.metrics = m }
}

func New(baseURL, apiKey string, lgr *logger.Logger, opts ...Option) *Client {
	hc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetHeader("accept", "application/json").
		SetHeader("x-api-key", apiKey)

	c := &Client{http: hc, log: lgr}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type agentEnvelope struct {
	OK *models.IntervalMetrics `json:"ok"`
}

type searchEnvelope struct {
	OK []models.PostSummary `json:"ok"`
}

func (c *Client) FetchIntervalMetrics(ctx context.Context, contract string, interval models.Interval) (*models.IntervalMetrics, error) {
	contract = models.NormalizeAddress(contract)
	key := fmt.Sprintf("cookie:agent:%s:%s", contract, interval)

	return cache.GetOrLoad(ctx, c.cache, key, c.cacheTTL, func(ctx context.Context) (*models.IntervalMetrics, error) {
		var env agentEnvelope
		err := c.call(ctx, "agent", func(r *resty.Request) (*resty.Response, error) {
			return r.SetQueryParam("interval", string(interval)).
				SetResult(&env).
				Get("/v2/agents/contractAddress/" + url.PathEscape(contract))
		}, func(status int, err error) error {
			return &models.DataProviderError{Provider: provider, Status: status, Interval: interval, Err: err}
		})
		if err != nil {
			return nil, err
		}
		return env.OK, nil
	})
}

// FetchRecentPosts searches posts mentioning @handle between from and to (day resolution).
func (c *Client) FetchRecentPosts(ctx context.Context, handle string, from, to time.Time) ([]models.PostSummary, error) {
	query := "@" + handle
	var env searchEnvelope
	err := c.call(ctx, "search", func(r *resty.Request) (*resty.Response, error) {
		return r.SetQueryParams(map[string]string{
			"from": from.UTC().Format(time.DateOnly),
			"to":   to.UTC().Format(time.DateOnly),
		}).
			SetResult(&env).
			Get("/v1/hackathon/search/" + url.PathEscape(query))
	}, func(status int, err error) error {
		return &models.DataProviderError{Provider: provider, Status: status, Query: query, Err: err}
	})
	if err != nil {
		return nil, err
	}
	if env.OK == nil {
		return []models.PostSummary{}, nil
	}
	return env.OK, nil
}

func (c *Client) FetchAgent(ctx context.Context, contract string) (*models.AgentRecord, error) {
	var (
		wg         sync.WaitGroup
		m3, m7     *models.IntervalMetrics
		err3, err7 error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		m7, err7 = c.FetchIntervalMetrics(ctx, contract, models.Interval7Days)
	}()
	go func() {
		defer wg.Done()
		m3, err3 = c.FetchIntervalMetrics(ctx, contract, models.Interval3Days)
	}()
	wg.Wait()

	if err7 != nil {
		return nil, err7
	}
	if err3 != nil {
		return nil, err3
	}
	if m7 == nil {
		return nil, &models.DataProviderError{
			Provider: provider,
			Status:   http.StatusNotFound,
			Interval: models.Interval7Days,
			Err:      fmt.Errorf("no data for %s", contract),
		}
	}

	return &models.AgentRecord{
		ContractAddress: models.NormalizeAddress(contract),
		Name:            m7.AgentName,
		TwitterHandle:   m7.PrimaryHandle(),
		Metrics3Day:     m3,
		Metrics7Day:     m7,
	}, nil
}

func (c *Client) call(
	ctx context.Context,
	op string,
	do func(*resty.Request) (*resty.Response, error),
	wrap func(status int, err error) error,
) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	start := time.Now()
	resp, err := do(c.http.R().SetContext(ctx))
	if err == nil && resp.IsError() {
		err = wrap(resp.StatusCode(), nil)
	} else if err != nil {
		err = wrap(0, err)
	}
	if c.metrics != nil {
		c.metrics.ObserveExternalCall(provider, op, time.Since(start), err)
	}
	if err != nil {
		c.log.Warn("cookie request failed", logger.String("op", op), logger.Error(err))
	}
	return err
}
