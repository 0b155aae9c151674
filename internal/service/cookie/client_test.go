package cookie

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"TradePilot/internal/domain/models"
	"TradePilot/pkg/cache"
	"TradePilot/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchIntervalMetrics(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.Equal(t, "/v2/agents/contractAddress/0xabc", r.URL.Path)
		assert.Equal(t, "_7Days", r.URL.Query().Get("interval"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":{"agentName":"aixbt","twitterUsernames":["aixbt_agent"],"price":0.5,"mindshareDeltaPercent":-2.5}}`))
	})

	c := New(srv.URL, "key", logger.Nop())
	m, err := c.FetchIntervalMetrics(context.Background(), "0xABC", models.Interval7Days)
	require.NoError(t, err)
	assert.Equal(t, "aixbt", m.AgentName)
	assert.Equal(t, 0.5, m.Price)
	assert.Equal(t, -2.5, m.MindshareDeltaPercent)
}

func TestFetchIntervalMetricsProviderError(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	c := New(srv.URL, "key", logger.Nop())
	_, err := c.FetchIntervalMetrics(context.Background(), "0xabc", models.Interval3Days)

	var pe *models.DataProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusTooManyRequests, pe.Status)
	assert.Equal(t, models.Interval3Days, pe.Interval)
}

func TestFetchIntervalMetricsUsesCache(t *testing.T) {
	var hits int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":{"agentName":"x"}}`))
	})

	c := New(srv.URL, "key", logger.Nop(), WithCache(cache.NewMemoryCache(), time.Minute))
	for i := 0; i < 3; i++ {
		_, err := c.FetchIntervalMetrics(context.Background(), "0xabc", models.Interval7Days)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestFetchAgent(t *testing.T) {
	tests := []struct {
		name    string
		body7   string
		status3 int
		wantErr bool
	}{
		{name: "both intervals", body7: `{"ok":{"agentName":"aixbt","twitterUsernames":["@aixbt_agent"]}}`, status3: http.StatusOK},
		{name: "seven day missing", body7: `{"ok":null}`, status3: http.StatusOK, wantErr: true},
		{name: "three day fails", body7: `{"ok":{"agentName":"aixbt"}}`, status3: http.StatusBadGateway, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				if r.URL.Query().Get("interval") == "_7Days" {
					_, _ = w.Write([]byte(tt.body7))
					return
				}
				w.WriteHeader(tt.status3)
				_, _ = w.Write([]byte(`{"ok":{"agentName":"aixbt","price":1}}`))
			})

			c := New(srv.URL, "key", logger.Nop())
			rec, err := c.FetchAgent(context.Background(), "0xABC")
			if tt.wantErr {
				var pe *models.DataProviderError
				assert.True(t, errors.As(err, &pe))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "0xabc", rec.ContractAddress)
			assert.Equal(t, "aixbt", rec.Name)
			assert.Equal(t, "aixbt_agent", rec.TwitterHandle)
			require.NotNil(t, rec.Metrics3Day)
			assert.Equal(t, 1.0, rec.Metrics3Day.Price)
		})
	}
}

func TestFetchRecentPosts(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/hackathon/search/@aixbt_agent", r.URL.Path)
		assert.Equal(t, "2025-01-01", r.URL.Query().Get("from"))
		assert.Equal(t, "2025-01-03", r.URL.Query().Get("to"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":[{"text":"gm","engagementsCount":12,"smartEngagementPoints":3}]}`))
	})

	c := New(srv.URL, "key", logger.Nop())
	to := time.Date(2025, 1, 3, 10, 0, 0, 0, time.UTC)
	posts, err := c.FetchRecentPosts(context.Background(), "aixbt_agent", to.Add(-48*time.Hour), to)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, int64(12), posts[0].EngagementsCount)
}
