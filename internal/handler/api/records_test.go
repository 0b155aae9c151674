package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"TradePilot/internal/domain/models"
	"TradePilot/internal/repository"
	"TradePilot/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecordsServer(t *testing.T) (*echo.Echo, *repository.SQLiteStore, *stubRefresher) {
	t.Helper()
	store, err := repository.OpenSQLiteStore(context.Background(), t.TempDir()+"/api.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	refresher := &stubRefresher{}
	e := echo.New()
	NewRecordsHandler(logger.Nop(), store, store, store, refresher, stubDigest{}).RegisterRoutes(e)
	return e, store, refresher
}

func get(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestRecordsAgents(t *testing.T) {
	e, store, refresher := newRecordsServer(t)
	ctx := context.Background()
	require.NoError(t, store.UpsertAgent(ctx, &models.AgentRecord{ContractAddress: "0xabc", Name: "ABC", UpdatedAt: time.Now().UTC()}))

	rec := get(e, http.MethodGet, "/api/agents/0xABC")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"ABC"`)

	assert.Equal(t, http.StatusNotFound, get(e, http.MethodGet, "/api/agents/0xdef").Code)

	rec = get(e, http.MethodGet, "/api/agents")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)

	assert.Equal(t, http.StatusBadRequest, get(e, http.MethodPost, "/api/agents?contract=nope").Code)

	const addr = "0x2222222222222222222222222222222222222222"
	assert.Equal(t, http.StatusOK, get(e, http.MethodPost, "/api/agents?contract="+addr).Code)
	assert.Equal(t, addr, refresher.contract)

	refresher.err = models.ErrMissingHandle
	assert.Equal(t, http.StatusBadRequest, get(e, http.MethodPost, "/api/agents").Code)
}

func TestRecordsTrades(t *testing.T) {
	e, store, _ := newRecordsServer(t)
	ctx := context.Background()
	now := time.Now().UTC()
	ids := []string{"a", "b", "c"}
	for i, st := range []models.TradeStatus{models.StatusPending, models.StatusCompleted, models.StatusCompleted} {
		require.NoError(t, store.InsertTrade(ctx, &models.Trade{
			TradeID:         ids[i],
			ContractAddress: "0xabc",
			TradeAction:     models.ActionBuy,
			Amount:          decimal.NewFromInt(1),
			Status:          st,
			CreatedAt:       now.Add(time.Duration(i) * time.Second),
			UpdatedAt:       now,
		}))
	}

	rec := get(e, http.MethodGet, "/api/trades?status=COMPLETED&limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"trade_id":"c"`)
	assert.Contains(t, rec.Body.String(), `"total":1`)

	assert.Equal(t, http.StatusBadRequest, get(e, http.MethodGet, "/api/trades?status=DONE").Code)
	assert.Equal(t, http.StatusBadRequest, get(e, http.MethodGet, "/api/trades?limit=1000").Code)

	assert.Equal(t, http.StatusOK, get(e, http.MethodGet, "/api/trades/a").Code)
	assert.Equal(t, http.StatusNotFound, get(e, http.MethodGet, "/api/trades/zzz").Code)
}

func TestRecordsDigests(t *testing.T) {
	e, store, _ := newRecordsServer(t)
	require.NoError(t, store.SaveDigest(context.Background(), &models.Digest{Content: "older", CreatedAt: time.Now().UTC()}))

	rec := get(e, http.MethodGet, "/api/tweets")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "older")

	rec = get(e, http.MethodGet, "/api/influencer")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"content":"gm"`)
}
