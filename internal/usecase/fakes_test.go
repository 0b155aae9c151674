package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"TradePilot/internal/domain/models"
	"TradePilot/pkg/cache"
	"TradePilot/pkg/logger"
	"TradePilot/pkg/metrics"
	"TradePilot/pkg/queue"

	"github.com/cloudwego/eino/schema"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu        sync.Mutex
	agents    map[string]models.AgentRecord
	trades    map[string]models.Trade
	digests   []models.Digest
	insertErr error
}

func newMemStore() *memStore {
	return &memStore{agents: map[string]models.AgentRecord{}, trades: map[string]models.Trade{}}
}

func (s *memStore) UpsertAgent(_ context.Context, a *models.AgentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[models.NormalizeAddress(a.ContractAddress)] = *a
	return nil
}

func (s *memStore) GetAgent(_ context.Context, contract string) (*models.AgentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[models.NormalizeAddress(contract)]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &a, nil
}

func (s *memStore) LatestAgents(ctx context.Context, limit int) ([]models.AgentRecord, error) {
	all, _ := s.AllAgents(ctx)
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *memStore) AllAgents(context.Context) ([]models.AgentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AgentRecord, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *memStore) InsertTrade(_ context.Context, t *models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	if _, ok := s.trades[t.TradeID]; ok {
		return errors.New("duplicate trade id")
	}
	s.trades[t.TradeID] = *t
	return nil
}

func (s *memStore) UpdateTrade(_ context.Context, t *models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trades[t.TradeID]; !ok {
		return models.ErrNotFound
	}
	s.trades[t.TradeID] = *t
	return nil
}

func (s *memStore) GetTrade(_ context.Context, id string) (*models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trades[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &t, nil
}

func (s *memStore) ListTrades(_ context.Context, f models.TradeFilter) ([]models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Trade, 0)
	for _, t := range s.trades {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if !f.Before.IsZero() && !t.CreatedAt.Before(f.Before) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *memStore) SaveDigest(_ context.Context, d *models.Digest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.ID = int64(len(s.digests) + 1)
	s.digests = append(s.digests, *d)
	return nil
}

func (s *memStore) LatestDigests(_ context.Context, limit int) ([]models.Digest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Digest, 0, len(s.digests))
	for i := len(s.digests) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, s.digests[i])
	}
	return out, nil
}

func (s *memStore) trade(t *testing.T, id string) models.Trade {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	tr, ok := s.trades[id]
	require.True(t, ok, "trade %s not stored", id)
	return tr
}

type recordingEvents struct {
	mu     sync.Mutex
	events []models.TradeEvent
}

func (r *recordingEvents) PublishTradeEvent(_ context.Context, ev models.TradeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingEvents) Broadcast(ev models.TradeEvent) {
	_ = r.PublishTradeEvent(context.Background(), ev)
}

func (r *recordingEvents) statuses(tradeID string) []models.TradeStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.TradeStatus
	for _, ev := range r.events {
		if ev.TradeID == tradeID {
			out = append(out, ev.Status)
		}
	}
	return out
}

// fakeWallet answers per contract: an error, or tool output followed by a final answer.
type fakeWallet struct {
	mu           sync.Mutex
	failFor      map[string]error
	instructions []string
}

func (w *fakeWallet) Stream(_ context.Context, instruction string) (*schema.StreamReader[models.AgentChunk], error) {
	w.mu.Lock()
	w.instructions = append(w.instructions, instruction)
	var failure error
	for contract, err := range w.failFor {
		if strings.Contains(instruction, contract) {
			failure = err
		}
	}
	w.mu.Unlock()

	sr, sw := schema.Pipe[models.AgentChunk](4)
	go func() {
		defer sw.Close()
		sw.Send(models.AgentChunk{Source: models.ChunkTools, Content: `{"transaction_hash":"0xhash"}`}, nil)
		if failure != nil {
			sw.Send(models.AgentChunk{}, failure)
			return
		}
		sw.Send(models.AgentChunk{Source: models.ChunkAgent, Content: "thinking"}, nil)
		sw.Send(models.AgentChunk{Source: models.ChunkAgent, Content: "swapped: " + instruction}, nil)
	}()
	return sr, nil
}

type mockGenerator struct{ mock.Mock }

func (m *mockGenerator) GenerateRecommendations(ctx context.Context, agents []models.AgentRecord) ([]models.TradeRecommendation, error) {
	args := m.Called(ctx, agents)
	recs, _ := args.Get(0).([]models.TradeRecommendation)
	return recs, args.Error(1)
}

func (m *mockGenerator) GeneratePortfolioRecommendations(ctx context.Context, matches []models.PortfolioMatch) ([]models.TradeRecommendation, error) {
	args := m.Called(ctx, matches)
	recs, _ := args.Get(0).([]models.TradeRecommendation)
	return recs, args.Error(1)
}

type fixedBalance decimal.Decimal

func (b fixedBalance) ETHBalance(context.Context) (decimal.Decimal, error) {
	return decimal.Decimal(b), nil
}

type fixedPortfolio []models.Holding

func (p fixedPortfolio) Holdings(context.Context) ([]models.Holding, error) { return p, nil }

// harness wires the ledger, executor and a running local queue over an in-memory store.
type harness struct {
	store     *memStore
	events    *recordingEvents
	wallet    *fakeWallet
	locker    *cache.MemoryCache
	ledger    *Ledger
	submitter *TradeSubmitter
	queue     *queue.LocalQueue
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:  newMemStore(),
		events: &recordingEvents{},
		wallet: &fakeWallet{failFor: map[string]error{}},
		locker: cache.NewMemoryCache(),
	}
	lgr := logger.Nop()
	h.ledger = NewLedger(h.store, h.events, h.locker, metrics.Nop{}, lgr)
	exec := NewExecutor(h.ledger, h.wallet, time.Second, lgr)

	h.queue = queue.NewLocalQueue(lgr, &queue.Config{Workers: 4, QueueSize: 32})
	h.queue.Register(NewExecuteTradeJob(h.ledger, exec, lgr))
	require.NoError(t, h.queue.Start(context.Background()))
	t.Cleanup(func() { _ = h.queue.Stop(context.Background()) })

	h.submitter = NewTradeSubmitter(h.ledger, h.queue, lgr)
	return h
}

func (h *harness) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.queue.Wait(ctx))
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
