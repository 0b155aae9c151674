package api

import (
	"net/http"
	"sync"
	"time"

	"TradePilot/internal/domain/models"
	"TradePilot/internal/usecase"
	"TradePilot/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	streamWriteTimeout = 5 * time.Second
	streamPingPeriod   = 30 * time.Second
	streamBuffer       = 64
)

// TradeStream pushes trade events to websocket subscribers. A subscriber that cannot
// keep up loses events rather than blocking the others.
type TradeStream struct {
	log      *logger.Logger
	upgrader websocket.Upgrader

	mu   sync.RWMutex
	subs map[chan models.TradeEvent]struct{}
}

var _ usecase.Broadcaster = (*TradeStream)(nil)

func NewTradeStream(lgr *logger.Logger) *TradeStream {
	return &TradeStream{
		log: lgr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		subs: make(map[chan models.TradeEvent]struct{}),
	}
}

func (s *TradeStream) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/trades/stream", s.Serve)
}

func (s *TradeStream) Broadcast(ev models.TradeEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
			s.log.Warn("dropping trade event for slow subscriber", logger.String("trade_id", ev.TradeID))
		}
	}
}

// Subscribers returns the number of open connections.
func (s *TradeStream) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

func (s *TradeStream) subscribe() chan models.TradeEvent {
	ch := make(chan models.TradeEvent, streamBuffer)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *TradeStream) unsubscribe(ch chan models.TradeEvent) {
	s.mu.Lock()
	delete(s.subs, ch)
	s.mu.Unlock()
}

func (s *TradeStream) Serve(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", logger.Error(err))
		return nil
	}
	defer conn.Close()

	ch := s.subscribe()
	defer s.unsubscribe(ch)

	// reader: detects the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			return nil
		case <-c.Request().Context().Done():
			return nil
		case ev := <-ch:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				s.log.Debug("websocket write failed", logger.Error(err))
				return nil
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteTimeout)); err != nil {
				return nil
			}
		}
	}
}
