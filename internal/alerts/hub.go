// Package alerts pushes significant price changes to websocket subscribers.
package alerts

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"agrimarket/internal/domain"
	"agrimarket/internal/observability"
)

// AlertType labels a significant day-over-day price move.
const AlertType = "significant_price_change"

// Alert is the message sent to subscribers.
type Alert struct {
	Type   string                    `json:"type"`
	Record *domain.PriceChangeRecord `json:"record"`
	SentAt time.Time                 `json:"sentAt"`
}

// HubConfig contains websocket tuning.
type HubConfig struct {
	PingInterval time.Duration
	WriteTimeout time.Duration
	SendBuffer   int
}

// DefaultHubConfig returns default hub settings.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
		SendBuffer:   256,
	}
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.send) })
}

// Hub fans alerts out to connected websocket clients.
// A client whose buffer is full is disconnected rather than blocking the hub.
type Hub struct {
	config   HubConfig
	upgrader websocket.Upgrader
	logger   *log.Logger

	mu     sync.RWMutex
	subs   map[*subscriber]struct{}
	closed atomic.Bool
	wg     sync.WaitGroup
}

// NewHub creates a new Hub. A nil config uses DefaultHubConfig.
func NewHub(config *HubConfig, logger *log.Logger) *Hub {
	cfg := DefaultHubConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		config: cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
		subs:   make(map[*subscriber]struct{}),
	}
}

// ServeHTTP upgrades the request and registers the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.closed.Load() {
		http.Error(w, "alert hub closed", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("websocket upgrade: %v", err)
		return
	}

	s := &subscriber{conn: conn, send: make(chan []byte, h.config.SendBuffer)}
	h.register(s)

	h.wg.Add(2)
	go h.writeLoop(s)
	go h.readLoop(s)
}

// Broadcast sends an alert for each record to every subscriber and returns
// the number of records delivered. Delivery stops at the first record that
// no subscriber accepted, so the delivered records are always records[:n].
// With no subscribers nothing is delivered.
func (h *Hub) Broadcast(records []*domain.PriceChangeRecord, at time.Time) (int, error) {
	if h.closed.Load() {
		return 0, fmt.Errorf("alert hub closed")
	}

	sent := 0
	for _, r := range records {
		msg, err := json.Marshal(Alert{Type: AlertType, Record: r, SentAt: at.UTC()})
		if err != nil {
			observability.RecordAlertsBroadcast(sent)
			return sent, fmt.Errorf("encode alert: %w", err)
		}

		delivered := 0
		h.mu.RLock()
		var slow []*subscriber
		for s := range h.subs {
			select {
			case s.send <- msg:
				delivered++
			default:
				slow = append(slow, s)
			}
		}
		h.mu.RUnlock()

		for _, s := range slow {
			h.logger.Printf("dropping slow alert subscriber %s", s.conn.RemoteAddr())
			h.unregister(s)
		}
		if delivered == 0 {
			break
		}
		sent++
	}

	observability.RecordAlertsBroadcast(sent)
	return sent, nil
}

// Subscribers returns the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close disconnects all clients and waits for their goroutines.
func (h *Hub) Close() {
	if h.closed.Swap(true) {
		return
	}

	h.mu.Lock()
	for s := range h.subs {
		delete(h.subs, s)
		s.close()
	}
	h.mu.Unlock()
	observability.SetAlertSubscribers(0)

	h.wg.Wait()
}

func (h *Hub) register(s *subscriber) {
	h.mu.Lock()
	h.subs[s] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()
	observability.SetAlertSubscribers(n)
}

func (h *Hub) unregister(s *subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		s.close()
	}
	n := len(h.subs)
	h.mu.Unlock()
	observability.SetAlertSubscribers(n)
}

// writeLoop drains the send buffer and keeps the connection alive with pings.
func (h *Hub) writeLoop(s *subscriber) {
	defer h.wg.Done()
	defer s.conn.Close()

	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.unregister(s)
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(s)
				return
			}
		}
	}
}

// readLoop discards client messages and unregisters on disconnect.
func (h *Hub) readLoop(s *subscriber) {
	defer h.wg.Done()

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			h.unregister(s)
			return
		}
	}
}
