package http

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"houseprice/ml"
)

const (
	feedSendBuffer = 16
	feedWriteWait  = 10 * time.Second
	feedPingPeriod = 30 * time.Second
)

// PredictionEvent is one served prediction pushed to feed subscribers.
type PredictionEvent struct {
	Features       map[string]float64 `json:"features"`
	PredictedPrice float64            `json:"predicted_price"`
	Timestamp      time.Time          `json:"timestamp"`
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
}

// FeedHub broadcasts prediction events to connected websocket clients.
// Slow clients get dropped rather than blocking the broadcast.
type FeedHub struct {
	clients    map[*feedClient]bool
	broadcast  chan []byte
	register   chan *feedClient
	unregister chan *feedClient
	upgrader   websocket.Upgrader
	logger     *zap.Logger
	stopOnce   sync.Once
	stop       chan struct{}
	done       chan struct{}
}

// NewFeedHub creates a hub; call Run before serving upgrades.
func NewFeedHub(logger *zap.Logger) *FeedHub {
	return &FeedHub{
		clients:    make(map[*feedClient]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *feedClient),
		unregister: make(chan *feedClient),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Run owns the clients map; register, unregister and broadcast all go
// through this loop.
func (h *FeedHub) Run() {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if h.clients[client] {
				delete(h.clients, client)
				close(client.send)
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					delete(h.clients, client)
					close(client.send)
				}
			}
		case <-h.stop:
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			return
		}
	}
}

// Stop shuts the hub down and disconnects all clients.
func (h *FeedHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
		<-h.done
	})
}

// Publish queues a prediction event; it never blocks the caller. When
// the broadcast buffer is full the event is dropped.
func (h *FeedHub) Publish(features ml.HouseFeatures, price float64) {
	event := PredictionEvent{
		Features:       features.Map(),
		PredictedPrice: price,
		Timestamp:      time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Warn("encode prediction event", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- payload:
	default:
	}
}

// HandleUpgrade upgrades the request to a websocket subscription.
func (h *FeedHub) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	client := &feedClient{conn: conn, send: make(chan []byte, feedSendBuffer)}
	select {
	case h.register <- client:
	case <-h.stop:
		conn.Close()
		return
	}

	go h.writePump(client)
	go h.readPump(client)
}

func (h *FeedHub) writePump(client *feedClient) {
	ticker := time.NewTicker(feedPingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames; the feed is one-way.
func (h *FeedHub) readPump(client *feedClient) {
	defer func() {
		select {
		case h.unregister <- client:
		case <-h.stop:
		}
		client.conn.Close()
	}()
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}
