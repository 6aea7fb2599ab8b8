package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"call-analyzer/pkg/analysis"
	"call-analyzer/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// WebSocketUpgrader configures the WebSocket connection
var WebSocketUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HubMessage is a control message sent to feed clients
type HubMessage struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// Client represents a connected WebSocket client
type Client struct {
	hub  *ReportHub
	conn *websocket.Conn
	send chan []byte
}

// ReportHub pushes every finished analysis report to connected WebSocket
// clients. It implements analysis.Subscriber.
type ReportHub struct {
	logger     *logrus.Logger
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	running    bool
	mutex      sync.RWMutex
}

// NewReportHub creates a new report hub
func NewReportHub(logger *logrus.Logger) *ReportHub {
	return &ReportHub{
		logger:     logger,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is cancelled
func (h *ReportHub) Run(ctx context.Context) {
	h.mutex.Lock()
	h.running = true
	h.mutex.Unlock()

	h.logger.Info("Starting WebSocket report hub")

	defer func() {
		h.mutex.Lock()
		for client := range h.clients {
			delete(h.clients, client)
			close(client.send)
		}
		h.running = false
		h.mutex.Unlock()
		close(h.done)
		metrics.SetWebSocketClients(0)
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Shutting down WebSocket report hub")
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mutex.Unlock()

			if welcome, err := json.Marshal(HubMessage{Type: "connected", Timestamp: time.Now()}); err == nil {
				client.send <- welcome
			}
			metrics.SetWebSocketClients(count)
			h.logger.WithField("clients", count).Info("Client connected to report feed")

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mutex.Unlock()

			metrics.SetWebSocketClients(count)
			h.logger.WithField("clients", count).Info("Client disconnected from report feed")

		case data := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					// Slow consumer
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// OnReport broadcasts a report event. It never blocks the analysis path.
func (h *ReportHub) OnReport(report *analysis.Report) {
	if report == nil || !h.IsRunning() {
		return
	}

	data, err := json.Marshal(analysis.NewReportEvent(report))
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal report event")
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.logger.WithField("analysis_id", report.ID).Warn("Report broadcast buffer full, dropping event")
	}
}

// ServeWs handles WebSocket requests from clients
func (h *ReportHub) ServeWs(w http.ResponseWriter, r *http.Request) {
	if !h.IsRunning() {
		http.Error(w, "Report feed unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := WebSocketUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade connection to WebSocket")
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// ClientCount returns the number of connected clients
func (h *ReportHub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// IsRunning returns true while Run is active
func (h *ReportHub) IsRunning() bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.running
}

// readPump discards client input and unregisters the client when the connection drops
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
