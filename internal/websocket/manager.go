package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/manjushapaul/Crypto-sub001/internal/metrics"
	"github.com/manjushapaul/Crypto-sub001/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 256
)

type Client struct {
	Manager *Manager
	Conn    *websocket.Conn
	ID      uuid.UUID
	Send    chan []byte
}

func NewClient(m *Manager, conn *websocket.Conn) *Client {
	return &Client{
		Manager: m,
		Conn:    conn,
		ID:      uuid.New(),
		Send:    make(chan []byte, sendBuffer),
	}
}

// Manager pushes notification events to every connected dashboard.
type Manager struct {
	clients    map[uuid.UUID]*Client
	mu         sync.RWMutex
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	log        *slog.Logger
}

func NewManager(log *slog.Logger) *Manager {
	return &Manager{
		clients:    make(map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
		log:        log,
	}
}

func (m *Manager) Run(ctx context.Context) {
	defer close(m.done)

	for {
		select {
		case <-ctx.Done():
			m.log.Info("Manager run loop stopping...")
			m.closeAll()
			return
		case client := <-m.register:
			m.registerClient(client)
		case client := <-m.unregister:
			m.unregisterClient(client)
		case payload := <-m.broadcast:
			m.fanOut(payload)
		}
	}
}

func (m *Manager) Register(client *Client) {
	select {
	case m.register <- client:
	case <-m.done:
		client.Conn.Close()
	}
}

func (m *Manager) Unregister(client *Client) {
	select {
	case m.unregister <- client:
	case <-m.done:
	}
}

// Notify implements the portfolio notifier.
func (m *Manager) Notify(event models.NotificationEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		m.log.Error("failed to marshal notification event", "error", err)
		return
	}
	m.Broadcast(payload)
}

// Broadcast queues payload for all clients without blocking the caller.
func (m *Manager) Broadcast(payload []byte) {
	select {
	case m.broadcast <- payload:
	default:
		m.log.Warn("broadcast queue is full, dropping message")
	}
}

func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.clients)
}

func (m *Manager) registerClient(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clients[client.ID] = client
	metrics.WebSocketClients.Set(float64(len(m.clients)))
	m.log.Info("new client registered", "clientID", client.ID)
}

func (m *Manager) unregisterClient(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.clients[client.ID]; ok {
		delete(m.clients, client.ID)
		close(client.Send)
		metrics.WebSocketClients.Set(float64(len(m.clients)))
		m.log.Info("client unregistered", "clientID", client.ID)
	}
}

func (m *Manager) fanOut(payload []byte) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for id, client := range m.clients {
		select {
		case client.Send <- payload:
		default:
			m.log.Warn("client send channel is full, dropping message", "clientID", id)
		}
	}
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, client := range m.clients {
		close(client.Send)
		delete(m.clients, id)
	}
	metrics.WebSocketClients.Set(0)
}

func (c *Client) Writer() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Manager.log.Warn("failed to write message to client", "clientID", c.ID)
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Reader only drains control frames; the feed is one-way.
func (c *Client) Reader() {
	defer func() {
		c.Manager.Unregister(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Manager.log.Warn("unexpected close error", "clientID", c.ID, "error", err)
			}
			break
		}
	}
}
