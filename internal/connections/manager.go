package connections

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// TimeoutConfig holds the various timeout settings for WebSocket connections
type TimeoutConfig struct {
	PongWait   time.Duration
	PingPeriod time.Duration
	WriteWait  time.Duration
}

// DefaultTimeouts provides sensible default timeout values
var DefaultTimeouts = TimeoutConfig{
	PongWait:   60 * time.Second,
	PingPeriod: 54 * time.Second, // (PongWait * 9) / 10
	WriteWait:  10 * time.Second,
}

// Client is a websocket connection whose writes are serialised.
type Client struct {
	conn      *websocket.Conn
	sessionID string
	timeouts  TimeoutConfig
	writeMu   sync.Mutex
}

// SessionID is the console session the connection belongs to.
func (c *Client) SessionID() string {
	return c.sessionID
}

// WriteJSON sends v, safe for concurrent callers.
func (c *Client) WriteJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeouts.WriteWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

// Ping sends a ping control frame.
func (c *Client) Ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.timeouts.WriteWait))
}

// Close sends a close frame and closes the connection.
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
		time.Now().Add(c.timeouts.WriteWait),
	)
	c.writeMu.Unlock()
	return c.conn.Close()
}

// Manager handles WebSocket connection lifecycle
type Manager struct {
	connections sync.Map
	timeouts    TimeoutConfig
}

// NewManager creates a new connection manager with the specified timeouts
func NewManager(timeouts TimeoutConfig) *Manager {
	return &Manager{
		timeouts: timeouts,
	}
}

// AddConnection registers a new WebSocket connection and returns its client
func (m *Manager) AddConnection(conn *websocket.Conn, sessionID string) *Client {
	client := &Client{conn: conn, sessionID: sessionID, timeouts: m.timeouts}
	m.connections.Store(client, struct{}{})
	return client
}

// RemoveConnection removes a WebSocket connection
func (m *Manager) RemoveConnection(client *Client) {
	m.connections.Delete(client)
}

// GetConnectionCount returns the current number of active connections
func (m *Manager) GetConnectionCount() int {
	count := 0
	m.connections.Range(func(key, value interface{}) bool {
		count++
		return true
	})
	return count
}

// HasConnection checks if a specific connection exists
func (m *Manager) HasConnection(client *Client) bool {
	_, exists := m.connections.Load(client)
	return exists
}

// GetTimeouts returns the current timeout configuration
func (m *Manager) GetTimeouts() TimeoutConfig {
	return m.timeouts
}

// CloseAll closes every tracked connection, used on shutdown.
func (m *Manager) CloseAll() {
	m.connections.Range(func(key, value interface{}) bool {
		client := key.(*Client)
		_ = client.Close()
		m.connections.Delete(client)
		return true
	})
}
