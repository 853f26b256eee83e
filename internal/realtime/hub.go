// Package realtime pushes notifications to connected browsers over
// websockets.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"estatehub/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Authenticator resolves an access token to its claims.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.UserClaims, error)
}

// Message is the frame written to clients.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

const MessageTypeNotification = "notification"

type Config struct {
	PingInterval   time.Duration
	WriteWait      time.Duration
	SendBuffer     int
	AllowedOrigins []string // empty allows any origin
}

func (c *Config) setDefaults() {
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 16
	}
}

type client struct {
	conn   *websocket.Conn
	userID uint
	send   chan []byte
	once   sync.Once
}

// Hub tracks the open connections of each user. gorilla connections allow
// one concurrent writer, so every client has its own write loop fed by send.
type Hub struct {
	mu       sync.RWMutex
	clients  map[uint]map[*client]struct{}
	auth     Authenticator
	upgrader websocket.Upgrader
	config   Config
	logger   *zap.Logger
}

func NewHub(auth Authenticator, config Config, logger *zap.Logger) *Hub {
	if auth == nil {
		panic("authenticator is required")
	}
	config.setDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		clients: make(map[uint]map[*client]struct{}),
		auth:    auth,
		config:  config,
		logger:  logger.Named("realtime"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.config.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, o := range h.config.AllowedOrigins {
		if strings.EqualFold(strings.TrimSpace(o), origin) {
			return true
		}
	}
	return false
}

// ServeHTTP authenticates with ?token= or a Bearer header and upgrades.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	claims, err := h.auth.Authenticate(r.Context(), token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, userID: claims.UserID, send: make(chan []byte, h.config.SendBuffer)}
	h.register(c)
	go h.writeLoop(c)
	go h.readLoop(c)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	conns, ok := h.clients[c.userID]
	if !ok {
		conns = make(map[*client]struct{})
		h.clients[c.userID] = conns
	}
	conns[c] = struct{}{}
	total := len(conns)
	h.mu.Unlock()

	h.logger.Debug("client connected", zap.Uint("user_id", c.userID), zap.Int("connections", total))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if conns, ok := h.clients[c.userID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.clients, c.userID)
		}
	}
	h.mu.Unlock()

	c.once.Do(func() {
		close(c.send)
		_ = c.conn.Close()
	})
}

// readLoop discards client frames and keeps the read deadline moving on pongs.
func (h *Hub) readLoop(c *client) {
	defer h.unregister(c)

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * h.config.PingInterval))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * h.config.PingInterval))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer func() {
		ticker.Stop()
		h.unregister(c)
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.logger.Debug("websocket write failed", zap.Uint("user_id", c.userID), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.config.WriteWait)); err != nil {
				return
			}
		}
	}
}

// Publish delivers n to the user's local connections.
func (h *Hub) Publish(_ context.Context, n *models.Notification) error {
	payload, err := encode(n)
	if err != nil {
		return err
	}
	h.deliver(n.UserID, payload)
	return nil
}

// deliver never blocks; a client whose buffer is full is disconnected.
func (h *Hub) deliver(userID uint, payload []byte) int {
	h.mu.RLock()
	var slow []*client
	sent := 0
	for c := range h.clients[userID] {
		select {
		case c.send <- payload:
			sent++
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow websocket client", zap.Uint("user_id", userID))
		h.unregister(c)
	}
	return sent
}

// Connections returns the number of open connections across all users.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, conns := range h.clients {
		n += len(conns)
	}
	return n
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	var all []*client
	for _, conns := range h.clients {
		for c := range conns {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range all {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		h.unregister(c)
	}
}

func encode(n *models.Notification) ([]byte, error) {
	return json.Marshal(Message{Type: MessageTypeNotification, Data: n})
}
