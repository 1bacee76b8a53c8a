package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"postline-server/internal/config"
	"postline-server/internal/domain"

	"github.com/rs/zerolog"
)

type ClientMessage struct {
	Client  *Client
	Message []byte
}

// Manager is the live feed hub: it tracks connections and fans post events
// out to every connected client.
type Manager struct {
	clients        map[string]*Client
	limitIndex     map[string]map[string]bool
	clientsMutex   sync.RWMutex
	Register       chan *Client
	Unregister     chan *Client
	HandleMessage  chan *ClientMessage
	done           chan struct{}
	maxConnPerUser int
	maxMessageSize int64
	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	logger         zerolog.Logger
}

func NewManager(cfg config.WebSocketConfig, logger zerolog.Logger) *Manager {
	return &Manager{
		clients:        make(map[string]*Client),
		limitIndex:     make(map[string]map[string]bool),
		Register:       make(chan *Client),
		Unregister:     make(chan *Client),
		HandleMessage:  make(chan *ClientMessage),
		done:           make(chan struct{}),
		maxConnPerUser: cfg.MaxConnPerUser,
		maxMessageSize: cfg.MaxMessageSize,
		writeWait:      cfg.WriteWait,
		pongWait:       cfg.PongWait,
		pingPeriod:     cfg.PingPeriod,
		logger:         logger.With().Str("component", "feed").Logger(),
	}
}

// Run serves the hub channels until ctx is cancelled, then closes every
// remaining connection.
func (m *Manager) Run(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case client := <-m.Register:
			m.registerClient(client)

		case client := <-m.Unregister:
			m.unregisterClient(client)

		case clientMsg := <-m.HandleMessage:
			m.processMessage(clientMsg)

		case <-ctx.Done():
			m.closeAll()
			return
		}
	}
}

func (m *Manager) registerClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	key := client.limitKey()
	if m.limitIndex[key] == nil {
		m.limitIndex[key] = make(map[string]bool)
	}

	if m.maxConnPerUser > 0 && len(m.limitIndex[key]) >= m.maxConnPerUser {
		m.logger.Warn().Str("limit_key", key).Msg("max connections reached")
		close(client.Send)
		if len(m.limitIndex[key]) == 0 {
			delete(m.limitIndex, key)
		}
		return
	}

	m.clients[client.ID] = client
	m.limitIndex[key][client.ID] = true

	m.logger.Debug().Str("client_id", client.ID).Str("user_id", client.UserID).Msg("client registered")

	if welcome, err := encode(TypeWelcome, &WelcomePayload{ClientID: client.ID, Authenticated: client.UserID != ""}); err == nil {
		client.Send <- welcome
	}
}

func (m *Manager) unregisterClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if _, ok := m.clients[client.ID]; ok {
		key := client.limitKey()
		delete(m.clients, client.ID)
		delete(m.limitIndex[key], client.ID)

		if len(m.limitIndex[key]) == 0 {
			delete(m.limitIndex, key)
		}

		close(client.Send)
		m.logger.Debug().Str("client_id", client.ID).Msg("client unregistered")
	}
}

func (m *Manager) closeAll() {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	for id, client := range m.clients {
		close(client.Send)
		delete(m.clients, id)
	}
	m.limitIndex = make(map[string]map[string]bool)
}

func (m *Manager) processMessage(clientMsg *ClientMessage) {
	var msg Message
	if err := json.Unmarshal(clientMsg.Message, &msg); err != nil {
		m.logger.Debug().Err(err).Str("client_id", clientMsg.Client.ID).Msg("invalid message")
		m.SendToClient(clientMsg.Client.ID, TypeError, &ErrorPayload{Error: "invalid message"})
		return
	}

	switch msg.Type {
	case TypePing:
		m.SendToClient(clientMsg.Client.ID, TypePong, nil)
	default:
		m.SendToClient(clientMsg.Client.ID, TypeError, &ErrorPayload{Error: "unsupported message type"})
	}
}

// Publish implements the post service's feed publisher.
func (m *Manager) Publish(event string, post *domain.PostResponse) {
	if err := m.Broadcast(MessageType(event), post); err != nil {
		m.logger.Error().Err(err).Str("event", event).Msg("failed to broadcast")
	}
}

// Broadcast sends a message to every client. Clients whose buffer is full are
// dropped; they are unregistered outside the read lock.
func (m *Manager) Broadcast(msgType MessageType, payload interface{}) error {
	messageBytes, err := encode(msgType, payload)
	if err != nil {
		return err
	}

	var slow []*Client

	m.clientsMutex.RLock()
	for _, client := range m.clients {
		select {
		case client.Send <- messageBytes:
		default:
			slow = append(slow, client)
		}
	}
	m.clientsMutex.RUnlock()

	for _, client := range slow {
		m.logger.Warn().Str("client_id", client.ID).Msg("send buffer full, closing connection")
		go m.unregister(client)
	}

	return nil
}

func (m *Manager) SendToClient(clientID string, msgType MessageType, payload interface{}) error {
	messageBytes, err := encode(msgType, payload)
	if err != nil {
		return err
	}

	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	client, exists := m.clients[clientID]
	if !exists {
		return nil
	}

	select {
	case client.Send <- messageBytes:
	default:
		m.logger.Warn().Str("client_id", clientID).Msg("send buffer full")
	}

	return nil
}

// Join hands a new client to the hub. It reports false once the hub has
// stopped.
func (m *Manager) Join(client *Client) bool {
	select {
	case m.Register <- client:
		return true
	case <-m.done:
		return false
	}
}

// unregister hands client to Run, or gives up once Run has returned.
func (m *Manager) unregister(client *Client) {
	select {
	case m.Unregister <- client:
	case <-m.done:
	}
}

func (m *Manager) ConnectionCount() int {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()
	return len(m.clients)
}

func (m *Manager) GetUserConnections(userID string) int {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()
	return len(m.limitIndex["user:"+userID])
}

func encode(msgType MessageType, payload interface{}) ([]byte, error) {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(msg)
}
