package chat

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gorilla/websocket"
)

// Client is one connected user.
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan any
	Done   chan struct{}

	closeOnce sync.Once
}

func newClient(userID string, conn *websocket.Conn) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan any, 32),
		Done:   make(chan struct{}),
	}
}

func (c *Client) stop() {
	c.closeOnce.Do(func() {
		close(c.Done)
		if c.Conn != nil {
			c.Conn.Close()
		}
	})
}

// ConnectionManager tracks at most one live connection per user.
type ConnectionManager struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		clients: make(map[string]*Client),
	}
}

// AddClient registers conn for userID, closing any earlier connection for
// the same user.
func (cm *ConnectionManager) AddClient(userID string, conn *websocket.Conn) *Client {
	client := newClient(userID, conn)

	cm.mu.Lock()
	existing := cm.clients[userID]
	cm.clients[userID] = client
	cm.mu.Unlock()

	if existing != nil {
		existing.stop()
	}
	return client
}

// RemoveClient unregisters client. A newer connection for the same user is
// left in place.
func (cm *ConnectionManager) RemoveClient(client *Client) {
	cm.mu.Lock()
	if cm.clients[client.UserID] == client {
		delete(cm.clients, client.UserID)
	}
	cm.mu.Unlock()
	client.stop()
}

func (cm *ConnectionManager) IsOnline(userID string) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	_, exists := cm.clients[userID]
	return exists
}

// OnlineUsers returns the connected user ids, sorted.
func (cm *ConnectionManager) OnlineUsers() []string {
	cm.mu.RLock()
	users := make([]string, 0, len(cm.clients))
	for userID := range cm.clients {
		users = append(users, userID)
	}
	cm.mu.RUnlock()

	slices.Sort(users)
	return users
}

// SendTo queues message for userID without blocking.
func (cm *ConnectionManager) SendTo(userID string, message any) error {
	cm.mu.RLock()
	client, ok := cm.clients[userID]
	cm.mu.RUnlock()

	if !ok {
		return fmt.Errorf("user %s is not online", userID)
	}

	select {
	case <-client.Done:
		return fmt.Errorf("user %s disconnected", userID)
	default:
	}
	select {
	case client.Send <- message:
		return nil
	default:
		return fmt.Errorf("user %s message queue full", userID)
	}
}
