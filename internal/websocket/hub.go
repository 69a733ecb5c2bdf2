package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"aura-chat-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const clusterChannel = "cluster_events"

// clusterFrame is what instances exchange over Redis. Origin lets an instance
// skip frames it published itself.
type clusterFrame struct {
	Origin       string          `json:"origin"`
	TargetUserID string          `json:"target_user_id"`
	Message      json.RawMessage `json:"message"`
}

type Hub struct {
	// Registered clients map: UserID -> List of Clients (multi-device)
	clients map[uuid.UUID][]*Client

	register   chan *Client
	unregister chan *Client
	// Closed when Run returns.
	done chan struct{}

	mu sync.RWMutex

	// Redis connection for cross-instance delivery. Nil runs single-instance.
	rdb        *redis.Client
	instanceID string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.userID] = append(h.clients[client.userID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.userID})

		case client := <-h.unregister:
			h.mu.Lock()
			clients := h.clients[client.userID]
			for i, c := range clients {
				if c == client {
					h.clients[client.userID] = append(clients[:i], clients[i+1:]...)
					break
				}
			}
			if len(h.clients[client.userID]) == 0 {
				delete(h.clients, client.userID)
				h.logger.Info("Hub", "Client completely unregistered", map[string]interface{}{"user_id": client.userID})
			}
			h.mu.Unlock()
		}
	}
}

// add registers a client. It reports false once the hub has stopped.
func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// closeAll drops every connection so their read loops return.
func (h *Hub) closeAll() {
	h.mu.RLock()
	var conns []*Client
	for _, clients := range h.clients {
		conns = append(conns, clients...)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if c.conn != nil {
			_ = c.conn.Close()
		}
	}
	h.logger.Info("Hub", "Hub stopped", map[string]interface{}{"connections": len(conns)})
}

// SendToUser delivers a frame to every open connection of the user, here and
// on other instances.
func (h *Hub) SendToUser(userID uuid.UUID, frame []byte) {
	delivered := h.deliverLocal(userID, frame)

	if h.rdb == nil {
		if delivered == 0 {
			h.logger.Debug("Hub", "No open connection for user, frame dropped", map[string]interface{}{"user_id": userID})
		}
		return
	}

	payload, err := json.Marshal(clusterFrame{
		Origin:       h.instanceID,
		TargetUserID: userID.String(),
		Message:      frame,
	})
	if err != nil {
		return
	}
	if err := h.rdb.Publish(context.Background(), clusterChannel, payload).Err(); err != nil {
		h.logger.Warn("Hub", "Failed to publish frame to cluster", map[string]interface{}{
			"user_id": userID,
			"error":   err,
		})
	}
}

// Connections reports how many connections the user has on this instance.
func (h *Hub) Connections(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) deliverLocal(userID uuid.UUID, frame []byte) int {
	h.mu.RLock()
	clients := append([]*Client(nil), h.clients[userID]...)
	h.mu.RUnlock()

	delivered := 0
	for _, client := range clients {
		if client.trySend(frame) {
			delivered++
		}
	}
	return delivered
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	go func() {
		<-ctx.Done()
		pubsub.Close()
	}()

	for msg := range pubsub.Channel() {
		var payload clusterFrame
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn("Hub", "Cluster frame parse error", map[string]interface{}{"error": err})
			continue
		}
		if payload.Origin == h.instanceID {
			continue
		}

		uid, err := uuid.Parse(payload.TargetUserID)
		if err != nil {
			continue
		}
		h.deliverLocal(uid, payload.Message)
	}
}
