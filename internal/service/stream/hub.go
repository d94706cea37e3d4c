// Package stream turns collector frames into JPEGs and fans them out to
// websocket viewers and MJPEG subscribers.
package stream

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/njy33900/PoseDataColletor/internal/logger"
	"github.com/njy33900/PoseDataColletor/internal/service/slot"
)

const writeWait = 2 * time.Second

// Hub distributes the newest JPEG. Slow consumers miss frames; nobody
// blocks the producer.
type Hub struct {
	clients     map[*websocket.Conn]bool
	subscribers map[chan []byte]struct{}
	broadcast   chan []byte
	register    chan *websocket.Conn
	unregister  chan *websocket.Conn
	done        chan struct{}
	mutex       sync.RWMutex
	latest      slot.Cell[[]byte]
	logger      *logger.Logger
}

func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		clients:     make(map[*websocket.Conn]bool),
		subscribers: make(map[chan []byte]struct{}),
		broadcast:   make(chan []byte, 1),
		register:    make(chan *websocket.Conn),
		unregister:  make(chan *websocket.Conn),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every websocket client. Run must be called at most once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer connected. Total: %d", count)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer disconnected. Total: %d", count)

		case message := <-h.broadcast:
			h.send(message)
		}
	}
}

func (h *Hub) send(message []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteMessage(websocket.BinaryMessage, message); err != nil {
			h.logger.Warning("Dropping viewer: %v", err)
			delete(h.clients, client)
			client.Close()
		}
	}

	for sub := range h.subscribers {
		offer(sub, message)
	}
}

// offer replaces whatever is waiting in a one-slot channel.
func offer(ch chan []byte, message []byte) {
	select {
	case ch <- message:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- message:
	default:
	}
}

// Publish records jpeg as the newest frame and queues it for broadcast,
// replacing a frame that has not gone out yet.
func (h *Hub) Publish(jpeg []byte) {
	h.latest.Swap(jpeg, true)
	offer(h.broadcast, jpeg)
}

// Latest returns the newest published JPEG. The slice must not be modified.
func (h *Hub) Latest() ([]byte, bool) {
	return h.latest.Load(nil)
}

// Subscribe returns a channel carrying the newest frames and a cancel func.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 1)
	if jpeg, ok := h.Latest(); ok {
		ch <- jpeg
	}

	h.mutex.Lock()
	h.subscribers[ch] = struct{}{}
	h.mutex.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mutex.Lock()
			delete(h.subscribers, ch)
			h.mutex.Unlock()
		})
	}
}

// Register adds a websocket viewer. After Run has returned the client is
// closed instead.
func (h *Hub) Register(client *websocket.Conn) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

// Unregister removes and closes a viewer. It does not block once Run has
// returned.
func (h *Hub) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) SubscriberCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.subscribers)
}
