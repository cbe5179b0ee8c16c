package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"mineralclassifier/internal/config"
	"mineralclassifier/internal/logger"
)

const writeWait = 5 * time.Second

// HubService fans model status updates out to every connected browser.
// New clients immediately receive the most recent status.
type HubService struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	stopOnce   sync.Once
	last       []byte
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHubService(config *config.Config, logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves registrations and broadcasts until Stop is called.
func (h *HubService) Run() {
	for {
		select {
		case <-h.done:
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
			last := h.last
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Status client connected. Total: %d", total)
			if last != nil {
				h.send(client, last)
			}

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Status client disconnected. Total: %d", total)

		case message := <-h.broadcast:
			h.mutex.Lock()
			h.last = message
			clients := make([]*websocket.Conn, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mutex.Unlock()
			for _, client := range clients {
				h.send(client, message)
			}
		}
	}
}

// send runs on the hub goroutine only, so writes never overlap.
func (h *HubService) send(client *websocket.Conn, message []byte) {
	client.SetWriteDeadline(time.Now().Add(writeWait))
	if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
		h.logger.Warning("Error sending status: %v", err)
		h.mutex.Lock()
		delete(h.clients, client)
		h.mutex.Unlock()
		client.Close()
	}
}

func (h *HubService) Register(client *websocket.Conn) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues message for all clients. It never blocks: when the queue
// is full the message is dropped, but it still becomes the status that new
// clients receive.
func (h *HubService) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	default:
		h.mutex.Lock()
		h.last = message
		h.mutex.Unlock()
		h.logger.Warning("⚠️  Status queue full - dropping update")
	}
}

// Last returns the most recent status message, or nil.
func (h *HubService) Last() []byte {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.last
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Stop disconnects every client and ends Run.
func (h *HubService) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}
