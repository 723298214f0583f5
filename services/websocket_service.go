package services

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/barbaritakodi-cell/sender/logger"
	"github.com/barbaritakodi-cell/sender/models"
)

// WebSocketService fans progress updates out to every connected client. The
// single operator may have several tabs open; all of them see the same run.
type WebSocketService struct {
	clients   map[*websocket.Conn]bool
	mu        sync.Mutex
	broadcast chan models.ProgressUpdate
}

func NewWebSocketService() *WebSocketService {
	ws := &WebSocketService{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan models.ProgressUpdate, 100),
	}
	go ws.handleBroadcasts()
	return ws
}

func (ws *WebSocketService) AddClient(conn *websocket.Conn) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.clients[conn] = true
	logger.Debugf("websocket client connected (%d total)", len(ws.clients))
}

func (ws *WebSocketService) RemoveClient(conn *websocket.Conn) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	delete(ws.clients, conn)
	conn.Close()
}

// BroadcastChannel is handed to the send service; every update written to it
// reaches all connected clients.
func (ws *WebSocketService) BroadcastChannel() chan<- models.ProgressUpdate {
	return ws.broadcast
}

func (ws *WebSocketService) handleBroadcasts() {
	for update := range ws.broadcast {
		ws.mu.Lock()
		for client := range ws.clients {
			err := client.WriteJSON(map[string]interface{}{
				"type": "progress",
				"data": update,
			})
			if err != nil {
				delete(ws.clients, client)
				client.Close()
			}
		}
		ws.mu.Unlock()
	}
}
