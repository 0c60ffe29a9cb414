// SPDX-License-Identifier: MIT
package transport

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	applog "vizmon/internal/log"
	"vizmon/internal/viz"
)

// WebSocket broadcasts frames as JSON to every connected client. Frames are
// queued through a buffered channel; when the queue is full the frame is
// dropped, matching the latest-wins discipline of the rest of the pipeline.
type WebSocket struct {
	addr      string
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan *viz.Frame
	server    *http.Server
}

var _ Transport = (*WebSocket)(nil)

// NewWebSocket starts a broadcaster listening on addr with a /ws endpoint.
func NewWebSocket(addr string) *WebSocket {
	ws := &WebSocket{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan *viz.Frame, 64),
	}
	ws.start()
	return ws
}

func (ws *WebSocket) start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", ws.handleWebSocket)

	ws.server = &http.Server{Addr: ws.addr, Handler: mux}

	go func() {
		applog.Infof("transport: websocket listening on %s", ws.addr)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			applog.Errorf("transport: websocket server: %v", err)
		}
	}()

	go ws.pump()
}

func (ws *WebSocket) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("transport: upgrade failed: %v", err)
		return
	}

	ws.clientsMu.Lock()
	ws.clients[conn] = true
	total := len(ws.clients)
	ws.clientsMu.Unlock()
	applog.Infof("transport: client connected, total: %d", total)

	go func() {
		// Block until the peer goes away, then unregister.
		if _, _, err := conn.ReadMessage(); err != nil {
			ws.clientsMu.Lock()
			delete(ws.clients, conn)
			ws.clientsMu.Unlock()
			conn.Close()
			applog.Infof("transport: client disconnected")
		}
	}()
}

func (ws *WebSocket) pump() {
	for frame := range ws.broadcast {
		ws.clientsMu.Lock()
		for client := range ws.clients {
			if err := client.WriteJSON(frame); err != nil {
				client.Close()
				delete(ws.clients, client)
			}
		}
		ws.clientsMu.Unlock()
	}
}

// Send queues a frame for broadcast, dropping it when the queue is full.
func (ws *WebSocket) Send(frame *viz.Frame) error {
	select {
	case ws.broadcast <- frame:
	default:
	}
	return nil
}

// Close disconnects all clients and stops the server.
func (ws *WebSocket) Close() error {
	ws.clientsMu.Lock()
	for client := range ws.clients {
		client.Close()
	}
	ws.clients = make(map[*websocket.Conn]bool)
	ws.clientsMu.Unlock()

	if ws.server != nil {
		return ws.server.Close()
	}
	return nil
}
