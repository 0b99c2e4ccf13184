package sse

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"luminaria-extractor/internal/core/models"

	log "github.com/sirupsen/logrus"
)

// Ereignistypen, die an den Browser gesendet werden
const (
	EventProgress         = "progress"
	EventImageUpdated     = "image_updated"
	EventLuminariaCreated = "luminaria_created"
	EventRunFinished      = "run_finished"
)

// Client repräsentiert einen einzelnen verbundenen SSE-Client
type Client chan []byte

// Hub verwaltet die Menge der aktiven Clients und sendet Broadcasts an sie
type Hub struct {
	// Registrierte Clients
	clients map[Client]bool

	// Eingehende Nachrichten von der Anwendung
	broadcast chan []byte

	// Registrierungsanfragen von Clients
	register chan Client

	// Abmeldeanfragen von Clients
	unregister chan Client

	// Mutex zum Schutz des simultanen Zugriffs auf die Clients-Map
	mu sync.Mutex

	done chan struct{}
}

// Event ist die Hülle jeder SSE-Nachricht
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// ProgressData beschreibt den Fortschritt eines Laufs
type ProgressData struct {
	Mode    string `json:"mode"`
	Message string `json:"message"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
}

// RunFinishedData fasst einen beendeten Lauf zusammen
type RunFinishedData struct {
	Mode        string `json:"mode"`
	Processed   int    `json:"processed"`
	Failed      int    `json:"failed"`
	LuminariaID string `json:"luminariaId,omitempty"`
}

// NewHub erstellt eine neue Hub-Instanz
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 100), // Puffer für 100 Nachrichten
		register:   make(chan Client),
		unregister: make(chan Client),
		clients:    make(map[Client]bool),
		done:       make(chan struct{}),
	}
}

// Run startet die Verarbeitungsschleife des Hubs bis ctx beendet wird.
// Dies sollte in einer separaten Goroutine ausgeführt werden.
func (h *Hub) Run(ctx context.Context) {
	log.Info("SSE Hub started and running")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client)
			}
			h.mu.Unlock()
			log.Info("SSE Hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()
			log.Infof("SSE client registered. Total clients: %d", clientCount)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client)
				log.Infof("SSE client unregistered. Total clients: %d", len(h.clients))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			log.Debugf("Broadcasting message to %d SSE clients", len(h.clients))

			for client := range h.clients {
				select {
				case client <- message:
				default:
					// Client-Kanal ist voll
					log.Warn("SSE client channel full, removing client")
					delete(h.clients, client)
					close(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register registriert einen neuen Client am Hub
func (h *Hub) Register(client Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client)
	}
}

// Unregister meldet einen Client vom Hub ab
func (h *Hub) Unregister(client Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount liefert die Zahl der verbundenen Clients
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sendet eine Nachricht an alle registrierten Clients
func (h *Hub) Broadcast(message []byte) {
	// Blockieren vermeiden, wenn der Broadcast-Kanal voll ist
	select {
	case h.broadcast <- message:
	default:
		log.Warn("SSE broadcast channel full, message dropped")
	}
}

// BroadcastEvent serialisiert ein Ereignis und sendet es an alle Clients
func (h *Hub) BroadcastEvent(eventType string, data interface{}) {
	jsonData, err := json.Marshal(Event{Type: eventType, Data: data, Timestamp: time.Now()})
	if err != nil {
		log.Errorf("Failed to marshal %s event for SSE: %v", eventType, err)
		return
	}
	h.Broadcast(jsonData)
}

// Progress meldet den Fortschritt eines Laufs
func (h *Hub) Progress(mode, message string, current, total int) {
	h.BroadcastEvent(EventProgress, ProgressData{Mode: mode, Message: message, Current: current, Total: total})
}

// ImageUpdated meldet ein verarbeitetes oder bearbeitetes Bild
func (h *Hub) ImageUpdated(img models.ProcessedImage) {
	h.BroadcastEvent(EventImageUpdated, img)
}

// LuminariaCreated meldet einen neuen Datensatz
func (h *Hub) LuminariaCreated(l models.Luminaria) {
	log.Infof("Broadcasting new luminaria %s to SSE clients", l.ID)
	h.BroadcastEvent(EventLuminariaCreated, l)
}

// RunFinished meldet das Ende eines Laufs
func (h *Hub) RunFinished(data RunFinishedData) {
	h.BroadcastEvent(EventRunFinished, data)
}
