package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"video-linker/src/domain"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsSendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ProgressHub рассылает события конвейера подписчикам по WebSocket
type ProgressHub struct {
	mu      sync.RWMutex
	clients map[*progressClient]struct{}
	logger  *slog.Logger
}

type progressClient struct {
	requestID string // пусто - все события
	send      chan domain.ProgressEvent
}

// NewProgressHub создает новый экземпляр рассылки событий
func NewProgressHub(logger *slog.Logger) *ProgressHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressHub{
		clients: make(map[*progressClient]struct{}),
		logger:  logger,
	}
}

var _ domain.ProgressReporter = (*ProgressHub)(nil)

// Report отправляет событие подписчикам без блокировки: медленный клиент теряет события
func (h *ProgressHub) Report(event domain.ProgressEvent) {
	if event.Time.IsZero() {
		event.Time = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if client.requestID != "" && client.requestID != event.RequestID {
			continue
		}
		select {
		case client.send <- event:
		default:
			h.logger.Debug("очередь клиента переполнена, событие отброшено",
				slog.String("request_id", event.RequestID),
				slog.String("stage", event.Stage))
		}
	}
}

// Clients возвращает число подключенных подписчиков
func (h *ProgressHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *ProgressHub) add(client *progressClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
}

func (h *ProgressHub) remove(client *progressClient) {
	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()
}

// ServeWS GET /ws/progress?request_id=...
func (h *ProgressHub) ServeWS(c *gin.Context) {
	client := &progressClient{
		requestID: c.Query("request_id"),
		send:      make(chan domain.ProgressEvent, wsSendBuffer),
	}
	// Подписка до ответа на handshake, чтобы не пропустить ранние события
	h.add(client)
	defer h.remove(client)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("не удалось установить WebSocket соединение", slog.Any("error", err))
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case event := <-client.send:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
