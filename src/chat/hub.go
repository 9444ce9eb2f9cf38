package chat

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"

	"tradingjournal/src/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 512
	sendBuffer     = 32
)

type EventType string

const (
	MessageCreated EventType = "message"
	MessageDeleted EventType = "deleted"
)

// Event is pushed to every subscriber allowed to read the conversation.
type Event struct {
	Type               EventType   `json:"type"`
	ConversationUserID uint        `json:"conversation_user_id"`
	Data               interface{} `json:"data"`
}

type subscriber struct {
	userID uint
	admin  bool
	conn   *websocket.Conn
	send   chan []byte
}

func (s *subscriber) canSee(conversationUserID uint) bool {
	return s.admin || s.userID == conversationUserID
}

// Hub fans chat events out to websocket subscribers. Users receive their own
// conversation, admins receive all of them.
type Hub struct {
	mu       sync.RWMutex
	subs     map[*subscriber]struct{}
	upgrader websocket.Upgrader
}

// NewHub accepts upgrades from the given origins; "*" or an empty list
// allows any origin.
func NewHub(allowedOrigins []string) *Hub {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	anyOrigin := len(allowedOrigins) == 0
	for _, o := range allowedOrigins {
		if o == "*" {
			anyOrigin = true
		}
		allowed[o] = struct{}{}
	}
	return &Hub{
		subs: make(map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if anyOrigin || origin == "" {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish never blocks; a subscriber whose buffer is full is dropped.
func (h *Hub) Publish(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.WithError(err).Error("Failed to encode chat event")
		return
	}

	var slow []*subscriber
	h.mu.RLock()
	for s := range h.subs {
		if !s.canSee(event.ConversationUserID) {
			continue
		}
		select {
		case s.send <- payload:
		default:
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range slow {
		logger.WithField("user_id", s.userID).Warn("Dropping slow chat subscriber")
		h.remove(s)
	}
}

func (h *Hub) MessageCreated(view model.ChatMessageView) {
	h.Publish(Event{Type: MessageCreated, ConversationUserID: view.ConversationUserID, Data: view})
}

func (h *Hub) MessageDeleted(msg model.ChatMessage) {
	h.Publish(Event{
		Type:               MessageDeleted,
		ConversationUserID: msg.ConversationUserID,
		Data:               map[string]uint{"id": msg.ID},
	})
}

func (h *Hub) add(s *subscriber) {
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.send)
	}
	h.mu.Unlock()
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	for s := range h.subs {
		delete(h.subs, s)
		close(s.send)
	}
	h.mu.Unlock()
}

// Serve upgrades the request and streams events to user until the
// connection drops.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, user *model.User) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an error status
		logger.WithError(err).Warn("Chat websocket upgrade failed")
		return
	}

	s := &subscriber{
		userID: user.ID,
		admin:  user.IsAdmin(),
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}
	h.add(s)
	logger.WithFields(map[string]interface{}{
		"user_id": user.ID,
		"admin":   s.admin,
	}).Debug("Chat subscriber connected")

	go h.writeLoop(s)
	h.readLoop(s)
}

// readLoop only services control frames; clients send messages over REST.
func (h *Hub) readLoop(s *subscriber) {
	defer func() {
		h.remove(s)
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(maxInboundSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WithError(err).WithField("user_id", s.userID).Debug("Chat subscriber read error")
			}
			return
		}
	}
}

func (h *Hub) writeLoop(s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
