package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"testcase-assistant/internal/chat"
	"testcase-assistant/internal/models"
	"testcase-assistant/pkg/log"
)

const submitTimeout = 2 * time.Minute

// writeWait bounds a single frame write.
var writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Frame is a server to client message.
type Frame struct {
	Type     string              `json:"type"` // message, advisory, busy, state, error
	Session  string              `json:"session,omitempty"`
	Message  *models.ChatMessage `json:"message,omitempty"`
	Advisory string              `json:"advisory,omitempty"`
	State    string              `json:"state,omitempty"`
	Model    string              `json:"model,omitempty"`
	Error    string              `json:"error,omitempty"`
}

type inbound struct {
	Message string `json:"message"`
	Model   string `json:"model,omitempty"`
}

// ConnectionTracker is told about sockets opening and closing.
type ConnectionTracker interface {
	ConnectionOpened()
	ConnectionClosed()
}

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

type room struct {
	session *chat.Session
	clients []*client
	cancel  context.CancelFunc
}

// Hub serves live chat sessions. Every connection on this instance that names
// the same session id shares one transcript and one in-flight exchange. With
// Redis configured, session frames are fanned out over pub/sub to the same
// session id on other replicas, but each replica keeps its own transcript and
// busy state.
type Hub struct {
	mu          sync.RWMutex
	rooms       map[uuid.UUID]*room
	transport   chat.Transport
	redisClient *redis.Client
	sessionOpts []chat.Option
	tracker     ConnectionTracker
}

// NewHub builds a hub. redisClient may be nil, in which case events are only
// delivered to connections on this instance.
func NewHub(transport chat.Transport, redisClient *redis.Client, sessionOpts ...chat.Option) *Hub {
	return &Hub{
		rooms:       make(map[uuid.UUID]*room),
		transport:   transport,
		redisClient: redisClient,
		sessionOpts: sessionOpts,
	}
}

func (h *Hub) SetTracker(t ConnectionTracker) {
	h.tracker = t
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(r.URL.Query().Get("session"))
	if err != nil {
		sessionID = uuid.New()
	}
	model := r.URL.Query().Get("model")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("WebSocket upgrade failed", err)
		return
	}

	c := &client{conn: conn}
	session := h.registerConnection(sessionID, model, c)

	// Greet with the session id and the transcript so far
	h.sendFrame(c, Frame{Type: "state", Session: sessionID.String(), State: session.State().String(), Model: session.Model()})
	for _, msg := range session.Transcript() {
		h.sendFrame(c, Frame{Type: "message", Message: &msg})
	}

	go func() {
		defer h.unregisterConnection(sessionID, c)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				break
			}
			h.handleInbound(session, c, data)
		}
	}()
}

func (h *Hub) handleInbound(session *chat.Session, c *client, data []byte) {
	var in inbound
	if err := json.Unmarshal(data, &in); err != nil {
		h.sendFrame(c, Frame{Type: "error", Error: "Invalid message format"})
		return
	}
	if in.Model != "" {
		session.SetModel(in.Model)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()

		_, err := session.Submit(ctx, in.Message)
		switch {
		case err == nil:
		case errors.Is(err, chat.ErrBusy):
			h.sendFrame(c, Frame{Type: "busy", Error: "Please wait for the current response."})
		case errors.Is(err, chat.ErrEmptyMessage):
			h.sendFrame(c, Frame{Type: "error", Error: "Message is required"})
		default:
			h.sendFrame(c, Frame{Type: "error", Error: err.Error()})
		}
	}()
}

func (h *Hub) registerConnection(sessionID uuid.UUID, model string, c *client) *chat.Session {
	h.mu.Lock()
	defer h.mu.Unlock()

	rm, ok := h.rooms[sessionID]
	if !ok {
		opts := append([]chat.Option{}, h.sessionOpts...)
		if model != "" {
			opts = append(opts, chat.WithModel(model))
		}
		opts = append(opts, chat.WithObserver(func(e chat.Event) {
			h.publish(sessionID, frameFor(e))
		}))
		rm = &room{session: chat.NewSession(h.transport, opts...)}
		h.rooms[sessionID] = rm

		// Start pub/sub subscription for the first connection on this session
		if h.redisClient != nil {
			ctx, cancel := context.WithCancel(context.Background())
			rm.cancel = cancel
			go h.subscribeToPubSub(ctx, sessionID)
		}
	}
	rm.clients = append(rm.clients, c)

	if h.tracker != nil {
		h.tracker.ConnectionOpened()
	}
	log.Infow("WebSocket connected", "session", sessionID.String(), "total", len(rm.clients))
	return rm.session
}

func (h *Hub) unregisterConnection(sessionID uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c.conn.Close()

	rm, ok := h.rooms[sessionID]
	if !ok {
		return
	}
	for i, other := range rm.clients {
		if other == c {
			rm.clients = append(rm.clients[:i], rm.clients[i+1:]...)
			break
		}
	}

	// If no more connections, drop the session and its subscription
	if len(rm.clients) == 0 {
		delete(h.rooms, sessionID)
		if rm.cancel != nil {
			rm.cancel()
		}
	}

	if h.tracker != nil {
		h.tracker.ConnectionClosed()
	}
	log.Infow("WebSocket disconnected", "session", sessionID.String())
}

func channelFor(sessionID uuid.UUID) string {
	return "chat_updates:" + sessionID.String()
}

func (h *Hub) publish(sessionID uuid.UUID, f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	if h.redisClient == nil {
		h.broadcast(sessionID, data)
		return
	}
	if err := h.redisClient.Publish(context.Background(), channelFor(sessionID), data).Err(); err != nil {
		log.Error("chat publish failed, delivering locally", err)
		h.broadcast(sessionID, data)
	}
}

func (h *Hub) subscribeToPubSub(ctx context.Context, sessionID uuid.UUID) {
	pubsub := h.redisClient.Subscribe(ctx, channelFor(sessionID))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(sessionID, []byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(sessionID uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rm, ok := h.rooms[sessionID]
	if !ok {
		return
	}
	for _, c := range rm.clients {
		if err := c.send(data); err != nil {
			log.Warnw("WebSocket write failed", "session", sessionID.String(), "error", err)
		}
	}
}

func (h *Hub) sendFrame(c *client, f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	c.send(data)
}

func frameFor(e chat.Event) Frame {
	switch e.Type {
	case chat.EventMessage:
		msg := e.Message
		return Frame{Type: "message", Message: &msg}
	case chat.EventAdvisory:
		return Frame{Type: "advisory", Advisory: e.Advisory}
	default:
		return Frame{Type: "state", State: e.State.String()}
	}
}
