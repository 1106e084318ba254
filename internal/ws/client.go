package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"parley/internal/auth"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Options tunes per-connection behavior.
type Options struct {
	SendBuffer   int     // outbound queue per session
	MessageRate  float64 // inbound events per second
	MessageBurst int
}

func (o Options) withDefaults() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	if o.MessageRate <= 0 {
		o.MessageRate = 10
	}
	if o.MessageBurst <= 0 {
		o.MessageBurst = 20
	}
	return o
}

// Client pumps one websocket connection: inbound events are decoded into
// typed commands and dispatched, outbound pushes drain from the same send
// channel the hub delivers into.
type Client struct {
	handle string
	userID int

	conn     *websocket.Conn
	send     chan []byte
	hub      *Hub
	subs     *Subscriptions
	pipeline *Pipeline
	limiter  *rate.Limiter
	log      zerolog.Logger
}

// ServeWS authenticates the handshake with the same token verifier the REST
// API uses, registers a new live session, and starts its pumps. A rejected
// credential never upgrades the connection.
func ServeWS(hub *Hub, subs *Subscriptions, pipeline *Pipeline, tokens *auth.TokenManager,
	opts Options, w http.ResponseWriter, r *http.Request) {

	token, err := auth.ExtractToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	userID, err := tokens.Verify(token)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	opts = opts.withDefaults()
	handle := uuid.NewString()
	send := make(chan []byte, opts.SendBuffer)

	if err := hub.Register(handle, userID, send); err != nil {
		// Handles are freshly generated UUIDs; a duplicate is an internal
		// invariant violation.
		hub.log.Error().Err(err).Str("session", handle).Msg("registering session")
		conn.Close()
		return
	}

	c := &Client{
		handle:   handle,
		userID:   userID,
		conn:     conn,
		send:     send,
		hub:      hub,
		subs:     subs,
		pipeline: pipeline,
		limiter:  rate.NewLimiter(rate.Limit(opts.MessageRate), opts.MessageBurst),
		log:      hub.log.With().Str("session", handle).Int("user", userID).Logger(),
	}

	go c.writePump()
	go c.readPump()
}

// readPump processes inbound events strictly in arrival order for this
// session. It owns the unregister call: whatever ends the loop, the session
// leaves every room before the connection is torn down.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c.handle)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn().Err(err).Msg("websocket read error")
			}
			return
		}

		if !c.limiter.Allow() {
			c.pushError("", "rate limit exceeded")
			continue
		}

		var cmd Command
		if err := json.Unmarshal(raw, &cmd); err != nil {
			c.pushError("", "malformed event")
			continue
		}
		c.dispatch(cmd)
	}
}

func (c *Client) dispatch(cmd Command) {
	var err error
	switch cmd.Type {
	case cmdJoinConversation:
		err = c.subs.Join(c.handle, c.userID, ConversationRoom(cmd.ID))
	case cmdLeaveConversation:
		err = c.subs.Leave(c.handle, ConversationRoom(cmd.ID))
	case cmdJoinGroup:
		err = c.subs.Join(c.handle, c.userID, GroupRoom(cmd.ID))
	case cmdLeaveGroup:
		err = c.subs.Leave(c.handle, GroupRoom(cmd.ID))
	case cmdNewMessage:
		_, err = c.pipeline.Ingest(c.userID, SendRequest{
			Content:        cmd.Content,
			ConversationID: cmd.ConversationID,
			GroupID:        cmd.GroupID,
		})
	default:
		c.pushError(cmd.Type, "unknown event type")
		return
	}

	if err != nil {
		c.log.Debug().Err(err).Str("event", cmd.Type).Msg("event rejected")
		c.pushError(cmd.Type, err.Error())
	}
}

// pushError sends an explicit error event back to this session only.
func (c *Client) pushError(action, msg string) {
	payload, err := json.Marshal(Event{Type: EventError, Action: action, Error: msg})
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

// writePump drains the send channel onto the wire and keeps the connection
// alive with pings. It exits when the hub closes the send channel.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
