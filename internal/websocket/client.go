package websocket

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/bus"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/models"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period; must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Clients never send meaningful payloads — the subscription address is
	// fixed at connect time by the URL — so the read limit only needs to
	// cover pings/control frames.
	maxMessageSize = 512
)

// connectedFrame is the server->client handshake sent once per connection.
type connectedFrame struct {
	Type    string `json:"type"`
	Address string `json:"address"`
}

// emailFrame inlines every Email field alongside the frame's type tag.
type emailFrame struct {
	Type string `json:"type"`
	*models.Email
}

// emailDeletedFrame announces a removed email to subscribers of its address.
type emailDeletedFrame struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Address string `json:"address"`
}

// Client is one WebSocket connection, subscribed to bus events for exactly
// one mailbox address.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	address string
	send    chan []byte
	closeCh chan struct{}
	logger  *slog.Logger
}

// NewClient creates a Client bound to address. Call Run to start serving it;
// Run blocks until the connection closes.
func NewClient(hub *Hub, conn *websocket.Conn, address string, logger *slog.Logger) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		address: address,
		send:    make(chan []byte, 64),
		closeCh: make(chan struct{}),
		logger:  logger,
	}
}

// Run registers the client, sends the Connected handshake, subscribes to
// the bus for its address, and pumps events to the socket until either side
// closes the connection. It blocks until the connection ends.
func (c *Client) Run(b *bus.Bus) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)
	defer c.conn.Close()

	events, unsubscribe := b.Subscribe(c.address)
	defer unsubscribe()
	b.PublishConnected(c.address)

	if frame, err := json.Marshal(connectedFrame{Type: "Connected", Address: c.address}); err == nil {
		select {
		case c.send <- frame:
		default:
		}
	}

	go c.readPump()
	c.writePump(events)
}

// readPump exists only to detect the peer closing the connection (clients
// never send subscribe/unsubscribe messages in this model — the address is
// fixed by the URL the connection was opened against) and to answer pings.
func (c *Client) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				if c.logger != nil {
					c.logger.Debug("websocket read error", slog.Any("error", err))
				}
			}
			close(c.closeCh)
			return
		}
	}
}

// writePump forwards bus events for this client's address to the socket as
// JSON frames, and pings the peer on an interval. It returns when the
// connection should close, either because the peer disconnected (readPump
// closed closeCh) or because the bus subscription channel closed.
func (c *Client) writePump(events <-chan bus.Event) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.closeCh:
			return

		case event, ok := <-events:
			if !ok {
				return
			}
			frame, err := encodeEvent(event)
			if err != nil {
				if c.logger != nil {
					c.logger.Error("failed to encode websocket frame", slog.Any("error", err))
				}
				continue
			}
			if frame == nil {
				continue
			}
			if err := c.write(frame); err != nil {
				return
			}

		case frame := <-c.send:
			if err := c.write(frame); err != nil {
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

func (c *Client) write(frame []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

// encodeEvent translates a bus.Event into the wire frame for its kind.
// Connected events are handled inline at connect time, not here.
func encodeEvent(event bus.Event) ([]byte, error) {
	switch event.Kind {
	case bus.EmailArrived:
		return json.Marshal(emailFrame{Type: "Email", Email: event.Email})
	case bus.EmailDeleted:
		return json.Marshal(emailDeletedFrame{Type: "EmailDeleted", ID: event.EmailID, Address: event.Address})
	default:
		return nil, nil
	}
}
