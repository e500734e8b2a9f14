package signaling

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	defaultMaxMessageSize = 64 * 1024 // 64 KB - enough for WebRTC SDP messages

	defaultSendBuffer = 256
)

// Client is a wrapper for a single websocket connection (a peer).
//
// The closed flag and close code belong to the hub goroutine. The write
// pump reads the close code only after the send channel is closed.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// send is a buffered channel of encoded outbound frames. The hub is
	// its only writer; WritePump is its only reader.
	send chan []byte

	remote      string
	closed      bool
	closeCode   int
	closeReason string
}

// NewClient wraps an upgraded connection. Register it with the hub, then
// start both pumps.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, hub.opts.SendBuffer),
		remote: conn.RemoteAddr().String(),
	}
}

// Send queues msg without blocking. A client whose buffer is full is
// too slow to keep up and gets closed.
func (c *Client) Send(msg *Message) bool {
	if c.closed {
		return false
	}
	data, err := encodeMessage(msg)
	if err != nil {
		c.hub.logger.Error("Failed to encode message", "type", msg.Type, "error", err)
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		c.hub.logger.Warn("Send buffer full, closing client", "remote", c.remote)
		c.Close(websocket.CloseTryAgainLater, "send buffer full")
		return false
	}
}

// Close makes WritePump send a close frame and exit. Later calls are
// no-ops.
func (c *Client) Close(code int, reason string) {
	if c.closed {
		return
	}
	c.closed = true
	c.closeCode = code
	c.closeReason = reason
	close(c.send)
}

func (c *Client) Alive() bool {
	return !c.closed
}

func (c *Client) RemoteAddr() string {
	return c.remote
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) ReadPump() {
	// When this function exits (e.g., connection closes), unregister the client
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNoStatusReceived) {
				c.hub.logger.Warn("Websocket read failed", "remote", c.remote, "error", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		c.hub.deliver(c, data, messageType != websocket.TextMessage)
	}
}

// WritePump pumps messages from the hub to the websocket connection.
//
// A goroutine running WritePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	// When this function exits, stop the ticker and close the connection
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(c.closeCode, c.closeReason))
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.hub.logger.Debug("Websocket write failed", "remote", c.remote, "error", err)
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
