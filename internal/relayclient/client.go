// Package relayclient is a Go client for the dogfight signaling relay.
package relayclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BioHazard786/dogfight/internal/dns"
	"github.com/BioHazard786/dogfight/internal/signaling"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// ErrClosed is returned by Send after Close or after the connection dropped.
var ErrClosed = errors.New("relay connection closed")

// Client manages the WebSocket connection to the signaling server.
type Client struct {
	conn      *websocket.Conn
	serverURL string
	incoming  chan *signaling.Message
	outgoing  chan *signaling.Message
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient creates a new signaling client
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: serverURL,
		incoming:  make(chan *signaling.Message, 16),
		outgoing:  make(chan *signaling.Message, 16),
		done:      make(chan struct{}),
	}
}

// Connect establishes WebSocket connection to the server.
func (c *Client) Connect(ctx context.Context) error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	// Resolve through the fallback resolver so a broken system DNS does
	// not hide a healthy relay.
	dialer := *websocket.DefaultDialer
	dialer.NetDialContext = dns.NewResolver().DialContext

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.conn = conn
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()

	return nil
}

// readPump reads messages from the WebSocket connection.
func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		var msg signaling.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		select {
		case c.incoming <- &msg:
		case <-c.done:
			return
		}
	}
}

// writePump writes messages to the WebSocket connection and sends periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Send queues msg for the server.
func (c *Client) Send(msg *signaling.Message) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.outgoing <- msg:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// CreateRoom asks the relay to open a room hosted by peerID.
func (c *Client) CreateRoom(code, peerID string) error {
	return c.Send(&signaling.Message{Type: signaling.TypeCreateRoom, RoomCode: code, PeerID: peerID})
}

// JoinRoom asks the relay to add peerID to an existing room.
func (c *Client) JoinRoom(code, peerID string) error {
	return c.Send(&signaling.Message{Type: signaling.TypeJoinRoom, RoomCode: code, PeerID: peerID})
}

// LeaveRoom detaches from the current room without closing the socket.
func (c *Client) LeaveRoom() error {
	return c.Send(&signaling.Message{Type: signaling.TypeLeaveRoom})
}

// SendOffer forwards an SDP offer to target.
func (c *Client) SendOffer(target string, offer any) error {
	return c.sendSignal(signaling.TypeOffer, target, offer)
}

// SendAnswer forwards an SDP answer to target.
func (c *Client) SendAnswer(target string, answer any) error {
	return c.sendSignal(signaling.TypeAnswer, target, answer)
}

// SendCandidate forwards an ICE candidate to target.
func (c *Client) SendCandidate(target string, candidate any) error {
	return c.sendSignal(signaling.TypeICECandidate, target, candidate)
}

func (c *Client) sendSignal(kind, target string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}

	msg := &signaling.Message{Type: kind, TargetPeer: target}
	switch kind {
	case signaling.TypeOffer:
		msg.Offer = raw
	case signaling.TypeAnswer:
		msg.Answer = raw
	case signaling.TypeICECandidate:
		msg.Candidate = raw
	}
	return c.Send(msg)
}

// Incoming returns the channel for receiving messages. It is closed when
// the connection ends.
func (c *Client) Incoming() <-chan *signaling.Message {
	return c.incoming
}

// Close sends a close frame and releases the connection.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
