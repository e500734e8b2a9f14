package signaling

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/BioHazard786/dogfight/internal/events"
)

// Options configures a Hub. Zero values select the defaults.
type Options struct {
	MaxPeers         int
	IdleTimeout      time.Duration
	SweepInterval    time.Duration
	HandshakeTimeout time.Duration

	// MaxMessageSize bounds a single inbound frame.
	MaxMessageSize int64

	// SendBuffer is the number of outbound frames queued per client.
	SendBuffer int

	Sink   events.Sink
	Clock  clockwork.Clock
	Logger *slog.Logger
}

// Stats is a point-in-time view of the relay.
type Stats struct {
	Rooms       int `json:"rooms"`
	Peers       int `json:"peers"`
	Connections int `json:"connections"`
	Bound       int `json:"bound"`
}

type inboundFrame struct {
	client *Client
	data   []byte
	binary bool
}

// Hub is the central brain of the signaling server.
// Run is the single goroutine that owns every room, session and timer;
// clients and timers talk to it only through channels, so each message
// is handled to completion before the next one starts.
type Hub struct {
	opts    Options
	logger  *slog.Logger
	router  *Router
	guard   *Guard
	sweeper *Sweeper

	// clients holds every registered connection, bound or not.
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	inbound    chan inboundFrame
	expired    chan Transport
	stats      chan chan Stats

	done chan struct{}
}

// NewHub creates a new Hub instance.
func NewHub(opts Options) *Hub {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = defaultMaxMessageSize
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}

	h := &Hub{
		opts:       opts,
		logger:     opts.Logger,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundFrame),
		expired:    make(chan Transport),
		stats:      make(chan chan Stats),
		done:       make(chan struct{}),
	}

	registry := NewRegistry(opts.MaxPeers, opts.Clock)
	h.router = NewRouter(registry, NewTracker(), opts.Sink, opts.Clock, opts.Logger)
	h.guard = NewGuard(opts.HandshakeTimeout, opts.Clock, h.expire)
	h.sweeper = NewSweeper(h.router, opts.SweepInterval, opts.IdleTimeout, opts.Clock)
	return h
}

// Run starts the hub's main processing loop. It returns after ctx is
// cancelled and every room and connection has been closed.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	sweep := h.sweeper.Start()
	defer h.sweeper.Stop()

	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.guard.Arm(client)
			h.router.Greet(client)
			h.logger.Debug("Client registered", "remote", client.RemoteAddr())

		case client := <-h.unregister:
			if !h.clients[client] {
				continue
			}
			delete(h.clients, client)
			h.guard.Disarm(client)
			h.router.Disconnect(client)
			client.Close(websocket.CloseNormalClosure, "")
			h.logger.Debug("Client unregistered", "remote", client.RemoteAddr())

		case frame := <-h.inbound:
			if !h.clients[frame.client] {
				continue
			}
			// Any frame shows intent to talk, even one that fails to parse.
			h.guard.Disarm(frame.client)
			if frame.binary {
				h.router.sendError(frame.client, NewError("decode message", ErrInvalidMessage))
				continue
			}
			h.router.HandleFrame(frame.client, frame.data)

		case t := <-h.expired:
			if !h.guard.Expired(t) {
				continue
			}
			h.logger.Info("Closing silent connection", "remote", t.RemoteAddr())
			t.Close(websocket.CloseNormalClosure, "Connection timeout")

		case <-sweep:
			if n := h.sweeper.Sweep(); n > 0 {
				h.logger.Info("Idle rooms evicted", "count", n)
			}

		case reply := <-h.stats:
			stats := h.router.Stats()
			stats.Connections = len(h.clients)
			reply <- stats

		case <-ctx.Done():
			h.shutdown()
			return
		}
	}
}

func (h *Hub) shutdown() {
	h.guard.Stop()
	h.router.CloseAll(events.ReasonShutdown)
	for client := range h.clients {
		client.Close(websocket.CloseGoingAway, "Server shutting down")
		delete(h.clients, client)
	}
	h.logger.Info("Hub stopped")
}

// Register hands a new client to the hub. It reports false if the hub
// has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister tells the hub that c's connection is gone.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) deliver(c *Client, data []byte, binary bool) {
	select {
	case h.inbound <- inboundFrame{client: c, data: data, binary: binary}:
	case <-h.done:
	}
}

// expire is the guard's timer callback; it runs on a timer goroutine.
func (h *Hub) expire(t Transport) {
	select {
	case h.expired <- t:
	case <-h.done:
	}
}

// Stats asks the loop for a snapshot. It returns zero Stats once the hub
// has stopped.
func (h *Hub) Stats() Stats {
	reply := make(chan Stats, 1)
	select {
	case h.stats <- reply:
		return <-reply
	case <-h.done:
		return Stats{}
	}
}

// Done is closed when Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}
