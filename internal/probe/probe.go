// Package probe smoke-tests a relay the way the game uses it: a host
// opens a room, guests join, and every guest negotiates a WebRTC data
// channel with the host through the relay.
package probe

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/BioHazard786/dogfight/internal/relayclient"
	"github.com/BioHazard786/dogfight/internal/roomcode"
)

const (
	RoleHost  = "host"
	RoleGuest = "guest"

	// createAttempts bounds retries when a generated code is taken.
	createAttempts = 3

	// signalingOnlySDP stands in for a session description when no
	// peer connection is made.
	signalingOnlySDP = "v=0\r\ns=dogfight-probe\r\n"
)

type State string

const (
	StateConnecting  State = "connecting"
	StateJoined      State = "joined"
	StateNegotiating State = "negotiating"
	StateConnected   State = "connected"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Options configures a probe run.
type Options struct {
	URL     string
	Guests  int
	Timeout time.Duration
	STUN    []string

	// RoomCode, if set, is opened instead of a generated code.
	RoomCode string

	// SignalingOnly skips WebRTC and checks routing with a synthetic
	// offer and answer.
	SignalingOnly bool

	Logger *slog.Logger

	// OnUpdate, if set, is called from probe goroutines on every state
	// change.
	OnUpdate func(Update)
}

// Update reports a state change for one peer.
type Update struct {
	Peer  string
	Role  string
	State State
	RTT   time.Duration
	Err   error
}

// GuestResult is the outcome for one guest.
type GuestResult struct {
	PeerID       string
	Joined       bool
	Connected    bool
	RTT          time.Duration
	SawHostLeave bool
	Err          error
}

// OK reports whether the guest completed every step.
func (g GuestResult) OK() bool {
	return g.Err == nil && g.Joined && g.Connected && g.SawHostLeave
}

type Result struct {
	URL           string
	RoomCode      string
	HostID        string
	SignalingOnly bool
	Guests        []GuestResult
	Elapsed       time.Duration
}

// OK reports whether every guest passed.
func (r *Result) OK() bool {
	for _, g := range r.Guests {
		if !g.OK() {
			return false
		}
	}
	return len(r.Guests) > 0
}

type endpoint struct {
	id     string
	client *relayclient.Client
	events *relayclient.Handler
}

type runner struct {
	opts    Options
	logger  *slog.Logger
	host    *endpoint
	guests  []*endpoint
	results []GuestResult
	code    string
}

// Run executes one probe. It returns an error only when the host cannot
// open a room; per-guest failures are reported in the result.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Guests < 1 {
		opts.Guests = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	start := time.Now()
	r := &runner{
		opts:    opts,
		logger:  logger,
		guests:  make([]*endpoint, opts.Guests),
		results: make([]GuestResult, opts.Guests),
	}
	defer r.close()

	if err := r.openRoom(ctx); err != nil {
		return nil, err
	}
	r.joinGuests(ctx)

	if opts.SignalingOnly {
		r.exchangeSignals(ctx)
	} else {
		r.connectPeers(ctx)
	}
	r.leave(ctx)

	return &Result{
		URL:           opts.URL,
		RoomCode:      r.code,
		HostID:        r.host.id,
		SignalingOnly: opts.SignalingOnly,
		Guests:        r.results,
		Elapsed:       time.Since(start),
	}, nil
}

func (r *runner) notify(u Update) {
	if r.opts.OnUpdate != nil {
		r.opts.OnUpdate(u)
	}
}

// fail records err for guest i unless an earlier error is already there.
func (r *runner) fail(i int, err error) {
	if r.results[i].Err == nil {
		r.results[i].Err = err
	}
	r.logger.Debug("Probe guest failed", "peer", r.results[i].PeerID, "error", err)
	r.notify(Update{Peer: r.results[i].PeerID, Role: RoleGuest, State: StateFailed, Err: err})
}

func (r *runner) close() {
	if r.host != nil {
		r.host.client.Close()
	}
	for _, g := range r.guests {
		if g != nil {
			g.client.Close()
		}
	}
}

func dial(ctx context.Context, url, id string) (*endpoint, error) {
	client := relayclient.NewClient(url)
	if err := client.Connect(ctx); err != nil {
		return nil, WrapError("connect", id, ErrSignaling, err.Error())
	}

	events := relayclient.NewHandler(client)
	go events.Start()

	ep := &endpoint{id: id, client: client, events: events}
	if _, err := await(ctx, ep, "connect", events.Connected); err != nil {
		client.Close()
		return nil, err
	}
	return ep, nil
}

// await waits for a value on ch, failing on a relay error, a dropped
// connection or ctx.
func await[T any](ctx context.Context, ep *endpoint, op string, ch <-chan T) (T, error) {
	var zero T
	select {
	case v := <-ch:
		return v, nil
	case msg := <-ep.events.Error:
		return zero, WrapError(op, ep.id, ErrSignaling, msg)
	case <-ep.events.Done():
		return zero, WrapError(op, ep.id, ErrSignaling, "connection closed")
	case <-ctx.Done():
		return zero, NewError(op, ep.id, ErrTimeout)
	}
}

func (r *runner) openRoom(ctx context.Context) error {
	host, err := dial(ctx, r.opts.URL, roomcode.NewPeerID())
	if err != nil {
		return err
	}
	r.host = host
	r.notify(Update{Peer: host.id, Role: RoleHost, State: StateConnecting})

	for attempt := 1; ; attempt++ {
		code := r.opts.RoomCode
		if code == "" {
			code, err = roomcode.Generate()
			if err != nil {
				return NewError("generate room code", host.id, err)
			}
		}
		if err := host.client.CreateRoom(code, host.id); err != nil {
			return NewError("create room", host.id, err)
		}

		created, err := await(ctx, host, "create room", host.events.RoomCreated)
		if err == nil {
			r.code = created
			r.logger.Debug("Probe room created", "room", created, "peer", host.id)
			r.notify(Update{Peer: host.id, Role: RoleHost, State: StateJoined})
			return nil
		}

		var probeErr *Error
		// A generated code may collide; a fixed one is reported as is.
		retry := r.opts.RoomCode == "" && attempt < createAttempts
		if retry && errors.As(err, &probeErr) && probeErr.Details == "Room already exists" {
			continue
		}
		return err
	}
}

func (r *runner) joinGuests(ctx context.Context) {
	for i := range r.guests {
		id := roomcode.NewPeerID()
		r.results[i].PeerID = id
		r.notify(Update{Peer: id, Role: RoleGuest, State: StateConnecting})

		guest, err := dial(ctx, r.opts.URL, id)
		if err != nil {
			r.fail(i, err)
			continue
		}
		r.guests[i] = guest

		if err := guest.client.JoinRoom(r.code, id); err != nil {
			r.fail(i, NewError("join room", id, err))
			continue
		}
		if _, err := await(ctx, guest, "join room", guest.events.RoomJoined); err != nil {
			r.fail(i, err)
			continue
		}

		// The host is told about each guest, in join order.
		for {
			joined, err := await(ctx, r.host, "await peer-joined", r.host.events.PeerJoined)
			if err != nil {
				r.fail(i, err)
				break
			}
			if joined == id {
				r.results[i].Joined = true
				r.notify(Update{Peer: id, Role: RoleGuest, State: StateJoined})
				break
			}
		}
	}
}

// joined returns the indexes of guests that made it into the room.
func (r *runner) joined() []int {
	var out []int
	for i := range r.guests {
		if r.guests[i] != nil && r.results[i].Joined && r.results[i].Err == nil {
			out = append(out, i)
		}
	}
	return out
}

// exchangeSignals checks offer and answer routing without WebRTC.
func (r *runner) exchangeSignals(ctx context.Context) {
	for _, i := range r.joined() {
		guest := r.guests[i]
		r.notify(Update{Peer: guest.id, Role: RoleGuest, State: StateNegotiating})

		sent := time.Now()
		if err := r.host.client.SendOffer(guest.id, map[string]string{"type": "offer", "sdp": signalingOnlySDP}); err != nil {
			r.fail(i, NewError("send offer", guest.id, err))
			continue
		}
		if _, err := awaitSignal(ctx, guest, "receive offer", "offer", r.host.id); err != nil {
			r.fail(i, err)
			continue
		}
		if err := guest.client.SendAnswer(r.host.id, map[string]string{"type": "answer", "sdp": signalingOnlySDP}); err != nil {
			r.fail(i, NewError("send answer", guest.id, err))
			continue
		}
		if _, err := awaitSignal(ctx, r.host, "receive answer", "answer", guest.id); err != nil {
			r.fail(i, err)
			continue
		}

		r.results[i].Connected = true
		r.results[i].RTT = time.Since(sent)
		r.notify(Update{Peer: guest.id, Role: RoleGuest, State: StateConnected, RTT: r.results[i].RTT})
	}
}

// leave has the host leave and checks that every guest hears about it.
func (r *runner) leave(ctx context.Context) {
	if err := r.host.client.LeaveRoom(); err != nil {
		for _, i := range r.joined() {
			r.fail(i, NewError("leave room", r.host.id, err))
		}
		return
	}

	for _, i := range r.joined() {
		guest := r.guests[i]
		if err := awaitHostLeave(ctx, guest, r.host.id); err != nil {
			r.fail(i, err)
			continue
		}
		r.results[i].SawHostLeave = true
		if r.results[i].OK() {
			r.notify(Update{Peer: guest.id, Role: RoleGuest, State: StateDone, RTT: r.results[i].RTT})
		}
	}
	r.notify(Update{Peer: r.host.id, Role: RoleHost, State: StateDone})
}

// awaitHostLeave waits for peer-left naming the host. Stray errors from
// late ICE candidates are ignored here.
func awaitHostLeave(ctx context.Context, guest *endpoint, hostID string) error {
	for {
		select {
		case id := <-guest.events.PeerLeft:
			if id == hostID {
				return nil
			}
		case <-guest.events.Done():
			return WrapError("await host leave", guest.id, ErrSignaling, "connection closed")
		case <-ctx.Done():
			return NewError("await host leave", guest.id, ErrTimeout)
		}
	}
}
