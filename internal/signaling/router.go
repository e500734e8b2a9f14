package signaling

import (
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/BioHazard786/dogfight/internal/events"
)

// Router is the core signaling logic. It validates incoming messages,
// mutates the registry and tracker, and forwards offers, answers and
// ICE candidates between peers of the same room.
//
// A connection is UNBOUND until it creates or joins a room, BOUND while
// the tracker holds its session, and back to UNBOUND after it leaves or
// its room is closed. Router is not safe for concurrent use.
type Router struct {
	registry *Registry
	tracker  *Tracker
	sink     events.Sink
	clock    clockwork.Clock
	logger   *slog.Logger
}

// NewRouter wires a router to its stores. A nil sink discards events.
func NewRouter(registry *Registry, tracker *Tracker, sink events.Sink, clock clockwork.Clock, logger *slog.Logger) *Router {
	if sink == nil {
		sink = events.Nop{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		registry: registry,
		tracker:  tracker,
		sink:     sink,
		clock:    clock,
		logger:   logger,
	}
}

// Greet sends the "connected" message to a freshly opened transport.
func (r *Router) Greet(t Transport) {
	t.Send(&Message{Type: TypeConnected, Message: connectedGreeting})
}

// HandleFrame decodes one frame from t and handles it. Frames that are
// not valid JSON get an "error" reply; the connection stays open.
func (r *Router) HandleFrame(t Transport, data []byte) error {
	msg, err := decodeMessage(data)
	if err != nil {
		r.logger.Debug("Invalid message", "remote", t.RemoteAddr(), "error", err)
		r.sendError(t, err)
		return err
	}
	return r.Handle(t, msg)
}

// Handle dispatches a decoded message. Any returned error has already
// been reported to the sender.
func (r *Router) Handle(t Transport, msg *Message) error {
	r.logger.Debug("Message received", "remote", t.RemoteAddr(), "type", msg.Type, "room", msg.RoomCode)

	var err error
	switch msg.Type {
	case TypeCreateRoom:
		err = r.createRoom(t, msg)
	case TypeJoinRoom:
		err = r.joinRoom(t, msg)
	case TypeLeaveRoom:
		err = r.leaveRoom(t)
	case TypeOffer, TypeAnswer, TypeICECandidate:
		err = r.relay(t, msg)
	case "":
		err = WrapError("handle message", ErrMissingField, "Message type is required")
	default:
		err = WrapError("handle message", ErrUnknownType, "Unknown message type: "+msg.Type)
	}

	if err != nil {
		r.logger.Debug("Message rejected", "remote", t.RemoteAddr(), "type", msg.Type, "error", err)
		r.sendError(t, err)
	}
	return err
}

func (r *Router) createRoom(t Transport, msg *Message) error {
	if _, bound := r.tracker.Lookup(t); bound {
		return NewError("create room", ErrAlreadyInRoom)
	}
	if msg.RoomCode == "" || msg.PeerID == "" {
		return WrapError("create room", ErrMissingField, "Room code and peer ID are required")
	}

	room, err := r.registry.CreateRoom(msg.RoomCode, msg.PeerID, t)
	if err != nil {
		return err
	}
	r.tracker.Bind(t, room.Code, msg.PeerID, true)

	t.Send(&Message{Type: TypeRoomCreated, RoomCode: room.Code})

	r.logger.Info("Room created", "room", room.Code, "peer", msg.PeerID, "remote", t.RemoteAddr())
	r.publish(events.RoomCreated, room, msg.PeerID, "")
	return nil
}

func (r *Router) joinRoom(t Transport, msg *Message) error {
	if _, bound := r.tracker.Lookup(t); bound {
		return NewError("join room", ErrAlreadyInRoom)
	}
	if msg.RoomCode == "" || msg.PeerID == "" {
		return WrapError("join room", ErrMissingField, "Room code and peer ID are required")
	}

	room, err := r.registry.AddPeer(msg.RoomCode, msg.PeerID, t)
	if err != nil {
		return err
	}
	r.tracker.Bind(t, room.Code, msg.PeerID, false)

	t.Send(&Message{Type: TypeRoomJoined, RoomCode: room.Code})

	// Only the host is told; it is the one that opens the peer connection.
	if host, ok := room.Peer(room.HostPeerID); ok && host.Alive() {
		host.Send(&Message{Type: TypePeerJoined, PeerID: msg.PeerID})
	}

	r.logger.Info("Peer joined room", "room", room.Code, "peer", msg.PeerID, "count", room.Size())
	r.publish(events.PeerJoined, room, msg.PeerID, "")
	return nil
}

func (r *Router) leaveRoom(t Transport) error {
	session, ok := r.tracker.Lookup(t)
	if !ok {
		return NewError("leave room", ErrNotInRoom)
	}
	r.leave(t, session)
	return nil
}

// Disconnect runs the leave path for a closed transport. It is safe to
// call for unbound transports and to call more than once.
func (r *Router) Disconnect(t Transport) {
	session, ok := r.tracker.Lookup(t)
	if !ok {
		return
	}
	r.leave(t, session)
}

func (r *Router) leave(t Transport, session Session) {
	r.tracker.Unbind(t)

	room := r.registry.GetRoom(session.RoomCode)
	if room == nil {
		return
	}
	if member, ok := room.Peer(session.PeerID); !ok || member != t {
		return
	}

	room, closed := r.registry.RemovePeer(session.RoomCode, session.PeerID)

	for _, other := range room.Peers {
		if other.Alive() {
			other.Send(&Message{Type: TypePeerLeft, PeerID: session.PeerID})
		}
	}

	r.logger.Info("Peer left room", "room", room.Code, "peer", session.PeerID, "host", session.IsHost)
	r.publish(events.PeerLeft, room, session.PeerID, "")

	if closed {
		reason := events.ReasonEmpty
		if session.PeerID == room.HostPeerID {
			reason = events.ReasonHostLeft
		}
		r.closed(room, reason)
	}
}

func (r *Router) relay(t Transport, msg *Message) error {
	op := "relay " + msg.Type

	session, ok := r.tracker.Lookup(t)
	if !ok {
		return NewError(op, ErrNotInRoom)
	}
	if msg.TargetPeer == "" {
		return WrapError(op, ErrMissingField, "Target peer is required")
	}

	room := r.registry.GetRoom(session.RoomCode)
	if room == nil {
		return WrapError(op, ErrRoomNotFound, session.RoomCode)
	}
	target, ok := room.Peer(msg.TargetPeer)
	if !ok || !target.Alive() {
		return WrapError(op, ErrTargetUnavailable, msg.TargetPeer)
	}

	// Only the payload key matching the type is forwarded, and only when
	// the sender supplied one.
	forward := &Message{Type: msg.Type, PeerID: session.PeerID}
	payload := msg.payload()
	if isNull(payload) {
		payload = nil
	}
	switch msg.Type {
	case TypeOffer:
		forward.Offer = payload
	case TypeAnswer:
		forward.Answer = payload
	case TypeICECandidate:
		forward.Candidate = payload
	}
	if !target.Send(forward) {
		return WrapError(op, ErrTargetUnavailable, msg.TargetPeer)
	}

	r.registry.Touch(room.Code)
	r.logger.Debug("Signal relayed", "room", room.Code, "type", msg.Type, "peer", session.PeerID, "target", msg.TargetPeer)
	return nil
}

// EvictIdle removes rooms without routed activity for longer than
// maxIdle, whether or not their transports are still open. It returns
// the number of rooms removed.
func (r *Router) EvictIdle(maxIdle time.Duration) int {
	evicted := r.registry.SweepIdle(maxIdle)
	for _, room := range evicted {
		r.logger.Info("Cleaning up inactive room", "room", room.Code, "count", room.Size())
		r.closed(room, events.ReasonIdle)
	}
	return len(evicted)
}

// CloseAll removes every room, for shutdown.
func (r *Router) CloseAll(reason string) {
	for _, room := range r.registry.Rooms() {
		r.registry.DeleteRoom(room.Code)
		r.closed(room, reason)
	}
}

// closed finishes a room that has left the registry: members still in
// it go back to UNBOUND.
func (r *Router) closed(room *Room, reason string) {
	for _, member := range room.Peers {
		r.tracker.Unbind(member)
	}
	r.logger.Info("Room closed", "room", room.Code, "reason", reason)
	r.publish(events.RoomClosed, room, "", reason)
}

// Stats reports the router's view of the relay.
func (r *Router) Stats() Stats {
	peers := 0
	for _, room := range r.registry.Rooms() {
		peers += room.Size()
	}
	return Stats{
		Rooms: r.registry.Len(),
		Peers: peers,
		Bound: r.tracker.Len(),
	}
}

func (r *Router) sendError(t Transport, err error) {
	t.Send(&Message{Type: TypeError, Error: ErrorText(err)})
}

func (r *Router) publish(kind string, room *Room, peerID, reason string) {
	r.sink.Publish(events.Event{
		Kind:   kind,
		Room:   room.Code,
		Peer:   peerID,
		Reason: reason,
		Peers:  room.Size(),
		At:     r.clock.Now(),
	})
}
