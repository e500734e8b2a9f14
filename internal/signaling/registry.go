package signaling

import (
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	// MaxRoomPeers is the hard room capacity, host included.
	MaxRoomPeers = 4

	// DefaultMaxPeers is the room capacity used when none is configured.
	DefaultMaxPeers = MaxRoomPeers
)

// Registry maps room codes to rooms. It owns room creation, lookup,
// membership and idle eviction.
//
// Registry is not safe for concurrent use; the hub goroutine is its
// only caller.
type Registry struct {
	rooms    map[string]*Room
	maxPeers int
	clock    clockwork.Clock
}

// NewRegistry creates an empty registry. A maxPeers below 1 selects
// DefaultMaxPeers and one above MaxRoomPeers is capped to it; a nil clock
// selects the real clock.
func NewRegistry(maxPeers int, clock clockwork.Clock) *Registry {
	if maxPeers < 1 {
		maxPeers = DefaultMaxPeers
	}
	maxPeers = min(maxPeers, MaxRoomPeers)
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Registry{
		rooms:    make(map[string]*Room),
		maxPeers: maxPeers,
		clock:    clock,
	}
}

// CreateRoom inserts a room whose only member is the host.
func (r *Registry) CreateRoom(code, hostPeerID string, host Transport) (*Room, error) {
	if _, ok := r.rooms[code]; ok {
		return nil, WrapError("create room", ErrCodeInUse, code)
	}

	now := r.clock.Now()
	room := &Room{
		Code:         code,
		HostPeerID:   hostPeerID,
		Peers:        map[string]Transport{hostPeerID: host},
		CreatedAt:    now,
		LastActivity: now,
	}
	r.rooms[code] = room
	return room, nil
}

// GetRoom returns the room for code, or nil.
func (r *Registry) GetRoom(code string) *Room {
	return r.rooms[code]
}

// AddPeer adds a guest to an existing room and refreshes its activity.
func (r *Registry) AddPeer(code, peerID string, t Transport) (*Room, error) {
	room, ok := r.rooms[code]
	if !ok {
		return nil, WrapError("join room", ErrRoomNotFound, code)
	}
	if len(room.Peers) >= r.maxPeers {
		return nil, WrapError("join room", ErrRoomFull, code)
	}
	if _, exists := room.Peers[peerID]; exists {
		return nil, WrapError("join room", ErrPeerExists, peerID)
	}

	room.Peers[peerID] = t
	room.LastActivity = r.clock.Now()
	return room, nil
}

// RemovePeer removes peerID from the room. The room is deleted when the
// host leaves or nobody is left; closed reports whether that happened.
// Removing from a missing room or removing an absent peer is a no-op.
func (r *Registry) RemovePeer(code, peerID string) (room *Room, closed bool) {
	room, ok := r.rooms[code]
	if !ok {
		return nil, false
	}
	if _, member := room.Peers[peerID]; !member {
		return room, false
	}

	delete(room.Peers, peerID)
	if peerID == room.HostPeerID || len(room.Peers) == 0 {
		delete(r.rooms, code)
		return room, true
	}
	return room, false
}

// Touch refreshes the room's last activity time.
func (r *Registry) Touch(code string) {
	if room, ok := r.rooms[code]; ok {
		room.LastActivity = r.clock.Now()
	}
}

// SweepIdle deletes every room with no activity for longer than maxIdle
// and returns them.
func (r *Registry) SweepIdle(maxIdle time.Duration) []*Room {
	now := r.clock.Now()

	var evicted []*Room
	for code, room := range r.rooms {
		if now.Sub(room.LastActivity) > maxIdle {
			delete(r.rooms, code)
			evicted = append(evicted, room)
		}
	}
	return evicted
}

// DeleteRoom removes a room regardless of its members and returns it.
func (r *Registry) DeleteRoom(code string) *Room {
	room, ok := r.rooms[code]
	if !ok {
		return nil
	}
	delete(r.rooms, code)
	return room
}

// Rooms returns every live room.
func (r *Registry) Rooms() []*Room {
	rooms := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// Len returns the number of live rooms.
func (r *Registry) Len() int {
	return len(r.rooms)
}

// MaxPeers returns the room capacity.
func (r *Registry) MaxPeers() int {
	return r.maxPeers
}
