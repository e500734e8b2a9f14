package signaling

import "time"

// Transport is one live client connection as seen by the relay. All
// methods are called from the hub goroutine.
type Transport interface {
	// Send queues msg for delivery. It reports false when the transport
	// is closed or cannot accept more data.
	Send(msg *Message) bool

	// Close shuts the transport down with a websocket close code.
	Close(code int, reason string)

	// Alive reports whether the transport can still deliver messages.
	Alive() bool

	// RemoteAddr identifies the transport in logs.
	RemoteAddr() string
}

// Room represents a group of up to MaxPeers connections that exchange
// WebRTC signals. The peer that created it is the host; the room lives
// only as long as the host stays.
type Room struct {
	// Code is the client-supplied room code.
	Code string

	// HostPeerID is the peer id of the connection that created the room.
	HostPeerID string

	// Peers maps peer ids to their transports. The host is always present.
	Peers map[string]Transport

	CreatedAt    time.Time
	LastActivity time.Time
}

// Peer returns the transport bound to peerID, if any.
func (r *Room) Peer(peerID string) (Transport, bool) {
	t, ok := r.Peers[peerID]
	return t, ok
}

// Size returns the number of peers in the room.
func (r *Room) Size() int {
	return len(r.Peers)
}

// IsHost reports whether peerID is the room's host.
func (r *Room) IsHost(peerID string) bool {
	return r.HostPeerID == peerID
}

// Others returns every peer except peerID.
func (r *Room) Others(peerID string) map[string]Transport {
	others := make(map[string]Transport, len(r.Peers))
	for id, t := range r.Peers {
		if id != peerID {
			others[id] = t
		}
	}
	return others
}
