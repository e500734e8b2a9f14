// Package events publishes room lifecycle events from the relay.
//
// Events are fire-and-forget notifications for dashboards and analytics.
// The relay never reads them back and never waits for a consumer.
package events

import "time"

// Event kinds.
const (
	RoomCreated = "room.created"
	RoomClosed  = "room.closed"
	PeerJoined  = "peer.joined"
	PeerLeft    = "peer.left"
)

// Reasons attached to RoomClosed.
const (
	ReasonHostLeft = "host-left"
	ReasonEmpty    = "empty"
	ReasonIdle     = "idle"
	ReasonShutdown = "shutdown"
)

// Event is one room lifecycle change.
type Event struct {
	Kind   string    `json:"kind"`
	Room   string    `json:"room"`
	Peer   string    `json:"peer,omitempty"`
	Reason string    `json:"reason,omitempty"`
	Peers  int       `json:"peers"`
	At     time.Time `json:"at"`
}

// Sink receives lifecycle events. Publish is called from the relay's
// event loop and must not block.
type Sink interface {
	Publish(ev Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(Event) {}
