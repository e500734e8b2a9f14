package relayclient

import (
	"github.com/BioHazard786/dogfight/internal/signaling"
)

// Handler routes incoming signaling messages to appropriate channels.
type Handler struct {
	client *Client

	// Connected receives the server greeting.
	Connected chan string

	// RoomCreated and RoomJoined receive the room code.
	RoomCreated chan string
	RoomJoined  chan string

	// PeerJoined and PeerLeft receive the peer id.
	PeerJoined chan string
	PeerLeft   chan string

	// Signal receives forwarded offers, answers and ICE candidates. The
	// sender is in PeerID.
	Signal chan *signaling.Message

	Error chan string

	done chan struct{}
}

// NewHandler creates a new message handler.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client:      client,
		Connected:   make(chan string, 1),
		RoomCreated: make(chan string, 1),
		RoomJoined:  make(chan string, 1),
		PeerJoined:  make(chan string, 4),
		PeerLeft:    make(chan string, 4),
		Signal:      make(chan *signaling.Message, 64),
		Error:       make(chan string, 4),
		done:        make(chan struct{}),
	}
}

// Start begins listening to incoming messages and routing them. It
// returns when the connection ends.
func (h *Handler) Start() {
	defer close(h.done)

	for msg := range h.client.Incoming() {
		switch msg.Type {
		case signaling.TypeConnected:
			h.Connected <- msg.Message

		case signaling.TypeRoomCreated:
			h.RoomCreated <- msg.RoomCode

		case signaling.TypeRoomJoined:
			h.RoomJoined <- msg.RoomCode

		case signaling.TypePeerJoined:
			h.PeerJoined <- msg.PeerID

		case signaling.TypePeerLeft:
			h.PeerLeft <- msg.PeerID

		case signaling.TypeOffer, signaling.TypeAnswer, signaling.TypeICECandidate:
			h.Signal <- msg

		case signaling.TypeError:
			h.Error <- msg.Error

		default:
		}
	}
}

// Done is closed once the connection has ended and Start returned.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}
