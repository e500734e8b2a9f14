package signaling

import (
	"bytes"
	"encoding/json"
)

// Message defines the structure for all C2S (Client to Server)
// and S2C (Server to Client) websocket messages.
//
// The offer, answer and candidate payloads are kept as raw JSON. The
// relay never looks inside them.
type Message struct {
	Type       string          `json:"type"`
	RoomCode   string          `json:"roomCode,omitempty"`
	PeerID     string          `json:"peerId,omitempty"`
	TargetPeer string          `json:"targetPeer,omitempty"`
	Offer      json.RawMessage `json:"offer,omitempty"`
	Answer     json.RawMessage `json:"answer,omitempty"`
	Candidate  json.RawMessage `json:"candidate,omitempty"`
	Error      string          `json:"error,omitempty"`
	Message    string          `json:"message,omitempty"`
}

// Client to server message types.
const (
	TypeCreateRoom   = "create-room"
	TypeJoinRoom     = "join-room"
	TypeLeaveRoom    = "leave-room"
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "ice-candidate"
)

// Server to client message types. Offer, answer and ice-candidate are
// forwarded under their own type.
const (
	TypeConnected   = "connected"
	TypeRoomCreated = "room-created"
	TypeRoomJoined  = "room-joined"
	TypePeerJoined  = "peer-joined"
	TypePeerLeft    = "peer-left"
	TypeError       = "error"
)

const connectedGreeting = "Connected to Pocket Dogfight signaling server"

// IsRelayed reports whether t is one of the peer-to-peer signal types
// that are forwarded to a target peer.
func IsRelayed(t string) bool {
	switch t {
	case TypeOffer, TypeAnswer, TypeICECandidate:
		return true
	}
	return false
}

// payload returns the raw payload matching the message type.
func (m *Message) payload() json.RawMessage {
	switch m.Type {
	case TypeOffer:
		return m.Offer
	case TypeAnswer:
		return m.Answer
	case TypeICECandidate:
		return m.Candidate
	}
	return nil
}

// decodeMessage parses a single text frame into a Message.
func decodeMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, WrapError("decode message", ErrInvalidMessage, err.Error())
	}
	return &msg, nil
}

// encodeMessage renders msg as a single JSON text frame. HTML escaping is
// off so forwarded SDP reaches the peer as it was sent.
func encodeMessage(msg *Message) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(msg); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// isNull reports whether a raw payload is absent or JSON null.
func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
