// Package peer wraps pion/webrtc for the game's host and guest roles.
package peer

import (
	"encoding/json"
	"fmt"

	pion "github.com/pion/webrtc/v4"
)

// GameChannel is the label of the data channel the game runs on.
const GameChannel = "game"

func NewPeerConnection(stunServers []string) (*pion.PeerConnection, error) {
	var iceServers []pion.ICEServer
	if len(stunServers) > 0 {
		iceServers = []pion.ICEServer{{URLs: stunServers}}
	}

	pc, err := pion.NewPeerConnection(pion.Configuration{
		ICEServers: iceServers,
	})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}
	return pc, nil
}

// CreateDataChannel opens the ordered, reliable game channel.
func CreateDataChannel(pc *pion.PeerConnection, label string) (*pion.DataChannel, error) {
	ordered := true

	dc, err := pc.CreateDataChannel(label, &pion.DataChannelInit{
		Ordered: &ordered,
	})
	if err != nil {
		return nil, fmt.Errorf("create data channel: %w", err)
	}
	return dc, nil
}

// ParseDescription decodes a browser style {type, sdp} payload.
func ParseDescription(raw json.RawMessage) (pion.SessionDescription, error) {
	var desc pion.SessionDescription
	if err := json.Unmarshal(raw, &desc); err != nil {
		return desc, fmt.Errorf("parse session description: %w", err)
	}
	if desc.SDP == "" {
		return desc, fmt.Errorf("parse session description: empty sdp")
	}
	return desc, nil
}

// ParseCandidate decodes an RTCIceCandidateInit payload.
func ParseCandidate(raw json.RawMessage) (pion.ICECandidateInit, error) {
	var ice pion.ICECandidateInit
	if err := json.Unmarshal(raw, &ice); err != nil {
		return ice, fmt.Errorf("parse ICE candidate: %w", err)
	}
	return ice, nil
}

// Negotiator runs one side of an offer/answer exchange. Remote ICE
// candidates that arrive before the remote description are held until
// it is set. It is not safe for concurrent use.
type Negotiator struct {
	pc        *pion.PeerConnection
	remoteSet bool
	pending   []pion.ICECandidateInit
}

func NewNegotiator(pc *pion.PeerConnection) *Negotiator {
	return &Negotiator{pc: pc}
}

// OnLocalCandidate calls send for every gathered local candidate.
func (n *Negotiator) OnLocalCandidate(send func(pion.ICECandidateInit)) {
	n.pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		send(c.ToJSON())
	})
}

func (n *Negotiator) CreateOffer() (*pion.SessionDescription, error) {
	offer, err := n.pc.CreateOffer(nil)
	if err != nil {
		return nil, fmt.Errorf("create offer: %w", err)
	}

	if err = n.pc.SetLocalDescription(offer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}

	return n.pc.LocalDescription(), nil
}

// Accept applies a remote offer and returns the local answer.
func (n *Negotiator) Accept(offer pion.SessionDescription) (*pion.SessionDescription, error) {
	if err := n.SetRemote(offer); err != nil {
		return nil, err
	}

	answer, err := n.pc.CreateAnswer(nil)
	if err != nil {
		return nil, fmt.Errorf("create answer: %w", err)
	}

	if err = n.pc.SetLocalDescription(answer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}

	return n.pc.LocalDescription(), nil
}

// SetRemote applies the remote description and flushes held candidates.
func (n *Negotiator) SetRemote(desc pion.SessionDescription) error {
	if err := n.pc.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	n.remoteSet = true

	pending := n.pending
	n.pending = nil
	for _, ice := range pending {
		if err := n.pc.AddICECandidate(ice); err != nil {
			return fmt.Errorf("add ICE candidate: %w", err)
		}
	}
	return nil
}

// AddCandidate adds a remote candidate, or holds it until SetRemote.
func (n *Negotiator) AddCandidate(ice pion.ICECandidateInit) error {
	if !n.remoteSet {
		n.pending = append(n.pending, ice)
		return nil
	}
	if err := n.pc.AddICECandidate(ice); err != nil {
		return fmt.Errorf("add ICE candidate: %w", err)
	}
	return nil
}

// Pending returns the number of held candidates.
func (n *Negotiator) Pending() int {
	return len(n.pending)
}
