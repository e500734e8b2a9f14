package probe

import (
	"context"
	"sync"
	"time"

	pion "github.com/pion/webrtc/v4"

	"github.com/BioHazard786/dogfight/internal/peer"
	"github.com/BioHazard786/dogfight/internal/signaling"
)

// hostLink is the host's half of the connection to one guest.
type hostLink struct {
	index int
	guest string
	pc    *pion.PeerConnection
	neg   *peer.Negotiator
}

type pongEvent struct {
	guest string
	rtt   time.Duration
	err   error
}

// awaitSignal waits for a forwarded message of kind from sender,
// skipping anything else.
func awaitSignal(ctx context.Context, ep *endpoint, op, kind, sender string) (*signaling.Message, error) {
	for {
		msg, err := await(ctx, ep, op, ep.events.Signal)
		if err != nil {
			return nil, err
		}
		if msg.Type == kind && msg.PeerID == sender {
			return msg, nil
		}
	}
}

// connectPeers negotiates one data channel per guest and measures a
// ping round trip on each.
func (r *runner) connectPeers(ctx context.Context) {
	indexes := r.joined()
	if len(indexes) == 0 {
		return
	}

	pongs := make(chan pongEvent, 2*len(indexes))
	links := make(map[string]*hostLink)
	var pcs []*pion.PeerConnection

	stop := make(chan struct{})
	var wg sync.WaitGroup
	defer func() {
		close(stop)
		wg.Wait()
		for _, pc := range pcs {
			pc.Close()
		}
	}()

	for _, i := range indexes {
		guest := r.guests[i]
		r.notify(Update{Peer: guest.id, Role: RoleGuest, State: StateNegotiating})

		guestPC, err := peer.NewPeerConnection(r.opts.STUN)
		if err != nil {
			r.fail(i, NewError("guest peer connection", guest.id, err))
			continue
		}
		pcs = append(pcs, guestPC)
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.runGuest(ctx, stop, guest, guestPC)
		}()

		link, err := r.openLink(i, guest.id, pongs)
		if link != nil {
			pcs = append(pcs, link.pc)
		}
		if err != nil {
			r.fail(i, err)
			continue
		}
		links[guest.id] = link
	}

	r.hostLoop(ctx, links, pongs)
}

// openLink creates the host's peer connection and data channel for a
// guest and sends the offer.
func (r *runner) openLink(index int, guestID string, pongs chan<- pongEvent) (*hostLink, error) {
	pc, err := peer.NewPeerConnection(r.opts.STUN)
	if err != nil {
		return nil, NewError("host peer connection", guestID, err)
	}
	link := &hostLink{index: index, guest: guestID, pc: pc, neg: peer.NewNegotiator(pc)}

	dc, err := peer.CreateDataChannel(pc, peer.GameChannel)
	if err != nil {
		return link, NewError("open data channel", guestID, err)
	}
	watchPongs(dc, guestID, pongs)

	host := r.host
	link.neg.OnLocalCandidate(func(ice pion.ICECandidateInit) {
		host.client.SendCandidate(guestID, ice)
	})

	offer, err := link.neg.CreateOffer()
	if err != nil {
		return link, NewError("create offer", guestID, err)
	}
	if err := host.client.SendOffer(guestID, offer); err != nil {
		return link, NewError("send offer", guestID, err)
	}
	return link, nil
}

// hostLoop applies answers and candidates from guests until every link
// has produced a pong or failed.
func (r *runner) hostLoop(ctx context.Context, links map[string]*hostLink, pongs <-chan pongEvent) {
	finish := func(link *hostLink, err error) {
		delete(links, link.guest)
		if err != nil {
			r.fail(link.index, err)
		}
	}

	for len(links) > 0 {
		select {
		case msg := <-r.host.events.Signal:
			link := links[msg.PeerID]
			if link == nil {
				continue
			}
			if err := applySignal(link.neg, msg); err != nil {
				finish(link, WrapError("apply "+msg.Type, link.guest, ErrDataChannel, err.Error()))
			}

		case ev := <-pongs:
			link := links[ev.guest]
			if link == nil {
				continue
			}
			if ev.err != nil {
				finish(link, WrapError("ping", link.guest, ErrDataChannel, ev.err.Error()))
				continue
			}
			r.results[link.index].Connected = true
			r.results[link.index].RTT = ev.rtt
			r.notify(Update{Peer: link.guest, Role: RoleGuest, State: StateConnected, RTT: ev.rtt})
			finish(link, nil)

		case id := <-r.host.events.PeerLeft:
			if link := links[id]; link != nil {
				finish(link, NewError("connect", id, ErrPeerLeft))
			}

		case msg := <-r.host.events.Error:
			r.logger.Debug("Probe host got relay error", "error", msg)

		case <-r.host.events.Done():
			for _, link := range links {
				finish(link, WrapError("connect", link.guest, ErrSignaling, "host connection closed"))
			}

		case <-ctx.Done():
			for _, link := range links {
				finish(link, NewError("connect", link.guest, ErrTimeout))
			}
		}
	}
}

// runGuest answers the host's offer and echoes pings until stop.
func (r *runner) runGuest(ctx context.Context, stop <-chan struct{}, guest *endpoint, pc *pion.PeerConnection) {
	hostID := r.host.id
	neg := peer.NewNegotiator(pc)
	neg.OnLocalCandidate(func(ice pion.ICECandidateInit) {
		guest.client.SendCandidate(hostID, ice)
	})
	pc.OnDataChannel(func(dc *pion.DataChannel) {
		if dc.Label() != peer.GameChannel {
			return
		}
		echoPings(dc)
	})

	for {
		select {
		case msg := <-guest.events.Signal:
			if msg.PeerID != hostID {
				continue
			}
			var err error
			if msg.Type == signaling.TypeOffer {
				var desc pion.SessionDescription
				if desc, err = peer.ParseDescription(msg.Offer); err == nil {
					var answer *pion.SessionDescription
					if answer, err = neg.Accept(desc); err == nil {
						err = guest.client.SendAnswer(hostID, answer)
					}
				}
			} else {
				err = applySignal(neg, msg)
			}
			if err != nil {
				r.logger.Warn("Probe guest signaling failed", "peer", guest.id, "type", msg.Type, "error", err)
			}

		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// applySignal handles an answer or ICE candidate.
func applySignal(neg *peer.Negotiator, msg *signaling.Message) error {
	switch msg.Type {
	case signaling.TypeAnswer:
		desc, err := peer.ParseDescription(msg.Answer)
		if err != nil {
			return err
		}
		return neg.SetRemote(desc)
	case signaling.TypeICECandidate:
		ice, err := peer.ParseCandidate(msg.Candidate)
		if err != nil {
			return err
		}
		return neg.AddCandidate(ice)
	}
	return nil
}

// watchPongs sends a ping when dc opens and reports the pong.
func watchPongs(dc *pion.DataChannel, guestID string, pongs chan<- pongEvent) {
	report := func(ev pongEvent) {
		select {
		case pongs <- ev:
		default:
		}
	}

	dc.OnOpen(func() {
		data, err := peer.Encode(peer.TypePing, peer.PingPayload{Seq: 1, SentAt: time.Now().UnixNano()})
		if err == nil {
			err = dc.Send(data)
		}
		if err != nil {
			report(pongEvent{guest: guestID, err: err})
		}
	})

	dc.OnMessage(func(m pion.DataChannelMessage) {
		msg, err := peer.Decode(m.Data)
		if err != nil || msg.Type != peer.TypePong {
			return
		}
		var pong peer.PingPayload
		if err := msg.DecodePayload(&pong); err != nil {
			return
		}
		report(pongEvent{guest: guestID, rtt: pong.RTT(time.Now())})
	})
}

// echoPings answers every ping on dc with a pong carrying the same
// payload.
func echoPings(dc *pion.DataChannel) {
	dc.OnMessage(func(m pion.DataChannelMessage) {
		msg, err := peer.Decode(m.Data)
		if err != nil || msg.Type != peer.TypePing {
			return
		}
		var ping peer.PingPayload
		if err := msg.DecodePayload(&ping); err != nil {
			return
		}
		data, err := peer.Encode(peer.TypePong, ping)
		if err != nil {
			return
		}
		dc.Send(data)
	})
}
