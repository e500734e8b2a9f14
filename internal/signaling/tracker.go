package signaling

// Session is what the relay knows about a bound connection.
type Session struct {
	RoomCode string
	PeerID   string
	IsHost   bool
}

// Tracker is the inverse index from a transport to its room membership.
// It is used to route by sender and to clean up on disconnect.
//
// Tracker is not safe for concurrent use; the hub goroutine is its
// only caller.
type Tracker struct {
	sessions map[Transport]Session
}

func NewTracker() *Tracker {
	return &Tracker{sessions: make(map[Transport]Session)}
}

// Bind records the session for t. It reports false, and changes nothing,
// if t is already bound.
func (tr *Tracker) Bind(t Transport, roomCode, peerID string, isHost bool) bool {
	if _, ok := tr.sessions[t]; ok {
		return false
	}
	tr.sessions[t] = Session{RoomCode: roomCode, PeerID: peerID, IsHost: isHost}
	return true
}

// Lookup returns the session bound to t.
func (tr *Tracker) Lookup(t Transport) (Session, bool) {
	s, ok := tr.sessions[t]
	return s, ok
}

// Unbind removes and returns the session bound to t.
func (tr *Tracker) Unbind(t Transport) (Session, bool) {
	s, ok := tr.sessions[t]
	if ok {
		delete(tr.sessions, t)
	}
	return s, ok
}

// Len returns the number of bound transports.
func (tr *Tracker) Len() int {
	return len(tr.sessions)
}
