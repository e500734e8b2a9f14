package signaling_test

import (
	"io"
	"log/slog"
	"sync"

	"github.com/BioHazard786/dogfight/internal/events"
	"github.com/BioHazard786/dogfight/internal/signaling"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeTransport records everything the relay sends to it.
type fakeTransport struct {
	name string

	mu          sync.Mutex
	msgs        []*signaling.Message
	closed      bool
	closeCode   int
	closeReason string
	refuse      bool
}

func newFake(name string) *fakeTransport {
	return &fakeTransport{name: name}
}

func (f *fakeTransport) Send(msg *signaling.Message) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.refuse {
		return false
	}
	f.msgs = append(f.msgs, msg)
	return true
}

func (f *fakeTransport) Close(code int, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	f.closeCode = code
	f.closeReason = reason
}

func (f *fakeTransport) Alive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.closed
}

func (f *fakeTransport) RemoteAddr() string {
	return f.name
}

// messages returns a copy of what was sent so far.
func (f *fakeTransport) messages() []*signaling.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*signaling.Message(nil), f.msgs...)
}

// last returns the most recent message, or nil.
func (f *fakeTransport) last() *signaling.Message {
	msgs := f.messages()
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1]
}

// ofType returns the messages of type t.
func (f *fakeTransport) ofType(t string) []*signaling.Message {
	var out []*signaling.Message
	for _, m := range f.messages() {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeTransport) reset() {
	f.mu.Lock()
	f.msgs = nil
	f.mu.Unlock()
}

// recordingSink keeps every published event.
type recordingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (s *recordingSink) Publish(ev events.Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *recordingSink) kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := make([]string, 0, len(s.events))
	for _, ev := range s.events {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

func (s *recordingSink) lastOf(kind string) (events.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Kind == kind {
			return s.events[i], true
		}
	}
	return events.Event{}, false
}
