package signaling_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/dogfight/internal/events"
	"github.com/BioHazard786/dogfight/internal/signaling"
)

type hubFixture struct {
	hub    *signaling.Hub
	clock  fakeClock
	sink   *recordingSink
	server *httptest.Server
	cancel context.CancelFunc
}

func newHubFixture(t *testing.T, opts signaling.Options) *hubFixture {
	t.Helper()

	fc := clockwork.NewFakeClock()
	sink := &recordingSink{}
	opts.Clock = fc
	opts.Sink = sink
	opts.Logger = testLogger()

	hub := signaling.NewHub(opts)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := signaling.NewClient(hub, conn)
		if !hub.Register(client) {
			conn.Close()
			return
		}
		go client.WritePump()
		go client.ReadPump()
	}))

	f := &hubFixture{hub: hub, clock: fc, sink: sink, server: server, cancel: cancel}
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
		server.Close()
	})
	return f
}

// dial connects and consumes the greeting.
func (f *hubFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	greeting := readMessage(t, conn)
	require.Equal(t, signaling.TypeConnected, greeting.Type)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) signaling.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg signaling.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func writeJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

func TestHub_Greeting(t *testing.T) {
	f := newHubFixture(t, signaling.Options{})
	url := "ws" + strings.TrimPrefix(f.server.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"connected","message":"Connected to Pocket Dogfight signaling server"}`, string(raw))
}

func TestHub_TwoPeerSession(t *testing.T) {
	f := newHubFixture(t, signaling.Options{})
	a := f.dial(t)
	b := f.dial(t)

	writeJSON(t, a, map[string]string{"type": "create-room", "roomCode": "ABC123", "peerId": "H"})
	assert.Equal(t, signaling.Message{Type: signaling.TypeRoomCreated, RoomCode: "ABC123"}, readMessage(t, a))

	writeJSON(t, b, map[string]string{"type": "join-room", "roomCode": "ABC123", "peerId": "G"})
	assert.Equal(t, signaling.Message{Type: signaling.TypeRoomJoined, RoomCode: "ABC123"}, readMessage(t, b))
	assert.Equal(t, signaling.Message{Type: signaling.TypePeerJoined, PeerID: "G"}, readMessage(t, a))

	require.NoError(t, a.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"offer","targetPeer":"G","offer":{"type":"offer","sdp":"v=0\r\na=<x>&y"}}`)))
	b.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := b.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `a=<x>&y`, "payload is forwarded without HTML escaping")

	var offer signaling.Message
	require.NoError(t, json.Unmarshal(raw, &offer))
	assert.Equal(t, "H", offer.PeerID)
	assert.JSONEq(t, `{"type":"offer","sdp":"v=0\r\na=<x>&y"}`, string(offer.Offer))

	writeJSON(t, b, map[string]any{"type": "answer", "targetPeer": "H", "answer": map[string]string{"sdp": "y"}})
	answer := readMessage(t, a)
	assert.Equal(t, signaling.TypeAnswer, answer.Type)
	assert.Equal(t, "G", answer.PeerID)

	require.NoError(t, b.Close())
	assert.Equal(t, signaling.Message{Type: signaling.TypePeerLeft, PeerID: "G"}, readMessage(t, a))

	assert.Eventually(t, func() bool {
		s := f.hub.Stats()
		return s.Rooms == 1 && s.Peers == 1 && s.Connections == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHub_HostDisconnectClosesRoom(t *testing.T) {
	f := newHubFixture(t, signaling.Options{})
	host := f.dial(t)
	guest := f.dial(t)

	writeJSON(t, host, map[string]string{"type": "create-room", "roomCode": "ABC123", "peerId": "H"})
	readMessage(t, host)
	writeJSON(t, guest, map[string]string{"type": "join-room", "roomCode": "ABC123", "peerId": "G"})
	readMessage(t, guest)

	require.NoError(t, host.Close())
	assert.Equal(t, signaling.Message{Type: signaling.TypePeerLeft, PeerID: "H"}, readMessage(t, guest))

	assert.Eventually(t, func() bool {
		return f.hub.Stats().Rooms == 0
	}, 2*time.Second, 10*time.Millisecond)

	// The guest connection stays open and can join again.
	writeJSON(t, guest, map[string]string{"type": "join-room", "roomCode": "ABC123", "peerId": "G"})
	assert.Equal(t, signaling.Message{Type: signaling.TypeError, Error: "Room not found"}, readMessage(t, guest))
}

func TestHub_SilentConnectionTimesOut(t *testing.T) {
	f := newHubFixture(t, signaling.Options{})
	conn := f.dial(t)

	f.clock.Advance(signaling.DefaultHandshakeTimeout)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)

	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseNormalClosure, closeErr.Code)
	assert.Equal(t, "Connection timeout", closeErr.Text)
}

func TestHub_FirstMessageCancelsTimeout(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  signaling.Message
	}{
		{
			name:  "valid message",
			frame: `{"type":"create-room","roomCode":"ABC123","peerId":"H"}`,
			want:  signaling.Message{Type: signaling.TypeRoomCreated, RoomCode: "ABC123"},
		},
		{
			name:  "malformed message",
			frame: `{{{`,
			want:  signaling.Message{Type: signaling.TypeError, Error: "Invalid message format"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHubFixture(t, signaling.Options{})
			conn := f.dial(t)

			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(tt.frame)))
			assert.Equal(t, tt.want, readMessage(t, conn))

			f.clock.Advance(time.Minute)

			// Still open: another request gets an answer.
			writeJSON(t, conn, map[string]string{"type": "teleport"})
			assert.Equal(t, signaling.Message{Type: signaling.TypeError, Error: "Unknown message type: teleport"}, readMessage(t, conn))
		})
	}
}

func TestHub_BinaryFrameRejected(t *testing.T) {
	f := newHubFixture(t, signaling.Options{})
	conn := f.dial(t)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0x02}))
	assert.Equal(t, signaling.Message{Type: signaling.TypeError, Error: "Invalid message format"}, readMessage(t, conn))
}

func TestHub_IdleSweep(t *testing.T) {
	f := newHubFixture(t, signaling.Options{
		IdleTimeout:   time.Minute,
		SweepInterval: 5 * time.Minute,
	})
	conn := f.dial(t)

	writeJSON(t, conn, map[string]string{"type": "create-room", "roomCode": "ABC123", "peerId": "H"})
	readMessage(t, conn)

	f.clock.Advance(5 * time.Minute)

	assert.Eventually(t, func() bool {
		return f.hub.Stats().Rooms == 0
	}, 2*time.Second, 10*time.Millisecond)

	closed, ok := f.sink.lastOf(events.RoomClosed)
	require.True(t, ok)
	assert.Equal(t, events.ReasonIdle, closed.Reason)

	// The host's connection survives eviction and is unbound.
	writeJSON(t, conn, map[string]string{"type": "leave-room"})
	assert.Equal(t, signaling.Message{Type: signaling.TypeError, Error: "Not in a room"}, readMessage(t, conn))
}

func TestHub_Shutdown(t *testing.T) {
	f := newHubFixture(t, signaling.Options{})
	conn := f.dial(t)
	writeJSON(t, conn, map[string]string{"type": "create-room", "roomCode": "ABC123", "peerId": "H"})
	readMessage(t, conn)

	f.cancel()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseGoingAway, closeErr.Code)

	select {
	case <-f.hub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
	assert.Equal(t, signaling.Stats{}, f.hub.Stats())

	closed, ok := f.sink.lastOf(events.RoomClosed)
	require.True(t, ok)
	assert.Equal(t, events.ReasonShutdown, closed.Reason)
}
