package signaling_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/dogfight/internal/signaling"
)

func TestTracker_BindLookupUnbind(t *testing.T) {
	tr := signaling.NewTracker()
	conn := newFake("conn")

	_, ok := tr.Lookup(conn)
	assert.False(t, ok)

	require.True(t, tr.Bind(conn, "ABC123", "H", true))

	s, ok := tr.Lookup(conn)
	require.True(t, ok)
	assert.Equal(t, signaling.Session{RoomCode: "ABC123", PeerID: "H", IsHost: true}, s)
	assert.Equal(t, 1, tr.Len())

	s, ok = tr.Unbind(conn)
	require.True(t, ok)
	assert.Equal(t, "H", s.PeerID)
	assert.Equal(t, 0, tr.Len())
}

func TestTracker_RebindRejected(t *testing.T) {
	tr := signaling.NewTracker()
	conn := newFake("conn")

	require.True(t, tr.Bind(conn, "ABC123", "H", true))
	assert.False(t, tr.Bind(conn, "XYZ789", "H2", false))

	s, _ := tr.Lookup(conn)
	assert.Equal(t, "ABC123", s.RoomCode)
}

func TestTracker_UnbindTwice(t *testing.T) {
	tr := signaling.NewTracker()
	conn := newFake("conn")
	tr.Bind(conn, "ABC123", "G", false)

	_, ok := tr.Unbind(conn)
	assert.True(t, ok)
	_, ok = tr.Unbind(conn)
	assert.False(t, ok)
}

func TestTracker_SeparateTransports(t *testing.T) {
	tr := signaling.NewTracker()
	a, b := newFake("a"), newFake("b")

	tr.Bind(a, "ABC123", "H", true)
	tr.Bind(b, "ABC123", "G", false)

	sa, _ := tr.Lookup(a)
	sb, _ := tr.Lookup(b)
	assert.True(t, sa.IsHost)
	assert.False(t, sb.IsHost)
	assert.Equal(t, 2, tr.Len())
}
