package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/dogfight/internal/config"
)

func TestLoadProbe(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		opts     config.ProbeOptions
		validate func(t *testing.T, p *config.Probe, err error)
	}{
		{
			name: "defaults",
			validate: func(t *testing.T, p *config.Probe, err error) {
				require.NoError(t, err)
				assert.Equal(t, config.DefaultRelayURL, p.URL)
				assert.Equal(t, 1, p.Guests)
				assert.Equal(t, 30*time.Second, p.Timeout)
				assert.Equal(t, config.DefaultSTUN, p.STUN)
			},
		},
		{
			name: "env url",
			env:  "wss://relay.example.com/pocket-dogfight-ws",
			validate: func(t *testing.T, p *config.Probe, err error) {
				require.NoError(t, err)
				assert.Equal(t, "wss://relay.example.com/pocket-dogfight-ws", p.URL)
			},
		},
		{
			name: "flag beats env",
			env:  "wss://relay.example.com/pocket-dogfight-ws",
			opts: config.ProbeOptions{URL: "ws://127.0.0.1:9000/ws", Guests: 3, Timeout: time.Second, STUN: []string{"stun:example.org:3478"}},
			validate: func(t *testing.T, p *config.Probe, err error) {
				require.NoError(t, err)
				assert.Equal(t, "ws://127.0.0.1:9000/ws", p.URL)
				assert.Equal(t, 3, p.Guests)
				assert.Equal(t, time.Second, p.Timeout)
				assert.Equal(t, []string{"stun:example.org:3478"}, p.STUN)
			},
		},
		{
			name: "http scheme rejected",
			opts: config.ProbeOptions{URL: "http://localhost:8080/"},
			validate: func(t *testing.T, p *config.Probe, err error) {
				require.Error(t, err)
				assert.Nil(t, p)
			},
		},
		{
			name: "too many guests",
			opts: config.ProbeOptions{Guests: 4},
			validate: func(t *testing.T, p *config.Probe, err error) {
				require.ErrorContains(t, err, "guests must be between 1 and 3")
			},
		},
		{
			name: "full room of guests",
			opts: config.ProbeOptions{Guests: config.MaxProbeGuests},
			validate: func(t *testing.T, p *config.Probe, err error) {
				require.NoError(t, err)
				assert.Equal(t, config.MaxRoomPeers-1, p.Guests)
			},
		},
		{
			name: "typed room code is normalized",
			opts: config.ProbeOptions{Room: "  abc123 "},
			validate: func(t *testing.T, p *config.Probe, err error) {
				require.NoError(t, err)
				assert.Equal(t, "ABC123", p.Room)
			},
		},
		{
			name: "no room code by default",
			validate: func(t *testing.T, p *config.Probe, err error) {
				require.NoError(t, err)
				assert.Empty(t, p.Room)
			},
		},
		{
			name: "malformed room code",
			opts: config.ProbeOptions{Room: "AB-12"},
			validate: func(t *testing.T, p *config.Probe, err error) {
				require.ErrorContains(t, err, "room code")
				assert.Nil(t, p)
			},
		},
		{
			name: "negative guests",
			opts: config.ProbeOptions{Guests: -1},
			validate: func(t *testing.T, p *config.Probe, err error) {
				require.Error(t, err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DOGFIGHT_RELAY_URL", tt.env)
			p, err := config.LoadProbe(tt.opts)
			tt.validate(t, p, err)
		})
	}
}
