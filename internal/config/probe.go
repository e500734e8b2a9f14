package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/BioHazard786/dogfight/internal/roomcode"
)

const (
	DefaultRelayURL     = "ws://localhost:8080/pocket-dogfight-ws"
	DefaultProbeGuests  = 1
	DefaultProbeTimeout = 30 * time.Second

	// MaxProbeGuests fills a room of MaxRoomPeers next to the host.
	MaxProbeGuests = MaxRoomPeers - 1
)

// DefaultSTUN lists the public STUN servers the game client uses.
var DefaultSTUN = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
}

// ProbeOptions are the probe's CLI flags. Zero fields are ignored.
type ProbeOptions struct {
	URL     string
	Room    string
	Guests  int
	Timeout time.Duration
	STUN    []string
}

// Probe holds the resolved probe settings.
type Probe struct {
	URL string

	// Room is a fixed room code to open; empty means generate one.
	Room string

	Guests  int
	Timeout time.Duration
	STUN    []string
}

// LoadProbe resolves probe settings: flag > DOGFIGHT_RELAY_URL > default.
func LoadProbe(opts ProbeOptions) (*Probe, error) {
	relayURL := opts.URL
	if relayURL == "" {
		relayURL = os.Getenv("DOGFIGHT_RELAY_URL")
	}
	if relayURL == "" {
		relayURL = DefaultRelayURL
	}

	u, err := url.Parse(relayURL)
	if err != nil {
		return nil, fmt.Errorf("relay url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("relay url %q must use ws or wss", relayURL)
	}

	guests := opts.Guests
	if guests == 0 {
		guests = DefaultProbeGuests
	}
	if guests < 1 || guests > MaxProbeGuests {
		return nil, fmt.Errorf("guests must be between 1 and %d, got %d", MaxProbeGuests, guests)
	}

	room := roomcode.Normalize(opts.Room)
	if room != "" && !roomcode.Valid(room) {
		return nil, fmt.Errorf("room code %q must be %d letters or digits", opts.Room, roomcode.Length)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	stun := opts.STUN
	if len(stun) == 0 {
		stun = append([]string(nil), DefaultSTUN...)
	}

	return &Probe{
		URL:     relayURL,
		Room:    room,
		Guests:  guests,
		Timeout: timeout,
		STUN:    stun,
	}, nil
}
