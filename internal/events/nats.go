package events

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// DefaultSubjectPrefix is the subject root used when none is configured.
const DefaultSubjectPrefix = "dogfight.rooms"

// publisher is the part of *nats.Conn the sink needs.
type publisher interface {
	Publish(subject string, data []byte) error
}

// NATS publishes each event as JSON on "<prefix>.<kind>", for example
// "dogfight.rooms.room.created". Core NATS publishing is buffered by the
// client library, so Publish does not wait on the network.
type NATS struct {
	conn   *nats.Conn
	pub    publisher
	prefix string
	logger *slog.Logger
}

// DialNATS connects to the NATS server at url.
func DialNATS(url, prefix string, logger *slog.Logger) (*NATS, error) {
	conn, err := nats.Connect(url,
		nats.Name("dogfight-relay"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	n := newNATS(conn, prefix, logger)
	n.conn = conn
	return n, nil
}

func newNATS(pub publisher, prefix string, logger *slog.Logger) *NATS {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NATS{pub: pub, prefix: prefix, logger: logger}
}

// Subject returns the subject an event of the given kind is published on.
func (n *NATS) Subject(kind string) string {
	return n.prefix + "." + kind
}

func (n *NATS) Publish(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		n.logger.Error("Failed to encode room event", "kind", ev.Kind, "error", err)
		return
	}
	if err := n.pub.Publish(n.Subject(ev.Kind), data); err != nil {
		n.logger.Warn("Failed to publish room event", "kind", ev.Kind, "room", ev.Room, "error", err)
	}
}

// Close flushes pending events and closes the connection.
func (n *NATS) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}
