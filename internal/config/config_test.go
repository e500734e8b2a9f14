package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/dogfight/internal/config"
)

// clearEnv blanks every variable Load reads so the host environment does
// not leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"DOGFIGHT_CONFIG", "DOGFIGHT_ADDR", "PORT", "DOGFIGHT_PATH",
		"LOG_LEVEL", "LOG_FORMAT", "NATS_URL", "DOGFIGHT_MAX_PEERS",
		"DOGFIGHT_IDLE_TIMEOUT", "DOGFIGHT_SWEEP_INTERVAL",
		"DOGFIGHT_HANDSHAKE_TIMEOUT", "DOGFIGHT_RELAY_URL",
	} {
		t.Setenv(name, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dogfight.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load(config.Options{})
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "/pocket-dogfight-ws", cfg.Server.Path)
	assert.Equal(t, 4, cfg.Relay.MaxPeers)
	assert.Equal(t, 5*time.Minute, cfg.Relay.IdleTimeout)
	assert.Equal(t, 30*time.Second, cfg.Relay.HandshakeTimeout)
	assert.Empty(t, cfg.Events.NATSURL)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
server:
  addr: ":9000"
  shutdown_timeout: 5s
relay:
  max_peers: 3
  idle_timeout: 2m
  check_origin: true
events:
  nats_url: nats://broker:4222
log:
  format: json
`)

	cfg, err := config.Load(config.Options{File: path})
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "/pocket-dogfight-ws", cfg.Server.Path, "unset keys keep defaults")
	assert.Equal(t, 3, cfg.Relay.MaxPeers)
	assert.Equal(t, 2*time.Minute, cfg.Relay.IdleTimeout)
	assert.True(t, cfg.Relay.CheckOrigin)
	assert.Equal(t, "nats://broker:4222", cfg.Events.NATSURL)
	assert.Equal(t, "dogfight.rooms", cfg.Events.SubjectPrefix)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_FileFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DOGFIGHT_CONFIG", writeFile(t, "server:\n  addr: \":7000\"\n"))

	cfg, err := config.Load(config.Options{})
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
}

func TestLoad_Precedence(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "server:\n  addr: \":7000\"\nlog:\n  level: error\n")

	t.Setenv("DOGFIGHT_ADDR", ":7100")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("DOGFIGHT_MAX_PEERS", "3")

	cfg, err := config.Load(config.Options{File: path, Addr: ":7200"})
	require.NoError(t, err)

	assert.Equal(t, ":7200", cfg.Server.Addr, "flag beats env and file")
	assert.Equal(t, "warn", cfg.Log.Level, "env beats file")
	assert.Equal(t, 3, cfg.Relay.MaxPeers)
}

func TestLoad_Env(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "3000")
	t.Setenv("DOGFIGHT_PATH", "/ws")
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("DOGFIGHT_IDLE_TIMEOUT", "90s")
	t.Setenv("DOGFIGHT_SWEEP_INTERVAL", "1m")
	t.Setenv("DOGFIGHT_HANDSHAKE_TIMEOUT", "10s")

	cfg, err := config.Load(config.Options{})
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, "/ws", cfg.Server.Path)
	assert.Equal(t, "nats://localhost:4222", cfg.Events.NATSURL)
	assert.Equal(t, 90*time.Second, cfg.Relay.IdleTimeout)
	assert.Equal(t, time.Minute, cfg.Relay.SweepInterval)
	assert.Equal(t, 10*time.Second, cfg.Relay.HandshakeTimeout)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) config.Options
	}{
		{
			name: "missing file",
			setup: func(t *testing.T) config.Options {
				return config.Options{File: filepath.Join(t.TempDir(), "nope.yaml")}
			},
		},
		{
			name: "bad yaml",
			setup: func(t *testing.T) config.Options {
				return config.Options{File: writeFile(t, "server: [")}
			},
		},
		{
			name: "bad duration in env",
			setup: func(t *testing.T) config.Options {
				t.Setenv("DOGFIGHT_IDLE_TIMEOUT", "soon")
				return config.Options{}
			},
		},
		{
			name: "bad max peers in env",
			setup: func(t *testing.T) config.Options {
				t.Setenv("DOGFIGHT_MAX_PEERS", "four")
				return config.Options{}
			},
		},
		{
			name: "invalid value",
			setup: func(t *testing.T) config.Options {
				return config.Options{MaxPeers: 1}
			},
		},
		{
			name: "capacity above room limit in env",
			setup: func(t *testing.T) config.Options {
				t.Setenv("DOGFIGHT_MAX_PEERS", "6")
				return config.Options{}
			},
		},
		{
			name: "capacity above room limit in flags",
			setup: func(t *testing.T) config.Options {
				return config.Options{MaxPeers: 5}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg, err := config.Load(tt.setup(t))
			require.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(c *config.Config) {}},
		{name: "empty addr", mutate: func(c *config.Config) { c.Server.Addr = "" }, wantErr: "server.addr"},
		{name: "relative path", mutate: func(c *config.Config) { c.Server.Path = "ws" }, wantErr: "server.path"},
		{name: "one peer", mutate: func(c *config.Config) { c.Relay.MaxPeers = 1 }, wantErr: "relay.max_peers"},
		{name: "room larger than four", mutate: func(c *config.Config) { c.Relay.MaxPeers = 6 }, wantErr: "relay.max_peers"},
		{name: "two player rooms", mutate: func(c *config.Config) { c.Relay.MaxPeers = 2 }},
		{name: "zero idle timeout", mutate: func(c *config.Config) { c.Relay.IdleTimeout = 0 }, wantErr: "relay.idle_timeout"},
		{name: "negative handshake", mutate: func(c *config.Config) { c.Relay.HandshakeTimeout = -time.Second }, wantErr: "relay.handshake_timeout"},
		{name: "tiny frames", mutate: func(c *config.Config) { c.Relay.MaxMessageSize = 512 }, wantErr: "relay.max_message_size"},
		{name: "no send buffer", mutate: func(c *config.Config) { c.Relay.SendBuffer = 0 }, wantErr: "relay.send_buffer"},
		{name: "unknown format", mutate: func(c *config.Config) { c.Log.Format = "xml" }, wantErr: "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ReportsAll(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Addr = ""
	cfg.Relay.SendBuffer = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.addr")
	assert.Contains(t, err.Error(), "relay.send_buffer")
}
