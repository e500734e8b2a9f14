package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values
const (
	DefaultAddr              = ":8080"
	DefaultPath              = "/pocket-dogfight-ws"
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultShutdownTimeout   = 15 * time.Second

	// MaxRoomPeers is the hard room capacity, host included.
	MaxRoomPeers            = 4
	DefaultMaxPeers         = MaxRoomPeers
	DefaultIdleTimeout      = 5 * time.Minute
	DefaultSweepInterval    = 5 * time.Minute
	DefaultHandshakeTimeout = 30 * time.Second
	DefaultMaxMessageSize   = 64 * 1024
	DefaultSendBuffer       = 256

	DefaultSubjectPrefix = "dogfight.rooms"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Config holds the relay server configuration
type Config struct {
	Server ServerConfig `yaml:"server"`
	Relay  RelayConfig  `yaml:"relay"`
	Events EventsConfig `yaml:"events"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	Path              string        `yaml:"path"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

type RelayConfig struct {
	MaxPeers         int           `yaml:"max_peers"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	SweepInterval    time.Duration `yaml:"sweep_interval"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	MaxMessageSize   int64         `yaml:"max_message_size"`
	SendBuffer       int           `yaml:"send_buffer"`
	CheckOrigin      bool          `yaml:"check_origin"`
}

// EventsConfig selects where room lifecycle events go. An empty NATSURL
// disables publishing.
type EventsConfig struct {
	NATSURL       string `yaml:"nats_url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Options for loading config with CLI flag overrides. Zero fields are
// ignored.
type Options struct {
	File      string
	Addr      string
	Path      string
	LogLevel  string
	LogFormat string
	NATSURL   string
	MaxPeers  int
}

// Default returns the compiled defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              DefaultAddr,
			Path:              DefaultPath,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			ShutdownTimeout:   DefaultShutdownTimeout,
		},
		Relay: RelayConfig{
			MaxPeers:         DefaultMaxPeers,
			IdleTimeout:      DefaultIdleTimeout,
			SweepInterval:    DefaultSweepInterval,
			HandshakeTimeout: DefaultHandshakeTimeout,
			MaxMessageSize:   DefaultMaxMessageSize,
			SendBuffer:       DefaultSendBuffer,
		},
		Events: EventsConfig{
			SubjectPrefix: DefaultSubjectPrefix,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. YAML file from Options.File or DOGFIGHT_CONFIG
// 4. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	cfg := Default()

	file := opts.File
	if file == "" {
		file = os.Getenv("DOGFIGHT_CONFIG")
	}
	if file != "" {
		if err := cfg.loadFile(file); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyOptions(opts)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DOGFIGHT_ADDR"); v != "" {
		c.Server.Addr = v
	} else if v := os.Getenv("PORT"); v != "" {
		c.Server.Addr = ":" + v
	}
	if v := os.Getenv("DOGFIGHT_PATH"); v != "" {
		c.Server.Path = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		c.Events.NATSURL = v
	}

	if v := os.Getenv("DOGFIGHT_MAX_PEERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DOGFIGHT_MAX_PEERS: %w", err)
		}
		c.Relay.MaxPeers = n
	}

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"DOGFIGHT_IDLE_TIMEOUT", &c.Relay.IdleTimeout},
		{"DOGFIGHT_SWEEP_INTERVAL", &c.Relay.SweepInterval},
		{"DOGFIGHT_HANDSHAKE_TIMEOUT", &c.Relay.HandshakeTimeout},
	}
	for _, d := range durations {
		v := os.Getenv(d.name)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = parsed
	}
	return nil
}

func (c *Config) applyOptions(opts Options) {
	if opts.Addr != "" {
		c.Server.Addr = opts.Addr
	}
	if opts.Path != "" {
		c.Server.Path = opts.Path
	}
	if opts.LogLevel != "" {
		c.Log.Level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		c.Log.Format = opts.LogFormat
	}
	if opts.NATSURL != "" {
		c.Events.NATSURL = opts.NATSURL
	}
	if opts.MaxPeers != 0 {
		c.Relay.MaxPeers = opts.MaxPeers
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if !strings.HasPrefix(c.Server.Path, "/") {
		errs = append(errs, fmt.Errorf("server.path %q must start with /", c.Server.Path))
	}
	if c.Relay.MaxPeers < 2 || c.Relay.MaxPeers > MaxRoomPeers {
		errs = append(errs, fmt.Errorf("relay.max_peers must be between 2 and %d, got %d", MaxRoomPeers, c.Relay.MaxPeers))
	}

	durations := []struct {
		name string
		val  time.Duration
	}{
		{"server.read_header_timeout", c.Server.ReadHeaderTimeout},
		{"server.shutdown_timeout", c.Server.ShutdownTimeout},
		{"relay.idle_timeout", c.Relay.IdleTimeout},
		{"relay.sweep_interval", c.Relay.SweepInterval},
		{"relay.handshake_timeout", c.Relay.HandshakeTimeout},
	}
	for _, d := range durations {
		if d.val <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", d.name, d.val))
		}
	}

	if c.Relay.MaxMessageSize < 1024 {
		errs = append(errs, fmt.Errorf("relay.max_message_size must be at least 1024, got %d", c.Relay.MaxMessageSize))
	}
	if c.Relay.SendBuffer < 1 {
		errs = append(errs, fmt.Errorf("relay.send_buffer must be at least 1, got %d", c.Relay.SendBuffer))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}

	return errors.Join(errs...)
}
