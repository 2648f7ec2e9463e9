package cluster

import (
	"fmt"
	"time"

	"github.com/go-sif/sifacc/internal/protocol"
	"go.uber.org/zap"
)

// ServerOptions configure the driver-side synchronization Server
type ServerOptions struct {
	Host         string      `yaml:"host"`           // hostname for the Server to bind to
	Port         int         `yaml:"port"`           // port for the Server to bind to (0 selects an ephemeral port)
	MaxEntrySize int         `yaml:"max_entry_size"` // largest accepted entry, in bytes
	Logger       *zap.Logger `yaml:"-"`              // logger for diagnostics (defaults to a no-op logger)
}

// ClientOptions configure the worker-side update Client
type ClientOptions struct {
	DialTimeout time.Duration `yaml:"dial_timeout"` // timeout for each connection attempt
	DialRetries int           `yaml:"dial_retries"` // how many times to retry connecting to the Server (at one second intervals)
	RPCTimeout  time.Duration `yaml:"rpc_timeout"`  // timeout for pushing a batch and receiving its acknowledgement
	Logger      *zap.Logger   `yaml:"-"`            // logger for diagnostics (defaults to a no-op logger)
}

// CloneServerOptions makes a copy of a ServerOptions
func CloneServerOptions(opts *ServerOptions) *ServerOptions {
	return &ServerOptions{
		Host:         opts.Host,
		Port:         opts.Port,
		MaxEntrySize: opts.MaxEntrySize,
		Logger:       opts.Logger,
	}
}

// CloneClientOptions makes a copy of a ClientOptions
func CloneClientOptions(opts *ClientOptions) *ClientOptions {
	return &ClientOptions{
		DialTimeout: opts.DialTimeout,
		DialRetries: opts.DialRetries,
		RPCTimeout:  opts.RPCTimeout,
		Logger:      opts.Logger,
	}
}

func ensureDefaultServerOptionsValues(opts *ServerOptions) {
	if len(opts.Host) == 0 {
		opts.Host = "0.0.0.0"
	}
	if opts.MaxEntrySize <= 0 {
		opts.MaxEntrySize = protocol.DefaultMaxEntrySize
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
}

func ensureDefaultClientOptionsValues(opts *ClientOptions) {
	if opts.DialTimeout == 0 {
		opts.DialTimeout = time.Duration(5) * time.Second
	}
	if opts.DialRetries == 0 {
		opts.DialRetries = 5
	}
	if opts.RPCTimeout == 0 {
		opts.RPCTimeout = time.Duration(30) * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
}

// connectionString returns the address the Server binds to
func (o *ServerOptions) connectionString() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}
