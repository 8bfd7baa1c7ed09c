// Package transport owns the server subprocess and the newline-delimited
// byte streams connecting to it. It frames messages, detects process exit
// and propagates it as a distinguishable terminal event rather than a
// silent EOF.
package transport

import (
	"context"
	"io"

	"github.com/mcpwire/mcpwire/pkg/logging"
)

// Transport is a duplex, framed byte channel to an MCP server
type Transport interface {
	// Open acquires the underlying streams. For a subprocess transport
	// this spawns the server; failure yields a SpawnError.
	Open(ctx context.Context) error

	// WriteFrame writes one frame plus the newline terminator. Writes
	// are serialized internally; a write after the peer closed its input
	// yields a WriteError.
	WriteFrame(data []byte) error

	// ReadFrame blocks until a complete frame is available or the stream
	// ends. A clean end on a frame boundary yields EndOfStream; an end
	// with bytes pending yields IncompleteFrame. Both are terminal.
	ReadFrame() ([]byte, error)

	// Close releases the transport. It is idempotent and safe on every
	// exit path.
	Close() error

	// Done closes when the transport has terminated for any reason.
	Done() <-chan struct{}

	// ExitErr returns the terminal cause after Done is closed, nil before.
	ExitErr() error
}

// Config configures a subprocess transport
type Config struct {
	// Command is the server executable to spawn.
	Command string

	// Args are passed to the executable.
	Args []string

	// Env entries are merged over the parent environment.
	Env map[string]string

	// Stderr receives the server's stderr when set; otherwise stderr
	// lines are logged at debug level.
	Stderr io.Writer

	// Logger defaults to the no-op logger.
	Logger logging.Logger

	// Reader and Writer, when both set, replace the subprocess streams
	// entirely and no process is spawned. Tests use these to script a
	// fake server.
	Reader io.Reader
	Writer io.Writer
}
