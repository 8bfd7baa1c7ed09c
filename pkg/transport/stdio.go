package transport

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	mcperrors "github.com/mcpwire/mcpwire/pkg/errors"
	"github.com/mcpwire/mcpwire/pkg/logging"
)

// stopGrace is how long Close waits for the subprocess to exit after its
// stdin is closed before killing it.
const stopGrace = 5 * time.Second

// readBufferSize sizes the stdout reader. Tool results can be large.
const readBufferSize = 1 << 20

// Stdio is a Transport over a spawned subprocess's standard streams.
// Messages are newline-delimited UTF-8 JSON, one document per line.
type Stdio struct {
	config Config
	logger logging.Logger

	writeMu sync.Mutex
	reader  *bufio.Reader
	writer  *bufio.Writer

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	drain  *errgroup.Group
	opened bool

	done      chan struct{}
	exitOnce  sync.Once
	closeOnce sync.Once
	exitMu    sync.RWMutex
	exitErr   error
}

// NewStdio creates a subprocess transport from config. The process is not
// spawned until Open.
func NewStdio(config Config) *Stdio {
	logger := config.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stdio{
		config: config,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Open spawns the server process, or installs the configured stream
// overrides when both are present.
func (t *Stdio) Open(ctx context.Context) error {
	if t.opened {
		return mcperrors.SpawnError(t.config.Command, nil).WithDetail("transport already open")
	}

	if t.config.Reader != nil && t.config.Writer != nil {
		t.reader = bufio.NewReaderSize(t.config.Reader, readBufferSize)
		t.writer = bufio.NewWriter(t.config.Writer)
		t.opened = true
		return nil
	}

	t.logger.Info("spawning server process",
		logging.String("command", t.config.Command),
		logging.Any("args", t.config.Args),
	)

	cmd := exec.Command(t.config.Command, t.config.Args...)
	cmd.Env = mergeEnv(os.Environ(), t.config.Env)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return mcperrors.SpawnError(t.config.Command, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return mcperrors.SpawnError(t.config.Command, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdin.Close()
		stdout.Close() //nolint:errcheck
		return mcperrors.SpawnError(t.config.Command, err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close() //nolint:errcheck
		stderr.Close() //nolint:errcheck
		return mcperrors.SpawnError(t.config.Command, err)
	}

	t.cmd = cmd
	t.stdin = stdin
	t.reader = bufio.NewReaderSize(stdout, readBufferSize)
	t.writer = bufio.NewWriter(stdin)
	t.opened = true

	// Stderr is not part of the protocol; drain it so the subprocess
	// cannot block on a full pipe.
	t.drain = &errgroup.Group{}
	t.drain.Go(func() error {
		t.drainStderr(stderr)
		return nil
	})

	t.logger.Info("server process started", logging.Int("pid", cmd.Process.Pid))
	return nil
}

func (t *Stdio) drainStderr(r io.Reader) {
	if t.config.Stderr != nil {
		_, _ = io.Copy(t.config.Stderr, r)
		return
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)
	for scanner.Scan() {
		t.logger.Debug("server stderr", logging.String("line", scanner.Text()))
	}
}

// WriteFrame writes one frame followed by a newline and flushes
func (t *Stdio) WriteFrame(data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if !t.opened {
		return mcperrors.WriteError(nil).WithDetail("transport not open")
	}
	select {
	case <-t.done:
		return mcperrors.WriteError(t.ExitErr())
	default:
	}

	if _, err := t.writer.Write(data); err != nil {
		return mcperrors.WriteError(err)
	}
	if err := t.writer.WriteByte('\n'); err != nil {
		return mcperrors.WriteError(err)
	}
	if err := t.writer.Flush(); err != nil {
		return mcperrors.WriteError(err)
	}
	return nil
}

// ReadFrame blocks until a complete newline-terminated frame arrives.
// The terminal error is recorded and Done is closed before returning it.
func (t *Stdio) ReadFrame() ([]byte, error) {
	if !t.opened {
		return nil, mcperrors.EndOfStream().WithDetail("transport not open")
	}

	line, err := t.reader.ReadBytes('\n')
	if err == nil {
		// Trim the delimiter; carriage returns from line-buffered
		// servers on some platforms are trimmed too.
		n := len(line) - 1
		if n > 0 && line[n-1] == '\r' {
			n--
		}
		return line[:n], nil
	}

	var terminal mcperrors.MCPError
	if err == io.EOF && len(line) == 0 {
		terminal = mcperrors.EndOfStream()
	} else if err == io.EOF {
		terminal = mcperrors.IncompleteFrame(len(line))
	} else {
		terminal = mcperrors.WrapError(err, mcperrors.CodeEndOfStream,
			"server stream read failed", mcperrors.CategoryTransport, mcperrors.SeverityError)
	}

	t.markExit(terminal)
	return nil, terminal
}

// Close terminates the subprocess and releases every handle. Safe to call
// from any exit path, any number of times.
func (t *Stdio) Close() error {
	var closeErr error
	t.closeOnce.Do(func() {
		closeErr = t.stop()
		t.markExit(mcperrors.EndOfStream().WithDetail("transport closed"))
	})
	return closeErr
}

func (t *Stdio) stop() error {
	if t.cmd == nil || t.cmd.Process == nil {
		// Stream-override mode: release the caller's streams if they
		// are closable.
		if closer, ok := t.config.Writer.(io.Closer); ok {
			_ = closer.Close()
		}
		if closer, ok := t.config.Reader.(io.Closer); ok {
			_ = closer.Close()
		}
		return nil
	}

	t.logger.Info("stopping server process", logging.Int("pid", t.cmd.Process.Pid))

	// Closing stdin asks a conforming server to exit.
	if t.stdin != nil {
		_ = t.stdin.Close()
	}

	waited := make(chan error, 1)
	go func() { waited <- t.cmd.Wait() }()

	var exitErr error
	select {
	case exitErr = <-waited:
	case <-time.After(stopGrace):
		t.logger.Warn("server process did not exit, killing",
			logging.Int("pid", t.cmd.Process.Pid))
		_ = t.cmd.Process.Kill()
		exitErr = <-waited
	}

	if t.drain != nil {
		_ = t.drain.Wait()
	}

	if exitErr != nil {
		t.logger.Warn("server process exited abnormally", logging.ErrorField(exitErr))
	}
	return nil
}

// Done closes when the transport has terminated
func (t *Stdio) Done() <-chan struct{} {
	return t.done
}

// ExitErr returns the terminal cause once Done is closed
func (t *Stdio) ExitErr() error {
	t.exitMu.RLock()
	defer t.exitMu.RUnlock()
	return t.exitErr
}

func (t *Stdio) markExit(err error) {
	t.exitOnce.Do(func() {
		t.exitMu.Lock()
		t.exitErr = err
		t.exitMu.Unlock()
		close(t.done)
	})
}

func mergeEnv(parent []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return parent
	}
	merged := make([]string, 0, len(parent)+len(overrides))
	for _, kv := range parent {
		key := kv
		if i := strings.IndexByte(kv, '='); i >= 0 {
			key = kv[:i]
		}
		if _, overridden := overrides[key]; !overridden {
			merged = append(merged, kv)
		}
	}
	for k, v := range overrides {
		merged = append(merged, k+"="+v)
	}
	return merged
}
