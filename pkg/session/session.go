package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	mcperrors "github.com/mcpwire/mcpwire/pkg/errors"
	"github.com/mcpwire/mcpwire/pkg/logging"
	"github.com/mcpwire/mcpwire/pkg/observability"
	"github.com/mcpwire/mcpwire/pkg/protocol"
	"github.com/mcpwire/mcpwire/pkg/transport"
)

// State is the session lifecycle state. Transitions are forward-only;
// Faulted is reachable from anywhere.
type State int32

const (
	StateUninitialized State = iota
	StateHandshaking
	StateReady
	StateClosing
	StateClosed
	StateFaulted
)

// String returns the lowercase state name
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Policy selects how many requests may be outstanding at once
type Policy string

const (
	// PolicyPipelined allows any number of outstanding requests,
	// correlated purely by id.
	PolicyPipelined Policy = "pipelined"

	// PolicyStrict allows at most one outstanding request; later
	// requests queue in FIFO order until the current one resolves.
	PolicyStrict Policy = "strict"
)

// NotificationHandler receives server-initiated notifications
type NotificationHandler func(method string, params json.RawMessage)

// DefaultRequestTimeout bounds requests when Config.DefaultTimeout is zero
const DefaultRequestTimeout = 30 * time.Second

// expireInterval is the period of the deadline sweep
const expireInterval = 100 * time.Millisecond

// Config configures a session
type Config struct {
	// Transport carries the framed byte streams. Required.
	Transport transport.Transport

	// ClientInfo is sent during the handshake.
	ClientInfo protocol.ClientInfo

	// DefaultTimeout bounds every request, the handshake included.
	DefaultTimeout time.Duration

	// Policy defaults to PolicyPipelined.
	Policy Policy

	// Logger defaults to the no-op logger.
	Logger logging.Logger

	// Metrics defaults to NopMetrics.
	Metrics observability.Metrics

	// Tracer, when set, wraps every outgoing request in a client span.
	Tracer trace.Tracer

	// OnNotification, when set, receives server notifications from the
	// read loop. Unhandled notifications are logged and dropped.
	OnNotification NotificationHandler
}

// Session drives one MCP connection: the handshake state machine, a
// single read loop delivering into the correlator, and the request API.
type Session struct {
	id         string
	config     Config
	logger     logging.Logger
	transport  transport.Transport
	correlator *Correlator
	metrics    observability.Metrics

	stateMu    sync.Mutex
	state      State
	serverInfo protocol.ServerInfo

	nextID    atomic.Int64
	strictSem chan struct{}

	loopCancel context.CancelFunc
	loopGroup  *errgroup.Group
	closeOnce  sync.Once
}

// New creates a session over the given transport
func New(config Config) (*Session, error) {
	if config.Transport == nil {
		return nil, fmt.Errorf("session: transport is required")
	}
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = DefaultRequestTimeout
	}
	if config.Policy == "" {
		config.Policy = PolicyPipelined
	}
	if config.Logger == nil {
		config.Logger = logging.NewNop()
	}
	if config.Metrics == nil {
		config.Metrics = observability.NopMetrics{}
	}

	id := uuid.NewString()
	logger := config.Logger.WithFields(logging.String("session_id", id))

	s := &Session{
		id:         id,
		config:     config,
		logger:     logger,
		transport:  config.Transport,
		correlator: NewCorrelator(logger),
		metrics:    config.Metrics,
		state:      StateUninitialized,
	}
	if config.Policy == PolicyStrict {
		s.strictSem = make(chan struct{}, 1)
	}
	return s, nil
}

// ID returns the session identifier
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state
func (s *Session) State() State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// ServerInfo returns the server identity captured at handshake completion
func (s *Session) ServerInfo() protocol.ServerInfo {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.serverInfo
}

// Connect opens the transport, starts the read loop and performs the
// initialize handshake. On failure the session is Faulted and the
// transport closed.
func (s *Session) Connect(ctx context.Context) error {
	s.stateMu.Lock()
	if s.state != StateUninitialized {
		state := s.state
		s.stateMu.Unlock()
		return mcperrors.SessionNotReady(state.String()).WithDetail("connect requires a fresh session")
	}
	s.state = StateHandshaking
	s.stateMu.Unlock()
	s.setStateMetric(StateHandshaking)

	if err := s.transport.Open(ctx); err != nil {
		s.fault(err)
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s.loopCancel = cancel
	g, gctx := errgroup.WithContext(loopCtx)
	s.loopGroup = g
	g.Go(func() error { return s.readLoop() })
	g.Go(func() error { return s.expireLoop(gctx) })

	if err := s.handshake(ctx); err != nil {
		s.fault(err)
		_ = s.transport.Close()
		cancel()
		return err
	}

	s.stateMu.Lock()
	s.state = StateReady
	s.stateMu.Unlock()
	s.setStateMetric(StateReady)

	s.logger.Info("session ready",
		logging.String("server", s.ServerInfo().Name),
		logging.String("server_version", s.ServerInfo().Version),
		logging.String("protocol_version", s.ServerInfo().ProtocolVersion),
	)
	return nil
}

func (s *Session) handshake(ctx context.Context) error {
	params := protocol.InitializeParams{
		ProtocolVersion: protocol.ProtocolVersion,
		Capabilities:    map[string]interface{}{},
		ClientInfo:      s.config.ClientInfo,
	}

	raw, err := s.request(ctx, protocol.MethodInitialize, params)
	if err != nil {
		return err
	}

	var result protocol.InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return mcperrors.MalformedMessage("invalid initialize result", err)
	}

	s.stateMu.Lock()
	s.serverInfo = result.ServerInfo
	s.serverInfo.ProtocolVersion = result.ProtocolVersion
	s.stateMu.Unlock()

	return s.notify(protocol.MethodInitialized, nil)
}

// Request issues a request and blocks until its response, timeout,
// cancellation or transport failure. Only valid in the Ready state.
func (s *Session) Request(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	if state := s.State(); state != StateReady {
		return nil, mcperrors.SessionNotReady(state.String())
	}

	if s.strictSem != nil {
		select {
		case s.strictSem <- struct{}{}:
			defer func() { <-s.strictSem }()
		case <-ctx.Done():
			return nil, mcperrors.RequestCancelled("unassigned", ctx.Err())
		}
	}

	return s.request(ctx, method, params)
}

// request is the internal send path, used by the handshake before Ready
func (s *Session) request(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	id := s.nextID.Add(1)
	printable := fmt.Sprintf("%.8s-%d", s.id, id)
	started := time.Now()

	var span trace.Span
	if s.config.Tracer != nil {
		ctx, span = s.config.Tracer.Start(ctx, "mcp."+method,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("mcp.method", method),
				attribute.String("mcp.request_id", printable),
			),
		)
	}

	result, err := s.dispatch(ctx, id, printable, method, params)

	status := "ok"
	if err != nil {
		if mcpErr, ok := mcperrors.AsMCPError(err); ok {
			status = mcperrors.GetCodeName(mcpErr.Code())
		} else {
			status = "error"
		}
	}
	s.metrics.RecordRequest(method, status, time.Since(started))

	if span != nil {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
	return result, err
}

func (s *Session) dispatch(ctx context.Context, id int64, printable, method string, params interface{}) (json.RawMessage, error) {
	now := time.Now()
	deadline := now.Add(s.config.DefaultTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	timeout := deadline.Sub(now)

	handle, err := s.correlator.Register(id, printable, method, deadline)
	if err != nil {
		return nil, err
	}

	req, err := protocol.NewRequest(id, method, params)
	if err != nil {
		s.correlator.Cancel(id)
		return nil, err
	}
	frame, err := protocol.Encode(req)
	if err != nil {
		s.correlator.Cancel(id)
		return nil, err
	}

	s.logger.Debug("request written",
		logging.String("request_id", printable),
		logging.String("method", method),
	)
	if err := s.transport.WriteFrame(frame); err != nil {
		s.correlator.Cancel(id)
		return nil, err
	}

	select {
	case out := <-handle.ch:
		return out.result, out.err
	case <-ctx.Done():
		// Client-local abandonment: the entry is removed and nothing
		// more is written; the server may still process the request.
		s.correlator.Cancel(id)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			// An elapsed caller deadline is a timeout, same as the
			// correlator's own expiry.
			return nil, mcperrors.RequestTimeout(printable, method, timeout)
		}
		return nil, mcperrors.RequestCancelled(printable, ctx.Err())
	}
}

// Notify sends a fire-and-forget notification. Only valid in Ready.
func (s *Session) Notify(ctx context.Context, method string, params interface{}) error {
	if state := s.State(); state != StateReady {
		return mcperrors.SessionNotReady(state.String())
	}
	return s.notify(method, params)
}

func (s *Session) notify(method string, params interface{}) error {
	notif, err := protocol.NewNotification(method, params)
	if err != nil {
		return err
	}
	frame, err := protocol.Encode(notif)
	if err != nil {
		return err
	}
	return s.transport.WriteFrame(frame)
}

// readLoop is the single consumer of inbound frames and the single
// delivery path into the correlator
func (s *Session) readLoop() error {
	for {
		frame, err := s.transport.ReadFrame()
		if err != nil {
			s.handleStreamEnd(err)
			return nil
		}

		msg, err := protocol.Decode(frame)
		if err != nil {
			// A single bad frame from a non-conformant server does
			// not tear down the session.
			s.logger.WithError(err).Warn("dropping malformed frame")
			continue
		}

		switch m := msg.(type) {
		case *protocol.Response:
			if m.Error != nil {
				s.correlator.Reject(m.ID, mcperrors.ServerError(m.Error.Code, m.Error.Message))
			} else {
				s.correlator.Resolve(m.ID, m.Result)
			}

		case *protocol.Notification:
			if handler := s.config.OnNotification; handler != nil {
				handler(m.Method, m.Params)
			} else {
				s.logger.Debug("unhandled notification", logging.String("method", m.Method))
			}

		case *protocol.Request:
			// The client core services no server-initiated requests.
			s.logger.Warn("dropping server-initiated request",
				logging.String("method", m.Method),
				logging.Int64("id", m.ID),
			)
		}
	}
}

func (s *Session) expireLoop(ctx context.Context) error {
	ticker := time.NewTicker(expireInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			s.correlator.Expire(now)
		}
	}
}

// handleStreamEnd runs when the read loop observes transport termination
func (s *Session) handleStreamEnd(cause error) {
	s.stateMu.Lock()
	closing := s.state == StateClosing || s.state == StateClosed
	if closing {
		s.state = StateClosed
	} else {
		s.state = StateFaulted
	}
	state := s.state
	s.stateMu.Unlock()
	s.setStateMetric(state)

	reason := cause
	if exitErr := s.transport.ExitErr(); exitErr != nil {
		reason = exitErr
	}
	s.correlator.FailAll(reason)
	s.metrics.RecordFailAll(failReason(reason))

	// The read loop is done; stop the expiry ticker with it so a faulted
	// session holds no goroutines.
	if s.loopCancel != nil {
		s.loopCancel()
	}

	if closing {
		s.logger.Debug("stream ended during close")
	} else {
		s.logger.WithError(cause).Warn("transport terminated, session faulted")
	}
}

// fault moves the session to Faulted and fails everything pending
func (s *Session) fault(cause error) {
	s.stateMu.Lock()
	s.state = StateFaulted
	s.stateMu.Unlock()
	s.setStateMetric(StateFaulted)

	s.correlator.FailAll(cause)
	s.metrics.RecordFailAll(failReason(cause))
	if s.loopCancel != nil {
		s.loopCancel()
	}
	s.logger.WithError(cause).Error("session faulted")
}

// Close cancels everything pending, stops the loops and releases the
// transport. Idempotent.
func (s *Session) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		s.stateMu.Lock()
		if s.state == StateClosed {
			s.stateMu.Unlock()
			return
		}
		s.state = StateClosing
		s.stateMu.Unlock()
		s.setStateMetric(StateClosing)

		s.correlator.FailAll(errors.New("session closed"))
		if s.loopCancel != nil {
			s.loopCancel()
		}
		closeErr = s.transport.Close()
		if s.loopGroup != nil {
			_ = s.loopGroup.Wait()
		}

		s.stateMu.Lock()
		s.state = StateClosed
		s.stateMu.Unlock()
		s.setStateMetric(StateClosed)
		s.logger.Info("session closed")
	})
	return closeErr
}

func (s *Session) setStateMetric(state State) {
	s.metrics.SetConnectionState(state.String())
}

func failReason(err error) string {
	if mcpErr, ok := mcperrors.AsMCPError(err); ok {
		return mcperrors.GetCodeName(mcpErr.Code())
	}
	if err != nil {
		return "error"
	}
	return "unknown"
}
