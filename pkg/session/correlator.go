// Package session drives the protocol state machine: the handshake, the
// single read loop, request correlation and the public request API.
package session

import (
	"encoding/json"
	"strconv"
	"sync"
	"time"

	mcperrors "github.com/mcpwire/mcpwire/pkg/errors"
	"github.com/mcpwire/mcpwire/pkg/logging"
)

// outcome is the terminal result of one pending request
type outcome struct {
	result json.RawMessage
	err    error
}

// pending is one outstanding request. It is owned exclusively by the
// correlator from Register until it is resolved, rejected, expired,
// cancelled or failed wholesale.
type pending struct {
	id        int64
	printable string
	method    string
	createdAt time.Time
	deadline  time.Time
	ch        chan outcome
}

// Handle lets the registering caller await the request outcome
type Handle struct {
	id string
	ch <-chan outcome
}

// ID returns the printable request id
func (h *Handle) ID() string { return h.id }

// Correlator is the single authoritative map from request id to pending
// request. The read loop is the only delivery path; callers register and
// await concurrently.
type Correlator struct {
	mu       sync.Mutex
	pending  map[int64]*pending
	closed   bool
	closeErr error
	logger   logging.Logger
}

// NewCorrelator creates an empty correlator
func NewCorrelator(logger logging.Logger) *Correlator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Correlator{
		pending: make(map[int64]*pending),
		logger:  logger,
	}
}

// Register adds a pending request and returns the handle to await it.
// After FailAll it fails immediately with the terminal transport error.
// A duplicate id is an internal-consistency failure, not a protocol error.
func (c *Correlator) Register(id int64, printable, method string, deadline time.Time) (*Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, c.closeErr
	}
	if _, exists := c.pending[id]; exists {
		return nil, mcperrors.DuplicateID(printable)
	}

	p := &pending{
		id:        id,
		printable: printable,
		method:    method,
		createdAt: time.Now(),
		deadline:  deadline,
		ch:        make(chan outcome, 1),
	}
	c.pending[id] = p
	return &Handle{id: printable, ch: p.ch}, nil
}

// Resolve completes the pending request with a result. A response for an
// unknown id is logged as unsolicited and dropped; servers may be
// non-conformant and timed-out ids are already gone.
func (c *Correlator) Resolve(id int64, result json.RawMessage) {
	c.complete(id, outcome{result: result})
}

// Reject completes the pending request with an error
func (c *Correlator) Reject(id int64, err error) {
	c.complete(id, outcome{err: err})
}

func (c *Correlator) complete(id int64, out outcome) {
	c.mu.Lock()
	p, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if !ok {
		c.logger.WithError(mcperrors.UnsolicitedResponse(printableID(id))).
			Warn("dropping response for unknown request id")
		return
	}
	p.ch <- out
}

// Cancel removes a pending request without delivering an outcome. Used
// for client-local abandonment; the server may still process the request.
func (c *Correlator) Cancel(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// FailAll atomically rejects every pending request with a TransportClosed
// error carrying reason, and makes every later Register fail with the
// same error rather than hang.
func (c *Correlator) FailAll(reason error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.closeErr = mcperrors.TransportClosed(reason)
	failed := make([]*pending, 0, len(c.pending))
	for _, p := range c.pending {
		failed = append(failed, p)
	}
	c.pending = make(map[int64]*pending)
	c.mu.Unlock()

	for _, p := range failed {
		p.ch <- outcome{err: c.closeErr}
	}
}

// Expire rejects every pending request whose deadline has passed with a
// RequestTimeout. Invoked on a periodic tick.
func (c *Correlator) Expire(now time.Time) {
	c.mu.Lock()
	var expired []*pending
	for id, p := range c.pending {
		if !p.deadline.IsZero() && now.After(p.deadline) {
			expired = append(expired, p)
			delete(c.pending, id)
		}
	}
	c.mu.Unlock()

	for _, p := range expired {
		p.ch <- outcome{
			err: mcperrors.RequestTimeout(p.printable, p.method, p.deadline.Sub(p.createdAt)),
		}
	}
}

// PendingCount returns the number of outstanding requests
func (c *Correlator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func printableID(id int64) string {
	return "?-" + strconv.FormatInt(id, 10)
}
