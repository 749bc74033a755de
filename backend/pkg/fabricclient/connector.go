package fabricclient

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

var errConnectorClosed = errors.New("connector closed")

const (
	ModeDialer = "dialer"
	ModeShared = "shared"
)

// Connector hands out Ledger handles. Callers Close every handle they get.
type Connector interface {
	Connect(ctx context.Context) (Ledger, error)
	Close() error
	// Mode names the connection strategy for metrics and logs.
	Mode() string
}

type openFunc func() (Ledger, error)

// Dialer opens a fresh gateway for every Connect.
type Dialer struct {
	open openFunc
}

func NewDialer(cfg Config) *Dialer {
	applyDiscovery(cfg)
	return &Dialer{open: func() (Ledger, error) { return NewClient(cfg) }}
}

func (d *Dialer) Connect(ctx context.Context) (Ledger, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError(KindConnectivity, "connect", err)
	}
	return d.open()
}

func (d *Dialer) Close() error { return nil }

func (d *Dialer) Mode() string { return ModeDialer }

// Shared keeps one gateway open for the process lifetime. The gateway is
// opened on first use and retired after a connectivity failure so the next
// request opens a new one. A retired gateway is closed once its last borrower
// lets go. Opening happens outside the lock; when two requests race, the
// first gateway installed wins and the other is closed.
type Shared struct {
	open openFunc

	mu      sync.Mutex
	current *sharedHandle
	closed  bool
}

type sharedHandle struct {
	ledger  Ledger
	refs    int
	retired bool
	done    bool
}

// releasable reports whether h must be closed now. Callers hold Shared.mu.
func (h *sharedHandle) releasable() bool {
	if h.retired && h.refs == 0 && !h.done {
		h.done = true
		return true
	}
	return false
}

func NewShared(cfg Config) *Shared {
	applyDiscovery(cfg)
	return &Shared{open: func() (Ledger, error) { return NewClient(cfg) }}
}

func (s *Shared) Mode() string { return ModeShared }

func (s *Shared) Connect(ctx context.Context) (Ledger, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError(KindConnectivity, "connect", err)
	}

	if l, ok, err := s.borrow(); ok || err != nil {
		return l, err
	}

	ledger, err := s.open()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ledger.Close()
		return nil, newError(KindConnectivity, "connect", errConnectorClosed)
	}
	var spare Ledger
	if s.current == nil {
		s.current = &sharedHandle{ledger: ledger}
	} else {
		spare = ledger
	}
	h := s.current
	h.refs++
	s.mu.Unlock()

	if spare != nil {
		spare.Close()
	}
	return &sharedLedger{owner: s, handle: h}, nil
}

// borrow takes a reference on the installed gateway. ok is false when there
// is none and the caller has to open one.
func (s *Shared) borrow() (Ledger, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, false, newError(KindConnectivity, "connect", errConnectorClosed)
	}
	if s.current == nil {
		return nil, false, nil
	}
	s.current.refs++
	return &sharedLedger{owner: s, handle: s.current}, true, nil
}

// retire stops handing out h. Borrowers already holding it keep using it.
func (s *Shared) retire(h *sharedHandle) {
	s.mu.Lock()
	if s.current == h {
		s.current = nil
	}
	h.retired = true
	closeNow := h.releasable()
	s.mu.Unlock()

	if closeNow {
		h.ledger.Close()
	}
}

func (s *Shared) release(h *sharedHandle) {
	s.mu.Lock()
	h.refs--
	closeNow := h.releasable()
	s.mu.Unlock()

	if closeNow {
		h.ledger.Close()
	}
}

func (s *Shared) Close() error {
	s.mu.Lock()
	s.closed = true
	h := s.current
	s.current = nil
	closeNow := false
	if h != nil {
		h.retired = true
		closeNow = h.releasable()
	}
	s.mu.Unlock()

	if closeNow {
		h.ledger.Close()
	}
	return nil
}

// sharedLedger is one borrower's reference on a shared gateway.
type sharedLedger struct {
	owner  *Shared
	handle *sharedHandle
	once   sync.Once
}

func (l *sharedLedger) SubmitTransaction(name string, args ...string) ([]byte, error) {
	result, err := l.handle.ledger.SubmitTransaction(name, args...)
	l.check(err)
	return result, err
}

func (l *sharedLedger) EvaluateTransaction(name string, args ...string) ([]byte, error) {
	result, err := l.handle.ledger.EvaluateTransaction(name, args...)
	l.check(err)
	return result, err
}

func (l *sharedLedger) check(err error) {
	if err != nil && KindOf(err) == KindConnectivity {
		l.owner.retire(l.handle)
	}
}

func (l *sharedLedger) Close() {
	l.once.Do(func() { l.owner.release(l.handle) })
}
