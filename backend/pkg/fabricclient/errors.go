package fabricclient

import (
	"github.com/hyperledger/fabric-sdk-go/pkg/common/errors/status"
	"github.com/pkg/errors"
)

// Kind tags a failure on the ledger path.
type Kind string

const (
	KindUnknown      Kind = "unknown"
	KindValidation   Kind = "validation"
	KindConnectivity Kind = "connectivity"
	KindRejection    Kind = "ledger_rejection"
)

// Error carries the failing operation and its Kind. The message keeps the
// underlying error text intact since callers surface it verbatim.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Validation wraps err as a KindValidation failure of op.
func Validation(op string, err error) error {
	return newError(KindValidation, op, err)
}

// KindOf reports the Kind of err, or KindUnknown when err was not produced here.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// classify maps an SDK invocation error onto a Kind using its status group.
// Errors without a status came back from the contract path and count as rejections.
func classify(op string, err error) error {
	s, ok := status.FromError(err)
	if !ok {
		return newError(KindRejection, op, err)
	}
	switch s.Group {
	case status.HTTPTransportStatus, status.GRPCTransportStatus,
		status.EndorserClientStatus, status.OrdererClientStatus,
		status.DiscoveryServerStatus, status.ClientStatus:
		return newError(KindConnectivity, op, err)
	default:
		return newError(KindRejection, op, err)
	}
}
