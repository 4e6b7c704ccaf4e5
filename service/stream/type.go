package stream

import (
	"context"

	"github.com/khaledhikmat/vs-liveness/model"
	"golang.org/x/xerrors"
)

var (
	ErrNotConnected = xerrors.New("stream is not connected")
	ErrSendFailed   = xerrors.New("stream send failed")
	ErrParse        = xerrors.New("malformed stream message")
)

type State int

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

type EventKind int

const (
	EventOpen EventKind = iota + 1
	EventConnectFailed
	EventResult
	EventCompleted
	EventClosed
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventOpen:
		return "open"
	case EventConnectFailed:
		return "connect_failed"
	case EventResult:
		return "result"
	case EventCompleted:
		return "completed"
	case EventClosed:
		return "closed"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// ReasonLocal is the close reason when this side closed the connection.
const ReasonLocal = "local"

// Event is one lifecycle or inbound occurrence on a connection. ConnID
// identifies the connection attempt that produced it.
type Event struct {
	Kind      EventKind
	ConnID    uint64
	SessionID string
	Result    model.InboundResult
	Reason    string
	Err       error
}

// IService owns the single streaming connection. Only the current
// connection produces events; anything from a superseded one is dropped.
type IService interface {
	Connect(ctx context.Context, sessionID string) error
	Send(message string) error
	Close()
	State() State
	Events() <-chan Event
}
