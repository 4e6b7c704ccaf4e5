package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/khaledhikmat/vs-liveness/service/config"
	"github.com/khaledhikmat/vs-liveness/service/lgr"
	"golang.org/x/net/websocket"
	"golang.org/x/xerrors"
)

const eventsBuffer = 256

type wsService struct {
	baseURL      string
	dialTimeout  time.Duration
	writeTimeout time.Duration
	events       chan Event

	mu        sync.Mutex
	seq       uint64
	current   uint64
	sessionID string
	conn      *websocket.Conn
	state     State

	// Serializes writers so a frame and the stop signal never interleave
	writeMu sync.Mutex

	// Events waiting for the consumer, in emission order. Only results
	// are ever dropped; lifecycle events always get through.
	queueMu       sync.Mutex
	queue         []Event
	queuedResults int
	pending       chan struct{}
}

func NewWebsocket(cfgSvc config.IService) IService {
	svc := &wsService{
		baseURL:      cfgSvc.GetStreamBaseURL(),
		dialTimeout:  cfgSvc.GetDialTimeout(),
		writeTimeout: cfgSvc.GetWriteTimeout(),
		events:       make(chan Event, eventsBuffer),
		pending:      make(chan struct{}, 1),
	}
	go svc.pump()
	return svc
}

func (svc *wsService) Events() <-chan Event {
	return svc.events
}

func (svc *wsService) State() State {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.state
}

// Connect replaces any existing connection with a new one bound to sessionID.
// The old connection is closed before dialing.
func (svc *wsService) Connect(ctx context.Context, sessionID string) error {
	svc.mu.Lock()
	svc.seq++
	id := svc.seq
	old := svc.conn
	svc.current = id
	svc.sessionID = sessionID
	svc.conn = nil
	svc.state = StateConnecting
	svc.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}

	conn, err := svc.dial(ctx, sessionID)
	if err != nil {
		svc.mu.Lock()
		if svc.current == id {
			svc.current = 0
			svc.state = StateClosed
			svc.emitLocked(Event{Kind: EventConnectFailed, ConnID: id, SessionID: sessionID, Err: err})
		}
		svc.mu.Unlock()
		return err
	}

	svc.mu.Lock()
	if svc.current != id {
		// Closed or reconnected while dialing
		svc.mu.Unlock()
		_ = conn.Close()
		return xerrors.Errorf("connect %s: superseded", sessionID)
	}
	svc.conn = conn
	svc.state = StateOpen
	svc.emitLocked(Event{Kind: EventOpen, ConnID: id, SessionID: sessionID})
	svc.mu.Unlock()

	lgr.Logger.Info("stream connected",
		slog.String("sessionID", sessionID),
		slog.Uint64("connID", id),
	)

	go svc.read(id, sessionID, conn)
	return nil
}

func (svc *wsService) Send(message string) error {
	svc.mu.Lock()
	conn := svc.conn
	open := svc.state == StateOpen
	svc.mu.Unlock()

	if !open || conn == nil {
		return ErrNotConnected
	}

	svc.writeMu.Lock()
	defer svc.writeMu.Unlock()

	if svc.writeTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(svc.writeTimeout))
	}
	if err := websocket.Message.Send(conn, message); err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	return nil
}

// Close emits EventClosed with ReasonLocal when a connection was open or pending.
func (svc *wsService) Close() {
	svc.mu.Lock()
	if svc.current == 0 {
		svc.mu.Unlock()
		return
	}
	conn := svc.conn
	svc.emitLocked(Event{Kind: EventClosed, ConnID: svc.current, SessionID: svc.sessionID, Reason: ReasonLocal})
	svc.current = 0
	svc.conn = nil
	svc.state = StateClosed
	svc.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

func (svc *wsService) dial(ctx context.Context, sessionID string) (*websocket.Conn, error) {
	target, origin, err := endpoints(svc.baseURL, sessionID)
	if err != nil {
		return nil, err
	}

	cfg, err := websocket.NewConfig(target, origin)
	if err != nil {
		return nil, xerrors.Errorf("websocket config: %w", err)
	}

	dialCtx := ctx
	if svc.dialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, svc.dialTimeout)
		defer cancel()
	}

	conn, err := cfg.DialContext(dialCtx)
	if err != nil {
		return nil, xerrors.Errorf("dial %s: %w", target, err)
	}
	return conn, nil
}

func (svc *wsService) read(id uint64, sessionID string, conn *websocket.Conn) {
	for {
		var raw string
		if err := websocket.Message.Receive(conn, &raw); err != nil {
			svc.finish(id, sessionID, err)
			return
		}

		msg, err := Interpret(raw)
		if err != nil {
			lgr.Logger.Warn("dropping stream message",
				slog.String("sessionID", sessionID),
				slog.Any("error", err),
			)
			continue
		}

		ev := Event{ConnID: id, SessionID: sessionID}
		switch msg.Kind {
		case MessageCompleted:
			ev.Kind = EventCompleted
		case MessageResult:
			ev.Kind = EventResult
			ev.Result = msg.Result
		}

		svc.mu.Lock()
		if svc.current != id {
			svc.mu.Unlock()
			return
		}
		svc.emitLocked(ev)
		svc.mu.Unlock()
	}
}

// finish records the end of the reader for connection id. Nothing is
// emitted when the connection was already closed locally or replaced.
func (svc *wsService) finish(id uint64, sessionID string, err error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.current != id {
		return
	}
	svc.current = 0
	svc.conn = nil
	svc.state = StateClosed

	if errors.Is(err, io.EOF) {
		svc.emitLocked(Event{Kind: EventClosed, ConnID: id, SessionID: sessionID, Reason: "peer"})
		return
	}
	svc.emitLocked(Event{Kind: EventError, ConnID: id, SessionID: sessionID, Err: err})
}

// emitLocked queues ev without blocking. Results are dropped once
// eventsBuffer of them are waiting.
func (svc *wsService) emitLocked(ev Event) {
	svc.queueMu.Lock()
	if ev.Kind == EventResult && svc.queuedResults >= eventsBuffer {
		svc.queueMu.Unlock()
		lgr.Logger.Warn("stream result dropped",
			slog.String("sessionID", ev.SessionID),
			slog.Int("frameNumber", ev.Result.FrameNumber),
		)
		return
	}
	svc.queue = append(svc.queue, ev)
	if ev.Kind == EventResult {
		svc.queuedResults++
	}
	svc.queueMu.Unlock()

	select {
	case svc.pending <- struct{}{}:
	default:
	}
}

// pump moves queued events to the consumer channel, blocking on it.
func (svc *wsService) pump() {
	for range svc.pending {
		for {
			svc.queueMu.Lock()
			if len(svc.queue) == 0 {
				svc.queueMu.Unlock()
				break
			}
			ev := svc.queue[0]
			svc.queue[0] = Event{}
			svc.queue = svc.queue[1:]
			if ev.Kind == EventResult {
				svc.queuedResults--
			}
			svc.queueMu.Unlock()

			svc.events <- ev
		}
	}
}

// endpoints builds the streaming url for sessionID and a matching http origin.
func endpoints(baseURL, sessionID string) (string, string, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", "", xerrors.Errorf("parse stream base url: %w", err)
	}
	if parsed.Host == "" {
		return "", "", xerrors.New("stream base url host is required")
	}

	originScheme := "http"
	switch parsed.Scheme {
	case "ws":
	case "wss":
		originScheme = "https"
	default:
		return "", "", xerrors.Errorf("stream base url must use ws or wss, got %q", parsed.Scheme)
	}

	target := parsed.String() + "/ws/process/" + url.PathEscape(sessionID)
	origin := originScheme + "://" + parsed.Host
	return target, origin, nil
}
