// Package session implements the per-connection streaming session state
// machine: handshake, heartbeat liveness, inbound frame dispatch, and
// outbound fan-out forwarding, per the wire protocol in the external
// interfaces contract.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dshills/tasklisthub/internal/cell"
	"github.com/dshills/tasklisthub/internal/collab"
	"github.com/dshills/tasklisthub/internal/emit"
	"github.com/dshills/tasklisthub/internal/tasklist"
)

// Recorder receives session lifecycle metrics observations. Satisfied by
// *metrics.Metrics; a nil Recorder is replaced with a no-op at
// construction, mirroring cell.Recorder.
type Recorder interface {
	SessionJoined()
	SessionClosed()
	SessionLeft()
}

type noopRecorder struct{}

func (noopRecorder) SessionJoined() {}
func (noopRecorder) SessionClosed() {}
func (noopRecorder) SessionLeft()   {}

// Session is one client connection's independent actor. It owns no state
// beyond what's needed to run the state machine in §4.4; the durable and
// shared state lives in the cell it joins.
type Session struct {
	conn     Conn
	auth     collab.Auth
	registry *cell.Registry
	emitter  emit.Emitter
	recorder Recorder

	writeTimeout time.Duration

	phase  Phase
	userID string
}

// New constructs a Session over an already-upgraded connection.
func New(conn Conn, auth collab.Auth, registry *cell.Registry, emitter emit.Emitter, opts ...Option) *Session {
	s := &Session{
		conn:         conn,
		auth:         auth,
		registry:     registry,
		emitter:      emitter,
		recorder:     noopRecorder{},
		writeTimeout: 10 * time.Second,
		phase:        PhaseHandshake,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Option configures optional Session behavior.
type Option func(*Session)

// WithRecorder attaches a metrics Recorder to the session.
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// Run drives the session to completion: handshake, then (on success) the
// Joined loop, until the connection closes for any reason. Run always
// attempts a graceful close on its way out; a failure to send the close
// frame is silently ignored, matching §4.4's closure discipline.
func (s *Session) Run(ctx context.Context) {
	frames := newReadPump(s.conn)
	hb := newHeartbeat(time.Now())
	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()

	var (
		joinedCell *cell.Cell
		sub        *cell.Subscription
		subCh      <-chan interface{} // nil until Joined; a nil channel blocks forever in select
	)
	defer func() {
		if sub != nil {
			sub.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.close(CloseReason{})
			return

		case <-ticker.C:
			if err := s.conn.WriteControl(PingMessage, nil, time.Now().Add(s.writeTimeout)); err != nil {
				s.close(CloseReason{})
				return
			}
			if hb.expired(time.Now()) {
				s.emitter.Emit(emit.Event{UserID: s.userID, Msg: "heartbeat_timeout"})
				s.close(CloseReason{})
				return
			}

		case frame := <-frames:
			if frame.err != nil {
				s.close(CloseReason{})
				return
			}

			reason, fatal := s.dispatch(ctx, frame, hb, &joinedCell, &sub, &subCh)
			if fatal {
				s.close(reason)
				return
			}

		case msg, ok := <-subCh:
			if !ok {
				s.close(CloseReason{})
				return
			}
			if _, lagged := msg.(cell.Lagged); lagged {
				continue
			}
			op, ok := msg.(tasklist.Operation)
			if !ok {
				continue
			}
			if err := s.sendOperation(op); err != nil {
				s.close(CloseReason{})
				return
			}
		}
	}
}

// dispatch handles one inbound frame per the phase-specific framing
// policy in §4.4, mutating joinedCell/sub/subCh on a successful handshake.
// It returns (reason, true) when the session must close.
func (s *Session) dispatch(ctx context.Context, frame inboundFrame, hb *heartbeat, joinedCell **cell.Cell, sub **cell.Subscription, subCh *<-chan interface{}) (CloseReason, bool) {
	switch frame.messageType {
	case PingMessage:
		hb.touch(time.Now())
		_ = s.conn.WriteControl(PongMessage, frame.data, time.Now().Add(s.writeTimeout))
		return CloseReason{}, false

	case PongMessage:
		hb.touch(time.Now())
		return CloseReason{}, false

	case CloseMessage:
		return CloseReason{}, true

	case BinaryMessage:
		return closeUnsupported("Only text supported"), true

	case TextMessage:
		if s.phase == PhaseHandshake {
			return s.handshake(ctx, frame.data, joinedCell, sub, subCh)
		}
		return s.handleOp(ctx, frame.data, *joinedCell)

	default:
		// gorilla/websocket's ReadMessage reassembles fragmented
		// (continuation) frames transparently and never surfaces this
		// type, so in practice this path is unreachable in production;
		// it exists as a defensive fallback for a Conn fake that returns
		// an unrecognized message type.
		return closeUnsupported("No support for continuation frame."), true
	}
}

// handshake parses the first text frame as an InitMessage, resolves the
// user via the auth collaborator, and on success joins the user's cell:
// sends the synthetic OverwriteState frame, then subscribes to live
// broadcast. The snapshot-clone and subscribe happen atomically inside
// cell.Cell.SubscribeAndSnapshot, so no operation applied after the clone
// can be missed.
func (s *Session) handshake(ctx context.Context, data []byte, joinedCell **cell.Cell, sub **cell.Subscription, subCh *<-chan interface{}) (CloseReason, bool) {
	var init InitMessage
	if err := json.Unmarshal(data, &init); err != nil {
		return closeError("malformed handshake message: %v", err), true
	}

	user, err := s.auth.Resolve(ctx, init.APIKey)
	if err != nil {
		s.emitter.Emit(emit.Event{Msg: "auth_failed"})
		return closeError("authentication failed: %v", err), true
	}
	s.userID = user.UserID

	c, err := s.registry.GetOrCreate(ctx, user.UserID)
	if err != nil {
		return closeError("failed to load task list: %v", err), true
	}

	newSub, snapshot := c.SubscribeAndSnapshot()
	if err := s.sendOperation(tasklist.OverwriteState{Live: snapshot.Live, Finished: snapshot.Finished}); err != nil {
		newSub.Close()
		return CloseReason{}, true
	}

	*joinedCell = c
	*sub = newSub
	*subCh = newSub.Recv()
	s.phase = PhaseJoined
	s.recorder.SessionJoined()
	s.emitter.Emit(emit.Event{UserID: s.userID, Msg: "session_joined"})

	return CloseReason{}, false
}

// handleOp parses a Joined-phase text frame as a WebsocketOpMessage
// envelope and applies it through the cell, per §4.4's three-step,
// single-lock ordering (append, apply, publish — enforced inside
// cell.Cell.ApplyOperation).
func (s *Session) handleOp(ctx context.Context, data []byte, c *cell.Cell) (CloseReason, bool) {
	op, err := decodeOpMessage(data)
	if err != nil {
		return closeError("malformed operation message: %v", err), true
	}

	if err := c.ApplyOperation(ctx, op); err != nil {
		s.emitter.Emit(emit.Event{UserID: s.userID, Msg: "storage_error", Meta: map[string]interface{}{"error": err.Error()}})
		return closeError("failed to persist operation: %v", err), true
	}

	return CloseReason{}, false
}

func (s *Session) sendOperation(op tasklist.Operation) error {
	data, err := encodeServerFrame(op)
	if err != nil {
		return fmt.Errorf("session: encode outbound operation: %w", err)
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	return s.conn.WriteMessage(TextMessage, data)
}

// close attempts a best-effort graceful close with the computed reason.
// Any failure to send the close frame or close the connection is silently
// ignored, per §4.4.
func (s *Session) close(reason CloseReason) {
	if s.phase == PhaseJoined {
		s.recorder.SessionLeft()
	}
	s.phase = PhaseClosed
	s.recorder.SessionClosed()

	status := closeStatusNormal
	text := ""
	if reason.Code != CloseNone {
		status = closeStatusProtocol
		text = fmt.Sprintf("%s: %s", reason.Code, reason.Message)
	}

	deadline := time.Now().Add(s.writeTimeout)
	_ = s.conn.WriteControl(CloseMessage, formatCloseMessage(status, text), deadline)
	_ = s.conn.Close()
}
