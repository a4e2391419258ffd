package session

import "time"

// Conn is the subset of *websocket.Conn the session state machine depends
// on. Declaring it narrowly lets tests drive the state machine against an
// in-memory fake instead of a real socket.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Message types, mirroring gorilla/websocket's constants so callers don't
// need to import that package just to build a fake Conn for tests.
const (
	TextMessage   = 1
	BinaryMessage = 2
	CloseMessage  = 8
	PingMessage   = 9
	PongMessage   = 10
)

// inboundFrame is what the read pump goroutine hands to the main select
// loop: either a successfully read frame, or the terminal read error that
// ended the pump.
type inboundFrame struct {
	messageType int
	data        []byte
	err         error
}

// newReadPump starts a goroutine that repeatedly calls conn.ReadMessage
// and forwards each result on the returned channel. The goroutine exits
// (closing nothing; the channel simply stops being read) once it reports
// an error — callers must stop consuming after the first error frame.
// There is no explicit cancellation signal: the caller cancels the pump by
// closing conn, which unblocks ReadMessage with an error.
func newReadPump(conn Conn) <-chan inboundFrame {
	ch := make(chan inboundFrame, 1)
	go func() {
		for {
			mt, data, err := conn.ReadMessage()
			ch <- inboundFrame{messageType: mt, data: data, err: err}
			if err != nil {
				return
			}
		}
	}()
	return ch
}
