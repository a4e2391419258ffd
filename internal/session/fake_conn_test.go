package session

import (
	"errors"
	"sync"
	"time"
)

// fakeConn is an in-memory stand-in for a websocket connection, driven by
// a queue of inbound frames and recording every outbound write for
// assertions.
type fakeConn struct {
	mu      sync.Mutex
	inbound chan inboundFrame
	sent    []fakeSent
	closed  bool
}

type fakeSent struct {
	messageType int
	data        []byte
	control     bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan inboundFrame, 16)}
}

// pushText queues a text frame to be returned by a future ReadMessage.
func (f *fakeConn) pushText(data string) {
	f.inbound <- inboundFrame{messageType: TextMessage, data: []byte(data)}
}

func (f *fakeConn) pushType(mt int) {
	f.inbound <- inboundFrame{messageType: mt}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	frame, ok := <-f.inbound
	if !ok {
		return 0, nil, errors.New("fakeConn: closed")
	}
	return frame.messageType, frame.data, frame.err
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("fakeConn: write on closed conn")
	}
	f.sent = append(f.sent, fakeSent{messageType: messageType, data: append([]byte(nil), data...)})
	return nil
}

func (f *fakeConn) WriteControl(messageType int, data []byte, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, fakeSent{messageType: messageType, data: append([]byte(nil), data...), control: true})
	return nil
}

func (f *fakeConn) SetReadDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.inbound)
	}
	return nil
}

// textMessages returns every non-control text frame written so far.
func (f *fakeConn) textMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, s := range f.sent {
		if !s.control && s.messageType == TextMessage {
			out = append(out, string(s.data))
		}
	}
	return out
}
