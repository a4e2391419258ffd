package session

import (
	"encoding/json"
	"fmt"

	"github.com/dshills/tasklisthub/internal/tasklist"
)

// InitMessage is the first client text frame of a handshake.
type InitMessage struct {
	APIKey string `json:"api_key"`
}

// CloseCode classifies why a session closed, mirroring the six failure
// kinds of §7 down to the subset the wire protocol distinguishes.
type CloseCode string

const (
	// CloseNone is used when the session closes without a wire-visible
	// reason (peer gone, liveness timeout): the connection is simply
	// dropped.
	CloseNone CloseCode = ""
	// CloseError covers Unauthorized, Storage, and Internal failures.
	CloseError CloseCode = "Error"
	// CloseUnsupported covers ClientProtocol failures: wrong frame type.
	CloseUnsupported CloseCode = "Unsupported"
)

// CloseReason is the computed reason a session's closure attempt carries.
// A zero-value CloseReason (Code == CloseNone) means "close silently".
type CloseReason struct {
	Code    CloseCode
	Message string
}

func closeError(format string, args ...interface{}) CloseReason {
	return CloseReason{Code: CloseError, Message: fmt.Sprintf(format, args...)}
}

func closeUnsupported(message string) CloseReason {
	return CloseReason{Code: CloseUnsupported, Message: message}
}

// wsOpEnvelope is the single-field envelope {"WebsocketOpMessage": <Operation>}
// that wraps every inbound client operation frame. <Operation> is itself an
// externally-tagged envelope, decoded by tasklist.DecodeOperation.
const wsOpEnvelopeKey = "WebsocketOpMessage"

// decodeOpMessage unwraps a WebsocketOpMessage envelope into a concrete
// tasklist.Operation.
func decodeOpMessage(data []byte) (tasklist.Operation, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("session: malformed op message: %w", err)
	}
	inner, ok := envelope[wsOpEnvelopeKey]
	if !ok || len(envelope) != 1 {
		return nil, fmt.Errorf("session: expected single %q key", wsOpEnvelopeKey)
	}
	return tasklist.DecodeOperation(inner)
}

// encodeServerFrame serializes a bare tagged operation, the server's
// outbound frame shape (no WebsocketOpMessage wrapper).
func encodeServerFrame(op tasklist.Operation) ([]byte, error) {
	return tasklist.EncodeOperation(op)
}
