package tasklist

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedOperation is returned when an operation envelope has no
// recognized tag key, more than one key, or a tag whose payload does not
// match its schema.
var ErrMalformedOperation = errors.New("tasklist: malformed operation envelope")

// EncodeOperation wraps op in its externally-tagged envelope:
// {"<Tag>": <payload>}. This is both the WebSocket wire format and the
// format stored in the operation log's jsonval column.
func EncodeOperation(op Operation) ([]byte, error) {
	payload, err := json.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("tasklist: encode %s payload: %w", op.opTag(), err)
	}
	envelope := map[string]json.RawMessage{op.opTag(): payload}
	return json.Marshal(envelope)
}

// DecodeOperation unwraps an externally-tagged envelope into a concrete
// Operation. It is the inverse of EncodeOperation and is used both for
// inbound client frames and for replaying stored operation records.
func DecodeOperation(data []byte) (Operation, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOperation, err)
	}
	if len(envelope) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one tag, got %d", ErrMalformedOperation, len(envelope))
	}

	for tag, payload := range envelope {
		switch tag {
		case "OverwriteState":
			var v OverwriteState
			if err := json.Unmarshal(payload, &v); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrMalformedOperation, tag, err)
			}
			return v, nil
		case "LiveTaskInsNew":
			var v LiveTaskInsNew
			if err := json.Unmarshal(payload, &v); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrMalformedOperation, tag, err)
			}
			return v, nil
		case "LiveTaskInsRestore":
			var v LiveTaskInsRestore
			if err := json.Unmarshal(payload, &v); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrMalformedOperation, tag, err)
			}
			return v, nil
		case "LiveTaskEdit":
			var v LiveTaskEdit
			if err := json.Unmarshal(payload, &v); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrMalformedOperation, tag, err)
			}
			return v, nil
		case "LiveTaskDel":
			var v LiveTaskDel
			if err := json.Unmarshal(payload, &v); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrMalformedOperation, tag, err)
			}
			return v, nil
		case "LiveTaskDelIns":
			var v LiveTaskDelIns
			if err := json.Unmarshal(payload, &v); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrMalformedOperation, tag, err)
			}
			return v, nil
		case "FinishedTaskPush":
			var v FinishedTaskPush
			if err := json.Unmarshal(payload, &v); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrMalformedOperation, tag, err)
			}
			return v, nil
		case "FinishedTaskPushComplete":
			var v FinishedTaskPushComplete
			if err := json.Unmarshal(payload, &v); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrMalformedOperation, tag, err)
			}
			return v, nil
		default:
			return nil, fmt.Errorf("%w: unknown tag %q", ErrMalformedOperation, tag)
		}
	}
	panic("unreachable")
}
