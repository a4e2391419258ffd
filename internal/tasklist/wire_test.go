package tasklist

import (
	"errors"
	"reflect"
	"testing"
)

// TestEncodeDecodeOperation_RoundTrip covers all eight variants.
func TestEncodeDecodeOperation_RoundTrip(t *testing.T) {
	cases := []Operation{
		OverwriteState{Live: []LiveTask{{ID: "a", Value: "A"}}, Finished: []FinishedTask{}},
		LiveTaskInsNew{LiveTaskID: "a", Value: "A", Position: 0},
		LiveTaskInsRestore{FinishedTaskID: "f1"},
		LiveTaskEdit{LiveTaskID: "a", Value: "A2"},
		LiveTaskDel{LiveTaskID: "a"},
		LiveTaskDelIns{LiveTaskIDDel: "a", LiveTaskIDIns: "b"},
		FinishedTaskPush{FinishedTaskID: "f1", Value: "A", Status: StatusObsoleted},
		FinishedTaskPushComplete{LiveTaskID: "a", FinishedTaskID: "f1", Status: StatusSucceeded},
	}

	for _, op := range cases {
		data, err := EncodeOperation(op)
		if err != nil {
			t.Fatalf("encode %T: %v", op, err)
		}
		decoded, err := DecodeOperation(data)
		if err != nil {
			t.Fatalf("decode %T: %v", op, err)
		}
		if !reflect.DeepEqual(decoded, op) {
			t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, op)
		}
	}
}

// TestEncodeOperation_UsesExternalTag verifies the wire shape is
// {"<Tag>": {...}}, matching the durable log's jsonval column format.
func TestEncodeOperation_UsesExternalTag(t *testing.T) {
	data, err := EncodeOperation(LiveTaskDel{LiveTaskID: "a"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	const want = `{"LiveTaskDel":{"live_task_id":"a"}}`
	if string(data) != want {
		t.Fatalf("got %s, want %s", data, want)
	}
}

// TestDecodeOperation_RejectsUnknownTag covers malformed operation handling.
func TestDecodeOperation_RejectsUnknownTag(t *testing.T) {
	_, err := DecodeOperation([]byte(`{"NotARealTag":{}}`))
	if !errors.Is(err, ErrMalformedOperation) {
		t.Fatalf("expected ErrMalformedOperation, got %v", err)
	}
}

// TestDecodeOperation_RejectsMultiKeyEnvelope covers malformed operation
// handling when more than one tag key is present.
func TestDecodeOperation_RejectsMultiKeyEnvelope(t *testing.T) {
	_, err := DecodeOperation([]byte(`{"LiveTaskDel":{"live_task_id":"a"},"LiveTaskEdit":{"live_task_id":"a","value":"x"}}`))
	if !errors.Is(err, ErrMalformedOperation) {
		t.Fatalf("expected ErrMalformedOperation, got %v", err)
	}
}

// TestDecodeOperation_RejectsMalformedJSON covers non-object input.
func TestDecodeOperation_RejectsMalformedJSON(t *testing.T) {
	_, err := DecodeOperation([]byte(`not json`))
	if !errors.Is(err, ErrMalformedOperation) {
		t.Fatalf("expected ErrMalformedOperation, got %v", err)
	}
}
