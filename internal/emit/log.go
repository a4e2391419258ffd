package emit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// LogEmitter implements Emitter by writing structured log output to a
// writer.
//
// Supports two output modes:
//   - Text mode (default): human-readable "[msg] key=value ..." lines.
//   - JSON mode: one JSON object per line.
type LogEmitter struct {
	writer   io.Writer
	jsonMode bool
}

// NewLogEmitter creates a new LogEmitter.
//
// writer defaults to os.Stdout when nil. jsonMode selects JSON output
// instead of the text format.
func NewLogEmitter(writer io.Writer, jsonMode bool) *LogEmitter {
	if writer == nil {
		writer = os.Stdout
	}
	return &LogEmitter{writer: writer, jsonMode: jsonMode}
}

// Emit writes an event to the configured writer.
func (l *LogEmitter) Emit(event Event) {
	if l.jsonMode {
		l.emitJSON(event)
	} else {
		l.emitText(event)
	}
}

// EmitBatch writes each event in order.
func (l *LogEmitter) EmitBatch(_ context.Context, events []Event) error {
	for _, e := range events {
		l.Emit(e)
	}
	return nil
}

// Flush is a no-op; LogEmitter writes synchronously.
func (l *LogEmitter) Flush(context.Context) error { return nil }

func (l *LogEmitter) emitText(event Event) {
	fmt.Fprintf(l.writer, "[%s] userID=%s sessionID=%s", event.Msg, event.UserID, event.SessionID)
	if len(event.Meta) > 0 {
		meta, err := json.Marshal(event.Meta)
		if err == nil {
			fmt.Fprintf(l.writer, " meta=%s", meta)
		}
	}
	fmt.Fprintln(l.writer)
}

func (l *LogEmitter) emitJSON(event Event) {
	line, err := json.Marshal(event)
	if err != nil {
		return
	}
	l.writer.Write(line)
	l.writer.Write([]byte("\n"))
}
