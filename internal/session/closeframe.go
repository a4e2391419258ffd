package session

import "encoding/binary"

// Status codes from RFC 6455 §7.4.1, duplicated here (rather than
// importing gorilla/websocket) so this package's only external dependency
// is the narrow Conn interface in conn.go.
const (
	closeStatusNormal   = 1000
	closeStatusProtocol = 1002
)

// maxCloseReasonBytes is RFC 6455's limit on the control frame payload
// (125 bytes total, minus 2 for the status code).
const maxCloseReasonBytes = 123

// formatCloseMessage builds a close control frame payload: a 2-byte
// big-endian status code followed by a UTF-8 reason, truncated to fit the
// control-frame payload limit.
func formatCloseMessage(status int, reason string) []byte {
	if len(reason) > maxCloseReasonBytes {
		reason = reason[:maxCloseReasonBytes]
	}
	buf := make([]byte, 2+len(reason))
	binary.BigEndian.PutUint16(buf, uint16(status))
	copy(buf[2:], reason)
	return buf
}
