package session

import (
	"testing"
	"time"
)

func TestHeartbeat_ExpiredAfterClientTimeout(t *testing.T) {
	start := time.Now()
	hb := newHeartbeat(start)

	if hb.expired(start.Add(ClientTimeout - time.Second)) {
		t.Fatal("expected not expired just before the timeout")
	}
	if !hb.expired(start.Add(ClientTimeout + time.Second)) {
		t.Fatal("expected expired just after the timeout")
	}
}

func TestHeartbeat_TouchResetsExpiry(t *testing.T) {
	start := time.Now()
	hb := newHeartbeat(start)

	touchedAt := start.Add(ClientTimeout - time.Second)
	hb.touch(touchedAt)

	if hb.expired(touchedAt.Add(ClientTimeout - time.Second)) {
		t.Fatal("expected touch to push back the expiry")
	}
}
