package server

import (
	"testing"
	"time"

	"github.com/vovakirdan/roomchat/internal/proto"
)

func mustEvent(t *testing.T, ch <-chan proto.Inbound, match func(proto.Inbound) bool) proto.Inbound {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case msg, ok := <-ch:
			if !ok {
				t.Fatalf("events channel closed")
			}
			if match(msg) {
				return msg
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event not received")
	return nil
}

func isEvent[P proto.EventPayload](m proto.Inbound) bool {
	ev, ok := m.(proto.Event)
	if !ok {
		return false
	}
	_, ok = ev.Payload.(P)
	return ok
}

func isJoinAck(m proto.Inbound) bool {
	_, ok := m.(proto.JoinAck)
	return ok
}
