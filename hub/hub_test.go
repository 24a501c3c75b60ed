package hub

import (
	"sync"
	"testing"
)

func TestBroadcastDropsFullConnection(t *testing.T) {
	h := NewHub()
	conn := h.NewConnection(nil)

	if h.ConnectionCount() != 1 {
		t.Fatalf("expected 1 connection")
	}

	// Fill the send queue without a reader, then overflow it.
	payload := []byte(`{"type":"agent-message"}`)
	for i := 0; i < SendQueueSize; i++ {
		h.Broadcast(payload)
	}
	if h.ConnectionCount() != 1 {
		t.Fatalf("connection dropped before overflow")
	}

	h.Broadcast(payload)
	if h.ConnectionCount() != 0 {
		t.Fatalf("expected full connection to be dropped")
	}

	// Queued messages drain, then the channel is closed.
	received := 0
	for range conn.Send {
		received++
	}
	if received != SendQueueSize {
		t.Fatalf("expected %d queued messages, got %d", SendQueueSize, received)
	}
}

func TestUnregisterIdempotent(t *testing.T) {
	h := NewHub()
	conn := h.NewConnection(nil)

	h.Unregister(conn)
	h.Unregister(conn)

	if h.ConnectionCount() != 0 {
		t.Fatalf("expected no connections")
	}
}

// A client can disconnect (closing its send channel via Unregister) at the
// same moment a delivery goroutine is enqueueing. The enqueue must fail
// cleanly, never panic on the closed channel.
func TestEnqueueConcurrentUnregister(t *testing.T) {
	for i := 0; i < 500; i++ {
		h := NewHub()
		conn := h.NewConnection(nil)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for {
				if err := h.Enqueue(conn, []byte("x")); err == ErrConnectionClosed {
					return
				}
			}
		}()
		go func() {
			defer wg.Done()
			h.Unregister(conn)
		}()
		wg.Wait()

		if err := h.Enqueue(conn, []byte("x")); err != ErrConnectionClosed {
			t.Fatalf("expected ErrConnectionClosed after unregister, got %v", err)
		}
	}
}

func TestEnqueueBufferFull(t *testing.T) {
	h := NewHub()
	conn := h.NewConnection(nil)

	for i := 0; i < SendQueueSize; i++ {
		if err := h.Enqueue(conn, []byte("x")); err != nil {
			t.Fatalf("Enqueue failed at %d: %v", i, err)
		}
	}
	if err := h.Enqueue(conn, []byte("x")); err != ErrBufferFull {
		t.Fatalf("expected ErrBufferFull, got %v", err)
	}
}
