package events

import (
	"encoding/json"
	"testing"
	"time"
)

func newTestClient(id string) *Client {
	return &Client{ID: id, send: make(chan []byte, 8)}
}

func recvFrame(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case frame, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed unexpectedly")
		}
		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			t.Fatalf("unmarshal frame: %v", err)
		}
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event frame")
	}
	return Envelope{}
}

func TestPublishReachesSubscribers(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := newTestClient("dash_test_1")
	hub.register <- client

	hub.Publish("sample.registered", map[string]string{"code": "SMP-1"})

	env := recvFrame(t, client)
	if env.Type != "sample.registered" {
		t.Errorf("frame type = %q, want sample.registered", env.Type)
	}
	if env.At.IsZero() {
		t.Error("frame timestamp not set")
	}
}

func TestUnregisterOnlyRemovesOwnConnection(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := newTestClient("dash_test_2")
	hub.register <- client

	// A stale unregister carrying the same ID but a different
	// connection must not evict or close the live one.
	stale := newTestClient("dash_test_2")
	hub.unregister <- stale

	hub.Publish("custody.appended", nil)
	env := recvFrame(t, client)
	if env.Type != "custody.appended" {
		t.Errorf("frame type = %q, want custody.appended", env.Type)
	}

	// Unregistering the live connection closes its channel
	hub.unregister <- client
	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("expected closed send channel after unregister")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for send channel close")
	}
}
