package hub

import (
	"encoding/json"
	"testing"
	"time"

	customlog "github.com/sharminesan/tb-backend/pkg/log"
)

type testLogger struct{}

func (testLogger) Debugf(string, ...interface{}) {}
func (testLogger) Infof(string, ...interface{})  {}
func (testLogger) Warnf(string, ...interface{})  {}
func (testLogger) Errorf(string, ...interface{}) {}
func (testLogger) Fatalf(string, ...interface{}) {}
func (l testLogger) WithField(string, interface{}) customlog.Logger {
	return l
}

var testLog customlog.Logger = testLogger{}

func TestHubBroadcastDeliversToRegisteredClient(t *testing.T) {
	h := NewHub(testLog)
	go h.Run()
	defer h.Stop()

	client := NewClient(h, nil, testLog)
	h.Register(client)

	if err := h.BroadcastJSON(map[string]interface{}{"event": "movement_update"}); err != nil {
		t.Fatalf("Expected broadcast to succeed, got %v", err)
	}

	select {
	case msg := <-client.send:
		var decoded map[string]interface{}
		if err := json.Unmarshal(msg, &decoded); err != nil {
			t.Fatalf("Expected a JSON payload, got %v", err)
		}
		if decoded["event"] != "movement_update" {
			t.Errorf("Expected event movement_update, got %v", decoded["event"])
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for broadcast delivery")
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	h := NewHub(testLog)
	go h.Run()
	defer h.Stop()

	slow := NewClient(h, nil, testLog)
	h.Register(slow)

	// Fill the outbound queue so the next fan-out cannot enqueue.
	for i := 0; i < sendBuffer; i++ {
		slow.send <- []byte("backlog")
	}
	h.Broadcast([]byte("overflow"))

	// Let the fan-out hit the full queue before draining frees a slot.
	time.Sleep(100 * time.Millisecond)

	deadline := time.After(time.Second)
	drained := 0
	for {
		select {
		case _, ok := <-slow.send:
			if !ok {
				if drained != sendBuffer {
					t.Errorf("Expected %d queued messages before the close, got %d", sendBuffer, drained)
				}
				return
			}
			drained++
		case <-deadline:
			t.Fatal("Timed out waiting for the slow client to be dropped")
		}
	}
}

func TestHubUnregisterClosesSend(t *testing.T) {
	h := NewHub(testLog)
	go h.Run()
	defer h.Stop()

	client := NewClient(h, nil, testLog)
	h.Register(client)
	h.Unregister(client)

	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("Expected no message on an unregistered client")
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for the send channel to close")
	}
}

func TestHubStopDisconnectsClients(t *testing.T) {
	h := NewHub(testLog)
	go h.Run()

	client := NewClient(h, nil, testLog)
	h.Register(client)
	h.Stop()

	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("Expected no message after hub stop")
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for stop to disconnect the client")
	}
}

func TestBroadcastJSONRejectsUnmarshalableValue(t *testing.T) {
	h := NewHub(testLog)
	if err := h.BroadcastJSON(func() {}); err == nil {
		t.Error("Expected an error for a value JSON cannot encode")
	}
}
