package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestClient(topics ...string) *Client {
	return &Client{ID: "test", Topics: topics, Send: make(chan []byte, 8)}
}

func TestHub_RegisterAndBroadcast(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newTestClient(StationTopic("cab-101"))
	hub.Register(client)

	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}

	hub.Broadcast(Event{
		Topic:     StationTopic("cab-101"),
		Action:    "call",
		Station:   "cab-101",
		Timestamp: time.Now(),
	})

	select {
	case data := <-client.Send:
		var evt Event
		if err := json.Unmarshal(data, &evt); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		if evt.Action != "call" || evt.Station != "cab-101" {
			t.Errorf("unexpected event: %+v", evt)
		}
	default:
		t.Fatal("expected event on client channel")
	}
}

func TestHub_BroadcastOnlyToTopic(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	a := newTestClient(StationTopic("cab-101"))
	b := newTestClient(StationTopic("cab-202"))
	hub.Register(a)
	hub.Register(b)

	hub.Broadcast(Event{Topic: StationTopic("cab-101"), Action: "complete", Station: "cab-101"})

	if len(a.Send) != 1 {
		t.Errorf("expected subscribed client to receive event, got %d", len(a.Send))
	}
	if len(b.Send) != 0 {
		t.Errorf("expected other station's client to receive nothing, got %d", len(b.Send))
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newTestClient(StationTopic("cab-101"))
	hub.Register(client)
	hub.Unregister(client)

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.ClientCount())
	}
	if hub.TopicCount(StationTopic("cab-101")) != 0 {
		t.Errorf("expected topic cleaned up")
	}

	// Send channel must be closed.
	if _, open := <-client.Send; open {
		t.Error("expected Send channel to be closed")
	}
}

func TestHub_SubscribeUnsubscribe(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newTestClient()
	hub.Register(client)

	hub.ProcessMessage(client, ClientMessage{Action: "subscribe", Topics: []string{StationTopic("lab")}})
	if hub.TopicCount(StationTopic("lab")) != 1 {
		t.Fatalf("expected subscription to lab")
	}

	hub.ProcessMessage(client, ClientMessage{Action: "unsubscribe", Topics: []string{StationTopic("lab")}})
	if hub.TopicCount(StationTopic("lab")) != 0 {
		t.Fatalf("expected unsubscription from lab")
	}
}

func TestHub_FullBufferDoesNotBlock(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := &Client{ID: "slow", Topics: []string{StationTopic("cab-1")}, Send: make(chan []byte)}
	hub.Register(client)

	done := make(chan struct{})
	go func() {
		hub.Broadcast(Event{Topic: StationTopic("cab-1"), Action: "call"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on a client with a full buffer")
	}
}

func TestHub_PublishImplementsPublisher(t *testing.T) {
	var p Publisher = NewHub(zerolog.Nop())
	if err := p.Publish(context.Background(), Event{Topic: "queue:x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
