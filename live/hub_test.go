package live

import (
	"encoding/json"
	"testing"
	"time"

	"tablematch/models"
)

func TestHubRegisterBroadcastUnregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	client := &Client{
		Send:      make(chan []byte, 10),
		SessionID: "ABC123",
	}

	hub.register <- client

	event := models.ChangeEvent{SessionID: "ABC123", Topic: models.TopicPreferenceChanged, From: "alice"}
	hub.Notify(event)

	select {
	case got := <-client.Send:
		var decoded models.ChangeEvent
		if err := json.Unmarshal(got, &decoded); err != nil {
			t.Fatalf("broadcast payload not JSON: %v", err)
		}
		if decoded.Topic != models.TopicPreferenceChanged || decoded.From != "alice" {
			t.Fatalf("got event %+v", decoded)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for broadcast")
	}

	hub.unregister <- client
}

func TestHubRoomsAreIsolated(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	inRoom := &Client{Send: make(chan []byte, 10), SessionID: "S1"}
	elsewhere := &Client{Send: make(chan []byte, 10), SessionID: "S2"}
	hub.register <- inRoom
	hub.register <- elsewhere

	hub.Notify(models.ChangeEvent{SessionID: "S1", Topic: models.TopicMembershipChanged})

	select {
	case <-inRoom.Send:
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for in-room broadcast")
	}
	select {
	case msg := <-elsewhere.Send:
		t.Fatalf("client in another session received %s", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStoppedHubNeverBlocksClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := &Client{Send: make(chan []byte, 10), SessionID: "S1"}
	if !hub.add(client) {
		t.Fatal("add before stop must succeed")
	}

	hub.Stop()

	done := make(chan struct{})
	go func() {
		hub.drop(client)
		hub.Notify(models.ChangeEvent{SessionID: "S1", Topic: models.TopicResultsChanged})
		if hub.add(&Client{Send: make(chan []byte, 1), SessionID: "S1"}) {
			t.Error("add after stop must report failure")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("hub call blocked after Stop")
	}
}
