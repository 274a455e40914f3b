package amqp

import (
	"testing"
	"time"
)

func TestNewArchiveEventMessage(t *testing.T) {
	msg := NewArchiveEventMessage(ActionArchived, "mica", 12345)

	if msg.Action != ActionArchived || msg.User != "mica" || msg.ID != 12345 {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.Timestamp.IsZero() || time.Since(msg.Timestamp) > time.Second {
		t.Fatalf("timestamp not recent: %v", msg.Timestamp)
	}
}

func TestArchiveEventMessageJSON(t *testing.T) {
	msg := &ArchiveEventMessage{
		Action:    ActionPurged,
		User:      "mica",
		ID:        42,
		Timestamp: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	parsed, err := ArchiveEventMessageFromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if parsed.Action != msg.Action || parsed.User != msg.User || parsed.ID != msg.ID {
		t.Fatalf("round trip mismatch: %+v", parsed)
	}
	if !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Fatalf("timestamp mismatch: %v", parsed.Timestamp)
	}
}

func TestArchiveEventMessageInvalidJSON(t *testing.T) {
	if _, err := ArchiveEventMessageFromJSON([]byte(`{"id": "nope"}`)); err == nil {
		t.Fatal("expected error for invalid payload")
	}
}

func TestPurgedAllOmitsID(t *testing.T) {
	msg := NewArchiveEventMessage(ActionPurgedAll, "mica", 0)
	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	if string(data) == "" || containsSubstring(string(data), `"id"`) {
		t.Fatalf("id should be omitted when zero: %s", data)
	}
}

func containsSubstring(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
