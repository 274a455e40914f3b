package amqp

import (
	"encoding/json"
	"time"
)

// Archive event actions.
const (
	ActionArchived  = "archived"
	ActionPurged    = "purged"
	ActionPurgedAll = "purged_all"
)

// ArchiveEventMessage announces a change to a user's archive so the
// retention worker can schedule a prompt sweep. It carries only identifiers;
// the worker reads the archive itself from the store.
type ArchiveEventMessage struct {
	Action    string    `json:"action"`
	User      string    `json:"user"`
	ID        int64     `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewArchiveEventMessage(action, user string, id int64) *ArchiveEventMessage {
	return &ArchiveEventMessage{
		Action:    action,
		User:      user,
		ID:        id,
		Timestamp: time.Now(),
	}
}

func (m *ArchiveEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ArchiveEventMessageFromJSON(data []byte) (*ArchiveEventMessage, error) {
	var msg ArchiveEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
