package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// Reasons carried by SnapshotChangedMessage.
const (
	ReasonMutation = "mutation"
	ReasonUpload   = "upload"
	ReasonReset    = "reset"
)

// SnapshotChangedMessage announces that a user's ledger document was rewritten.
// It carries no ledger data: consumers read the current snapshot from storage.
type SnapshotChangedMessage struct {
	UserID    string    `json:"user_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSnapshotChangedMessage(userID, reason string) *SnapshotChangedMessage {
	return &SnapshotChangedMessage{
		UserID:    userID,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

func (m *SnapshotChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SnapshotChangedMessageFromJSON decodes a message and rejects one without a user.
func SnapshotChangedMessageFromJSON(data []byte) (*SnapshotChangedMessage, error) {
	var msg SnapshotChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" {
		return nil, errors.New("message without user_id")
	}
	return &msg, nil
}
