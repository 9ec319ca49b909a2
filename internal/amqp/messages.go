package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Action says what happened to the transaction an event refers to.
type Action string

const (
	ActionUpsert  Action = "upsert"
	ActionDelete  Action = "delete"
	ActionRestore Action = "restore"
)

func (a Action) Valid() bool {
	return a == ActionUpsert || a == ActionDelete || a == ActionRestore
}

// TransactionEvent is a lightweight change notification. It only carries
// the id; consumers read the current record from the database.
type TransactionEvent struct {
	ID        int64     `json:"id"`
	Action    Action    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionEvent(id int64, action Action) *TransactionEvent {
	return &TransactionEvent{
		ID:        id,
		Action:    action,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventFromJSON decodes an event and rejects unknown actions.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var msg TransactionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Action.Valid() {
		return nil, fmt.Errorf("unknown action %q", msg.Action)
	}
	return &msg, nil
}
