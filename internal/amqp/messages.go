package amqp

import (
	"encoding/json"
	"time"
)

// Event actions published on expense mutations.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// ExpenseEvent is a lightweight notification that an expense changed.
// It carries only the id and owner; consumers fetch the row themselves.
type ExpenseEvent struct {
	ID        int64     `json:"id"`
	Owner     string    `json:"owner"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseEvent(id int64, owner, action string) *ExpenseEvent {
	return &ExpenseEvent{
		ID:        id,
		Owner:     owner,
		Action:    action,
		Timestamp: time.Now(),
	}
}

func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
