package domain

import (
	"encoding/json"

	"github.com/bytedance/sonic"

	"prism-board/internal/board"
)

// Event represents a change in the domain model as published on the events queue.
type Event struct {
	ID         string          `json:"Id"`
	EntityID   string          `json:"EntityId"`
	EntityType string          `json:"EntityType"`
	Type       string          `json:"Type"`
	Data       json.RawMessage `json:"Data"`
	Timestamp  int64           `json:"Timestamp"`
	UserID     string          `json:"UserId"`
}

// NewEvent wraps a board event for publishing. ID is left for the caller.
func NewEvent(ev board.Event, userID string, ts int64) (Event, error) {
	data, err := sonic.Marshal(ev)
	if err != nil {
		return Event{}, err
	}
	return Event{
		EntityID:   ev.AggregateID(),
		EntityType: EntityBoard,
		Type:       ev.EventType(),
		Data:       data,
		Timestamp:  ts,
		UserID:     userID,
	}, nil
}
