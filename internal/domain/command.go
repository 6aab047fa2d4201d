package domain

import "github.com/bytedance/sonic"

// EntityBoard is the only entity type handled by the board service.
const EntityBoard = "board"

// Board command types.
const (
	CommandCreateBoard    = "board-create"
	CommandAddColumn      = "column-add"
	CommandRemoveColumn   = "column-remove"
	CommandReorderColumn  = "column-reorder"
	CommandRenameColumn   = "column-rename"
	CommandSetColumnLimit = "column-set-limit"
	CommandPlaceTask      = "task-place"
	CommandMoveCard       = "card-move"
	CommandRemoveCard     = "card-remove"
)

// Command represents a write request for the domain model.
type Command struct {
	// ID carries the idempotency key when enqueued to the board service queue.
	ID             string                 `json:"id,omitempty"`
	IdempotencyKey string                 `json:"idempotencyKey"`
	EntityType     string                 `json:"entityType"`
	EntityID       string                 `json:"entityId"`
	Type           string                 `json:"type"`
	Data           sonic.NoCopyRawMessage `json:"data,omitempty"`
	Timestamp      int64                  `json:"timestamp"`
}

// CommandEnvelope wraps a command with the user performing it.
type CommandEnvelope struct {
	UserID  string  `json:"userId"`
	Command Command `json:"command"`
}

type CreateBoardData struct {
	Name string `json:"name"`
}

type AddColumnData struct {
	Name         string `json:"name"`
	TargetStatus string `json:"targetStatus"`
	Position     *int   `json:"position,omitempty"`
}

type RemoveColumnData struct {
	ColumnID string `json:"columnId"`
}

type ReorderColumnData struct {
	ColumnID string `json:"columnId"`
	Position int    `json:"position"`
}

type RenameColumnData struct {
	ColumnID string `json:"columnId"`
	Name     string `json:"name"`
}

type SetColumnLimitData struct {
	ColumnID string `json:"columnId"`
	MaxTasks *int   `json:"maxTasks"`
}

// PlaceTaskData places a task; an empty ColumnID selects the initial column.
type PlaceTaskData struct {
	TaskID   string `json:"taskId"`
	ColumnID string `json:"columnId,omitempty"`
}

type MoveCardData struct {
	TaskID         string `json:"taskId"`
	ColumnID       string `json:"columnId"`
	PreviousTaskID string `json:"previousTaskId,omitempty"`
	NextTaskID     string `json:"nextTaskId,omitempty"`
}

type RemoveCardData struct {
	TaskID string `json:"taskId"`
}

// KnownCommand reports whether t is a board command type.
func KnownCommand(t string) bool {
	switch t {
	case CommandCreateBoard, CommandAddColumn, CommandRemoveColumn, CommandReorderColumn,
		CommandRenameColumn, CommandSetColumnLimit, CommandPlaceTask, CommandMoveCard, CommandRemoveCard:
		return true
	}
	return false
}
