package board

// Event type names, as carried in published event envelopes.
const (
	EventBoardCreated          = "board-created"
	EventColumnAdded           = "column-added"
	EventColumnRemoved         = "column-removed"
	EventColumnReordered       = "column-reordered"
	EventColumnRenamed         = "column-renamed"
	EventColumnLimitChanged    = "column-limit-changed"
	EventCardPlaced            = "card-placed"
	EventCardMoved             = "card-moved"
	EventCardRemoved           = "card-removed"
	EventColumnRanksRebalanced = "column-ranks-rebalanced"
)

// Event is an immutable fact recorded by a successful board operation.
type Event interface {
	EventType() string
	AggregateID() string
}

type BoardCreated struct {
	Board   string `json:"boardId"`
	OwnerID string `json:"ownerId"`
	Name    string `json:"name"`
}

type ColumnAdded struct {
	Board        string     `json:"boardId"`
	ColumnID     string     `json:"columnId"`
	Name         string     `json:"name"`
	TargetStatus TaskStatus `json:"targetStatus"`
	Position     int        `json:"position"`
}

type ColumnRemoved struct {
	Board    string `json:"boardId"`
	ColumnID string `json:"columnId"`
	Name     string `json:"name"`
}

type ColumnReordered struct {
	Board       string `json:"boardId"`
	ColumnID    string `json:"columnId"`
	OldPosition int    `json:"oldPosition"`
	NewPosition int    `json:"newPosition"`
}

type ColumnRenamed struct {
	Board    string `json:"boardId"`
	ColumnID string `json:"columnId"`
	OldName  string `json:"oldName"`
	NewName  string `json:"newName"`
}

type ColumnLimitChanged struct {
	Board    string `json:"boardId"`
	ColumnID string `json:"columnId"`
	MaxTasks *int   `json:"maxTasks,omitempty"`
}

type CardPlaced struct {
	Board    string `json:"boardId"`
	TaskID   string `json:"taskId"`
	ColumnID string `json:"columnId"`
	Rank     Rank   `json:"rank"`
}

type CardMoved struct {
	Board        string `json:"boardId"`
	TaskID       string `json:"taskId"`
	FromColumnID string `json:"fromColumnId"`
	ToColumnID   string `json:"toColumnId"`
	Rank         Rank   `json:"rank"`
}

type CardRemoved struct {
	Board    string `json:"boardId"`
	TaskID   string `json:"taskId"`
	ColumnID string `json:"columnId"`
}

// CardRank pairs a task with its rank.
type CardRank struct {
	TaskID string `json:"taskId"`
	Rank   Rank   `json:"rank"`
}

// ColumnRanksRebalanced lists every card of a renumbered column in display order.
type ColumnRanksRebalanced struct {
	Board    string     `json:"boardId"`
	ColumnID string     `json:"columnId"`
	Ranks    []CardRank `json:"ranks"`
	NextRank Rank       `json:"nextRank"`
}

func (BoardCreated) EventType() string          { return EventBoardCreated }
func (ColumnAdded) EventType() string           { return EventColumnAdded }
func (ColumnRemoved) EventType() string         { return EventColumnRemoved }
func (ColumnReordered) EventType() string       { return EventColumnReordered }
func (ColumnRenamed) EventType() string         { return EventColumnRenamed }
func (ColumnLimitChanged) EventType() string    { return EventColumnLimitChanged }
func (CardPlaced) EventType() string            { return EventCardPlaced }
func (CardMoved) EventType() string             { return EventCardMoved }
func (CardRemoved) EventType() string           { return EventCardRemoved }
func (ColumnRanksRebalanced) EventType() string { return EventColumnRanksRebalanced }

func (e BoardCreated) AggregateID() string          { return e.Board }
func (e ColumnAdded) AggregateID() string           { return e.Board }
func (e ColumnRemoved) AggregateID() string         { return e.Board }
func (e ColumnReordered) AggregateID() string       { return e.Board }
func (e ColumnRenamed) AggregateID() string         { return e.Board }
func (e ColumnLimitChanged) AggregateID() string    { return e.Board }
func (e CardPlaced) AggregateID() string            { return e.Board }
func (e CardMoved) AggregateID() string             { return e.Board }
func (e CardRemoved) AggregateID() string           { return e.Board }
func (e ColumnRanksRebalanced) AggregateID() string { return e.Board }
