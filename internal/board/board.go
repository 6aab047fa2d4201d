// Package board implements the Board aggregate: columns, task cards and the
// fractional ranking that orders cards within a column.
//
// A Board is not safe for concurrent use. Callers load one, invoke a single
// operation, persist it and publish the drained Events.
package board

import (
	"sort"

	"github.com/google/uuid"
)

var newColumnID = uuid.NewString

var defaultColumns = [...]struct {
	name   string
	status TaskStatus
}{
	{"To Do", StatusTodo},
	{"In Progress", StatusInProgress},
	{"Done", StatusDone},
}

// Board is the aggregate root owning columns and cards.
type Board struct {
	id      string
	ownerID string
	name    string

	columns map[string]*Column
	order   []string // column IDs by position
	cards   map[string]*Card

	events []Event
}

// Snapshot is the persisted shape of a board.
type Snapshot struct {
	ID      string   `json:"id"`
	OwnerID string   `json:"ownerId"`
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
	Cards   []Card   `json:"cards"`
}

// New creates a board with the default To Do, In Progress and Done columns.
func New(id, ownerID, name string) (*Board, error) {
	const op = "new board"
	if id == "" {
		return nil, failf(op, KindInvalidBoard, "", "board id is required")
	}
	if ownerID == "" {
		return nil, failf(op, KindInvalidBoard, id, "owner id is required")
	}
	b := empty(id, ownerID, normalizeName(name))
	b.record(BoardCreated{Board: id, OwnerID: ownerID, Name: b.name})
	for _, def := range defaultColumns {
		col := &Column{
			ID:           newColumnID(),
			Name:         def.name,
			Position:     len(b.order),
			TargetStatus: def.status,
			NextRank:     RankBase,
		}
		b.columns[col.ID] = col
		b.order = append(b.order, col.ID)
		b.record(ColumnAdded{Board: id, ColumnID: col.ID, Name: col.Name, TargetStatus: col.TargetStatus, Position: col.Position})
	}
	return b, nil
}

func empty(id, ownerID, name string) *Board {
	return &Board{
		id:      id,
		ownerID: ownerID,
		name:    name,
		columns: make(map[string]*Column),
		cards:   make(map[string]*Card),
	}
}

// Restore rebuilds a board from its persisted shape. A column whose NextRank
// does not exceed its highest card rank is repaired; every other invariant
// violation is rejected.
func Restore(s Snapshot) (*Board, error) {
	const op = "restore"
	if s.ID == "" || s.OwnerID == "" {
		return nil, failf(op, KindInvalidBoard, s.ID, "board and owner id are required")
	}
	b := empty(s.ID, s.OwnerID, s.Name)

	cols := make([]Column, len(s.Columns))
	copy(cols, s.Columns)
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].Position < cols[j].Position })
	for i, c := range cols {
		if c.ID == "" {
			return nil, failf(op, KindInvalidBoard, s.ID, "column at position %d has no id", c.Position)
		}
		if c.Position != i {
			return nil, failf(op, KindInvalidBoard, c.ID, "column positions are not contiguous")
		}
		if _, dup := b.columns[c.ID]; dup {
			return nil, failf(op, KindInvalidBoard, c.ID, "duplicate column id")
		}
		if b.nameTaken(c.Name, "") {
			return nil, failf(op, KindInvalidBoard, c.ID, "duplicate column name %q", c.Name)
		}
		if !c.TargetStatus.Valid() {
			return nil, failf(op, KindInvalidBoard, c.ID, "unknown status %q", c.TargetStatus)
		}
		if c.MaxTasks != nil && *c.MaxTasks < 0 {
			return nil, failf(op, KindInvalidBoard, c.ID, "negative task limit")
		}
		col := c.clone()
		b.columns[col.ID] = &col
		b.order = append(b.order, col.ID)
	}
	for _, st := range requiredStatuses {
		if b.columnForStatus(st) == nil {
			return nil, failf(op, KindInvalidBoard, s.ID, "no column mapped to %s", st)
		}
	}

	for _, c := range s.Cards {
		if _, dup := b.cards[c.TaskID]; dup || c.TaskID == "" {
			return nil, failf(op, KindInvalidBoard, c.TaskID, "duplicate or empty task id")
		}
		card := c
		b.cards[card.TaskID] = &card
		// cards left behind by RemoveColumn are kept until they are moved or removed
		if col, ok := b.columns[card.ColumnID]; ok && !card.Rank.Less(col.NextRank) {
			col.NextRank = card.Rank.Add(RankStep)
		}
	}
	for _, id := range b.order {
		cards := b.sortedCards(id)
		for i := 1; i < len(cards); i++ {
			if cards[i-1].Rank.Equal(cards[i].Rank) {
				return nil, failf(op, KindInvalidBoard, cards[i].TaskID, "rank %s is not unique in column %s", cards[i].Rank, id)
			}
		}
	}
	return b, nil
}

func (b *Board) ID() string      { return b.id }
func (b *Board) OwnerID() string { return b.ownerID }
func (b *Board) Name() string    { return b.name }

// Snapshot returns a copy of the board: columns by position, cards by column
// position then rank.
func (b *Board) Snapshot() Snapshot {
	s := Snapshot{
		ID:      b.id,
		OwnerID: b.ownerID,
		Name:    b.name,
		Columns: b.Columns(),
		Cards:   make([]Card, 0, len(b.cards)),
	}
	for _, id := range b.order {
		s.Cards = append(s.Cards, b.CardsInColumn(id)...)
	}
	// cards stranded by RemoveColumn keep their column id
	var stranded []Card
	for _, c := range b.cards {
		if _, ok := b.columns[c.ColumnID]; !ok {
			stranded = append(stranded, *c)
		}
	}
	sort.Slice(stranded, func(i, j int) bool { return stranded[i].TaskID < stranded[j].TaskID })
	s.Cards = append(s.Cards, stranded...)
	return s
}

// Events returns the events recorded since the last ClearEvents.
func (b *Board) Events() []Event {
	out := make([]Event, len(b.events))
	copy(out, b.events)
	for i, ev := range out {
		if e, ok := ev.(ColumnRanksRebalanced); ok {
			e.Ranks = append([]CardRank(nil), e.Ranks...)
			out[i] = e
		}
	}
	return out
}

// ClearEvents drops recorded events once they have been published.
func (b *Board) ClearEvents() {
	b.events = nil
}

func (b *Board) record(ev Event) {
	b.events = append(b.events, ev)
}

// Columns returns all columns in position order.
func (b *Board) Columns() []Column {
	out := make([]Column, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.columns[id].clone())
	}
	return out
}

// FindColumn looks a column up by ID.
func (b *Board) FindColumn(id string) (Column, bool) {
	c, ok := b.columns[id]
	if !ok {
		return Column{}, false
	}
	return c.clone(), true
}

// InitialColumn is the first column, by position, mapped to the initial status.
func (b *Board) InitialColumn() (Column, bool) {
	return b.firstForStatus(InitialStatus)
}

// DoneColumn is the first column, by position, mapped to the done status.
func (b *Board) DoneColumn() (Column, bool) {
	return b.firstForStatus(StatusDone)
}

func (b *Board) firstForStatus(st TaskStatus) (Column, bool) {
	c := b.columnForStatus(st)
	if c == nil {
		return Column{}, false
	}
	return c.clone(), true
}

func (b *Board) columnForStatus(st TaskStatus) *Column {
	for _, id := range b.order {
		if c := b.columns[id]; c.TargetStatus == st {
			return c
		}
	}
	return nil
}

// CardCountInColumn returns the number of cards in a column.
func (b *Board) CardCountInColumn(columnID string) int {
	n := 0
	for _, c := range b.cards {
		if c.ColumnID == columnID {
			n++
		}
	}
	return n
}

// ColumnAtCapacity reports whether a capped column holds MaxTasks or more cards.
func (b *Board) ColumnAtCapacity(columnID string) bool {
	c, ok := b.columns[columnID]
	if !ok || c.MaxTasks == nil {
		return false
	}
	return b.CardCountInColumn(columnID) >= *c.MaxTasks
}

// FindCard looks a card up by task ID.
func (b *Board) FindCard(taskID string) (Card, bool) {
	c, ok := b.cards[taskID]
	if !ok {
		return Card{}, false
	}
	return *c, true
}

// CardsInColumn returns a column's cards in display (ascending rank) order.
func (b *Board) CardsInColumn(columnID string) []Card {
	sorted := b.sortedCards(columnID)
	out := make([]Card, len(sorted))
	for i, c := range sorted {
		out[i] = *c
	}
	return out
}

// Cards returns every card, ordered by task ID.
func (b *Board) Cards() []Card {
	out := make([]Card, 0, len(b.cards))
	for _, c := range b.cards {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaskID < out[j].TaskID })
	return out
}

func (b *Board) sortedCards(columnID string) []*Card {
	var out []*Card
	for _, c := range b.cards {
		if c.ColumnID == columnID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if cmp := out[i].Rank.Cmp(out[j].Rank); cmp != 0 {
			return cmp < 0
		}
		return out[i].TaskID < out[j].TaskID
	})
	return out
}

func (b *Board) nameTaken(name, exceptID string) bool {
	for id, c := range b.columns {
		if id != exceptID && sameName(c.Name, name) {
			return true
		}
	}
	return false
}

func (b *Board) reindex() {
	for i, id := range b.order {
		b.columns[id].Position = i
	}
}
