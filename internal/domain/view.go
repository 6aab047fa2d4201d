package domain

import "prism-board/internal/board"

// BoardView is the read shape of a board served by the API and cache.
type BoardView struct {
	ID       string       `json:"id"`
	OwnerID  string       `json:"ownerId"`
	Name     string       `json:"name"`
	Columns  []ColumnView `json:"columns"`
	Stranded []CardView   `json:"stranded,omitempty"`
}

type ColumnView struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Position     int        `json:"position"`
	TargetStatus string     `json:"targetStatus"`
	MaxTasks     *int       `json:"maxTasks,omitempty"`
	AtCapacity   bool       `json:"atCapacity,omitempty"`
	Cards        []CardView `json:"cards"`
}

type CardView struct {
	TaskID string     `json:"taskId"`
	Rank   board.Rank `json:"rank"`
}

// NewBoardView groups the cards of a snapshot under their columns in rank
// order. Cards whose column no longer exists are listed as stranded.
func NewBoardView(s board.Snapshot) BoardView {
	v := BoardView{ID: s.ID, OwnerID: s.OwnerID, Name: s.Name, Columns: make([]ColumnView, 0, len(s.Columns))}
	index := make(map[string]int, len(s.Columns))
	for i, c := range s.Columns {
		index[c.ID] = i
		v.Columns = append(v.Columns, ColumnView{
			ID:           c.ID,
			Name:         c.Name,
			Position:     c.Position,
			TargetStatus: string(c.TargetStatus),
			MaxTasks:     c.MaxTasks,
			Cards:        []CardView{},
		})
	}
	// Snapshot cards are already ordered by column and rank.
	for _, c := range s.Cards {
		cv := CardView{TaskID: c.TaskID, Rank: c.Rank}
		i, ok := index[c.ColumnID]
		if !ok {
			v.Stranded = append(v.Stranded, cv)
			continue
		}
		v.Columns[i].Cards = append(v.Columns[i].Cards, cv)
	}
	for i := range v.Columns {
		if m := v.Columns[i].MaxTasks; m != nil && len(v.Columns[i].Cards) >= *m {
			v.Columns[i].AtCapacity = true
		}
	}
	return v
}
