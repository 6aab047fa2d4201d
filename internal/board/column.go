package board

import "strings"

// Column is a named slot on a board. Values returned by Board are copies.
type Column struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Position     int        `json:"position"`
	TargetStatus TaskStatus `json:"targetStatus"`
	MaxTasks     *int       `json:"maxTasks,omitempty"`
	NextRank     Rank       `json:"nextRank"`
}

// Card binds a task to a column at a rank.
type Card struct {
	TaskID   string `json:"taskId"`
	ColumnID string `json:"columnId"`
	Rank     Rank   `json:"rank"`
}

func (c Column) clone() Column {
	if c.MaxTasks != nil {
		v := *c.MaxTasks
		c.MaxTasks = &v
	}
	return c
}

// advance hands out the column's next append rank.
func (c *Column) advance() Rank {
	r := c.NextRank
	c.NextRank = c.NextRank.Add(RankStep)
	return r
}

func normalizeName(name string) string {
	return strings.TrimSpace(name)
}

func sameName(a, b string) bool {
	return strings.EqualFold(normalizeName(a), normalizeName(b))
}
