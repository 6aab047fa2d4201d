package storage

import (
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/bytedance/sonic"

	"prism-board/internal/board"
)

// Row keys inside a board partition.
const (
	headerRowKey = "board"
	columnPrefix = "col:"
	cardPrefix   = "card:"
)

const EdmInt64 = "Edm.Int64"

// Entity represents base table entity keys.
type Entity struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
}

type headerEntity struct {
	Entity
	OwnerID      string `json:"OwnerId"`
	Name         string `json:"Name"`
	Revision     int64  `json:"Revision,string"`
	RevisionType string `json:"Revision@odata.type"`
}

type columnEntity struct {
	Entity
	ColumnID     string     `json:"ColumnId"`
	Name         string     `json:"Name"`
	Position     int        `json:"Position"`
	TargetStatus string     `json:"TargetStatus"`
	MaxTasks     *int       `json:"MaxTasks,omitempty"`
	NextRank     board.Rank `json:"NextRank"`
}

type cardEntity struct {
	Entity
	TaskID   string     `json:"TaskId"`
	ColumnID string     `json:"ColumnId"`
	Rank     board.Rank `json:"Rank"`
}

// rowMeta is decoded first to route a listed entity by its row key.
type rowMeta struct {
	RowKey string `json:"RowKey"`
	ETag   string `json:"odata.etag"`
}

// Version identifies the persisted state a board was loaded from.
type Version struct {
	ETag     azcore.ETag
	revision int64
	rows     map[string]string
}

// IsNew reports whether the version belongs to a board never saved.
func (v Version) IsNew() bool { return v.ETag == "" }

// Revision is the number of successful saves behind this version.
func (v Version) Revision() int64 { return v.revision }

func encodeKeys(pk, rk string) ([]byte, error) {
	return sonic.Marshal(Entity{PartitionKey: pk, RowKey: rk})
}

func columnRowKey(id string) string { return columnPrefix + id }
func cardRowKey(taskID string) string { return cardPrefix + taskID }

// encodeBoard renders every row of a board partition keyed by row key.
func encodeBoard(s board.Snapshot, revision int64) (map[string]string, error) {
	rows := make(map[string]string, 1+len(s.Columns)+len(s.Cards))
	put := func(rk string, v any) error {
		data, err := sonic.MarshalString(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", rk, err)
		}
		rows[rk] = data
		return nil
	}

	if err := put(headerRowKey, headerEntity{
		Entity:       Entity{PartitionKey: s.ID, RowKey: headerRowKey},
		OwnerID:      s.OwnerID,
		Name:         s.Name,
		Revision:     revision,
		RevisionType: EdmInt64,
	}); err != nil {
		return nil, err
	}
	for _, c := range s.Columns {
		rk := columnRowKey(c.ID)
		if err := put(rk, columnEntity{
			Entity:       Entity{PartitionKey: s.ID, RowKey: rk},
			ColumnID:     c.ID,
			Name:         c.Name,
			Position:     c.Position,
			TargetStatus: string(c.TargetStatus),
			MaxTasks:     c.MaxTasks,
			NextRank:     c.NextRank,
		}); err != nil {
			return nil, err
		}
	}
	for _, c := range s.Cards {
		rk := cardRowKey(c.TaskID)
		if err := put(rk, cardEntity{
			Entity:   Entity{PartitionKey: s.ID, RowKey: rk},
			TaskID:   c.TaskID,
			ColumnID: c.ColumnID,
			Rank:     c.Rank,
		}); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// decodeBoard rebuilds a snapshot from the listed entities of a partition.
// The returned version remembers the re-encoded rows so Save can skip
// unchanged ones.
func decodeBoard(boardID string, entities [][]byte) (board.Snapshot, Version, error) {
	var (
		snap      = board.Snapshot{ID: boardID}
		v         = Version{rows: make(map[string]string, len(entities))}
		hasHeader bool
	)
	for _, raw := range entities {
		var meta rowMeta
		if err := sonic.Unmarshal(raw, &meta); err != nil {
			return board.Snapshot{}, Version{}, fmt.Errorf("decode row: %w", err)
		}
		switch {
		case meta.RowKey == headerRowKey:
			var h headerEntity
			if err := sonic.Unmarshal(raw, &h); err != nil {
				return board.Snapshot{}, Version{}, fmt.Errorf("decode header: %w", err)
			}
			snap.OwnerID = h.OwnerID
			snap.Name = h.Name
			v.ETag = azcore.ETag(meta.ETag)
			v.revision = h.Revision
			hasHeader = true
		case strings.HasPrefix(meta.RowKey, columnPrefix):
			var c columnEntity
			if err := sonic.Unmarshal(raw, &c); err != nil {
				return board.Snapshot{}, Version{}, fmt.Errorf("decode %s: %w", meta.RowKey, err)
			}
			snap.Columns = append(snap.Columns, board.Column{
				ID:           c.ColumnID,
				Name:         c.Name,
				Position:     c.Position,
				TargetStatus: board.TaskStatus(c.TargetStatus),
				MaxTasks:     c.MaxTasks,
				NextRank:     c.NextRank,
			})
		case strings.HasPrefix(meta.RowKey, cardPrefix):
			var c cardEntity
			if err := sonic.Unmarshal(raw, &c); err != nil {
				return board.Snapshot{}, Version{}, fmt.Errorf("decode %s: %w", meta.RowKey, err)
			}
			snap.Cards = append(snap.Cards, board.Card{TaskID: c.TaskID, ColumnID: c.ColumnID, Rank: c.Rank})
		default:
			continue
		}
		v.rows[meta.RowKey] = ""
	}
	if !hasHeader {
		return board.Snapshot{}, Version{}, ErrBoardNotFound
	}

	rows, err := encodeBoard(snap, v.revision)
	if err != nil {
		return board.Snapshot{}, Version{}, err
	}
	for rk := range v.rows {
		v.rows[rk] = rows[rk]
	}
	return snap, v, nil
}
