package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"prism-board/internal/board"
)

// maxTransactionActions is the Azure Tables limit for one batch.
const maxTransactionActions = 100

// BoardStore persists boards in a single table, one partition per board.
type BoardStore struct {
	table *aztables.Client
}

func NewBoardStore(table *aztables.Client) *BoardStore {
	return &BoardStore{table: table}
}

// Load reads every row of the board partition and restores the aggregate.
func (s *BoardStore) Load(ctx context.Context, boardID string) (*board.Board, Version, error) {
	filter := "PartitionKey eq '" + strings.ReplaceAll(boardID, "'", "''") + "'"
	pager := s.table.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	var entities [][]byte
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, Version{}, err
		}
		entities = append(entities, resp.Entities...)
	}
	if len(entities) == 0 {
		return nil, Version{}, ErrBoardNotFound
	}

	snap, v, err := decodeBoard(boardID, entities)
	if err != nil {
		return nil, Version{}, err
	}
	b, err := board.Restore(snap)
	if err != nil {
		return nil, Version{}, fmt.Errorf("restore board %s: %w", boardID, err)
	}
	return b, v, nil
}

// Save writes the board in one transaction guarded by the header ETag of v.
// Rows that are unchanged since Load are skipped. Rows that disappeared are
// deleted.
func (s *BoardStore) Save(ctx context.Context, b *board.Board, v Version) error {
	actions, err := saveActions(b.Snapshot(), v)
	if err != nil {
		return err
	}
	if _, err := s.table.SubmitTransaction(ctx, actions, nil); err != nil {
		return classifySave(err)
	}
	return nil
}

// saveActions plans the transaction for a snapshot relative to its loaded
// version. The header row is always written so its ETag guards the commit.
func saveActions(snap board.Snapshot, v Version) ([]aztables.TransactionAction, error) {
	rows, err := encodeBoard(snap, v.revision+1)
	if err != nil {
		return nil, err
	}

	header := aztables.TransactionAction{Entity: []byte(rows[headerRowKey])}
	if v.IsNew() {
		header.ActionType = aztables.TransactionTypeAdd
	} else {
		etag := v.ETag
		header.ActionType = aztables.TransactionTypeUpdateReplace
		header.IfMatch = &etag
	}
	actions := []aztables.TransactionAction{header}

	keys := make([]string, 0, len(rows))
	for rk := range rows {
		if rk != headerRowKey {
			keys = append(keys, rk)
		}
	}
	sort.Strings(keys)
	for _, rk := range keys {
		if prev, ok := v.rows[rk]; ok && prev == rows[rk] {
			continue
		}
		actions = append(actions, aztables.TransactionAction{
			ActionType: aztables.TransactionTypeInsertReplace,
			Entity:     []byte(rows[rk]),
		})
	}

	var gone []string
	for rk := range v.rows {
		if _, ok := rows[rk]; !ok {
			gone = append(gone, rk)
		}
	}
	sort.Strings(gone)
	for _, rk := range gone {
		payload, err := encodeKeys(snap.ID, rk)
		if err != nil {
			return nil, err
		}
		et := azcore.ETagAny
		actions = append(actions, aztables.TransactionAction{
			ActionType: aztables.TransactionTypeDelete,
			Entity:     payload,
			IfMatch:    &et,
		})
	}

	if len(actions) > maxTransactionActions {
		return nil, fmt.Errorf("board %s needs %d actions: %w", snap.ID, len(actions), ErrBoardTooLarge)
	}
	return actions, nil
}
