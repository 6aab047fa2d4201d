package service

import (
	"github.com/bytedance/sonic"

	"prism-board/internal/board"
	"prism-board/internal/domain"
)

// apply runs exactly one board operation for cmd.
func apply(b *board.Board, cmd domain.Command) error {
	switch cmd.Type {
	case domain.CommandAddColumn:
		var d domain.AddColumnData
		if err := decode(cmd, &d); err != nil {
			return err
		}
		_, err := b.AddColumn(d.Name, board.TaskStatus(d.TargetStatus), d.Position)
		return fromBoard(err)
	case domain.CommandRemoveColumn:
		var d domain.RemoveColumnData
		if err := decode(cmd, &d); err != nil {
			return err
		}
		return fromBoard(b.RemoveColumn(d.ColumnID))
	case domain.CommandReorderColumn:
		var d domain.ReorderColumnData
		if err := decode(cmd, &d); err != nil {
			return err
		}
		return fromBoard(b.ReorderColumn(d.ColumnID, d.Position))
	case domain.CommandRenameColumn:
		var d domain.RenameColumnData
		if err := decode(cmd, &d); err != nil {
			return err
		}
		return fromBoard(b.RenameColumn(d.ColumnID, d.Name))
	case domain.CommandSetColumnLimit:
		var d domain.SetColumnLimitData
		if err := decode(cmd, &d); err != nil {
			return err
		}
		return fromBoard(b.SetColumnLimit(d.ColumnID, d.MaxTasks))
	case domain.CommandPlaceTask:
		var d domain.PlaceTaskData
		if err := decode(cmd, &d); err != nil {
			return err
		}
		if d.TaskID == "" {
			return rejectf(ReasonInvalidCommand, "task id is required")
		}
		columnID := d.ColumnID
		if columnID == "" {
			c, ok := b.InitialColumn()
			if !ok {
				return rejectf(string(board.KindColumnNotFound), "board %s has no initial column", b.ID())
			}
			columnID = c.ID
		}
		_, err := b.PlaceTask(d.TaskID, columnID)
		return fromBoard(err)
	case domain.CommandMoveCard:
		var d domain.MoveCardData
		if err := decode(cmd, &d); err != nil {
			return err
		}
		_, err := b.MoveCard(d.TaskID, d.ColumnID, d.PreviousTaskID, d.NextTaskID)
		return fromBoard(err)
	case domain.CommandRemoveCard:
		var d domain.RemoveCardData
		if err := decode(cmd, &d); err != nil {
			return err
		}
		return fromBoard(b.RemoveCard(d.TaskID))
	default:
		return rejectf(ReasonInvalidCommand, "unsupported command %s", cmd.Type)
	}
}

func decode(cmd domain.Command, v any) error {
	if len(cmd.Data) == 0 {
		return rejectf(ReasonInvalidCommand, "%s: missing data", cmd.Type)
	}
	if err := sonic.Unmarshal(cmd.Data, v); err != nil {
		return reject(ReasonInvalidCommand, err)
	}
	return nil
}
