package board

// AddColumn adds a column. A nil position, or one at or beyond the current
// column count, appends; otherwise the column is inserted there and later
// columns shift right.
func (b *Board) AddColumn(name string, status TaskStatus, position *int) (Column, error) {
	const op = "add column"
	name = normalizeName(name)
	if name == "" {
		return Column{}, fail(op, KindInvalidColumnName, "")
	}
	if !status.Valid() {
		return Column{}, failf(op, KindInvalidStatus, "", "unknown status %q", status)
	}
	if b.nameTaken(name, "") {
		return Column{}, failf(op, KindDuplicateColumnName, "", "column %q already exists", name)
	}
	at := len(b.order)
	if position != nil {
		if *position < 0 {
			return Column{}, failf(op, KindPositionOutOfRange, "", "position %d", *position)
		}
		if *position < at {
			at = *position
		}
	}

	col := &Column{
		ID:           newColumnID(),
		Name:         name,
		TargetStatus: status,
		NextRank:     RankBase,
	}
	b.columns[col.ID] = col
	b.order = append(b.order, "")
	copy(b.order[at+1:], b.order[at:])
	b.order[at] = col.ID
	b.reindex()

	b.record(ColumnAdded{Board: b.id, ColumnID: col.ID, Name: col.Name, TargetStatus: status, Position: col.Position})
	return col.clone(), nil
}

// RemoveColumn removes a column. Cards still in it are not migrated; callers
// relocate or remove them first.
func (b *Board) RemoveColumn(columnID string) error {
	const op = "remove column"
	col, ok := b.columns[columnID]
	if !ok {
		return fail(op, KindColumnNotFound, columnID)
	}
	if isRequired(col.TargetStatus) && b.statusCount(col.TargetStatus) == 1 {
		return failf(op, KindLastStatusColumn, columnID, "last column mapped to %s", col.TargetStatus)
	}

	delete(b.columns, columnID)
	b.order = append(b.order[:col.Position], b.order[col.Position+1:]...)
	b.reindex()

	b.record(ColumnRemoved{Board: b.id, ColumnID: columnID, Name: col.Name})
	return nil
}

// ReorderColumn moves a column to newPosition, shifting the columns between.
func (b *Board) ReorderColumn(columnID string, newPosition int) error {
	const op = "reorder column"
	col, ok := b.columns[columnID]
	if !ok {
		return fail(op, KindColumnNotFound, columnID)
	}
	if newPosition < 0 || newPosition >= len(b.order) {
		return failf(op, KindPositionOutOfRange, columnID, "position %d not in [0, %d)", newPosition, len(b.order))
	}

	old := col.Position
	b.order = append(b.order[:old], b.order[old+1:]...)
	b.order = append(b.order, "")
	copy(b.order[newPosition+1:], b.order[newPosition:])
	b.order[newPosition] = columnID
	b.reindex()

	b.record(ColumnReordered{Board: b.id, ColumnID: columnID, OldPosition: old, NewPosition: newPosition})
	return nil
}

// RenameColumn renames a column. Renaming to its current name succeeds
// without recording an event.
func (b *Board) RenameColumn(columnID, newName string) error {
	const op = "rename column"
	col, ok := b.columns[columnID]
	if !ok {
		return fail(op, KindColumnNotFound, columnID)
	}
	newName = normalizeName(newName)
	if newName == "" {
		return fail(op, KindInvalidColumnName, columnID)
	}
	if col.Name == newName {
		return nil
	}
	if b.nameTaken(newName, columnID) {
		return failf(op, KindDuplicateColumnName, columnID, "column %q already exists", newName)
	}

	old := col.Name
	col.Name = newName
	b.record(ColumnRenamed{Board: b.id, ColumnID: columnID, OldName: old, NewName: newName})
	return nil
}

// SetColumnLimit sets or, with nil, clears a column's advisory task limit.
func (b *Board) SetColumnLimit(columnID string, maxTasks *int) error {
	const op = "set column limit"
	col, ok := b.columns[columnID]
	if !ok {
		return fail(op, KindColumnNotFound, columnID)
	}
	if maxTasks != nil && *maxTasks < 0 {
		return failf(op, KindInvalidColumnLimit, columnID, "limit %d", *maxTasks)
	}

	var limit *int
	if maxTasks != nil {
		v := *maxTasks
		limit = &v
	}
	col.MaxTasks = limit

	var published *int
	if limit != nil {
		v := *limit
		published = &v
	}
	b.record(ColumnLimitChanged{Board: b.id, ColumnID: columnID, MaxTasks: published})
	return nil
}

func (b *Board) statusCount(st TaskStatus) int {
	n := 0
	for _, c := range b.columns {
		if c.TargetStatus == st {
			n++
		}
	}
	return n
}
