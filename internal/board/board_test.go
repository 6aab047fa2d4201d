package board

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func newTestBoard(t *testing.T) *Board {
	t.Helper()
	b, err := New("b1", "owner", "Work")
	if err != nil {
		t.Fatalf("new board: %v", err)
	}
	b.ClearEvents()
	return b
}

func columnByName(t *testing.T, b *Board, name string) Column {
	t.Helper()
	for _, c := range b.Columns() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("column %q not found", name)
	return Column{}
}

// fingerprint renders everything observable about a board's state.
func fingerprint(b *Board) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s|%s|%s\n", b.ID(), b.OwnerID(), b.Name())
	for _, c := range b.Columns() {
		limit := "-"
		if c.MaxTasks != nil {
			limit = fmt.Sprint(*c.MaxTasks)
		}
		fmt.Fprintf(&sb, "col %s %q %d %s %s %s\n", c.ID, c.Name, c.Position, c.TargetStatus, limit, c.NextRank)
	}
	for _, c := range b.Cards() {
		fmt.Fprintf(&sb, "card %s %s %s\n", c.TaskID, c.ColumnID, c.Rank)
	}
	return sb.String()
}

func assertPositionsContiguous(t *testing.T, b *Board) {
	t.Helper()
	for i, c := range b.Columns() {
		if c.Position != i {
			t.Fatalf("column %q at index %d has position %d", c.Name, i, c.Position)
		}
	}
}

func assertRanksUnique(t *testing.T, b *Board) {
	t.Helper()
	for _, col := range b.Columns() {
		cards := b.CardsInColumn(col.ID)
		for i := range cards {
			if !cards[i].Rank.Less(col.NextRank) {
				t.Fatalf("card %s rank %s not below next rank %s", cards[i].TaskID, cards[i].Rank, col.NextRank)
			}
			if i > 0 && !cards[i-1].Rank.Less(cards[i].Rank) {
				t.Fatalf("ranks not strictly increasing in %q: %s then %s", col.Name, cards[i-1].Rank, cards[i].Rank)
			}
		}
	}
}

func TestNewBoardDefaultColumns(t *testing.T) {
	b, err := New("b1", "owner", "  Work  ")
	if err != nil {
		t.Fatalf("new board: %v", err)
	}
	want := []struct {
		name   string
		status TaskStatus
	}{
		{"To Do", StatusTodo},
		{"In Progress", StatusInProgress},
		{"Done", StatusDone},
	}
	cols := b.Columns()
	if len(cols) != len(want) {
		t.Fatalf("expected %d columns, got %d", len(want), len(cols))
	}
	for i, w := range want {
		if cols[i].Name != w.name || cols[i].Position != i || cols[i].TargetStatus != w.status {
			t.Fatalf("column %d = %+v, want %s/%s", i, cols[i], w.name, w.status)
		}
		if !cols[i].NextRank.Equal(RankBase) {
			t.Fatalf("column %q next rank = %s", cols[i].Name, cols[i].NextRank)
		}
	}
	if b.Name() != "Work" {
		t.Fatalf("unexpected name %q", b.Name())
	}

	initial, ok := b.InitialColumn()
	if !ok || initial.Name != "To Do" {
		t.Fatalf("initial column = %+v, %v", initial, ok)
	}
	done, ok := b.DoneColumn()
	if !ok || done.Name != "Done" {
		t.Fatalf("done column = %+v, %v", done, ok)
	}

	events := b.Events()
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	if events[0].EventType() != EventBoardCreated {
		t.Fatalf("first event = %s", events[0].EventType())
	}
	for _, ev := range events[1:] {
		if ev.EventType() != EventColumnAdded || ev.AggregateID() != "b1" {
			t.Fatalf("unexpected event %#v", ev)
		}
	}
}

func TestNewBoardRequiresIdentity(t *testing.T) {
	if _, err := New("", "owner", "x"); !IsKind(err, KindInvalidBoard) {
		t.Fatalf("expected invalid board for empty id, got %v", err)
	}
	if _, err := New("b1", "", "x"); !IsKind(err, KindInvalidBoard) {
		t.Fatalf("expected invalid board for empty owner, got %v", err)
	}
}

func TestClearEvents(t *testing.T) {
	b, _ := New("b1", "owner", "Work")
	snapshot := b.Events()
	b.ClearEvents()
	if len(b.Events()) != 0 {
		t.Fatalf("expected empty buffer")
	}
	if len(snapshot) != 4 {
		t.Fatalf("returned slice must not alias the buffer, got %d", len(snapshot))
	}
}

func TestQueriesReturnCopies(t *testing.T) {
	b := newTestBoard(t)
	todo := columnByName(t, b, "To Do")
	limit := 3
	if err := b.SetColumnLimit(todo.ID, &limit); err != nil {
		t.Fatalf("set limit: %v", err)
	}
	limit = 10

	got, _ := b.FindColumn(todo.ID)
	if *got.MaxTasks != 3 {
		t.Fatalf("limit leaked from caller: %d", *got.MaxTasks)
	}
	*got.MaxTasks = 99
	got.Name = "Mutated"
	again, _ := b.FindColumn(todo.ID)
	if *again.MaxTasks != 3 || again.Name != "To Do" {
		t.Fatalf("column mutated through copy: %+v", again)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	b := newTestBoard(t)
	todo := columnByName(t, b, "To Do")
	done := columnByName(t, b, "Done")
	mustPlace(t, b, "A", todo.ID)
	mustPlace(t, b, "B", todo.ID)
	mustPlace(t, b, "C", done.ID)
	if _, err := b.MoveCard("C", todo.ID, "A", "B"); err != nil {
		t.Fatalf("move: %v", err)
	}
	limit := 2
	if err := b.SetColumnLimit(done.ID, &limit); err != nil {
		t.Fatalf("limit: %v", err)
	}

	restored, err := Restore(b.Snapshot())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if fingerprint(restored) != fingerprint(b) {
		t.Fatalf("round trip mismatch:\n%s\nvs\n%s", fingerprint(restored), fingerprint(b))
	}
	if len(restored.Events()) != 0 {
		t.Fatalf("restore must not record events")
	}
}

func TestSnapshotKeepsStrandedCards(t *testing.T) {
	b := newTestBoard(t)
	wip := columnByName(t, b, "In Progress")
	mustPlace(t, b, "A", wip.ID)
	if err := b.RemoveColumn(wip.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	s := b.Snapshot()
	if len(s.Cards) != 1 || s.Cards[0].ColumnID != wip.ID {
		t.Fatalf("stranded card missing from snapshot: %+v", s.Cards)
	}
	restored, err := Restore(s)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if _, ok := restored.FindCard("A"); !ok {
		t.Fatalf("stranded card lost on restore")
	}
}

func TestRestoreRejectsInvariantViolations(t *testing.T) {
	base := func() Snapshot {
		return Snapshot{
			ID:      "b1",
			OwnerID: "owner",
			Columns: []Column{
				{ID: "c1", Name: "To Do", Position: 0, TargetStatus: StatusTodo, NextRank: NewRank(3000)},
				{ID: "c2", Name: "Done", Position: 1, TargetStatus: StatusDone, NextRank: NewRank(1000)},
			},
			Cards: []Card{
				{TaskID: "A", ColumnID: "c1", Rank: NewRank(1000)},
				{TaskID: "B", ColumnID: "c1", Rank: NewRank(2000)},
			},
		}
	}
	if _, err := Restore(base()); err != nil {
		t.Fatalf("valid snapshot rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Snapshot)
	}{
		{"position gap", func(s *Snapshot) { s.Columns[1].Position = 2 }},
		{"duplicate name", func(s *Snapshot) { s.Columns[1].Name = "to do" }},
		{"missing done column", func(s *Snapshot) { s.Columns[1].TargetStatus = StatusInProgress }},
		{"unknown status", func(s *Snapshot) { s.Columns[1].TargetStatus = "blocked" }},
		{"duplicate task", func(s *Snapshot) { s.Cards[1].TaskID = "A" }},
		{"duplicate rank", func(s *Snapshot) { s.Cards[1].Rank = NewRank(1000) }},
		{"missing owner", func(s *Snapshot) { s.OwnerID = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			tt.mutate(&s)
			if _, err := Restore(s); !IsKind(err, KindInvalidBoard) {
				t.Fatalf("expected invalid board, got %v", err)
			}
		})
	}
}

func TestRestoreRepairsNextRank(t *testing.T) {
	s := Snapshot{
		ID:      "b1",
		OwnerID: "owner",
		Columns: []Column{
			{ID: "c1", Name: "To Do", Position: 0, TargetStatus: StatusTodo, NextRank: NewRank(1000)},
			{ID: "c2", Name: "Done", Position: 1, TargetStatus: StatusDone, NextRank: NewRank(1000)},
		},
		Cards: []Card{{TaskID: "A", ColumnID: "c1", Rank: NewRank(5000)}},
	}
	b, err := Restore(s)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	col, _ := b.FindColumn("c1")
	if !col.NextRank.Equal(NewRank(6000)) {
		t.Fatalf("next rank = %s, want 6000", col.NextRank)
	}
}

func TestErrorClassification(t *testing.T) {
	b := newTestBoard(t)
	err := b.RemoveCard("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("card_not_found should match ErrNotFound: %v", err)
	}
	if KindOf(err) != KindCardNotFound {
		t.Fatalf("unexpected kind %q", KindOf(err))
	}
	if KindOf(errors.New("other")) != "" {
		t.Fatalf("foreign errors have no kind")
	}
	if !strings.Contains(err.Error(), "card_not_found") || !strings.Contains(err.Error(), "missing") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if _, err := b.PlaceTask("A", "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("column_not_found should match ErrNotFound: %v", err)
	}
}
