package domain

import (
	"strings"
	"testing"

	"github.com/bytedance/sonic"

	"prism-board/internal/board"
)

func TestCommandEnvelopeDecode(t *testing.T) {
	payload := `{"userId":"u1","command":{"id":"k1","idempotencyKey":"k1","entityType":"board","entityId":"b1","type":"card-move","data":{"taskId":"t1","columnId":"c1","previousTaskId":"t0"},"timestamp":42}}`

	var env CommandEnvelope
	if err := sonic.Unmarshal([]byte(payload), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.UserID != "u1" || env.Command.EntityID != "b1" || env.Command.Type != CommandMoveCard {
		t.Fatalf("unexpected envelope %+v", env)
	}

	var data MoveCardData
	if err := sonic.Unmarshal(env.Command.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data.TaskID != "t1" || data.ColumnID != "c1" || data.PreviousTaskID != "t0" || data.NextTaskID != "" {
		t.Fatalf("unexpected data %+v", data)
	}
}

func TestKnownCommand(t *testing.T) {
	for _, c := range []string{CommandCreateBoard, CommandMoveCard, CommandSetColumnLimit} {
		if !KnownCommand(c) {
			t.Fatalf("%s should be known", c)
		}
	}
	if KnownCommand("task-create") {
		t.Fatalf("task-create is not a board command")
	}
}

func TestNewEventCarriesRankAsString(t *testing.T) {
	ev := board.CardMoved{Board: "b1", TaskID: "t1", FromColumnID: "c1", ToColumnID: "c2", Rank: board.MustParseRank("1500.5")}
	out, err := NewEvent(ev, "u1", 7)
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	if out.EntityID != "b1" || out.EntityType != EntityBoard || out.Type != board.EventCardMoved || out.Timestamp != 7 || out.UserID != "u1" {
		t.Fatalf("unexpected envelope %+v", out)
	}
	if !strings.Contains(string(out.Data), `"rank":"1500.5"`) {
		t.Fatalf("rank should be encoded losslessly, got %s", out.Data)
	}

	var decoded board.CardMoved
	if err := sonic.Unmarshal(out.Data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.Rank.Equal(ev.Rank) || decoded.ToColumnID != "c2" {
		t.Fatalf("unexpected decoded event %+v", decoded)
	}
}

func TestNewBoardViewGroupsCards(t *testing.T) {
	one := 1
	snap := board.Snapshot{
		ID:      "b1",
		OwnerID: "u1",
		Name:    "Roadmap",
		Columns: []board.Column{
			{ID: "todo", Name: "To Do", Position: 0, TargetStatus: board.StatusTodo, MaxTasks: &one},
			{ID: "done", Name: "Done", Position: 1, TargetStatus: board.StatusDone},
		},
		Cards: []board.Card{
			{TaskID: "t1", ColumnID: "todo", Rank: board.NewRank(1000)},
			{TaskID: "t2", ColumnID: "done", Rank: board.NewRank(1000)},
			{TaskID: "t3", ColumnID: "done", Rank: board.NewRank(2000)},
			{TaskID: "t4", ColumnID: "gone", Rank: board.NewRank(1000)},
		},
	}

	v := NewBoardView(snap)
	if v.ID != "b1" || v.OwnerID != "u1" || len(v.Columns) != 2 {
		t.Fatalf("unexpected view %+v", v)
	}
	todo, done := v.Columns[0], v.Columns[1]
	if len(todo.Cards) != 1 || !todo.AtCapacity || todo.TargetStatus != "todo" {
		t.Fatalf("unexpected todo column %+v", todo)
	}
	if len(done.Cards) != 2 || done.Cards[0].TaskID != "t2" || done.Cards[1].TaskID != "t3" || done.AtCapacity {
		t.Fatalf("unexpected done column %+v", done)
	}
	if len(v.Stranded) != 1 || v.Stranded[0].TaskID != "t4" {
		t.Fatalf("expected stranded card, got %+v", v.Stranded)
	}

	out, err := sonic.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"rank":"2000"`) {
		t.Fatalf("rank should encode as a decimal string: %s", out)
	}
}

func TestNewBoardViewEmptyColumnsEncodeAsArrays(t *testing.T) {
	v := NewBoardView(board.Snapshot{ID: "b1", Columns: []board.Column{{ID: "c1", TargetStatus: board.StatusTodo}}})
	out, err := sonic.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"cards":[]`) || strings.Contains(string(out), "stranded") {
		t.Fatalf("unexpected encoding %s", out)
	}
}
