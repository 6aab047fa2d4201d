package board

// PlaceTask appends a card for a task that is not yet on the board and
// returns the column's target status.
func (b *Board) PlaceTask(taskID, columnID string) (TaskStatus, error) {
	const op = "place task"
	col, ok := b.columns[columnID]
	if !ok {
		return "", fail(op, KindColumnNotFound, columnID)
	}
	if _, placed := b.cards[taskID]; placed {
		return "", fail(op, KindTaskAlreadyPlaced, taskID)
	}

	card := &Card{TaskID: taskID, ColumnID: columnID, Rank: col.advance()}
	b.cards[taskID] = card

	b.record(CardPlaced{Board: b.id, TaskID: taskID, ColumnID: columnID, Rank: card.Rank})
	return col.TargetStatus, nil
}

// MoveCard places a task's card in targetColumnID between the cards of
// prevTaskID and nextTaskID. An empty neighbor ID means the card has no
// neighbor on that side. It returns the target column's status.
func (b *Board) MoveCard(taskID, targetColumnID, prevTaskID, nextTaskID string) (TaskStatus, error) {
	const op = "move card"
	card, ok := b.cards[taskID]
	if !ok {
		return "", fail(op, KindCardNotFound, taskID)
	}
	col, ok := b.columns[targetColumnID]
	if !ok {
		return "", fail(op, KindColumnNotFound, targetColumnID)
	}
	prev, err := b.neighbor(op, taskID, targetColumnID, prevTaskID)
	if err != nil {
		return "", err
	}
	next, err := b.neighbor(op, taskID, targetColumnID, nextTaskID)
	if err != nil {
		return "", err
	}
	if prev != nil && next != nil && !prev.Rank.Less(next.Rank) {
		return "", failf(op, KindInvalidNeighbor, prevTaskID, "%s does not rank before %s", prevTaskID, nextTaskID)
	}

	// bound by the cards actually adjacent to the named neighbor, so a
	// non-adjacent pair cannot yield a rank another card already holds
	lower, upper := prev, next
	switch {
	case prev != nil:
		upper = b.adjacent(targetColumnID, taskID, prev.Rank, true)
	case next != nil:
		lower = b.adjacent(targetColumnID, taskID, next.Rank, false)
	}

	nextRank := col.NextRank
	var rank Rank
	switch {
	case lower == nil && upper == nil:
		rank = nextRank
		nextRank = nextRank.Add(RankStep)
	case lower == nil:
		rank = upper.Rank.Half()
	case upper == nil:
		rank = lower.Rank.Add(RankStep)
		if !rank.Less(nextRank) {
			nextRank = rank.Add(RankStep)
		}
	default:
		rank = Midpoint(lower.Rank, upper.Rank)
	}

	from := card.ColumnID
	col.NextRank = nextRank
	card.ColumnID = targetColumnID
	card.Rank = rank

	var ranks []CardRank
	if rank.Scale() > MaxRankScale {
		ranks = b.rebalance(col)
	}

	b.record(CardMoved{Board: b.id, TaskID: taskID, FromColumnID: from, ToColumnID: targetColumnID, Rank: card.Rank})
	if ranks != nil {
		b.record(ColumnRanksRebalanced{Board: b.id, ColumnID: targetColumnID, Ranks: ranks, NextRank: col.NextRank})
	}
	return col.TargetStatus, nil
}

// RemoveCard deletes a task's card. No other rank changes.
func (b *Board) RemoveCard(taskID string) error {
	const op = "remove card"
	card, ok := b.cards[taskID]
	if !ok {
		return fail(op, KindCardNotFound, taskID)
	}
	delete(b.cards, taskID)
	b.record(CardRemoved{Board: b.id, TaskID: taskID, ColumnID: card.ColumnID})
	return nil
}

func (b *Board) neighbor(op, movingID, columnID, id string) (*Card, error) {
	if id == "" {
		return nil, nil
	}
	if id == movingID {
		return nil, failf(op, KindInvalidNeighbor, id, "card cannot neighbor itself")
	}
	c, ok := b.cards[id]
	if !ok || c.ColumnID != columnID {
		return nil, failf(op, KindInvalidNeighbor, id, "no card in column %s", columnID)
	}
	return c, nil
}

// adjacent returns the card ranked closest to r on one side, ignoring
// exceptTaskID.
func (b *Board) adjacent(columnID, exceptTaskID string, r Rank, after bool) *Card {
	var best *Card
	for id, c := range b.cards {
		if id == exceptTaskID || c.ColumnID != columnID {
			continue
		}
		if after && r.Less(c.Rank) && (best == nil || c.Rank.Less(best.Rank)) {
			best = c
		}
		if !after && c.Rank.Less(r) && (best == nil || best.Rank.Less(c.Rank)) {
			best = c
		}
	}
	return best
}

// rebalance renumbers a column to base, base+step, ... keeping display order,
// and returns the new ranks. Columns larger than MaxRebalanceCards are left
// alone and keep their exact ranks; nil means nothing was renumbered.
func (b *Board) rebalance(col *Column) []CardRank {
	cards := b.sortedCards(col.ID)
	if len(cards) > MaxRebalanceCards {
		return nil
	}
	ranks := make([]CardRank, 0, len(cards))
	r := RankBase
	for _, c := range cards {
		c.Rank = r
		ranks = append(ranks, CardRank{TaskID: c.TaskID, Rank: r})
		r = r.Add(RankStep)
	}
	col.NextRank = maxRank(col.NextRank, r)
	return ranks
}
