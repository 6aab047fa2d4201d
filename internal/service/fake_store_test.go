package service

import (
	"context"
	"strconv"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	"prism-board/internal/board"
	"prism-board/internal/cache"
	"prism-board/internal/domain"
	"prism-board/internal/storage"
)

type storedBoard struct {
	snap board.Snapshot
	etag int
}

type fakeRepo struct {
	mu        sync.Mutex
	boards    map[string]storedBoard
	conflicts int
	saves     int
	loadErr   error
	saveErr   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{boards: map[string]storedBoard{}}
}

func (r *fakeRepo) Load(ctx context.Context, boardID string) (*board.Board, storage.Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return nil, storage.Version{}, r.loadErr
	}
	sb, ok := r.boards[boardID]
	if !ok {
		return nil, storage.Version{}, storage.ErrBoardNotFound
	}
	b, err := board.Restore(sb.snap)
	if err != nil {
		return nil, storage.Version{}, err
	}
	return b, storage.Version{ETag: azcore.ETag(strconv.Itoa(sb.etag))}, nil
}

func (r *fakeRepo) Save(ctx context.Context, b *board.Board, v storage.Version) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.saveErr != nil {
		return r.saveErr
	}
	cur, exists := r.boards[b.ID()]
	if r.conflicts > 0 {
		// a concurrent writer bumps the stored version
		r.conflicts--
		cur.etag++
		r.boards[b.ID()] = cur
		return storage.ErrConcurrencyConflict
	}
	if v.IsNew() && exists {
		return storage.ErrConcurrencyConflict
	}
	if !v.IsNew() && string(v.ETag) != strconv.Itoa(cur.etag) {
		return storage.ErrConcurrencyConflict
	}
	r.boards[b.ID()] = storedBoard{snap: b.Snapshot(), etag: cur.etag + 1}
	return nil
}

func (r *fakeRepo) snapshot(id string) board.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.boards[id].snap
}

type fakePublisher struct {
	events []domain.Event
	err    error
}

func (p *fakePublisher) PublishEvents(ctx context.Context, evs []domain.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evs...)
	return nil
}

func (p *fakePublisher) types() []string {
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fakeCache struct {
	views         []domain.BoardView
	revisions     []int64
	notifications []cache.Notification
	channels      []string
}

func (c *fakeCache) Store(ctx context.Context, view domain.BoardView, revision, lastUpdated int64) error {
	c.views = append(c.views, view)
	c.revisions = append(c.revisions, revision)
	return nil
}

func (c *fakeCache) Publish(ctx context.Context, channel string, n cache.Notification) error {
	c.channels = append(c.channels, channel)
	c.notifications = append(c.notifications, n)
	return nil
}
