package api

import (
	"context"

	"prism-board/internal/board"
	"prism-board/internal/cache"
	"prism-board/internal/domain"
	"prism-board/internal/storage"
)

const postCommandMaxSize = 64 * 1024 // 64 KiB

// POST /api/commands response body
type postCommandResponse struct {
	IdempotencyKeys []string `json:"idempotencyKeys,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// CommandQueue accepts commands for the board service.
type CommandQueue interface {
	EnqueueCommands(ctx context.Context, userID string, cmds []domain.Command) error
}

// BoardReader loads boards from the system of record.
type BoardReader interface {
	Load(ctx context.Context, boardID string) (*board.Board, storage.Version, error)
}

// BoardCache serves and fills cached board documents.
type BoardCache interface {
	Load(ctx context.Context, boardID string) (cache.Document, bool)
	Store(ctx context.Context, view domain.BoardView, revision, lastUpdated int64) error
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

// Deduper prevents processing of duplicate commands.
type Deduper interface {
	// AddMany records the keys and reports which of them were new.
	AddMany(ctx context.Context, userID string, keys []string) ([]bool, error)
	// Remove deletes previously added keys, used when enqueueing fails.
	Remove(ctx context.Context, userID string, keys ...string) error
}
