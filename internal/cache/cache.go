// Package cache keeps board read models in Redis and announces updates.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"prism-board/internal/domain"
)

const boardCachePrefix = "bd"

const documentVersion = 1

// Document is the cached representation of a board.
type Document struct {
	Version       int              `json:"version"`
	CachedAt      time.Time        `json:"cachedAt"`
	LastUpdatedAt int64            `json:"lastUpdatedAt"`
	Revision      int64            `json:"revision"`
	Board         domain.BoardView `json:"board"`
}

// Notification is published on the updates channel after a board changes.
type Notification struct {
	BoardID   string   `json:"boardId"`
	OwnerID   string   `json:"ownerId"`
	Events    []string `json:"events"`
	Timestamp int64    `json:"timestamp"`
}

// maxStoreAttempts bounds retries when a concurrent writer touches the key.
const maxStoreAttempts = 3

// BoardCache stores board documents with a TTL.
type BoardCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *log.Logger
	now    func() time.Time
	// beforeWrite runs between the revision check and the write.
	beforeWrite func()
}

// New creates a BoardCache. A non-positive ttl defaults to 12 hours and a
// nil logger to the standard logger.
func New(client *redis.Client, ttl time.Duration, logger *log.Logger) *BoardCache {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &BoardCache{redis: client, ttl: ttl, logger: logger, now: time.Now}
}

// Store writes the board document unless a newer revision is already cached.
// The check and the write run under WATCH, so a newer document stored in
// between is never overwritten.
func (c *BoardCache) Store(ctx context.Context, view domain.BoardView, revision, lastUpdated int64) error {
	if c == nil || c.redis == nil {
		return nil
	}
	data, err := sonic.Marshal(Document{
		Version:       documentVersion,
		CachedAt:      c.now().UTC(),
		LastUpdatedAt: lastUpdated,
		Revision:      revision,
		Board:         view,
	})
	if err != nil {
		return err
	}

	key := cacheKey(view.ID)
	write := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur, ok := decodeDocument(raw); ok && cur.Revision > revision {
			c.logger.WithFields(log.Fields{"board": view.ID, "cached": cur.Revision, "revision": revision}).Debug("skipping stale board cache write")
			return nil
		}
		if c.beforeWrite != nil {
			c.beforeWrite()
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, c.ttl)
			return nil
		})
		return err
	}
	for attempt := 0; attempt < maxStoreAttempts; attempt++ {
		err = c.redis.Watch(ctx, write, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		c.logger.WithField("board", view.ID).Debug("board cache write raced; retrying")
	}
	return err
}

// Load returns the cached document for a board. Broken entries are evicted
// and reported as a miss.
func (c *BoardCache) Load(ctx context.Context, boardID string) (Document, bool) {
	if c == nil || c.redis == nil {
		return Document{}, false
	}
	data, err := c.redis.Get(ctx, cacheKey(boardID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).WithField("board", boardID).Warn("board cache read failed")
		}
		return Document{}, false
	}
	doc, ok := decodeDocument(data)
	if !ok {
		_ = c.redis.Del(ctx, cacheKey(boardID)).Err()
		return Document{}, false
	}
	return doc, true
}

func decodeDocument(data []byte) (Document, bool) {
	if len(data) == 0 {
		return Document{}, false
	}
	var doc Document
	if err := sonic.Unmarshal(data, &doc); err != nil || doc.Version != documentVersion {
		return Document{}, false
	}
	return doc, true
}

// Evict drops the cached document for a board.
func (c *BoardCache) Evict(ctx context.Context, boardID string) error {
	if c == nil || c.redis == nil {
		return nil
	}
	return c.redis.Del(ctx, cacheKey(boardID)).Err()
}

// Publish announces a board change on channel.
func (c *BoardCache) Publish(ctx context.Context, channel string, n Notification) error {
	if c == nil || c.redis == nil {
		return nil
	}
	payload, err := sonic.MarshalString(n)
	if err != nil {
		return err
	}
	return c.redis.Publish(ctx, channel, payload).Err()
}

func cacheKey(boardID string) string {
	return boardID + ":" + boardCachePrefix
}
