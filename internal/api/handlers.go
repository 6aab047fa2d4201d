package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"prism-board/internal/domain"
	"prism-board/internal/storage"
	"prism-board/internal/stream"
)

// Deps are the collaborators of the HTTP handlers.
type Deps struct {
	Boards  BoardReader
	Cache   BoardCache
	Auth    Authenticator
	Deduper Deduper
	Sender  *CommandSender
	// Broker enables GET /api/boards/:id/stream when set.
	Broker  *stream.Broker
	Logger  *log.Logger
}

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, d Deps) {
	if d.Logger == nil {
		d.Logger = log.StandardLogger()
	}
	e.POST("/api/commands", postCommands(d))
	e.GET("/api/boards/:id", getBoard(d))
	if d.Broker != nil {
		e.GET("/api/boards/:id/stream", streamBoard(d))
	}
	e.GET("/healthz", healthz())
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func postCommands(d Deps) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx := newRequestMetrics(c.Request().Context(), d.Logger, "/api/commands")
		c.SetRequest(c.Request().WithContext(ctx))
		defer func() { metrics.Log(c.Response().Status, err) }()

		authStart := time.Now()
		userID, authErr := d.Auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		metrics.Observe("auth", time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			return c.String(http.StatusUnauthorized, authErr.Error())
		}

		lr := io.LimitReader(c.Request().Body, postCommandMaxSize)
		dec := sonic.ConfigStd.NewDecoder(lr)
		dec.DisallowUnknownFields()

		cmds := make([]domain.Command, 0, 4)
		if err := dec.Decode(&cmds); err != nil {
			metrics.SetErrorStage("decode")
			return c.JSON(http.StatusBadRequest, postCommandResponse{Error: "invalid body"})
		}
		if len(cmds) == 0 {
			metrics.SetErrorStage("decode")
			return c.JSON(http.StatusBadRequest, postCommandResponse{Error: "no commands"})
		}
		if verr := finalizeCommands(cmds); verr != nil {
			metrics.SetErrorStage("validate")
			return c.JSON(http.StatusBadRequest, postCommandResponse{Error: verr.Error()})
		}
		metrics.Set(attribute.Int("prism.board.commands", len(cmds)))

		keys := make([]string, len(cmds))
		for i := range cmds {
			keys[i] = cmds[i].IdempotencyKey
		}

		job := enqueueJob{userID: userID, cmds: cmds}
		if d.Deduper != nil {
			dedupeStart := time.Now()
			added, dedupeErr := d.Deduper.AddMany(ctx, userID, keys)
			metrics.Observe("dedupe", time.Since(dedupeStart))
			if dedupeErr != nil {
				rollback(d, userID, keys, added)
				metrics.SetErrorStage("dedupe")
				return c.JSON(http.StatusServiceUnavailable, postCommandResponse{Error: "dedupe unavailable"})
			}
			job.cmds = job.cmds[:0:0]
			for i, ok := range added {
				if ok {
					job.cmds = append(job.cmds, cmds[i])
					job.added = append(job.added, keys[i])
				}
			}
			metrics.Set(attribute.Int("prism.board.duplicates", len(cmds)-len(job.cmds)))
		}
		if len(job.cmds) == 0 {
			return c.JSON(http.StatusAccepted, postCommandResponse{IdempotencyKeys: keys})
		}

		enqueueStart := time.Now()
		sendErr := d.Sender.Submit(job)
		metrics.Observe("enqueue", time.Since(enqueueStart))
		if sendErr != nil {
			metrics.SetErrorStage("enqueue")
			d.Logger.WithError(sendErr).WithField("user", userID).Error("enqueue inline failed")
			return c.JSON(http.StatusInternalServerError, postCommandResponse{Error: "failed to enqueue commands"})
		}
		return c.JSON(http.StatusAccepted, postCommandResponse{IdempotencyKeys: keys})
	}
}

// finalizeCommands validates the batch and assigns keys, ids and timestamps.
func finalizeCommands(cmds []domain.Command) error {
	for i := range cmds {
		cmd := &cmds[i]
		if cmd.EntityType == "" {
			cmd.EntityType = domain.EntityBoard
		}
		if cmd.EntityType != domain.EntityBoard {
			return fmt.Errorf("command %d: unsupported entity type %q", i, cmd.EntityType)
		}
		if !domain.KnownCommand(cmd.Type) {
			return fmt.Errorf("command %d: unsupported command %q", i, cmd.Type)
		}
		if cmd.EntityID == "" {
			if cmd.Type != domain.CommandCreateBoard {
				return fmt.Errorf("command %d: entityId is required", i)
			}
			cmd.EntityID = uuid.NewString()
		}
		if cmd.IdempotencyKey == "" {
			cmd.IdempotencyKey = uuid.NewString()
		}
		cmd.ID = cmd.IdempotencyKey
		cmd.Timestamp = nextTimestamp()
	}
	return nil
}

func rollback(d Deps, userID string, keys []string, added []bool) {
	var undo []string
	for i, ok := range added {
		if ok && i < len(keys) {
			undo = append(undo, keys[i])
		}
	}
	if len(undo) == 0 {
		return
	}
	if err := d.Deduper.Remove(context.Background(), userID, undo...); err != nil {
		d.Logger.WithError(err).WithField("user", userID).Error("dedupe rollback failed")
	}
}

func getBoard(d Deps) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx := newRequestMetrics(c.Request().Context(), d.Logger, "/api/boards/:id")
		c.SetRequest(c.Request().WithContext(ctx))
		defer func() { metrics.Log(c.Response().Status, err) }()

		authStart := time.Now()
		userID, authErr := d.Auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		metrics.Observe("auth", time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			return c.String(http.StatusUnauthorized, authErr.Error())
		}
		boardID := c.Param("id")
		metrics.Set(attribute.String("prism.board.id", boardID))

		fetchStart := time.Now()
		view, cacheHit, loadErr := readBoard(ctx, d, boardID)
		metrics.Observe("fetch", time.Since(fetchStart))
		metrics.Set(attribute.Bool("prism.board.cache_hit", cacheHit))
		if errors.Is(loadErr, storage.ErrBoardNotFound) {
			metrics.SetErrorStage("not_found")
			return c.NoContent(http.StatusNotFound)
		}
		if loadErr != nil {
			metrics.SetErrorStage("storage")
			d.Logger.WithError(loadErr).WithField("board", boardID).Error("load board failed")
			return c.String(http.StatusInternalServerError, "failed to load board")
		}
		if view.OwnerID != userID {
			metrics.SetErrorStage("forbidden")
			return c.NoContent(http.StatusForbidden)
		}
		return c.JSON(http.StatusOK, view)
	}
}

// readBoard serves the board from cache, falling back to storage and
// refilling the cache on a miss.
func readBoard(ctx context.Context, d Deps, boardID string) (domain.BoardView, bool, error) {
	if d.Cache != nil {
		if doc, ok := d.Cache.Load(ctx, boardID); ok {
			return doc.Board, true, nil
		}
	}
	b, v, err := d.Boards.Load(ctx, boardID)
	if err != nil {
		return domain.BoardView{}, false, err
	}
	view := domain.NewBoardView(b.Snapshot())
	if d.Cache != nil {
		if cerr := d.Cache.Store(ctx, view, v.Revision(), 0); cerr != nil {
			d.Logger.WithError(cerr).WithField("board", boardID).Warn("failed to fill board cache")
		}
	}
	return view, false, nil
}
