// Package service applies board commands taken from the command queue.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"prism-board/internal/board"
	"prism-board/internal/cache"
	"prism-board/internal/domain"
	"prism-board/internal/storage"
)

const tracerName = "prism-board/service"

// BoardRepository loads and saves board aggregates.
type BoardRepository interface {
	Load(ctx context.Context, boardID string) (*board.Board, storage.Version, error)
	Save(ctx context.Context, b *board.Board, v storage.Version) error
}

// EventPublisher forwards domain events downstream.
type EventPublisher interface {
	PublishEvents(ctx context.Context, evs []domain.Event) error
}

// BoardCacher refreshes read models after a save.
type BoardCacher interface {
	Store(ctx context.Context, view domain.BoardView, revision, lastUpdated int64) error
	Publish(ctx context.Context, channel string, n cache.Notification) error
}

// Options tunes a BoardService.
type Options struct {
	SaveRetries    int
	UpdatesChannel string
	Logger         *log.Logger
}

// BoardService handles board commands.
type BoardService struct {
	repo    BoardRepository
	pub     EventPublisher
	cache   BoardCacher
	channel string
	retries int
	logger  *log.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

// New creates a BoardService. cache may be nil.
func New(repo BoardRepository, pub EventPublisher, c BoardCacher, opts Options) *BoardService {
	if opts.SaveRetries <= 0 {
		opts.SaveRetries = 5
	}
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	return &BoardService{
		repo:    repo,
		pub:     pub,
		cache:   c,
		channel: opts.UpdatesChannel,
		retries: opts.SaveRetries,
		logger:  opts.Logger,
		tracer:  otel.Tracer(tracerName),
		now:     time.Now,
	}
}

// Handle applies one command. Errors wrapping ErrRejected will never
// succeed on redelivery. Other errors are transient.
func (s *BoardService) Handle(ctx context.Context, env domain.CommandEnvelope) (err error) {
	cmd := env.Command
	ctx, span := s.tracer.Start(ctx, "board.command", trace.WithAttributes(
		attribute.String("board.id", cmd.EntityID),
		attribute.String("command.type", cmd.Type),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if reason := ReasonOf(err); reason != "" {
				span.SetAttributes(attribute.String("command.rejected", reason))
			}
		}
		span.End()
	}()

	if err := validate(env); err != nil {
		return err
	}

	var (
		b *board.Board
		v storage.Version
	)
	for attempt := 1; ; attempt++ {
		b, v, err = s.execute(ctx, env)
		if err != nil {
			return err
		}
		if b == nil {
			// replayed create of an existing board
			return nil
		}
		err = s.repo.Save(ctx, b, v)
		if err == nil {
			break
		}
		if errors.Is(err, storage.ErrBoardTooLarge) {
			return reject(ReasonInvalidCommand, err)
		}
		if !errors.Is(err, storage.ErrConcurrencyConflict) {
			return fmt.Errorf("save board %s: %w", cmd.EntityID, err)
		}
		if attempt >= s.retries {
			return fmt.Errorf("save board %s after %d attempts: %w", cmd.EntityID, attempt, err)
		}
		s.logger.WithFields(log.Fields{"board": cmd.EntityID, "command": cmd.Type, "attempt": attempt}).Debug("board save conflict, retrying")
	}
	span.SetAttributes(attribute.Int64("board.revision", v.Revision()+1))

	s.afterSave(ctx, env, b, v.Revision()+1)
	return nil
}

func validate(env domain.CommandEnvelope) error {
	cmd := env.Command
	switch {
	case env.UserID == "":
		return rejectf(ReasonForbidden, "command %s has no user", cmd.ID)
	case cmd.EntityType != domain.EntityBoard:
		return rejectf(ReasonInvalidCommand, "unsupported entity type %q", cmd.EntityType)
	case !domain.KnownCommand(cmd.Type):
		return rejectf(ReasonInvalidCommand, "unsupported command %q", cmd.Type)
	case cmd.EntityID == "":
		return rejectf(ReasonInvalidCommand, "command %s has no board id", cmd.ID)
	}
	return nil
}

// execute loads the board named by the command and applies it. A nil board
// with a nil error means there is nothing to save.
func (s *BoardService) execute(ctx context.Context, env domain.CommandEnvelope) (*board.Board, storage.Version, error) {
	cmd := env.Command
	b, v, err := s.repo.Load(ctx, cmd.EntityID)
	switch {
	case errors.Is(err, storage.ErrBoardNotFound):
		if cmd.Type != domain.CommandCreateBoard {
			return nil, storage.Version{}, rejectf(ReasonBoardNotFound, "board %s does not exist", cmd.EntityID)
		}
		var d domain.CreateBoardData
		if len(cmd.Data) > 0 {
			if err := sonic.Unmarshal(cmd.Data, &d); err != nil {
				return nil, storage.Version{}, reject(ReasonInvalidCommand, err)
			}
		}
		nb, err := board.New(cmd.EntityID, env.UserID, d.Name)
		if err != nil {
			return nil, storage.Version{}, fromBoard(err)
		}
		return nb, storage.Version{}, nil
	case err != nil:
		return nil, storage.Version{}, fmt.Errorf("load board %s: %w", cmd.EntityID, err)
	}

	if b.OwnerID() != env.UserID {
		return nil, storage.Version{}, rejectf(ReasonForbidden, "user %s does not own board %s", env.UserID, cmd.EntityID)
	}
	if cmd.Type == domain.CommandCreateBoard {
		s.logger.WithFields(log.Fields{"board": cmd.EntityID, "user": env.UserID}).Info("board already exists, ignoring create")
		return nil, storage.Version{}, nil
	}
	if err := apply(b, cmd); err != nil {
		return nil, storage.Version{}, err
	}
	return b, v, nil
}

// afterSave publishes the recorded events and refreshes the cache. Failures
// are logged; the board is already persisted.
func (s *BoardService) afterSave(ctx context.Context, env domain.CommandEnvelope, b *board.Board, revision int64) {
	cmd := env.Command
	fields := log.Fields{"board": b.ID(), "command": cmd.Type, "user": env.UserID}
	ts := cmd.Timestamp
	if ts == 0 {
		ts = s.now().UnixNano()
	}

	recorded := b.Events()
	evs := make([]domain.Event, 0, len(recorded))
	types := make([]string, 0, len(recorded))
	for i, ev := range recorded {
		out, err := domain.NewEvent(ev, env.UserID, ts)
		if err != nil {
			s.logger.WithError(err).WithFields(fields).Error("failed to encode board event")
			continue
		}
		out.ID = fmt.Sprintf("%s-%d", eventKey(cmd), i)
		evs = append(evs, out)
		types = append(types, out.Type)
	}
	if s.pub != nil && len(evs) > 0 {
		if err := s.pub.PublishEvents(ctx, evs); err != nil {
			s.logger.WithError(err).WithFields(fields).Error("failed to publish board events")
		}
	}

	if s.cache != nil {
		if err := s.cache.Store(ctx, domain.NewBoardView(b.Snapshot()), revision, ts); err != nil {
			s.logger.WithError(err).WithFields(fields).Error("failed to store board cache entry")
		}
		if s.channel != "" {
			n := cache.Notification{BoardID: b.ID(), OwnerID: b.OwnerID(), Events: types, Timestamp: ts}
			if err := s.cache.Publish(ctx, s.channel, n); err != nil {
				s.logger.WithError(err).WithFields(fields).Errorf("Unable to publish updates for board to %s", s.channel)
			}
		}
	}
	b.ClearEvents()
	s.logger.WithFields(fields).WithField("events", len(evs)).Debug("board command applied")
}

func eventKey(cmd domain.Command) string {
	if cmd.IdempotencyKey != "" {
		return cmd.IdempotencyKey
	}
	return cmd.ID
}
