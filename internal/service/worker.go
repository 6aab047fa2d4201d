package service

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"prism-board/internal/domain"
	"prism-board/internal/storage"
)

// MessageSource is the command queue as seen by the worker.
type MessageSource interface {
	Dequeue(ctx context.Context) (*storage.Message, error)
	Delete(ctx context.Context, msg *storage.Message) error
}

// CommandHandler applies a decoded command.
type CommandHandler interface {
	Handle(ctx context.Context, env domain.CommandEnvelope) error
}

// Worker drains the command queue one message at a time.
type Worker struct {
	src          MessageSource
	handler      CommandHandler
	pollInterval time.Duration
	logger       *log.Logger
}

func NewWorker(src MessageSource, h CommandHandler, pollInterval time.Duration, logger *log.Logger) *Worker {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Worker{src: src, handler: h, pollInterval: pollInterval, logger: logger}
}

// Run processes messages until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		processed, err := w.processNext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.WithError(err).Error("receive")
		}
		if processed {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.pollInterval):
		}
	}
}

// processNext handles at most one message. It reports whether a message was
// taken off the queue so the caller can skip the idle wait.
func (w *Worker) processNext(ctx context.Context) (bool, error) {
	msg, err := w.src.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if msg == nil {
		return false, nil
	}

	var env domain.CommandEnvelope
	if err := sonic.UnmarshalString(msg.Text, &env); err != nil {
		w.logger.WithError(err).WithField("message", msg.ID).Error("dropping undecodable command")
		return true, w.src.Delete(ctx, msg)
	}
	fields := log.Fields{"board": env.Command.EntityID, "command": env.Command.Type, "user": env.UserID}

	if err := w.handler.Handle(ctx, env); err != nil {
		if !errors.Is(err, ErrRejected) {
			// left on the queue; it becomes visible again for redelivery
			w.logger.WithError(err).WithFields(fields).Error("board command failed")
			return true, nil
		}
		w.logger.WithError(err).WithFields(fields).WithField("reason", ReasonOf(err)).Warn("board command rejected")
	}
	return true, w.src.Delete(ctx, msg)
}
