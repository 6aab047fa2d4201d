package api

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"prism-board/internal/domain"
)

type enqueueJob struct {
	userID string
	cmds   []domain.Command
	added  []string // keys added to deduper (for rollback on enqueue failure)
}

// SenderOptions sizes the command sender pool.
type SenderOptions struct {
	Workers        int
	Buffer         int
	EnqueueTimeout time.Duration
	HandoffTimeout time.Duration
}

// CommandSender hands accepted commands to a pool of queue writers.
type CommandSender struct {
	queue   CommandQueue
	deduper Deduper
	logger  *log.Logger
	opts    SenderOptions

	mu     sync.RWMutex
	jobs   chan enqueueJob
	closed bool
	wg     sync.WaitGroup
}

// NewCommandSender starts the worker pool. Close stops it.
func NewCommandSender(queue CommandQueue, deduper Deduper, logger *log.Logger, opts SenderOptions) *CommandSender {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Buffer < 0 {
		opts.Buffer = 0
	}
	if opts.EnqueueTimeout <= 0 {
		opts.EnqueueTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	s := &CommandSender{
		queue:   queue,
		deduper: deduper,
		logger:  logger,
		opts:    opts,
		jobs:    make(chan enqueueJob, opts.Buffer),
	}
	for i := 0; i < opts.Workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
	logger.Infof("command sender started, workers: %d, buffer: %d, timeout: %v, handoff: %v", opts.Workers, opts.Buffer, opts.EnqueueTimeout, opts.HandoffTimeout)
	return s
}

// Close stops accepting jobs and waits for queued ones to finish.
func (s *CommandSender) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.jobs)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *CommandSender) worker(id int) {
	defer s.wg.Done()
	for j := range s.jobs {
		if err := s.send(j); err != nil {
			s.logger.Errorf("enqueue failed, err: %v, user: %s, count: %d, worker: %d", err, j.userID, len(j.cmds), id)
		}
	}
}

// Submit sends the job through the pool, or inline when the pool stays
// saturated past the handoff timeout.
func (s *CommandSender) Submit(job enqueueJob) error {
	if s.tryEnqueue(job) {
		return nil
	}
	s.logger.Warn("enqueue buffer saturated; processing inline")
	return s.send(job)
}

// send writes the job and rolls back its dedupe keys on failure.
func (s *CommandSender) send(j enqueueJob) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.EnqueueTimeout)
	err := s.queue.EnqueueCommands(ctx, j.userID, j.cmds)
	cancel()
	if err == nil {
		return nil
	}
	if s.deduper != nil && len(j.added) > 0 {
		if rerr := s.deduper.Remove(context.Background(), j.userID, j.added...); rerr != nil {
			s.logger.Errorf("dedupe rollback failed, err : %v, keys: %v, user: %s", rerr, j.added, j.userID)
		}
	}
	return err
}

func (s *CommandSender) tryEnqueue(job enqueueJob) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}

	select {
	case s.jobs <- job:
		return true
	default:
	}
	if s.opts.HandoffTimeout <= 0 {
		return false
	}

	timer := time.NewTimer(s.opts.HandoffTimeout)
	defer timer.Stop()
	select {
	case s.jobs <- job:
		return true
	case <-timer.C:
		return false
	}
}
