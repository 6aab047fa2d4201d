package storage

import (
	"context"
	"errors"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"

	"prism-board/internal/domain"
)

// Message is a dequeued queue message.
type Message struct {
	ID         string
	PopReceipt string
	Text       string
}

// Queue wraps an Azure storage queue.
type Queue struct {
	client *azqueue.QueueClient
}

// Enqueue sends a single text message.
func (q *Queue) Enqueue(ctx context.Context, text string) error {
	_, err := q.client.EnqueueMessage(ctx, text, nil)
	return err
}

// Dequeue retrieves a single message. It returns nil when the queue is empty.
func (q *Queue) Dequeue(ctx context.Context) (*Message, error) {
	resp, err := q.client.DequeueMessage(ctx, nil)
	if err != nil {
		return nil, err
	}
	if len(resp.Messages) == 0 {
		return nil, nil
	}
	m := resp.Messages[0]
	if m.MessageID == nil || m.PopReceipt == nil {
		return nil, errors.New("dequeued message without id or pop receipt")
	}
	msg := &Message{ID: *m.MessageID, PopReceipt: *m.PopReceipt}
	if m.MessageText != nil {
		msg.Text = *m.MessageText
	}
	return msg, nil
}

// Delete removes a processed message from the queue.
func (q *Queue) Delete(ctx context.Context, msg *Message) error {
	_, err := q.client.DeleteMessage(ctx, msg.ID, msg.PopReceipt, nil)
	return err
}

// EnqueueCommands sends the given commands to the command queue.
func (s *Storage) EnqueueCommands(ctx context.Context, userID string, cmds []domain.Command) error {
	for _, cmd := range cmds {
		data, err := sonic.MarshalString(domain.CommandEnvelope{UserID: userID, Command: cmd})
		if err != nil {
			return err
		}
		if err := s.Commands.Enqueue(ctx, data); err != nil {
			return err
		}
	}
	return nil
}

// PublishEvents writes domain events to the events queue in order.
func (s *Storage) PublishEvents(ctx context.Context, evs []domain.Event) error {
	if s.Events == nil {
		return errors.New("events queue is not configured")
	}
	for _, ev := range evs {
		data, err := sonic.MarshalString(ev)
		if err != nil {
			return err
		}
		if err := s.Events.Enqueue(ctx, data); err != nil {
			return err
		}
	}
	return nil
}
