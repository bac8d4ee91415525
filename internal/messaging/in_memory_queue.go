package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
)

type inMemoryTask struct {
	queue   string
	payload []byte
}

func (t *inMemoryTask) Type() string {
	return t.queue
}

func (t *inMemoryTask) Payload() []byte {
	return t.payload
}

func (t *inMemoryTask) Ack() error {
	return nil
}

func (t *inMemoryTask) Nack() error {
	return nil
}

func (t *inMemoryTask) Reject() error {
	return nil
}

// InMemoryQueue is a Publisher and Reciever backed by a channel. Used
// when no broker is configured and in tests.
type InMemoryQueue struct {
	tasks chan Task
}

func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		tasks: make(chan Task, 100),
	}
}

func (q *InMemoryQueue) PublishChatEvent(ctx context.Context, payload ChatEventPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	// Events are best effort. With no consumer attached the channel fills
	// up; dropping is better than blocking the turn that published.
	select {
	case q.tasks <- &inMemoryTask{queue: ChatEventQueue, payload: data}:
	default:
		slog.Warn("chat event queue full, dropping event", "chat_id", payload.ChatID)
	}

	return nil
}

func (q *InMemoryQueue) Tasks() <-chan Task {
	return q.tasks
}

func (q *InMemoryQueue) Close() {
	if q.tasks != nil {
		close(q.tasks)
		q.tasks = nil
	}
}
