package messaging

import (
	"context"
	"time"
)

const (
	ChatEventQueue  = "chat_events"
	RetryDelay      = 5 * time.Second
	MaxConnectRetry = 5
)

type Task interface {
	Type() string

	Payload() []byte

	Ack() error

	Nack() error

	Reject() error
}

// ChatEventPayload mirrors one audit row. Downstream consumers use it
// for analytics and alerting; the chat flow never reads it back.
type ChatEventPayload struct {
	ChatID    string    `json:"chat_id"`
	UserEmail string    `json:"user_email"`
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	Route     string    `json:"route"`
	Timestamp time.Time `json:"timestamp"`
}

type Publisher interface {
	PublishChatEvent(ctx context.Context, payload ChatEventPayload) error

	Close()
}

type Reciever interface {
	Tasks() <-chan Task

	Close()
}
