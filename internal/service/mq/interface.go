package mq

import "context"

// Message is a generic business message.
type Message struct {
	ID       string            // message id (e.g. Redis Stream ID)
	Topic    string            // topic (e.g. "ledger_events_withdrawal")
	Key      string            // partition key (e.g. account id)
	Payload  []byte            // message body (JSON)
	Metadata map[string]string // metadata
}

// Producer publishes messages.
type Producer interface {
	// Publish sends a message. key is the partition key used for ordering
	// (e.g. account id); an empty key means any partition.
	Publish(ctx context.Context, topic string, key string, payload []byte) error
}

// Consumer subscribes to a topic.
type Consumer interface {
	// Subscribe consumes a topic. A non-nil handler error leaves the
	// message unacknowledged for redelivery.
	Subscribe(ctx context.Context, topic string, handler func(msg *Message) error) error

	// Close shuts down the consumer.
	Close() error
}
