package broker

import "context"

type Headers map[string]string

type Message struct {
	Headers Headers
	Key     []byte
	Body    []byte
}

// Publisher 发布消息到消息队列
type Publisher interface {
	Publish(ctx context.Context, topic string, msg *Message) error
	Close() error
}
