package kafka

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	kafkaGo "github.com/segmentio/kafka-go"

	"github.com/go-gotop/backpack/broker"
)

var _ broker.Publisher = (*publisher)(nil)

var ErrPublisherClosed = errors.New("kafka: publisher closed")

// messageWriter kafkaGo.Writer 的子集
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkaGo.Message) error
	Close() error
}

type Option func(*options)

type options struct {
	logger       *log.Helper
	batchTimeout time.Duration
	async        bool
	writer       messageWriter
}

func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = log.NewHelper(log.With(logger, "module", "broker/kafka"))
	}
}

// WithBatchTimeout 批量发送的最长等待时间
func WithBatchTimeout(d time.Duration) Option {
	return func(o *options) {
		o.batchTimeout = d
	}
}

// WithAsync 异步写入, 写入错误只记录日志
func WithAsync(async bool) Option {
	return func(o *options) {
		o.async = async
	}
}

func withWriter(w messageWriter) Option {
	return func(o *options) {
		o.writer = w
	}
}

// NewPublisher topic 由每条消息指定, writer 不绑定 topic
func NewPublisher(brokers []string, opts ...Option) broker.Publisher {
	o := &options{
		logger:       log.NewHelper(log.With(log.DefaultLogger, "module", "broker/kafka")),
		batchTimeout: 10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(o)
	}
	w := o.writer
	if w == nil {
		w = &kafkaGo.Writer{
			Addr:                   kafkaGo.TCP(brokers...),
			Balancer:               &kafkaGo.Hash{},
			BatchTimeout:           o.batchTimeout,
			Async:                  o.async,
			AllowAutoTopicCreation: true,
			Logger:                 &Logger{logger: o.logger},
			ErrorLogger:            &ErrorLogger{logger: o.logger},
			Completion: func(messages []kafkaGo.Message, err error) {
				if err != nil {
					o.logger.Errorf("write %d messages failed: %v", len(messages), err)
				}
			},
		}
	}
	return &publisher{
		opts:   o,
		writer: w,
	}
}

type publisher struct {
	opts   *options
	writer messageWriter
	mux    sync.RWMutex
	closed bool
}

func (p *publisher) Publish(ctx context.Context, topic string, msg *broker.Message) error {
	p.mux.RLock()
	defer p.mux.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	return p.writer.WriteMessages(ctx, kafkaGo.Message{
		Topic:   topic,
		Key:     msg.Key,
		Value:   msg.Body,
		Headers: mapToKafkaHeader(msg.Headers),
	})
}

func (p *publisher) Close() error {
	p.mux.Lock()
	defer p.mux.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}
