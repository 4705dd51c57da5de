package streambackpack

import (
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/go-gotop/backpack/broker"
	"github.com/go-gotop/backpack/exchange"
)

type Option func(*options)

type options struct {
	logger         *log.Helper
	endpoint       string
	redisKey       string
	storeTimeout   time.Duration
	publisher      broker.Publisher
	topic          string
	publishTimeout time.Duration
	eventHandler   func(evt exchange.Event)
	errorHandler   func(err error)
	store          streamStore
}

func WithLogger(logger *log.Helper) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEndpoint 未连接时 AddStream 使用的地址
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		o.endpoint = endpoint
	}
}

// WithRedisKey 订阅列表在 redis 中的 hash key
func WithRedisKey(key string) Option {
	return func(o *options) {
		o.redisKey = key
	}
}

// WithPublisher 所有推送事件同时发布到消息队列
func WithPublisher(p broker.Publisher) Option {
	return func(o *options) {
		o.publisher = p
	}
}

// WithTopic 所有事件发往同一个 topic, 为空时按频道区分行情和账户
func WithTopic(topic string) Option {
	return func(o *options) {
		o.topic = topic
	}
}

func WithPublishTimeout(d time.Duration) Option {
	return func(o *options) {
		o.publishTimeout = d
	}
}

// WithEventHandler 从 redis 恢复的订阅没有回调, 推送交给该函数
func WithEventHandler(h func(evt exchange.Event)) Option {
	return func(o *options) {
		o.eventHandler = h
	}
}

func WithErrorHandler(h func(err error)) Option {
	return func(o *options) {
		o.errorHandler = h
	}
}

func withStore(s streamStore) Option {
	return func(o *options) {
		o.store = s
	}
}
