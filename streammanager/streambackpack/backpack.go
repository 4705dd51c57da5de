package streambackpack

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/go-gotop/backpack/broker"
	"github.com/go-gotop/backpack/dispatch"
	"github.com/go-gotop/backpack/exchange"
	"github.com/go-gotop/backpack/streammanager"
	"github.com/go-gotop/backpack/wsmanager"
	"github.com/go-gotop/backpack/wsmanager/manager"
)

var _ streammanager.StreamManager = (*BackpackStream)(nil)

var Json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrStreamNotFound = errors.New("stream not found")
	ErrStreamClosed   = errors.New("stream manager closed")
)

const (
	defaultRedisKey = "backpack_streams"
)

type streamEntry struct {
	UUID        string           `json:"uuid"`
	Channel     exchange.Channel `json:"channel"`
	Symbol      string           `json:"symbol"`
	CreatedTime time.Time        `json:"created_time"`

	event        func(evt exchange.Event)
	errorHandler func(err error)
}

func (e *streamEntry) key() exchange.StreamKey {
	return exchange.NewStreamKey(e.Channel, e.Symbol)
}

// NewBackpackStream 在一条连接上管理多个订阅. 同一订阅键的多个 stream 共用一次订阅,
// rdb 为 nil 时不持久化订阅列表
func NewBackpackStream(wsm wsmanager.ConnectionManager, rdb *redis.Client, opts ...Option) *BackpackStream {
	o := &options{
		logger:         log.NewHelper(log.With(log.DefaultLogger, "module", "streambackpack")),
		endpoint:       manager.DefaultEndpoint,
		redisKey:       defaultRedisKey,
		storeTimeout:   3 * time.Second,
		publishTimeout: 3 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.store == nil && rdb != nil {
		o.store = newRedisStore(rdb, o.redisKey)
	}

	bs := &BackpackStream{
		name:    exchange.BackpackExchange,
		opts:    o,
		wsm:     wsm,
		streams:    make(map[string]*streamEntry),
		keys:       make(map[exchange.StreamKey][]string),
		subscribed: make(map[exchange.StreamKey]string),
	}
	bs.initStreamsFromStore()
	return bs
}

type BackpackStream struct {
	name string
	opts *options
	wsm  wsmanager.ConnectionManager

	// mux 串行化订阅操作; rw 只保护路由数据, 读协程只会获取 rw
	mux     sync.Mutex
	rw      sync.RWMutex
	streams map[string]*streamEntry
	keys    map[exchange.StreamKey][]string
	closed  bool

	// subscribed 记录订阅键在哪条连接上订阅成功, 只由 mux 保护.
	// 连接 ID 变化(断开或重连)后记录失效
	subscribed map[exchange.StreamKey]string
}

func (b *BackpackStream) Name() string {
	return b.name
}

// streamKey 账户类频道忽略交易对, 行情频道必须带交易对
func streamKey(channel exchange.Channel, symbol string) (exchange.StreamKey, error) {
	if !channel.IsValid() {
		return exchange.StreamKey{}, fmt.Errorf("%w: unknown channel %q", wsmanager.ErrSubscription, channel)
	}
	if channel.IsPrivate() {
		return exchange.NewStreamKey(channel, ""), nil
	}
	if strings.TrimSpace(symbol) == "" {
		return exchange.StreamKey{}, fmt.Errorf("%s: %w", channel, exchange.ErrEmptySymbol)
	}
	return exchange.NewStreamKey(channel, symbol), nil
}

func (b *BackpackStream) AddStream(ctx context.Context, req *streammanager.StreamRequest) (string, error) {
	key, err := streamKey(req.Channel, req.Symbol)
	if err != nil {
		return "", err
	}

	b.mux.Lock()
	defer b.mux.Unlock()
	if b.isClosed() {
		return "", ErrStreamClosed
	}
	if err := b.ensureConnected(ctx); err != nil {
		return "", err
	}

	if err := b.subscribe(ctx, key); err != nil {
		return "", err
	}

	e := &streamEntry{
		UUID:         uuid.New().String(),
		Channel:      key.Channel,
		Symbol:       key.Symbol,
		CreatedTime:  time.Now(),
		event:        req.Event,
		errorHandler: req.ErrorHandler,
	}
	b.rw.Lock()
	b.streams[e.UUID] = e
	b.keys[key] = append(b.keys[key], e.UUID)
	b.rw.Unlock()

	b.saveStream(e)
	b.opts.logger.Infof("add stream %s: %s", e.UUID, key.Name())
	return e.UUID, nil
}

// CloseStream 最后一个 stream 关闭时才取消订阅
func (b *BackpackStream) CloseStream(ctx context.Context, uuid string) error {
	b.mux.Lock()
	defer b.mux.Unlock()

	b.rw.Lock()
	e, ok := b.streams[uuid]
	if !ok {
		b.rw.Unlock()
		return fmt.Errorf("%w: %s", ErrStreamNotFound, uuid)
	}
	key := e.key()
	delete(b.streams, uuid)
	rest := removeUUID(b.keys[key], uuid)
	if len(rest) == 0 {
		delete(b.keys, key)
	} else {
		b.keys[key] = rest
	}
	b.rw.Unlock()

	b.deleteStream(uuid)
	b.opts.logger.Infof("close stream %s: %s", uuid, key.Name())

	if len(rest) > 0 {
		return nil
	}
	delete(b.subscribed, key)
	err := b.wsm.Unsubscribe(ctx, key.Channel, key.Symbol)
	if errors.Is(err, wsmanager.ErrNotConnected) {
		return nil
	}
	return err
}

func (b *BackpackStream) StreamList() []streammanager.Stream {
	connected := b.wsm.IsConnected()

	b.rw.RLock()
	list := make([]streammanager.Stream, 0, len(b.streams))
	for _, e := range b.streams {
		list = append(list, streammanager.Stream{
			UUID:        e.UUID,
			Exchange:    b.name,
			Channel:     e.Channel,
			Symbol:      e.Symbol,
			CreatedTime: e.CreatedTime,
			IsConnected: connected,
		})
	}
	b.rw.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedTime.Equal(list[j].CreatedTime) {
			return list[i].UUID < list[j].UUID
		}
		return list[i].CreatedTime.Before(list[j].CreatedTime)
	})
	return list
}

// RestoreStreams 断线重连后重新订阅记录中的所有订阅键, 不会自动调用
func (b *BackpackStream) RestoreStreams(ctx context.Context) error {
	b.mux.Lock()
	defer b.mux.Unlock()
	if b.isClosed() {
		return ErrStreamClosed
	}
	if err := b.ensureConnected(ctx); err != nil {
		return err
	}

	b.rw.RLock()
	keys := make([]exchange.StreamKey, 0, len(b.keys))
	for k := range b.keys {
		keys = append(keys, k)
	}
	b.rw.RUnlock()
	sort.Slice(keys, func(i, j int) bool { return keys[i].Name() < keys[j].Name() })

	connID := b.wsm.ID()
	var errs []error
	for _, k := range keys {
		if err := b.wsm.Subscribe(ctx, k.Channel, k.Symbol, b.route(k)); err != nil {
			delete(b.subscribed, k)
			errs = append(errs, err)
			continue
		}
		b.subscribed[k] = connID
		b.opts.logger.Infof("restore %s", k.Name())
	}
	return errors.Join(errs...)
}

// Shutdown 关闭连接, redis 中的订阅列表保留
func (b *BackpackStream) Shutdown() error {
	b.mux.Lock()
	defer b.mux.Unlock()

	b.rw.Lock()
	if b.closed {
		b.rw.Unlock()
		return nil
	}
	b.closed = true
	b.streams = make(map[string]*streamEntry)
	b.keys = make(map[exchange.StreamKey][]string)
	b.rw.Unlock()
	b.subscribed = make(map[exchange.StreamKey]string)

	return b.wsm.Shutdown()
}

func (b *BackpackStream) isClosed() bool {
	b.rw.RLock()
	defer b.rw.RUnlock()
	return b.closed
}

func (b *BackpackStream) ensureConnected(ctx context.Context) error {
	if b.wsm.IsConnected() {
		return nil
	}
	return b.wsm.Connect(ctx, b.opts.endpoint)
}

// subscribe 当前连接上尚未订阅时才向交易所发送订阅, 调用方持有 mux.
// 从 redis 载入或断线后残留的 stream 不算已订阅
func (b *BackpackStream) subscribe(ctx context.Context, key exchange.StreamKey) error {
	connID := b.wsm.ID()
	if id, ok := b.subscribed[key]; ok && id != "" && id == connID {
		return nil
	}
	if err := b.wsm.Subscribe(ctx, key.Channel, key.Symbol, b.route(key)); err != nil {
		delete(b.subscribed, key)
		return err
	}
	b.subscribed[key] = connID
	return nil
}

// route 返回订阅键的消费者, 在连接的读协程中串行调用
func (b *BackpackStream) route(key exchange.StreamKey) dispatch.Handler {
	return func(evt exchange.Event) {
		b.rw.RLock()
		entries := make([]*streamEntry, 0, len(b.keys[key]))
		for _, id := range b.keys[key] {
			if e, ok := b.streams[id]; ok {
				entries = append(entries, e)
			}
		}
		b.rw.RUnlock()

		for _, e := range entries {
			b.deliver(e, evt)
		}
		b.publish(evt)
	}
}

func (b *BackpackStream) deliver(e *streamEntry, evt exchange.Event) {
	h := e.event
	if h == nil {
		h = b.opts.eventHandler
	}
	if h == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			err := &dispatch.PanicError{Key: e.key(), Value: r}
			b.opts.logger.Errorf("stream %s: %v", e.UUID, err)
			b.reportError(e, err)
		}
	}()
	h(evt)
}

func (b *BackpackStream) publish(evt exchange.Event) {
	if b.opts.publisher == nil {
		return
	}
	msg, err := broker.NewEventMessage(evt)
	if err != nil {
		b.opts.logger.Errorf("encode event: %v", err)
		b.reportError(nil, err)
		return
	}
	topic := b.opts.topic
	if topic == "" {
		topic = broker.TopicOf(evt)
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.opts.publishTimeout)
	defer cancel()
	if err := b.opts.publisher.Publish(ctx, topic, msg); err != nil {
		b.opts.logger.Errorf("publish %s: %v", evt.Key(), err)
		b.reportError(nil, err)
	}
}

func (b *BackpackStream) reportError(e *streamEntry, err error) {
	if e != nil && e.errorHandler != nil {
		e.errorHandler(err)
		return
	}
	if b.opts.errorHandler != nil {
		b.opts.errorHandler(err)
	}
}

func (b *BackpackStream) initStreamsFromStore() {
	if b.opts.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.opts.storeTimeout)
	defer cancel()
	list, err := b.opts.store.Load(ctx)
	if err != nil {
		b.opts.logger.Errorf("load streams: %v", err)
		return
	}
	b.rw.Lock()
	defer b.rw.Unlock()
	for _, e := range list {
		if _, err := streamKey(e.Channel, e.Symbol); err != nil {
			b.opts.logger.Warnf("skip stream %s: %v", e.UUID, err)
			continue
		}
		b.streams[e.UUID] = e
		b.keys[e.key()] = append(b.keys[e.key()], e.UUID)
	}
}

func (b *BackpackStream) saveStream(e *streamEntry) {
	if b.opts.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.opts.storeTimeout)
	defer cancel()
	if err := b.opts.store.Save(ctx, e); err != nil {
		b.opts.logger.Warnf("save stream %s: %v", e.UUID, err)
	}
}

func (b *BackpackStream) deleteStream(uuid string) {
	if b.opts.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.opts.storeTimeout)
	defer cancel()
	if err := b.opts.store.Delete(ctx, uuid); err != nil {
		b.opts.logger.Warnf("delete stream %s: %v", uuid, err)
	}
}

func removeUUID(list []string, uuid string) []string {
	for i, v := range list {
		if v == uuid {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}
