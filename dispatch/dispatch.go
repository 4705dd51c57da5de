package dispatch

import (
	"fmt"
	"sync"

	"github.com/go-gotop/backpack/exchange"
)

// Handler 频道消费者
type Handler func(evt exchange.Event)

// PanicError 消费者 panic 时上报的错误
type PanicError struct {
	Key   exchange.StreamKey
	Value interface{}
}

func (e *PanicError) Error() string {
	if e.Key.Channel == "" {
		return fmt.Sprintf("dispatch: catch-all handler panic: %v", e.Value)
	}
	return fmt.Sprintf("dispatch: handler %s panic: %v", e.Key, e.Value)
}

type Option func(*Table)

// WithErrorHandler 设置消费者 panic 的回调
func WithErrorHandler(h func(err error)) Option {
	return func(t *Table) {
		t.errorHandler = h
	}
}

// Table maps (channel, symbol) to a consumer, with one catch-all slot.
// Handlers run outside the lock so they may register or unregister.
type Table struct {
	mu           sync.RWMutex
	handlers     map[exchange.StreamKey]Handler
	catchAll     Handler
	errorHandler func(err error)
}

func NewTable(opts ...Option) *Table {
	t := &Table{
		handlers: make(map[exchange.StreamKey]Handler),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func normalize(key exchange.StreamKey) exchange.StreamKey {
	return exchange.NewStreamKey(key.Channel, key.Symbol)
}

// Register 注册或替换消费者, Symbol 为空时匹配该频道的所有交易对
func (t *Table) Register(key exchange.StreamKey, h Handler) {
	if h == nil {
		t.Unregister(key)
		return
	}
	t.mu.Lock()
	t.handlers[normalize(key)] = h
	t.mu.Unlock()
}

func (t *Table) RegisterCatchAll(h Handler) {
	t.mu.Lock()
	t.catchAll = h
	t.mu.Unlock()
}

func (t *Table) Unregister(key exchange.StreamKey) {
	t.mu.Lock()
	delete(t.handlers, normalize(key))
	t.mu.Unlock()
}

// Lookup returns the exact handler, falling back to the (channel, "") wildcard.
func (t *Table) Lookup(key exchange.StreamKey) (Handler, bool) {
	key = normalize(key)
	t.mu.RLock()
	defer t.mu.RUnlock()
	if h, ok := t.handlers[key]; ok {
		return h, true
	}
	if key.Symbol != "" {
		if h, ok := t.handlers[exchange.StreamKey{Channel: key.Channel}]; ok {
			return h, true
		}
	}
	return nil, false
}

// Route 先调用 catch-all, 再按订阅键路由. 未匹配的数据直接丢弃
// 返回是否命中了具体的消费者
func (t *Table) Route(key exchange.StreamKey, evt exchange.Event) bool {
	t.mu.RLock()
	catchAll := t.catchAll
	t.mu.RUnlock()

	if catchAll != nil {
		t.call(exchange.StreamKey{}, catchAll, evt)
	}

	h, ok := t.Lookup(key)
	if !ok {
		return false
	}
	t.call(key, h, evt)
	return true
}

func (t *Table) call(key exchange.StreamKey, h Handler, evt exchange.Event) {
	defer func() {
		if r := recover(); r != nil && t.errorHandler != nil {
			t.errorHandler(&PanicError{Key: key, Value: r})
		}
	}()
	h(evt)
}

// Clear 清空所有消费者, 包括 catch-all
func (t *Table) Clear() {
	t.mu.Lock()
	t.handlers = make(map[exchange.StreamKey]Handler)
	t.catchAll = nil
	t.mu.Unlock()
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.handlers)
}

func (t *Table) Keys() []exchange.StreamKey {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys := make([]exchange.StreamKey, 0, len(t.handlers))
	for k := range t.handlers {
		keys = append(keys, k)
	}
	return keys
}
