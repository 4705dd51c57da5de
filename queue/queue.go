package queue

import (
	"errors"
	"sync"
)

// DefaultCapacity 默认队列容量
const DefaultCapacity = 1024

var (
	ErrQueueFull = errors.New("queue: full")
	ErrClosed    = errors.New("queue: closed")
)

// Frame 待发送的文本帧
type Frame struct {
	Payload []byte
	// Result 非空时写入结果会回传, 用于同步发送
	Result chan error
}

func NewFrame(payload []byte) *Frame {
	return &Frame{Payload: payload}
}

// NewSyncFrame 创建需要回传写入结果的帧
func NewSyncFrame(payload []byte) *Frame {
	return &Frame{Payload: payload, Result: make(chan error, 1)}
}

// Done reports the write result to a synchronous sender, if any.
func (f *Frame) Done(err error) {
	if f.Result == nil {
		return
	}
	select {
	case f.Result <- err:
	default:
	}
}

// Queue is a bounded FIFO with a single blocking consumer. Push never blocks.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []*Frame
	head   int
	size   int
	closed bool
}

func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	q := &Queue{buf: make([]*Frame, capacity)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push 入队, 队列已满时立即返回 ErrQueueFull
func (q *Queue) Push(f *Frame) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	if q.size == len(q.buf) {
		return ErrQueueFull
	}
	q.buf[(q.head+q.size)%len(q.buf)] = f
	q.size++
	q.cond.Signal()
	return nil
}

// PopBlocking waits for the next frame. It returns false once the queue is closed.
func (q *Queue) PopBlocking() (*Frame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.size == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		return nil, false
	}
	return q.pop(), true
}

func (q *Queue) TryPop() (*Frame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || q.size == 0 {
		return nil, false
	}
	return q.pop(), true
}

func (q *Queue) pop() *Frame {
	f := q.buf[q.head]
	q.buf[q.head] = nil
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return f
}

// Close 关闭队列并唤醒阻塞的消费者, 返回未发送的帧
func (q *Queue) Close() []*Frame {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	pending := make([]*Frame, 0, q.size)
	for q.size > 0 {
		pending = append(pending, q.pop())
	}
	q.cond.Broadcast()
	return pending
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

func (q *Queue) Cap() int {
	return len(q.buf)
}

func (q *Queue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
