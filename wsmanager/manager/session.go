package manager

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gotop/backpack/queue"
	"github.com/go-gotop/backpack/websocket"
	"github.com/go-gotop/backpack/wsmanager"
)

// session 一次物理连接. 读协程, 写协程和心跳协程都绑定在 session 上,
// 断线后旧 session 整体作废, 重连会创建新的 session
type session struct {
	id          string
	conn        websocket.WebSocketConn
	queue       *queue.Queue
	connectTime time.Time

	closeCh   chan struct{} // 关闭信号
	closeOnce sync.Once
	wg        sync.WaitGroup

	messageCount uint64 // 收到的消息数
	closeErr     error
}

func newSession(id string, conn websocket.WebSocketConn, queueSize int) *session {
	return &session{
		id:          id,
		conn:        conn,
		queue:       queue.New(queueSize),
		connectTime: time.Now(),
		closeCh:     make(chan struct{}),
	}
}

// stop 关闭 session, 未发送的帧以 ErrNotConnected 结束. 可重复调用
func (s *session) stop() error {
	s.closeOnce.Do(func() {
		close(s.closeCh)
		for _, f := range s.queue.Close() {
			f.Done(wsmanager.ErrNotConnected)
		}
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

func (s *session) closed() bool {
	select {
	case <-s.closeCh:
		return true
	default:
		return false
	}
}

func (s *session) received() {
	atomic.AddUint64(&s.messageCount, 1)
}

func (s *session) duration() time.Duration {
	return time.Since(s.connectTime)
}

// rate 平均每秒收到的消息数
func (s *session) rate() int {
	d := s.duration().Seconds()
	if d < 1 {
		return int(atomic.LoadUint64(&s.messageCount))
	}
	return int(float64(atomic.LoadUint64(&s.messageCount)) / d)
}
