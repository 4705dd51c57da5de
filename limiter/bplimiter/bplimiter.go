package bplimiter

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/go-gotop/backpack/limiter"
)

// NewBackpackLimiter 进程内限流, 默认值参考交易所公开的限频
func NewBackpackLimiter(opts ...limiter.Option) (*BackpackLimiter, error) {
	o := &limiter.Options{}
	for _, opt := range opts {
		opt(o)
	}
	if len(o.PeriodLimitArray) == 0 {
		o.PeriodLimitArray = []limiter.PeriodLimit{
			{
				WsConnectPeriod:     "1m",
				WsConnectTimes:      30,
				OrderPeriod:         "1s",
				OrderTimes:          20,
				NormalRequestPeriod: "1s",
				NormalRequestTimes:  20,
			},
		}
	}

	m, err := limiter.BuildLimiters(o.PeriodLimitArray)
	if err != nil {
		return nil, err
	}
	return &BackpackLimiter{
		opts:       o,
		limiterMap: m,
	}, nil
}

type BackpackLimiter struct {
	opts       *limiter.Options
	limiterMap map[limiter.LimitType][]*rate.Limiter // 限流器
	mutex      sync.Mutex
}

func (b *BackpackLimiter) WsAllow() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return limiter.LimiterAllow(b.limiterMap[limiter.WsConnectLimit])
}

func (b *BackpackLimiter) RestAllow(t *limiter.LimiterReq) bool {
	lt := limiter.NormalRequestLimit
	if t != nil && t.LimiterType != "" {
		lt = t.LimiterType
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return limiter.LimiterAllow(b.limiterMap[lt])
}
