package limiter

type Option func(*Options)

// PeriodLimit 周期内允许的次数, 例如 "1s" 内 5 次
type PeriodLimit struct {
	WsConnectPeriod     string
	WsConnectTimes      int64
	OrderPeriod         string
	OrderTimes          int64
	NormalRequestPeriod string
	NormalRequestTimes  int64
}

type Options struct {
	// 请求次数限制, 同一类型的多个周期同时生效
	PeriodLimitArray []PeriodLimit
}

func WithPeriodLimitArray(p []PeriodLimit) Option {
	return func(o *Options) {
		o.PeriodLimitArray = p
	}
}

// WithPeriodLimit 追加一组周期限制
func WithPeriodLimit(p PeriodLimit) Option {
	return func(o *Options) {
		o.PeriodLimitArray = append(o.PeriodLimitArray, p)
	}
}
