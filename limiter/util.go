package limiter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ParsePeriod 解析 period 字符串, 返回时间单位和数量, 例如 "10s" -> (time.Second, 10)
func ParsePeriod(period string) (time.Duration, int, error) {
	var unit time.Duration

	period = strings.TrimSpace(period)

	var numStr string
	var unitStr string
	for i, char := range period {
		if char >= '0' && char <= '9' {
			numStr += string(char)
		} else {
			unitStr = period[i:]
			break
		}
	}
	num, err := strconv.Atoi(numStr)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid period %q: %w", period, err)
	}
	switch strings.ToLower(unitStr) {
	case "ms":
		unit = time.Millisecond
	case "s":
		unit = time.Second
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	default:
		return 0, 0, fmt.Errorf("unsupported time unit: %s", unitStr)
	}
	return unit, num, nil
}

// NewPeriodLimiter 周期内最多 times 次, 允许整周期的突发
func NewPeriodLimiter(period string, times int64) (*rate.Limiter, error) {
	if times <= 0 {
		return nil, fmt.Errorf("invalid times %d for period %q", times, period)
	}
	unit, n, err := ParsePeriod(period)
	if err != nil {
		return nil, err
	}
	every := unit * time.Duration(n) / time.Duration(times)
	return rate.NewLimiter(rate.Every(every), int(times)), nil
}

// BuildLimiters 按类型收集所有周期限制
func BuildLimiters(periodLimitArray []PeriodLimit) (map[LimitType][]*rate.Limiter, error) {
	limiterMap := make(map[LimitType][]*rate.Limiter)
	for _, pl := range periodLimitArray {
		groups := []struct {
			t      LimitType
			period string
			times  int64
		}{
			{WsConnectLimit, pl.WsConnectPeriod, pl.WsConnectTimes},
			{OrderLimit, pl.OrderPeriod, pl.OrderTimes},
			{NormalRequestLimit, pl.NormalRequestPeriod, pl.NormalRequestTimes},
		}
		for _, g := range groups {
			if g.period == "" || g.times == 0 {
				continue
			}
			l, err := NewPeriodLimiter(g.period, g.times)
			if err != nil {
				return nil, err
			}
			limiterMap[g.t] = append(limiterMap[g.t], l)
		}
	}
	return limiterMap, nil
}

// LimiterAllow 所有周期都允许时才放行
func LimiterAllow(l []*rate.Limiter) bool {
	now := time.Now()
	for _, limiter := range l {
		if !limiter.AllowN(now, 1) {
			return false
		}
	}
	return true
}
