package exchange

// Channel 可订阅的数据流类型
type Channel string

const (
	ChannelTicker        Channel = "ticker"
	ChannelTrades        Channel = "trades"
	ChannelCandles1m     Channel = "candles1m"
	ChannelCandles5m     Channel = "candles5m"
	ChannelCandles15m    Channel = "candles15m"
	ChannelCandles1h     Channel = "candles1h"
	ChannelCandles4h     Channel = "candles4h"
	ChannelCandles1d     Channel = "candles1d"
	ChannelDepth         Channel = "depth"
	ChannelDepthSnapshot Channel = "depthSnapshot"
	ChannelUserOrders    Channel = "userOrders"
	ChannelUserTrades    Channel = "userTrades"
	ChannelUserPositions Channel = "userPositions"
	ChannelUserBalances  Channel = "userBalances"
)

var (
	allChannels = []Channel{
		ChannelTicker,
		ChannelTrades,
		ChannelCandles1m,
		ChannelCandles5m,
		ChannelCandles15m,
		ChannelCandles1h,
		ChannelCandles4h,
		ChannelCandles1d,
		ChannelDepth,
		ChannelDepthSnapshot,
		ChannelUserOrders,
		ChannelUserTrades,
		ChannelUserPositions,
		ChannelUserBalances,
	}

	candleIntervals = map[Channel]string{
		ChannelCandles1m:  "1m",
		ChannelCandles5m:  "5m",
		ChannelCandles15m: "15m",
		ChannelCandles1h:  "1h",
		ChannelCandles4h:  "4h",
		ChannelCandles1d:  "1d",
	}

	channelSet = func() map[string]Channel {
		m := make(map[string]Channel, len(allChannels))
		for _, c := range allChannels {
			m[string(c)] = c
		}
		return m
	}()
)

// Channels 返回所有频道
func Channels() []Channel {
	out := make([]Channel, len(allChannels))
	copy(out, allChannels)
	return out
}

// ParseChannel maps a wire stream name to its channel. Unknown names are
// reported with ok == false and never fall back to a default channel.
func ParseChannel(s string) (Channel, bool) {
	c, ok := channelSet[s]
	return c, ok
}

func (c Channel) String() string {
	return string(c)
}

func (c Channel) IsValid() bool {
	_, ok := channelSet[string(c)]
	return ok
}

// IsPrivate 账户类频道需要登录
func (c Channel) IsPrivate() bool {
	switch c {
	case ChannelUserOrders, ChannelUserTrades, ChannelUserPositions, ChannelUserBalances:
		return true
	}
	return false
}

func (c Channel) IsCandle() bool {
	_, ok := candleIntervals[c]
	return ok
}

// Interval K线周期, 非K线频道返回空串
func (c Channel) Interval() string {
	return candleIntervals[c]
}

// CandleChannel 根据周期查找K线频道
func CandleChannel(interval string) (Channel, bool) {
	for c, i := range candleIntervals {
		if i == interval {
			return c, true
		}
	}
	return "", false
}
