package streambackpack

import (
	"context"
	"fmt"

	"github.com/go-gotop/backpack/exchange"
	"github.com/go-gotop/backpack/sampler"
	"github.com/go-gotop/backpack/sampler/bytime"
	"github.com/go-gotop/backpack/streammanager"
)

// typed 只把指定类型的事件交给 h, h 为 nil 时只发布到消息队列
func typed[T exchange.Event](h func(T)) func(evt exchange.Event) {
	if h == nil {
		return nil
	}
	return func(evt exchange.Event) {
		if e, ok := evt.(T); ok {
			h(e)
		}
	}
}

func (b *BackpackStream) subscribeStream(ctx context.Context, channel exchange.Channel, symbol string, h func(evt exchange.Event)) (string, error) {
	return b.AddStream(ctx, &streammanager.StreamRequest{
		Channel: channel,
		Symbol:  symbol,
		Event:   h,
	})
}

func (b *BackpackStream) SubscribeTicker(ctx context.Context, symbol string, h func(evt *exchange.TickerEvent)) (string, error) {
	return b.subscribeStream(ctx, exchange.ChannelTicker, symbol, typed(h))
}

func (b *BackpackStream) SubscribeTrades(ctx context.Context, symbol string, h func(evt *exchange.TradeEvent)) (string, error) {
	return b.subscribeStream(ctx, exchange.ChannelTrades, symbol, typed(h))
}

// SubscribeCandles channel 必须是K线频道
func (b *BackpackStream) SubscribeCandles(ctx context.Context, channel exchange.Channel, symbol string, h func(evt *exchange.CandleEvent)) (string, error) {
	if !channel.IsCandle() {
		return "", fmt.Errorf("%w: %s", exchange.ErrNotCandleChannel, channel)
	}
	return b.subscribeStream(ctx, channel, symbol, typed(h))
}

func (b *BackpackStream) SubscribeDepth(ctx context.Context, symbol string, h func(evt *exchange.DepthEvent)) (string, error) {
	return b.subscribeStream(ctx, exchange.ChannelDepth, symbol, typed(h))
}

func (b *BackpackStream) SubscribeDepthSnapshot(ctx context.Context, symbol string, h func(evt *exchange.DepthEvent)) (string, error) {
	return b.subscribeStream(ctx, exchange.ChannelDepthSnapshot, symbol, typed(h))
}

func (b *BackpackStream) SubscribeUserOrders(ctx context.Context, h func(evt *exchange.OrderEvent)) (string, error) {
	return b.subscribeStream(ctx, exchange.ChannelUserOrders, "", typed(h))
}

func (b *BackpackStream) SubscribeUserTrades(ctx context.Context, h func(evt *exchange.TradeEvent)) (string, error) {
	return b.subscribeStream(ctx, exchange.ChannelUserTrades, "", typed(h))
}

func (b *BackpackStream) SubscribeUserPositions(ctx context.Context, h func(evt *exchange.PositionEvent)) (string, error) {
	return b.subscribeStream(ctx, exchange.ChannelUserPositions, "", typed(h))
}

func (b *BackpackStream) SubscribeUserBalances(ctx context.Context, h func(evt *exchange.BalanceEvent)) (string, error) {
	return b.subscribeStream(ctx, exchange.ChannelUserBalances, "", typed(h))
}

// SubscribeAggTrades 按 ms 毫秒窗口聚合逐笔成交, 窗口结束后收到下一笔成交时回调
func (b *BackpackStream) SubscribeAggTrades(ctx context.Context, symbol string, ms int64, h func(agg *sampler.AggregatedTrade)) (string, error) {
	if ms <= 0 {
		return "", fmt.Errorf("invalid sample window %dms", ms)
	}
	s := bytime.NewByTime(ms)
	return b.subscribeStream(ctx, exchange.ChannelTrades, symbol, typed(func(evt *exchange.TradeEvent) {
		if agg := s.Sample(evt); agg != nil {
			h(agg)
		}
	}))
}
