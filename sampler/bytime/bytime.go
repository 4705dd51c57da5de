package bytime

import (
	"github.com/go-gotop/backpack/exchange"
	"github.com/go-gotop/backpack/sampler"
)

func NewByTime(ms int64) sampler.Sampler {
	return &millisecond{
		ms: ms,
	}
}

func timestampMod(t int64, m int64) int64 {
	return t % m
}

func toPrice(te *exchange.TradeEvent) sampler.PricePoint {
	return sampler.PricePoint{
		Timestamp: int64(te.Timestamp),
		Price:     te.Price,
	}
}

func toAgg(te *exchange.TradeEvent, ms int64) *sampler.AggregatedTrade {
	ts := int64(te.Timestamp)
	agg := &sampler.AggregatedTrade{
		Symbol: te.Symbol,
		// 当前逐笔数据的时间戳减掉余数
		Timestamp:    ts - timestampMod(ts, ms),
		HighestPrice: toPrice(te),
		LowestPrice:  toPrice(te),
		OpenPrice:    toPrice(te),
		ClosePrice:   toPrice(te),
	}
	if te.Side() == exchange.SideTypeBuy {
		agg.TotalBuyQuote = te.Price.Mul(te.Quantity)
		agg.TotalBuySize = te.Quantity
		agg.BuyCount = 1
	} else {
		agg.TotalSellQuote = te.Price.Mul(te.Quantity)
		agg.TotalSellSize = te.Quantity
		agg.SellCount = 1
	}
	return agg
}

// millisecond 非并发安全, 每个交易对一个实例
type millisecond struct {
	ms  int64
	agg *sampler.AggregatedTrade
}

func (m *millisecond) Sample(te *exchange.TradeEvent) (agg *sampler.AggregatedTrade) {
	if m.agg == nil {
		m.agg = toAgg(te, m.ms)
		return
	}
	if int64(te.Timestamp) >= m.agg.Timestamp+m.ms {
		agg = m.agg
		m.agg = toAgg(te, m.ms)
	} else {
		m.aggregate(te)
	}
	return
}

func (m *millisecond) Flush() (agg *sampler.AggregatedTrade) {
	agg, m.agg = m.agg, nil
	return
}

func (m *millisecond) aggregate(te *exchange.TradeEvent) {
	m.agg.ClosePrice = toPrice(te)
	quote := te.Price.Mul(te.Quantity)
	if te.Side() == exchange.SideTypeBuy {
		m.agg.BuyCount++
		m.agg.TotalBuyQuote = m.agg.TotalBuyQuote.Add(quote)
		m.agg.TotalBuySize = m.agg.TotalBuySize.Add(te.Quantity)
	} else {
		m.agg.SellCount++
		m.agg.TotalSellQuote = m.agg.TotalSellQuote.Add(quote)
		m.agg.TotalSellSize = m.agg.TotalSellSize.Add(te.Quantity)
	}
	if te.Price.GreaterThan(m.agg.HighestPrice.Price) {
		m.agg.HighestPrice = toPrice(te)
	}
	if te.Price.LessThan(m.agg.LowestPrice.Price) {
		m.agg.LowestPrice = toPrice(te)
	}
}
