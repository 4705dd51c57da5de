package sampler

import (
	"github.com/shopspring/decimal"

	"github.com/go-gotop/backpack/exchange"
)

type PricePoint struct {
	Timestamp int64
	Price     decimal.Decimal
}

// AggregatedTrade 一个时间窗口内的逐笔成交聚合
type AggregatedTrade struct {
	Symbol         string
	SellCount      uint64
	BuyCount       uint64
	Timestamp      int64
	OpenPrice      PricePoint
	ClosePrice     PricePoint
	HighestPrice   PricePoint
	LowestPrice    PricePoint
	TotalBuySize   decimal.Decimal
	TotalSellSize  decimal.Decimal
	TotalBuyQuote  decimal.Decimal
	TotalSellQuote decimal.Decimal
}

// Difference 窗口内先出现的极值到后出现的极值的价差
func (a *AggregatedTrade) Difference() decimal.Decimal {
	head, tail := a.PriceRange()
	return tail.Price.Sub(head.Price)
}

// PriceRange returns the prices at the highest and lowest points, ordered by time.
func (a *AggregatedTrade) PriceRange() (head PricePoint, tail PricePoint) {
	head = a.HighestPrice
	tail = a.LowestPrice
	if a.HighestPrice.Timestamp > a.LowestPrice.Timestamp {
		head = a.LowestPrice
		tail = a.HighestPrice
	}
	return
}

func (a *AggregatedTrade) IsUp() bool {
	head, tail := a.PriceRange()
	return tail.Price.GreaterThan(head.Price)
}

func (a *AggregatedTrade) Equal() bool {
	return a.HighestPrice.Price.Equal(a.LowestPrice.Price)
}

func (a *AggregatedTrade) Count() uint64 {
	return a.BuyCount + a.SellCount
}

// Sampler is the interface that wraps the basic Sample method.
type Sampler interface {
	// Sample 返回上一个已结束窗口的聚合结果, 窗口未结束时返回 nil
	Sample(te *exchange.TradeEvent) *AggregatedTrade
	// Flush 返回当前未结束窗口的聚合结果并清空
	Flush() *AggregatedTrade
}
