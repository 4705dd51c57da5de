package broker

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/go-gotop/backpack/exchange"
)

var Json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	MarketTopicType  string = "BACKPACK.MARKET"
	AccountTopicType string = "BACKPACK.ACCOUNT"

	HeaderKind    = "kind"
	HeaderChannel = "channel"
	HeaderSymbol  = "symbol"
)

// TopicOf 账户类频道发往 AccountTopicType, 其余发往 MarketTopicType
func TopicOf(evt exchange.Event) string {
	if evt.Key().Channel.IsPrivate() {
		return AccountTopicType
	}
	return MarketTopicType
}

// NewEventMessage 以交易对作为消息 key, 同一交易对的消息落在同一分区
func NewEventMessage(evt exchange.Event) (*Message, error) {
	body, err := Json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("broker: encode %s event: %w", evt.Kind(), err)
	}
	key := evt.Key()
	return &Message{
		Headers: Headers{
			HeaderKind:    string(evt.Kind()),
			HeaderChannel: string(key.Channel),
			HeaderSymbol:  key.Symbol,
		},
		Key:  []byte(key.Symbol),
		Body: body,
	}, nil
}
