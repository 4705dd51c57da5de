package manager

import (
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/go-gotop/backpack/exchange"
)

var Json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	MethodSubscribe   = "SUBSCRIBE"
	MethodUnsubscribe = "UNSUBSCRIBE"
)

var errUnrecognizedFrame = errors.New("unrecognized frame")

// 字段顺序即线上顺序: {"method":"SUBSCRIBE","params":["ticker.SOL_USDC"]}
type subscribeFrame struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
}

type authFrame struct {
	Type      string `json:"type"`
	Key       string `json:"key"`
	Timestamp int64  `json:"timestamp"`
	Window    int64  `json:"window"`
	Signature string `json:"signature"`
}

type pingFrame struct {
	Type string `json:"type"`
}

type wireError struct {
	Code    jsoniter.RawMessage `json:"code"`
	Message string              `json:"message"`
}

// envelope 覆盖所有入站帧的顶层字段
type envelope struct {
	Stream  string              `json:"stream"`
	Data    jsoniter.RawMessage `json:"data"`
	Type    string              `json:"type"`
	Success bool                `json:"success"`
	Code    jsoniter.RawMessage `json:"code"`
	Message string              `json:"message"`
	Error   *wireError          `json:"error"`
}

// EncodeSubscribe 订阅帧, method 为 SUBSCRIBE 或 UNSUBSCRIBE
func EncodeSubscribe(method string, key exchange.StreamKey) ([]byte, error) {
	return Json.Marshal(&subscribeFrame{
		Method: method,
		Params: []string{key.Name()},
	})
}

func EncodeAuth(apiKey string, timestamp, window int64, signature string) ([]byte, error) {
	return Json.Marshal(&authFrame{
		Type:      "auth",
		Key:       apiKey,
		Timestamp: timestamp,
		Window:    window,
		Signature: signature,
	})
}

func EncodePing() []byte {
	b, _ := Json.Marshal(&pingFrame{Type: "ping"})
	return b
}

// Decode 将入站文本帧解码为事件. 数据帧按 stream 名称选择事件类型
func Decode(msg []byte) (exchange.Event, error) {
	var env envelope
	if err := Json.Unmarshal(msg, &env); err != nil {
		return nil, err
	}

	if env.Stream != "" {
		key, ok := exchange.ParseStreamName(env.Stream)
		if !ok {
			return nil, fmt.Errorf("unknown stream %q", env.Stream)
		}
		if len(env.Data) == 0 || string(env.Data) == "null" {
			return nil, fmt.Errorf("stream %q: missing data", env.Stream)
		}
		evt, _ := exchange.NewChannelEvent(key)
		if err := Json.Unmarshal(env.Data, evt); err != nil {
			return nil, fmt.Errorf("stream %q: %w", env.Stream, err)
		}
		return evt, nil
	}

	if env.Error != nil {
		return &exchange.ErrorEvent{Code: rawString(env.Error.Code), Message: env.Error.Message}, nil
	}

	switch env.Type {
	case "auth":
		return &exchange.AuthAckEvent{Success: env.Success, Message: env.Message}, nil
	case "pong":
		return &exchange.PongEvent{}, nil
	case "error":
		return &exchange.ErrorEvent{Code: rawString(env.Code), Message: env.Message}, nil
	}
	return nil, errUnrecognizedFrame
}

// rawString code 可能是数字也可能是字符串
func rawString(raw jsoniter.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "null" {
		return ""
	}
	return strings.Trim(s, `"`)
}
