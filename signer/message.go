package signer

import (
	"strconv"
	"strings"
)

// AuthMessage 构造 websocket 登录签名原文: timestamp + window
func AuthMessage(timestamp, window int64) []byte {
	return []byte(strconv.FormatInt(timestamp, 10) + strconv.FormatInt(window, 10))
}

// RequestMessage 构造 REST 请求签名原文: METHOD + path [+ "?" + query] + timestamp [+ body]
// query 需为已编码且排好序的查询串
func RequestMessage(method, path, query string, timestamp int64, body []byte) []byte {
	var b strings.Builder
	b.Grow(len(method) + len(path) + len(query) + len(body) + 16)
	b.WriteString(strings.ToUpper(method))
	b.WriteString(path)
	if query != "" {
		b.WriteByte('?')
		b.WriteString(query)
	}
	b.WriteString(strconv.FormatInt(timestamp, 10))
	if len(body) > 0 {
		b.Write(body)
	}
	return []byte(b.String())
}
