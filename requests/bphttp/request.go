package bphttp

import (
	"fmt"
	"net/http"
	"net/url"
	"reflect"

	"github.com/go-gotop/backpack/limiter"
)

type SecType int

const (
	SecTypeNone   SecType = iota
	SecTypeSigned         // 需要 X-API-Key / X-Timestamp / X-Signature
)

type Params map[string]interface{}

// Request define an API request
type Request struct {
	Method    string
	Endpoint  string
	SecType   SecType
	LimitType limiter.LimitType
	query     url.Values
	body      interface{}
	window    int64
	header    http.Header
	fullURL   string
	payload   []byte
}

// AddParam add param with key/value to query string
func (r *Request) AddParam(key string, value interface{}) *Request {
	if r.query == nil {
		r.query = url.Values{}
	}
	r.query.Add(key, fmt.Sprintf("%v", value))
	return r
}

// SetParam set param with key/value to query string
func (r *Request) SetParam(key string, value interface{}) *Request {
	if r.query == nil {
		r.query = url.Values{}
	}

	if reflect.TypeOf(value).Kind() == reflect.Slice {
		v, err := Json.Marshal(value)
		if err == nil {
			value = string(v)
		}
	}

	r.query.Set(key, fmt.Sprintf("%v", value))
	return r
}

// SetParams set params with key/values to query string
func (r *Request) SetParams(m Params) *Request {
	for k, v := range m {
		r.SetParam(k, v)
	}
	return r
}

// SetBody 请求体, 以 JSON 发送
func (r *Request) SetBody(v interface{}) *Request {
	r.body = v
	return r
}

func (r *Request) validate() (err error) {
	if r.Method == "" {
		r.Method = http.MethodGet
	}
	if r.query == nil {
		r.query = url.Values{}
	}
	if r.LimitType == "" {
		r.LimitType = limiter.NormalRequestLimit
	}
	return nil
}

// RequestOption define option type for request
type RequestOption func(*Request)

// WithWindow 覆盖客户端默认的签名窗口
func WithWindow(window int64) RequestOption {
	return func(r *Request) {
		r.window = window
	}
}

// WithHeader set or add a header value to the request
func WithHeader(key, value string, replace bool) RequestOption {
	return func(r *Request) {
		if r.header == nil {
			r.header = http.Header{}
		}
		if replace {
			r.header.Set(key, value)
		} else {
			r.header.Add(key, value)
		}
	}
}

// WithHeaders set or replace the headers of the request
func WithHeaders(header http.Header) RequestOption {
	return func(r *Request) {
		r.header = header.Clone()
	}
}
