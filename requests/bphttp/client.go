package bphttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/bitly/go-simplejson"
	"github.com/go-kratos/kratos/v2/log"
	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-gotop/backpack/limiter"
	"github.com/go-gotop/backpack/signer"
)

const (
	DefaultBaseURL = "https://api.backpack.exchange"

	HeaderAPIKey    = "X-API-Key"
	HeaderTimestamp = "X-Timestamp"
	HeaderWindow    = "X-Window"
	HeaderSignature = "X-Signature"

	tracerName = "github.com/go-gotop/backpack/requests/bphttp"
)

var (
	ErrLimitExceed   = errors.New("rest request too frequent, please try again later")
	ErrNoCredentials = errors.New("signed request without credentials")
)

// Redefining the standard package
var Json = jsoniter.ConfigCompatibleWithStandardLibrary

func currentTimestamp() int64 {
	return FormatTimestamp(time.Now())
}

// FormatTimestamp formats a time into Unix timestamp in milliseconds.
func FormatTimestamp(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}

func NewJSON(data []byte) (j *simplejson.Json, err error) {
	j, err = simplejson.NewJson(data)
	if err != nil {
		return nil, err
	}
	return j, nil
}

// NewClient initialize an API client instance.
func NewClient(ops ...Option) *Client {
	opts := &options{
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
		window:     5000,
	}
	for _, o := range ops {
		o(opts)
	}
	if opts.logger == nil {
		opts.logger = log.NewHelper(log.With(log.DefaultLogger, "module", "bphttp"))
	}
	if opts.tracerProvider == nil {
		opts.tracerProvider = otel.GetTracerProvider()
	}
	if opts.proxyUrl != "" {
		proxy, err := url.Parse(opts.proxyUrl)
		if err != nil {
			panic(err)
		}
		opts.httpClient = &http.Client{
			Timeout: opts.httpClient.Timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyURL(proxy),
			},
		}
	}
	c := &Client{
		baseURL:   opts.baseURL,
		userAgent: "GoTop",
		opts:      opts,
		tracer:    opts.tracerProvider.Tracer(tracerName),
	}
	c.timeOffset.Store(opts.timeOffset)
	return c
}

// APIError 交易所返回的错误, 可能出现在任何状态码中
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"msg"`
}

// Error return error code and message
func (e APIError) Error() string {
	return fmt.Sprintf("<APIError> status=%d, code=%s, msg=%s", e.Status, e.Code, e.Message)
}

// IsAPIError check if e is an API error
func IsAPIError(e error) bool {
	var apiErr *APIError
	return errors.As(e, &apiErr)
}

type doFunc func(req *http.Request) (*http.Response, error)

// Client define API client
type Client struct {
	baseURL   string
	opts      *options
	userAgent string
	do        doFunc
	tracer    trace.Tracer

	// timeOffset 可在请求进行中被重新校准
	timeOffset atomic.Int64
}

func (c *Client) parseRequest(r *Request, opts ...RequestOption) (err error) {
	// set request options from user
	for _, opt := range opts {
		opt(r)
	}
	err = r.validate()
	if err != nil {
		return err
	}

	fullURL := fmt.Sprintf("%s%s", c.baseURL, r.Endpoint)
	queryString := r.query.Encode()
	header := http.Header{}
	if r.header != nil {
		header = r.header.Clone()
	}
	header.Set("User-Agent", c.userAgent)

	var payload []byte
	if r.body != nil {
		payload, err = Json.Marshal(r.body)
		if err != nil {
			return err
		}
		header.Set("Content-Type", "application/json; charset=utf-8")
	}

	if r.SecType == SecTypeSigned {
		if c.opts.credentials == nil {
			return ErrNoCredentials
		}
		ts := currentTimestamp() - c.timeOffset.Load()
		apiKey, signature, err := c.opts.credentials.Sign(signer.RequestMessage(r.Method, r.Endpoint, queryString, ts, payload))
		if err != nil {
			return err
		}
		header.Set(HeaderAPIKey, apiKey)
		header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
		header.Set(HeaderSignature, signature)
		window := c.opts.window
		if r.window > 0 {
			window = r.window
		}
		if window > 0 {
			header.Set(HeaderWindow, strconv.FormatInt(window, 10))
		}
	}
	if queryString != "" {
		fullURL = fmt.Sprintf("%s?%s", fullURL, queryString)
	}

	r.fullURL = fullURL
	r.header = header
	r.payload = payload
	return nil
}

func (c *Client) CallAPI(ctx context.Context, r *Request, opts ...RequestOption) (data []byte, err error) {
	if err = r.validate(); err != nil {
		return nil, err
	}
	ctx, span := c.tracer.Start(ctx, fmt.Sprintf("%s %s", r.Method, r.Endpoint),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", r.Endpoint),
			attribute.Bool("backpack.signed", r.SecType == SecTypeSigned),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	err = c.parseRequest(r, opts...)
	if err != nil {
		return []byte{}, err
	}
	if c.opts.limiter != nil && !c.opts.limiter.RestAllow(&limiter.LimiterReq{
		AccountId:   c.opts.accountId,
		LimiterType: r.LimitType,
	}) {
		return nil, ErrLimitExceed
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, r.fullURL, bytes.NewReader(r.payload))
	if err != nil {
		return []byte{}, err
	}
	req.Header = r.header
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	f := c.do
	if f == nil {
		f = c.opts.httpClient.Do
	}
	res, err := f(req)
	if err != nil {
		return []byte{}, err
	}
	defer func() {
		cerr := res.Body.Close()
		// Only overwrite the retured error if the original error was nil and an
		// error occurred while closing the body.
		if err == nil && cerr != nil {
			err = cerr
		}
	}()
	data, err = io.ReadAll(res.Body)
	if err != nil {
		return []byte{}, err
	}
	span.SetAttributes(attribute.Int("http.status_code", res.StatusCode))
	c.opts.logger.Debugf("%s %s -> %d", r.Method, r.Endpoint, res.StatusCode)

	if apiErr, ok := parseAPIError(res.StatusCode, data); ok {
		return nil, apiErr
	}
	if res.StatusCode >= http.StatusBadRequest {
		return nil, &APIError{Status: res.StatusCode, Message: preview(data)}
	}
	return data, nil
}

// parseAPIError 识别 {"code":..,"msg":..} 形式的错误体, code 可能是字符串或数字
func parseAPIError(status int, data []byte) (*APIError, bool) {
	j, err := NewJSON(data)
	if err != nil {
		return nil, false
	}
	if _, err := j.Map(); err != nil {
		return nil, false
	}
	code, hasCode := j.CheckGet("code")
	msg, hasMsg := j.CheckGet("msg")
	if !hasMsg {
		msg, hasMsg = j.CheckGet("message")
	}
	if !hasCode || !hasMsg {
		return nil, false
	}
	return &APIError{Status: status, Code: jsonString(code), Message: msg.MustString()}, true
}

func jsonString(j *simplejson.Json) string {
	if s, err := j.String(); err == nil {
		return s
	}
	if n, err := j.Int64(); err == nil {
		return strconv.FormatInt(n, 10)
	}
	return ""
}

func preview(data []byte) string {
	const max = 256
	if len(data) > max {
		return string(data[:max]) + "..."
	}
	return string(data)
}

// SetApiEndpoint set api Endpoint
func (c *Client) SetApiEndpoint(url string) {
	c.baseURL = url
}

// SetTimeOffset 根据服务器时间校准本地时间
func (c *Client) SetTimeOffset(offset int64) {
	c.timeOffset.Store(offset)
}

func (c *Client) TimeOffset() int64 {
	return c.timeOffset.Load()
}
