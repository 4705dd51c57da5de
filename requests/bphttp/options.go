package bphttp

import (
	"net/http"

	"github.com/go-kratos/kratos/v2/log"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-gotop/backpack/credentials"
	"github.com/go-gotop/backpack/limiter"
)

type Option func(o *options)

type options struct {
	baseURL        string
	proxyUrl       string
	timeOffset     int64
	window         int64
	httpClient     *http.Client
	credentials    *credentials.Store
	limiter        limiter.Limiter
	accountId      string
	tracerProvider trace.TracerProvider
	logger         *log.Helper
}

func BaseUrl(b string) Option {
	return func(o *options) { o.baseURL = b }
}

func ProxyURL(p string) Option {
	return func(o *options) { o.proxyUrl = p }
}

func HttpClient(h *http.Client) Option {
	return func(o *options) { o.httpClient = h }
}

// TimeOffset 本地时间与服务器时间的差值(毫秒), 签名时间戳会减去该值
func TimeOffset(t int64) Option {
	return func(o *options) { o.timeOffset = t }
}

// Window 签名有效窗口(毫秒), 0 表示不发送 X-Window
func Window(w int64) Option {
	return func(o *options) { o.window = w }
}

// Credentials 使用 api key 和 secret 创建凭证, 算法自动识别
func Credentials(apiKey, secret string) Option {
	return func(o *options) {
		o.credentials = credentials.NewStore()
		o.credentials.Set(apiKey, secret)
	}
}

// CredentialStore 与其他组件共享同一个凭证
func CredentialStore(s *credentials.Store) Option {
	return func(o *options) { o.credentials = s }
}

func Limiter(l limiter.Limiter) Option {
	return func(o *options) { o.limiter = l }
}

// AccountId 限流器按账户区分时使用
func AccountId(id string) Option {
	return func(o *options) { o.accountId = id }
}

func TracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

func Logger(l log.Logger) Option {
	return func(o *options) { o.logger = log.NewHelper(l) }
}
