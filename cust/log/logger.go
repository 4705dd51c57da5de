package center

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
)

var Json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	EnvProduction = "PRD"

	defaultRedisTTL = 10 * 24 * time.Hour
)

type Config struct {
	Env     string
	Service string
	Level   string // debug, info, warn, error

	// File 为空时不写文件
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// Redis 只在生产环境启用
	Redis    *redis.Client
	RedisKey string
	RedisTTL time.Duration
}

type LogEntry struct {
	Service   string `json:"service"`
	Level     string `json:"level"`
	Timestamp int64  `json:"timestamp"`
	Message   string `json:"message"`
}

// RedisHandler 以 JSON 追加到 redis list
type RedisHandler struct {
	client      *redis.Client
	serviceName string // 日志json格式中的服务名 用做检索
	key         string
	ttl         time.Duration
	timeout     time.Duration
}

type MultiLogger struct {
	loggers []log.Logger
}

func newMultiLogger(loggers ...log.Logger) *MultiLogger {
	return &MultiLogger{
		loggers: loggers,
	}
}

// Log 写入所有 logger, 某个失败不影响其余
func (m *MultiLogger) Log(level log.Level, keyvals ...interface{}) error {
	var errs []error
	for _, logger := range m.loggers {
		if err := logger.Log(level, keyvals...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *RedisHandler) Log(level log.Level, keyvals ...interface{}) error {
	entry := &LogEntry{
		Service:   h.serviceName,
		Level:     levelToString(level),
		Timestamp: time.Now().UnixNano(),
		Message:   formatKeyvals(keyvals),
	}
	data, err := Json.Marshal(entry)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	pipe := h.client.TxPipeline()
	pipe.RPush(ctx, h.key, data)
	pipe.Expire(ctx, h.key, h.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func formatKeyvals(keyvals []interface{}) string {
	var sb strings.Builder
	for i := 0; i < len(keyvals); i += 2 {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if i+1 < len(keyvals) {
			fmt.Fprintf(&sb, "%v=%v", keyvals[i], keyvals[i+1])
		} else {
			fmt.Fprintf(&sb, "%v=MISSING_VALUE", keyvals[i])
		}
	}
	return sb.String()
}

func newRedisHandler(client *redis.Client, name, key string, ttl time.Duration) *RedisHandler {
	if key == "" {
		key = "log:" + name
	}
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}
	return &RedisHandler{
		client:      client,
		serviceName: name,
		key:         key,
		ttl:         ttl,
		timeout:     time.Second,
	}
}

func newFileWriter(c *Config) io.Writer {
	return &lumberjack.Logger{
		Filename:   c.File,
		MaxSize:    c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAgeDays,
		Compress:   true,
	}
}

// NewLogger stdout 始终启用, 文件和 redis 按配置启用, 低于 Level 的日志被过滤
func NewLogger(c *Config) log.Logger {
	return newLogger(c, os.Stdout)
}

func newLogger(c *Config, stdout io.Writer) log.Logger {
	loggers := []log.Logger{log.NewStdLogger(stdout)}
	if c.File != "" {
		loggers = append(loggers, log.NewStdLogger(newFileWriter(c)))
	}
	if c.Env == EnvProduction && c.Redis != nil {
		loggers = append(loggers, newRedisHandler(c.Redis, c.Service, c.RedisKey, c.RedisTTL))
	}

	logger := log.With(newMultiLogger(loggers...),
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
	)
	if c.Service != "" {
		logger = log.With(logger, "service", c.Service)
	}
	return log.NewFilter(logger, log.FilterLevel(log.ParseLevel(c.Level)))
}

// levelToString 将日志级别转换为字符串
func levelToString(level log.Level) string {
	switch level {
	case log.LevelDebug:
		return "DEBUG"
	case log.LevelInfo:
		return "INFO"
	case log.LevelWarn:
		return "WARN"
	case log.LevelError:
		return "ERROR"
	case log.LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}
