package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/go-gotop/backpack/credentials"
	"github.com/go-gotop/backpack/limiter"
	"github.com/go-gotop/backpack/signer"
)

// Config 从 config.yaml、.env 和环境变量读取, 环境变量优先.
// 环境变量名为大写的 key, "." 替换为 "_", 例如 BACKPACK_API_KEY
type Config struct {
	Backpack BackpackConfig `mapstructure:"backpack"`
	Manager  ManagerConfig  `mapstructure:"manager"`
	Limiter  LimiterConfig  `mapstructure:"limiter"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Log      LogConfig      `mapstructure:"log"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

type BackpackConfig struct {
	APIKey    string           `mapstructure:"api_key"`
	Secret    string           `mapstructure:"secret"` // 可以是 "enc:" 前缀的密文
	Algorithm signer.Algorithm `mapstructure:"algorithm"`
	WsURL     string           `mapstructure:"ws_url"`
	RestURL   string           `mapstructure:"rest_url"`
	Window    int64            `mapstructure:"window"`
}

func (c BackpackConfig) Credentials() credentials.Credentials {
	return credentials.Credentials{
		APIKey:    c.APIKey,
		Secret:    c.Secret,
		Algorithm: c.Algorithm,
	}
}

type ManagerConfig struct {
	QueueSize           int           `mapstructure:"queue_size"`
	HeartbeatInterval   time.Duration `mapstructure:"heartbeat_interval"`
	AuthTimeout         time.Duration `mapstructure:"auth_timeout"`
	ConnectTimeout      time.Duration `mapstructure:"connect_timeout"`
	WriteRetries        int           `mapstructure:"write_retries"`
	WriteBackoff        time.Duration `mapstructure:"write_backoff"`
	AutoReconnect       bool          `mapstructure:"auto_reconnect"`
	ReconnectMaxBackoff time.Duration `mapstructure:"reconnect_max_backoff"`
	MaxConnDuration     time.Duration `mapstructure:"max_conn_duration"`
}

type LimiterConfig struct {
	WsConnectPeriod string `mapstructure:"ws_connect_period"`
	WsConnectTimes  int64  `mapstructure:"ws_connect_times"`
	OrderPeriod     string `mapstructure:"order_period"`
	OrderTimes      int64  `mapstructure:"order_times"`
	RestPeriod      string `mapstructure:"rest_period"`
	RestTimes       int64  `mapstructure:"rest_times"`
}

func (c LimiterConfig) PeriodLimit() limiter.PeriodLimit {
	return limiter.PeriodLimit{
		WsConnectPeriod:     c.WsConnectPeriod,
		WsConnectTimes:      c.WsConnectTimes,
		OrderPeriod:         c.OrderPeriod,
		OrderTimes:          c.OrderTimes,
		NormalRequestPeriod: c.RestPeriod,
		NormalRequestTimes:  c.RestTimes,
	}
}

// RedisConfig Addr 为空时不使用 redis
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// KafkaConfig Brokers 为空时不发布事件
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type LogConfig struct {
	Env     string `mapstructure:"env"`
	Level   string `mapstructure:"level"`
	File    string `mapstructure:"file"`
	Service string `mapstructure:"service"`
}

type TracingConfig struct {
	Exporter    string  `mapstructure:"exporter"` // none, stdout, otlpgrpc, otlphttp, zipkin
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
	Service     string  `mapstructure:"service"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backpack.api_key", "")
	v.SetDefault("backpack.secret", "")
	v.SetDefault("backpack.algorithm", string(signer.AlgorithmAuto))
	v.SetDefault("backpack.ws_url", "wss://ws.backpack.exchange")
	v.SetDefault("backpack.rest_url", "https://api.backpack.exchange")
	v.SetDefault("backpack.window", 5000)

	v.SetDefault("manager.queue_size", 1024)
	v.SetDefault("manager.heartbeat_interval", 30*time.Second)
	v.SetDefault("manager.auth_timeout", 5*time.Second)
	v.SetDefault("manager.connect_timeout", 5*time.Second)
	v.SetDefault("manager.write_retries", 3)
	v.SetDefault("manager.write_backoff", 100*time.Millisecond)
	v.SetDefault("manager.auto_reconnect", false)
	v.SetDefault("manager.reconnect_max_backoff", 16*time.Second)
	v.SetDefault("manager.max_conn_duration", 0)

	v.SetDefault("limiter.ws_connect_period", "1m")
	v.SetDefault("limiter.ws_connect_times", 30)
	v.SetDefault("limiter.order_period", "1s")
	v.SetDefault("limiter.order_times", 20)
	v.SetDefault("limiter.rest_period", "1s")
	v.SetDefault("limiter.rest_times", 20)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "backpack")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "")

	v.SetDefault("log.env", "DEV")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.service", "bpstream")

	v.SetDefault("tracing.exporter", "none")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("tracing.service", "bpstream")
}

// LoadConfig 读取 path 目录下的 config.yaml 和 .env, 两者都可以不存在
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(path, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := c.revealSecrets(); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// revealSecrets 解密 "enc:" 前缀的值, 只有存在密文时才需要 ENCRYPTION_KEY
func (c *Config) revealSecrets() error {
	fields := []*string{&c.Backpack.APIKey, &c.Backpack.Secret, &c.Redis.Password}
	var key *[32]byte
	for _, f := range fields {
		if !strings.HasPrefix(*f, credentials.SealedPrefix) {
			continue
		}
		if key == nil {
			k, err := credentials.LoadEncryptionKey()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			key = k
		}
		plain, err := credentials.Reveal(*f, key)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		*f = plain
	}
	return nil
}

func (c *Config) validate() error {
	alg, err := signer.ParseAlgorithm(string(c.Backpack.Algorithm))
	if err != nil {
		return fmt.Errorf("config: backpack.algorithm: %w", err)
	}
	c.Backpack.Algorithm = alg
	if c.Backpack.Window < 0 {
		return fmt.Errorf("config: backpack.window must not be negative")
	}
	if c.Manager.QueueSize <= 0 {
		return fmt.Errorf("config: manager.queue_size must be positive")
	}
	return nil
}
