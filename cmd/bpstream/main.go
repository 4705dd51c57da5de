package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/go-gotop/backpack/broker"
	"github.com/go-gotop/backpack/broker/kafka"
	"github.com/go-gotop/backpack/config"
	"github.com/go-gotop/backpack/credentials"
	center "github.com/go-gotop/backpack/cust/log"
	"github.com/go-gotop/backpack/exchange"
	"github.com/go-gotop/backpack/exchange/bpexc"
	"github.com/go-gotop/backpack/limiter"
	"github.com/go-gotop/backpack/limiter/bplimiter"
	"github.com/go-gotop/backpack/requests/bphttp"
	"github.com/go-gotop/backpack/sampler"
	"github.com/go-gotop/backpack/streammanager/streambackpack"
	"github.com/go-gotop/backpack/tracing"
	"github.com/go-gotop/backpack/wsmanager/manager"
)

func main() {
	configDir := flag.String("config", ".", "directory containing config.yaml and .env")
	symbols := flag.String("symbols", "SOL-USDC", "comma separated symbols to stream")
	aggMs := flag.Int64("agg", 1000, "trade aggregation window in milliseconds")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
	}

	logger := center.NewLogger(&center.Config{
		Env:      cfg.Log.Env,
		Service:  cfg.Log.Service,
		Level:    cfg.Log.Level,
		File:     cfg.Log.File,
		Redis:    rdb,
		RedisKey: cfg.Redis.Prefix + ":log",
	})
	helper := log.NewHelper(log.With(logger, "module", "bpstream"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.NewTracerProvider(ctx, &tracing.Config{
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
		Service:     cfg.Tracing.Service,
		Insecure:    true,
	})
	if err != nil {
		helper.Fatalf("tracing: %v", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(sctx)
	}()

	lim, err := bplimiter.NewBackpackLimiter(limiter.WithPeriodLimit(cfg.Limiter.PeriodLimit()))
	if err != nil {
		helper.Fatalf("limiter: %v", err)
	}

	creds := credentials.NewStore()
	creds.SetCredentials(cfg.Backpack.Credentials())

	rest := bphttp.NewClient(
		bphttp.BaseUrl(cfg.Backpack.RestURL),
		bphttp.Window(cfg.Backpack.Window),
		bphttp.CredentialStore(creds),
		bphttp.Limiter(lim),
		bphttp.TracerProvider(tp),
		bphttp.Logger(logger),
	)
	ex := bpexc.NewBackpack(rest)
	syncServerTime(ctx, helper, rest, ex)

	var pub broker.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		pub = kafka.NewPublisher(cfg.Kafka.Brokers, kafka.WithLogger(logger), kafka.WithAsync(true))
		defer pub.Close()
	}

	var bs *streambackpack.BackpackStream
	wsm := manager.NewManager(
		manager.WithLogger(logger),
		manager.WithConnLimiter(lim),
		manager.WithCredentialStore(creds),
		manager.WithQueueSize(cfg.Manager.QueueSize),
		manager.WithConnectTimeout(cfg.Manager.ConnectTimeout),
		manager.WithAuthTimeout(cfg.Manager.AuthTimeout),
		manager.WithAuthWindow(cfg.Backpack.Window),
		manager.WithHeartbeatInterval(cfg.Manager.HeartbeatInterval),
		manager.WithMaxConnDuration(cfg.Manager.MaxConnDuration),
		manager.WithWriteRetry(cfg.Manager.WriteRetries, cfg.Manager.WriteBackoff),
		manager.WithReconnect(cfg.Manager.AutoReconnect),
		manager.WithReconnectBackoff(time.Second, cfg.Manager.ReconnectMaxBackoff),
		manager.WithCloseHandler(func(id string, err error) {
			helper.Warnf("connection %s closed: %v", id, err)
		}),
		manager.WithErrorHandler(func(err error) {
			helper.Errorf("stream error: %v", err)
		}),
		// 重连后不会自动恢复订阅, 由这里显式恢复
		manager.WithReconnectHandler(func(id string) {
			helper.Infof("reconnected as %s, restoring streams", id)
			go func() {
				if err := bs.RestoreStreams(ctx); err != nil {
					helper.Errorf("restore streams: %v", err)
				}
			}()
		}),
	)

	bs = streambackpack.NewBackpackStream(wsm, rdb,
		streambackpack.WithLogger(log.NewHelper(log.With(logger, "module", "streambackpack"))),
		streambackpack.WithEndpoint(cfg.Backpack.WsURL),
		streambackpack.WithRedisKey(cfg.Redis.Prefix+":streams"),
		streambackpack.WithPublisher(pub),
		streambackpack.WithTopic(cfg.Kafka.Topic),
		streambackpack.WithEventHandler(func(evt exchange.Event) {
			helper.Debugf("%s %s", evt.Kind(), evt.Key())
		}),
		streambackpack.WithErrorHandler(func(err error) {
			helper.Errorf("consumer: %v", err)
		}),
	)
	defer bs.Shutdown()

	if len(bs.StreamList()) > 0 {
		if err := bs.RestoreStreams(ctx); err != nil {
			helper.Errorf("restore streams: %v", err)
		}
	}

	for _, symbol := range strings.Split(*symbols, ",") {
		symbol = strings.TrimSpace(symbol)
		if symbol == "" {
			continue
		}
		if _, err := bs.SubscribeTicker(ctx, symbol, func(evt *exchange.TickerEvent) {
			helper.Infof("ticker %s last=%s bid=%s ask=%s", evt.Symbol, evt.LastPrice, evt.BestBid, evt.BestAsk)
		}); err != nil {
			helper.Fatalf("subscribe ticker %s: %v", symbol, err)
		}
		if _, err := bs.SubscribeAggTrades(ctx, symbol, *aggMs, func(agg *sampler.AggregatedTrade) {
			helper.Infof("trades %s buy=%d sell=%d close=%s diff=%s",
				agg.Symbol, agg.BuyCount, agg.SellCount, agg.ClosePrice.Price, agg.Difference())
		}); err != nil {
			helper.Fatalf("subscribe trades %s: %v", symbol, err)
		}
	}

	if creds.IsValid() {
		if _, err := bs.SubscribeUserOrders(ctx, func(evt *exchange.OrderEvent) {
			helper.Infof("order %s %s %s status=%s", evt.OrderID, evt.Symbol, evt.Side, evt.Status)
		}); err != nil {
			helper.Errorf("subscribe orders: %v", err)
		}
		if balances, err := ex.Balances(ctx); err != nil {
			helper.Errorf("balances: %v", err)
		} else {
			for _, b := range balances {
				helper.Infof("balance %s free=%s locked=%s", b.Asset, b.Free, b.Locked)
			}
		}
	}

	<-ctx.Done()
	helper.Info("shutting down")
}

// syncServerTime 校准本地时间, 失败时使用本地时间签名
func syncServerTime(ctx context.Context, helper *log.Helper, rest *bphttp.Client, ex exchange.Exchange) {
	before := time.Now().UnixMilli()
	serverTime, err := ex.ServerTime(ctx)
	if err != nil {
		helper.Warnf("server time: %v", err)
		return
	}
	local := (before + time.Now().UnixMilli()) / 2
	rest.SetTimeOffset(local - serverTime)
}
