// cmd/tracking-watcher/main.go
package main

import (
	"context"
	"log"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/project-hexa/pasjajan-sub001/internal/pkg/bootstrap"
	"github.com/project-hexa/pasjajan-sub001/internal/pkg/httpclient"
	"github.com/project-hexa/pasjajan-sub001/internal/pkg/logger"
	"github.com/project-hexa/pasjajan-sub001/internal/pkg/mq"
	"github.com/project-hexa/pasjajan-sub001/internal/service/order/application"
	"github.com/project-hexa/pasjajan-sub001/internal/service/order/infrastructure"
	"github.com/project-hexa/pasjajan-sub001/internal/service/order/infrastructure/adapter"
	"github.com/project-hexa/pasjajan-sub001/internal/service/order/interfaces"
	"github.com/project-hexa/pasjajan-sub001/internal/service/order/port"
	"github.com/project-hexa/pasjajan-sub001/internal/zookeeper"
)

const serviceName = "tracking-watcher"

// main 函数是应用的"组装根" (Composition Root)
// 它的核心职责是：创建并组装所有依赖项，然后启动应用。
func main() {
	bootstrap.Init()
	logger.Init(serviceName)
	cfg := bootstrap.GetCurrentConfig()

	// 1. Kafka 生产者：状态广播 + 用户通知
	statusWriter := mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.StatusTopic)
	notificationWriter := mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.NotificationTopic)
	notifier := adapter.NewNotificationKafkaAdapter(statusWriter, notificationWriter)

	// 2. 静音规则：带着坏规则上线不如启动失败
	var rule port.NotificationRule
	if len(cfg.App.NotificationRules) > 0 {
		celRule, err := adapter.NewCELRuleAdapter(cfg.App.NotificationRules)
		if err != nil {
			log.Fatalf("failed to compile notification rules: %v", err)
		}
		rule = celRule
		log.Printf("✅ %d notification mute rule(s) loaded", len(cfg.App.NotificationRules))
	}

	// 3. 关注列表持久化，重启后恢复轮询
	var registry port.WatchRegistry
	if cfg.Infra.Mysql.DSN != "" {
		store, err := infrastructure.NewGormStore(cfg.Infra.Mysql.DSN)
		if err != nil {
			log.Fatalf("failed to initialize mysql store: %v", err)
		}
		registry = store
	} else {
		log.Println("⚠️ WARNING: MYSQL_DSN not set, watches will not survive a restart")
	}

	// 4. 多副本部署时用 ZK 锁保证每个订单只有一个实例在拉取
	var locks application.LockFactory
	var zkConn *zookeeper.Conn
	if cfg.App.FeatureFlags.EnableWatchLock {
		conn, err := zookeeper.Connect(cfg.Infra.Zookeeper.Servers, 5*time.Second)
		if err != nil {
			log.Fatalf("failed to connect to zookeeper: %v", err)
		}
		zkConn = conn
		locks = func(orderID string) (application.WatchLock, bool, error) {
			lock, err := zookeeper.NewDistributedLock(conn, orderID)
			if err != nil {
				return nil, false, err
			}
			if err := lock.TryLock(); err != nil {
				if errors.Is(err, zookeeper.ErrLockHeld) {
					return nil, false, nil
				}
				return nil, false, err
			}
			return lock, true, nil
		}
		log.Println("✅ Watch lock enabled (zookeeper)")
	}

	tracer := otel.Tracer(serviceName)
	httpClient := httpclient.NewClient(tracer)
	tracking := adapter.NewTrackingHTTPAdapter(httpClient, cfg.Infra.OrderAPI.BaseURL)

	watcher := application.NewWatcherService(
		tracking,
		notifier,
		rule,
		registry,
		locks,
		time.Duration(cfg.App.PollIntervalMS)*time.Millisecond,
		cfg.App.FailureAlertThreshold,
		tracer,
	)

	if err := watcher.Resume(context.Background()); err != nil {
		log.Printf("⚠️ WARNING: failed to resume persisted watches: %v", err)
	} else {
		log.Printf("✅ Tracking watcher started, %d watch(es) resumed", watcher.Watching())
	}

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        8083,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler := interfaces.NewWatchHandler(watcher)
			handler.RegisterRoutes(appCtx.Mux)
		},
		OnShutdown: func(ctx context.Context) {
			watcher.Stop()
			if err := notifier.Close(); err != nil {
				log.Printf("Error closing kafka writers: %v", err)
			}
			if zkConn != nil {
				zkConn.Close()
			}
		},
	})
}
