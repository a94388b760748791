// cmd/delivery-admin-service/main.go
package main

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"

	"github.com/project-hexa/pasjajan-sub001/internal/pkg/bootstrap"
	"github.com/project-hexa/pasjajan-sub001/internal/pkg/httpclient"
	"github.com/project-hexa/pasjajan-sub001/internal/pkg/logger"
	"github.com/project-hexa/pasjajan-sub001/internal/pkg/mq"
	"github.com/project-hexa/pasjajan-sub001/internal/pkg/redis"
	"github.com/project-hexa/pasjajan-sub001/internal/service/order/application"
	"github.com/project-hexa/pasjajan-sub001/internal/service/order/infrastructure"
	"github.com/project-hexa/pasjajan-sub001/internal/service/order/infrastructure/adapter"
	"github.com/project-hexa/pasjajan-sub001/internal/service/order/interfaces"
	"github.com/project-hexa/pasjajan-sub001/internal/service/order/port"
)

const serviceName = "delivery-admin-service"

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

	// 2. Redis 幂等保护。连不上时降级为无保护，本地开发不强依赖
	var guard port.IdempotencyGuard
	redisClient, err := redis.NewClient(cfg.Infra.Redis.Addr, cfg.Infra.Redis.Password, cfg.Infra.Redis.DB)
	if err != nil {
		log.Printf("⚠️ WARNING: redis unavailable (%v), idempotency guard disabled", err)
	} else {
		guard = adapter.NewIdempotencyRedisAdapter(redisClient)
	}

	// 3. MySQL 审计日志。未配置 DSN 时跳过，活动日志接口返回 501
	var audit port.TransitionAuditLog
	if cfg.Infra.Mysql.DSN != "" {
		store, err := infrastructure.NewGormStore(cfg.Infra.Mysql.DSN)
		if err != nil {
			log.Fatalf("failed to initialize mysql store: %v", err)
		}
		audit = store
		log.Println("✅ Transition audit log enabled (mysql)")
	} else {
		log.Println("⚠️ WARNING: MYSQL_DSN not set, transition audit log disabled")
	}

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        8082,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			tracer := otel.Tracer(serviceName)
			httpClient := httpclient.NewClient(tracer)

			updater := adapter.NewUpdateHTTPAdapter(httpClient, cfg.Infra.AdminAPI.BaseURL)
			deliveryService := application.NewDeliveryService(updater, guard, audit, notifier, tracer)

			handler := interfaces.NewAdminHandler(deliveryService, audit)
			handler.RegisterRoutes(appCtx.Mux)
		},
		OnShutdown: func(ctx context.Context) {
			if err := notifier.Close(); err != nil {
				log.Printf("Error closing kafka writers: %v", err)
			}
			if redisClient != nil {
				_ = redisClient.Close()
			}
		},
	})
}
