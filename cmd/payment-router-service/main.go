// cmd/payment-router-service/main.go
package main

import (
	"log"

	"go.opentelemetry.io/otel"

	"github.com/project-hexa/pasjajan-sub001/internal/pkg/bootstrap"
	"github.com/project-hexa/pasjajan-sub001/internal/pkg/httpclient"
	"github.com/project-hexa/pasjajan-sub001/internal/pkg/logger"
	"github.com/project-hexa/pasjajan-sub001/internal/service/order/application"
	"github.com/project-hexa/pasjajan-sub001/internal/service/order/infrastructure/adapter"
	"github.com/project-hexa/pasjajan-sub001/internal/service/order/interfaces"
)

const (
	serviceName = "payment-router-service"

	// 外部订单 API 在注册中心里的服务名
	orderAPIServiceName = "pasjajan-order-api"
)

// main 函数是应用的"组装根" (Composition Root)
// 它的核心职责是：创建并组装所有依赖项，然后启动应用。
func main() {
	bootstrap.Init()
	logger.Init(serviceName)
	cfg := bootstrap.GetCurrentConfig()

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        8081,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			tracer := otel.Tracer(serviceName)
			httpClient := httpclient.NewClient(tracer)

			// 订单 API 地址：优先走 Nacos 发现，拿不到再退回静态配置
			baseURL := cfg.Infra.OrderAPI.BaseURL
			if appCtx.Nacos != nil {
				if resolved, err := appCtx.Nacos.ResolveBaseURL(orderAPIServiceName); err == nil {
					baseURL = resolved
				} else {
					log.Printf("⚠️ WARNING: nacos discovery for %s failed (%v), falling back to %s", orderAPIServiceName, err, baseURL)
				}
			}

			lookup := adapter.NewLookupHTTPAdapter(httpClient, baseURL)
			routerService := application.NewRouterService(lookup, tracer)

			handler := interfaces.NewPaymentHandler(routerService)
			handler.RegisterRoutes(appCtx.Mux)
		},
	})
}
