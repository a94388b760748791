// internal/service/order/application/router_service.go
package application

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/project-hexa/pasjajan-sub001/internal/pkg/logger"
	"github.com/project-hexa/pasjajan-sub001/internal/service/order/domain"
	"github.com/project-hexa/pasjajan-sub001/internal/service/order/port"
)

// CartRedirect 是订单不存在时的安全落点。
const CartRedirect = "/cart"

// Decision 是路由裁决：原地渲染，或跳转到另一个结果页。
type Decision struct {
	Code       string         `json:"code"`
	Outcome    domain.Outcome `json:"outcome"`
	Render     bool           `json:"render"`
	RedirectTo string         `json:"redirectTo,omitempty"`
}

// RouterService 实现支付结果页路由：
// 拿到订单号 -> 查订单 -> 分类 -> 决定当前视图是渲染还是跳转。
//
// 决策是服务端订单状态的纯函数，因此跳转目标页自己再裁决一次
// 必然得到"渲染"，不会出现跳转环。
type RouterService struct {
	lookup port.OrderLookupService
	tracer trace.Tracer
	now    func() time.Time

	// 同一订单号的并发查询合并为一次上游调用。
	// 前端严格模式下 effect 会被双调用，没必要打两次上游。
	group singleflight.Group
}

// NewRouterService 创建结果页路由服务。
func NewRouterService(lookup port.OrderLookupService, tracer trace.Tracer) *RouterService {
	return &RouterService{
		lookup: lookup,
		tracer: tracer,
		now:    time.Now,
	}
}

// Resolve 对"用户停在 currentView 结果页"这一事实做出裁决。
// 查询失败一律按订单不存在处理，绝不让结果页崩掉。
func (s *RouterService) Resolve(ctx context.Context, rawCode, currentView string) Decision {
	ctx, span := s.tracer.Start(ctx, "router.Resolve")
	defer span.End()

	code := domain.SanitizeCode(rawCode)
	span.SetAttributes(
		attribute.String("order.code", code),
		attribute.String("router.current_view", currentView),
	)

	snapshot := s.fetch(ctx, code)
	outcome := domain.Classify(snapshot, s.now())
	classificationsTotal.WithLabelValues(string(outcome)).Inc()
	span.SetAttributes(attribute.String("router.outcome", string(outcome)))

	if outcome == domain.OutcomeNotFound {
		// 不存在的订单永远不进结果页
		redirectsTotal.WithLabelValues("cart").Inc()
		return Decision{Code: code, Outcome: outcome, RedirectTo: CartRedirect}
	}

	if outcome.View() == currentView {
		return Decision{Code: code, Outcome: outcome, Render: true}
	}

	redirectsTotal.WithLabelValues(outcome.View()).Inc()
	return Decision{
		Code:       code,
		Outcome:    outcome,
		RedirectTo: fmt.Sprintf("/payment/%s?order=%s", outcome.View(), url.QueryEscape(code)),
	}
}

// Outcome 只做分类，不做视图裁决，供 JSON 探测接口使用。
func (s *RouterService) Outcome(ctx context.Context, rawCode string) domain.Outcome {
	ctx, span := s.tracer.Start(ctx, "router.Outcome")
	defer span.End()

	code := domain.SanitizeCode(rawCode)
	outcome := domain.Classify(s.fetch(ctx, code), s.now())
	classificationsTotal.WithLabelValues(string(outcome)).Inc()
	return outcome
}

// fetch 查询订单快照，失败时返回 nil（后续按 NOT_FOUND 分类）。
func (s *RouterService) fetch(ctx context.Context, code string) *domain.Snapshot {
	v, err, _ := s.group.Do(code, func() (interface{}, error) {
		return s.lookup.FindByCode(ctx, code)
	})
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("order", code).Msg("order lookup failed, treating as not found")
		return nil
	}
	snapshot, _ := v.(*domain.Snapshot)
	return snapshot
}
