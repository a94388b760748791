// internal/service/order/application/delivery_service.go
package application

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/project-hexa/pasjajan-sub001/internal/pkg/logger"
	"github.com/project-hexa/pasjajan-sub001/internal/service/order/domain"
	"github.com/project-hexa/pasjajan-sub001/internal/service/order/port"
)

var (
	// ErrUnknownOrder 表示本实例还没有该订单的状态投影，需要先 Load。
	ErrUnknownOrder = errors.New("order has no loaded delivery status")
	// ErrUseFailureFlow 表示失败终态必须走两步捕获流程，不能直接 Apply。
	ErrUseFailureFlow = errors.New("Gagal Dikirim must go through the failure capture flow")
	// ErrNoFailureFlow 表示该订单当前没有进行中的失败流程。
	ErrNoFailureFlow = errors.New("no failure flow in progress for this order")
)

// DeliveryService 是后台配送状态机的应用服务。
//
// 非失败状态的选择立即生效：先乐观更新本地投影，再向外部系统发出变更命令；
// 命令被拒绝时回滚投影并返回错误（而不是历史实现那样静默接受）。
// 失败终态必须经过 FailureFlow 的原因录入和二次确认。
type DeliveryService struct {
	updater  port.DeliveryUpdateService
	guard    port.IdempotencyGuard  // 可为 nil（本地开发）
	audit    port.TransitionAuditLog // 可为 nil
	notifier port.NotificationProducer
	tracer   trace.Tracer
	now      func() time.Time

	mu          sync.Mutex
	projections map[string]domain.DeliveryStatus // 订单号 -> 乐观投影
	flows       map[string]*domain.FailureFlow
}

// NewDeliveryService 创建后台状态机服务。
func NewDeliveryService(updater port.DeliveryUpdateService, guard port.IdempotencyGuard, audit port.TransitionAuditLog, notifier port.NotificationProducer, tracer trace.Tracer) *DeliveryService {
	return &DeliveryService{
		updater:     updater,
		guard:       guard,
		audit:       audit,
		notifier:    notifier,
		tracer:      tracer,
		now:         time.Now,
		projections: make(map[string]domain.DeliveryStatus),
		flows:       make(map[string]*domain.FailureFlow),
	}
}

// Load 用列表页看到的状态初始化本地投影。
func (s *DeliveryService) Load(orderID string, status domain.DeliveryStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projections[orderID] = status
}

// Current 返回本地投影的当前状态。
func (s *DeliveryService) Current(orderID string) (domain.DeliveryStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.projections[orderID]
	return status, ok
}

// ApplyStatus 应用一次非失败状态的选择。
// 同态选择是幂等的 no-op；失败终态会被拒绝并提示走捕获流程。
func (s *DeliveryService) ApplyStatus(ctx context.Context, orderID string, target domain.DeliveryStatus, actor string) error {
	ctx, span := s.tracer.Start(ctx, "delivery.ApplyStatus")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", orderID),
		attribute.String("delivery.target", string(target)),
	)

	if target == domain.DeliveryFailed {
		return ErrUseFailureFlow
	}

	s.mu.Lock()
	previous, ok := s.projections[orderID]
	s.mu.Unlock()
	if !ok {
		return ErrUnknownOrder
	}

	if err := domain.ValidateTransition(previous, target); err != nil {
		if errors.Is(err, domain.ErrSameState) {
			return nil
		}
		transitionsTotal.WithLabelValues(string(target), "rejected").Inc()
		return err
	}

	return s.commit(ctx, orderID, previous, target, "", actor)
}

// BeginFailure 为订单开启失败捕获流程。存储状态在确认前保持不变。
func (s *DeliveryService) BeginFailure(orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, ok := s.projections[orderID]
	if !ok {
		return ErrUnknownOrder
	}
	flow, err := domain.NewFailureFlow(orderID, previous)
	if err != nil {
		return err
	}
	s.flows[orderID] = flow
	return nil
}

// SetFailureReason 录入自由输入的失败原因。
func (s *DeliveryService) SetFailureReason(orderID, note string) error {
	return s.withFlow(orderID, func(flow *domain.FailureFlow) error {
		flow.SetNote(note)
		return nil
	})
}

// UseFailureTemplate 选用一条失败原因模板。
func (s *DeliveryService) UseFailureTemplate(orderID, template string) error {
	return s.withFlow(orderID, func(flow *domain.FailureFlow) error {
		flow.UseTemplate(template)
		return nil
	})
}

// ProceedFailure 从原因步骤进入确认步骤，原因为空时被拦截。
func (s *DeliveryService) ProceedFailure(orderID string) error {
	return s.withFlow(orderID, func(flow *domain.FailureFlow) error {
		return flow.Proceed()
	})
}

// AbortFailure 对应确认步骤选择"Tidak"：退回原因步骤。
func (s *DeliveryService) AbortFailure(orderID string) error {
	return s.withFlow(orderID, func(flow *domain.FailureFlow) error {
		flow.Back()
		return nil
	})
}

// CancelFailure 整个放弃失败流程，关闭弹窗时调用。
func (s *DeliveryService) CancelFailure(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flows, orderID)
}

// FlowState 返回失败流程当前的步骤和已录入的原因，供界面回显。
func (s *DeliveryService) FlowState(orderID string) (step domain.FailureStep, note string, previous domain.DeliveryStatus, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	flow, exists := s.flows[orderID]
	if !exists {
		return 0, "", "", false
	}
	return flow.Step(), flow.Note(), flow.Previous, true
}

// ConfirmFailure 对应确认步骤选择"Ya"：用确认那一刻的原因发出变更命令。
func (s *DeliveryService) ConfirmFailure(ctx context.Context, orderID, actor string) error {
	ctx, span := s.tracer.Start(ctx, "delivery.ConfirmFailure")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	s.mu.Lock()
	flow, exists := s.flows[orderID]
	s.mu.Unlock()
	if !exists {
		return ErrNoFailureFlow
	}

	note, err := flow.Confirm()
	if err != nil {
		return err
	}

	if err := s.commit(ctx, orderID, flow.Previous, domain.DeliveryFailed, note, actor); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.flows, orderID)
	s.mu.Unlock()
	return nil
}

// withFlow 在持锁状态下操作进行中的失败流程。
func (s *DeliveryService) withFlow(orderID string, fn func(flow *domain.FailureFlow) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	flow, exists := s.flows[orderID]
	if !exists {
		return ErrNoFailureFlow
	}
	return fn(flow)
}

// commit 是乐观更新 + 外部命令 + 回滚的公共路径。
func (s *DeliveryService) commit(ctx context.Context, orderID string, previous, target domain.DeliveryStatus, note, actor string) error {
	span := trace.SpanFromContext(ctx)

	// 幂等保护：同一 (orderID, status) 只发出一次命令
	if s.guard != nil {
		acquired, err := s.guard.Acquire(ctx, orderID, target)
		if err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("idempotency guard unavailable, proceeding without it")
		} else if !acquired {
			logger.Ctx(ctx).Info().Str("order", orderID).Str("status", string(target)).Msg("duplicate update suppressed")
			return nil
		}
	}

	// 先乐观更新本地投影
	s.mu.Lock()
	s.projections[orderID] = target
	s.mu.Unlock()

	if err := s.updater.UpdateStatus(ctx, orderID, target, note); err != nil {
		// 命令被拒绝：回滚投影，撤销幂等占位，把错误交给界面
		s.mu.Lock()
		s.projections[orderID] = previous
		s.mu.Unlock()
		if s.guard != nil {
			if releaseErr := s.guard.Release(ctx, orderID, target); releaseErr != nil {
				logger.Ctx(ctx).Warn().Err(releaseErr).Msg("failed to release idempotency slot")
			}
		}
		transitionsTotal.WithLabelValues(string(target), "failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "delivery update rejected")
		return errors.Wrapf(err, "delivery update rejected for %s", orderID)
	}

	ev := domain.StatusChangedEvent{
		EventID:   uuid.New().String(),
		OrderID:   orderID,
		Previous:  previous,
		Current:   target,
		Note:      note,
		ChangedBy: actor,
		Rollback:  domain.IsRollback(previous, target),
		At:        s.now(),
	}

	if s.audit != nil {
		if err := s.audit.Record(ctx, ev); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("order", orderID).Msg("failed to record transition audit")
		}
	}

	// 通知父级视图（列表页）刷新该行，不必整页重拉
	if err := s.notifier.SendStatusChanged(ctx, ev); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("order", orderID).Msg("failed to broadcast status change")
	}

	transitionsTotal.WithLabelValues(string(target), "applied").Inc()
	logger.Ctx(ctx).Info().
		Str("order", orderID).
		Str("from", string(previous)).
		Str("to", string(target)).
		Msg("delivery status applied")
	return nil
}
