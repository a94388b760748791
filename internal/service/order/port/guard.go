// internal/service/order/port/guard.go
package port

import (
	"context"

	"github.com/project-hexa/pasjajan-sub001/internal/service/order/domain"
)

// IdempotencyGuard 保证同一 (orderID, status) 的变更命令只被发出一次。
// Acquire 返回 false 表示这对组合已经提交过，本次应按成功短路。
type IdempotencyGuard interface {
	Acquire(ctx context.Context, orderID string, status domain.DeliveryStatus) (bool, error)

	// Release 在变更被外部系统拒绝后撤销占位，允许重新提交。
	Release(ctx context.Context, orderID string, status domain.DeliveryStatus) error
}

// TransitionAuditLog 记录后台操作的状态流转，对应运营后台的活动日志。
type TransitionAuditLog interface {
	Record(ctx context.Context, ev domain.StatusChangedEvent) error
	History(ctx context.Context, orderID string) ([]domain.StatusChangedEvent, error)
}
