// internal/service/order/port/tracking.go
package port

import (
	"context"

	"github.com/project-hexa/pasjajan-sub001/internal/service/order/domain"
)

// TrackingState 是轮询端点返回的当前配送状态。
// FailureNote 仅在失败状态下有值，取自时间线首条记录的说明。
type TrackingState struct {
	Status      domain.DeliveryStatus
	FailureNote string
}

// TrackingService 是配送跟踪信息的出站端口
// （GET /delivery/{orderId}/tracking）。
type TrackingService interface {
	CurrentStatus(ctx context.Context, orderID string) (TrackingState, error)
}

// Watch 表示一条被轮询器盯住的订单。
type Watch struct {
	OrderID string
	UserID  string
}

// WatchRegistry 持久化轮询器的关注列表，进程重启后可恢复。
type WatchRegistry interface {
	Add(ctx context.Context, w Watch) error
	Remove(ctx context.Context, orderID string) error
	List(ctx context.Context) ([]Watch, error)
}
