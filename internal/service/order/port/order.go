// internal/service/order/port/order.go
package port

import (
	"context"

	"github.com/project-hexa/pasjajan-sub001/internal/service/order/domain"
)

// OrderLookupService 是订单查询的出站端口（GET /orders/{code}）。
// 任何网络或解析失败都以 error 返回，调用方按"订单不存在"处理。
type OrderLookupService interface {
	FindByCode(ctx context.Context, code string) (*domain.Snapshot, error)
}

// DeliveryUpdateService 是后台配送状态变更命令的出站端口
// （POST /admin/delivery/{orderId}/update）。
// 同一 (orderID, status) 的重试必须是幂等的。
type DeliveryUpdateService interface {
	UpdateStatus(ctx context.Context, orderID string, status domain.DeliveryStatus, note string) error
}
