// internal/service/order/port/notification.go
package port

import (
	"context"

	"github.com/project-hexa/pasjajan-sub001/internal/service/order/domain"
)

// NotificationProducer 是消息生产者的出站端口。
type NotificationProducer interface {
	// SendStatusChanged 广播一次已确认的状态变化，供列表页等父级视图消费。
	SendStatusChanged(ctx context.Context, ev domain.StatusChangedEvent) error

	// SendNotification 发送一条面向用户的通知。
	SendNotification(ctx context.Context, ev domain.NotificationEvent) error
}

// NotificationRule 判定一条通知是否被运营配置的规则静音。
// 规则求值失败时返回 error，调用方按"不静音"处理，宁多勿漏。
type NotificationRule interface {
	Muted(ev domain.NotificationEvent) (bool, error)
}
