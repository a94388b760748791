// internal/service/order/domain/event.go
package domain

import "time"

// StatusChangedEvent 在每次配送状态变化被确认后发布：
// 后台操作成功提交、或轮询器在外部系统上观测到新状态时。
// 列表页等父级视图依赖它来刷新，而不必整页重新拉取。
type StatusChangedEvent struct {
	EventID   string         `json:"eventId"`
	OrderID   string         `json:"orderId"`
	Previous  DeliveryStatus `json:"previous"`
	Current   DeliveryStatus `json:"current"`
	Note      string         `json:"note,omitempty"`
	ChangedBy string         `json:"changedBy,omitempty"`
	Rollback  bool           `json:"rollback,omitempty"`
	At        time.Time      `json:"at"`
}

// NotificationEvent 是推送给用户的通知载体（一次状态变化恰好一条）。
type NotificationEvent struct {
	EventID string         `json:"eventId"`
	OrderID string         `json:"orderId"`
	UserID  string         `json:"userId,omitempty"`
	Status  DeliveryStatus `json:"status"`
	Title   string         `json:"title"`
	Body    string         `json:"body"`
	At      time.Time      `json:"at"`
}
