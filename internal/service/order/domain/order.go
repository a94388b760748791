// internal/service/order/domain/order.go
package domain

import (
	"regexp"
	"time"
)

// Snapshot 是本服务消费的订单只读投影。
// 订单由外部系统创建和变更（下单 API、支付回调、后台操作），
// 这里只读取并分类，不拥有其生命周期。
type Snapshot struct {
	Code           string         `json:"code"`
	PaymentStatus  PaymentStatus  `json:"payment_status"`
	DeliveryStatus DeliveryStatus `json:"delivery_status"`
	ExpiredAt      *time.Time     `json:"expired_at"`
	FailureNote    string         `json:"failure_note,omitempty"`

	// 以下为展示字段，不参与任何状态判定。
	GrandTotal int64    `json:"grand_total"`
	Items      []string `json:"items,omitempty"`
}

// retrySuffix 匹配订单号上的 ":N" 重试后缀，查询前必须剥掉。
var retrySuffix = regexp.MustCompile(`:\d+$`)

// SanitizeCode 去掉订单号尾部的重试后缀。
// 支付网关重试后结果页会携带 "ORD123:2" 这样的订单号。
func SanitizeCode(raw string) string {
	return retrySuffix.ReplaceAllString(raw, "")
}
