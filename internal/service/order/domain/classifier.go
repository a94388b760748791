// internal/service/order/domain/classifier.go
package domain

import "time"

// paidStatuses 视为支付成功的状态集合。
var paidStatuses = map[PaymentStatus]bool{
	PaymentPaid:       true,
	PaymentSettlement: true,
	PaymentCapture:    true,
}

// openStatuses 尚未支付、仍可等待的状态集合。
var openStatuses = map[PaymentStatus]bool{
	PaymentUnpaid:  true,
	PaymentPending: true,
}

// deadStatuses 支付已不可能成功的状态集合。
var deadStatuses = map[PaymentStatus]bool{
	PaymentExpire:    true,
	PaymentExpired:   true,
	PaymentCancel:    true,
	PaymentCancelled: true,
	PaymentDeny:      true,
	PaymentFailed:    true,
}

// Classify 将订单快照归类为四种结果之一，驱动结果页路由。
//
// 规则按优先级求值：
//  1. 快照缺失 -> NOT_FOUND
//  2. 支付成功集合 -> SUCCESS（与 delivery_status、expired_at 无关）
//  3. pending/unpaid：超过 expired_at 视为已过期 -> FAILED，否则 WAITING。
//     即使后端尚未把存储状态改成 expired，客户端也必须按过期处理。
//  4. 支付失败集合 -> FAILED
//  5. 未知状态保守地归为 WAITING，绝不把未知状态当成功展示。
//
// 纯函数：now 由调用方注入，同样输入必得同样输出。对任何输入都不会 panic。
func Classify(s *Snapshot, now time.Time) Outcome {
	if s == nil {
		return OutcomeNotFound
	}

	switch {
	case paidStatuses[s.PaymentStatus]:
		return OutcomeSuccess
	case openStatuses[s.PaymentStatus]:
		if s.ExpiredAt != nil && now.After(*s.ExpiredAt) {
			return OutcomeFailed
		}
		return OutcomeWaiting
	case deadStatuses[s.PaymentStatus]:
		return OutcomeFailed
	default:
		return OutcomeWaiting
	}
}
