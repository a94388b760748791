// internal/service/order/domain/status.go
package domain

// PaymentStatus 是外部支付网关回写的原始支付状态。
// 取值来自网关和后端的并集，分类时按集合而不是逐值处理。
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPending PaymentStatus = "pending"

	PaymentPaid       PaymentStatus = "paid"
	PaymentSettlement PaymentStatus = "settlement"
	PaymentCapture    PaymentStatus = "capture"

	PaymentExpire    PaymentStatus = "expire"
	PaymentExpired   PaymentStatus = "expired"
	PaymentCancel    PaymentStatus = "cancel"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentDeny      PaymentStatus = "deny"
	PaymentFailed    PaymentStatus = "failed"
)

// DeliveryStatus 是配送侧的状态，存储值沿用历史系统的印尼语常量。
type DeliveryStatus string

const (
	DeliverySearchingDriver DeliveryStatus = "MENCARI_DRIVER"
	DeliveryAwaitingCourier DeliveryStatus = "MENUNGGU_KURIR"
	DeliveryShipping        DeliveryStatus = "DIKIRIM"
	DeliveryArrived         DeliveryStatus = "SAMPAI_TUJUAN"
	DeliveryCompleted       DeliveryStatus = "PESANAN_SELESAI"
	DeliveryReviewed        DeliveryStatus = "Telah Diulas"
	DeliveryFailed          DeliveryStatus = "Gagal Dikirim"
)

// legacyPacked 是 MENUNGGU_KURIR 的历史写法，老数据里仍然存在。
const legacyPacked = "DIKEMAS"

// NormalizeDeliveryStatus 把外部传入的状态字符串归一到标准常量。
// 未知值原样保留，由上层决定如何展示。
func NormalizeDeliveryStatus(raw string) DeliveryStatus {
	if raw == legacyPacked {
		return DeliveryAwaitingCourier
	}
	return DeliveryStatus(raw)
}

// IsTerminal 返回该状态是否为终态。只有配送失败是终态：
// 其余状态后台都允许运营修正。
func (d DeliveryStatus) IsTerminal() bool {
	return d == DeliveryFailed
}

// statusLabels 是后台界面展示用的文案。
var statusLabels = map[DeliveryStatus]string{
	DeliverySearchingDriver: "Mencari Driver",
	DeliveryAwaitingCourier: "Sedang Dikemas",
	DeliveryShipping:        "Sedang Dikirim",
	DeliveryArrived:         "Telah Diterima",
	DeliveryCompleted:       "Selesai",
	DeliveryReviewed:        "Telah Diulas",
	DeliveryFailed:          "Gagal Dikirim",
}

// Label 返回后台界面展示的文案，未知状态回退到存储值本身。
func (d DeliveryStatus) Label() string {
	if label, ok := statusLabels[d]; ok {
		return label
	}
	return string(d)
}

// Outcome 是支付结果页路由的分类结果。
type Outcome string

const (
	OutcomeSuccess  Outcome = "SUCCESS"
	OutcomeFailed   Outcome = "FAILED"
	OutcomeWaiting  Outcome = "WAITING"
	OutcomeNotFound Outcome = "NOT_FOUND"
)

// View 返回该结果对应的结果页视图名。
// NOT_FOUND 没有结果页，路由层会直接送回购物车。
func (o Outcome) View() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailed:
		return "failed"
	default:
		return "waiting"
	}
}
