// internal/service/order/domain/messages.go
package domain

import "fmt"

// statusMessages 是状态到用户可读通知文案的固定映射表。
type statusMessage struct {
	Title string
	Body  string
}

var statusMessages = map[DeliveryStatus]statusMessage{
	DeliverySearchingDriver: {"Mencari Driver", "Kami sedang mencarikan driver untuk pesananmu."},
	DeliveryAwaitingCourier: {"Pesanan Dikemas", "Pesananmu sedang dikemas dan menunggu kurir."},
	DeliveryShipping:        {"Pesanan Dikirim", "Pesananmu sedang dalam perjalanan."},
	DeliveryArrived:         {"Pesanan Sampai", "Pesananmu telah sampai di tujuan."},
	DeliveryCompleted:       {"Pesanan Selesai", "Terima kasih sudah berbelanja di PasJajan!"},
	DeliveryReviewed:        {"Ulasan Diterima", "Terima kasih atas ulasanmu."},
	DeliveryFailed:          {"Pengiriman Gagal", "Pengiriman pesananmu gagal. Silakan hubungi CS PasJajan."},
}

// MessageFor 生成状态变化通知的标题和正文。
// 未知状态回退到通用文案；失败状态在有 note 时用 note 作为正文。
func MessageFor(status DeliveryStatus, note string) (title, body string) {
	msg, ok := statusMessages[status]
	if !ok {
		return "Status Pesanan", fmt.Sprintf("Status baru: %s", status)
	}
	if status == DeliveryFailed && note != "" {
		return msg.Title, note
	}
	return msg.Title, msg.Body
}
