// internal/service/order/domain/delivery.go
package domain

import (
	"errors"
	"strings"
)

var (
	// ErrTerminalState 表示源状态已是终态，不允许再流转。
	ErrTerminalState = errors.New("delivery status is terminal and cannot transition")
	// ErrSameState 表示目标状态与当前状态相同。
	ErrSameState = errors.New("target status equals current status")
	// ErrEmptyFailureNote 表示配送失败必须附带非空原因。
	ErrEmptyFailureNote = errors.New("failure note must not be empty")
	// ErrNotConfirmable 表示失败流程还停留在原因录入步骤。
	ErrNotConfirmable = errors.New("failure flow is not at the confirm step")
)

// happyPathRank 用于描述正向流转的先后次序，仅作参考展示用。
// 后台允许运营跨级修正状态，因此校验只拦截终态和同态，不强制单调。
var happyPathRank = map[DeliveryStatus]int{
	DeliverySearchingDriver: 0,
	DeliveryAwaitingCourier: 1,
	DeliveryShipping:        2,
	DeliveryArrived:         3,
	DeliveryCompleted:       4,
	DeliveryReviewed:        5,
}

// ValidateTransition 校验一次后台状态流转是否合法。
// 任何非终态都可以流转到失败终态；失败路径的"必须带原因"约束由 FailureFlow 保证。
func ValidateTransition(from, to DeliveryStatus) error {
	if from.IsTerminal() {
		return ErrTerminalState
	}
	if from == to {
		return ErrSameState
	}
	return nil
}

// IsRollback 返回一次流转是否是往回改（例如已送达改回配送中）。
// 不禁止，但服务层会在审计日志里标记出来。
func IsRollback(from, to DeliveryStatus) bool {
	fr, fok := happyPathRank[from]
	tr, tok := happyPathRank[to]
	return fok && tok && tr < fr
}

// FailureNoteTemplates 是失败原因的固定模板。
// 模板文案带省略号装饰，插入输入框时会剥掉尾部的点号。
var FailureNoteTemplates = []string{
	"Alamat Tidak Valid....",
	"Kurir tidak menemukan alamat...",
	"Penerima tidak dapat dihubungi...",
	"Paket ditolak penerima...",
}

// FailureStep 标识失败捕获流程当前所处的步骤。
type FailureStep int

const (
	StepReason  FailureStep = iota // 录入失败原因
	StepConfirm                    // 二次确认
)

// FailureFlow 是"Gagal Dikirim"的两步捕获流程。
//
// 与其他状态不同，选择配送失败不会立即生效：必须先录入非空原因，
// 再在确认步骤明确选择"Ya"，此前存储状态保持不变。
// 中途放弃则回到原因步骤，已录入的原因保留。
type FailureFlow struct {
	OrderID  string
	Previous DeliveryStatus

	step FailureStep
	note string
}

// NewFailureFlow 从当前状态开启失败捕获流程。终态不允许再进入。
func NewFailureFlow(orderID string, previous DeliveryStatus) (*FailureFlow, error) {
	if previous.IsTerminal() {
		return nil, ErrTerminalState
	}
	return &FailureFlow{OrderID: orderID, Previous: previous, step: StepReason}, nil
}

// Step 返回当前步骤。
func (f *FailureFlow) Step() FailureStep { return f.step }

// Note 返回当前录入的原因。
func (f *FailureFlow) Note() string { return f.note }

// SetNote 覆盖自由输入的失败原因。
func (f *FailureFlow) SetNote(note string) {
	f.note = strings.TrimSpace(note)
}

// UseTemplate 选择一条模板作为原因，尾部的装饰点号会被剥掉。
func (f *FailureFlow) UseTemplate(template string) {
	f.note = strings.TrimRight(strings.TrimSpace(template), ".")
}

// Proceed 从原因步骤进入确认步骤。原因为空时原地拦截。
func (f *FailureFlow) Proceed() error {
	if f.note == "" {
		return ErrEmptyFailureNote
	}
	f.step = StepConfirm
	return nil
}

// Back 对应确认步骤里选择"Tidak"：退回原因步骤，原因保留。
func (f *FailureFlow) Back() {
	f.step = StepReason
}

// Confirm 对应确认步骤里选择"Ya"，返回确认那一刻的原因。
// 只有这一步之后才允许向外部系统发出变更命令。
func (f *FailureFlow) Confirm() (string, error) {
	if f.step != StepConfirm {
		return "", ErrNotConfirmable
	}
	if f.note == "" {
		// 正常流程到不了这里，Proceed 已经拦截过空原因
		return "", ErrEmptyFailureNote
	}
	return f.note, nil
}
