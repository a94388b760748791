// internal/service/order/application/delivery_service_test.go
package application

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/project-hexa/pasjajan-sub001/internal/service/order/domain"
)

// fakeUpdater 记录发出的变更命令，可以配置成拒绝一切。
type fakeUpdater struct {
	reject bool
	calls  []struct {
		OrderID string
		Status  domain.DeliveryStatus
		Note    string
	}
}

func (f *fakeUpdater) UpdateStatus(ctx context.Context, orderID string, status domain.DeliveryStatus, note string) error {
	f.calls = append(f.calls, struct {
		OrderID string
		Status  domain.DeliveryStatus
		Note    string
	}{orderID, status, note})
	if f.reject {
		return errors.New("upstream rejected the update")
	}
	return nil
}

// fakeNotifier 收集发出的事件。
type fakeNotifier struct {
	statusEvents       []domain.StatusChangedEvent
	notificationEvents []domain.NotificationEvent
}

func (f *fakeNotifier) SendStatusChanged(ctx context.Context, ev domain.StatusChangedEvent) error {
	f.statusEvents = append(f.statusEvents, ev)
	return nil
}

func (f *fakeNotifier) SendNotification(ctx context.Context, ev domain.NotificationEvent) error {
	f.notificationEvents = append(f.notificationEvents, ev)
	return nil
}

// fakeGuard 是内存版幂等保护。
type fakeGuard struct {
	held map[string]bool
}

func guardKey(orderID string, status domain.DeliveryStatus) string {
	return orderID + "|" + string(status)
}

func (f *fakeGuard) Acquire(ctx context.Context, orderID string, status domain.DeliveryStatus) (bool, error) {
	if f.held == nil {
		f.held = make(map[string]bool)
	}
	if f.held[guardKey(orderID, status)] {
		return false, nil
	}
	f.held[guardKey(orderID, status)] = true
	return true, nil
}

func (f *fakeGuard) Release(ctx context.Context, orderID string, status domain.DeliveryStatus) error {
	delete(f.held, guardKey(orderID, status))
	return nil
}

func newTestDelivery(updater *fakeUpdater, guard *fakeGuard) (*DeliveryService, *fakeNotifier) {
	notifier := &fakeNotifier{}
	// 注意不要把有类型的 nil 指针塞进接口字段
	if guard == nil {
		return NewDeliveryService(updater, nil, nil, notifier, otel.Tracer("test")), notifier
	}
	return NewDeliveryService(updater, guard, nil, notifier, otel.Tracer("test")), notifier
}

func TestApplyStatusHappyPath(t *testing.T) {
	updater := &fakeUpdater{}
	svc, notifier := newTestDelivery(updater, nil)

	svc.Load("ORD1", domain.DeliveryAwaitingCourier)
	if err := svc.ApplyStatus(context.Background(), "ORD1", domain.DeliveryShipping, "admin-1"); err != nil {
		t.Fatal(err)
	}

	current, _ := svc.Current("ORD1")
	if current != domain.DeliveryShipping {
		t.Errorf("projection = %s, want DIKIRIM", current)
	}
	if len(updater.calls) != 1 || updater.calls[0].Status != domain.DeliveryShipping {
		t.Fatalf("updater calls = %+v", updater.calls)
	}
	if len(notifier.statusEvents) != 1 {
		t.Fatalf("status events = %d, want 1", len(notifier.statusEvents))
	}
	ev := notifier.statusEvents[0]
	if ev.Previous != domain.DeliveryAwaitingCourier || ev.Current != domain.DeliveryShipping {
		t.Errorf("event = %+v", ev)
	}
	if ev.ChangedBy != "admin-1" {
		t.Errorf("event actor = %q", ev.ChangedBy)
	}
}

func TestApplyStatusRollsBackOnRejection(t *testing.T) {
	updater := &fakeUpdater{reject: true}
	guard := &fakeGuard{}
	svc, notifier := newTestDelivery(updater, guard)

	svc.Load("ORD1", domain.DeliveryAwaitingCourier)
	err := svc.ApplyStatus(context.Background(), "ORD1", domain.DeliveryShipping, "")
	if err == nil {
		t.Fatal("rejected update must surface an error")
	}

	// 乐观投影必须回滚到变更前的状态
	current, _ := svc.Current("ORD1")
	if current != domain.DeliveryAwaitingCourier {
		t.Errorf("projection after rejection = %s, want rollback to MENUNGGU_KURIR", current)
	}
	// 拒绝的变更不发事件
	if len(notifier.statusEvents) != 0 {
		t.Errorf("rejected update published %d events", len(notifier.statusEvents))
	}

	// 幂等占位被撤销，修复后可以原样重试
	updater.reject = false
	if err := svc.ApplyStatus(context.Background(), "ORD1", domain.DeliveryShipping, ""); err != nil {
		t.Fatalf("retry after rejection failed: %v", err)
	}
	if current, _ := svc.Current("ORD1"); current != domain.DeliveryShipping {
		t.Errorf("projection after retry = %s", current)
	}
}

func TestApplyStatusSameStateIsNoop(t *testing.T) {
	updater := &fakeUpdater{}
	svc, notifier := newTestDelivery(updater, nil)

	svc.Load("ORD1", domain.DeliveryShipping)
	if err := svc.ApplyStatus(context.Background(), "ORD1", domain.DeliveryShipping, ""); err != nil {
		t.Fatalf("same-state selection should be a silent no-op, got %v", err)
	}
	if len(updater.calls) != 0 {
		t.Errorf("no-op still issued %d update commands", len(updater.calls))
	}
	if len(notifier.statusEvents) != 0 {
		t.Errorf("no-op still published %d events", len(notifier.statusEvents))
	}
}

func TestApplyStatusRejectsDirectFailure(t *testing.T) {
	svc, _ := newTestDelivery(&fakeUpdater{}, nil)
	svc.Load("ORD1", domain.DeliveryShipping)

	err := svc.ApplyStatus(context.Background(), "ORD1", domain.DeliveryFailed, "")
	if !errors.Is(err, ErrUseFailureFlow) {
		t.Fatalf("direct Gagal Dikirim: got %v, want ErrUseFailureFlow", err)
	}
}

func TestApplyStatusUnknownOrder(t *testing.T) {
	svc, _ := newTestDelivery(&fakeUpdater{}, nil)
	err := svc.ApplyStatus(context.Background(), "GHOST", domain.DeliveryShipping, "")
	if !errors.Is(err, ErrUnknownOrder) {
		t.Fatalf("got %v, want ErrUnknownOrder", err)
	}
}

func TestIdempotencyGuardSuppressesDuplicates(t *testing.T) {
	updater := &fakeUpdater{}
	guard := &fakeGuard{}
	svc, _ := newTestDelivery(updater, guard)

	svc.Load("ORD1", domain.DeliveryAwaitingCourier)
	if err := svc.ApplyStatus(context.Background(), "ORD1", domain.DeliveryShipping, ""); err != nil {
		t.Fatal(err)
	}

	// 同一 (orderID, status) 的重复提交被占位挡下，按成功短路
	svc.Load("ORD1", domain.DeliveryAwaitingCourier)
	if err := svc.ApplyStatus(context.Background(), "ORD1", domain.DeliveryShipping, ""); err != nil {
		t.Fatalf("duplicate apply should short-circuit, got %v", err)
	}
	if len(updater.calls) != 1 {
		t.Errorf("updater called %d times, want 1", len(updater.calls))
	}
}

func TestFailureFlowEndToEnd(t *testing.T) {
	updater := &fakeUpdater{}
	svc, notifier := newTestDelivery(updater, nil)

	svc.Load("ORD1", domain.DeliveryShipping)
	if err := svc.BeginFailure("ORD1"); err != nil {
		t.Fatal(err)
	}
	if err := svc.UseFailureTemplate("ORD1", "Alamat Tidak Valid...."); err != nil {
		t.Fatal(err)
	}
	if err := svc.ProceedFailure("ORD1"); err != nil {
		t.Fatal(err)
	}

	// "Tidak" 退回原因步骤，换一个原因再走一遍
	if err := svc.AbortFailure("ORD1"); err != nil {
		t.Fatal(err)
	}
	if err := svc.SetFailureReason("ORD1", "Penerima menolak paket"); err != nil {
		t.Fatal(err)
	}
	if err := svc.ProceedFailure("ORD1"); err != nil {
		t.Fatal(err)
	}

	// 确认前存储状态保持不变
	if len(updater.calls) != 0 {
		t.Fatalf("update issued before confirm: %+v", updater.calls)
	}
	if current, _ := svc.Current("ORD1"); current != domain.DeliveryShipping {
		t.Fatalf("projection changed before confirm: %s", current)
	}

	if err := svc.ConfirmFailure(context.Background(), "ORD1", "admin-2"); err != nil {
		t.Fatal(err)
	}

	// 命令携带的是确认那一刻的原因，不是第一次录入的模板
	if len(updater.calls) != 1 {
		t.Fatalf("updater calls = %+v", updater.calls)
	}
	call := updater.calls[0]
	if call.Status != domain.DeliveryFailed || call.Note != "Penerima menolak paket" {
		t.Errorf("update command = %+v", call)
	}
	if current, _ := svc.Current("ORD1"); current != domain.DeliveryFailed {
		t.Errorf("projection after confirm = %s", current)
	}
	if len(notifier.statusEvents) != 1 || notifier.statusEvents[0].Note != "Penerima menolak paket" {
		t.Errorf("status events = %+v", notifier.statusEvents)
	}

	// 流程结束后再确认必须报没有流程
	if err := svc.ConfirmFailure(context.Background(), "ORD1", ""); !errors.Is(err, ErrNoFailureFlow) {
		t.Errorf("confirm after completion: got %v, want ErrNoFailureFlow", err)
	}
}

func TestFailureFlowProceedRequiresNote(t *testing.T) {
	svc, _ := newTestDelivery(&fakeUpdater{}, nil)
	svc.Load("ORD1", domain.DeliveryShipping)

	if err := svc.BeginFailure("ORD1"); err != nil {
		t.Fatal(err)
	}
	if err := svc.ProceedFailure("ORD1"); !errors.Is(err, domain.ErrEmptyFailureNote) {
		t.Fatalf("got %v, want ErrEmptyFailureNote", err)
	}
}

func TestFailureFlowRollsBackOnRejection(t *testing.T) {
	updater := &fakeUpdater{reject: true}
	svc, _ := newTestDelivery(updater, nil)

	svc.Load("ORD1", domain.DeliveryShipping)
	_ = svc.BeginFailure("ORD1")
	_ = svc.SetFailureReason("ORD1", "Kurir kecelakaan")
	_ = svc.ProceedFailure("ORD1")

	if err := svc.ConfirmFailure(context.Background(), "ORD1", ""); err == nil {
		t.Fatal("rejected confirm must surface an error")
	}
	if current, _ := svc.Current("ORD1"); current != domain.DeliveryShipping {
		t.Errorf("projection after rejected confirm = %s, want rollback", current)
	}
	// 流程保留，运营可以直接重试确认
	if _, _, _, ok := svc.FlowState("ORD1"); !ok {
		t.Error("failure flow dropped after rejected confirm")
	}
}

func TestCancelFailureDropsFlow(t *testing.T) {
	svc, _ := newTestDelivery(&fakeUpdater{}, nil)
	svc.Load("ORD1", domain.DeliveryShipping)
	_ = svc.BeginFailure("ORD1")

	svc.CancelFailure("ORD1")
	if _, _, _, ok := svc.FlowState("ORD1"); ok {
		t.Error("flow still present after cancel")
	}
	if err := svc.ProceedFailure("ORD1"); !errors.Is(err, ErrNoFailureFlow) {
		t.Errorf("got %v, want ErrNoFailureFlow", err)
	}
}
