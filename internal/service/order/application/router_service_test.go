// internal/service/order/application/router_service_test.go
package application

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/project-hexa/pasjajan-sub001/internal/service/order/domain"
)

// fakeLookup 是内存里的订单表，顺带统计上游调用次数。
type fakeLookup struct {
	orders map[string]*domain.Snapshot
	calls  atomic.Int64
}

func (f *fakeLookup) FindByCode(ctx context.Context, code string) (*domain.Snapshot, error) {
	f.calls.Add(1)
	s, ok := f.orders[code]
	if !ok {
		return nil, errors.Errorf("order %s not found", code)
	}
	return s, nil
}

func newTestRouter(orders map[string]*domain.Snapshot, now time.Time) (*RouterService, *fakeLookup) {
	lookup := &fakeLookup{orders: orders}
	svc := NewRouterService(lookup, otel.Tracer("test"))
	svc.now = func() time.Time { return now }
	return svc, lookup
}

func TestResolveRendersMatchingView(t *testing.T) {
	now := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	svc, _ := newTestRouter(map[string]*domain.Snapshot{
		"ORD1": {Code: "ORD1", PaymentStatus: domain.PaymentPaid},
	}, now)

	d := svc.Resolve(context.Background(), "ORD1", "success")
	if !d.Render {
		t.Fatalf("matching view should render, got redirect to %q", d.RedirectTo)
	}
	if d.Outcome != domain.OutcomeSuccess {
		t.Errorf("outcome = %s, want SUCCESS", d.Outcome)
	}
}

func TestResolveRedirectsMismatchedView(t *testing.T) {
	now := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	svc, _ := newTestRouter(map[string]*domain.Snapshot{
		"ORD1": {Code: "ORD1", PaymentStatus: domain.PaymentPaid},
	}, now)

	d := svc.Resolve(context.Background(), "ORD1", "waiting")
	if d.Render {
		t.Fatal("mismatched view must not render")
	}
	if d.RedirectTo != "/payment/success?order=ORD1" {
		t.Errorf("redirect = %q, want /payment/success?order=ORD1", d.RedirectTo)
	}
}

func TestResolveIdempotent(t *testing.T) {
	// 跳转目标页自己再裁决一次必然得到"渲染"，不会出现跳转环
	now := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	expired := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc, _ := newTestRouter(map[string]*domain.Snapshot{
		"X1": {Code: "X1", PaymentStatus: domain.PaymentPending, ExpiredAt: &expired},
	}, now)

	first := svc.Resolve(context.Background(), "X1", "waiting")
	if first.Render || first.RedirectTo != "/payment/failed?order=X1" {
		t.Fatalf("first resolve = %+v, want redirect to /payment/failed?order=X1", first)
	}

	second := svc.Resolve(context.Background(), "X1", "failed")
	if !second.Render {
		t.Fatalf("second resolve on target view must render, got %+v", second)
	}
}

func TestResolveNotFoundGoesToCart(t *testing.T) {
	svc, _ := newTestRouter(map[string]*domain.Snapshot{}, time.Now())

	for _, view := range []string{"success", "failed", "waiting"} {
		d := svc.Resolve(context.Background(), "GHOST", view)
		if d.Render {
			t.Errorf("view %s: unknown order must never render", view)
		}
		if d.RedirectTo != CartRedirect {
			t.Errorf("view %s: redirect = %q, want %q", view, d.RedirectTo, CartRedirect)
		}
	}
}

func TestResolveSanitizesRetrySuffix(t *testing.T) {
	svc, lookup := newTestRouter(map[string]*domain.Snapshot{
		"ORD9": {Code: "ORD9", PaymentStatus: domain.PaymentSettlement},
	}, time.Now())

	d := svc.Resolve(context.Background(), "ORD9:3", "success")
	if !d.Render {
		t.Fatalf("sanitized code should hit the order, got %+v", d)
	}
	if d.Code != "ORD9" {
		t.Errorf("decision code = %q, want sanitized ORD9", d.Code)
	}
	if lookup.calls.Load() != 1 {
		t.Errorf("lookup called %d times, want 1", lookup.calls.Load())
	}
}

func TestOutcomeProbe(t *testing.T) {
	svc, _ := newTestRouter(map[string]*domain.Snapshot{
		"ORD1": {Code: "ORD1", PaymentStatus: domain.PaymentDeny},
	}, time.Now())

	if got := svc.Outcome(context.Background(), "ORD1"); got != domain.OutcomeFailed {
		t.Errorf("Outcome = %s, want FAILED", got)
	}
	if got := svc.Outcome(context.Background(), "GHOST"); got != domain.OutcomeNotFound {
		t.Errorf("Outcome for unknown order = %s, want NOT_FOUND", got)
	}
}
