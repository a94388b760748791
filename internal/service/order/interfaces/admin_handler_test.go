// internal/service/order/interfaces/admin_handler_test.go
package interfaces

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/project-hexa/pasjajan-sub001/internal/service/order/application"
	"github.com/project-hexa/pasjajan-sub001/internal/service/order/domain"
)

type stubUpdater struct {
	reject bool
	last   struct {
		Status domain.DeliveryStatus
		Note   string
	}
}

func (s *stubUpdater) UpdateStatus(ctx context.Context, orderID string, status domain.DeliveryStatus, note string) error {
	if s.reject {
		return errors.New("upstream said no")
	}
	s.last.Status = status
	s.last.Note = note
	return nil
}

type stubNotifier struct{}

func (stubNotifier) SendStatusChanged(ctx context.Context, ev domain.StatusChangedEvent) error {
	return nil
}
func (stubNotifier) SendNotification(ctx context.Context, ev domain.NotificationEvent) error {
	return nil
}

func newAdminServer(t *testing.T, updater *stubUpdater) *httptest.Server {
	t.Helper()
	service := application.NewDeliveryService(updater, nil, nil, stubNotifier{}, otel.Tracer("test"))
	mux := http.NewServeMux()
	NewAdminHandler(service, nil).RegisterRoutes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func post(t *testing.T, url string, body map[string]string) *http.Response {
	t.Helper()
	payload, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAdminStatusUpdate(t *testing.T) {
	updater := &stubUpdater{}
	server := newAdminServer(t, updater)

	resp := post(t, server.URL+"/admin/delivery/load", map[string]string{
		"order_id": "ORD1", "status": "DIKEMAS", // 老数据的历史写法
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("load status = %d", resp.StatusCode)
	}

	resp = post(t, server.URL+"/admin/delivery/status", map[string]string{
		"order_id": "ORD1", "status": "DIKIRIM", "actor": "admin-1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d", resp.StatusCode)
	}
	var body struct {
		Data map[string]string `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Data["status"] != "DIKIRIM" || body.Data["label"] != "Sedang Dikirim" {
		t.Errorf("data = %+v", body.Data)
	}
}

func TestAdminDirectFailureRejected(t *testing.T) {
	server := newAdminServer(t, &stubUpdater{})
	post(t, server.URL+"/admin/delivery/load", map[string]string{"order_id": "ORD1", "status": "DIKIRIM"})

	resp := post(t, server.URL+"/admin/delivery/status", map[string]string{
		"order_id": "ORD1", "status": "Gagal Dikirim",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("direct failure status = %d, want 422", resp.StatusCode)
	}
}

func TestAdminUnknownOrder(t *testing.T) {
	server := newAdminServer(t, &stubUpdater{})
	resp := post(t, server.URL+"/admin/delivery/status", map[string]string{
		"order_id": "GHOST", "status": "DIKIRIM",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestAdminRejectionReportsRollback(t *testing.T) {
	server := newAdminServer(t, &stubUpdater{reject: true})
	post(t, server.URL+"/admin/delivery/load", map[string]string{"order_id": "ORD1", "status": "MENUNGGU_KURIR"})

	resp := post(t, server.URL+"/admin/delivery/status", map[string]string{
		"order_id": "ORD1", "status": "DIKIRIM",
	})
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
	var body struct {
		Data map[string]bool `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !body.Data["rolled_back"] {
		t.Error("response must report the optimistic update was rolled back")
	}
}

func TestAdminFailureFlow(t *testing.T) {
	updater := &stubUpdater{}
	server := newAdminServer(t, updater)
	post(t, server.URL+"/admin/delivery/load", map[string]string{"order_id": "ORD1", "status": "DIKIRIM"})

	if resp := post(t, server.URL+"/admin/delivery/fail/begin", map[string]string{"order_id": "ORD1"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("begin status = %d", resp.StatusCode)
	}

	// 原因为空不允许进入确认步骤
	if resp := post(t, server.URL+"/admin/delivery/fail/proceed", map[string]string{"order_id": "ORD1"}); resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("proceed without note = %d, want 422", resp.StatusCode)
	}

	post(t, server.URL+"/admin/delivery/fail/reason", map[string]string{
		"order_id": "ORD1", "template": "Alamat Tidak Valid....",
	})
	if resp := post(t, server.URL+"/admin/delivery/fail/proceed", map[string]string{"order_id": "ORD1"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("proceed = %d", resp.StatusCode)
	}

	// "Tidak" 退回原因步骤
	if resp := post(t, server.URL+"/admin/delivery/fail/confirm", map[string]string{
		"order_id": "ORD1", "decision": "Tidak",
	}); resp.StatusCode != http.StatusOK {
		t.Fatalf("abort = %d", resp.StatusCode)
	}

	// 回显流程状态：原因保留，步骤退回 reason
	flowResp, err := http.Get(server.URL + "/admin/delivery/flow?order_id=ORD1")
	if err != nil {
		t.Fatal(err)
	}
	defer flowResp.Body.Close()
	var flowBody struct {
		Data map[string]string `json:"data"`
	}
	if err := json.NewDecoder(flowResp.Body).Decode(&flowBody); err != nil {
		t.Fatal(err)
	}
	if flowBody.Data["step"] != "reason" || flowBody.Data["note"] != "Alamat Tidak Valid" {
		t.Errorf("flow state = %+v", flowBody.Data)
	}

	// 再走到确认并选择"Ya"
	post(t, server.URL+"/admin/delivery/fail/proceed", map[string]string{"order_id": "ORD1"})
	if resp := post(t, server.URL+"/admin/delivery/fail/confirm", map[string]string{
		"order_id": "ORD1", "decision": "Ya", "actor": "admin-1",
	}); resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm = %d", resp.StatusCode)
	}

	if updater.last.Status != domain.DeliveryFailed || updater.last.Note != "Alamat Tidak Valid" {
		t.Errorf("update command = %+v", updater.last)
	}
}

func TestAdminConfirmInvalidDecision(t *testing.T) {
	server := newAdminServer(t, &stubUpdater{})
	post(t, server.URL+"/admin/delivery/load", map[string]string{"order_id": "ORD1", "status": "DIKIRIM"})
	post(t, server.URL+"/admin/delivery/fail/begin", map[string]string{"order_id": "ORD1"})

	resp := post(t, server.URL+"/admin/delivery/fail/confirm", map[string]string{
		"order_id": "ORD1", "decision": "mungkin",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAdminTemplates(t *testing.T) {
	server := newAdminServer(t, &stubUpdater{})
	resp, err := http.Get(server.URL + "/admin/delivery/templates")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body struct {
		Data []string `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Data) == 0 {
		t.Error("template list is empty")
	}
}

func TestAdminHistoryWithoutAuditLog(t *testing.T) {
	server := newAdminServer(t, &stubUpdater{})
	resp, err := http.Get(server.URL + "/admin/delivery/history?order_id=ORD1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", resp.StatusCode)
	}
}
