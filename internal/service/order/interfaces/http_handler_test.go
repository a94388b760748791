// internal/service/order/interfaces/http_handler_test.go
package interfaces

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"

	"github.com/project-hexa/pasjajan-sub001/internal/pkg/httpclient"
	"github.com/project-hexa/pasjajan-sub001/internal/service/order/application"
	"github.com/project-hexa/pasjajan-sub001/internal/service/order/infrastructure/adapter"
)

// fakeOrderAPI 起一个假的外部订单 API，返回给定的订单集。
func fakeOrderAPI(t *testing.T, orders map[string]map[string]interface{}) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/orders/", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Path[len("/orders/"):]
		w.Header().Set("Content-Type", "application/json")
		order, ok := orders[code]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": false})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"order": order},
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newRouterServer(t *testing.T, orders map[string]map[string]interface{}) *httptest.Server {
	t.Helper()
	upstream := fakeOrderAPI(t, orders)

	tracer := otel.Tracer("test")
	lookup := adapter.NewLookupHTTPAdapter(httpclient.NewClient(tracer), upstream.URL)
	service := application.NewRouterService(lookup, tracer)

	mux := http.NewServeMux()
	NewPaymentHandler(service).RegisterRoutes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// noRedirectClient 不自动跟随 302，测试要检查 Location。
func noRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func TestPaymentResultExpiredPendingRedirectsToFailed(t *testing.T) {
	// pending 订单过了 expired_at：停在 waiting 页必须被送去 failed 页，
	// 即使后端还没把存储状态改成 expired
	server := newRouterServer(t, map[string]map[string]interface{}{
		"X1": {
			"code":           "X1",
			"payment_status": "pending",
			"expired_at":     "2025-01-01T00:00:00Z",
		},
	})

	resp, err := noRedirectClient().Get(server.URL + "/payment/result?order=X1&view=waiting")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want 302", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/payment/failed?order=X1" {
		t.Errorf("Location = %q, want /payment/failed?order=X1", loc)
	}
}

func TestPaymentResultRendersMatchingView(t *testing.T) {
	server := newRouterServer(t, map[string]map[string]interface{}{
		"ORD1": {"code": "ORD1", "payment_status": "settlement"},
	})

	resp, err := http.Get(server.URL + "/payment/result?order=ORD1&view=success")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Render  bool   `json:"render"`
			Outcome string `json:"outcome"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !body.Success || !body.Data.Render || body.Data.Outcome != "SUCCESS" {
		t.Errorf("body = %+v", body)
	}
}

func TestPaymentResultRetrySuffixSanitized(t *testing.T) {
	server := newRouterServer(t, map[string]map[string]interface{}{
		"ORD7": {"code": "ORD7", "payment_status": "deny"},
	})

	// 支付网关重试后订单号带 ":2" 后缀，查询和跳转都要用剥掉后缀的订单号
	resp, err := noRedirectClient().Get(server.URL + "/payment/result?order=ORD7:2&view=waiting")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want 302", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/payment/failed?order=ORD7" {
		t.Errorf("Location = %q", loc)
	}
}

func TestPaymentResultUnknownOrderGoesToCart(t *testing.T) {
	server := newRouterServer(t, nil)

	resp, err := noRedirectClient().Get(server.URL + "/payment/result?order=GHOST&view=success")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want 302", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != application.CartRedirect {
		t.Errorf("Location = %q, want %q", loc, application.CartRedirect)
	}
}

func TestPaymentResultMissingOrderGoesToCart(t *testing.T) {
	server := newRouterServer(t, nil)

	resp, err := noRedirectClient().Get(server.URL + "/payment/result?view=success")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want 302", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != application.CartRedirect {
		t.Errorf("Location = %q, want %q", loc, application.CartRedirect)
	}
}

func TestPaymentResultInvalidView(t *testing.T) {
	server := newRouterServer(t, map[string]map[string]interface{}{
		"ORD1": {"code": "ORD1", "payment_status": "paid"},
	})

	resp, err := http.Get(server.URL + "/payment/result?order=ORD1&view=pending")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestPaymentOutcomeProbe(t *testing.T) {
	server := newRouterServer(t, map[string]map[string]interface{}{
		"ORD1": {"code": "ORD1", "payment_status": "capture"},
	})

	resp, err := http.Get(server.URL + "/payment/outcome?order=ORD1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Data map[string]string `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Data["outcome"] != "SUCCESS" {
		t.Errorf("outcome = %q", body.Data["outcome"])
	}

	resp2, err := http.Get(fmt.Sprintf("%s/payment/outcome?order=GHOST", server.URL))
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Errorf("unknown order status = %d, want 404", resp2.StatusCode)
	}
}
