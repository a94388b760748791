// internal/service/order/interfaces/http_handler.go
package interfaces

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	"github.com/project-hexa/pasjajan-sub001/internal/service/order/application"
	"github.com/project-hexa/pasjajan-sub001/internal/service/order/domain"
)

const routerServiceName = "payment-router-service"

// apiResponse 是所有 JSON 接口的统一信封。
type apiResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

var validViews = map[string]bool{
	"success": true,
	"failed":  true,
	"waiting": true,
}

// PaymentHandler 封装了结果页路由的 HTTP 处理器。
type PaymentHandler struct {
	service *application.RouterService
}

// NewPaymentHandler 创建一个新的 HTTP 处理器实例。
func NewPaymentHandler(service *application.RouterService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
func (h *PaymentHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/payment/result", h.resultHandler)
	mux.HandleFunc("/payment/outcome", h.outcomeHandler)
}

// resultHandler 对"用户停在某个结果页"做出裁决：
// 分类一致返回渲染标记，不一致则 302 到正确的结果页。
func (h *PaymentHandler) resultHandler(w http.ResponseWriter, r *http.Request) {
	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	tracer := otel.Tracer(routerServiceName)
	ctx, span := tracer.Start(ctx, "http.PaymentResult")
	defer span.End()

	orderCode := r.URL.Query().Get("order")
	view := r.URL.Query().Get("view")
	span.SetAttributes(
		attribute.String("order.code", orderCode),
		attribute.String("router.view", view),
	)

	if orderCode == "" {
		// 没带订单号的访问直接送回购物车
		http.Redirect(w, r, application.CartRedirect, http.StatusFound)
		return
	}
	if !validViews[view] {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "view must be one of success|failed|waiting"})
		return
	}

	decision := h.service.Resolve(ctx, orderCode, view)
	if decision.Render {
		writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: decision})
		return
	}
	http.Redirect(w, r, decision.RedirectTo, http.StatusFound)
}

// outcomeHandler 是只分类不跳转的 JSON 探测接口。
func (h *PaymentHandler) outcomeHandler(w http.ResponseWriter, r *http.Request) {
	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	tracer := otel.Tracer(routerServiceName)
	ctx, span := tracer.Start(ctx, "http.PaymentOutcome")
	defer span.End()

	orderCode := r.URL.Query().Get("order")
	if orderCode == "" {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "order is required"})
		return
	}

	outcome := h.service.Outcome(ctx, orderCode)
	if outcome == domain.OutcomeNotFound {
		writeJSON(w, http.StatusNotFound, apiResponse{Message: "order not found"})
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: map[string]string{
		"order":   domain.SanitizeCode(orderCode),
		"outcome": string(outcome),
	}})
}
