// internal/service/order/interfaces/admin_handler.go
package interfaces

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/project-hexa/pasjajan-sub001/internal/service/order/application"
	"github.com/project-hexa/pasjajan-sub001/internal/service/order/domain"
	"github.com/project-hexa/pasjajan-sub001/internal/service/order/port"
)

const adminServiceName = "delivery-admin-service"

// AdminHandler 封装后台配送状态机的 HTTP 处理器。
type AdminHandler struct {
	service *application.DeliveryService
	audit   port.TransitionAuditLog // 可为 nil
}

// NewAdminHandler 创建后台处理器。
func NewAdminHandler(service *application.DeliveryService, audit port.TransitionAuditLog) *AdminHandler {
	return &AdminHandler{service: service, audit: audit}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/admin/delivery/load", h.loadHandler)
	mux.HandleFunc("/admin/delivery/status", h.statusHandler)
	mux.HandleFunc("/admin/delivery/templates", h.templatesHandler)
	mux.HandleFunc("/admin/delivery/flow", h.flowHandler)
	mux.HandleFunc("/admin/delivery/fail/begin", h.failBeginHandler)
	mux.HandleFunc("/admin/delivery/fail/reason", h.failReasonHandler)
	mux.HandleFunc("/admin/delivery/fail/proceed", h.failProceedHandler)
	mux.HandleFunc("/admin/delivery/fail/confirm", h.failConfirmHandler)
	mux.HandleFunc("/admin/delivery/fail/cancel", h.failCancelHandler)
	mux.HandleFunc("/admin/delivery/history", h.historyHandler)
}

type adminRequest struct {
	OrderID  string `json:"order_id"`
	Status   string `json:"status,omitempty"`
	Note     string `json:"note,omitempty"`
	Template string `json:"template,omitempty"`
	Actor    string `json:"actor,omitempty"`
	Decision string `json:"decision,omitempty"` // "Ya" / "Tidak"
}

func (h *AdminHandler) decode(w http.ResponseWriter, r *http.Request) (adminRequest, bool) {
	var req adminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "invalid request body"})
		return req, false
	}
	if req.OrderID == "" {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "order_id is required"})
		return req, false
	}
	return req, true
}

// writeServiceError 把应用层错误翻译成 HTTP 状态码。
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, application.ErrUnknownOrder), errors.Is(err, application.ErrNoFailureFlow):
		writeJSON(w, http.StatusNotFound, apiResponse{Message: err.Error()})
	case errors.Is(err, application.ErrUseFailureFlow), errors.Is(err, domain.ErrEmptyFailureNote):
		writeJSON(w, http.StatusUnprocessableEntity, apiResponse{Message: err.Error()})
	case errors.Is(err, domain.ErrTerminalState), errors.Is(err, domain.ErrNotConfirmable):
		writeJSON(w, http.StatusConflict, apiResponse{Message: err.Error()})
	default:
		// 外部系统拒绝或不可达：乐观状态已回滚，运营可以原样重试
		writeJSON(w, http.StatusBadGateway, apiResponse{Message: err.Error(), Data: map[string]bool{"rolled_back": true}})
	}
}

// loadHandler 用列表页的状态初始化本地投影。
func (h *AdminHandler) loadHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	h.service.Load(req.OrderID, domain.NormalizeDeliveryStatus(req.Status))
	writeJSON(w, http.StatusOK, apiResponse{Success: true})
}

// statusHandler 应用一次非失败状态的选择。
func (h *AdminHandler) statusHandler(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := otel.Tracer(adminServiceName).Start(ctx, "http.ApplyStatus")
	defer span.End()

	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	target := domain.NormalizeDeliveryStatus(req.Status)
	if err := h.service.ApplyStatus(ctx, req.OrderID, target, req.Actor); err != nil {
		writeServiceError(w, err)
		return
	}
	current, _ := h.service.Current(req.OrderID)
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: map[string]string{
		"order_id": req.OrderID,
		"status":   string(current),
		"label":    current.Label(),
	}})
}

// templatesHandler 返回失败原因的固定模板列表。
func (h *AdminHandler) templatesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: domain.FailureNoteTemplates})
}

// flowHandler 回显进行中的失败流程，供界面恢复状态。
func (h *AdminHandler) flowHandler(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("order_id")
	if orderID == "" {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "order_id is required"})
		return
	}
	step, note, previous, ok := h.service.FlowState(orderID)
	if !ok {
		writeJSON(w, http.StatusNotFound, apiResponse{Message: "no failure flow in progress"})
		return
	}
	stepName := "reason"
	if step == domain.StepConfirm {
		stepName = "confirm"
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: map[string]string{
		"step":     stepName,
		"note":     note,
		"previous": string(previous),
	}})
}

func (h *AdminHandler) failBeginHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	if err := h.service.BeginFailure(req.OrderID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true})
}

// failReasonHandler 录入原因：模板优先，其次自由输入。
func (h *AdminHandler) failReasonHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	var err error
	if req.Template != "" {
		err = h.service.UseFailureTemplate(req.OrderID, req.Template)
	} else {
		err = h.service.SetFailureReason(req.OrderID, req.Note)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true})
}

func (h *AdminHandler) failProceedHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	if err := h.service.ProceedFailure(req.OrderID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true})
}

// failConfirmHandler 处理确认步骤的"Ya"/"Tidak"。
func (h *AdminHandler) failConfirmHandler(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := otel.Tracer(adminServiceName).Start(ctx, "http.ConfirmFailure")
	defer span.End()

	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	if req.Decision == "Tidak" {
		if err := h.service.AbortFailure(req.OrderID); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "back to reason step"})
		return
	}
	if req.Decision != "Ya" {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: `decision must be "Ya" or "Tidak"`})
		return
	}
	if err := h.service.ConfirmFailure(ctx, req.OrderID, req.Actor); err != nil {
		writeServiceError(w, err)
		return
	}
	current, _ := h.service.Current(req.OrderID)
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: map[string]string{
		"order_id": req.OrderID,
		"status":   string(current),
	}})
}

func (h *AdminHandler) failCancelHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	h.service.CancelFailure(req.OrderID)
	writeJSON(w, http.StatusOK, apiResponse{Success: true})
}

// historyHandler 返回订单的流转审计记录（后台活动日志）。
func (h *AdminHandler) historyHandler(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeJSON(w, http.StatusNotImplemented, apiResponse{Message: "audit log not configured"})
		return
	}
	orderID := r.URL.Query().Get("order_id")
	if orderID == "" {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "order_id is required"})
		return
	}
	events, err := h.audit.History(r.Context(), orderID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, apiResponse{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: events})
}
