// internal/service/order/interfaces/watch_handler.go
package interfaces

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/project-hexa/pasjajan-sub001/internal/service/order/application"
	"github.com/project-hexa/pasjajan-sub001/internal/service/order/port"
)

// WatchHandler 是跟踪轮询器的管理接口：
// 客户端打开订单详情页时登记关注，离开时撤销。
type WatchHandler struct {
	service *application.WatcherService
}

// NewWatchHandler 创建轮询器管理处理器。
func NewWatchHandler(service *application.WatcherService) *WatchHandler {
	return &WatchHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
func (h *WatchHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/watch", h.watchHandler)
	mux.HandleFunc("/unwatch", h.unwatchHandler)
}

type watchRequest struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id,omitempty"`
}

func (h *WatchHandler) watchHandler(w http.ResponseWriter, r *http.Request) {
	var req watchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "order_id is required"})
		return
	}
	err := h.service.Watch(r.Context(), port.Watch{OrderID: req.OrderID, UserID: req.UserID})
	if err != nil && !errors.Is(err, application.ErrAlreadyWatched) {
		writeJSON(w, http.StatusInternalServerError, apiResponse{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true})
}

func (h *WatchHandler) unwatchHandler(w http.ResponseWriter, r *http.Request) {
	var req watchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "order_id is required"})
		return
	}
	if err := h.service.Unwatch(r.Context(), req.OrderID); err != nil {
		writeJSON(w, http.StatusInternalServerError, apiResponse{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true})
}
