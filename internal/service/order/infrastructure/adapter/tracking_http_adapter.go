// internal/service/order/infrastructure/adapter/tracking_http_adapter.go
package adapter

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/project-hexa/pasjajan-sub001/internal/pkg/httpclient"
	"github.com/project-hexa/pasjajan-sub001/internal/service/order/domain"
	"github.com/project-hexa/pasjajan-sub001/internal/service/order/port"
)

// TrackingHTTPAdapter 实现 port.TrackingService，
// 背后是外部配送 API 的 GET /delivery/{orderId}/tracking。
type TrackingHTTPAdapter struct {
	client  *httpclient.Client
	baseURL string
}

// NewTrackingHTTPAdapter 创建一个配送跟踪适配器。
func NewTrackingHTTPAdapter(client *httpclient.Client, baseURL string) *TrackingHTTPAdapter {
	return &TrackingHTTPAdapter{client: client, baseURL: baseURL}
}

type wireTracking struct {
	StatusUtama string `json:"status_utama"`
	Kurir       struct {
		Nama    string `json:"nama"`
		Telepon string `json:"telepon"`
	} `json:"kurir"`
	Timeline []wireTimelineEntry `json:"timeline"`
}

type wireTimelineEntry struct {
	Status     string `json:"status"`
	Keterangan string `json:"keterangan"`
	Tanggal    string `json:"tanggal"`
	Jam        string `json:"jam"`
}

// CurrentStatus 拉取当前配送状态。
// 失败状态的原因取自时间线首条记录的说明字段。
func (a *TrackingHTTPAdapter) CurrentStatus(ctx context.Context, orderID string) (port.TrackingState, error) {
	var payload wireTracking
	url := fmt.Sprintf("%s/delivery/%s/tracking", a.baseURL, orderID)
	if err := a.client.GetJSON(ctx, url, nil, &payload); err != nil {
		return port.TrackingState{}, errors.Wrapf(err, "tracking fetch failed for %s", orderID)
	}

	state := port.TrackingState{
		Status: domain.NormalizeDeliveryStatus(payload.StatusUtama),
	}
	if state.Status == domain.DeliveryFailed && len(payload.Timeline) > 0 {
		state.FailureNote = payload.Timeline[0].Keterangan
	}
	return state, nil
}
