// internal/service/order/infrastructure/adapter/update_http_adapter.go
package adapter

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/project-hexa/pasjajan-sub001/internal/pkg/httpclient"
	"github.com/project-hexa/pasjajan-sub001/internal/service/order/domain"
)

// UpdateHTTPAdapter 实现 port.DeliveryUpdateService，
// 背后是外部后台 API 的 POST /admin/delivery/{orderId}/update。
// 上游保证同一 (orderId, status) 的重试是幂等的。
type UpdateHTTPAdapter struct {
	client  *httpclient.Client
	baseURL string
}

// NewUpdateHTTPAdapter 创建一个状态变更适配器。
func NewUpdateHTTPAdapter(client *httpclient.Client, baseURL string) *UpdateHTTPAdapter {
	return &UpdateHTTPAdapter{client: client, baseURL: baseURL}
}

type updateRequest struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

type updateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// UpdateStatus 向外部系统提交一次配送状态变更。
func (a *UpdateHTTPAdapter) UpdateStatus(ctx context.Context, orderID string, status domain.DeliveryStatus, note string) error {
	url := fmt.Sprintf("%s/admin/delivery/%s/update", a.baseURL, orderID)
	var resp updateResponse
	if err := a.client.PostJSON(ctx, url, updateRequest{Status: string(status), Note: note}, &resp); err != nil {
		return errors.Wrapf(err, "delivery update failed for %s", orderID)
	}
	if !resp.Success {
		return errors.Errorf("delivery update rejected for %s: %s", orderID, resp.Message)
	}
	return nil
}
