// internal/service/order/infrastructure/adapter/lookup_http_adapter.go
package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/project-hexa/pasjajan-sub001/internal/pkg/httpclient"
	"github.com/project-hexa/pasjajan-sub001/internal/service/order/domain"
)

// LookupHTTPAdapter 实现 port.OrderLookupService，
// 背后是外部订单 API 的 GET /orders/{code}。
type LookupHTTPAdapter struct {
	client  *httpclient.Client
	baseURL string
}

// NewLookupHTTPAdapter 创建一个订单查询适配器。
func NewLookupHTTPAdapter(client *httpclient.Client, baseURL string) *LookupHTTPAdapter {
	return &LookupHTTPAdapter{client: client, baseURL: baseURL}
}

// 上游返回 { success, data: { order } }，订单号字段历史上有两种写法。
type lookupEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		Order wireOrder `json:"order"`
	} `json:"data"`
}

type wireOrder struct {
	Code           string     `json:"code"`
	OrderCode      string     `json:"order_code"`
	PaymentStatus  string     `json:"payment_status"`
	DeliveryStatus string     `json:"delivery_status"`
	ExpiredAt      *string    `json:"expired_at"`
	FailureNote    string     `json:"failure_note"`
	GrandTotal     int64      `json:"grand_total"`
	Items          []wireItem `json:"items"`
}

type wireItem struct {
	Name string `json:"name"`
}

// FindByCode 查询订单快照。任何网络、解析、success=false 都以 error 返回。
func (a *LookupHTTPAdapter) FindByCode(ctx context.Context, code string) (*domain.Snapshot, error) {
	var envelope lookupEnvelope
	url := fmt.Sprintf("%s/orders/%s", a.baseURL, code)
	if err := a.client.GetJSON(ctx, url, nil, &envelope); err != nil {
		return nil, errors.Wrapf(err, "order lookup failed for %s", code)
	}
	if !envelope.Success {
		return nil, errors.Errorf("order %s not found", code)
	}
	return toSnapshot(envelope.Data.Order)
}

func toSnapshot(w wireOrder) (*domain.Snapshot, error) {
	orderCode := w.Code
	if orderCode == "" {
		orderCode = w.OrderCode
	}

	var expiredAt *time.Time
	if w.ExpiredAt != nil && *w.ExpiredAt != "" {
		t, err := time.Parse(time.RFC3339, *w.ExpiredAt)
		if err != nil {
			return nil, errors.Wrap(err, "invalid expired_at in order payload")
		}
		expiredAt = &t
	}

	items := make([]string, 0, len(w.Items))
	for _, it := range w.Items {
		items = append(items, it.Name)
	}

	return &domain.Snapshot{
		Code:           orderCode,
		PaymentStatus:  domain.PaymentStatus(w.PaymentStatus),
		DeliveryStatus: domain.NormalizeDeliveryStatus(w.DeliveryStatus),
		ExpiredAt:      expiredAt,
		FailureNote:    w.FailureNote,
		GrandTotal:     w.GrandTotal,
		Items:          items,
	}, nil
}
