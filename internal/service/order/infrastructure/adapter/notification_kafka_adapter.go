// internal/service/order/infrastructure/adapter/notification_kafka_adapter.go
package adapter

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/project-hexa/pasjajan-sub001/internal/pkg/mq"
	"github.com/project-hexa/pasjajan-sub001/internal/service/order/domain"
)

// NotificationKafkaAdapter 实现了 port.NotificationProducer 接口。
// 状态变化和用户通知走不同主题，消费者各取所需。
type NotificationKafkaAdapter struct {
	statusWriter       *kafka.Writer
	notificationWriter *kafka.Writer
}

// NewNotificationKafkaAdapter 创建一个新的通知生产者适配器。
func NewNotificationKafkaAdapter(statusWriter, notificationWriter *kafka.Writer) *NotificationKafkaAdapter {
	return &NotificationKafkaAdapter{
		statusWriter:       statusWriter,
		notificationWriter: notificationWriter,
	}
}

// SendStatusChanged 广播一次已确认的状态变化。
// 以订单号为 key，保证同一订单的事件有序。
func (a *NotificationKafkaAdapter) SendStatusChanged(ctx context.Context, ev domain.StatusChangedEvent) error {
	eventBytes, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "failed to marshal status changed event")
	}
	return mq.ProduceMessage(ctx, a.statusWriter, []byte(ev.OrderID), eventBytes)
}

// SendNotification 发送一条面向用户的通知。
func (a *NotificationKafkaAdapter) SendNotification(ctx context.Context, ev domain.NotificationEvent) error {
	eventBytes, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "failed to marshal notification event")
	}
	return mq.ProduceMessage(ctx, a.notificationWriter, []byte(ev.OrderID), eventBytes)
}

// Close 关闭底层的 Kafka writer。
func (a *NotificationKafkaAdapter) Close() error {
	if err := a.statusWriter.Close(); err != nil {
		return err
	}
	return a.notificationWriter.Close()
}
