// internal/service/order/infrastructure/adapter/idempotency_redis_adapter.go
package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/project-hexa/pasjajan-sub001/internal/pkg/redis"
	"github.com/project-hexa/pasjajan-sub001/internal/service/order/domain"
)

// 占位 24 小时后过期：超过这个窗口的同组合重试当成新操作。
const idempotencyTTL = 24 * time.Hour

// IdempotencyRedisAdapter 实现了 port.IdempotencyGuard 接口。
// 用 SETNX 占位保证同一 (orderID, status) 的变更命令只发出一次。
type IdempotencyRedisAdapter struct {
	redisClient *redis.Client
}

// NewIdempotencyRedisAdapter 创建一个幂等保护适配器。
func NewIdempotencyRedisAdapter(redisClient *redis.Client) *IdempotencyRedisAdapter {
	return &IdempotencyRedisAdapter{redisClient: redisClient}
}

func idempotencyKey(orderID string, status domain.DeliveryStatus) string {
	return fmt.Sprintf("pasjajan:delivery:update:%s:%s", orderID, status)
}

// Acquire 尝试占位。返回 false 表示该组合已提交过。
func (a *IdempotencyRedisAdapter) Acquire(ctx context.Context, orderID string, status domain.DeliveryStatus) (bool, error) {
	return a.redisClient.SetNX(ctx, idempotencyKey(orderID, status), "1", idempotencyTTL)
}

// Release 撤销占位，变更被外部系统拒绝后调用，允许重新提交。
func (a *IdempotencyRedisAdapter) Release(ctx context.Context, orderID string, status domain.DeliveryStatus) error {
	return a.redisClient.Del(ctx, idempotencyKey(orderID, status))
}
