// internal/pkg/session/manager.go
package session

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const sessionTTL = 5 * time.Minute

// Manager 维护"用户 -> 推送网关节点"的会话映射。
// 网关节点注册连接时写入，消息路由时读取。TTL 依赖网关的心跳续期。
type Manager struct {
	rdb *goredis.Client
}

// NewManager 创建一个会话管理器。
func NewManager(redisAddr string) *Manager {
	return &Manager{
		rdb: goredis.NewClient(&goredis.Options{Addr: redisAddr}),
	}
}

func sessionKey(userID string) string {
	return fmt.Sprintf("pasjajan:push:session:%s", userID)
}

// SetUserGateway 记录用户当前连接的网关节点。
func (m *Manager) SetUserGateway(ctx context.Context, userID, nodeID string) error {
	return m.rdb.Set(ctx, sessionKey(userID), nodeID, sessionTTL).Err()
}

// GetUserGateway 查询用户所在的网关节点，未在线时返回空串。
func (m *Manager) GetUserGateway(ctx context.Context, userID string) (string, error) {
	nodeID, err := m.rdb.Get(ctx, sessionKey(userID)).Result()
	if err == goredis.Nil {
		return "", nil
	}
	return nodeID, err
}

// Refresh 心跳续期。
func (m *Manager) Refresh(ctx context.Context, userID string) error {
	return m.rdb.Expire(ctx, sessionKey(userID), sessionTTL).Err()
}

// RemoveUserGateway 连接断开时清理会话。
func (m *Manager) RemoveUserGateway(ctx context.Context, userID string) error {
	return m.rdb.Del(ctx, sessionKey(userID)).Err()
}
