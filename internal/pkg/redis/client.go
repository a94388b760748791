// internal/pkg/redis/client.go
package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Client 是 go-redis 的薄封装，只暴露本项目用到的操作。
type Client struct {
	rdb *goredis.Client
}

// NewClient 创建 Redis 客户端并做一次连通性探测。
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Client{rdb: rdb}, nil
}

// SetNX 占位写入，已存在时返回 false。幂等保护的基础原语。
func (c *Client) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, key, value, ttl).Result()
}

// Del 删除若干 key。
func (c *Client) Del(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}

// Raw 暴露底层客户端，供 session 等需要更多命令的包使用。
func (c *Client) Raw() *goredis.Client {
	return c.rdb
}

// Close 关闭连接。
func (c *Client) Close() error {
	return c.rdb.Close()
}
