// internal/zookeeper/lock.go
package zookeeper

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
)

const (
	lockRoot = "/pasjajan/watch_locks" // 轮询器抢占订单的锁根节点
)

// ErrLockHeld 表示锁已被其他实例持有。
var ErrLockHeld = errors.New("lock is held by another instance")

// DistributedLock 是基于临时顺序节点的分布式锁。
// 轮询器用它保证同一订单在多副本部署下只有一个实例在拉取。
type DistributedLock struct {
	conn     *Conn
	path     string // 锁路径，例如 /pasjajan/watch_locks/ORD123
	lockNode string // 成功获取锁后自己创建的节点路径
}

// NewDistributedLock 创建一个针对 resourceID 的锁实例，并确保父路径存在。
func NewDistributedLock(conn *Conn, resourceID string) (*DistributedLock, error) {
	for _, p := range parentPaths(lockRoot + "/" + resourceID) {
		exists, _, err := conn.Exists(p)
		if err != nil {
			return nil, fmt.Errorf("failed to check lock path %s: %w", p, err)
		}
		if exists {
			continue
		}
		if _, err := conn.Create(p, []byte(""), 0, zk.WorldACL(zk.PermAll)); err != nil && err != zk.ErrNodeExists {
			return nil, fmt.Errorf("failed to create lock path %s: %w", p, err)
		}
	}

	return &DistributedLock{
		conn: conn,
		path: lockRoot + "/" + resourceID,
	}, nil
}

// TryLock 非阻塞地尝试获取锁。
// 抢不到时清理自己的节点并返回 ErrLockHeld，调用方直接跳过该资源。
func (l *DistributedLock) TryLock() error {
	nodePath, err := l.conn.CreateProtectedEphemeralSequential(l.path+"/lock-", []byte(""), zk.WorldACL(zk.PermAll))
	if err != nil {
		return fmt.Errorf("failed to create sequential node: %w", err)
	}
	l.lockNode = nodePath

	children, _, err := l.conn.Children(l.path)
	if err != nil {
		_ = l.Unlock()
		return fmt.Errorf("failed to get children nodes: %w", err)
	}
	sort.Strings(children)

	myNodeName := strings.TrimPrefix(l.lockNode, l.path+"/")
	if len(children) > 0 && myNodeName == children[0] {
		return nil
	}
	_ = l.Unlock()
	return ErrLockHeld
}

// Lock 阻塞式获取锁：监听前一个节点，直到轮到自己或超时。
func (l *DistributedLock) Lock() error {
	nodePath, err := l.conn.CreateProtectedEphemeralSequential(l.path+"/lock-", []byte(""), zk.WorldACL(zk.PermAll))
	if err != nil {
		return fmt.Errorf("failed to create sequential node: %w", err)
	}
	l.lockNode = nodePath

	for {
		children, _, err := l.conn.Children(l.path)
		if err != nil {
			return fmt.Errorf("failed to get children nodes: %w", err)
		}
		sort.Strings(children)

		myNodeName := strings.TrimPrefix(l.lockNode, l.path+"/")
		if myNodeName == children[0] {
			return nil
		}

		// 不是最小节点，监听前一个节点
		prevNodeIndex := -1
		for i, child := range children {
			if child == myNodeName {
				prevNodeIndex = i - 1
				break
			}
		}
		if prevNodeIndex < 0 {
			return errors.New("cannot find previous node, something is wrong")
		}
		prevNodePath := l.path + "/" + children[prevNodeIndex]

		_, _, eventChan, err := l.conn.ExistsW(prevNodePath)
		if err != nil {
			// 前一个节点在检查时刚好被删除，重试循环
			if err == zk.ErrNoNode {
				continue
			}
			return fmt.Errorf("failed to watch previous node: %w", err)
		}

		select {
		case event := <-eventChan:
			if event.Type == zk.EventNodeDeleted {
				continue
			}
		case <-time.After(30 * time.Second): // 防止死等
			return errors.New("timeout waiting for lock")
		}
	}
}

// Unlock 释放锁。
func (l *DistributedLock) Unlock() error {
	if l.lockNode == "" {
		return errors.New("no lock to unlock")
	}
	err := l.conn.Delete(l.lockNode, -1)
	if err != nil && err != zk.ErrNoNode {
		return fmt.Errorf("failed to delete lock node: %w", err)
	}
	l.lockNode = ""
	return nil
}

// parentPaths 返回从根到目标的所有中间路径，按创建顺序排列。
func parentPaths(path string) []string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	paths := make([]string, 0, len(parts))
	cur := ""
	for _, p := range parts {
		cur = cur + "/" + p
		paths = append(paths, cur)
	}
	return paths
}
