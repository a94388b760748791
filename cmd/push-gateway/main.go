// cmd/push-gateway/main.go
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/project-hexa/pasjajan-sub001/internal/pkg/bootstrap"
	"github.com/project-hexa/pasjajan-sub001/internal/pkg/logger"
	"github.com/project-hexa/pasjajan-sub001/internal/pkg/mq"
	"github.com/project-hexa/pasjajan-sub001/internal/pkg/session"
	"github.com/project-hexa/pasjajan-sub001/internal/service/order/domain"
)

const (
	serviceName = "push-gateway"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10 // 必须小于 pongWait
)

var (
	nodeID   = "push-gateway-" + uuid.New().String()[:8]
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool { // 简化处理，允许所有跨域
			return true
		},
	}
)

// Hub 维护所有活跃的连接，并负责消息分发
type Hub struct {
	clients    map[string]*Client // 使用UserID作为Key
	register   chan *Client
	unregister chan *Client
	lock       sync.RWMutex
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.lock.Lock()
			h.clients[client.userID] = client
			h.lock.Unlock()
			log.Printf("Client %s registered on node %s", client.userID, nodeID)
		case client := <-h.unregister:
			h.lock.Lock()
			if current, ok := h.clients[client.userID]; ok && current == client {
				delete(h.clients, client.userID)
				close(client.send)
			}
			h.lock.Unlock()
			log.Printf("Client %s unregistered.", client.userID)
		}
	}
}

// deliver 把一条消息投递给目标用户。UserID 为空时广播给本节点所有连接。
func (h *Hub) deliver(userID string, payload []byte) {
	h.lock.RLock()
	defer h.lock.RUnlock()

	if userID == "" {
		for _, client := range h.clients {
			select {
			case client.send <- payload:
			default: // 发送缓冲已满，丢弃而不是阻塞分发循环
			}
		}
		return
	}
	if client, ok := h.clients[userID]; ok {
		select {
		case client.send <- payload:
		default:
		}
	}
}

// Client 是一个WebSocket连接的代表
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	userID     string
	sessionMgr *session.Manager
}

// writePump 把 send channel 中的消息写入连接，并定期发 ping 保活。
// 每个连接只允许一个写 goroutine。
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 关闭了 channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 读取客户端心跳，pong 时顺带给 Redis 会话续期。
// 连接断开后负责注销和清理会话。
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
		if err := c.sessionMgr.RemoveUserGateway(context.Background(), c.userID); err != nil {
			log.Printf("Failed to remove session for user %s: %v", c.userID, err)
		}
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return c.sessionMgr.Refresh(context.Background(), c.userID)
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Unexpected close for user %s: %v", c.userID, err)
			}
			return
		}
	}
}

func serveWs(hub *Hub, sessionMgr *session.Manager, w http.ResponseWriter, r *http.Request) {
	// 1. 从URL参数获取UserID
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userID is required", http.StatusBadRequest)
		return
	}

	// 2. HTTP升级为WebSocket
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	// 3. 创建客户端实例并注册到Hub
	client := &Client{hub: hub, conn: conn, send: make(chan []byte, 256), userID: userID, sessionMgr: sessionMgr}
	client.hub.register <- client

	// 4. 在Redis中设置会话信息
	if err := sessionMgr.SetUserGateway(context.Background(), userID, nodeID); err != nil {
		log.Printf("Failed to set session for user %s: %v", userID, err)
		conn.Close()
		return
	}

	// 5. 启动读写goroutine
	go client.writePump()
	go client.readPump()
}

// consumeNotifications 消费通知主题，把消息投递给连接在本节点的用户。
// 每个网关节点用自己的消费组，等于广播：用户连在哪个节点无关紧要。
func consumeNotifications(hub *Hub, cfg *bootstrap.Config) {
	reader := mq.NewKafkaReader(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.NotificationTopic, nodeID)
	defer reader.Close()

	log.Printf("✅ Consuming topic '%s' as group '%s'", cfg.Infra.Kafka.NotificationTopic, nodeID)
	for {
		msg, err := reader.ReadMessage(context.Background())
		if err != nil {
			log.Printf("ERROR: could not read notification message: %v. Retrying...", err)
			time.Sleep(5 * time.Second)
			continue
		}

		var ev domain.NotificationEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			log.Printf("ERROR: failed to unmarshal notification event: %v", err)
			continue
		}
		hub.deliver(ev.UserID, msg.Value)
	}
}

func main() {
	bootstrap.Init()
	logger.Init(serviceName)
	cfg := bootstrap.GetCurrentConfig()

	sessionMgr := session.NewManager(cfg.Infra.Redis.Addr)
	hub := newHub()
	go hub.run()
	go consumeNotifications(hub, cfg)

	http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(hub, sessionMgr, w, r)
	})

	log.Printf("Push Gateway (%s) started on :8088", nodeID)
	if err := http.ListenAndServe(":8088", nil); err != nil {
		log.Fatal("ListenAndServe: ", err)
	}
}
