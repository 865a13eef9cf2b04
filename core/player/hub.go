package player

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"sonata/logger"

	"github.com/gorilla/websocket"
)

// MessageType 播放器通道的消息类型
type MessageType string

const (
	// 服务端 → 客户端
	MsgTypeCommand MessageType = "command" // 卡座指令
	MsgTypeEvent   MessageType = "event"   // 播放器事件
	MsgTypePong    MessageType = "pong"    // 心跳响应

	// 客户端 → 服务端
	MsgTypePing      MessageType = "ping"       // 心跳
	MsgTypePosition  MessageType = "position"   // 卡座位置上报
	MsgTypeEnded     MessageType = "ended"      // 曲目自然结束
	MsgTypeLoadError MessageType = "load_error" // 曲目加载失败
)

// WSMessage 播放器 WebSocket 消息结构
type WSMessage struct {
	Type      MessageType  `json:"type"`
	Command   *DeckCommand `json:"command,omitempty"`
	Event     *PlayerEvent `json:"event,omitempty"`
	Deck      DeckID       `json:"deck,omitempty"`
	TrackID   string       `json:"trackId,omitempty"`
	Position  float64      `json:"position,omitempty"`
	Timestamp int64        `json:"timestamp"`
}

// Client 播放器通道的 WebSocket 客户端
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
	UserID int64
}

// Hub 播放器 WebSocket 管理中心。每个用户一条播放通道，
// 卡座指令与播放器事件都从这里下发。
type Hub struct {
	clients map[int64]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	done chan struct{}
}

// NewHub 创建播放器 Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[int64]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run 启动 Hub 主循环
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-h.done:
			h.cleanup()
			return
		}
	}
}

// Stop 停止 Hub
func (h *Hub) Stop() {
	close(h.done)
}

// registerClient 注册客户端，同一用户的旧连接被顶掉
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, exists := h.clients[client.UserID]; exists {
		close(old.Send)
	}
	h.clients[client.UserID] = client

	logger.Info("player client registered", logger.Int64("user", client.UserID))
}

// unregisterClient 注销客户端
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.clients[client.UserID]; ok && current == client {
		delete(h.clients, client.UserID)
		close(client.Send)
	}

	logger.Info("player client unregistered", logger.Int64("user", client.UserID))
}

// cleanup 清理所有连接
func (h *Hub) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		close(client.Send)
	}
	h.clients = make(map[int64]*Client)
}

// Register 注册客户端
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister 注销客户端
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// sendToUser 发送消息给指定用户，未连接或缓冲满时丢弃。
// 播放指令与事件都是最新态优先，离线客户端重连后靠快照补齐。
func (h *Hub) sendToUser(userID int64, msg *WSMessage) {
	msg.Timestamp = time.Now().UnixMilli()
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Error("failed to marshal player message", logger.ErrorField(err))
		return
	}

	// 发送必须留在读锁内：顶替旧连接时的 close(Send) 持写锁，
	// 锁外发送可能撞上已关闭的通道
	h.mu.RLock()
	defer h.mu.RUnlock()

	client := h.clients[userID]
	if client == nil {
		return
	}

	select {
	case client.Send <- data:
	default:
	}
}

// Publish 实现 Notifier：把播放器事件广播给用户
func (h *Hub) Publish(userID int64, event PlayerEvent) {
	e := event
	h.sendToUser(userID, &WSMessage{Type: MsgTypeEvent, Event: &e})
}

// SinkFor 返回某用户的卡座指令通道
func (h *Hub) SinkFor(userID int64) CommandSink {
	return &hubSink{hub: h, userID: userID}
}

// hubSink 绑定到单个用户的 CommandSink
type hubSink struct {
	hub    *Hub
	userID int64
}

func (s *hubSink) Send(cmd DeckCommand) {
	c := cmd
	s.hub.sendToUser(s.userID, &WSMessage{Type: MsgTypeCommand, Command: &c})
}

// ========== Client 方法 ==========

// ReadPump 读取消息循环，上报消息交给 handler
func (c *Client) ReadPump(ctx context.Context, handler func(ctx context.Context, client *Client, msg *WSMessage)) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(4096) // 4KB
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, message, err := c.Conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logger.Warn("websocket read error",
						logger.ErrorField(err),
						logger.Int64("user", c.UserID))
				}
				return
			}

			var msg WSMessage
			if err := json.Unmarshal(message, &msg); err != nil {
				logger.Warn("invalid player message format",
					logger.ErrorField(err),
					logger.Int64("user", c.UserID))
				continue
			}

			if msg.Type == MsgTypePing {
				pong := &WSMessage{Type: MsgTypePong, Timestamp: time.Now().UnixMilli()}
				if data, err := json.Marshal(pong); err == nil {
					select {
					case c.Send <- data:
					default:
					}
				}
				continue
			}

			handler(ctx, c, &msg)
		}
	}
}

// WritePump 写入消息循环
func (c *Client) WritePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// 合并发送队列中的消息
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
