package server

import (
	"context"
	"net/http"

	"sonata/core/auth"
	"sonata/core/player"
	"sonata/logger"

	"github.com/gorilla/websocket"
)

var playerUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS 交给统一中间件
	},
}

// PlayerWSHandler 播放器通道：卡座指令与事件下行，
// 位置 / 结束 / 加载失败上报上行。token 放在查询串里，
// 浏览器 WebSocket 不支持自定义头。
func (h *APIHandler) PlayerWSHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, http.StatusUnauthorized, "token is required")
		return
	}
	claims, err := auth.ParseToken(token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	conn, err := playerUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}

	client := &player.Client{
		Hub:    h.hub,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		UserID: claims.UserID,
	}
	h.hub.Register(client)

	// 连接即发完整快照，客户端据此重建双音频元素状态
	session := h.players.Session(claims.UserID)
	h.hub.Publish(claims.UserID, player.PlayerEvent{
		Kind:     player.EventState,
		Snapshot: session.Snapshot(),
	})

	go client.WritePump()
	go client.ReadPump(context.Background(), h.handlePlayerMessage)
}

// handlePlayerMessage 客户端上报分发
func (h *APIHandler) handlePlayerMessage(ctx context.Context, client *player.Client, msg *player.WSMessage) {
	session := h.players.Session(client.UserID)

	switch msg.Type {
	case player.MsgTypePosition:
		session.ReportPosition(msg.Deck, msg.Position)

	case player.MsgTypeEnded:
		session.HandleEnded(msg.Deck)

	case player.MsgTypeLoadError:
		session.HandleLoadError(msg.Deck, msg.TrackID)

	default:
		logger.Debug("unknown player message type",
			logger.String("type", string(msg.Type)),
			logger.Int64("user", client.UserID))
	}
}
