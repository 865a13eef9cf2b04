package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"sonata/cache"
	"sonata/config"
	"sonata/core/library"
	"sonata/core/player"
	"sonata/repository"
)

// APIHandler 处理所有API请求
type APIHandler struct {
	trackRepo    repository.TrackRepository
	userRepo     repository.UserRepository
	playlistRepo repository.PlaylistRepository
	players      *player.Manager
	hub          *player.Hub
	importer     *library.Importer
	playerCache  *cache.PlayerCache
	cfg          *config.Config
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(
	trackRepo repository.TrackRepository,
	userRepo repository.UserRepository,
	playlistRepo repository.PlaylistRepository,
	players *player.Manager,
	hub *player.Hub,
	importer *library.Importer,
	playerCache *cache.PlayerCache,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		trackRepo:    trackRepo,
		userRepo:     userRepo,
		playlistRepo: playlistRepo,
		players:      players,
		hub:          hub,
		importer:     importer,
		playerCache:  playerCache,
		cfg:          cfg,
	}
}

// respondJSON 输出 JSON 响应
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// respondError 输出统一的错误响应
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// contextWithTimeout 后台任务的标准超时上下文
func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}
