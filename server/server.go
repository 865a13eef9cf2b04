package server

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sonata/cache"
	"sonata/config"
	"sonata/core/audio"
	"sonata/core/auth"
	"sonata/core/library"
	"sonata/core/player"
	"sonata/db"
	"sonata/logger"
	"sonata/model"
	"sonata/repository"
	"sonata/storage"

	"github.com/gorilla/mux"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})

	// 设置服务器超时
	server := &http.Server{
		Addr:         cfg.ServerAddr,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 初始化 MinIO 客户端
	if err := storage.InitMinio(cfg); err != nil {
		logger.Fatal("MinIO初始化失败", logger.ErrorField(err))
	}

	// Connect to the database
	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("数据库连接失败", logger.ErrorField(err))
	}
	defer db.DB.Close()

	// Initialize database schema
	if err := db.InitDB(); err != nil {
		logger.Fatal("数据库初始化失败", logger.ErrorField(err))
	}

	// 播放列表走 GORM
	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("GORM连接失败", logger.ErrorField(err))
	}
	defer db.CloseGormDB()
	if err := db.MigrateGormModels(); err != nil {
		logger.Fatal("GORM迁移失败", logger.ErrorField(err))
	}

	// Connect to Redis
	if err := db.ConnectRedis(cfg); err != nil {
		logger.Fatal("Redis连接失败", logger.ErrorField(err))
	}
	defer db.CloseRedis()
	logger.Info("Redis连接成功")

	trackRepo := repository.NewMySQLTrackRepository()
	userRepo := repository.NewMySQLUserRepository(db.DB)
	playlistRepo := repository.NewGormPlaylistRepository(db.GormDB)
	playerCache := cache.NewPlayerCache(db.RedisClient)

	// WebSocket 中心：既是事件广播器也是卡座指令通道
	hub := player.NewHub()
	go hub.Run()

	sessionCfg := player.SessionConfig{
		CrossfadeWindow:     cfg.CrossfadeWindowSeconds,
		PlayCountThreshold:  cfg.PlayCountThresholdSecs,
		PreviousRestart:     cfg.PreviousRestartSeconds,
		TickInterval:        time.Duration(cfg.DeckTickIntervalMillis) * time.Millisecond,
		AutoSkipOnLoadError: cfg.AutoSkipOnLoadError,
	}
	// 卡座装载地址挂短时流令牌，音频端点据此鉴权
	streamURL := func(userID int64, track model.Track) string {
		token, err := auth.GenerateStreamToken(userID, track.ID)
		if err != nil {
			logger.Error("签发流令牌失败", logger.String("trackId", track.ID), logger.ErrorField(err))
			return track.StreamURL()
		}
		return track.StreamURL() + "?token=" + url.QueryEscape(token)
	}
	players := player.NewManager(sessionCfg, trackRepo, playlistRepo, playerCache, hub, hub.SinkFor, streamURL)

	prober := audio.NewProber(cfg.FFmpegPath)
	importer := library.NewImporter(cfg, prober, trackRepo)

	// 初始化处理器
	apiHandler := NewAPIHandler(trackRepo, userRepo, playlistRepo, players, hub, importer, playerCache, cfg)

	// 监听本地音乐目录，自动导入新文件
	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	if cfg.MusicWatchDir != "" {
		watcher := library.NewWatcher(cfg.MusicWatchDir, cfg.MusicWatchUserID, importer)
		go func() {
			if err := watcher.Run(watchCtx); err != nil {
				logger.Error("音乐目录监听退出", logger.ErrorField(err))
			}
		}()
	}

	// 使用 gorilla/mux 创建路由器
	router := mux.NewRouter()

	// 添加 CORS 中间件
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")
			w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")
			w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// 用户认证相关的API端点
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)

	// 曲库相关的API端点
	router.HandleFunc("/api/tracks", apiHandler.AuthMiddleware(apiHandler.GetTracksHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks/upload", apiHandler.AuthMiddleware(apiHandler.UploadTrackHandler)).Methods(http.MethodPost)
	// <audio> 元素无法携带 Authorization 头，音频流在处理器里校验查询参数流令牌
	router.HandleFunc("/api/tracks/{id}/audio", apiHandler.TrackAudioHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks/{id}", apiHandler.AuthMiddleware(apiHandler.RenameTrackHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/tracks/{id}", apiHandler.AuthMiddleware(apiHandler.DeleteTrackHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/tracks/{id}/favorite", apiHandler.AuthMiddleware(apiHandler.FavoriteTrackHandler)).Methods(http.MethodPut)

	// 播放列表相关的API端点
	router.HandleFunc("/api/playlists", apiHandler.AuthMiddleware(apiHandler.GetPlaylistsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/playlists", apiHandler.AuthMiddleware(apiHandler.CreatePlaylistHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/playlists/{id}", apiHandler.AuthMiddleware(apiHandler.GetPlaylistHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/playlists/{id}", apiHandler.AuthMiddleware(apiHandler.UpdatePlaylistHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/playlists/{id}", apiHandler.AuthMiddleware(apiHandler.DeletePlaylistHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/playlists/{id}/tracks", apiHandler.AuthMiddleware(apiHandler.AddPlaylistTrackHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/playlists/{id}/tracks/{track_id}", apiHandler.AuthMiddleware(apiHandler.RemovePlaylistTrackHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/playlists/{id}/play", apiHandler.AuthMiddleware(apiHandler.PlayPlaylistHandler)).Methods(http.MethodPost)

	// 播放引擎相关的API端点
	router.HandleFunc("/api/player/state", apiHandler.AuthMiddleware(apiHandler.PlayerStateHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/player/play-all", apiHandler.AuthMiddleware(apiHandler.PlayAllHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/queue", apiHandler.AuthMiddleware(apiHandler.QueueAppendHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/play-at", apiHandler.AuthMiddleware(apiHandler.PlayAtHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/toggle", apiHandler.AuthMiddleware(apiHandler.ToggleHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/next", apiHandler.AuthMiddleware(apiHandler.NextHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/previous", apiHandler.AuthMiddleware(apiHandler.PreviousHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/seek", apiHandler.AuthMiddleware(apiHandler.SeekHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/shuffle", apiHandler.AuthMiddleware(apiHandler.ShuffleHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/flow-state", apiHandler.AuthMiddleware(apiHandler.FlowStateHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/enhancer", apiHandler.AuthMiddleware(apiHandler.EnhancerHandler)).Methods(http.MethodPost)

	// 收听统计相关的API端点
	router.HandleFunc("/api/stats/most-played", apiHandler.AuthMiddleware(apiHandler.MostPlayedHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/stats/recently-played", apiHandler.AuthMiddleware(apiHandler.RecentlyPlayedHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/stats/trends", apiHandler.AuthMiddleware(apiHandler.TrendsHandler)).Methods(http.MethodGet)

	// WebSocket 端点（token 走查询参数）
	router.HandleFunc("/ws/player", apiHandler.PlayerWSHandler).Methods(http.MethodGet)

	server.Handler = router

	// 创建一个通道来接收操作系统信号
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// 在goroutine中启动服务器
	go func() {
		logger.Info("服务器启动", logger.String("addr", cfg.ServerAddr))

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("服务器启动失败", logger.ErrorField(err))
		}
	}()

	// 等待中断信号
	<-stop
	logger.Info("正在关闭服务器...")
	stopWatch()

	// 创建一个5秒超时的上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 优雅关闭服务器
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("服务器强制关闭", logger.ErrorField(err))
	}

	// 保存各会话的播放队列后再退出
	players.CloseAll(ctx)
	hub.Stop()

	logger.Info("服务器已停止")
}
