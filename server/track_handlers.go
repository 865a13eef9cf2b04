package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"sonata/core/auth"
	"sonata/logger"
	"sonata/model"
	"sonata/storage"

	"github.com/gorilla/mux"
)

// maxUploadBytes 单次上传大小上限 (200MB)
const maxUploadBytes = 200 << 20

// UploadTrackHandler 导入音频：multipart 上传 → ffprobe 探测 →
// MinIO 存字节 → MySQL 存元数据
func (h *APIHandler) UploadTrackHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "Failed to parse multipart form")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Missing audio file field")
		return
	}
	defer file.Close()

	track, err := h.importer.ImportUpload(r.Context(), userID, header.Filename, file)
	if err != nil {
		logger.Error("曲目导入失败",
			logger.Int64("userId", userID),
			logger.String("filename", header.Filename),
			logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to import track")
		return
	}

	// 自定义名称覆盖文件名
	if name := strings.TrimSpace(r.FormValue("name")); name != "" {
		if err := h.trackRepo.UpdateTrackName(track.ID, name); err != nil {
			logger.Warn("上传改名失败", logger.String("trackId", track.ID), logger.ErrorField(err))
		} else {
			track.Name = name
		}
	}

	logger.Info("曲目导入完成",
		logger.Int64("userId", userID),
		logger.String("trackId", track.ID),
		logger.String("name", track.Name),
		logger.Float64("duration", track.Duration))

	respondJSON(w, http.StatusCreated, track)
}

// GetTracksHandler 曲库列表，支持 ?search= 与 ?favorites=true 过滤
func (h *APIHandler) GetTracksHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	tracks, err := h.trackRepo.GetAllTracksByUserID(userID)
	if err != nil {
		logger.Error("查询曲库失败", logger.Int64("userId", userID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to list tracks")
		return
	}

	search := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("search")))
	favoritesOnly := r.URL.Query().Get("favorites") == "true"

	filtered := make([]*model.Track, 0, len(tracks))
	for _, t := range tracks {
		if favoritesOnly && !t.IsFavorite {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(t.Name), search) {
			continue
		}
		filtered = append(filtered, t)
	}

	respondJSON(w, http.StatusOK, filtered)
}

// TrackAudioHandler 音频字节端点，卡座装载时从这里取流。
// <audio> 元素带不了 Authorization 头，鉴权走查询参数里的短时流令牌。
func (h *APIHandler) TrackAudioHandler(w http.ResponseWriter, r *http.Request) {
	trackID := mux.Vars(r)["id"]

	claims, err := auth.ParseStreamToken(r.URL.Query().Get("token"))
	if err != nil || claims.TrackID != trackID {
		respondError(w, http.StatusUnauthorized, "Invalid stream token")
		return
	}

	track, err := h.trackRepo.GetTrackByID(trackID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load track")
		return
	}
	if track == nil || track.UserID != claims.UserID {
		respondError(w, http.StatusNotFound, "Track not found")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	object, err := storage.OpenAudio(ctx, h.cfg.MinioBucket, track.ObjectKey)
	if err != nil {
		logger.Error("读取音频对象失败",
			logger.String("trackId", trackID),
			logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to open audio")
		return
	}
	defer object.Close()

	w.Header().Set("Content-Type", track.MimeType)
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	http.ServeContent(w, r, track.Name, track.UpdatedAt, object)
}

// RenameTrackHandler 曲目改名，同步进活动播放队列
func (h *APIHandler) RenameTrackHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	trackID := mux.Vars(r)["id"]

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		respondError(w, http.StatusBadRequest, "Name is required")
		return
	}

	track, err := h.ownedTrack(w, userID, trackID)
	if track == nil {
		return
	}

	if err = h.trackRepo.UpdateTrackName(trackID, req.Name); err != nil {
		logger.Error("曲目改名失败", logger.String("trackId", trackID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to rename track")
		return
	}

	track.Name = req.Name
	h.players.OnTrackUpdated(*track)
	respondJSON(w, http.StatusOK, track)
}

// FavoriteTrackHandler 收藏开关，联动收藏自动歌单与播放队列
func (h *APIHandler) FavoriteTrackHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	trackID := mux.Vars(r)["id"]

	var req struct {
		Favorite bool `json:"favorite"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	track, err := h.ownedTrack(w, userID, trackID)
	if track == nil {
		return
	}

	if err = h.trackRepo.SetFavorite(trackID, req.Favorite); err != nil {
		logger.Error("收藏开关失败", logger.String("trackId", trackID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to update favorite")
		return
	}

	// 维护收藏自动歌单
	favorites, err := h.playlistRepo.EnsureFavoritesPlaylist(r.Context(), userID)
	if err != nil {
		logger.Warn("收藏歌单维护失败", logger.Int64("userId", userID), logger.ErrorField(err))
	} else if req.Favorite {
		if err := h.playlistRepo.AddEntry(r.Context(), favorites.ID, trackID); err != nil {
			logger.Warn("加入收藏歌单失败", logger.String("trackId", trackID), logger.ErrorField(err))
		}
	} else {
		if err := h.playlistRepo.RemoveEntry(r.Context(), favorites.ID, trackID); err != nil {
			logger.Warn("移出收藏歌单失败", logger.String("trackId", trackID), logger.ErrorField(err))
		}
	}

	track.IsFavorite = req.Favorite
	h.players.OnTrackUpdated(*track)
	respondJSON(w, http.StatusOK, track)
}

// DeleteTrackHandler 删除曲目：对象、歌单条目、活动队列、数据行级联
func (h *APIHandler) DeleteTrackHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	trackID := mux.Vars(r)["id"]

	track, err := h.ownedTrack(w, userID, trackID)
	if track == nil {
		return
	}

	if err = h.trackRepo.DeleteTrack(trackID); err != nil {
		logger.Error("删除曲目失败", logger.String("trackId", trackID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to delete track")
		return
	}

	if err := h.playlistRepo.RemoveTrackEverywhere(r.Context(), trackID); err != nil {
		logger.Warn("歌单级联删除失败", logger.String("trackId", trackID), logger.ErrorField(err))
	}
	if err := storage.RemoveAudio(r.Context(), h.cfg.MinioBucket, track.ObjectKey); err != nil {
		logger.Warn("删除音频对象失败", logger.String("trackId", trackID), logger.ErrorField(err))
	}
	h.players.OnTrackDeleted(userID, trackID)

	logger.Info("曲目已删除",
		logger.Int64("userId", userID),
		logger.String("trackId", trackID),
		logger.String("name", track.Name))
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ownedTrack 取曲目并校验归属，失败时已写响应并返回 nil
func (h *APIHandler) ownedTrack(w http.ResponseWriter, userID int64, trackID string) (*model.Track, error) {
	track, err := h.trackRepo.GetTrackByID(trackID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load track")
		return nil, err
	}
	if track == nil || track.UserID != userID {
		respondError(w, http.StatusNotFound, "Track not found")
		return nil, nil
	}
	return track, nil
}
