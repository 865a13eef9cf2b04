package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"sonata/logger"
	"sonata/model"

	"github.com/gorilla/mux"
)

// playlistRequest 歌单创建 / 更新请求体
type playlistRequest struct {
	Name      string `json:"name"`
	Genre     string `json:"genre"`
	Mood      string `json:"mood"`
	TimeOfDay string `json:"timeOfDay"`
}

// CreatePlaylistHandler 创建歌单
func (h *APIHandler) CreatePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req playlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		respondError(w, http.StatusBadRequest, "Playlist name is required")
		return
	}

	playlist := &model.Playlist{
		UserID:    userID,
		Name:      strings.TrimSpace(req.Name),
		Genre:     strings.ToLower(strings.TrimSpace(req.Genre)),
		Mood:      strings.TrimSpace(req.Mood),
		TimeOfDay: strings.TrimSpace(req.TimeOfDay),
	}
	if err := h.playlistRepo.Create(r.Context(), playlist); err != nil {
		logger.Error("创建歌单失败", logger.Int64("userId", userID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to create playlist")
		return
	}

	logger.Info("歌单创建成功",
		logger.Int64("userId", userID),
		logger.Int64("playlistId", playlist.ID),
		logger.String("name", playlist.Name))
	respondJSON(w, http.StatusCreated, playlist)
}

// GetPlaylistsHandler 用户歌单列表
func (h *APIHandler) GetPlaylistsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	playlists, err := h.playlistRepo.GetAllByUserID(r.Context(), userID)
	if err != nil {
		logger.Error("查询歌单失败", logger.Int64("userId", userID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to list playlists")
		return
	}
	respondJSON(w, http.StatusOK, playlists)
}

// GetPlaylistHandler 单个歌单详情（含条目）
func (h *APIHandler) GetPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	playlist := h.ownedPlaylist(w, r, userID)
	if playlist == nil {
		return
	}
	respondJSON(w, http.StatusOK, playlist)
}

// UpdatePlaylistHandler 更新歌单属性
func (h *APIHandler) UpdatePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	playlist := h.ownedPlaylist(w, r, userID)
	if playlist == nil {
		return
	}

	var req playlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Name) != "" {
		playlist.Name = strings.TrimSpace(req.Name)
	}
	playlist.Genre = strings.ToLower(strings.TrimSpace(req.Genre))
	playlist.Mood = strings.TrimSpace(req.Mood)
	playlist.TimeOfDay = strings.TrimSpace(req.TimeOfDay)

	if err := h.playlistRepo.Update(r.Context(), playlist); err != nil {
		logger.Error("更新歌单失败", logger.Int64("playlistId", playlist.ID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to update playlist")
		return
	}
	respondJSON(w, http.StatusOK, playlist)
}

// DeletePlaylistHandler 删除歌单
func (h *APIHandler) DeletePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	playlist := h.ownedPlaylist(w, r, userID)
	if playlist == nil {
		return
	}

	if err := h.playlistRepo.Delete(r.Context(), playlist.ID); err != nil {
		logger.Error("删除歌单失败", logger.Int64("playlistId", playlist.ID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to delete playlist")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// AddPlaylistTrackHandler 追加曲目到歌单
func (h *APIHandler) AddPlaylistTrackHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	playlist := h.ownedPlaylist(w, r, userID)
	if playlist == nil {
		return
	}

	var req struct {
		TrackID string `json:"trackId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TrackID == "" {
		respondError(w, http.StatusBadRequest, "trackId is required")
		return
	}

	track, _ := h.ownedTrack(w, userID, req.TrackID)
	if track == nil {
		return
	}

	if err := h.playlistRepo.AddEntry(r.Context(), playlist.ID, req.TrackID); err != nil {
		logger.Error("加入歌单失败",
			logger.Int64("playlistId", playlist.ID),
			logger.String("trackId", req.TrackID),
			logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to add track to playlist")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "added"})
}

// RemovePlaylistTrackHandler 从歌单移除曲目
func (h *APIHandler) RemovePlaylistTrackHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	playlist := h.ownedPlaylist(w, r, userID)
	if playlist == nil {
		return
	}
	trackID := mux.Vars(r)["track_id"]

	if err := h.playlistRepo.RemoveEntry(r.Context(), playlist.ID, trackID); err != nil {
		logger.Error("移出歌单失败",
			logger.Int64("playlistId", playlist.ID),
			logger.String("trackId", trackID),
			logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to remove track from playlist")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// ownedPlaylist 取歌单并校验归属，失败时已写响应并返回 nil
func (h *APIHandler) ownedPlaylist(w http.ResponseWriter, r *http.Request, userID int64) *model.Playlist {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid playlist id")
		return nil
	}

	playlist, err := h.playlistRepo.GetByID(r.Context(), id)
	if err != nil {
		logger.Error("查询歌单失败", logger.Int64("playlistId", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to load playlist")
		return nil
	}
	if playlist == nil || playlist.UserID != userID {
		respondError(w, http.StatusNotFound, "Playlist not found")
		return nil
	}
	return playlist
}

// playlistTracks 按歌单顺序取出曲目值
func (h *APIHandler) playlistTracks(r *http.Request, playlist *model.Playlist) ([]model.Track, error) {
	entries, err := h.playlistRepo.GetEntries(r.Context(), playlist.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.TrackID)
	}
	tracks, err := h.trackRepo.GetTracksByIDs(ids)
	if err != nil {
		return nil, err
	}
	out := make([]model.Track, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, *t)
	}
	return out, nil
}
