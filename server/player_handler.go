package server

import (
	"encoding/json"
	"net/http"

	"sonata/logger"
	"sonata/model"
)

// PlayerStateHandler 播放器状态快照
func (h *APIHandler) PlayerStateHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	respondJSON(w, http.StatusOK, h.players.Session(userID).Snapshot())
}

// PlayAllHandler 整个曲库建队播放
func (h *APIHandler) PlayAllHandler(w http.ResponseWriter, r *http.Request) {
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
	queue := make([]model.Track, 0, len(tracks))
	for _, t := range tracks {
		queue = append(queue, *t)
	}

	session := h.players.Session(userID)
	session.PlayTracks(queue, 0)
	h.saveQueueAsync(userID)
	respondJSON(w, http.StatusOK, session.Snapshot())
}

// PlayPlaylistHandler 歌单建队播放，?start= 指定起始下标
func (h *APIHandler) PlayPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	playlist := h.ownedPlaylist(w, r, userID)
	if playlist == nil {
		return
	}

	tracks, err := h.playlistTracks(r, playlist)
	if err != nil {
		logger.Error("读取歌单曲目失败", logger.Int64("playlistId", playlist.ID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to load playlist tracks")
		return
	}

	var req struct {
		Start int `json:"start"`
	}
	// 请求体可选，默认从头播
	_ = json.NewDecoder(r.Body).Decode(&req)

	session := h.players.Session(userID)
	session.PlayTracks(tracks, req.Start)
	h.saveQueueAsync(userID)
	respondJSON(w, http.StatusOK, session.Snapshot())
}

// QueueAppendHandler 快速排队：单曲追加到队列尾部
func (h *APIHandler) QueueAppendHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
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

	session := h.players.Session(userID)
	session.Append(*track)
	h.saveQueueAsync(userID)
	respondJSON(w, http.StatusOK, session.Snapshot())
}

// PlayAtHandler 跳到队列指定下标播放
func (h *APIHandler) PlayAtHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session := h.players.Session(userID)
	session.PlayAt(req.Index)
	respondJSON(w, http.StatusOK, session.Snapshot())
}

// ToggleHandler 播放/暂停
func (h *APIHandler) ToggleHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	session := h.players.Session(userID)
	session.Toggle()
	respondJSON(w, http.StatusOK, session.Snapshot())
}

// NextHandler 手动下一曲
func (h *APIHandler) NextHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	session := h.players.Session(userID)
	session.Next()
	respondJSON(w, http.StatusOK, session.Snapshot())
}

// PreviousHandler 上一曲 / 重播当前曲
func (h *APIHandler) PreviousHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	session := h.players.Session(userID)
	session.Previous()
	respondJSON(w, http.StatusOK, session.Snapshot())
}

// SeekHandler 按比例跳转
func (h *APIHandler) SeekHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Fraction float64 `json:"fraction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session := h.players.Session(userID)
	session.SeekFraction(req.Fraction)
	respondJSON(w, http.StatusOK, session.Snapshot())
}

// toggleRequest 布尔开关请求体
type toggleRequest struct {
	Enabled bool `json:"enabled"`
}

// ShuffleHandler 随机播放开关
func (h *APIHandler) ShuffleHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session := h.players.Session(userID)
	session.SetShuffle(req.Enabled)
	h.saveQueueAsync(userID)
	respondJSON(w, http.StatusOK, session.Snapshot())
}

// FlowStateHandler 心流模式开关
func (h *APIHandler) FlowStateHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session := h.players.Session(userID)
	session.SetFlowState(req.Enabled)
	respondJSON(w, http.StatusOK, session.Snapshot())
}

// EnhancerHandler 音效增强开关
func (h *APIHandler) EnhancerHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session := h.players.Session(userID)
	session.SetEnhancer(req.Enabled)
	respondJSON(w, http.StatusOK, session.Snapshot())
}

// saveQueueAsync 队列变更后异步保存快照
func (h *APIHandler) saveQueueAsync(userID int64) {
	go func() {
		ctx, cancel := contextWithTimeout()
		defer cancel()
		if err := h.players.SaveQueue(ctx, userID); err != nil {
			logger.Warn("保存队列快照失败", logger.Int64("userId", userID), logger.ErrorField(err))
		}
	}()
}
