package server

import (
	"net/http"

	"sonata/logger"
	"sonata/model"
)

const (
	mostPlayedLimit     = 20
	recentlyPlayedLimit = 20
)

// MostPlayedHandler 播放次数排行
func (h *APIHandler) MostPlayedHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	tracks, err := h.trackRepo.MostPlayed(userID, mostPlayedLimit)
	if err != nil {
		logger.Error("查询播放排行失败", logger.Int64("userId", userID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to load stats")
		return
	}
	respondJSON(w, http.StatusOK, tracks)
}

// RecentlyPlayedHandler 最近播放
func (h *APIHandler) RecentlyPlayedHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	tracks, err := h.trackRepo.RecentlyPlayed(userID, recentlyPlayedLimit)
	if err != nil {
		logger.Error("查询最近播放失败", logger.Int64("userId", userID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to load stats")
		return
	}
	respondJSON(w, http.StatusOK, tracks)
}

// TrendsHandler 收听趋势：总量、均值、曲库完成度
func (h *APIHandler) TrendsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	totals, err := h.trackRepo.ListeningTotals(userID)
	if err != nil {
		logger.Error("查询收听趋势失败", logger.Int64("userId", userID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to load stats")
		return
	}
	respondJSON(w, http.StatusOK, model.BuildListeningTrends(*totals))
}
