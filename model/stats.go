package model

// ListeningTotals 曲库级收听聚合，由 SQL 一次算出
type ListeningTotals struct {
	TrackCount         int     `json:"trackCount"`
	PlayedTrackCount   int     `json:"playedTrackCount"`
	TotalPlays         int     `json:"totalPlays"`
	TotalListenSeconds float64 `json:"totalListenSeconds"`
}

// ListeningTrends 收听趋势报告
type ListeningTrends struct {
	Totals            ListeningTotals `json:"totals"`
	AveragePlays      float64         `json:"averagePlays"`      // 每首已播曲目的平均播放次数
	LibraryCompletion float64         `json:"libraryCompletion"` // 播过的曲目占比 [0,1]
}

// BuildListeningTrends 由聚合值推导趋势指标
func BuildListeningTrends(totals ListeningTotals) ListeningTrends {
	trends := ListeningTrends{Totals: totals}
	if totals.PlayedTrackCount > 0 {
		trends.AveragePlays = float64(totals.TotalPlays) / float64(totals.PlayedTrackCount)
	}
	if totals.TrackCount > 0 {
		trends.LibraryCompletion = float64(totals.PlayedTrackCount) / float64(totals.TrackCount)
	}
	return trends
}
