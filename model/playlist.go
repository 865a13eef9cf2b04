package model

import "time"

// 歌单可选的曲风，决定音效增强器使用的均衡档位
const (
	GenreRock       = "rock"
	GenrePop        = "pop"
	GenreElectronic = "electronic"
	GenreHipHop     = "hiphop"
	GenreClassical  = "classical"
	GenreJazz       = "jazz"
	GenreMetal      = "metal"
)

// Playlist 歌单
type Playlist struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID    int64     `json:"userId" gorm:"index"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	Genre     string    `json:"genre" gorm:"size:32"`
	Mood      string    `json:"mood" gorm:"size:32"`
	TimeOfDay string    `json:"timeOfDay" gorm:"size:32"`
	AutoKind  string    `json:"autoKind,omitempty" gorm:"size:32"` // favorites 自动歌单标记
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Entries []PlaylistEntry `json:"entries,omitempty" gorm:"foreignKey:PlaylistID"`
}

// TableName 指定表名
func (Playlist) TableName() string {
	return "playlists"
}

// PlaylistEntry 歌单与曲目的关联记录，Position 决定歌单内顺序
type PlaylistEntry struct {
	ID         int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	PlaylistID int64     `json:"playlistId" gorm:"index:idx_playlist_track,priority:1"`
	TrackID    string    `json:"trackId" gorm:"size:64;index:idx_playlist_track,priority:2"`
	Position   int       `json:"position"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TableName 指定表名
func (PlaylistEntry) TableName() string {
	return "playlist_entries"
}

// AutoKindFavorites 收藏自动歌单的标记值
const AutoKindFavorites = "favorites"
