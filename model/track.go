package model

import "time"

// Track represents an audio track in the music library.
// The audio bytes live in object storage; the row carries metadata plus the
// mutable play-statistics fields owned by the playback engine.
type Track struct {
	ID         string     `json:"id"`
	UserID     int64      `json:"userId"`
	Name       string     `json:"name"`
	ObjectKey  string     `json:"-"`        // Object storage key for the raw audio bytes
	MimeType   string     `json:"mimeType"` // e.g. audio/mpeg
	Size       int64      `json:"size"`
	Duration   float64    `json:"duration"` // Duration in seconds, probed at import
	IsFavorite bool       `json:"isFavorite"`
	PlayCount  int        `json:"playCount"`
	LastPlayed *time.Time `json:"lastPlayed,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// StreamURL is where the client fetches the audio bytes for deck loading.
func (t *Track) StreamURL() string {
	return "/api/tracks/" + t.ID + "/audio"
}
