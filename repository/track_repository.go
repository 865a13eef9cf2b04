package repository

import (
	"database/sql"
	"fmt"
	"time"

	"sonata/db"
	"sonata/logger"
	"sonata/model"
)

// TrackRepository defines the interface for track data operations.
type TrackRepository interface {
	CreateTrack(track *model.Track) error
	GetTrackByID(id string) (*model.Track, error)
	GetTracksByIDs(ids []string) ([]*model.Track, error)
	GetAllTracksByUserID(userID int64) ([]*model.Track, error)
	UpdateTrackName(trackID string, name string) error
	SetFavorite(trackID string, favorite bool) error
	IncrementPlayCount(trackID string) error
	DeleteTrack(trackID string) error
	MostPlayed(userID int64, limit int) ([]*model.Track, error)
	RecentlyPlayed(userID int64, limit int) ([]*model.Track, error)
	ListeningTotals(userID int64) (*model.ListeningTotals, error)
}

// mysqlTrackRepository implements TrackRepository for MySQL.
type mysqlTrackRepository struct {
	DB *sql.DB
}

// NewMySQLTrackRepository creates a new instance of mysqlTrackRepository.
func NewMySQLTrackRepository() TrackRepository {
	return &mysqlTrackRepository{DB: db.DB}
}

const trackColumns = `id, user_id, name, object_key, mime_type, size, duration, is_favorite, play_count, last_played, created_at, updated_at`

func scanTrack(row interface{ Scan(dest ...interface{}) error }) (*model.Track, error) {
	track := &model.Track{}
	var lastPlayed sql.NullTime
	err := row.Scan(&track.ID, &track.UserID, &track.Name, &track.ObjectKey, &track.MimeType,
		&track.Size, &track.Duration, &track.IsFavorite, &track.PlayCount, &lastPlayed,
		&track.CreatedAt, &track.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastPlayed.Valid {
		track.LastPlayed = &lastPlayed.Time
	}
	return track, nil
}

// CreateTrack adds a new track to the database.
func (r *mysqlTrackRepository) CreateTrack(track *model.Track) error {
	query := `INSERT INTO tracks (id, user_id, name, object_key, mime_type, size, duration, is_favorite, play_count, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`
	stmt, err := r.DB.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for CreateTrack: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	track.CreatedAt = now
	track.UpdatedAt = now
	_, err = stmt.Exec(track.ID, track.UserID, track.Name, track.ObjectKey, track.MimeType,
		track.Size, track.Duration, track.IsFavorite, now, now)
	if err != nil {
		return fmt.Errorf("failed to execute CreateTrack: %w", err)
	}
	logger.Info("track created",
		logger.String("trackId", track.ID),
		logger.String("name", track.Name))
	return nil
}

// GetTrackByID retrieves a track by its ID.
func (r *mysqlTrackRepository) GetTrackByID(id string) (*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE id = ?`
	track, err := scanTrack(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Track not found
		}
		return nil, fmt.Errorf("failed to scan track by ID %s: %w", id, err)
	}
	return track, nil
}

// GetTracksByIDs retrieves tracks by ID, preserving the order of ids.
// Missing IDs are silently skipped (deleted tracks drop out of restored queues).
func (r *mysqlTrackRepository) GetTracksByIDs(ids []string) ([]*model.Track, error) {
	byID := make(map[string]*model.Track, len(ids))
	for _, id := range ids {
		track, err := r.GetTrackByID(id)
		if err != nil {
			return nil, err
		}
		if track != nil {
			byID[id] = track
		}
	}
	tracks := make([]*model.Track, 0, len(byID))
	for _, id := range ids {
		if track, ok := byID[id]; ok {
			tracks = append(tracks, track)
		}
	}
	return tracks, nil
}

// GetAllTracksByUserID retrieves all tracks owned by a user.
func (r *mysqlTrackRepository) GetAllTracksByUserID(userID int64) ([]*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE user_id = ? ORDER BY created_at DESC`
	return r.queryTracks(query, userID)
}

func (r *mysqlTrackRepository) queryTracks(query string, args ...interface{}) ([]*model.Track, error) {
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	tracks := make([]*model.Track, 0)
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track row: %w", err)
		}
		tracks = append(tracks, track)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tracks iteration: %w", err)
	}
	return tracks, nil
}

// UpdateTrackName renames a track.
func (r *mysqlTrackRepository) UpdateTrackName(trackID string, name string) error {
	query := `UPDATE tracks SET name = ?, updated_at = ? WHERE id = ?`
	_, err := r.DB.Exec(query, name, time.Now(), trackID)
	if err != nil {
		return fmt.Errorf("failed to execute UpdateTrackName for track %s: %w", trackID, err)
	}
	return nil
}

// SetFavorite toggles the favorite flag.
func (r *mysqlTrackRepository) SetFavorite(trackID string, favorite bool) error {
	query := `UPDATE tracks SET is_favorite = ?, updated_at = ? WHERE id = ?`
	_, err := r.DB.Exec(query, favorite, time.Now(), trackID)
	if err != nil {
		return fmt.Errorf("failed to execute SetFavorite for track %s: %w", trackID, err)
	}
	return nil
}

// IncrementPlayCount bumps the play counter and stamps last_played.
func (r *mysqlTrackRepository) IncrementPlayCount(trackID string) error {
	query := `UPDATE tracks SET play_count = play_count + 1, last_played = ?, updated_at = ? WHERE id = ?`
	now := time.Now()
	_, err := r.DB.Exec(query, now, now, trackID)
	if err != nil {
		return fmt.Errorf("failed to execute IncrementPlayCount for track %s: %w", trackID, err)
	}
	return nil
}

// DeleteTrack removes a track row.
func (r *mysqlTrackRepository) DeleteTrack(trackID string) error {
	_, err := r.DB.Exec(`DELETE FROM tracks WHERE id = ?`, trackID)
	if err != nil {
		return fmt.Errorf("failed to execute DeleteTrack for track %s: %w", trackID, err)
	}
	return nil
}

// MostPlayed returns the user's tracks ordered by play count.
func (r *mysqlTrackRepository) MostPlayed(userID int64, limit int) ([]*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks
	           WHERE user_id = ? AND play_count > 0
	           ORDER BY play_count DESC, last_played DESC LIMIT ?`
	return r.queryTracks(query, userID, limit)
}

// RecentlyPlayed returns the user's tracks ordered by last played time.
func (r *mysqlTrackRepository) RecentlyPlayed(userID int64, limit int) ([]*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks
	           WHERE user_id = ? AND last_played IS NOT NULL
	           ORDER BY last_played DESC LIMIT ?`
	return r.queryTracks(query, userID, limit)
}

// ListeningTotals aggregates library-wide listening statistics.
func (r *mysqlTrackRepository) ListeningTotals(userID int64) (*model.ListeningTotals, error) {
	query := `SELECT COUNT(*),
	                 COALESCE(SUM(play_count), 0),
	                 COALESCE(SUM(play_count * duration), 0),
	                 COALESCE(SUM(CASE WHEN play_count > 0 THEN 1 ELSE 0 END), 0)
	           FROM tracks WHERE user_id = ?`
	totals := &model.ListeningTotals{}
	err := r.DB.QueryRow(query, userID).Scan(&totals.TrackCount, &totals.TotalPlays,
		&totals.TotalListenSeconds, &totals.PlayedTrackCount)
	if err != nil {
		return nil, fmt.Errorf("failed to query listening totals for user %d: %w", userID, err)
	}
	return totals, nil
}
