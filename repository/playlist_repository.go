package repository

import (
	"context"
	"fmt"
	"time"

	"sonata/model"

	"gorm.io/gorm"
)

// PlaylistRepository 歌单数据访问接口
type PlaylistRepository interface {
	// 歌单 CRUD
	Create(ctx context.Context, playlist *model.Playlist) error
	GetByID(ctx context.Context, id int64) (*model.Playlist, error)
	GetAllByUserID(ctx context.Context, userID int64) ([]*model.Playlist, error)
	Update(ctx context.Context, playlist *model.Playlist) error
	Delete(ctx context.Context, id int64) error

	// 歌单成员
	AddEntry(ctx context.Context, playlistID int64, trackID string) error
	RemoveEntry(ctx context.Context, playlistID int64, trackID string) error
	GetEntries(ctx context.Context, playlistID int64) ([]*model.PlaylistEntry, error)
	RemoveTrackEverywhere(ctx context.Context, trackID string) error

	// 音效档案解析：第一个包含该曲目的歌单
	FindPlaylistContaining(userID int64, trackID string) (*model.Playlist, error)

	// 收藏自动歌单
	EnsureFavoritesPlaylist(ctx context.Context, userID int64) (*model.Playlist, error)
}

// gormPlaylistRepository GORM 实现
type gormPlaylistRepository struct {
	db *gorm.DB
}

// NewGormPlaylistRepository 创建 GORM 歌单仓库
func NewGormPlaylistRepository(db *gorm.DB) PlaylistRepository {
	return &gormPlaylistRepository{db: db}
}

// ========== 歌单 CRUD ==========

// Create 创建歌单
func (r *gormPlaylistRepository) Create(ctx context.Context, playlist *model.Playlist) error {
	return r.db.WithContext(ctx).Create(playlist).Error
}

// GetByID 根据ID获取歌单（含条目，按顺序）
func (r *gormPlaylistRepository) GetByID(ctx context.Context, id int64) (*model.Playlist, error) {
	var playlist model.Playlist
	err := r.db.WithContext(ctx).
		Preload("Entries", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("id = ?", id).
		First(&playlist).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &playlist, nil
}

// GetAllByUserID 获取用户的全部歌单
func (r *gormPlaylistRepository) GetAllByUserID(ctx context.Context, userID int64) ([]*model.Playlist, error) {
	var playlists []*model.Playlist
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&playlists).Error
	return playlists, err
}

// Update 更新歌单属性
func (r *gormPlaylistRepository) Update(ctx context.Context, playlist *model.Playlist) error {
	return r.db.WithContext(ctx).Save(playlist).Error
}

// Delete 删除歌单及其条目
func (r *gormPlaylistRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("playlist_id = ?", id).Delete(&model.PlaylistEntry{}).Error; err != nil {
			return fmt.Errorf("删除歌单条目失败: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&model.Playlist{}).Error; err != nil {
			return fmt.Errorf("删除歌单失败: %w", err)
		}
		return nil
	})
}

// ========== 歌单成员 ==========

// AddEntry 追加曲目到歌单尾部，已存在时是无操作
func (r *gormPlaylistRepository) AddEntry(ctx context.Context, playlistID int64, trackID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.PlaylistEntry{}).
			Where("playlist_id = ? AND track_id = ?", playlistID, trackID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		var maxPosition int64
		if err := tx.Model(&model.PlaylistEntry{}).
			Where("playlist_id = ?", playlistID).
			Count(&maxPosition).Error; err != nil {
			return err
		}

		entry := &model.PlaylistEntry{
			PlaylistID: playlistID,
			TrackID:    trackID,
			Position:   int(maxPosition),
			CreatedAt:  time.Now(),
		}
		return tx.Create(entry).Error
	})
}

// RemoveEntry 从歌单移除曲目并压实后续位置
func (r *gormPlaylistRepository) RemoveEntry(ctx context.Context, playlistID int64, trackID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry model.PlaylistEntry
		err := tx.Where("playlist_id = ? AND track_id = ?", playlistID, trackID).
			First(&entry).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return err
		}
		if err := tx.Delete(&entry).Error; err != nil {
			return err
		}
		return tx.Model(&model.PlaylistEntry{}).
			Where("playlist_id = ? AND position > ?", playlistID, entry.Position).
			UpdateColumn("position", gorm.Expr("position - 1")).Error
	})
}

// GetEntries 获取歌单条目，按位置排序
func (r *gormPlaylistRepository) GetEntries(ctx context.Context, playlistID int64) ([]*model.PlaylistEntry, error) {
	var entries []*model.PlaylistEntry
	err := r.db.WithContext(ctx).
		Where("playlist_id = ?", playlistID).
		Order("position ASC").
		Find(&entries).Error
	return entries, err
}

// RemoveTrackEverywhere 曲库删除联动：从所有歌单移除该曲目
func (r *gormPlaylistRepository) RemoveTrackEverywhere(ctx context.Context, trackID string) error {
	return r.db.WithContext(ctx).
		Where("track_id = ?", trackID).
		Delete(&model.PlaylistEntry{}).Error
}

// FindPlaylistContaining 返回用户第一个包含该曲目的歌单，
// 按创建顺序。查不到返回 nil。
func (r *gormPlaylistRepository) FindPlaylistContaining(userID int64, trackID string) (*model.Playlist, error) {
	var playlist model.Playlist
	err := r.db.
		Joins("JOIN playlist_entries ON playlist_entries.playlist_id = playlists.id").
		Where("playlists.user_id = ? AND playlist_entries.track_id = ?", userID, trackID).
		Order("playlists.created_at ASC").
		First(&playlist).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &playlist, nil
}

// EnsureFavoritesPlaylist 确保收藏自动歌单存在并返回它
func (r *gormPlaylistRepository) EnsureFavoritesPlaylist(ctx context.Context, userID int64) (*model.Playlist, error) {
	var playlist model.Playlist
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND auto_kind = ?", userID, model.AutoKindFavorites).
		First(&playlist).Error
	if err == nil {
		return &playlist, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	playlist = model.Playlist{
		UserID:   userID,
		Name:     "我的收藏",
		AutoKind: model.AutoKindFavorites,
	}
	if err := r.db.WithContext(ctx).Create(&playlist).Error; err != nil {
		return nil, fmt.Errorf("创建收藏歌单失败: %w", err)
	}
	return &playlist, nil
}
