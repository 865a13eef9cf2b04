package library

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"sonata/config"
	"sonata/core/audio"
	"sonata/model"
	"sonata/repository"
	"sonata/storage"

	"github.com/google/uuid"
)

// 支持导入的音频扩展名到 MIME 类型
var audioMimeTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
}

// MimeForFilename 按扩展名返回音频 MIME 类型，不支持时 ok 为假
func MimeForFilename(name string) (string, bool) {
	mime, ok := audioMimeTypes[strings.ToLower(filepath.Ext(name))]
	return mime, ok
}

// Importer 曲库导入流水线：ffprobe 探测时长 → 音频字节入
// MinIO → 元数据行入 MySQL。HTTP 上传与目录监听共用。
type Importer struct {
	cfg       *config.Config
	prober    *audio.Prober
	trackRepo repository.TrackRepository
}

// NewImporter 创建导入器
func NewImporter(cfg *config.Config, prober *audio.Prober, trackRepo repository.TrackRepository) *Importer {
	return &Importer{cfg: cfg, prober: prober, trackRepo: trackRepo}
}

// ImportFile 导入本地音频文件
func (im *Importer) ImportFile(ctx context.Context, userID int64, path string) (*model.Track, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	mime, ok := MimeForFilename(path)
	if !ok {
		return nil, fmt.Errorf("不支持的音频格式: %s", filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开音频文件失败: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("读取文件信息失败: %w", err)
	}

	return im.importStream(ctx, userID, name, mime, info.Size(), f, path)
}

// ImportUpload 导入上传的音频。上传内容先落到临时文件，
// ffprobe 只认路径。
func (im *Importer) ImportUpload(ctx context.Context, userID int64, filename string, r io.Reader) (*model.Track, error) {
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	mime, ok := MimeForFilename(filename)
	if !ok {
		return nil, fmt.Errorf("不支持的音频格式: %s", filepath.Ext(filename))
	}

	tmp, err := os.CreateTemp("", "sonata-import-*"+filepath.Ext(filename))
	if err != nil {
		return nil, fmt.Errorf("创建临时文件失败: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	size, err := io.Copy(tmp, r)
	if err != nil {
		return nil, fmt.Errorf("写入临时文件失败: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("回绕临时文件失败: %w", err)
	}

	return im.importStream(ctx, userID, name, mime, size, tmp, tmp.Name())
}

// importStream probePath 为 ffprobe 可访问的磁盘路径，r 已定位到文件头
func (im *Importer) importStream(ctx context.Context, userID int64, name, mime string, size int64, r io.Reader, probePath string) (*model.Track, error) {
	duration, err := im.prober.Duration(probePath)
	if err != nil {
		return nil, fmt.Errorf("探测音频时长失败: %w", err)
	}

	trackID := uuid.NewString()
	objectKey := "audio/" + trackID + strings.ToLower(filepath.Ext(probePath))
	if err := storage.UploadAudio(ctx, im.cfg.MinioBucket, objectKey, r, size, mime); err != nil {
		return nil, err
	}

	track := &model.Track{
		ID:        trackID,
		UserID:    userID,
		Name:      name,
		ObjectKey: objectKey,
		MimeType:  mime,
		Size:      size,
		Duration:  duration,
	}
	if err := im.trackRepo.CreateTrack(track); err != nil {
		// 入库失败时回收对象，避免孤儿音频
		if rmErr := storage.RemoveAudio(ctx, im.cfg.MinioBucket, objectKey); rmErr != nil {
			return nil, fmt.Errorf("曲目入库失败: %w (清理对象也失败: %v)", err, rmErr)
		}
		return nil, fmt.Errorf("曲目入库失败: %w", err)
	}
	return track, nil
}
