package library

import (
	"context"
	"os"
	"time"

	"sonata/logger"

	"github.com/fsnotify/fsnotify"
)

// Watcher 目录监听自动导入：音频文件落进监听目录后，等文件
// 稳定（不再被写入）再走导入流水线。
type Watcher struct {
	dir      string
	userID   int64
	importer *Importer
}

// NewWatcher 创建目录监听器，dir 为空时 Run 直接返回
func NewWatcher(dir string, userID int64, importer *Importer) *Watcher {
	return &Watcher{dir: dir, userID: userID, importer: importer}
}

// Run 阻塞运行监听循环，ctx 取消时退出
func (w *Watcher) Run(ctx context.Context) error {
	if w.dir == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return err
	}
	logger.Info("目录监听已启动",
		logger.String("dir", w.dir),
		logger.Int64("userId", w.userID))

	// 文件稳定性检查的延迟队列
	pendingFiles := make(map[string]time.Time)
	checkTicker := time.NewTicker(500 * time.Millisecond)
	defer checkTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				if _, supported := MimeForFilename(event.Name); supported {
					pendingFiles[event.Name] = time.Now()
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("目录监听出错", logger.ErrorField(err))

		case <-checkTicker.C:
			now := time.Now()
			for path, lastEvent := range pendingFiles {
				// 2 秒没有新事件视为写入完成
				if now.Sub(lastEvent) < 2*time.Second {
					continue
				}
				delete(pendingFiles, path)

				if _, err := os.Stat(path); err != nil {
					continue // 已被移走
				}

				track, err := w.importer.ImportFile(ctx, w.userID, path)
				if err != nil {
					logger.Error("自动导入失败",
						logger.String("path", path),
						logger.ErrorField(err))
					continue
				}
				logger.Info("自动导入完成",
					logger.String("path", path),
					logger.String("trackId", track.ID),
					logger.String("name", track.Name))
			}
		}
	}
}
