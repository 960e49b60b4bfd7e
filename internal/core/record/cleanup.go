package record

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/system"
	"github.com/ixugo/goddd/pkg/web"
	"gorm.io/gorm"
)

// StartCleanupWorker 启动定时清理协程
// 程序启动时执行一次清理，随后每 60 分钟执行一次
func (c Core) StartCleanupWorker() {
	if c.conf == nil || c.conf.Disabled {
		slog.Info("segment cleanup disabled")
		return
	}
	if c.conf.RetainDays <= 0 {
		return
	}

	slog.Info("segment cleanup worker started",
		"retain_days", c.conf.RetainDays,
		"storage_dir", c.conf.StorageDir,
	)

	c.cleanupExpiredSegments()

	ticker := time.NewTicker(60 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.cleanupExpiredSegments()
	}
}

// cleanupExpiredSegments 清理超过保留天数的切片（文件+数据库记录）
func (c Core) cleanupExpiredSegments() {
	ctx := context.Background()
	cutoffTime := time.Now().AddDate(0, 0, -c.conf.RetainDays)
	batchSize := 100

	var totalDeleted, failedFiles int
	var freedBytes int64

	for {
		var segments []*Segment
		pager := web.PagerFilter{Page: 1, Size: batchSize}
		_, err := c.store.Segment().Find(ctx, &segments, &pager,
			orm.Where("started_at < ?", orm.Time{Time: cutoffTime}),
		)
		if err != nil || len(segments) == 0 {
			break
		}

		var deleteIDs []int64
		for _, seg := range segments {
			filePath := seg.Path
			if !filepath.IsAbs(filePath) {
				filePath = filepath.Join(c.StorageDir(), filePath)
			}
			if err := os.Remove(filePath); err != nil {
				if !os.IsNotExist(err) {
					failedFiles++
				}
			} else {
				freedBytes += seg.Size
			}
			deleteIDs = append(deleteIDs, seg.ID)
		}

		if len(deleteIDs) > 0 {
			err = c.store.Segment().Session(ctx, func(tx *gorm.DB) error {
				return tx.Where("id IN ?", deleteIDs).Delete(&Segment{}).Error
			})
			if err != nil {
				slog.Warn("failed to delete expired segments", "err", err)
				break
			}
			totalDeleted += len(deleteIDs)
		}
	}

	if dir := c.StorageDir(); dir != "" {
		absStorageDir := dir
		if !filepath.IsAbs(absStorageDir) {
			absStorageDir = filepath.Join(system.Getwd(), dir)
		}
		cleanupEmptyDirs(absStorageDir)
	}

	if totalDeleted > 0 || failedFiles > 0 {
		slog.Info("expired segment cleanup completed",
			"reason", "retention_policy",
			"retain_days", c.conf.RetainDays,
			"cutoff_time", cutoffTime.Format(time.DateTime),
			"segments_deleted", totalDeleted,
			"failed_files", failedFiles,
			"freed_bytes", freedBytes,
		)
	}
}

// cleanupEmptyDirs 递归删除空目录
func cleanupEmptyDirs(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			subDir := filepath.Join(dir, entry.Name())
			cleanupEmptyDirs(subDir)

			subEntries, err := os.ReadDir(subDir)
			if err == nil && len(subEntries) == 0 {
				_ = os.Remove(subDir)
			}
		}
	}
}
