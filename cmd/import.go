package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"sonata/config"
	"sonata/core/audio"
	"sonata/core/library"
	"sonata/db"
	"sonata/repository"
	"sonata/storage"

	"github.com/spf13/cobra"
)

var importUserID int64

var importCmd = &cobra.Command{
	Use:   "import [目录]",
	Short: "批量导入本地音频文件",
	Long:  `扫描指定目录，将其中的音频文件上传到对象存储并写入曲库。`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir := args[0]
		cfg := config.Load()

		if err := storage.InitMinio(cfg); err != nil {
			log.Fatalf("无法连接到MinIO: %v", err)
		}
		if err := db.ConnectDB(cfg); err != nil {
			log.Fatalf("无法连接到数据库: %v", err)
		}
		defer db.DB.Close()
		if err := db.InitDB(); err != nil {
			log.Fatalf("数据库初始化失败: %v", err)
		}

		importer := library.NewImporter(cfg, audio.NewProber(cfg.FFmpegPath), repository.NewMySQLTrackRepository())

		entries, err := os.ReadDir(dir)
		if err != nil {
			log.Fatalf("读取目录失败: %v", err)
		}

		imported := 0
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if _, ok := library.MimeForFilename(entry.Name()); !ok {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			track, err := importer.ImportFile(context.Background(), importUserID, path)
			if err != nil {
				log.Printf("导入失败 %s: %v", entry.Name(), err)
				continue
			}
			fmt.Printf("已导入: %s (%.1fs)\n", track.Name, track.Duration)
			imported++
		}
		fmt.Printf("导入完成，共 %d 个文件。\n", imported)
	},
}

func init() {
	importCmd.Flags().Int64Var(&importUserID, "user", 1, "导入到哪个用户的曲库")
	rootCmd.AddCommand(importCmd)
}
