package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"sonata/config"
	"sonata/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var minioClient *minio.Client

// InitMinio 初始化 MinIO 客户端并确保音频存储桶存在
func InitMinio(cfg *config.Config) error {
	logger.Info("正在连接 MinIO 服务器",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("bucket", cfg.MinioBucket))

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return fmt.Errorf("检查存储桶失败: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("创建存储桶失败: %w", err)
		}
		logger.Info("成功创建存储桶", logger.String("bucket", cfg.MinioBucket))
	}

	minioClient = client
	logger.Info("MinIO 客户端初始化成功")
	return nil
}

// GetMinioClient 获取 MinIO 客户端实例
func GetMinioClient() *minio.Client {
	return minioClient
}

// UploadAudio 上传音频对象
func UploadAudio(ctx context.Context, bucket, objectKey string, reader io.Reader, size int64, contentType string) error {
	if minioClient == nil {
		return fmt.Errorf("MinIO client not initialized")
	}
	_, err := minioClient.PutObject(ctx, bucket, objectKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("上传音频对象失败: %w", err)
	}
	return nil
}

// OpenAudio 打开音频对象读取流，由调用方负责 Close
func OpenAudio(ctx context.Context, bucket, objectKey string) (*minio.Object, error) {
	if minioClient == nil {
		return nil, fmt.Errorf("MinIO client not initialized")
	}
	object, err := minioClient.GetObject(ctx, bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("读取音频对象失败: %w", err)
	}
	return object, nil
}

// RemoveAudio 删除音频对象
func RemoveAudio(ctx context.Context, bucket, objectKey string) error {
	if minioClient == nil {
		return fmt.Errorf("MinIO client not initialized")
	}
	if err := minioClient.RemoveObject(ctx, bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("删除音频对象失败: %w", err)
	}
	return nil
}
