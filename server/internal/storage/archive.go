// Package storage выгружает архивы переписки в S3-совместимое хранилище (MinIO).
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// ArchiveStorage определяет интерфейс для выгрузки архивов в объектное хранилище.
type ArchiveStorage interface {
	Upload(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
}

// MinioConfig содержит параметры для подключения к MinIO.
type MinioConfig struct {
	Endpoint        string // Адрес MinIO (например, "localhost:9000")
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	BucketName      string
	Region          string
}

// MinioArchive реализует ArchiveStorage для MinIO.
type MinioArchive struct {
	client     *minio.Client
	bucketName string
}

// NewMinioArchive создает клиент MinIO и при необходимости создает бакет.
func NewMinioArchive(ctx context.Context, cfg MinioConfig) (*MinioArchive, error) {
	zap.S().Infof("[Archive] Инициализация клиента MinIO для эндпоинта %s...", cfg.Endpoint)

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации клиента MinIO: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки существования бакета '%s': %w", cfg.BucketName, err)
	}
	if !exists {
		zap.S().Infof("[Archive] Бакет '%s' не найден, создаем...", cfg.BucketName)
		if err = client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("ошибка создания бакета '%s': %w", cfg.BucketName, err)
		}
	}

	zap.S().Infof("[Archive] Клиент MinIO готов, бакет '%s'", cfg.BucketName)
	return &MinioArchive{client: client, bucketName: cfg.BucketName}, nil
}

// Upload загружает объект в бакет.
func (a *MinioArchive) Upload(
	ctx context.Context,
	objectKey string,
	reader io.Reader,
	size int64,
	contentType string,
) error {
	info, err := a.client.PutObject(ctx, a.bucketName, objectKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		zap.S().Errorf("[Archive] Ошибка загрузки '%s': %v", objectKey, err)
		return fmt.Errorf("ошибка загрузки файла в MinIO: %w", err)
	}

	zap.S().Infof("[Archive] Объект '%s' загружен, размер: %d, ETag: %s", objectKey, info.Size, info.ETag)
	return nil
}
