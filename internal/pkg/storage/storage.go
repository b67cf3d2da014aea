package storage

import (
	"context"
	"io"
)

// Storage 导出文件的存储接口
type Storage interface {
	// Upload 上传文件，返回访问地址
	Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error)

	// Delete 删除文件，文件不存在时视为成功
	Delete(ctx context.Context, key string) error

	// Exists 检查文件是否存在
	Exists(ctx context.Context, key string) (bool, error)

	// GetStorageType 获取存储类型
	GetStorageType() string
}

// StorageType 存储类型
type StorageType string

const (
	StorageTypeLocal StorageType = "local" // 本地文件系统
	StorageTypeOSS   StorageType = "oss"   // 阿里云OSS
)
