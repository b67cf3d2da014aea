package story

import (
	"context"

	"novelist/internal/pkg/cache"
)

// RedisBackend Redis 存储，整个故事库保存在一个不过期的 key 下
type RedisBackend struct {
	cache *cache.RedisCache
	key   string
}

// NewRedisBackend 创建 Redis 存储
func NewRedisBackend(c *cache.RedisCache) *RedisBackend {
	return &RedisBackend{cache: c, key: CollectionKey}
}

// Load 读取
func (b *RedisBackend) Load(ctx context.Context) ([]byte, error) {
	return b.cache.GetBytes(ctx, b.key)
}

// Store 写入
// SET 是单条命令，整体成功或失败
func (b *RedisBackend) Store(ctx context.Context, data []byte) error {
	return b.cache.SetBytes(ctx, b.key, data, 0)
}
