package config

import (
	"errors"
	"fmt"
)

// Config 应用配置根结构
type Config struct {
	AI         AIConfig         `mapstructure:"ai"`
	Image      ImageConfig      `mapstructure:"image"`
	Generation GenerationConfig `mapstructure:"generation"`
	Log        LogConfig        `mapstructure:"log"`
	Store      StoreConfig      `mapstructure:"store"`
	Mongo      MongoConfig      `mapstructure:"mongo"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Storage    StorageConfig    `mapstructure:"storage"`
}

// AIConfig 文本模型配置
type AIConfig struct {
	Provider string          `mapstructure:"provider"`
	APIKey   string          `mapstructure:"api_key"`
	Model    string          `mapstructure:"model"`
	BaseURL  string          `mapstructure:"base_url"`
	Options  AIOptionsConfig `mapstructure:"options"`
}

// AIOptionsConfig AI 模型参数
type AIOptionsConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	TopP        float64 `mapstructure:"top_p"`
}

// ImageConfig 封面生成配置（Ark 图片模型）
type ImageConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
	Size    string `mapstructure:"size"` // 3:4 竖版，如 864x1152
}

// GenerationConfig 大纲与章节生成参数
type GenerationConfig struct {
	OutlineLimit  int `mapstructure:"outline_limit"`   // 详细大纲章节上限，超出部分自动补位
	ContextWindow int `mapstructure:"context_window"`  // 章节写作时前后参考的大纲章节数
	PrevTailChars int `mapstructure:"prev_tail_chars"` // 上一章结尾截取的字符数
}

// LogConfig 日志配置 (Zerolog)
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	TimeFormat string `mapstructure:"time_format"`
}

// StoreConfig 故事库存储配置
type StoreConfig struct {
	Backend  string `mapstructure:"backend"`   // file, memory, redis, mongo
	FilePath string `mapstructure:"file_path"` // backend=file 时的数据文件
	MaxBytes int    `mapstructure:"max_bytes"` // 序列化后的故事库容量上限，<=0 表示不限制
}

// MongoConfig MongoDB 配置
type MongoConfig struct {
	URI         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	MaxPoolSize uint64 `mapstructure:"max_pool_size"`
	MinPoolSize uint64 `mapstructure:"min_pool_size"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StorageConfig 导出存储配置
type StorageConfig struct {
	Type  string       `mapstructure:"type"` // local, oss
	Local *LocalConfig `mapstructure:"local,omitempty"`
	OSS   *OSSConfig   `mapstructure:"oss,omitempty"`
}

// LocalConfig 本地文件系统配置
type LocalConfig struct {
	BasePath string `mapstructure:"base_path"` // 基础路径
	BaseURL  string `mapstructure:"base_url"`  // 基础URL（用于生成访问URL）
}

// OSSConfig 阿里云OSS配置
type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`          // OSS端点
	Bucket          string `mapstructure:"bucket"`            // Bucket名称
	AccessKeyID     string `mapstructure:"access_key_id"`     // AccessKey ID
	AccessKeySecret string `mapstructure:"access_key_secret"` // AccessKey Secret
}

// Validate 验证配置有效性
func (c *Config) Validate() error {
	validProviders := map[string]bool{"openai": true, "azure": true, "ark": true, "": true}
	if !validProviders[c.AI.Provider] {
		return fmt.Errorf("unsupported AI provider: %s", c.AI.Provider)
	}

	validBackends := map[string]bool{"file": true, "memory": true, "redis": true, "mongo": true}
	if !validBackends[c.Store.Backend] {
		return errors.New("invalid store backend, must be file/memory/redis/mongo")
	}
	if c.Store.Backend == "file" && c.Store.FilePath == "" {
		return errors.New("store.file_path is required for file backend")
	}

	if c.Generation.OutlineLimit <= 0 {
		return errors.New("generation.outline_limit must be positive")
	}
	if c.Generation.ContextWindow < 0 || c.Generation.PrevTailChars < 0 {
		return errors.New("generation.context_window and prev_tail_chars must not be negative")
	}

	return nil
}
