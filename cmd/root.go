package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"novelist/internal/config"
	"novelist/internal/pkg/logger"
)

var (
	cfgFile   string
	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "novelist",
	Short: "Novelist - AI novel generation",
	Long: `Novelist plans a novel outline from a premise, writes chapters one by one
with a streaming language model and keeps a local library of stories.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	defer func() {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	}()
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ./configs/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (trace/debug/info/warn/error)")
	rootCmd.PersistentFlags().String("store", "", "story store backend (file/memory/redis/mongo)")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("store.backend", rootCmd.PersistentFlags().Lookup("store"))
}

func initConfig() {
	c, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg = c

	// 初始化日志
	closer, err := logger.Init(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	logCloser = closer

	log.Debug().Str("config_file", viper.ConfigFileUsed()).Msg("configuration loaded")
}

// loadConfig 合并配置文件、环境变量与默认值
// 只有设置过默认值（或出现在配置文件中）的 key 才会从环境变量读取
func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.novelist")
	}

	// 环境变量设置
	viper.SetEnvPrefix("NOVELIST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 设置默认值
	setDefaults()

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		fmt.Fprintln(os.Stderr, "No config file found, using defaults and environment variables")
	}

	// 反序列化到结构体
	c := &config.Config{}
	if err := viper.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return c, nil
}

func setDefaults() {
	// AI
	viper.SetDefault("ai.provider", "openai")
	viper.SetDefault("ai.model", "gpt-4o")
	viper.SetDefault("ai.api_key", "")
	viper.SetDefault("ai.base_url", "")
	viper.SetDefault("ai.options.temperature", 1.0)
	viper.SetDefault("ai.options.max_tokens", 8192)
	viper.SetDefault("ai.options.top_p", 0.95)

	// Image (cover)
	viper.SetDefault("image.enabled", false)
	viper.SetDefault("image.api_key", "")
	viper.SetDefault("image.base_url", "https://ark.cn-beijing.volces.com/api/v3")
	viper.SetDefault("image.model", "doubao-seedream-3-0-t2i-250415")
	viper.SetDefault("image.size", "864x1152")

	// Generation
	viper.SetDefault("generation.outline_limit", 20)
	viper.SetDefault("generation.context_window", 5)
	viper.SetDefault("generation.prev_tail_chars", 1500)

	// Log
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("log.output", "stderr")
	viper.SetDefault("log.time_format", "RFC3339")
	viper.SetDefault("log.file_path", "")

	// Store
	viper.SetDefault("store.backend", "file")
	viper.SetDefault("store.file_path", "./data/stories.json")
	viper.SetDefault("store.max_bytes", 5<<20)

	// MongoDB
	viper.SetDefault("mongo.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongo.database", "novelist")
	viper.SetDefault("mongo.max_pool_size", 10)
	viper.SetDefault("mongo.min_pool_size", 1)

	// Redis
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Export storage
	viper.SetDefault("storage.type", "local")
	viper.SetDefault("storage.local.base_path", "./exports")
	viper.SetDefault("storage.local.base_url", "")
}

// GetConfig returns the global configuration
func GetConfig() *config.Config {
	return cfg
}
