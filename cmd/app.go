package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"novelist/internal/ai"
	"novelist/internal/ai/component"
	"novelist/internal/config"
	"novelist/internal/pkg/ark"
	"novelist/internal/pkg/cache"
	"novelist/internal/pkg/mongodb"
	storyrepo "novelist/internal/repository/story"
	storysvc "novelist/internal/service/story"
)

// app 一次命令执行所需的依赖
type app struct {
	controller *storysvc.Controller
	repo       storyrepo.StoryRepository
	closers    []func()
}

// newApp 按配置组装依赖
// withAI 为 false 时不创建模型客户端（list / delete 等命令不需要）
func newApp(ctx context.Context, cfg *config.Config, withAI bool) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	a := &app{}

	backend, err := a.newBackend(cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open story store: %w", err)
	}
	store := storyrepo.NewStore(backend, storyrepo.WithMaxBytes(cfg.Store.MaxBytes))
	a.repo = store

	var (
		text   ai.TextGateway
		images ai.ImageGateway
	)
	if withAI {
		chatModel, err := component.NewChatModel(ctx, &cfg.AI)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
		text = ai.NewEinoTextGateway(chatModel)

		if cfg.Image.Enabled {
			client, err := ark.NewImageClient(&cfg.Image)
			if err != nil {
				// 封面是可选的，客户端创建失败不影响建书
				log.Warn().Err(err).Msg("cover generation disabled")
			} else {
				images = client
			}
		}
	}

	a.controller = storysvc.NewController(text, images, store, storysvc.OptionsFromConfig(&cfg.Generation))
	return a, nil
}

// newBackend 创建故事库存储后端
func (a *app) newBackend(cfg *config.Config) (storyrepo.Backend, error) {
	switch cfg.Store.Backend {
	case "memory":
		return storyrepo.NewMemoryBackend(), nil
	case "redis":
		rc, err := cache.NewRedisCache(&cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = rc.Close() })
		return storyrepo.NewRedisBackend(rc), nil
	case "mongo":
		mc, err := mongodb.New(&cfg.Mongo)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mc.Close(ctx)
		})
		return storyrepo.NewMongoBackend(mc.Database()), nil
	default:
		fb, err := storyrepo.NewFileBackend(cfg.Store.FilePath)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("path", fb.Path()).Msg("using file story store")
		return fb, nil
	}
}

// Close 释放连接
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// signalContext 收到 SIGINT / SIGTERM 时取消，timeout > 0 时附加超时
func signalContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	return tctx, func() {
		cancel()
		stop()
	}
}
