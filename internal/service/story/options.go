package story

import "novelist/internal/config"

const (
	DefaultOutlineLimit  = 20
	DefaultContextWindow = 5
	DefaultPrevTailChars = 1500
)

// Options 大纲与章节生成参数
type Options struct {
	OutlineLimit  int // 详细大纲章节上限
	ContextWindow int // 目标章节前后各取多少章大纲
	PrevTailChars int // 上一章结尾截取的字符数（按 rune 计）
}

// DefaultOptions 返回默认参数
func DefaultOptions() Options {
	return Options{
		OutlineLimit:  DefaultOutlineLimit,
		ContextWindow: DefaultContextWindow,
		PrevTailChars: DefaultPrevTailChars,
	}
}

// OptionsFromConfig 从配置构建参数，未设置的字段使用默认值
func OptionsFromConfig(cfg *config.GenerationConfig) Options {
	opts := DefaultOptions()
	if cfg == nil {
		return opts
	}
	if cfg.OutlineLimit > 0 {
		opts.OutlineLimit = cfg.OutlineLimit
	}
	if cfg.ContextWindow > 0 {
		opts.ContextWindow = cfg.ContextWindow
	}
	if cfg.PrevTailChars > 0 {
		opts.PrevTailChars = cfg.PrevTailChars
	}
	return opts
}
