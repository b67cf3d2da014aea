package ai

import (
	"context"
	"errors"
)

var (
	// ErrGatewayUnavailable 模型服务调用失败（网络、鉴权、服务端错误等）
	ErrGatewayUnavailable = errors.New("generation gateway unavailable")
	// ErrEmptyResponse 模型返回空内容
	ErrEmptyResponse = errors.New("empty response from model")
)

// SamplingParams 采样参数，零值表示使用模型默认值
type SamplingParams struct {
	Temperature float32
	TopP        float32
	MaxTokens   int
}

// FragmentStream 文本片段流
// 只能向前读取，不支持重放；Recv 返回 io.EOF 表示正常结束
type FragmentStream interface {
	Recv() (string, error)
	Close()
}

// TextGateway 文本生成网关
// 具体的模型厂商由实现决定，核心逻辑只依赖此接口，方便单测和替换实现
type TextGateway interface {
	// GenerateJSON 按给定 JSON schema 生成结构化结果，返回原始 JSON 文本
	GenerateJSON(ctx context.Context, prompt, schema string) (string, error)

	// GenerateText 一次性生成纯文本
	GenerateText(ctx context.Context, prompt string, params SamplingParams) (string, error)

	// GenerateStream 流式生成文本，调用方负责 Close()
	GenerateStream(ctx context.Context, prompt, systemInstruction string, params SamplingParams) (FragmentStream, error)
}

// ImageGateway 图片生成网关
// 尽力而为：返回 (nil, nil) 表示没有生成图片，属于正常结果
type ImageGateway interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}
