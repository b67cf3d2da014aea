package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
)

const jsonSystemPrompt = `Bạn chỉ được trả về MỘT đối tượng JSON hợp lệ, không kèm markdown hay giải thích.
JSON phải tuân theo đúng schema sau:
`

// EinoTextGateway 基于 Eino ChatModel 的文本生成网关
type EinoTextGateway struct {
	chatModel model.BaseChatModel
}

// NewEinoTextGateway 创建文本生成网关
//
// Args:
//   - chatModel: 通过 component.NewChatModel 创建的 ChatModel 实例
func NewEinoTextGateway(chatModel model.BaseChatModel) *EinoTextGateway {
	return &EinoTextGateway{chatModel: chatModel}
}

// GenerateJSON 生成结构化 JSON
// schema 通过系统提示词约束，返回值的结构校验由调用方负责
func (g *EinoTextGateway) GenerateJSON(ctx context.Context, prompt, schemaText string) (string, error) {
	if g.chatModel == nil {
		return "", fmt.Errorf("%w: chatModel is required", ErrGatewayUnavailable)
	}

	messages := []*schema.Message{
		schema.SystemMessage(jsonSystemPrompt + schemaText),
		schema.UserMessage(prompt),
	}

	resp, err := g.chatModel.Generate(ctx, messages, model.WithTemperature(1))
	if err != nil {
		return "", fmt.Errorf("%w: generate json: %w", ErrGatewayUnavailable, err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", ErrEmptyResponse
	}
	logUsage(resp, "json")

	return resp.Content, nil
}

// GenerateText 一次性生成纯文本
func (g *EinoTextGateway) GenerateText(ctx context.Context, prompt string, params SamplingParams) (string, error) {
	if g.chatModel == nil {
		return "", fmt.Errorf("%w: chatModel is required", ErrGatewayUnavailable)
	}

	resp, err := g.chatModel.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)}, buildOptions(params)...)
	if err != nil {
		return "", fmt.Errorf("%w: generate text: %w", ErrGatewayUnavailable, err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", ErrEmptyResponse
	}
	logUsage(resp, "text")

	return resp.Content, nil
}

// GenerateStream 流式生成文本
func (g *EinoTextGateway) GenerateStream(ctx context.Context, prompt, systemInstruction string, params SamplingParams) (FragmentStream, error) {
	if g.chatModel == nil {
		return nil, fmt.Errorf("%w: chatModel is required", ErrGatewayUnavailable)
	}

	messages := make([]*schema.Message, 0, 2)
	if systemInstruction != "" {
		messages = append(messages, schema.SystemMessage(systemInstruction))
	}
	messages = append(messages, schema.UserMessage(prompt))

	reader, err := g.chatModel.Stream(ctx, messages, buildOptions(params)...)
	if err != nil {
		return nil, fmt.Errorf("%w: open stream: %w", ErrGatewayUnavailable, err)
	}
	return &einoStream{reader: reader}, nil
}

// einoStream 将 Eino StreamReader 适配为 FragmentStream
// 跳过空内容消息（流末尾可能只携带 Usage）
type einoStream struct {
	reader *schema.StreamReader[*schema.Message]
}

func (s *einoStream) Recv() (string, error) {
	for {
		msg, err := s.reader.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", fmt.Errorf("%w: stream recv: %w", ErrGatewayUnavailable, err)
		}
		if msg == nil {
			continue
		}
		if msg.Content != "" {
			return msg.Content, nil
		}
		logUsage(msg, "stream")
	}
}

func (s *einoStream) Close() {
	s.reader.Close()
}

func buildOptions(params SamplingParams) []model.Option {
	opts := make([]model.Option, 0, 3)
	if params.Temperature > 0 {
		opts = append(opts, model.WithTemperature(params.Temperature))
	}
	if params.TopP > 0 {
		opts = append(opts, model.WithTopP(params.TopP))
	}
	if params.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(params.MaxTokens))
	}
	return opts
}

func logUsage(msg *schema.Message, kind string) {
	if msg.ResponseMeta == nil || msg.ResponseMeta.Usage == nil {
		return
	}
	u := msg.ResponseMeta.Usage
	log.Debug().
		Str("kind", kind).
		Int("prompt_tokens", u.PromptTokens).
		Int("completion_tokens", u.CompletionTokens).
		Msg("llm usage")
}
