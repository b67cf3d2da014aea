package ark

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
	"github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"

	"novelist/internal/config"
)

const (
	DefaultBaseURL    = "https://ark.cn-beijing.volces.com/api/v3"
	DefaultImageModel = "doubao-seedream-3-0-t2i-250415"
	DefaultCoverSize  = "864x1152" // 3:4 竖版封面
)

// ImageClient Ark 图片生成客户端
// 用于调用火山引擎的 Ark API 生成封面图
type ImageClient struct {
	client *arkruntime.Client
	model  string
	size   string
}

// NewImageClient 创建 Ark 图片生成客户端
func NewImageClient(cfg *config.ImageConfig) (*ImageClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("image.api_key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = DefaultImageModel
	}
	size := cfg.Size
	if size == "" {
		size = DefaultCoverSize
	}

	arkClient := arkruntime.NewClientWithApiKey(cfg.APIKey, arkruntime.WithBaseUrl(baseURL))

	return &ImageClient{
		client: arkClient,
		model:  modelName,
		size:   size,
	}, nil
}

// GenerateImage 生成图片，返回解码后的图片二进制
// 接口没有返回图片数据时返回 (nil, nil)
func (c *ImageClient) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	responseFormat := "b64_json"
	watermark := false

	input := model.GenerateImagesRequest{
		Model:          c.model,
		Prompt:         prompt,
		Size:           &c.size,
		ResponseFormat: &responseFormat,
		Watermark:      &watermark,
	}

	output, err := c.client.GenerateImages(ctx, input)
	if err != nil {
		log.Error().Err(err).Str("model", c.model).Msg("failed to call Ark GenerateImages API")
		return nil, fmt.Errorf("Ark GenerateImages API call failed: %w", err)
	}

	for i := range output.Data {
		b64 := output.Data[i].B64Json
		if b64 == nil || *b64 == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(*b64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 image data: %w", err)
		}
		return data, nil
	}
	return nil, nil
}
