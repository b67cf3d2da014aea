package story

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"novelist/internal/ai"
	model "novelist/internal/model/story"
)

// Outline 归一化后的大纲
type Outline struct {
	Title           string
	LongDescription string
	Chapters        []model.Chapter
}

// Planner 大纲规划器
// 根据故事配置生成书名、文案与章节大纲，并对模型输出做归一化与补位
type Planner struct {
	gateway ai.TextGateway
	opts    Options
}

// NewPlanner 创建大纲规划器
func NewPlanner(gateway ai.TextGateway, opts Options) *Planner {
	if opts.OutlineLimit <= 0 {
		opts.OutlineLimit = DefaultOutlineLimit
	}
	return &Planner{gateway: gateway, opts: opts}
}

// Plan 生成大纲
// 任一失败都包装为 ErrOutlinePlanningFailed；不做重试
func (p *Planner) Plan(ctx context.Context, cfg *model.StoryConfiguration) (*Outline, error) {
	if p.gateway == nil {
		return nil, fmt.Errorf("%w: text gateway is required", ErrOutlinePlanningFailed)
	}

	prompt := buildOutlinePrompt(cfg, p.opts.OutlineLimit)
	raw, err := p.gateway.GenerateJSON(ctx, prompt, OutlineSchema)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOutlinePlanningFailed, err)
	}

	resp, err := ParseOutline(raw)
	if err != nil {
		log.Warn().Err(err).Int("raw_len", len(raw)).Msg("outline response rejected")
		return nil, fmt.Errorf("%w: %w", ErrOutlinePlanningFailed, err)
	}

	outline := normalizeOutline(cfg, resp)
	log.Info().
		Str("title", outline.Title).
		Int("detailed", len(resp.Chapters)).
		Int("chapters", len(outline.Chapters)).
		Msg("outline planned")
	return outline, nil
}

// normalizeOutline 归一化模型输出
//  1. 清理章节标题前缀，空标题用 "Chương N" 代替
//  2. 强制按 1..K 重新编号，忽略模型编号
//  3. 正文置空、未生成
//  4. 长篇不足 TotalChapters 时补位
//  5. 书名、文案回退
func normalizeOutline(cfg *model.StoryConfiguration, resp *OutlineResponse) *Outline {
	total := len(resp.Chapters)
	if cfg.StoryType == model.StoryTypeLong && cfg.TotalChapters > total {
		total = cfg.TotalChapters
	}

	chapters := make([]model.Chapter, 0, total)
	for i, stub := range resp.Chapters {
		number := i + 1
		chapters = append(chapters, model.Chapter{
			Number:             number,
			Title:              NormalizeChapterTitle(stub.Title, number),
			Summary:            strings.TrimSpace(stub.Summary),
			HasAuthoredSummary: true,
		})
	}

	for number := len(chapters) + 1; number <= total; number++ {
		chapters = append(chapters, model.Chapter{
			Number:             number,
			Title:              SynthesizedTitle(number),
			Summary:            PlaceholderSummary,
			HasAuthoredSummary: false,
		})
	}

	title := resp.Title
	if title == "" {
		title = strings.TrimSpace(cfg.Title)
	}
	if title == "" {
		title = UntitledStory
	}

	description := resp.LongDescription
	if description == "" {
		description = cfg.Premise
	}

	return &Outline{
		Title:           title,
		LongDescription: description,
		Chapters:        chapters,
	}
}
