package story

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"novelist/internal/ai"
	model "novelist/internal/model/story"
)

// chapterSampling 章节写作采样参数
var chapterSampling = ai.SamplingParams{
	Temperature: 1,
	TopP:        0.95,
}

// Writer 章节写作器
// 以流的形式生成单个章节正文；Writer 本身不加锁，同一文档同时只能有一个写入，由调用方保证
type Writer struct {
	gateway ai.TextGateway
	opts    Options
	now     func() time.Time
}

// NewWriter 创建章节写作器
func NewWriter(gateway ai.TextGateway, opts Options) *Writer {
	if opts.ContextWindow <= 0 {
		opts.ContextWindow = DefaultContextWindow
	}
	if opts.PrevTailChars <= 0 {
		opts.PrevTailChars = DefaultPrevTailChars
	}
	return &Writer{gateway: gateway, opts: opts, now: time.Now}
}

// Write 开始生成第 index 个章节（下标从0开始）
//
// 章节先被重置为未生成，再请求流；返回的 ChapterStream 由调用方逐段读取，
// 读到 io.EOF 时正文写回文档并标记为已生成。失败或取消时章节保持重置状态。
func (w *Writer) Write(ctx context.Context, doc *model.StoryDocument, index int) (*ChapterStream, error) {
	if doc == nil || index < 0 || index >= len(doc.Chapters) {
		return nil, fmt.Errorf("%w: %d", ErrChapterOutOfRange, index)
	}
	if w.gateway == nil {
		return nil, fmt.Errorf("%w: text gateway is required", ErrChapterStreamFailed)
	}

	chapter := &doc.Chapters[index]
	wasGenerated := chapter.Generated
	chapter.Reset()
	doc.LastUpdated = w.now()

	prompt := BuildChapterPrompt(doc, index, w.opts)
	src, err := w.gateway.GenerateStream(ctx, prompt, chapterSystemInstruction, chapterSampling)
	if err != nil {
		log.Error().Err(err).Str("story_id", doc.ID).Int("chapter", chapter.Number).Msg("failed to open chapter stream")
		return nil, fmt.Errorf("%w: chapter %d: %w", ErrChapterStreamFailed, chapter.Number, err)
	}

	log.Info().
		Str("story_id", doc.ID).
		Int("chapter", chapter.Number).
		Bool("regenerate", wasGenerated).
		Bool("placeholder", !chapter.HasAuthoredSummary).
		Msg("chapter stream started")

	return newChapterStream(ctx, doc, index, src, w.now), nil
}

// ContextChapters 选取目标章节前后 window 章以内的大纲（按章节号排序）
func ContextChapters(doc *model.StoryDocument, index, window int) []model.Chapter {
	target := doc.Chapters[index].Number
	out := make([]model.Chapter, 0, 2*window+1)
	for _, ch := range doc.Chapters {
		d := ch.Number - target
		if d < 0 {
			d = -d
		}
		if d <= window {
			out = append(out, ch)
		}
	}
	return out
}

// PreviousChapterContext 上一章衔接内容
// 只有上一章存在且已生成时才附带其结尾，否则视为开篇
func PreviousChapterContext(doc *model.StoryDocument, index, tailChars int) string {
	if index <= 0 || index > len(doc.Chapters) {
		return openingChapterNote
	}
	prev := doc.Chapters[index-1]
	if !prev.Generated {
		return openingChapterNote
	}
	return "CHƯƠNG TRƯỚC VỪA KẾT THÚC NHƯ SAU:\n..." + tailRunes(prev.Content, tailChars)
}

// BuildChapterPrompt 构建章节写作提示词
func BuildChapterPrompt(doc *model.StoryDocument, index int, opts Options) string {
	chapter := doc.Chapters[index]

	outlineLines := make([]string, 0, 2*opts.ContextWindow+1)
	for _, ch := range ContextChapters(doc, index, opts.ContextWindow) {
		outlineLines = append(outlineLines, fmt.Sprintf("Chương %d: %s - %s", ch.Number, ch.Title, ch.Summary))
	}

	summaryInstruction := "Cốt truyện chính của chương: " + chapter.Summary
	if !chapter.HasAuthoredSummary {
		summaryInstruction = "Hiện chưa có tóm tắt chi tiết cho chương này. Hãy TỰ DO SÁNG TẠO diễn biến tiếp theo một cách logic, hấp dẫn, tiếp nối mạch truyện của chương trước."
	}

	lengthInstruction := "- Độ dài: Hãy viết độ dài vừa phải, phù hợp với diễn biến (khoảng 1000-2000 từ)."
	if doc.StoryType == model.StoryTypeLong {
		lengthInstruction = fmt.Sprintf("- Độ dài mục tiêu: Tối thiểu %d từ. Hãy viết thật dài, thật sâu.", doc.TargetWordCountPerChapter)
	}

	var b strings.Builder
	b.WriteString("HÃY VIẾT NỘI DUNG CHI TIẾT CHO CHƯƠNG SAU.\n\n")
	b.WriteString("THÔNG TIN:\n")
	fmt.Fprintf(&b, "- Tên truyện: %s\n", doc.Title)
	fmt.Fprintf(&b, "- Thể loại: %s\n", doc.Genre)
	fmt.Fprintf(&b, "- Tags: %s\n", strings.Join(doc.SubGenres, ", "))
	fmt.Fprintf(&b, "- PHONG CÁCH: %s\n\n", StyleGuide(doc.Genre, doc.SubGenres))
	b.WriteString("YÊU CẦU CỤ THỂ:\n")
	fmt.Fprintf(&b, "- Chương số: %d\n", chapter.Number)
	fmt.Fprintf(&b, "- Tiêu đề: %s\n", chapter.Title)
	fmt.Fprintf(&b, "- %s\n", summaryInstruction)
	b.WriteString(lengthInstruction + "\n\n")
	b.WriteString("BỐI CẢNH (Các chương lân cận):\n")
	b.WriteString(strings.Join(outlineLines, "\n") + "\n\n")
	b.WriteString("KẾT NỐI VỚI CHƯƠNG TRƯỚC:\n")
	b.WriteString(PreviousChapterContext(doc, index, opts.PrevTailChars) + "\n\n")
	b.WriteString("BẮT ĐẦU VIẾT NGAY.")
	return b.String()
}
