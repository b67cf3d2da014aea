package story

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"novelist/internal/ai"
	model "novelist/internal/model/story"
)

// mockTextGateway 用于测试的 mock 文本网关
type mockTextGateway struct {
	jsonFunc   func(ctx context.Context, prompt, schema string) (string, error)
	textFunc   func(ctx context.Context, prompt string, params ai.SamplingParams) (string, error)
	streamFunc func(ctx context.Context, prompt, system string, params ai.SamplingParams) (ai.FragmentStream, error)

	lastPrompt string
	lastParams ai.SamplingParams
}

func (m *mockTextGateway) GenerateJSON(ctx context.Context, prompt, schema string) (string, error) {
	m.lastPrompt = prompt
	if m.jsonFunc != nil {
		return m.jsonFunc(ctx, prompt, schema)
	}
	return "", errors.New("mock json function not set")
}

func (m *mockTextGateway) GenerateText(ctx context.Context, prompt string, params ai.SamplingParams) (string, error) {
	m.lastPrompt = prompt
	m.lastParams = params
	if m.textFunc != nil {
		return m.textFunc(ctx, prompt, params)
	}
	return "", errors.New("mock text function not set")
}

func (m *mockTextGateway) GenerateStream(ctx context.Context, prompt, system string, params ai.SamplingParams) (ai.FragmentStream, error) {
	m.lastPrompt = prompt
	m.lastParams = params
	if m.streamFunc != nil {
		return m.streamFunc(ctx, prompt, system, params)
	}
	return nil, errors.New("mock stream function not set")
}

// fakeStream 依次返回 fragments，结束后返回 err（为 nil 时返回 io.EOF）
type fakeStream struct {
	fragments []string
	err       error
	pos       int
	closed    atomic.Bool
	// onRecv 在每次 Recv 前调用，用于在流中途观察文档状态
	onRecv func(pos int)
}

func (s *fakeStream) Recv() (string, error) {
	if s.onRecv != nil {
		s.onRecv(s.pos)
	}
	if s.closed.Load() {
		return "", errors.New("recv on closed stream")
	}
	if s.pos < len(s.fragments) {
		f := s.fragments[s.pos]
		s.pos++
		return f, nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

func (s *fakeStream) Close() {
	s.closed.Store(true)
}

func streamOf(stream *fakeStream) func(context.Context, string, string, ai.SamplingParams) (ai.FragmentStream, error) {
	return func(context.Context, string, string, ai.SamplingParams) (ai.FragmentStream, error) {
		return stream, nil
	}
}

// mockImageGateway 用于测试的 mock 图片网关
type mockImageGateway struct {
	img    []byte
	err    error
	prompt string
}

func (m *mockImageGateway) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	m.prompt = prompt
	return m.img, m.err
}

// outlineJSON 生成包含 n 个章节的大纲 JSON
func outlineJSON(title string, n int) string {
	items := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, fmt.Sprintf(`{"number": %d, "title": "Chương %d: Tiêu đề %d", "summary": "Tóm tắt %d"}`, i, i, i, i))
	}
	return fmt.Sprintf(`{"title": %q, "longDescription": "Văn án", "chapters": [%s]}`, title, strings.Join(items, ","))
}

// newTestDocument 构造 n 个章节的文档，前 generated 个章节已生成
func newTestDocument(n, generated int) *model.StoryDocument {
	doc := &model.StoryDocument{
		SchemaVersion: model.SchemaVersion,
		ID:            model.NewStoryID(),
		StoryConfiguration: model.StoryConfiguration{
			Title:                     "Kiếm Đạo",
			Premise:                   "Một thiếu niên bước lên con đường tu tiên.",
			Genre:                     "Cổ Đại",
			SubGenres:                 []string{"Tu tiên"},
			StoryType:                 model.StoryTypeLong,
			TotalChapters:             n,
			TargetWordCountPerChapter: 1500,
		},
		LongDescription: "Văn án",
	}
	for i := 1; i <= n; i++ {
		ch := model.Chapter{
			Number:             i,
			Title:              fmt.Sprintf("Tiêu đề %d", i),
			Summary:            fmt.Sprintf("Tóm tắt %d", i),
			HasAuthoredSummary: true,
		}
		if i <= generated {
			ch.Complete(fmt.Sprintf("Nội dung chương %d.", i))
		}
		doc.Chapters = append(doc.Chapters, ch)
	}
	return doc
}
