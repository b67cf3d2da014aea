package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	model "novelist/internal/model/story"
	"novelist/internal/pkg/storage"
)

// ErrNothingToExport 文档没有任何已生成的章节
var ErrNothingToExport = errors.New("story has no generated chapters")

// Result 导出结果
type Result struct {
	MarkdownKey string
	MarkdownURL string
	CoverKey    string // 没有封面时为空
	CoverURL    string
	Chapters    int // 写入的章节数
}

// Exporter 故事导出器
// 把故事渲染为 Markdown，与封面图片一起上传到存储
type Exporter struct {
	storage storage.Storage
}

// NewExporter 创建导出器
func NewExporter(s storage.Storage) *Exporter {
	return &Exporter{storage: s}
}

// Export 导出故事
// 只包含已生成的章节；任一上传失败时删除本次已上传成功的文件
func (e *Exporter) Export(ctx context.Context, doc *model.StoryDocument) (*Result, error) {
	if e.storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if doc == nil || doc.GeneratedCount() == 0 {
		return nil, ErrNothingToExport
	}

	res := &Result{
		MarkdownKey: fmt.Sprintf("stories/%s/story.md", doc.ID),
		Chapters:    doc.GeneratedCount(),
	}
	var coverType string
	if len(doc.CoverImage) > 0 {
		coverType = http.DetectContentType(doc.CoverImage)
		res.CoverKey = fmt.Sprintf("stories/%s/cover%s", doc.ID, imageExt(coverType))
	}

	markdown := RenderMarkdown(doc, coverFileName(res.CoverKey))

	// 各自只写自己的标记，Wait 之后再读
	var markdownUploaded, coverUploaded bool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		url, err := e.storage.Upload(gctx, res.MarkdownKey, strings.NewReader(markdown), "text/markdown; charset=utf-8")
		if err != nil {
			return fmt.Errorf("upload markdown: %w", err)
		}
		res.MarkdownURL = url
		markdownUploaded = true
		return nil
	})
	if res.CoverKey != "" {
		g.Go(func() error {
			url, err := e.storage.Upload(gctx, res.CoverKey, bytes.NewReader(doc.CoverImage), coverType)
			if err != nil {
				return fmt.Errorf("upload cover: %w", err)
			}
			res.CoverURL = url
			coverUploaded = true
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		var uploaded []string
		if markdownUploaded {
			uploaded = append(uploaded, res.MarkdownKey)
		}
		if coverUploaded {
			uploaded = append(uploaded, res.CoverKey)
		}
		e.rollback(uploaded)
		log.Error().Err(err).Str("story_id", doc.ID).Str("storage", e.storage.GetStorageType()).Msg("failed to export story")
		return nil, err
	}

	log.Info().
		Str("story_id", doc.ID).
		Str("storage", e.storage.GetStorageType()).
		Int("chapters", res.Chapters).
		Bool("cover", res.CoverKey != "").
		Msg("story exported")
	return res, nil
}

// rollback 删除本次已上传的文件，使用独立 ctx，避免被取消的 ctx 阻止清理
// 上传失败的 key 不删除，之前导出的同名文件保持原样
func (e *Exporter) rollback(keys []string) {
	ctx := context.Background()
	for _, key := range keys {
		if err := e.storage.Delete(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to clean up export")
		}
	}
}

// RenderMarkdown 渲染 Markdown，coverFile 为空时不插入封面
func RenderMarkdown(doc *model.StoryDocument, coverFile string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", doc.Title)
	if coverFile != "" {
		fmt.Fprintf(&b, "![%s](%s)\n\n", doc.Title, coverFile)
	}

	tags := append([]string{doc.Genre}, doc.SubGenres...)
	fmt.Fprintf(&b, "*%s*\n\n", strings.Join(tags, " · "))

	if doc.LongDescription != "" {
		b.WriteString("## Văn án\n\n")
		b.WriteString(strings.TrimSpace(doc.LongDescription))
		b.WriteString("\n\n")
	}

	for _, ch := range doc.Chapters {
		if !ch.Generated {
			continue
		}
		fmt.Fprintf(&b, "## Chương %d: %s\n\n", ch.Number, ch.Title)
		b.WriteString(strings.TrimSpace(ch.Content))
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func coverFileName(key string) string {
	if key == "" {
		return ""
	}
	return key[strings.LastIndex(key, "/")+1:]
}

func imageExt(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".bin"
	}
}
