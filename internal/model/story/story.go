package story

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion 持久化文档的结构版本，用于后续迁移
const SchemaVersion = 1

// ErrInvalidConfiguration 故事配置不合法
var ErrInvalidConfiguration = errors.New("invalid story configuration")

// StoryConfiguration 用户提交的故事配置（提交后不可变）
type StoryConfiguration struct {
	Title     string    `json:"title"`      // 可选，为空时由模型起名
	Premise   string    `json:"premise"`    // 故事构想
	Genre     string    `json:"genre"`      // 主类型，取值见 Genres
	SubGenres []string  `json:"sub_genres"` // 子类型标签，0-4 个，保持顺序
	StoryType StoryType `json:"story_type"`

	// 仅长篇有效
	TotalChapters             int `json:"total_chapters,omitempty"`
	TargetWordCountPerChapter int `json:"target_word_count_per_chapter,omitempty"`
}

// Validate 校验配置
// Planner 信任校验后的配置，不再重复检查
func (c *StoryConfiguration) Validate() error {
	if !IsValidGenre(c.Genre) {
		return fmt.Errorf("%w: unknown genre %q", ErrInvalidConfiguration, c.Genre)
	}
	if len(c.SubGenres) > MaxSubGenres {
		return fmt.Errorf("%w: at most %d sub-genres, got %d", ErrInvalidConfiguration, MaxSubGenres, len(c.SubGenres))
	}
	seen := make(map[string]struct{}, len(c.SubGenres))
	for _, tag := range c.SubGenres {
		if _, ok := seen[tag]; ok {
			return fmt.Errorf("%w: duplicate sub-genre %q", ErrInvalidConfiguration, tag)
		}
		seen[tag] = struct{}{}
	}
	if strings.TrimSpace(c.Premise) == "" {
		return fmt.Errorf("%w: premise is required", ErrInvalidConfiguration)
	}
	if n := len(strings.Fields(c.Premise)); n > MaxPremiseWords {
		return fmt.Errorf("%w: premise has %d words, limit is %d", ErrInvalidConfiguration, n, MaxPremiseWords)
	}

	switch c.StoryType {
	case StoryTypeShort:
		if c.TotalChapters != 0 || c.TargetWordCountPerChapter != 0 {
			return fmt.Errorf("%w: short stories carry no chapter count or word target", ErrInvalidConfiguration)
		}
	case StoryTypeLong:
		if c.TotalChapters < 1 {
			return fmt.Errorf("%w: total_chapters must be >= 1", ErrInvalidConfiguration)
		}
		if c.TargetWordCountPerChapter < MinTargetWordsPerChapter {
			return fmt.Errorf("%w: target_word_count_per_chapter must be >= %d", ErrInvalidConfiguration, MinTargetWordsPerChapter)
		}
	default:
		return fmt.Errorf("%w: unknown story type %q", ErrInvalidConfiguration, c.StoryType)
	}
	return nil
}

// Chapter 章节
// 不变量：Content 非空 <=> Generated 为 true
type Chapter struct {
	Number  int    `json:"chapter_number"` // 从1开始连续编号，以本地编号为准
	Title   string `json:"title"`
	Summary string `json:"summary"`

	// HasAuthoredSummary 为 false 表示补位章节，没有模型给出的梗概
	HasAuthoredSummary bool `json:"has_authored_summary"`

	Content   string `json:"content"`
	Generated bool   `json:"is_generated"`
}

// Reset 清空正文并标记为未生成
func (c *Chapter) Reset() {
	c.Content = ""
	c.Generated = false
}

// Complete 写入完整正文并标记为已生成
func (c *Chapter) Complete(content string) {
	c.Content = content
	c.Generated = content != ""
}

// State 返回持久化视角下的章节状态
func (c *Chapter) State() ChapterState {
	if c.Generated {
		return ChapterStateGenerated
	}
	return ChapterStateNotGenerated
}

// StoryDocument 故事文档（会话与持久化共用）
type StoryDocument struct {
	SchemaVersion int    `json:"schema_version"`
	ID            string `json:"id"`

	StoryConfiguration

	LongDescription string    `json:"long_description"`
	CoverImage      []byte    `json:"cover_image,omitempty"`
	Chapters        []Chapter `json:"chapters"`

	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}

// NewStoryID 生成新的故事ID（UUID）
func NewStoryID() string {
	return uuid.New().String()
}

// IsValidStoryID 验证故事ID格式
func IsValidStoryID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Clone 深拷贝文档，避免持久化快照与会话中的文档互相影响
func (d *StoryDocument) Clone() *StoryDocument {
	if d == nil {
		return nil
	}
	out := *d
	if d.SubGenres != nil {
		out.SubGenres = append([]string(nil), d.SubGenres...)
	}
	if d.CoverImage != nil {
		out.CoverImage = append([]byte(nil), d.CoverImage...)
	}
	if d.Chapters != nil {
		out.Chapters = append([]Chapter(nil), d.Chapters...)
	}
	return &out
}

// NextUngenerated 返回第一个未生成章节的下标，全部生成时返回 -1
func (d *StoryDocument) NextUngenerated() int {
	for i := range d.Chapters {
		if !d.Chapters[i].Generated {
			return i
		}
	}
	return -1
}

// GeneratedCount 已生成章节数
func (d *StoryDocument) GeneratedCount() int {
	n := 0
	for i := range d.Chapters {
		if d.Chapters[i].Generated {
			n++
		}
	}
	return n
}
