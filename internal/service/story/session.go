package story

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"novelist/internal/ai"
	model "novelist/internal/model/story"
	storyrepo "novelist/internal/repository/story"
)

// Controller 故事会话控制器
// 串联 大纲 -> 封面 -> 组装文档，之后把文档交给 Session；自身不持有任何会话状态
type Controller struct {
	planner *Planner
	writer  *Writer
	images  ai.ImageGateway
	repo    storyrepo.StoryRepository
	premise *PremiseGenerator
	now     func() time.Time
}

// NewController 创建会话控制器
// images 可以为 nil，此时不生成封面
func NewController(
	gateway ai.TextGateway,
	images ai.ImageGateway,
	repo storyrepo.StoryRepository,
	opts Options,
) *Controller {
	return &Controller{
		planner: NewPlanner(gateway, opts),
		writer:  NewWriter(gateway, opts),
		images:  images,
		repo:    repo,
		premise: NewPremiseGenerator(gateway),
		now:     time.Now,
	}
}

// CreateStory 根据配置创建新故事
// 大纲失败直接返回错误，不产生任何文档；封面失败只记录警告
func (c *Controller) CreateStory(ctx context.Context, cfg model.StoryConfiguration) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	outline, err := c.planner.Plan(ctx, &cfg)
	if err != nil {
		log.Error().Err(err).Str("genre", cfg.Genre).Msg("failed to plan outline")
		return nil, err
	}

	cover := c.generateCover(ctx, outline.Title, cfg.Genre, outline.LongDescription)

	now := c.now()
	doc := &model.StoryDocument{
		SchemaVersion:      model.SchemaVersion,
		ID:                 model.NewStoryID(),
		StoryConfiguration: cfg,
		LongDescription:    outline.LongDescription,
		CoverImage:         cover,
		Chapters:           outline.Chapters,
		CreatedAt:          now,
		LastUpdated:        now,
	}
	doc.Title = outline.Title
	doc.SubGenres = append([]string(nil), cfg.SubGenres...)

	log.Info().
		Str("story_id", doc.ID).
		Str("title", doc.Title).
		Int("chapters", len(doc.Chapters)).
		Bool("cover", cover != nil).
		Msg("story created")
	return c.newSession(doc), nil
}

// generateCover 尽力生成封面，失败返回 nil
func (c *Controller) generateCover(ctx context.Context, title, genre, description string) []byte {
	if c.images == nil {
		return nil
	}
	img, err := c.images.GenerateImage(ctx, buildCoverPrompt(genre, description))
	if err != nil {
		log.Warn().Err(fmt.Errorf("%w: %w", ErrCoverGenerationFailed, err)).Str("title", title).Msg("story will have no cover")
		return nil
	}
	if len(img) == 0 {
		log.Warn().Str("title", title).Msg("image gateway returned no cover")
		return nil
	}
	return img
}

// Open 打开已保存的故事
func (c *Controller) Open(ctx context.Context, id string) (*Session, error) {
	if c.repo == nil {
		return nil, fmt.Errorf("%w: no story repository configured", storyrepo.ErrPersistenceFailed)
	}
	doc, err := c.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.newSession(doc), nil
}

// Resume 用内存中的文档创建会话
func (c *Controller) Resume(doc *model.StoryDocument) *Session {
	return c.newSession(doc)
}

// List 列出已保存的故事
func (c *Controller) List(ctx context.Context) ([]*model.StoryDocument, error) {
	if c.repo == nil {
		return nil, fmt.Errorf("%w: no story repository configured", storyrepo.ErrPersistenceFailed)
	}
	return c.repo.List(ctx)
}

// Delete 删除已保存的故事，不存在时视为成功
func (c *Controller) Delete(ctx context.Context, id string) error {
	if c.repo == nil {
		return fmt.Errorf("%w: no story repository configured", storyrepo.ErrPersistenceFailed)
	}
	return c.repo.Delete(ctx, id)
}

// SuggestPremise 根据类型与标签生成故事构想
func (c *Controller) SuggestPremise(ctx context.Context, genre string, subGenres []string) (string, error) {
	return c.premise.Suggest(ctx, genre, subGenres)
}

func (c *Controller) newSession(doc *model.StoryDocument) *Session {
	return &Session{doc: doc, writer: c.writer, repo: c.repo}
}

// Session 一个打开的故事
// 同一时间最多一个章节在生成；生成中不允许切换章节或保存。
// 章节流提交或重置正文时持有 mu，Document / ChapterState 可以在生成过程中并发调用
type Session struct {
	mu     sync.Mutex
	doc    *model.StoryDocument
	writer *Writer
	repo   storyrepo.StoryRepository
	active *ChapterStream
}

// Document 当前文档的快照
func (s *Session) Document() *model.StoryDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// ID 故事ID
func (s *Session) ID() string {
	return s.doc.ID
}

// Generating 是否有章节正在生成
func (s *Session) Generating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}

// WriteChapter 生成（或重新生成）第 index 个章节
func (s *Session) WriteChapter(ctx context.Context, index int) (*ChapterStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		return nil, fmt.Errorf("%w: chapter %d", ErrGenerationInProgress, s.active.ChapterNumber())
	}

	stream, err := s.writer.Write(ctx, s.doc, index)
	if err != nil {
		return nil, err
	}
	s.active = stream
	stream.guardDocument(&s.mu)
	stream.onFinish(func(error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.active == stream {
			s.active = nil
		}
	})
	return stream, nil
}

// ChapterState 第 index 个章节的状态
func (s *Session) ChapterState(index int) (model.ChapterState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.doc.Chapters) {
		return model.ChapterStateNotGenerated, fmt.Errorf("%w: %d", ErrChapterOutOfRange, index)
	}
	if s.active != nil && s.active.Index() == index {
		return model.ChapterStateGenerating, nil
	}
	return s.doc.Chapters[index].State(), nil
}

// NextUngenerated 第一个未生成章节的下标，全部完成时返回 -1
func (s *Session) NextUngenerated() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.NextUngenerated()
}

// Save 保存当前文档
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		return fmt.Errorf("%w: save after chapter %d finishes", ErrGenerationInProgress, s.active.ChapterNumber())
	}
	if s.repo == nil {
		return fmt.Errorf("%w: no story repository configured", storyrepo.ErrPersistenceFailed)
	}
	if err := s.repo.Save(ctx, s.doc); err != nil {
		if errors.Is(err, storyrepo.ErrQuotaExceeded) {
			log.Warn().Str("story_id", s.doc.ID).Msg("story library is full, delete old stories to save")
		}
		return err
	}
	return nil
}
