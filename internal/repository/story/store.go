package story

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	model "novelist/internal/model/story"
)

const (
	// CollectionKey 故事库在后端中的键
	CollectionKey = "ai_novelist_stories_v1"
	// DefaultMaxBytes 默认容量上限（与浏览器 localStorage 一致）
	DefaultMaxBytes = 5 << 20
)

var (
	// ErrPersistenceFailed 保存或删除未能完成，已持久化的数据保持不变
	ErrPersistenceFailed = errors.New("persistence failed")
	// ErrQuotaExceeded 序列化后的故事库超过容量上限
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	// ErrStoryNotFound 故事不存在
	ErrStoryNotFound = errors.New("story not found")
)

// Backend 故事库的底层存储
// 整个故事库作为一个值读写；Load 在尚无数据时返回 (nil, nil)
type Backend interface {
	Load(ctx context.Context) ([]byte, error)
	Store(ctx context.Context, data []byte) error
}

// StoryRepository 故事仓库接口（供 service 层依赖）
type StoryRepository interface {
	Save(ctx context.Context, doc *model.StoryDocument) error
	List(ctx context.Context) ([]*model.StoryDocument, error)
	Get(ctx context.Context, id string) (*model.StoryDocument, error)
	Delete(ctx context.Context, id string) error
}

// Store 故事仓库实现
//
// 每次调用都是一次完整的 读取-修改-写入，最终只有一次后端写入，
// 因此单次调用要么全部生效，要么不生效。
type Store struct {
	backend  Backend
	maxBytes int
	now      func() time.Time

	mu sync.Mutex
}

// Option Store 选项
type Option func(*Store)

// WithMaxBytes 设置容量上限，<=0 表示不限制
func WithMaxBytes(n int) Option {
	return func(s *Store) { s.maxBytes = n }
}

// WithClock 设置时钟（测试用）
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore 创建故事仓库
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		maxBytes: DefaultMaxBytes,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save 保存故事
// 已存在的 id 原位替换，新 id 插入到最前面；成功后 doc.LastUpdated 更新为当前时间
func (s *Store) Save(ctx context.Context, doc *model.StoryDocument) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("%w: story id is required", ErrPersistenceFailed)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stories, err := s.load(ctx)
	if err != nil {
		return err
	}

	record := doc.Clone()
	record.LastUpdated = s.now()
	if record.SchemaVersion == 0 {
		record.SchemaVersion = model.SchemaVersion
	}

	replaced := false
	for i := range stories {
		if stories[i].ID == record.ID {
			stories[i] = record
			replaced = true
			break
		}
	}
	if !replaced {
		stories = append([]*model.StoryDocument{record}, stories...)
	}

	if err := s.write(ctx, stories); err != nil {
		log.Error().Err(err).Str("story_id", record.ID).Msg("failed to save story")
		return err
	}

	doc.LastUpdated = record.LastUpdated
	doc.SchemaVersion = record.SchemaVersion
	log.Debug().Str("story_id", record.ID).Bool("replaced", replaced).Int("stories", len(stories)).Msg("story saved")
	return nil
}

// List 返回故事库快照
// 数据损坏时返回空列表并记录警告
func (s *Store) List(ctx context.Context) ([]*model.StoryDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stories, err := s.load(ctx)
	if errors.Is(err, errCorrupt) {
		return []*model.StoryDocument{}, nil
	}
	return stories, err
}

// Get 根据ID查询
func (s *Store) Get(ctx context.Context, id string) (*model.StoryDocument, error) {
	stories, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, doc := range stories {
		if doc.ID == id {
			return doc, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrStoryNotFound, id)
}

// Delete 删除故事，id 不存在时不做任何写入
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stories, err := s.load(ctx)
	if err != nil {
		return err
	}

	kept := stories[:0:0]
	for _, doc := range stories {
		if doc.ID != id {
			kept = append(kept, doc)
		}
	}
	if len(kept) == len(stories) {
		return nil
	}

	if err := s.write(ctx, kept); err != nil {
		log.Error().Err(err).Str("story_id", id).Msg("failed to delete story")
		return err
	}
	log.Debug().Str("story_id", id).Msg("story deleted")
	return nil
}

// errCorrupt 已持久化的数据无法解析；List 视为空库，Save/Delete 拒绝覆盖
var errCorrupt = errors.New("corrupt story collection")

func (s *Store) load(ctx context.Context) ([]*model.StoryDocument, error) {
	data, err := s.backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load: %w", ErrPersistenceFailed, err)
	}
	if len(data) == 0 {
		return []*model.StoryDocument{}, nil
	}

	var stories []*model.StoryDocument
	if err := json.Unmarshal(data, &stories); err != nil {
		log.Warn().Err(err).Int("bytes", len(data)).Msg("story collection is corrupt, treating as empty")
		return []*model.StoryDocument{}, fmt.Errorf("%w: %w: %w", ErrPersistenceFailed, errCorrupt, err)
	}
	out := stories[:0]
	for _, doc := range stories {
		if doc != nil {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (s *Store) write(ctx context.Context, stories []*model.StoryDocument) error {
	data, err := json.Marshal(stories)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrPersistenceFailed, err)
	}
	if s.maxBytes > 0 && len(data) > s.maxBytes {
		return fmt.Errorf("%w: %w: %d bytes, limit %d", ErrPersistenceFailed, ErrQuotaExceeded, len(data), s.maxBytes)
	}
	if err := s.backend.Store(ctx, data); err != nil {
		return fmt.Errorf("%w: store: %w", ErrPersistenceFailed, err)
	}
	return nil
}
