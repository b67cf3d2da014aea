package story

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"novelist/internal/ai"
	model "novelist/internal/model/story"
)

// ChapterStream 单个章节的生成流
//
// Recv 按模型输出顺序返回片段；读到 io.EOF 时拼接好的正文写回章节并标记为已生成。
// 出错、ctx 取消或提前 Close 时已缓冲的内容被丢弃，章节保持未生成。
// Recv 只能在一个 goroutine 中调用，Close 可以从其它 goroutine 调用。
// 对文档的写入都在 docLock 下进行，Session 会换成自己的锁。
type ChapterStream struct {
	ctx     context.Context
	doc     *model.StoryDocument
	index   int
	number  int
	src     ai.FragmentStream
	now     func() time.Time
	docLock sync.Locker

	mu        sync.Mutex
	buf       strings.Builder
	fragments int
	finished  bool
	err       error
	onDone    []func(error)
}

func newChapterStream(ctx context.Context, doc *model.StoryDocument, index int, src ai.FragmentStream, now func() time.Time) *ChapterStream {
	return &ChapterStream{
		ctx:     ctx,
		doc:     doc,
		index:   index,
		number:  doc.Chapters[index].Number,
		src:     src,
		now:     now,
		docLock: &sync.Mutex{},
	}
}

// guardDocument 指定写文档时持有的锁，必须在第一次 Recv 之前调用
func (s *ChapterStream) guardDocument(l sync.Locker) {
	s.docLock = l
}

// ChapterNumber 正在生成的章节号
func (s *ChapterStream) ChapterNumber() int {
	return s.number
}

// Index 正在生成的章节下标
func (s *ChapterStream) Index() int {
	return s.index
}

// Recv 读取下一个片段
// 正常结束返回 io.EOF；其它错误均已包装为 ErrChapterStreamFailed 或 ErrStreamCancelled
func (s *ChapterStream) Recv() (string, error) {
	s.mu.Lock()
	if s.finished {
		err := s.err
		s.mu.Unlock()
		return "", err
	}
	s.mu.Unlock()

	if err := s.ctx.Err(); err != nil {
		return "", s.fail(fmt.Errorf("%w: %w", ErrStreamCancelled, err))
	}

	fragment, err := s.src.Recv()

	s.mu.Lock()
	if s.finished {
		// Close 在 Recv 阻塞期间被调用
		err := s.err
		s.mu.Unlock()
		return "", err
	}
	s.mu.Unlock()

	if errors.Is(err, io.EOF) {
		return "", s.commit()
	}
	if err != nil {
		if ctxErr := s.ctx.Err(); ctxErr != nil {
			return "", s.fail(fmt.Errorf("%w: %w", ErrStreamCancelled, ctxErr))
		}
		return "", s.fail(fmt.Errorf("%w: chapter %d: %w", ErrChapterStreamFailed, s.ChapterNumber(), err))
	}

	s.mu.Lock()
	s.buf.WriteString(fragment)
	s.fragments++
	s.mu.Unlock()
	return fragment, nil
}

// Close 释放底层流
// 在正常结束之前调用视为取消，章节保持未生成
func (s *ChapterStream) Close() {
	s.mu.Lock()
	finished := s.finished
	s.mu.Unlock()
	if finished {
		return
	}
	s.fail(ErrStreamCancelled)
}

// ForEach 依次读取所有片段直到结束
// fn 返回错误时流被取消，该错误原样返回；正常结束返回 nil
func (s *ChapterStream) ForEach(fn func(fragment string) error) error {
	for {
		fragment, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if fn == nil {
			continue
		}
		if err := fn(fragment); err != nil {
			s.Close()
			return err
		}
	}
}

// Partial 到目前为止收到的内容（仅用于展示，不会写回文档）
func (s *ChapterStream) Partial() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

// State 流视角下的章节状态
func (s *ChapterStream) State() model.ChapterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case !s.finished:
		return model.ChapterStateGenerating
	case errors.Is(s.err, io.EOF):
		return model.ChapterStateGenerated
	default:
		return model.ChapterStateNotGenerated
	}
}

// Err 流结束的原因，进行中或正常结束时返回 nil
func (s *ChapterStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if errors.Is(s.err, io.EOF) {
		return nil
	}
	return s.err
}

// Done 是否已结束（成功、失败或取消）
func (s *ChapterStream) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// onFinish 注册结束回调，回调参数为 nil 表示成功
func (s *ChapterStream) onFinish(fn func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDone = append(s.onDone, fn)
}

func (s *ChapterStream) commit() error {
	s.mu.Lock()
	if s.finished {
		err := s.err
		s.mu.Unlock()
		return err
	}
	content := s.buf.String()
	if strings.TrimSpace(content) == "" {
		s.mu.Unlock()
		return s.fail(fmt.Errorf("%w: chapter %d: %w", ErrChapterStreamFailed, s.ChapterNumber(), ErrEmptyChapter))
	}

	s.finished = true
	s.err = io.EOF
	callbacks := s.onDone
	s.mu.Unlock()

	s.docLock.Lock()
	s.doc.Chapters[s.index].Complete(content)
	s.doc.LastUpdated = s.now()
	s.docLock.Unlock()

	s.src.Close()
	log.Info().
		Str("story_id", s.doc.ID).
		Int("chapter", s.ChapterNumber()).
		Int("fragments", s.fragments).
		Int("chars", len([]rune(content))).
		Msg("chapter generated")

	for _, fn := range callbacks {
		fn(nil)
	}
	return io.EOF
}

func (s *ChapterStream) fail(err error) error {
	s.mu.Lock()
	if s.finished {
		prev := s.err
		s.mu.Unlock()
		return prev
	}
	s.buf.Reset()
	s.finished = true
	s.err = err
	callbacks := s.onDone
	s.mu.Unlock()

	s.docLock.Lock()
	s.doc.Chapters[s.index].Reset()
	s.docLock.Unlock()

	s.src.Close()
	if errors.Is(err, ErrStreamCancelled) {
		log.Warn().Err(err).Str("story_id", s.doc.ID).Int("chapter", s.ChapterNumber()).Msg("chapter stream cancelled")
	} else {
		log.Error().Err(err).Str("story_id", s.doc.ID).Int("chapter", s.ChapterNumber()).Msg("chapter stream failed")
	}

	for _, fn := range callbacks {
		fn(err)
	}
	return err
}
