package story

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "novelist/internal/model/story"
)

// countingBackend 记录写入次数，可注入写入失败
type countingBackend struct {
	*MemoryBackend
	writes   int
	storeErr error
}

func (b *countingBackend) Store(ctx context.Context, data []byte) error {
	if b.storeErr != nil {
		return b.storeErr
	}
	b.writes++
	return b.MemoryBackend.Store(ctx, data)
}

// fakeClock 每次调用前进一秒
func fakeClock() func() time.Time {
	t := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newDoc(title string, chapters int) *model.StoryDocument {
	doc := &model.StoryDocument{
		ID: model.NewStoryID(),
		StoryConfiguration: model.StoryConfiguration{
			Title:     title,
			Premise:   "premise",
			Genre:     "Cổ Đại",
			StoryType: model.StoryTypeShort,
		},
		CoverImage: []byte{1, 2, 3},
	}
	for i := 1; i <= chapters; i++ {
		doc.Chapters = append(doc.Chapters, model.Chapter{Number: i, Title: fmt.Sprintf("c%d", i), HasAuthoredSummary: true})
	}
	return doc
}

func ids(docs []*model.StoryDocument) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID)
	}
	return out
}

func TestStore_SaveOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryBackend(), WithClock(fakeClock()))

	a, b, c := newDoc("a", 1), newDoc("b", 1), newDoc("c", 1)
	require.NoError(t, store.Save(ctx, a))
	require.NoError(t, store.Save(ctx, b))
	require.NoError(t, store.Save(ctx, c))

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID, b.ID, a.ID}, ids(list), "new stories go to the front")

	// 更新已存在的故事保持原位置
	a.Chapters[0].Complete("text")
	require.NoError(t, store.Save(ctx, a))

	list, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID, b.ID, a.ID}, ids(list))
	assert.True(t, list[2].Chapters[0].Generated)
	assert.Equal(t, "text", list[2].Chapters[0].Content)
}

func TestStore_SaveIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryBackend(), WithClock(fakeClock()))
	doc := newDoc("a", 2)

	require.NoError(t, store.Save(ctx, doc))
	first, err := store.List(ctx)
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, doc))
	second, err := store.List(ctx)
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.True(t, second[0].LastUpdated.After(first[0].LastUpdated))
	assert.True(t, doc.LastUpdated.Equal(second[0].LastUpdated), "caller's document is stamped too")

	first[0].LastUpdated = second[0].LastUpdated
	assert.Equal(t, first[0], second[0])
	assert.Equal(t, model.SchemaVersion, second[0].SchemaVersion)
}

func TestStore_SaveIsSnapshot(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryBackend())
	doc := newDoc("a", 1)
	require.NoError(t, store.Save(ctx, doc))

	doc.Chapters[0].Complete("changed after save")
	doc.CoverImage[0] = 9

	got, err := store.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.False(t, got.Chapters[0].Generated)
	assert.Equal(t, []byte{1, 2, 3}, got.CoverImage)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	backend := &countingBackend{MemoryBackend: NewMemoryBackend()}
	store := NewStore(backend)

	a, b := newDoc("a", 1), newDoc("b", 1)
	require.NoError(t, store.Save(ctx, a))
	require.NoError(t, store.Save(ctx, b))
	writes := backend.writes

	t.Run("nonexistent id is a no-op", func(t *testing.T) {
		before, err := store.List(ctx)
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, model.NewStoryID()))

		after, err := store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after)
		assert.Equal(t, writes, backend.writes, "no write for a missing id")
	})

	t.Run("existing id is removed", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, a.ID))

		list, err := store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{b.ID}, ids(list))

		_, err = store.Get(ctx, a.ID)
		assert.ErrorIs(t, err, ErrStoryNotFound)
	})
}

func TestStore_QuotaExceeded(t *testing.T) {
	ctx := context.Background()
	backend := &countingBackend{MemoryBackend: NewMemoryBackend()}
	store := NewStore(backend, WithMaxBytes(2048))

	small := newDoc("small", 1)
	require.NoError(t, store.Save(ctx, small))
	before, err := backend.Load(ctx)
	require.NoError(t, err)

	big := newDoc("big", 1)
	big.CoverImage = make([]byte, 4096)
	err = store.Save(ctx, big)
	assert.ErrorIs(t, err, ErrPersistenceFailed)
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	after, err := backend.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after, "persisted collection is untouched")
	assert.True(t, big.LastUpdated.IsZero(), "caller's document is not stamped on failure")

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{small.ID}, ids(list))
}

func TestStore_BackendFailure(t *testing.T) {
	ctx := context.Background()
	backend := &countingBackend{MemoryBackend: NewMemoryBackend()}
	store := NewStore(backend)

	doc := newDoc("a", 1)
	require.NoError(t, store.Save(ctx, doc))

	backend.storeErr = errors.New("disk full")
	err := store.Save(ctx, newDoc("b", 1))
	assert.ErrorIs(t, err, ErrPersistenceFailed)
	err = store.Delete(ctx, doc.ID)
	assert.ErrorIs(t, err, ErrPersistenceFailed)

	backend.storeErr = nil
	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{doc.ID}, ids(list))
}

func TestStore_CorruptCollection(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	require.NoError(t, backend.Store(ctx, []byte("{not json")))
	store := NewStore(backend)

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	// 不覆盖无法解析的数据
	err = store.Save(ctx, newDoc("a", 1))
	assert.ErrorIs(t, err, ErrPersistenceFailed)
	data, err := backend.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data))
}

func TestStore_InvalidDocument(t *testing.T) {
	store := NewStore(NewMemoryBackend())
	assert.ErrorIs(t, store.Save(context.Background(), nil), ErrPersistenceFailed)
	assert.ErrorIs(t, store.Save(context.Background(), &model.StoryDocument{}), ErrPersistenceFailed)
}

func TestFileBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "stories.json")

	backend, err := NewFileBackend(path)
	require.NoError(t, err)
	assert.Equal(t, path, backend.Path())

	data, err := backend.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, data, "missing file reads as empty")

	store := NewStore(backend)
	doc := newDoc("Kiếm Đạo", 2)
	doc.Chapters[0].Complete("Chương một.")
	require.NoError(t, store.Save(ctx, doc))

	// 新实例读取同一文件
	reopened, err := NewFileBackend(path)
	require.NoError(t, err)
	got, err := NewStore(reopened).Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kiếm Đạo", got.Title)
	assert.Equal(t, "Chương một.", got.Chapters[0].Content)
	assert.True(t, got.Chapters[0].Generated)
	assert.Equal(t, doc.CoverImage, got.CoverImage)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files are cleaned up")
	assert.Equal(t, "stories.json", entries[0].Name())
}
