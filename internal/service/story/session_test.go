package story

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"novelist/internal/ai"
	model "novelist/internal/model/story"
	storyrepo "novelist/internal/repository/story"
)

func TestController_CreateStory(t *testing.T) {
	Convey("Controller.CreateStory 串联大纲与封面", t, func() {
		ctx := context.Background()
		gw := &mockTextGateway{
			jsonFunc: func(context.Context, string, string) (string, error) {
				return outlineJSON("Kiếm Đạo", 3), nil
			},
		}
		images := &mockImageGateway{img: []byte{0x89, 'P', 'N', 'G'}}
		repo := storyrepo.NewStore(storyrepo.NewMemoryBackend())
		c := NewController(gw, images, repo, DefaultOptions())

		Convey("成功时组装文档", func() {
			session, err := c.CreateStory(ctx, *longConfig(5))
			So(err, ShouldBeNil)

			doc := session.Document()
			So(model.IsValidStoryID(doc.ID), ShouldBeTrue)
			So(doc.SchemaVersion, ShouldEqual, model.SchemaVersion)
			So(doc.Title, ShouldEqual, "Kiếm Đạo")
			So(doc.Genre, ShouldEqual, "Cổ Đại")
			So(doc.Chapters, ShouldHaveLength, 5)
			So(doc.CoverImage, ShouldResemble, images.img)
			So(doc.CreatedAt.IsZero(), ShouldBeFalse)
			So(doc.LastUpdated.Equal(doc.CreatedAt), ShouldBeTrue)
			So(images.prompt, ShouldContainSubstring, "Genre: Cổ Đại")
			So(images.prompt, ShouldContainSubstring, "TEXTLESS")

			Convey("创建后不会自动保存", func() {
				stories, err := repo.List(ctx)
				So(err, ShouldBeNil)
				So(stories, ShouldBeEmpty)
			})
		})

		Convey("每次创建的 ID 都不同", func() {
			s1, err := c.CreateStory(ctx, *shortConfig())
			So(err, ShouldBeNil)
			s2, err := c.CreateStory(ctx, *shortConfig())
			So(err, ShouldBeNil)
			So(s1.ID(), ShouldNotEqual, s2.ID())
		})

		Convey("封面失败不影响创建", func() {
			images.img = nil
			images.err = errors.New("quota exceeded")

			session, err := c.CreateStory(ctx, *shortConfig())
			So(err, ShouldBeNil)
			So(session.Document().CoverImage, ShouldBeNil)
			So(session.Document().Chapters, ShouldHaveLength, 3)
		})

		Convey("没有图片网关时不生成封面", func() {
			c := NewController(gw, nil, repo, DefaultOptions())
			session, err := c.CreateStory(ctx, *shortConfig())
			So(err, ShouldBeNil)
			So(session.Document().CoverImage, ShouldBeNil)
		})

		Convey("大纲失败时不创建文档，也不请求封面", func() {
			gw.jsonFunc = func(context.Context, string, string) (string, error) {
				return "", ai.ErrGatewayUnavailable
			}
			session, err := c.CreateStory(ctx, *shortConfig())
			So(session, ShouldBeNil)
			So(errors.Is(err, ErrOutlinePlanningFailed), ShouldBeTrue)
			So(images.prompt, ShouldBeEmpty)
		})

		Convey("非法配置直接拒绝", func() {
			cfg := *shortConfig()
			cfg.Genre = "Khoa học viễn tưởng"
			_, err := c.CreateStory(ctx, cfg)
			So(errors.Is(err, model.ErrInvalidConfiguration), ShouldBeTrue)
			So(gw.lastPrompt, ShouldBeEmpty)
		})
	})
}

func TestSession(t *testing.T) {
	Convey("Session 管理当前文档", t, func() {
		ctx := context.Background()
		src := &fakeStream{fragments: []string{"Một", " hai"}}
		gw := &mockTextGateway{streamFunc: streamOf(src)}
		repo := storyrepo.NewStore(storyrepo.NewMemoryBackend())
		c := NewController(gw, nil, repo, DefaultOptions())
		session := c.Resume(newTestDocument(3, 1))

		Convey("同一时间只允许一个章节生成", func() {
			stream, err := session.WriteChapter(ctx, 1)
			So(err, ShouldBeNil)
			So(session.Generating(), ShouldBeTrue)

			state, err := session.ChapterState(1)
			So(err, ShouldBeNil)
			So(state, ShouldEqual, model.ChapterStateGenerating)

			_, err = session.WriteChapter(ctx, 2)
			So(errors.Is(err, ErrGenerationInProgress), ShouldBeTrue)
			So(errors.Is(session.Save(ctx), ErrGenerationInProgress), ShouldBeTrue)

			So(stream.ForEach(nil), ShouldBeNil)
			So(session.Generating(), ShouldBeFalse)

			state, err = session.ChapterState(1)
			So(err, ShouldBeNil)
			So(state, ShouldEqual, model.ChapterStateGenerated)
			So(session.Document().Chapters[1].Content, ShouldEqual, "Một hai")
			So(session.NextUngenerated(), ShouldEqual, 2)
		})

		Convey("生成过程中可以并发读取文档", func() {
			src.fragments = []string{"Mưa", " rơi", " trên", " mái", " ngói."}
			src.onRecv = func(int) { time.Sleep(5 * time.Millisecond) }
			stream, err := session.WriteChapter(ctx, 1)
			So(err, ShouldBeNil)

			stop := make(chan struct{})
			polled := make(chan []model.ChapterState, 1)
			go func() {
				var seen []model.ChapterState
				for {
					doc := session.Document()
					_ = doc.Chapters[1].Content
					state, _ := session.ChapterState(1)
					seen = append(seen, state)
					_ = session.Generating()

					select {
					case <-stop:
						polled <- seen
						return
					default:
					}
				}
			}()

			So(stream.ForEach(nil), ShouldBeNil)
			close(stop)
			seen := <-polled

			So(seen, ShouldNotBeEmpty)
			unexpected := 0
			for _, state := range seen {
				if state != model.ChapterStateGenerating && state != model.ChapterStateGenerated {
					unexpected++
				}
			}
			So(unexpected, ShouldEqual, 0)
			So(session.Document().Chapters[1].Content, ShouldEqual, "Mưa rơi trên mái ngói.")
			So(stream.State(), ShouldEqual, model.ChapterStateGenerated)
		})

		Convey("从其它 goroutine 取消时文档保持重置", func() {
			src.fragments = []string{"Một", " hai", " ba", " bốn"}
			started := make(chan struct{})
			cancelled := make(chan struct{})
			src.onRecv = func(pos int) {
				if pos == 2 {
					close(started)
					<-cancelled
				}
			}
			stream, err := session.WriteChapter(ctx, 1)
			So(err, ShouldBeNil)

			go func() {
				<-started
				stream.Close()
				close(cancelled)
			}()

			err = stream.ForEach(nil)
			So(errors.Is(err, ErrStreamCancelled), ShouldBeTrue)
			So(stream.State(), ShouldEqual, model.ChapterStateNotGenerated)
			So(session.Generating(), ShouldBeFalse)
			So(session.Document().Chapters[1].Generated, ShouldBeFalse)
			So(session.Document().Chapters[1].Content, ShouldBeEmpty)
		})

		Convey("流失败后可以重新生成", func() {
			src.err = errors.New("boom")
			src.fragments = nil
			stream, err := session.WriteChapter(ctx, 1)
			So(err, ShouldBeNil)
			So(errors.Is(stream.ForEach(nil), ErrChapterStreamFailed), ShouldBeTrue)
			So(session.Generating(), ShouldBeFalse)

			state, _ := session.ChapterState(1)
			So(state, ShouldEqual, model.ChapterStateNotGenerated)

			gw.streamFunc = streamOf(&fakeStream{fragments: []string{"Lần hai"}})
			stream, err = session.WriteChapter(ctx, 1)
			So(err, ShouldBeNil)
			So(stream.ForEach(nil), ShouldBeNil)
			So(session.Document().Chapters[1].Content, ShouldEqual, "Lần hai")
		})

		Convey("越界章节返回错误", func() {
			_, err := session.ChapterState(3)
			So(errors.Is(err, ErrChapterOutOfRange), ShouldBeTrue)
			_, err = session.WriteChapter(ctx, -1)
			So(errors.Is(err, ErrChapterOutOfRange), ShouldBeTrue)
			So(session.Generating(), ShouldBeFalse)
		})

		Convey("保存后可以重新打开", func() {
			So(session.Save(ctx), ShouldBeNil)

			reopened, err := c.Open(ctx, session.ID())
			So(err, ShouldBeNil)
			So(reopened.Document().Chapters, ShouldHaveLength, 3)
			So(reopened.Document().Chapters[0].Generated, ShouldBeTrue)
			So(reopened.Document().LastUpdated.Equal(session.Document().LastUpdated), ShouldBeTrue)

			stories, err := c.List(ctx)
			So(err, ShouldBeNil)
			So(stories, ShouldHaveLength, 1)

			So(c.Delete(ctx, session.ID()), ShouldBeNil)
			_, err = c.Open(ctx, session.ID())
			So(errors.Is(err, storyrepo.ErrStoryNotFound), ShouldBeTrue)
		})

		Convey("快照不受后续修改影响", func() {
			snapshot := session.Document()
			snapshot.Chapters[0].Reset()
			So(session.Document().Chapters[0].Generated, ShouldBeTrue)
		})
	})
}
