package story

import (
	"errors"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestStoryConfiguration_Validate(t *testing.T) {
	Convey("StoryConfiguration.Validate 校验配置", t, func() {
		valid := func() StoryConfiguration {
			return StoryConfiguration{
				Premise:                   "Một thiếu niên bước lên con đường tu tiên.",
				Genre:                     "Cổ Đại",
				SubGenres:                 []string{"Tu tiên", "Báo thù"},
				StoryType:                 StoryTypeLong,
				TotalChapters:             25,
				TargetWordCountPerChapter: 1500,
			}
		}

		Convey("合法配置通过", func() {
			cfg := valid()
			So(cfg.Validate(), ShouldBeNil)

			short := StoryConfiguration{Premise: "x", Genre: "Idol", StoryType: StoryTypeShort}
			So(short.Validate(), ShouldBeNil)
		})

		Convey("非法配置返回 ErrInvalidConfiguration", func() {
			cases := []struct {
				name   string
				mutate func(*StoryConfiguration)
			}{
				{"未知类型", func(c *StoryConfiguration) { c.Genre = "Sci-fi" }},
				{"标签超过 4 个", func(c *StoryConfiguration) { c.SubGenres = []string{"a", "b", "c", "d", "e"} }},
				{"标签重复", func(c *StoryConfiguration) { c.SubGenres = []string{"a", "a"} }},
				{"构想为空", func(c *StoryConfiguration) { c.Premise = "   " }},
				{"构想超过 500 词", func(c *StoryConfiguration) { c.Premise = strings.Repeat("từ ", 501) }},
				{"长篇章节数为 0", func(c *StoryConfiguration) { c.TotalChapters = 0 }},
				{"长篇每章字数不足", func(c *StoryConfiguration) { c.TargetWordCountPerChapter = 499 }},
				{"短篇带章节数", func(c *StoryConfiguration) { c.StoryType = StoryTypeShort }},
				{"未知篇幅", func(c *StoryConfiguration) { c.StoryType = "medium" }},
			}
			for _, tc := range cases {
				cfg := valid()
				tc.mutate(&cfg)
				err := cfg.Validate()
				if !errors.Is(err, ErrInvalidConfiguration) {
					t.Errorf("%s: got %v, want ErrInvalidConfiguration", tc.name, err)
				}
				So(err, ShouldNotBeNil)
			}
		})

		Convey("正好 500 词可以通过", func() {
			cfg := valid()
			cfg.Premise = strings.Repeat("từ ", 500)
			So(cfg.Validate(), ShouldBeNil)
		})
	})
}

func TestChapter(t *testing.T) {
	Convey("Chapter 正文与生成标记同步变化", t, func() {
		ch := Chapter{Number: 1, Title: "Mở đầu"}
		So(ch.State(), ShouldEqual, ChapterStateNotGenerated)

		ch.Complete("Nội dung")
		So(ch.Generated, ShouldBeTrue)
		So(ch.State(), ShouldEqual, ChapterStateGenerated)

		ch.Reset()
		So(ch.Content, ShouldBeEmpty)
		So(ch.Generated, ShouldBeFalse)

		ch.Complete("")
		So(ch.Generated, ShouldBeFalse)
	})
}

func TestStoryDocument(t *testing.T) {
	Convey("StoryDocument 辅助方法", t, func() {
		doc := &StoryDocument{
			ID:                 NewStoryID(),
			StoryConfiguration: StoryConfiguration{SubGenres: []string{"a"}},
			CoverImage:         []byte{1},
			Chapters:           []Chapter{{Number: 1}, {Number: 2}, {Number: 3}},
		}

		Convey("ID 是合法 UUID 且不重复", func() {
			So(IsValidStoryID(doc.ID), ShouldBeTrue)
			So(IsValidStoryID("not-an-id"), ShouldBeFalse)
			So(NewStoryID(), ShouldNotEqual, doc.ID)
		})

		Convey("NextUngenerated 与 GeneratedCount", func() {
			So(doc.NextUngenerated(), ShouldEqual, 0)
			doc.Chapters[0].Complete("x")
			doc.Chapters[2].Complete("z")
			So(doc.NextUngenerated(), ShouldEqual, 1)
			So(doc.GeneratedCount(), ShouldEqual, 2)
			doc.Chapters[1].Complete("y")
			So(doc.NextUngenerated(), ShouldEqual, -1)
		})

		Convey("Clone 是深拷贝", func() {
			clone := doc.Clone()
			clone.Chapters[0].Complete("x")
			clone.SubGenres[0] = "b"
			clone.CoverImage[0] = 2

			So(doc.Chapters[0].Generated, ShouldBeFalse)
			So(doc.SubGenres[0], ShouldEqual, "a")
			So(doc.CoverImage[0], ShouldEqual, byte(1))
			So((*StoryDocument)(nil).Clone(), ShouldBeNil)
		})
	})
}
