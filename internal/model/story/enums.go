package story

// StoryType 故事篇幅类型
type StoryType string

const (
	StoryTypeShort StoryType = "short" // 短篇：章节数由模型自行决定
	StoryTypeLong  StoryType = "long"  // 长篇：固定总章节数与每章目标字数
)

// String 返回类型的字符串表示
func (t StoryType) String() string {
	return string(t)
}

// ChapterState 章节生成状态
type ChapterState string

const (
	ChapterStateNotGenerated ChapterState = "not_generated" // 未生成
	ChapterStateGenerating   ChapterState = "generating"    // 生成中（流式输出中）
	ChapterStateGenerated    ChapterState = "generated"     // 已生成
)

// String 返回状态的字符串表示
func (s ChapterState) String() string {
	return string(s)
}

// Genres 主类型枚举，顺序与选择界面一致
var Genres = []string{
	"Thanh Xuân",
	"Cổ Đại",
	"Hôn Nhân",
	"Nữ Cường",
	"Tình Yêu Đô Thị",
	"Ngôn tình huyền huyễn",
	"Xuyên nhanh Xuyên sách",
	"Kinh dị giật gân",
	"LGBTQ",
	"Văn học nổi tiếng",
	"Truyện Nam",
	"Idol",
	"Anime",
}

// IsValidGenre 判断是否为受支持的主类型
func IsValidGenre(genre string) bool {
	for _, g := range Genres {
		if g == genre {
			return true
		}
	}
	return false
}

const (
	MaxSubGenres             = 4   // 子类型标签上限
	MaxPremiseWords          = 500 // 故事构想字数上限
	MinTargetWordsPerChapter = 500 // 长篇每章最少目标字数
)
