package story

import (
	"fmt"
	"strings"

	model "novelist/internal/model/story"
)

// OutlineSchema 大纲 JSON schema，字段名固定
const OutlineSchema = `{
  "type": "object",
  "properties": {
    "title": {"type": "string"},
    "longDescription": {"type": "string", "description": "Văn án giới thiệu truyện khoảng 215 từ"},
    "chapters": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "number": {"type": "integer"},
          "title": {"type": "string"},
          "summary": {"type": "string"}
        },
        "required": ["number", "title", "summary"]
      }
    }
  },
  "required": ["title", "longDescription", "chapters"]
}`

// chapterSystemInstruction 章节写作的系统指令
const chapterSystemInstruction = `// --- ĐỊNH DANH ---
Bạn là một tiểu thuyết gia đại tài.

// --- NGUYÊN TẮC ---
1. SHOW, DON'T TELL.
2. DEEP POV (Góc nhìn sâu).
3. BỐI CẢNH ĐA GIÁC QUAN.
4. KHÔNG chào hỏi, KHÔNG mở bài thừa thãi. Vào thẳng nội dung truyện.`

const (
	// PlaceholderSummary 补位章节的梗概文本（仅用于展示，判断以 HasAuthoredSummary 为准）
	PlaceholderSummary = "Nội dung sẽ được sáng tạo tiếp nối các chương trước một cách logic."
	// UntitledStory 模型与用户都未提供书名时的占位书名
	UntitledStory = "Vô Đề"

	openingChapterNote = "Đây là chương mở đầu."
	noTagsLabel        = "Không có"
)

// SynthesizedTitle 章节标题为空时使用的标题
func SynthesizedTitle(number int) string {
	return fmt.Sprintf("Chương %d", number)
}

// buildOutlinePrompt 构建大纲提示词
func buildOutlinePrompt(cfg *model.StoryConfiguration, outlineLimit int) string {
	tags := noTagsLabel
	if len(cfg.SubGenres) > 0 {
		tags = strings.Join(cfg.SubGenres, ", ")
	}

	titleInstruction := fmt.Sprintf("Tên truyện: CHƯA CÓ. Hãy SÁNG TẠO MỘT TÊN TRUYỆN thật hay, \"kêu\", độc lạ, chuẩn phong cách %s.", cfg.Genre)
	if strings.TrimSpace(cfg.Title) != "" {
		titleInstruction = "Tên truyện mong muốn: " + cfg.Title
	}

	var length string
	if cfg.StoryType == model.StoryTypeLong {
		length = fmt.Sprintf(`- Đây là TRUYỆN DÀI (Tiểu thuyết dài kỳ).
- Tổng số chương dự kiến: %d.
- QUAN TRỌNG: Nếu tổng số chương > %d, bạn CHỈ CẦN lập dàn ý chi tiết cho %d chương đầu tiên.
- TUYỆT ĐỐI KHÔNG GỘP CHƯƠNG (Ví dụ: CẤM viết "Chương 4-10"). Phải tách riêng từng chương một.
- Độ dài mục tiêu mỗi chương: %d từ.`,
			cfg.TotalChapters, outlineLimit, outlineLimit, cfg.TargetWordCountPerChapter)
	} else {
		length = `- Đây là TRUYỆN NGẮN. Bạn có toàn quyền quyết định số lượng chương.
- Hãy tự ước lượng số chương sao cho phù hợp với cốt truyện (thường từ 2 đến 10 chương).`
	}

	var b strings.Builder
	b.WriteString("Bạn là một tiểu thuyết gia đại tài và biên tập viên cấp cao.\n\n")
	b.WriteString("THÔNG TIN ĐẦU VÀO:\n")
	b.WriteString(titleInstruction + "\n")
	fmt.Fprintf(&b, "- Thể loại chính: %s\n", cfg.Genre)
	fmt.Fprintf(&b, "- Phân loại chi tiết / Tags: %s (QUAN TRỌNG: Hãy lồng ghép các yếu tố này vào cốt truyện, không chỉ gắn nhãn)\n", tags)
	fmt.Fprintf(&b, "- Ý tưởng ban đầu: %s\n\n", cfg.Premise)
	b.WriteString("CẤU TRÚC TRUYỆN:\n")
	b.WriteString(length + "\n\n")
	b.WriteString(`YÊU CẦU OUTPUT:
1. title: Đặt tên truyện ấn tượng (nếu chưa có).
2. longDescription: Viết văn án giới thiệu truyện. Ngắn gọn, súc tích, gây tò mò, độ dài KHOẢNG 215 TỪ.
3. chapters: Lập dàn ý chi tiết các chương (number, title, summary). Cấu trúc chương phải có cao trào, thắt nút mở nút hợp lý.

Trả về JSON theo schema.`)
	return b.String()
}

// buildCoverPrompt 构建封面提示词，禁止图片中出现文字
func buildCoverPrompt(genre, description string) string {
	return fmt.Sprintf(`Do not render any text, title or words on the image.
Novel book cover art.
Genre: %s.
Theme/Mood: %s.
Style: High quality digital illustration, cinematic lighting, detailed background, masterpiece, 8k.
IMPORTANT: COMPLETELY TEXTLESS. NO WORDS, NO TITLE, NO TYPOGRAPHY ON THE IMAGE.`, genre, headRunes(description, 150))
}

// buildPremisePrompt 构建故事构想提示词
func buildPremisePrompt(genre string, subGenres []string) string {
	tags := noTagsLabel
	if len(subGenres) > 0 {
		tags = strings.Join(subGenres, ", ")
	}
	return fmt.Sprintf(`Bạn là một trợ lý sáng tạo nội dung tiểu thuyết.

NHIỆM VỤ:
Hãy sáng tạo một Cốt truyện sơ lược (Idea/Premise) thật hấp dẫn, độc đáo, có "hook" (điểm lôi cuốn) cho một bộ truyện mới.

THÔNG TIN:
- Thể loại chính: %s
- Các yếu tố/Tags: %s

YÊU CẦU OUTPUT:
- Chỉ trả về nội dung cốt truyện.
- Độ dài: Khoảng 300-500 từ.
- Nội dung phải kịch tính, giới thiệu được nhân vật chính, mâu thuẫn chính và bối cảnh độc đáo.
- Viết bằng tiếng Việt trôi chảy.`, genre, tags)
}

// headRunes 截取前 n 个字符
func headRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// tailRunes 截取后 n 个字符
func tailRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}
