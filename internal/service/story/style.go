package story

import (
	"fmt"
	"strings"
)

// styleRule 文风规则：关键词任一命中即采用该文风
type styleRule struct {
	name     string
	keywords []string
	style    string
}

// styleRules 按优先级排列，自上而下匹配，第一个命中的规则生效
// 类型与标签可能同时命中多个类别，顺序不可调整
var styleRules = []styleRule{
	{
		name:     "historical",
		keywords: []string{"cổ", "tiên", "huyền", "kiếm", "đế", "vương", "xuyên không"},
		style:    "Văn phong bán cổ trang (Hán Việt vừa phải), hào hùng, dùng từ ngữ tu từ, tả cảnh thiên nhiên hùng vĩ, chiêu thức võ công miêu tả chi tiết, hoa mỹ.",
	},
	{
		name:     "horror",
		keywords: []string{"kinh dị", "ma", "quỷ", "án", "trinh thám", "zombie", "mạt thế"},
		style:    "Bầu không khí u tối, gay cấn, dồn dập, tập trung vào các chi tiết rùng rợn qua 5 giác quan (âm thanh, mùi vị...), tạo cảm giác hồi hộp đè nén.",
	},
	{
		name:     "romance",
		keywords: []string{"ngôn", "tình", "yêu", "sủng", "ngược", "hôn", "thanh xuân", "boylove", "đam", "bách", "cưới"},
		style:    "Ngôn từ mượt mà, giàu cảm xúc, tập trung sâu vào miêu tả nội tâm nhân vật, những rung động tinh tế, nhịp độ chậm rãi lắng đọng, lãng mạn.",
	},
	{
		name:     "comedy",
		keywords: []string{"hài"},
		style:    "Giọng văn dí dỏm, hài hước, có chút châm biếm, sử dụng tình huống gây cười tự nhiên qua đối thoại.",
	},
}

// StyleGuide 根据主类型与标签选择文风指引
func StyleGuide(genre string, subGenres []string) string {
	combined := strings.ToLower(genre) + " " + strings.ToLower(strings.Join(subGenres, ", "))

	for _, rule := range styleRules {
		if rule.matches(combined) {
			return rule.style
		}
	}

	return fmt.Sprintf("Hãy sử dụng giọng văn đặc trưng và phù hợp nhất với thể loại %q và các yếu tố %q. Viết thật lôi cuốn, văn phong chuyên nghiệp.",
		genre, strings.Join(subGenres, ", "))
}

func (r styleRule) matches(text string) bool {
	for _, kw := range r.keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
