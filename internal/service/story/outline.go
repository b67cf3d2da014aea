package story

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// OutlineStub 模型返回的单个章节条目（未归一化）
type OutlineStub struct {
	Number  int // 模型给出的编号，仅供参考，不用于寻址
	Title   string
	Summary string
}

// OutlineResponse 校验通过的大纲结构
type OutlineResponse struct {
	Title           string
	LongDescription string
	Chapters        []OutlineStub
}

var markdownFencePattern = regexp.MustCompile("(?s)^\\s*```(?:json)?\\s*\\n(.*?)\\n\\s*```\\s*$")

// cleanJSONContent 移除 LLM 返回内容中的 markdown 代码块标记
func cleanJSONContent(content string) string {
	content = strings.TrimSpace(content)
	if m := markdownFencePattern.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

// ParseOutline 严格校验并解析大纲 JSON
// 顶层必须是对象，chapters 必须是非空的对象数组，每项 title/summary 为字符串，
// number 若存在必须是数字；任何其它形态都返回 ErrInvalidOutlineFormat
func ParseOutline(raw string) (*OutlineResponse, error) {
	content := cleanJSONContent(raw)
	if content == "" {
		return nil, fmt.Errorf("%w: empty response", ErrInvalidOutlineFormat)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOutlineFormat, err)
	}
	if top == nil {
		return nil, fmt.Errorf("%w: top level is null", ErrInvalidOutlineFormat)
	}

	out := &OutlineResponse{}
	var err error
	if out.Title, err = optionalString(top, "title"); err != nil {
		return nil, err
	}
	if out.LongDescription, err = optionalString(top, "longDescription"); err != nil {
		return nil, err
	}

	rawChapters, ok := top["chapters"]
	if !ok || isNull(rawChapters) {
		return nil, fmt.Errorf("%w: missing chapters", ErrInvalidOutlineFormat)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(rawChapters, &items); err != nil {
		return nil, fmt.Errorf("%w: chapters is not an array", ErrInvalidOutlineFormat)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: chapters is empty", ErrInvalidOutlineFormat)
	}

	out.Chapters = make([]OutlineStub, 0, len(items))
	for i, item := range items {
		stub, err := parseStub(item)
		if err != nil {
			return nil, fmt.Errorf("chapters[%d]: %w", i, err)
		}
		out.Chapters = append(out.Chapters, stub)
	}
	return out, nil
}

func parseStub(item json.RawMessage) (OutlineStub, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
		return OutlineStub{}, fmt.Errorf("%w: chapter is not an object", ErrInvalidOutlineFormat)
	}

	var stub OutlineStub
	var err error
	if stub.Title, err = requiredString(fields, "title"); err != nil {
		return stub, err
	}
	if stub.Summary, err = requiredString(fields, "summary"); err != nil {
		return stub, err
	}
	if rawNum, ok := fields["number"]; ok && !isNull(rawNum) {
		var n json.Number
		dec := json.NewDecoder(bytes.NewReader(rawNum))
		dec.UseNumber()
		if err := dec.Decode(&n); err != nil {
			return stub, fmt.Errorf("%w: number is not numeric", ErrInvalidOutlineFormat)
		}
		if v, err := n.Int64(); err == nil {
			stub.Number = int(v)
		}
	}
	return stub, nil
}

func requiredString(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return "", fmt.Errorf("%w: missing %s", ErrInvalidOutlineFormat, key)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: %s is not a string", ErrInvalidOutlineFormat, key)
	}
	return s, nil
}

func optionalString(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: %s is not a string", ErrInvalidOutlineFormat, key)
	}
	return strings.TrimSpace(s), nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

var (
	chapterLabelPattern = regexp.MustCompile(`(?i)^(chương|chapter|hồi)\s+\d+\s*[:.\-–]?\s*`)
	chapterRangePattern = regexp.MustCompile(`^\d+\s*[-–]\s*\d+\s*[:.\-]?\s*`)
)

// NormalizeChapterTitle 去掉模型回显的 "Chương N:" / "4-10:" 等前缀
// 去掉后为空时返回 SynthesizedTitle(number)
func NormalizeChapterTitle(title string, number int) string {
	clean := chapterLabelPattern.ReplaceAllString(strings.TrimSpace(title), "")
	clean = strings.TrimSpace(clean)
	clean = strings.TrimSpace(chapterRangePattern.ReplaceAllString(clean, ""))
	if clean == "" {
		return SynthesizedTitle(number)
	}
	return clean
}
