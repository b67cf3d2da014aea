package story

import "errors"

var (
	// ErrOutlinePlanningFailed 大纲生成失败，不会产生任何章节或文档
	ErrOutlinePlanningFailed = errors.New("outline planning failed")
	// ErrInvalidOutlineFormat 模型返回的大纲结构不合法（区别于服务不可用）
	ErrInvalidOutlineFormat = errors.New("invalid outline format")
	// ErrCoverGenerationFailed 封面生成失败，仅记录警告
	ErrCoverGenerationFailed = errors.New("cover generation failed")
	// ErrChapterStreamFailed 章节流式生成失败，章节已重置为未生成
	ErrChapterStreamFailed = errors.New("chapter stream failed")
	// ErrChapterOutOfRange 章节下标越界（调用方错误）
	ErrChapterOutOfRange = errors.New("chapter index out of range")
	// ErrGenerationInProgress 同一会话已有章节在生成中
	ErrGenerationInProgress = errors.New("another chapter generation is in progress")
	// ErrStreamCancelled 调用方在流结束前关闭了章节流
	ErrStreamCancelled = errors.New("chapter stream cancelled")
	// ErrEmptyChapter 流正常结束但没有任何正文
	ErrEmptyChapter = errors.New("chapter stream produced no content")
)
