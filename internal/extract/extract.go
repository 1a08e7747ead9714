package extract

import "fmt"

// Candidate 从单次抓取中解析出的候选条目，进入台账去重之前的原始结果
type Candidate struct {
	// ID 站点提供的稳定去重键；为空时由存储层用链接哈希兜底
	ID          string
	Title       string
	Link        string
	Description string
	Image       string
	Author      string
	// Published 页面上的发布时间原文，仅作归档附注，不参与排序
	Published string
}

// Extractor 抽象每一个站点的解析规则。对相同输入必须返回相同输出；
// 零匹配返回空切片而不是错误，站点改版时降级为抓不到新内容而非崩溃。
type Extractor interface {
	Name() string
	Extract(raw []byte) ([]Candidate, error)
}

const ReasonMalformed = "malformed"

// ExtractionError 内容完全无法解析时返回，终止本轮运行
type ExtractionError struct {
	Site   string
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %s: %v", e.Site, e.Reason, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
