package enrich

import "github.com/LJTian/FeedBridge/internal/extract"

// FetchFunc 抓取单个页面的能力，由流水线注入
type FetchFunc func(url string) ([]byte, error)

// Detailer 为新发现的条目抓取详情页补全字段。一轮内每个条目只尝试一次；
// 失败不终止运行，缺的字段留到下一轮自然重试。
type Detailer interface {
	Name() string
	Detail(fetch FetchFunc, c *extract.Candidate) error
}
