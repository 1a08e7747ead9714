package site

import (
	"path/filepath"

	"github.com/LJTian/FeedBridge/internal/enrich"
	"github.com/LJTian/FeedBridge/internal/extract"
	"github.com/LJTian/FeedBridge/internal/feed"
)

// Site 一个被监控的无 Feed 站点的全部配置。
// 每个站点独享自己的台账文件和 Feed 文件，互不干扰。
type Site struct {
	Slug        string
	Name        string
	SourceURL   string // 抓取入口
	FeedLink    string // 频道里展示给订阅者的页面
	Description string
	Language    string
	TTL         int

	Window     int    // 渲染窗口大小，0 用全局默认
	UseBrowser bool   // 列表页依赖 JS 渲染时走 browser-scraper
	CronSpec   string // 独立采集周期，空则用全局 CRON_SPEC

	Extractor extract.Extractor
	Detailer  enrich.Detailer // 可选，详情页补全
}

func (s Site) StorePath(dataDir string) string {
	return filepath.Join(dataDir, s.Slug, "articles.tsv")
}

func (s Site) FeedPath(dataDir string) string {
	return filepath.Join(dataDir, s.Slug, "feed.xml")
}

func (s Site) ChannelMeta() feed.ChannelMeta {
	return feed.ChannelMeta{
		Title:       s.Name,
		Link:        s.FeedLink,
		Description: s.Description,
		Language:    s.Language,
		TTL:         s.TTL,
	}
}

// All 返回内置站点清单，cmd/collect 与 cmd/api 共用
func All() []Site {
	return []Site{
		{
			Slug:        "panther",
			Name:        "Augsburger Panther",
			SourceURL:   "https://www.aev-panther.de/panther/news.html",
			FeedLink:    "https://www.aev-panther.de/panther/news.html",
			Description: "Aktuelle News der Augsburger Panther. Inoffizieller RSS Feed der Website.",
			Language:    "de",
			TTL:         120,
			Extractor:   &extract.PantherExtractor{},
			Detailer:    &enrich.PantherDetailer{},
		},
		{
			Slug:        "homey",
			Name:        "Homey App Store - New Apps",
			SourceURL:   "https://homey.app/en-us/apps/homey-pro/",
			FeedLink:    "https://community.homey.app/c/apps/7",
			Description: "New apps in the Homey App Store",
			Language:    "en",
			TTL:         120,
			UseBrowser:  true, // 列表页是前端渲染的
			Extractor:   &extract.HomeyExtractor{},
			Detailer:    &enrich.HomeyDetailer{},
		},
		{
			Slug:        "komood",
			Name:        "Komood Shirts",
			SourceURL:   "https://www.komood.store/collections/t-shirt-kollektion/products.json?page=1&limit=250",
			FeedLink:    "https://www.komood.store/collections/t-shirt-kollektion",
			Description: "Neue T-Shirts von Komood Store",
			Language:    "de",
			TTL:         120,
			Extractor:   &extract.KomoodExtractor{},
		},
	}
}

// Find 按 slug 查找站点
func Find(slug string) (Site, bool) {
	for _, s := range All() {
		if s.Slug == slug {
			return s, true
		}
	}
	return Site{}, false
}
