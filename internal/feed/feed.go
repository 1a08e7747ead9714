package feed

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/LJTian/FeedBridge/internal/store"
)

// RSS 2.0 文档结构，仅包含我们会输出的字段
type RSS struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	Channel Channel  `xml:"channel"`
}

type Channel struct {
	Title         string `xml:"title"`
	Link          string `xml:"link"`
	Description   string `xml:"description"`
	Language      string `xml:"language,omitempty"`
	TTL           int    `xml:"ttl,omitempty"`
	LastBuildDate string `xml:"lastBuildDate"`
	Items         []Item `xml:"item"`
}

type Item struct {
	Title       string     `xml:"title"`
	Link        string     `xml:"link"`
	GUID        GUID       `xml:"guid"`
	PubDate     string     `xml:"pubDate"`
	Description string     `xml:"description,omitempty"`
	Author      string     `xml:"author,omitempty"`
	Enclosure   *Enclosure `xml:"enclosure,omitempty"`
}

// GUID 固定标记为非永久链接：identity 是去重键，不保证是可访问的 URL
type GUID struct {
	IsPermaLink string `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type Enclosure struct {
	URL    string `xml:"url,attr"`
	Length int    `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

// ChannelMeta 站点配置提供的频道信息
type ChannelMeta struct {
	Title       string
	Link        string
	Description string
	Language    string
	TTL         int
}

const ReasonMissingField = "missing_field"

// RenderError 台账记录缺少必填字段，渲染中止，已有的 Feed 文件保持原样
type RenderError struct {
	Reason   string
	Field    string
	Identity string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render: %s: %s (identity=%q)", e.Reason, e.Field, e.Identity)
}

const defaultWindow = 50

// Render 把台账的尾部 window 条记录渲染成 RSS 文档，最新发现的排在最前。
// 除 lastBuildDate 取当前时间外，输出完全由台账内容决定。
func Render(meta ChannelMeta, articles []store.Article, window int, now time.Time) ([]byte, error) {
	if window <= 0 {
		window = defaultWindow
	}
	if n := len(articles); n > window {
		articles = articles[n-window:]
	}

	items := make([]Item, 0, len(articles))
	for i := len(articles) - 1; i >= 0; i-- {
		a := articles[i]
		switch {
		case a.Identity == "":
			return nil, &RenderError{Reason: ReasonMissingField, Field: "identity", Identity: a.Identity}
		case a.Title == "":
			return nil, &RenderError{Reason: ReasonMissingField, Field: "title", Identity: a.Identity}
		case a.Link == "":
			return nil, &RenderError{Reason: ReasonMissingField, Field: "link", Identity: a.Identity}
		}

		item := Item{
			Title:       a.Title,
			Link:        a.Link,
			GUID:        GUID{IsPermaLink: "false", Value: a.Identity},
			PubDate:     a.DiscoveredAt.Format(time.RFC1123Z),
			Description: a.Description,
			Author:      a.Author,
		}
		if a.Image != "" {
			item.Enclosure = &Enclosure{URL: a.Image, Type: "image/jpeg"}
		}
		items = append(items, item)
	}

	doc := RSS{
		Version: "2.0",
		Channel: Channel{
			Title:         meta.Title,
			Link:          meta.Link,
			Description:   meta.Description,
			Language:      meta.Language,
			TTL:           meta.TTL,
			LastBuildDate: now.Format(time.RFC1123Z),
			Items:         items,
		},
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}

// WriteFile 原子写出 Feed 文档：先写临时文件再改名，失败时旧文件保持不变
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &store.PersistenceError{Path: path, Reason: store.ReasonIO, Err: err}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp)
		return &store.PersistenceError{Path: path, Reason: store.ReasonIO, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return &store.PersistenceError{Path: path, Reason: store.ReasonIO, Err: err}
	}
	return nil
}
