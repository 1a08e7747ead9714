package enrich

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/LJTian/FeedBridge/internal/extract"
	"github.com/PuerkitoBio/goquery"
)

// HomeyDetailer 从应用详情页补全名称、简介、图标和开发者。
// 列表页只有链接，名称必须在这里拿到，拿不到的条目本轮不入账。
type HomeyDetailer struct{}

func (d *HomeyDetailer) Name() string {
	return "homey"
}

func (d *HomeyDetailer) Detail(fetch FetchFunc, c *extract.Candidate) error {
	raw, err := fetch(c.Link)
	if err != nil {
		return err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return err
	}

	if c.Title == "" {
		if h1 := doc.Find("h1").First(); h1.Length() > 0 {
			c.Title = strings.TrimSpace(h1.Text())
		}
	}

	if c.Description == "" {
		if content, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
			c.Description = strings.TrimSpace(content)
		}
	}
	if c.Description == "" {
		if el := doc.Find(`[class*="description"]`).First(); el.Length() > 0 {
			c.Description = strings.TrimSpace(el.Text())
		}
	}

	if c.Image == "" {
		c.Image = homeyAppImage(doc, c.ID)
	}

	if c.Author == "" {
		if dev := homeyDeveloper(doc); dev != "" {
			// RSS 的 author 要求邮箱格式，用占位邮箱带上开发者名
			c.Author = fmt.Sprintf("noreply@homey.app (%s)", dev)
		}
	}

	return nil
}

// homeyAppImage 优先找应用图标的大图，找不到时退回 og:image
func homeyAppImage(doc *goquery.Document, appID string) string {
	var image string
	doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src, _ := img.Attr("src")
		if src == "" {
			return true
		}
		if strings.Contains(src, "large") || (appID != "" && strings.Contains(src, appID)) {
			image = src
			return false
		}
		return true
	})
	if image != "" {
		return image
	}
	if content, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok {
		return content
	}
	return ""
}

func homeyDeveloper(doc *goquery.Document) string {
	author := doc.Find(`a[href*="/apps/author/"]`).First()
	if author.Length() == 0 {
		return ""
	}
	dev := strings.TrimSpace(author.Text())
	// 页面把应用类型直接拼在名字后面，去掉
	for _, suffix := range []string{"Community", "Official"} {
		if strings.HasSuffix(dev, suffix) {
			dev = strings.TrimSpace(strings.TrimSuffix(dev, suffix))
			break
		}
	}
	return dev
}
