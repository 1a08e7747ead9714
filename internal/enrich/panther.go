package enrich

import (
	"bytes"
	"strings"

	"github.com/LJTian/FeedBridge/internal/extract"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const pantherBaseURL = "https://www.aev-panther.de"

// PantherDetailer 从新闻详情页取第一段正文作为摘要，外加文章配图
type PantherDetailer struct{}

func (d *PantherDetailer) Name() string {
	return "panther"
}

func (d *PantherDetailer) Detail(fetch FetchFunc, c *extract.Candidate) error {
	raw, err := fetch(c.Link)
	if err != nil {
		return err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return err
	}

	if c.Description == "" {
		if p := doc.Find("div.contentarea p").First(); p.Length() > 0 {
			c.Description = pantherTeaser(p)
		}
	}

	if c.Image == "" {
		if img := doc.Find("div.article_image img").First(); img.Length() > 0 {
			if src, _ := img.Attr("src"); src != "" {
				if !strings.HasPrefix(src, "http") {
					src = pantherBaseURL + src
				}
				c.Image = src
			}
		}
	}

	return nil
}

// pantherTeaser 取段落中第一个 <br> 或 <strong>（小节标题）之前的文本
func pantherTeaser(p *goquery.Selection) string {
	var b strings.Builder
	p.Contents().EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if n := s.Get(0); n != nil && n.Type == html.ElementNode && (n.Data == "br" || n.Data == "strong") {
			return false
		}
		b.WriteString(s.Text())
		return true
	})

	text := strings.TrimSpace(b.String())
	if text != "" {
		text += " […]"
	}
	return text
}
