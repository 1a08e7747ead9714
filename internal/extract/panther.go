package extract

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const pantherBaseURL = "https://www.aev-panther.de"

// 列表页的日期格式：DD.MM.YYYY | HH:MM Uhr
var pantherDateRe = regexp.MustCompile(`(\d{2})\.(\d{2})\.(\d{4})\s*\|\s*(\d{2}:\d{2})`)

// PantherExtractor 解析 Augsburger Panther 官网的新闻列表页
type PantherExtractor struct{}

func (p *PantherExtractor) Name() string {
	return "panther"
}

func (p *PantherExtractor) Extract(raw []byte) ([]Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, &ExtractionError{Site: p.Name(), Reason: ReasonMalformed, Err: err}
	}

	var out []Candidate
	doc.Find("div.news-item").Each(func(_ int, s *goquery.Selection) {
		link := s.Find("a").First()
		if link.Length() == 0 {
			return
		}
		href, _ := link.Attr("href")
		if href == "" {
			return
		}
		if !strings.HasPrefix(href, "http") {
			href = pantherBaseURL + href
		}

		// 条目内的两个 span：第一个是日期，第二个是标题
		spans := s.Find("div.newsitem_link span")
		var dateText, title string
		if spans.Length() >= 2 {
			dateText = strings.TrimSpace(spans.Eq(0).Text())
			title = strings.TrimSpace(spans.Eq(1).Text())
		}
		if title == "" {
			return
		}

		published := ""
		if m := pantherDateRe.FindStringSubmatch(dateText); m != nil {
			// 转成 ISO 顺序，便于人工核对台账
			published = fmt.Sprintf("%s-%s-%s %s", m[3], m[2], m[1], m[4])
		}

		out = append(out, Candidate{
			Title:     title,
			Link:      href,
			Published: published,
		})
	})

	return out, nil
}
