package extract

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const homeyBaseURL = "https://homey.app"

// HomeyExtractor 解析 Homey App Store 列表页中的 "New Apps" 区块。
// 列表页只给出应用链接，名称与简介由详情页补全。
type HomeyExtractor struct{}

func (h *HomeyExtractor) Name() string {
	return "homey"
}

func (h *HomeyExtractor) Extract(raw []byte) ([]Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, &ExtractionError{Site: h.Name(), Reason: ReasonMalformed, Err: err}
	}

	section := findNewAppsSection(doc)
	if section == nil {
		// 区块找不到按零匹配处理，站点改版时降级而不是报错
		return nil, nil
	}

	var out []Candidate
	seen := make(map[string]struct{})
	section.Find("a[href*='/app/']").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if href == "" {
			return
		}
		if strings.HasPrefix(href, "/") {
			href = homeyBaseURL + href
		}

		id := HomeyAppID(href)
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}

		out = append(out, Candidate{
			ID:   id,
			Link: ToLocaleAgnosticURL(href),
		})
	})

	return out, nil
}

// findNewAppsSection 通过标题文本定位 "New Apps" 区块所在的容器
func findNewAppsSection(doc *goquery.Document) *goquery.Selection {
	var section *goquery.Selection
	doc.Find("h1, h2, h3, h4, h5, h6").EachWithBreak(func(_ int, hd *goquery.Selection) bool {
		if !strings.Contains(strings.ToLower(hd.Text()), "new apps") {
			return true
		}
		if sec := hd.Closest("section"); sec.Length() > 0 {
			section = sec
		} else if parent := hd.Parent(); parent.Length() > 0 {
			section = parent
		}
		return false
	})
	return section
}

// HomeyAppID 从应用链接中提取应用 ID，例如 .../app/io.home-connect/ -> io.home-connect
func HomeyAppID(url string) string {
	idx := strings.Index(url, "/app/")
	if idx < 0 {
		return ""
	}
	return strings.TrimRight(url[idx+len("/app/"):], "/")
}

// ToLocaleAgnosticURL 把带语言前缀的链接换成与语言无关的短链接：
// https://homey.app/en-us/app/{id}/ -> https://homey.app/a/{id}
func ToLocaleAgnosticURL(url string) string {
	id := HomeyAppID(url)
	if id == "" {
		return url
	}
	return homeyBaseURL + "/a/" + id
}
