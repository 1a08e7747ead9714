package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const komoodBaseURL = "https://www.komood.store"

var komoodTagRe = regexp.MustCompile(`<[^>]+>`)

// KomoodExtractor 解析 Komood Store 的 Shopify products.json 接口返回。
// 接口数据比商品列表页稳定得多，直接用 JSON 而不是抓 HTML。
type KomoodExtractor struct{}

func (k *KomoodExtractor) Name() string {
	return "komood"
}

type komoodProducts struct {
	Products []struct {
		Handle   string `json:"handle"`
		Title    string `json:"title"`
		BodyHTML string `json:"body_html"`
		Variants []struct {
			// Shopify 有时返回字符串（欧元）有时返回数字（分），原样接住再解析
			Price json.RawMessage `json:"price"`
		} `json:"variants"`
		Images []struct {
			Src string `json:"src"`
		} `json:"images"`
	} `json:"products"`
}

func (k *KomoodExtractor) Extract(raw []byte) ([]Candidate, error) {
	var resp komoodProducts
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &ExtractionError{Site: k.Name(), Reason: ReasonMalformed, Err: err}
	}

	out := make([]Candidate, 0, len(resp.Products))
	for _, p := range resp.Products {
		id := cleanKomoodHandle(p.Handle)
		title := cleanKomoodTitle(p.Title)
		if id == "" || title == "" {
			continue
		}

		price := ""
		if len(p.Variants) > 0 {
			price = formatKomoodPrice(komoodPriceCents(p.Variants[0].Price))
		}

		desc := komoodTagRe.ReplaceAllString(p.BodyHTML, "")
		desc = strings.Join(strings.Fields(desc), " ")
		switch {
		case price != "" && desc != "":
			desc = price + " • " + desc
		case price != "":
			desc = price
		}

		image := ""
		if len(p.Images) > 0 {
			image = p.Images[0].Src
		}

		out = append(out, Candidate{
			ID:          id,
			Title:       title,
			Link:        komoodBaseURL + "/products/" + p.Handle, // 链接保留原始 handle
			Description: desc,
			Image:       image,
		})
	}

	return out, nil
}

// cleanKomoodHandle 规范化去重键：售罄商品会换 handle，去掉前后缀保证同款只记一次
func cleanKomoodHandle(handle string) string {
	h := strings.TrimPrefix(handle, "ausverkauft-")
	h = strings.TrimSuffix(h, "-t-shirt")
	return h
}

func cleanKomoodTitle(title string) string {
	t := strings.TrimPrefix(title, "AUSVERKAUFT: ")
	t = strings.TrimSuffix(t, " - T-Shirt")
	t = strings.TrimSuffix(t, " - T-shirt")
	return t
}

func komoodPriceCents(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return int(f*100 + 0.5)
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	return 0
}

// formatKomoodPrice 以德语习惯格式化价格，例如 2995 -> €29,95
func formatKomoodPrice(cents int) string {
	if cents <= 0 {
		return ""
	}
	return fmt.Sprintf("€%d,%02d", cents/100, cents%100)
}
