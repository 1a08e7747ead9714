package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// 失败原因，决定调用方如何记录与告警
const (
	ReasonNetwork    = "network"
	ReasonHTTPStatus = "http_status"
	ReasonTimeout    = "timeout"
)

// FetchError 单次抓取失败的结构化描述。一次失败即整轮失败，不在内部重试。
type FetchError struct {
	URL    string
	Reason string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("fetch %s: %s: status %d", e.URL, e.Reason, e.Status)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Reason, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

const (
	userAgent = "FeedBridgeBot/1.0"
	// 渲染服务要先等浏览器加载页面，比普通抓取慢，额外留出时间
	renderExtraTimeout     = 15 * time.Second
	renderMaxResponseBytes = 8 << 20 // 8MB，渲染后的整页 HTML 可能较大
)

// Fetcher 抓取单个页面的原始内容，不做解析
type Fetcher struct {
	timeout   time.Duration
	renderURL string
}

func New(timeout time.Duration) *Fetcher {
	return &Fetcher{timeout: timeout}
}

// SetRenderService 配置 browser-scraper 服务地址，供 JS 渲染的站点使用
func (f *Fetcher) SetRenderService(endpoint string) {
	f.renderURL = endpoint
}

// Fetch 抓取 url 并返回原始响应体；除网络请求外不产生任何副作用
func (f *Fetcher) Fetch(rawURL string) ([]byte, error) {
	c := colly.NewCollector(colly.UserAgent(userAgent))
	c.SetRequestTimeout(f.timeout)

	var body []byte
	var status int
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	c.OnError(func(r *colly.Response, _ error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	if err := c.Visit(rawURL); err != nil {
		return nil, classify(rawURL, status, err)
	}
	if len(body) == 0 {
		return nil, &FetchError{URL: rawURL, Reason: ReasonNetwork, Err: errors.New("empty response body")}
	}
	return body, nil
}

type renderRequest struct {
	URL string `json:"url"`
}

type renderResponse struct {
	OK    bool   `json:"ok"`
	HTML  string `json:"html,omitempty"`
	Error string `json:"error,omitempty"`
}

// FetchRendered 通过 browser-scraper 获取 JS 渲染后的页面；
// 未配置渲染服务时退回普通抓取，解析端按零匹配降级。
func (f *Fetcher) FetchRendered(rawURL string) ([]byte, error) {
	if f.renderURL == "" {
		log.Printf("warn: render service not configured, plain fetch for %s", rawURL)
		return f.Fetch(rawURL)
	}

	reqBody, err := json.Marshal(renderRequest{URL: rawURL})
	if err != nil {
		return nil, &FetchError{URL: rawURL, Reason: ReasonNetwork, Err: err}
	}

	client := &http.Client{Timeout: f.timeout + renderExtraTimeout}
	resp, err := client.Post(f.renderURL+"/render", "application/json", bytes.NewReader(reqBody))
	if err != nil {
		return nil, classify(rawURL, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: rawURL, Reason: ReasonHTTPStatus, Status: resp.StatusCode}
	}

	var rr renderResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, renderMaxResponseBytes)).Decode(&rr); err != nil {
		return nil, &FetchError{URL: rawURL, Reason: ReasonNetwork, Err: err}
	}
	if !rr.OK {
		return nil, &FetchError{URL: rawURL, Reason: ReasonNetwork, Err: errors.New(rr.Error)}
	}
	return []byte(rr.HTML), nil
}

func classify(url string, status int, err error) *FetchError {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &FetchError{URL: url, Reason: ReasonTimeout, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{URL: url, Reason: ReasonTimeout, Err: err}
	}
	if status >= 400 {
		return &FetchError{URL: url, Reason: ReasonHTTPStatus, Status: status, Err: err}
	}
	return &FetchError{URL: url, Reason: ReasonNetwork, Err: err}
}
