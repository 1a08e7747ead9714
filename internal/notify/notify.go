package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/LJTian/FeedBridge/internal/store"
)

// Notifier 把新发现的条目推送到外部 Webhook（例如 Make 场景触发）。
// 推送失败只告警，不影响运行结果。
type Notifier struct {
	url    string
	token  string
	client *http.Client
}

func New(url, token string) *Notifier {
	return &Notifier{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type payload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	ImageURL    string `json:"imageURL"`
	Timestamp   int64  `json:"timestamp"`
}

func (n *Notifier) Notify(a store.Article) error {
	body, err := json.Marshal(payload{
		Title:       a.Title,
		Description: a.Description,
		URL:         a.Link,
		ImageURL:    a.Image,
		Timestamp:   a.DiscoveredAt.Unix(),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-make-apikey", n.token)

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}
	return nil
}
