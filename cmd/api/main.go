package main

import (
	"crypto/subtle"
	"log"
	"net/http"

	"github.com/LJTian/FeedBridge/internal/api"
	"github.com/LJTian/FeedBridge/internal/archive"
	"github.com/LJTian/FeedBridge/internal/config"
	"github.com/LJTian/FeedBridge/internal/fetcher"
	"github.com/LJTian/FeedBridge/internal/notify"
	"github.com/LJTian/FeedBridge/internal/pipeline"
	"github.com/LJTian/FeedBridge/internal/scheduler"
	"github.com/LJTian/FeedBridge/internal/site"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	f := fetcher.New(cfg.FetchTimeout)
	if cfg.BrowserScraperURL != "" {
		f.SetRenderService(cfg.BrowserScraperURL)
	}

	p := &pipeline.Pipeline{
		Fetcher:  f,
		DataDir:  cfg.DataDir,
		Window:   cfg.FeedWindow,
		Location: cfg.Location(),
	}

	// 归档库是可选的；连不上只告警，Feed 服务照常工作
	var arc *archive.Archive
	if cfg.PostgresDSN != "" {
		a, err := archive.New(cfg.PostgresDSN, cfg.RedisAddr)
		if err != nil {
			log.Printf("warn: init archive failed: %v", err)
		} else {
			arc = a
			p.Archive = a
		}
	}
	if cfg.WebhookURL != "" {
		p.Notifier = notify.New(cfg.WebhookURL, cfg.WebhookToken)
	}

	sites := site.All()
	s, err := scheduler.New(cfg.CronSpec, sites, p)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}
	s.Start()

	// API
	r := gin.Default()
	// 若配置了全局访问密码，则启用 Basic Auth 保护（/health 仍然免认证）
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPass != "" {
		r.Use(basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass))
	}

	apiServer := api.NewServer(sites, cfg.DataDir, arc)
	apiServer.RegisterRoutes(r)

	addr := ":" + cfg.AppPort
	log.Printf("starting api server at %s ...", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server exit: %v", err)
	}
}

// basicAuthMiddleware 为整个站点增加一个简单的 Basic Auth 访问密码。
// 仅当配置了 APP_BASIC_USER / APP_BASIC_PASS 时启用。
// /health 不做认证，便于健康检查。
func basicAuthMiddleware(user, pass string) gin.HandlerFunc {
	const realm = "Restricted"
	uBytes := []byte(user)
	pBytes := []byte(pass)

	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}
		u, p, ok := c.Request.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), uBytes) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), pBytes) != 1 {
			c.Header("WWW-Authenticate", `Basic realm="`+realm+`"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
