package main

import (
	"flag"
	"log"
	"os"

	"github.com/LJTian/FeedBridge/internal/archive"
	"github.com/LJTian/FeedBridge/internal/config"
	"github.com/LJTian/FeedBridge/internal/fetcher"
	"github.com/LJTian/FeedBridge/internal/notify"
	"github.com/LJTian/FeedBridge/internal/pipeline"
	"github.com/LJTian/FeedBridge/internal/site"
)

// 一个仅执行一轮同步的命令行入口：适合 cron 或手动触发。
// 任一站点 Aborted 时以非零码退出。
func main() {
	var slug string
	flag.StringVar(&slug, "site", "", "only sync this site (default: all)")
	flag.Parse()

	cfg := config.Load()

	p := newPipeline(cfg)

	sites := site.All()
	if slug != "" {
		st, ok := site.Find(slug)
		if !ok {
			log.Fatalf("unknown site %q", slug)
		}
		sites = []site.Site{st}
	}

	ok := true
	for _, st := range sites {
		rep := p.Run(st)
		if rep.FinalState != pipeline.StateDone {
			ok = false
			continue
		}
		log.Printf("%s done, discovered=%d new articles", st.Slug, rep.Discovered)
	}

	if !ok {
		os.Exit(1)
	}
}

func newPipeline(cfg *config.Config) *pipeline.Pipeline {
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

	// 归档库是可选的；连不上只告警，不影响台账和 Feed
	if cfg.PostgresDSN != "" {
		arc, err := archive.New(cfg.PostgresDSN, cfg.RedisAddr)
		if err != nil {
			log.Printf("warn: init archive failed: %v", err)
		} else {
			p.Archive = arc
		}
	}
	if cfg.WebhookURL != "" {
		p.Notifier = notify.New(cfg.WebhookURL, cfg.WebhookToken)
	}

	return p
}
