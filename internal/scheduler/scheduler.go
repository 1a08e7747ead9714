package scheduler

import (
	"log"
	"sync"
	"time"

	"github.com/LJTian/FeedBridge/internal/pipeline"
	"github.com/LJTian/FeedBridge/internal/site"
	"github.com/robfig/cron/v3"
)

type Scheduler struct {
	cron  *cron.Cron
	sites []site.Site
	pipe  *pipeline.Pipeline
}

// New 为每个站点注册一条 cron 任务；站点没有自己的表达式时用 defaultSpec
func New(defaultSpec string, sites []site.Site, p *pipeline.Pipeline) (*Scheduler, error) {
	c := cron.New()

	s := &Scheduler{
		cron:  c,
		sites: sites,
		pipe:  p,
	}

	for _, st := range sites {
		st := st
		spec := st.CronSpec
		if spec == "" {
			spec = defaultSpec
		}
		if _, err := c.AddFunc(spec, func() { s.runSite(st) }); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	// 延迟执行首轮同步，避免和进程启动时的其他初始化争抢资源
	const startupDelay = 15 * time.Second
	time.AfterFunc(startupDelay, func() {
		go s.RunAll()
	})
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// RunAll 对外暴露的单次执行入口，所有站点并行跑一轮。
// 任一站点 Aborted 时返回 false，方便一次性运行模式决定退出码。
func (s *Scheduler) RunAll() bool {
	log.Println("start sync job...")

	ok := true
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, st := range s.sites {
		st := st
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rep := s.runSite(st); rep.FinalState != pipeline.StateDone {
				mu.Lock()
				ok = false
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	log.Println("sync job done (all sites)")
	return ok
}

func (s *Scheduler) runSite(st site.Site) pipeline.Report {
	rep := s.pipe.Run(st)
	if rep.FinalState != pipeline.StateDone {
		log.Printf("sync %s failed: %v", st.Slug, rep.Err)
		return rep
	}
	log.Printf("%s done, discovered=%d new articles", st.Slug, rep.Discovered)
	return rep
}
