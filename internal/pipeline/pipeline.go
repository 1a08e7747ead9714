package pipeline

import (
	"log"
	"sync"
	"time"

	"github.com/LJTian/FeedBridge/internal/archive"
	"github.com/LJTian/FeedBridge/internal/extract"
	"github.com/LJTian/FeedBridge/internal/feed"
	"github.com/LJTian/FeedBridge/internal/notify"
	"github.com/LJTian/FeedBridge/internal/site"
	"github.com/LJTian/FeedBridge/internal/store"
)

// State 一次运行所处的阶段
type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateExtracting State = "extracting"
	StateMerging    State = "merging"
	StateRendering  State = "rendering"
	StateDone       State = "done"
	StateAborted    State = "aborted"
)

// Report 单次运行的结果，交给外部调度方
type Report struct {
	Site       string
	Discovered int
	FinalState State
	Err        error
}

// Fetcher 抓取单个页面的能力，测试时可替换
type Fetcher interface {
	Fetch(url string) ([]byte, error)
	FetchRendered(url string) ([]byte, error)
}

// Pipeline 串起一个站点的单次同步：抓取、解析、合并台账、渲染 Feed。
// Archive 和 Notifier 可为 nil，失败只告警不影响运行结果。
type Pipeline struct {
	Fetcher  Fetcher
	DataDir  string
	Window   int // 全局默认渲染窗口
	Location *time.Location

	Archive  *archive.Archive
	Notifier *notify.Notifier
}

// 进程内的站点互斥，配合台账锁文件保证同站点最多一次并发运行
var (
	siteLocksMu sync.Mutex
	siteLocks   = map[string]*sync.Mutex{}
)

func siteLock(slug string) *sync.Mutex {
	siteLocksMu.Lock()
	defer siteLocksMu.Unlock()
	mu, ok := siteLocks[slug]
	if !ok {
		mu = &sync.Mutex{}
		siteLocks[slug] = mu
	}
	return mu
}

// Run 为一个站点执行一轮同步。任何一步失败立即转入 Aborted，
// 台账和 Feed 文件保持上一次成功持久化的状态。
func (p *Pipeline) Run(st site.Site) Report {
	r := Report{Site: st.Slug, FinalState: StateIdle}
	log.Printf("[%s] run start", st.Slug)

	mu := siteLock(st.Slug)
	mu.Lock()
	defer mu.Unlock()

	storePath := st.StorePath(p.DataDir)
	release, err := store.Lock(storePath)
	if err != nil {
		return p.abort(r, err)
	}
	defer release()

	ledger, err := store.Load(storePath)
	if err != nil {
		return p.abort(r, err)
	}
	log.Printf("[%s] loaded %d existing articles", st.Slug, ledger.Len())

	r.FinalState = StateFetching
	raw, err := p.fetchSource(st)
	if err != nil {
		return p.abort(r, err)
	}

	r.FinalState = StateExtracting
	cands, err := st.Extractor.Extract(raw)
	if err != nil {
		return p.abort(r, err)
	}
	log.Printf("[%s] extracted %d candidates", st.Slug, len(cands))

	r.FinalState = StateMerging
	now := time.Now()
	if p.Location != nil {
		now = now.In(p.Location)
	}
	added, err := ledger.Merge(p.prepare(st, ledger, cands), now)
	if err != nil {
		return p.abort(r, err)
	}
	r.Discovered = len(added)

	r.FinalState = StateRendering
	window := st.Window
	if window <= 0 {
		window = p.Window
	}
	doc, err := feed.Render(st.ChannelMeta(), ledger.All(), window, now)
	if err != nil {
		return p.abort(r, err)
	}

	// 先落台账再写 Feed；两者都持久化成功才算 Done
	if err := ledger.Persist(); err != nil {
		return p.abort(r, err)
	}
	if err := feed.WriteFile(st.FeedPath(p.DataDir), doc); err != nil {
		return p.abort(r, err)
	}

	r.FinalState = StateDone
	log.Printf("[%s] run done, discovered=%d total=%d", st.Slug, r.Discovered, ledger.Len())

	// 归档与通知在持久化之后，失败只告警
	if p.Archive != nil && len(added) > 0 {
		if err := p.Archive.SaveBatch(st.Slug, added); err != nil {
			log.Printf("[%s] warn: archive batch: %v", st.Slug, err)
		}
	}
	if p.Notifier != nil {
		for _, a := range added {
			if err := p.Notifier.Notify(a); err != nil {
				log.Printf("[%s] warn: webhook %s: %v", st.Slug, a.Link, err)
			}
		}
	}

	return r
}

func (p *Pipeline) fetchSource(st site.Site) ([]byte, error) {
	if st.UseBrowser {
		return p.Fetcher.FetchRendered(st.SourceURL)
	}
	return p.Fetcher.Fetch(st.SourceURL)
}

// prepare 过滤掉台账里已有的候选，按需抓详情页补全；
// 补全后仍没有标题的条目丢弃，留待下一轮重试。
func (p *Pipeline) prepare(st site.Site, ledger *store.Store, cands []extract.Candidate) []extract.Candidate {
	out := make([]extract.Candidate, 0, len(cands))
	seen := make(map[string]struct{})
	for _, c := range cands {
		id := store.IdentityFor(c)
		if ledger.Contains(id) {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		if st.Detailer != nil && (c.Title == "" || c.Description == "") {
			if err := st.Detailer.Detail(p.Fetcher.Fetch, &c); err != nil {
				log.Printf("[%s] warn: detail %s: %v", st.Slug, c.Link, err)
			}
		}
		if c.Title == "" {
			log.Printf("[%s] skip candidate without title: %s", st.Slug, c.Link)
			continue
		}

		out = append(out, c)
	}
	return out
}

func (p *Pipeline) abort(r Report, err error) Report {
	r.Err = err
	log.Printf("[%s] run aborted at %s: %v", r.Site, r.FinalState, err)
	r.FinalState = StateAborted
	return r
}
