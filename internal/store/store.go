package store

import (
	"crypto/sha1"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/LJTian/FeedBridge/internal/extract"
)

// Article 站点下已发现的一篇内容。Identity 一经分配永不变化，
// DiscoveredAt 记录首次发现时间，不使用站点自己的发布时间。
type Article struct {
	Identity     string
	Title        string
	Link         string
	DiscoveredAt time.Time
	Description  string
	Image        string
	Author       string

	// Published 站点自己标注的发布时间，仅随运行传给归档库，不写入台账
	Published string
}

// 台账文件的列顺序固定，前四列是约定格式，后面是补充列
var columns = []string{"Identity", "Title", "Link", "DiscoveredAt", "Description", "Image", "Author"}

// Store 一个站点的只增台账：记录见过的每一篇内容，兼作去重账本。
// 插入顺序即发现顺序，永不重排、永不清理。
type Store struct {
	path     string
	articles []Article
	index    map[string]int
}

// Load 读取台账文件；文件不存在视为首次运行，返回空台账
func Load(path string) (*Store, error) {
	s := &Store{path: path, index: make(map[string]int)}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, &PersistenceError{Path: path, Reason: ReasonIO, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	rows, err := r.ReadAll()
	if err != nil {
		// 行字段数不一致通常意味着文件被截断或手工改坏
		return nil, &PersistenceError{Path: path, Reason: ReasonPartialWrite, Err: err}
	}

	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == columns[0] {
			continue // 表头
		}
		if len(row) < 4 {
			return nil, &PersistenceError{Path: path, Reason: ReasonPartialWrite,
				Err: fmt.Errorf("row %d has %d fields", i+1, len(row))}
		}

		discovered, err := time.Parse(time.RFC3339, row[3])
		if err != nil {
			return nil, &PersistenceError{Path: path, Reason: ReasonPartialWrite,
				Err: fmt.Errorf("row %d: bad timestamp %q", i+1, row[3])}
		}

		a := Article{
			Identity:     row[0],
			Title:        row[1],
			Link:         row[2],
			DiscoveredAt: discovered,
		}
		if len(row) > 4 {
			a.Description = row[4]
		}
		if len(row) > 5 {
			a.Image = row[5]
		}
		if len(row) > 6 {
			a.Author = row[6]
		}

		if err := s.Append(a); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Store) Len() int {
	return len(s.articles)
}

func (s *Store) Contains(identity string) bool {
	_, ok := s.index[identity]
	return ok
}

// Append 追加一条记录；identity 已存在时返回 DuplicateIdentityError，绝不覆盖
func (s *Store) Append(a Article) error {
	if a.Identity == "" {
		return &PersistenceError{Path: s.path, Reason: ReasonPartialWrite,
			Err: fmt.Errorf("article without identity: %q", a.Title)}
	}
	if s.Contains(a.Identity) {
		return &DuplicateIdentityError{Identity: a.Identity}
	}
	s.index[a.Identity] = len(s.articles)
	s.articles = append(s.articles, a)
	return nil
}

// All 按发现顺序返回全部记录（副本，调用方改不动台账）
func (s *Store) All() []Article {
	out := make([]Article, len(s.articles))
	copy(out, s.articles)
	return out
}

// Merge 按解析顺序合并候选条目：台账里没有的追加并记下发现时间，
// 返回本轮新增的记录。同批内先解析到的排在前面。
func (s *Store) Merge(cands []extract.Candidate, now time.Time) ([]Article, error) {
	var added []Article
	for _, c := range cands {
		id := IdentityFor(c)
		if s.Contains(id) {
			continue
		}
		a := Article{
			Identity:     id,
			Title:        strings.TrimSpace(c.Title),
			Link:         c.Link,
			DiscoveredAt: now,
			Description:  c.Description,
			Image:        c.Image,
			Author:       c.Author,
			Published:    c.Published,
		}
		if err := s.Append(a); err != nil {
			return added, err
		}
		added = append(added, a)
	}
	return added, nil
}

// IdentityFor 计算候选条目的去重键：站点给了稳定 ID 就用它，否则取链接哈希
func IdentityFor(c extract.Candidate) string {
	if c.ID != "" {
		return c.ID
	}
	return hashLink(c.Link)
}

func hashLink(link string) string {
	h := sha1.New()
	h.Write([]byte(link))
	return hex.EncodeToString(h.Sum(nil))
}

// Persist 原子落盘：先写临时文件再改名，任何失败都不会留下半个台账
func (s *Store) Persist() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &PersistenceError{Path: s.path, Reason: ReasonIO, Err: err}
	}

	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return &PersistenceError{Path: s.path, Reason: ReasonIO, Err: err}
	}

	w := csv.NewWriter(f)
	w.Comma = '\t'

	write := func() error {
		if err := w.Write(columns); err != nil {
			return err
		}
		for _, a := range s.articles {
			row := []string{
				a.Identity,
				a.Title,
				a.Link,
				a.DiscoveredAt.Format(time.RFC3339),
				a.Description,
				a.Image,
				a.Author,
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
		return f.Sync()
	}

	if err := write(); err != nil {
		f.Close()
		os.Remove(tmp)
		return &PersistenceError{Path: s.path, Reason: ReasonIO, Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return &PersistenceError{Path: s.path, Reason: ReasonIO, Err: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return &PersistenceError{Path: s.path, Reason: ReasonIO, Err: err}
	}
	return nil
}

// Lock 以独占锁文件占住台账，保证同一站点同一时刻只有一次运行。
// 持锁进程已不存在时视为上次崩溃留下的残留，清掉后重试一次。
// 返回的释放函数在 Done/Aborted 后都必须调用。
func Lock(path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &PersistenceError{Path: path, Reason: ReasonIO, Err: err}
	}

	lock := path + ".lock"
	for attempt := 0; ; attempt++ {
		f, err := os.OpenFile(lock, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d %s\n", os.Getpid(), time.Now().Format(time.RFC3339))
			f.Close()
			return func() { os.Remove(lock) }, nil
		}
		if !os.IsExist(err) {
			return nil, &PersistenceError{Path: path, Reason: ReasonIO, Err: err}
		}
		if attempt == 0 && lockIsStale(lock) {
			log.Printf("warn: removing stale lock %s", lock)
			os.Remove(lock)
			continue
		}
		return nil, fmt.Errorf("store %s: another run holds the lock", path)
	}
}

// lockIsStale 锁文件里记录的 PID 对应的进程已退出时返回 true；
// 内容损坏同样视为残留。读不到文件时保守地当作有效锁。
func lockIsStale(lock string) bool {
	data, err := os.ReadFile(lock)
	if err != nil {
		return false
	}
	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil || pid <= 0 {
		return true
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return true
	}
	return proc.Signal(syscall.Signal(0)) != nil
}
