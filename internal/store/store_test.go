package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/LJTian/FeedBridge/internal/extract"
)

func testStorePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "articles.tsv")
}

func TestMergeAppendsOnlyUnknownCandidates(t *testing.T) {
	s, err := Load(testStorePath(t))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	added, err := s.Merge([]extract.Candidate{
		{ID: "a1", Title: "Erster", Link: "https://example.com/1"},
		{ID: "a2", Title: "Zweiter", Link: "https://example.com/2"},
	}, t0)
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	if len(added) != 2 {
		t.Fatalf("first merge added %d, want 2", len(added))
	}

	// 第二轮解析出一条旧的和一条新的
	t1 := t0.Add(time.Hour)
	added, err = s.Merge([]extract.Candidate{
		{ID: "a2", Title: "Zweiter", Link: "https://example.com/2"},
		{ID: "a3", Title: "Dritter", Link: "https://example.com/3"},
	}, t1)
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	if len(added) != 1 {
		t.Fatalf("second merge added %d, want 1", len(added))
	}

	all := s.All()
	if len(all) != 3 {
		t.Fatalf("store size = %d, want 3", len(all))
	}
	// 发现顺序永不重排，新增只出现在尾部
	for i, want := range []string{"a1", "a2", "a3"} {
		if all[i].Identity != want {
			t.Fatalf("order[%d] = %q, want %q", i, all[i].Identity, want)
		}
	}
	if !all[2].DiscoveredAt.Equal(t1) {
		t.Fatalf("a3 discovered at %s, want %s", all[2].DiscoveredAt, t1)
	}
	// a2 的首次发现时间不被第二轮覆盖
	if !all[1].DiscoveredAt.Equal(t0) {
		t.Fatalf("a2 discovered at %s, want %s", all[1].DiscoveredAt, t0)
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	s, err := Load(testStorePath(t))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	cands := []extract.Candidate{
		{ID: "a1", Title: "Erster", Link: "https://example.com/1"},
		{ID: "a2", Title: "Zweiter", Link: "https://example.com/2"},
	}
	now := time.Now()
	if _, err := s.Merge(cands, now); err != nil {
		t.Fatalf("Merge error: %v", err)
	}

	added, err := s.Merge(cands, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("second Merge error: %v", err)
	}
	if len(added) != 0 {
		t.Fatalf("identical content merged again should add 0, got %d", len(added))
	}
	if s.Len() != 2 {
		t.Fatalf("store size = %d, want 2", s.Len())
	}
}

func TestMergeCarriesPublishHint(t *testing.T) {
	s, err := Load(testStorePath(t))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	added, err := s.Merge([]extract.Candidate{
		{ID: "a1", Title: "Erster", Link: "https://example.com/1", Published: "2026-08-29 18:30"},
	}, time.Now())
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	if len(added) != 1 || added[0].Published != "2026-08-29 18:30" {
		t.Fatalf("publish hint lost in merge: %+v", added)
	}

	// 发布时间只随本轮传递，不写入台账文件
	if err := s.Persist(); err != nil {
		t.Fatalf("Persist error: %v", err)
	}
	reloaded, err := Load(s.path)
	if err != nil {
		t.Fatalf("reload error: %v", err)
	}
	if got := reloaded.All()[0].Published; got != "" {
		t.Fatalf("publish hint persisted to ledger: %q", got)
	}
}

func TestAppendRejectsDuplicateIdentity(t *testing.T) {
	s, err := Load(testStorePath(t))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	a := Article{Identity: "a1", Title: "Erster", Link: "https://example.com/1", DiscoveredAt: time.Now()}
	if err := s.Append(a); err != nil {
		t.Fatalf("Append error: %v", err)
	}

	err = s.Append(Article{Identity: "a1", Title: "Anders", Link: "https://example.com/x", DiscoveredAt: time.Now()})
	if err == nil {
		t.Fatalf("expected DuplicateIdentityError")
	}
	var dup *DuplicateIdentityError
	if !errors.As(err, &dup) {
		t.Fatalf("error is not *DuplicateIdentityError: %v", err)
	}

	// 旧记录原样保留
	if got := s.All()[0].Title; got != "Erster" {
		t.Fatalf("original record overwritten: %q", got)
	}
}

func TestPersistAndLoadRoundTrip(t *testing.T) {
	path := testStorePath(t)
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	now := time.Date(2026, 3, 7, 18, 30, 0, 0, time.FixedZone("CET", 3600))
	if _, err := s.Merge([]extract.Candidate{
		{ID: "a1", Title: "Mit\tTab", Link: "https://example.com/1", Description: "€29,95 • Shirt"},
		{Title: "Ohne ID", Link: "https://example.com/2", Image: "https://example.com/2.jpg"},
	}, now); err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	if err := s.Persist(); err != nil {
		t.Fatalf("Persist error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload error: %v", err)
	}
	if loaded.Len() != 2 {
		t.Fatalf("reloaded size = %d, want 2", loaded.Len())
	}

	all := loaded.All()
	if all[0].Identity != "a1" || all[0].Title != "Mit\tTab" {
		t.Fatalf("record 0 mismatch: %+v", all[0])
	}
	if all[0].Description != "€29,95 • Shirt" {
		t.Fatalf("description lost: %q", all[0].Description)
	}
	if !all[0].DiscoveredAt.Equal(now) {
		t.Fatalf("timestamp mismatch: %s vs %s", all[0].DiscoveredAt, now)
	}
	// 没有站点 ID 的条目用链接哈希作 identity，重新加载后保持一致
	if !loaded.Contains(IdentityFor(extract.Candidate{Link: "https://example.com/2"})) {
		t.Fatalf("hash identity not stable across reload")
	}
}

func TestLoadMissingFileGivesEmptyStore(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "does-not-exist.tsv"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d records", s.Len())
	}
}

func TestLoadRejectsTruncatedFile(t *testing.T) {
	path := testStorePath(t)
	content := "Identity\tTitle\tLink\tDiscoveredAt\tDescription\tImage\tAuthor\n" +
		"a1\tErster\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected error for truncated row")
	}
	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("error is not *PersistenceError: %v", err)
	}
	if pe.Reason != ReasonPartialWrite {
		t.Fatalf("Reason = %q, want %q", pe.Reason, ReasonPartialWrite)
	}
}

func TestPersistLeavesNoTempFile(t *testing.T) {
	path := testStorePath(t)
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if _, err := s.Merge([]extract.Candidate{{ID: "a1", Title: "T", Link: "https://example.com/1"}}, time.Now()); err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	if err := s.Persist(); err != nil {
		t.Fatalf("Persist error: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("store file missing after persist: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
}

func TestLockIsExclusive(t *testing.T) {
	path := testStorePath(t)

	release, err := Lock(path)
	if err != nil {
		t.Fatalf("Lock error: %v", err)
	}

	if _, err := Lock(path); err == nil {
		t.Fatalf("second Lock should fail while held")
	}

	release()
	release2, err := Lock(path)
	if err != nil {
		t.Fatalf("Lock after release error: %v", err)
	}
	release2()
}

func TestLockRecoversFromStaleLockFile(t *testing.T) {
	path := testStorePath(t)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}

	// 崩溃的进程留下的锁：PID 超出 pid_max，肯定已不存在
	lock := path + ".lock"
	if err := os.WriteFile(lock, []byte("1073741824 2026-08-29T18:30:00Z\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	release, err := Lock(path)
	if err != nil {
		t.Fatalf("Lock should reclaim stale lock: %v", err)
	}
	release()
}

func TestLockTreatsCorruptLockFileAsStale(t *testing.T) {
	path := testStorePath(t)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}

	lock := path + ".lock"
	if err := os.WriteFile(lock, []byte("kaputt\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	release, err := Lock(path)
	if err != nil {
		t.Fatalf("Lock should reclaim corrupt lock: %v", err)
	}
	release()
}

func TestIdentityForPrefersProvidedID(t *testing.T) {
	c := extract.Candidate{ID: "io.home-connect", Link: "https://homey.app/a/io.home-connect"}
	if got := IdentityFor(c); got != "io.home-connect" {
		t.Fatalf("IdentityFor = %q, want provided ID", got)
	}

	c1 := extract.Candidate{Link: "https://example.com/a"}
	c2 := extract.Candidate{Link: "https://example.com/b"}
	if IdentityFor(c1) == IdentityFor(c2) {
		t.Fatalf("different links must hash to different identities")
	}
	if IdentityFor(c1) != IdentityFor(c1) {
		t.Fatalf("identity hash must be deterministic")
	}
}
