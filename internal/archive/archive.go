package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/LJTian/FeedBridge/internal/store"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ArchivedArticle 跨站点的历史归档。只服务 API 展示，
// 不参与去重——每个站点的 TSV 台账才是去重账本。
type ArchivedArticle struct {
	Site     string `gorm:"primaryKey;size:64" json:"site"`
	Identity string `gorm:"primaryKey;size:160" json:"identity"`

	Title       string            `gorm:"size:512" json:"title"`
	Link        string            `gorm:"size:1024;index" json:"link"`
	Description string            `gorm:"size:2048" json:"description"`
	ExtraData   datatypes.JSONMap `gorm:"type:jsonb" json:"extraData"`

	DiscoveredAt time.Time `gorm:"index" json:"discoveredAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Archive struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func New(dsn, redisAddr string) (*Archive, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&ArchivedArticle{}); err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if redisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: redisAddr})

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("warn: redis ping failed: %v", err)
		}
	}

	return &Archive{DB: db, Redis: rdb}, nil
}

const descMaxRunes = 2048

// SaveBatch 归档一批新发现的条目；已存在的记录原样保留，不更新
func (a *Archive) SaveBatch(siteSlug string, articles []store.Article) error {
	for _, art := range articles {
		rec := &ArchivedArticle{
			Site:         siteSlug,
			Identity:     art.Identity,
			Title:        toValidUTF8(art.Title),
			Link:         art.Link,
			Description:  truncateRunes(toValidUTF8(art.Description), descMaxRunes),
			ExtraData:    extraDataFor(art),
			DiscoveredAt: art.DiscoveredAt,
		}

		// 以 (site, identity) 作幂等键，重复归档是空操作
		if err := a.DB.Where("site = ? AND identity = ?", siteSlug, art.Identity).
			FirstOrCreate(rec).Error; err != nil {
			return err
		}
	}
	return nil
}

// ListArticles 按站点返回最近归档的条目，Redis 缓存 5 分钟
func (a *Archive) ListArticles(siteSlug string, limit int) ([]ArchivedArticle, error) {
	if limit <= 0 || limit > 1000 {
		limit = 20
	}

	ctx := context.Background()
	cacheKey := fmt.Sprintf("articles:list:%s:%d", siteSlug, limit)

	if a.Redis != nil {
		if bs, err := a.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []ArchivedArticle
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var list []ArchivedArticle
	db := a.DB.Model(&ArchivedArticle{})
	if siteSlug != "" {
		db = db.Where("site = ?", siteSlug)
	}
	if err := db.Order("discovered_at DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}

	const listCacheTTL = 5 * time.Minute
	if a.Redis != nil && len(list) > 0 {
		if bs, err := json.Marshal(list); err == nil {
			_ = a.Redis.Set(ctx, cacheKey, bs, listCacheTTL).Err()
		}
	}

	return list, nil
}

// extraDataFor 收集台账不落盘的附加字段：图片、作者、站点标注的发布时间
func extraDataFor(a store.Article) datatypes.JSONMap {
	extra := datatypes.JSONMap{}
	if a.Image != "" {
		extra["image"] = a.Image
	}
	if a.Author != "" {
		extra["author"] = a.Author
	}
	if a.Published != "" {
		extra["published"] = a.Published
	}
	return extra
}

// toValidUTF8 规范为合法 UTF-8，避免 PostgreSQL invalid byte sequence 错误
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "�")
}

// truncateRunes 按 rune 数截断，保证不超过数据库字段长度
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}
