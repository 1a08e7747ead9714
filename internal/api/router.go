package api

import (
	"net/http"
	"os"
	"strconv"

	"github.com/LJTian/FeedBridge/internal/archive"
	"github.com/LJTian/FeedBridge/internal/site"
	"github.com/LJTian/FeedBridge/internal/store"
	"github.com/gin-gonic/gin"
)

type Server struct {
	sites   []site.Site
	dataDir string
	archive *archive.Archive // 可为 nil，此时文章接口直接读台账
}

func NewServer(sites []site.Site, dataDir string, arc *archive.Archive) *Server {
	return &Server{sites: sites, dataDir: dataDir, archive: arc}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)
	r.GET("/feeds", s.listFeeds)
	r.GET("/feeds/:site/feed.xml", s.serveFeed)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/articles", s.listArticles)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listFeeds(c *gin.Context) {
	type feedInfo struct {
		Site string `json:"site"`
		Name string `json:"name"`
		URL  string `json:"url"`
	}
	out := make([]feedInfo, 0, len(s.sites))
	for _, st := range s.sites {
		out = append(out, feedInfo{
			Site: st.Slug,
			Name: st.Name,
			URL:  "/feeds/" + st.Slug + "/feed.xml",
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    out,
	})
}

// findSite 只在本服务实例配置的站点里找，不走全局清单
func (s *Server) findSite(slug string) (site.Site, bool) {
	for _, st := range s.sites {
		if st.Slug == slug {
			return st, true
		}
	}
	return site.Site{}, false
}

func (s *Server) serveFeed(c *gin.Context) {
	st, ok := s.findSite(c.Param("site"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "not_found",
			"message": "unknown site",
		})
		return
	}

	data, err := os.ReadFile(st.FeedPath(s.dataDir))
	if err != nil {
		// 还没跑过同步就没有 Feed 文件
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "not_found",
			"message": "feed not generated yet",
		})
		return
	}

	c.Data(http.StatusOK, "application/rss+xml; charset=utf-8", data)
}

func (s *Server) listArticles(c *gin.Context) {
	siteSlug := c.Query("site")

	limitStr := c.DefaultQuery("limit", "20")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 20
	}

	if s.archive != nil {
		items, err := s.archive.ListArticles(siteSlug, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "internal_error",
				"message": "internal server error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"code":    "ok",
			"message": "success",
			"data":    items,
		})
		return
	}

	// 无归档库时读台账，取尾部 limit 条并倒序，和 Feed 的排序一致
	items, err := s.articlesFromLedger(siteSlug, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    items,
	})
}

type ledgerArticle struct {
	Site         string `json:"site"`
	Identity     string `json:"identity"`
	Title        string `json:"title"`
	Link         string `json:"link"`
	Description  string `json:"description,omitempty"`
	DiscoveredAt string `json:"discovered_at"`
}

func (s *Server) articlesFromLedger(siteSlug string, limit int) ([]ledgerArticle, error) {
	var sites []site.Site
	if siteSlug != "" {
		st, ok := s.findSite(siteSlug)
		if !ok {
			return []ledgerArticle{}, nil
		}
		sites = []site.Site{st}
	} else {
		sites = s.sites
	}

	out := make([]ledgerArticle, 0, limit)
	for _, st := range sites {
		ledger, err := store.Load(st.StorePath(s.dataDir))
		if err != nil {
			return nil, err
		}
		all := ledger.All()
		for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
			a := all[i]
			out = append(out, ledgerArticle{
				Site:         st.Slug,
				Identity:     a.Identity,
				Title:        a.Title,
				Link:         a.Link,
				Description:  a.Description,
				DiscoveredAt: a.DiscoveredAt.Format("2006-01-02 15:04:05"),
			})
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}
