package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppPort string
	DataDir string

	FetchTimeout time.Duration
	FeedWindow   int
	Timezone     string

	CronSpec string

	PostgresDSN string
	RedisAddr   string

	BrowserScraperURL string

	WebhookURL   string
	WebhookToken string

	BasicAuthUser string
	BasicAuthPass string
}

func Load() *Config {
	cfg := &Config{
		AppPort:           getEnv("APP_PORT", "9000"),
		DataDir:           getEnv("DATA_DIR", "data"),
		FetchTimeout:      getEnvDuration("FETCH_TIMEOUT", 60*time.Second),
		FeedWindow:        getEnvInt("FEED_WINDOW", 50),
		Timezone:          getEnv("TIMEZONE", "Europe/Berlin"),
		CronSpec:          getEnv("CRON_SPEC", "*/30 * * * *"),
		PostgresDSN:       getEnv("POSTGRES_DSN", ""),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		BrowserScraperURL: getEnv("BROWSER_SCRAPER_URL", ""),
		WebhookURL:        getEnv("WEBHOOK_URL", ""),
		WebhookToken:      getEnv("WEBHOOK_TOKEN", ""),
		BasicAuthUser:     getEnv("APP_BASIC_USER", ""),
		BasicAuthPass:     getEnv("APP_BASIC_PASS", ""),
	}

	log.Printf("config loaded: port=%s dataDir=%s cron=%s window=%d timeout=%s",
		cfg.AppPort, cfg.DataDir, cfg.CronSpec, cfg.FeedWindow, cfg.FetchTimeout)
	return cfg
}

// Location 返回配置的时区；加载失败时退回固定偏移，保证 pubDate 始终可生成
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil || loc == nil {
		log.Printf("warn: load timezone %q failed, falling back to CET", c.Timezone)
		return time.FixedZone("CET", 3600)
	}
	return loc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		log.Printf("warn: invalid %s=%q, using default %d", key, v, def)
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		log.Printf("warn: invalid %s=%q, using default %s", key, v, def)
	}
	return def
}
