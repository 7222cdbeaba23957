package config

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/rushteam/feedkit/cache"
	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/engine"
	"github.com/rushteam/feedkit/profile"
	"github.com/rushteam/feedkit/store"
)

// Config 是应用级配置，所有字段都有可用的零值默认。
type Config struct {
	Feed struct {
		DefaultLimit   int    `yaml:"default_limit"`
		FeedType       string `yaml:"feed_type"`
		DisableShuffle bool   `yaml:"disable_shuffle"`
	} `yaml:"feed"`

	Quota struct {
		LowConfidenceThreshold float64            `yaml:"low_confidence_threshold"`
		FavoriteBoost          float64            `yaml:"favorite_boost"`
		ColdStart              map[string]float64 `yaml:"cold_start"`
		Base                   map[string]float64 `yaml:"base"`
	} `yaml:"quota"`

	Scoring struct {
		TypeBoost       float64 `yaml:"type_boost"`
		DifficultyBoost float64 `yaml:"difficulty_boost"`
		SectorBoost     float64 `yaml:"sector_boost"`
	} `yaml:"scoring"`

	Fetch struct {
		TimeoutMs     int `yaml:"timeout_ms"`
		MaxConcurrent int `yaml:"max_concurrent"`
	} `yaml:"fetch"`

	Cache struct {
		TTLMinutes           int `yaml:"ttl_minutes"`
		MaxCards             int `yaml:"max_cards"`
		SweepIntervalMinutes int `yaml:"sweep_interval_minutes"`
	} `yaml:"cache"`

	Profile struct {
		LookbackDays  int     `yaml:"lookback_days"`
		SeedThreshold float64 `yaml:"seed_threshold"`
	} `yaml:"profile"`

	Store struct {
		// Backend 取值 memory 或 redis
		Backend string `yaml:"backend"`
		Redis   struct {
			Addr string `yaml:"addr"`
			DB   int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"store"`

	Feast struct {
		Enabled bool   `yaml:"enabled"`
		Host    string `yaml:"host"`
		Port    int    `yaml:"port"`
		Project string `yaml:"project"`
	} `yaml:"feast"`
}

// Load 从 YAML 文件加载应用配置。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse 解析 YAML 配置内容。
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 做轻量校验（后端取值、分布占比非负）。
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "", "memory", "redis":
	default:
		return fmt.Errorf("store.backend must be memory or redis, got %q", c.Store.Backend)
	}
	for name, dist := range map[string]map[string]float64{
		"quota.cold_start": c.Quota.ColdStart,
		"quota.base":       c.Quota.Base,
	} {
		for t, share := range dist {
			if share < 0 {
				return fmt.Errorf("%s.%s: share must be non-negative", name, t)
			}
		}
	}
	return nil
}

// NewStore 按配置选择后端存储。不读环境变量，后端选择必须显式。
func (c *Config) NewStore() (core.KeyValueStore, error) {
	switch c.Store.Backend {
	case "", "memory":
		return store.NewMemoryStore(), nil
	case "redis":
		return store.NewRedisStore(c.Store.Redis.Addr, c.Store.Redis.DB)
	default:
		return nil, fmt.Errorf("unknown store backend: %q", c.Store.Backend)
	}
}

// NewCache 按配置构建 feed 缓存。kv 可为 nil（纯内存缓存）。
func (c *Config) NewCache(kv core.Store, logger *zap.Logger) *cache.FeedCache {
	fc := cache.NewFeedCache()
	fc.Store = kv
	fc.Logger = logger
	fc.TTL = time.Duration(c.Cache.TTLMinutes) * time.Minute
	fc.MaxCards = c.Cache.MaxCards
	fc.SweepInterval = time.Duration(c.Cache.SweepIntervalMinutes) * time.Minute
	return fc
}

// NewProfileProvider 按配置构建画像提供者，Feast 开启时挂上远端特征源。
func (c *Config) NewProfileProvider(interactions core.InteractionStore, logger *zap.Logger) (*profile.Provider, error) {
	p := profile.NewProvider(profile.NewAnalyzer(), interactions)
	p.Logger = logger
	p.Lookback = time.Duration(c.Profile.LookbackDays) * 24 * time.Hour
	p.SeedThreshold = c.Profile.SeedThreshold

	if c.Feast.Enabled {
		remote, err := profile.NewFeastSource(c.Feast.Host, c.Feast.Port, c.Feast.Project)
		if err != nil {
			return nil, fmt.Errorf("connect feast: %w", err)
		}
		p.Remote = remote
	}
	return p, nil
}

// NewEngine 按配置构建引擎。profiles 与 feedCache 可为 nil（匿名场景）。
func (c *Config) NewEngine(repo core.ContentRepository, profiles engine.ProfileProvider, feedCache *cache.FeedCache, logger *zap.Logger) *engine.Engine {
	return &engine.Engine{
		Repo:                   repo,
		Profiles:               profiles,
		Cache:                  feedCache,
		LowConfidenceThreshold: c.Quota.LowConfidenceThreshold,
		FavoriteBoost:          c.Quota.FavoriteBoost,
		TypeBoost:              c.Scoring.TypeBoost,
		DifficultyBoost:        c.Scoring.DifficultyBoost,
		SectorBoost:            c.Scoring.SectorBoost,
		FetchTimeout:           time.Duration(c.Fetch.TimeoutMs) * time.Millisecond,
		ColdStart:              toDistribution(c.Quota.ColdStart),
		Base:                   toDistribution(c.Quota.Base),
		DisableShuffle:         c.Feed.DisableShuffle,
		FeedType:               c.Feed.FeedType,
		Logger:                 logger,
	}
}

func toDistribution(m map[string]float64) engine.Distribution {
	if len(m) == 0 {
		return nil
	}
	dist := make(engine.Distribution, len(m))
	for t, share := range m {
		dist[core.CardType(t)] = share
	}
	return dist
}
