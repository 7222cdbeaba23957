package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rushteam/feedkit/analytics"
	"github.com/rushteam/feedkit/cache"
	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/filter"
	"github.com/rushteam/feedkit/pipeline"
	"github.com/rushteam/feedkit/pkg/utils"
)

// DefaultLimit 是未指定 limit 时的默认批次大小。
const DefaultLimit = 20

// ProfileProvider 为引擎提供用户画像（从不返回错误，失败时给零置信度空画像）。
type ProfileProvider interface {
	Profile(ctx context.Context, userID string) *core.UserPreferenceProfile
}

// Engine 是个性化引擎：单次调用的状态机为
//
//	画像 → 候选 → 打分 → 排序 → 注解 → 返回
//
// 除缓存与仓库外，调用之间不保留任何状态。
//
// 降级链（显式组合，不散落在各处的 catch 里）：
//   - 画像不可用        → 零置信度空画像（Provider 内部保证）
//   - 单类型拉取失败     → 该类型配额归零，装配继续（FetchNode 内部保证）
//   - 流水线错误        → 基础 feed 包装成 PersonalizedCard（fallback）
//   - 基础 feed 也失败  → 空切片
//
// 公开入口从不向调用方抛错。
type Engine struct {
	Repo     core.ContentRepository
	Profiles ProfileProvider
	Cache    *cache.FeedCache

	// ExtraFilters 追加在偏好降采样之后的过滤器（防重复、CEL 规则等）
	ExtraFilters []filter.Filter

	// Pipeline 完全自定义流水线（非 nil 时覆盖内置节点组合）
	Pipeline *pipeline.Pipeline

	// 以下为内置节点的参数，零值取各自默认，负值表示关闭对应项
	// （取值约定见各节点的字段说明）
	LowConfidenceThreshold float64
	FavoriteBoost          float64
	TypeBoost              float64
	DifficultyBoost        float64
	SectorBoost            float64
	FetchTimeout           time.Duration
	ColdStart              Distribution
	Base                   Distribution
	DisableShuffle         bool

	// FeedType 缓存键，默认 "default"
	FeedType string

	// Metrics 可选：缓存命中与降级的计数
	Metrics *analytics.Metrics

	Logger *zap.Logger
}

func (e *Engine) logger() *zap.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return zap.NewNop()
}

func (e *Engine) coldStart() Distribution {
	if e.ColdStart != nil {
		return e.ColdStart
	}
	return DefaultColdStartDistribution()
}

// GenerateFeed 装配一批个性化卡片。从不返回错误：
// 任何内部失败都表现为降级结果或空切片。
func (e *Engine) GenerateFeed(ctx context.Context, userID string, limit int) []*core.PersonalizedCard {
	if limit <= 0 {
		limit = DefaultLimit
	}

	// 缓存优先：TTL 内重复请求不重跑装配链路。
	// 缓存批次可能比本次请求大（上次 limit 更大），同样截断到 limit
	if e.Cache != nil {
		if cached := e.Cache.Get(ctx, userID, e.FeedType); len(cached) > 0 {
			if len(cached) > limit {
				cached = cached[:limit]
			}
			if e.Metrics != nil {
				e.Metrics.CacheHits.Inc()
				e.Metrics.FeedsServed.WithLabelValues("cached").Inc()
			}
			return wrapCached(cached)
		}
		if e.Metrics != nil {
			e.Metrics.CacheMisses.Inc()
		}
	}

	return e.assemble(ctx, userID, limit, true)
}

// GenerateFresh 跳过缓存读写重新装配一批卡片。
// 供翻页补充等场景使用：TTL 内复用缓存批次会让去重后的新页恒为空。
func (e *Engine) GenerateFresh(ctx context.Context, userID string, limit int) []*core.PersonalizedCard {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return e.assemble(ctx, userID, limit, false)
}

// assemble 跑一次完整装配链路。writeCache 控制结果是否写回缓存
// （翻页补充的超量批次不该覆盖正常批次）。
func (e *Engine) assemble(ctx context.Context, userID string, limit int, writeCache bool) []*core.PersonalizedCard {
	fctx := core.NewFeedContext(userID, limit)
	if e.FeedType != "" {
		fctx.FeedType = e.FeedType
	}
	if e.Profiles != nil {
		fctx.Profile = e.Profiles.Profile(ctx, userID)
	} else {
		fctx.Profile = core.EmptyProfile(userID)
	}

	p := e.Pipeline
	if p == nil {
		p = e.buildPipeline()
	}

	cards, err := p.Run(ctx, fctx, nil)
	if err != nil {
		e.logger().Warn("feed pipeline failed, serving fallback",
			zap.String("user_id", userID), zap.Error(err))
		if e.Metrics != nil {
			e.Metrics.FeedsServed.WithLabelValues("fallback").Inc()
		}
		return e.fallbackFeed(ctx, userID, limit)
	}
	if cards == nil {
		cards = []*core.PersonalizedCard{}
	}

	if writeCache && e.Cache != nil && len(cards) > 0 {
		e.Cache.Put(ctx, extractCards(cards), userID, e.FeedType)
	}
	return cards
}

// BasicFeed 返回非个性化的默认分布 feed（匿名用户/关闭个性化时用），
// 也是个性化路径冷启动时复用的同一套分布逻辑。
func (e *Engine) BasicFeed(ctx context.Context, userID string, limit int) []*core.Card {
	if limit <= 0 {
		limit = DefaultLimit
	}

	fctx := core.NewFeedContext(userID, limit)
	fctx.Quotas = e.coldStart().Quotas(limit)

	fetch := &FetchNode{Repo: e.Repo, Timeout: e.FetchTimeout}
	cards, err := fetch.Process(ctx, fctx, nil)
	if err != nil || len(cards) == 0 {
		return []*core.Card{}
	}

	if len(cards) > limit {
		cards = cards[:limit]
	}
	return extractCards(cards)
}

// buildPipeline 组装内置节点链。
func (e *Engine) buildPipeline() *pipeline.Pipeline {
	filters := make([]filter.Filter, 0, 1+len(e.ExtraFilters))
	filters = append(filters, &filter.PreferenceFilter{})
	filters = append(filters, e.ExtraFilters...)

	return &pipeline.Pipeline{
		Nodes: []pipeline.Node{
			&QuotaNode{
				LowConfidenceThreshold: e.LowConfidenceThreshold,
				FavoriteBoost:          e.FavoriteBoost,
				ColdStart:              e.ColdStart,
				Base:                   e.Base,
			},
			&FetchNode{Repo: e.Repo, Timeout: e.FetchTimeout},
			&filter.FilterNode{Filters: filters},
			&ScoreNode{
				TypeBoost:       e.TypeBoost,
				DifficultyBoost: e.DifficultyBoost,
				SectorBoost:     e.SectorBoost,
			},
			&OrderNode{DisableShuffle: e.DisableShuffle},
			&AnnotateNode{},
		},
	}
}

// fallbackFeed 把基础 feed 包装成 PersonalizedCard 形态（降级路径）。
func (e *Engine) fallbackFeed(ctx context.Context, userID string, limit int) []*core.PersonalizedCard {
	basic := e.BasicFeed(ctx, userID, limit)
	out := make([]*core.PersonalizedCard, 0, len(basic))
	for _, c := range basic {
		pc := core.NewPersonalizedCard(c)
		pc.Reason = ReasonFallback
		pc.Confidence = FallbackConfidence
		pc.RelevanceScore = 0.5
		pc.PutLabel("fallback", utils.Label{Value: "true", Source: "annotate"})
		out = append(out, pc)
	}
	return out
}

// wrapCached 把缓存批次重新包装成 PersonalizedCard 视图（保持 id 与顺序）。
func wrapCached(cards []*core.Card) []*core.PersonalizedCard {
	out := make([]*core.PersonalizedCard, 0, len(cards))
	for i, c := range cards {
		pc := core.NewPersonalizedCard(c)
		pc.Reason = ReasonCached
		pc.Confidence = FallbackConfidence
		if len(cards) > 1 {
			pc.RelevanceScore = 1 - float64(i)/float64(len(cards)-1)*0.5
		} else {
			pc.RelevanceScore = 1
		}
		pc.PutLabel("cache", utils.Label{Value: "hit", Source: "annotate"})
		out = append(out, pc)
	}
	return out
}

func extractCards(cards []*core.PersonalizedCard) []*core.Card {
	out := make([]*core.Card, 0, len(cards))
	for _, pc := range cards {
		if pc != nil && pc.Card != nil {
			out = append(out, pc.Card)
		}
	}
	return out
}
