// Package feed 是面向调用方的装配门面：把引擎、互动追踪、搜索与
// 互动计数聚到一个 Service 上，公开入口从不向调用方抛内部错误。
package feed

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rushteam/feedkit/analytics"
	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/engage"
	"github.com/rushteam/feedkit/engine"
)

// Service 是 feed 装配服务。
//
// 降级语义与引擎一致：个性化失败给基础 feed，基础 feed 失败给空切片，
// 互动计数失败只记日志。UI 永远拿得到一个可渲染的结果。
type Service struct {
	Engine  *engine.Engine
	Tracker *engage.Tracker

	// Insights 可选的效果度量层，下发与互动都会转发过去（fire-and-forget）
	Insights *analytics.Insights

	// Metrics 可选的 Prometheus 指标集
	Metrics *analytics.Metrics

	Logger *zap.Logger
}

func NewService(eng *engine.Engine, tracker *engage.Tracker) *Service {
	return &Service{Engine: eng, Tracker: tracker}
}

func (s *Service) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}

// GetPersonalizedFeed 返回一批个性化卡片。从不返回错误。
func (s *Service) GetPersonalizedFeed(ctx context.Context, userID string, limit int) []*core.PersonalizedCard {
	if s.Engine == nil {
		return []*core.PersonalizedCard{}
	}

	started := time.Now()
	cards := s.Engine.GenerateFeed(ctx, userID, limit)
	if s.Metrics != nil {
		s.Metrics.AssembleLatency.Observe(time.Since(started).Seconds())
	}

	if s.Insights != nil {
		s.Insights.ObserveFeed(userID, cards, "personalized")
	}
	return cards
}

// GetBasicFeed 返回非个性化的默认分布 feed（匿名用户或关闭个性化时用）。
func (s *Service) GetBasicFeed(ctx context.Context, userID string, limit int) []*core.Card {
	if s.Engine == nil {
		return []*core.Card{}
	}
	cards := s.Engine.BasicFeed(ctx, userID, limit)
	if s.Metrics != nil {
		s.Metrics.FeedsServed.WithLabelValues("basic").Inc()
	}
	return cards
}

// AppendPage 在已有 feed 后追加下一页，按 ID 去重。
// 翻页场景：前页卡片不重复出现，不足时以拿到的为准。
// 候选走 GenerateFresh 绕过缓存：TTL 内缓存批次与前页完全相同，
// 去重后新页会恒为空。
func (s *Service) AppendPage(ctx context.Context, userID string, current []*core.PersonalizedCard, pageSize int) []*core.PersonalizedCard {
	if s.Engine == nil {
		return current
	}

	seen := make(map[string]bool, len(current))
	for _, pc := range current {
		if pc != nil && pc.Card != nil {
			seen[pc.Card.ID] = true
		}
	}

	// 多取一倍候选，去重后再截断，减少因重复导致的短页
	next := s.Engine.GenerateFresh(ctx, userID, pageSize*2)

	page := make([]*core.PersonalizedCard, 0, pageSize)
	for _, pc := range next {
		if pc == nil || pc.Card == nil || seen[pc.Card.ID] {
			continue
		}
		seen[pc.Card.ID] = true
		page = append(page, pc)
		if len(page) >= pageSize {
			break
		}
	}

	if s.Insights != nil && len(page) > 0 {
		s.Insights.ObserveFeed(userID, page, "personalized")
	}
	return append(current, page...)
}

// SearchCards 按关键词 + 过滤条件搜索卡片。搜索失败返回空切片。
func (s *Service) SearchCards(ctx context.Context, query string, f *core.SearchFilter) []*core.Card {
	if s.Engine == nil || s.Engine.Repo == nil {
		return []*core.Card{}
	}
	cards, err := s.Engine.Repo.Search(ctx, query, f)
	if err != nil {
		s.logger().Warn("card search failed", zap.String("query", query), zap.Error(err))
		return []*core.Card{}
	}
	return cards
}

// TrackInteraction 记录一次互动并同步互动计数。
// 行为日志写入失败会返回错误（调用方可重试）；计数自增失败只记日志。
func (s *Service) TrackInteraction(
	ctx context.Context,
	userID string,
	card *core.Card,
	action core.Action,
	ictx core.InteractionContext,
) error {
	if s.Tracker == nil {
		return core.NewDomainError(core.ModuleFeed, core.ErrorCodeUnavailable, "feed: tracker not configured")
	}

	if err := s.Tracker.TrackInteraction(ctx, userID, card, action, ictx); err != nil {
		return err
	}

	if s.Metrics != nil {
		s.Metrics.Interactions.WithLabelValues(string(action)).Inc()
	}

	if field := engagementField(action); field != "" && card != nil {
		s.UpdateCardEngagement(ctx, card.ID, field)
	}
	return nil
}

// UpdateCardEngagement 对卡片互动计数做原子自增。失败只记日志，不向上抛。
func (s *Service) UpdateCardEngagement(ctx context.Context, cardID, field string) {
	if s.Engine == nil || s.Engine.Repo == nil {
		return
	}
	if err := s.Engine.Repo.IncrementEngagement(ctx, cardID, field); err != nil {
		s.logger().Warn("engagement increment failed",
			zap.String("card_id", cardID),
			zap.String("field", field),
			zap.Error(err))
	}
}

// engagementField 把动作映射到互动计数字段，不计数的动作返回空串。
func engagementField(action core.Action) string {
	switch action {
	case core.ActionView:
		return "views"
	case core.ActionSave:
		return "saves"
	case core.ActionShare:
		return "shares"
	default:
		return ""
	}
}
