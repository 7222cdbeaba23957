package filter

import (
	"context"
	"time"

	"github.com/rushteam/feedkit/core"
)

// seenSetKey 是 FeedContext.Params 里缓存已看集合的私有键，
// 避免同一次请求对每张卡片重复查询行为日志。
const seenSetKey = "_filter_seen_set"

// SeenFilter 是防重复过滤器：过滤掉用户近期已经消费完/明确划走的卡片。
// 数据源是行为日志（swipe_left / complete 记录）。
type SeenFilter struct {
	Store core.InteractionStore

	// Window 回看窗口，默认 7 天
	Window time.Duration

	// Actions 哪些动作算"已消费"，空时取 swipe_left + complete
	Actions []core.Action
}

func (f *SeenFilter) Name() string {
	return "filter.seen"
}

func (f *SeenFilter) actions() []core.Action {
	if len(f.Actions) > 0 {
		return f.Actions
	}
	return []core.Action{core.ActionSwipeLeft, core.ActionComplete}
}

func (f *SeenFilter) ShouldFilter(
	ctx context.Context,
	fctx *core.FeedContext,
	pc *core.PersonalizedCard,
) (bool, error) {
	if f.Store == nil || fctx == nil || fctx.UserID == "" || pc == nil || pc.Card == nil {
		return false, nil
	}

	seen, err := f.seenSet(ctx, fctx)
	if err != nil {
		// 日志查询失败时放行：宁可重复，不可丢 feed
		return false, nil
	}
	return seen[pc.Card.ID], nil
}

// seenSet 拉取并缓存本次请求的已看集合（每请求至多查询一次）。
func (f *SeenFilter) seenSet(ctx context.Context, fctx *core.FeedContext) (map[string]bool, error) {
	if fctx.Params != nil {
		if cached, ok := fctx.Params[seenSetKey].(map[string]bool); ok {
			return cached, nil
		}
	}

	window := f.Window
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}
	now := time.Now()
	interactions, err := f.Store.Query(ctx, fctx.UserID, now.Add(-window), now)
	if err != nil {
		return nil, err
	}

	wanted := make(map[core.Action]bool, len(f.actions()))
	for _, a := range f.actions() {
		wanted[a] = true
	}

	seen := make(map[string]bool, len(interactions))
	for _, it := range interactions {
		if wanted[it.Action] {
			seen[it.CardID] = true
		}
	}

	if fctx.Params == nil {
		fctx.Params = make(map[string]any)
	}
	fctx.Params[seenSetKey] = seen
	return seen, nil
}
