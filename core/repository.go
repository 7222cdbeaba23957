package core

import (
	"context"
	"time"
)

// ContentRepository 是内容仓库的领域接口（外部协作方）。
// Card 的持久化由它独占；feed 缓存只持有 Card 的副本，
// 缓存失效从不触碰仓库里的权威记录。
type ContentRepository interface {
	// FetchByType 按类型拉取候选卡片，按 priority 降序、再按 created_at 降序返回
	FetchByType(ctx context.Context, t CardType, limit int) ([]*Card, error)

	// Search 按关键词 + 过滤条件搜索卡片
	Search(ctx context.Context, query string, filter *SearchFilter) ([]*Card, error)

	// Create 写入新卡片
	Create(ctx context.Context, card *Card) error

	// IncrementEngagement 对卡片的互动计数器做原子自增
	// field 取 "views" / "saves" / "shares"
	IncrementEngagement(ctx context.Context, cardID, field string) error

	// Delete 删除卡片
	Delete(ctx context.Context, cardID string) error
}

// SearchFilter 是搜索的过滤条件，零值表示不限制。
type SearchFilter struct {
	Types  []CardType // 限定类型
	Tags   []string   // 命中任一标签即可
	Sector string     // 限定板块
	Limit  int        // 返回上限（<=0 表示用默认值）
}

// InteractionStore 是行为日志的领域接口（外部协作方）。
// 追加写 + 按时间窗口查询，UserInteraction 的持久化由它独占。
type InteractionStore interface {
	// Append 追加一条行为记录（每次 TrackInteraction 恰好写入一条）
	Append(ctx context.Context, interaction *UserInteraction) error

	// Query 查询用户在 [start, end] 内的行为记录，按时间升序返回
	Query(ctx context.Context, userID string, start, end time.Time) ([]*UserInteraction, error)
}
