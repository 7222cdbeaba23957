// Package engage 记录用户与卡片的互动，并组装会话级上下文。
package engage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rushteam/feedkit/core"
)

// Tracker 是互动追踪器：
//   - 浏览计时用 cardID -> 开始时间 的 map；TrackViewEnd 计算时长并清除条目
//   - 每次 TrackInteraction 恰好追加一条行为记录；同一浏览会话内
//     同卡同动作的快速连击由调用方去重，tracker 不去重
//   - SessionID 在一次 feed 浏览会话的生命周期内保持稳定，
//     附在每条记录上供后续分群分析
type Tracker struct {
	store core.InteractionStore

	mu        sync.Mutex
	viewStart map[string]time.Time
	sessionID string

	// now 可注入，便于测试
	now func() time.Time

	Logger *zap.Logger
}

func NewTracker(store core.InteractionStore) *Tracker {
	return &Tracker{
		store:     store,
		viewStart: make(map[string]time.Time),
		sessionID: uuid.NewString(),
		now:       time.Now,
	}
}

func (t *Tracker) logger() *zap.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return zap.NewNop()
}

// SessionID 返回当前浏览会话的标识。
func (t *Tracker) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID
}

// NewSession 开启一个新的浏览会话（例如用户重新进入 feed），返回新会话 ID。
// 未结束的浏览计时一并清空。
func (t *Tracker) NewSession() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessionID = uuid.NewString()
	t.viewStart = make(map[string]time.Time)
	return t.sessionID
}

// TrackViewStart 记录一张卡片开始被浏览。
func (t *Tracker) TrackViewStart(cardID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.viewStart[cardID] = t.now()
}

// TrackViewEnd 结束浏览计时并返回停留毫秒数。
// 没有匹配的 TrackViewStart 时返回 0，不报错。
func (t *Tracker) TrackViewEnd(cardID string) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	start, ok := t.viewStart[cardID]
	if !ok {
		return 0
	}
	delete(t.viewStart, cardID)
	return t.now().Sub(start).Milliseconds()
}

// TrackInteraction 追加一条行为记录。
// 会话 ID、时段、星期几由 tracker 补齐；卡片的板块/难度快照一并冗余写入，
// 让画像分析不必回查内容仓库。
func (t *Tracker) TrackInteraction(
	ctx context.Context,
	userID string,
	card *core.Card,
	action core.Action,
	ictx core.InteractionContext,
) error {
	if t.store == nil {
		return core.NewDomainError(core.ModuleInteraction, core.ErrorCodeUnavailable, "engage: interaction store not configured")
	}
	if userID == "" || card == nil {
		return core.NewDomainError(core.ModuleInteraction, core.ErrorCodeInvalidInput, "engage: user id and card are required")
	}

	now := t.now()
	if ictx.SessionID == "" {
		ictx.SessionID = t.SessionID()
	}
	ictx.TimeOfDay = now.Hour()
	ictx.DayOfWeek = int(now.Weekday())

	record := &core.UserInteraction{
		UserID:     userID,
		CardID:     card.ID,
		CardType:   card.Type,
		Action:     action,
		Context:    ictx,
		Timestamp:  now,
		Sector:     card.Sector(),
		Difficulty: card.Difficulty(),
	}

	if err := t.store.Append(ctx, record); err != nil {
		t.logger().Warn("interaction append failed",
			zap.String("user_id", userID),
			zap.String("card_id", card.ID),
			zap.String("action", string(action)),
			zap.Error(err))
		return fmt.Errorf("append interaction: %w", err)
	}
	return nil
}
