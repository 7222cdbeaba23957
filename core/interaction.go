package core

import "time"

// Action 是用户对卡片的动作类型。
type Action string

const (
	ActionView       Action = "view"
	ActionSwipeRight Action = "swipe_right"
	ActionSwipeLeft  Action = "swipe_left"
	ActionSave       Action = "save"
	ActionShare      Action = "share"
	ActionComplete   Action = "complete"
)

// Positive 判断动作是否为正向信号。
// 正向动作（save/share/complete/swipe_right）在画像统计中权重更高；
// view 是中性信号，swipe_left 是负向信号。
func (a Action) Positive() bool {
	switch a {
	case ActionSave, ActionShare, ActionComplete, ActionSwipeRight:
		return true
	}
	return false
}

// InteractionContext 是一次动作发生时的会话上下文，
// 用于后续的分群分析（时段偏好、位置偏好等）。
type InteractionContext struct {
	TimeSpentMs int64  `json:"time_spent_ms"` // 停留时长（view_end 时由 tracker 计算）
	Position    int    `json:"position"`      // 卡片在 feed 中的位置（从 0 开始）
	SessionID   string `json:"session_id"`    // 同一次浏览会话内保持稳定
	TimeOfDay   int    `json:"time_of_day"`   // 0-23
	DayOfWeek   int    `json:"day_of_week"`   // 0=Sunday ... 6=Saturday
}

// UserInteraction 是用户行为日志的一条记录。
// 追加写入，从不更新或删除（用户数据导出/删除请求除外，不在本库范围内）。
type UserInteraction struct {
	UserID    string             `json:"user_id"`
	CardID    string             `json:"card_id"`
	CardType  CardType           `json:"card_type"`
	Action    Action             `json:"action"`
	Context   InteractionContext `json:"context"`
	Timestamp time.Time          `json:"timestamp"`

	// Sector / Difficulty 是卡片属性在记录时刻的快照（tracker 冗余写入），
	// 让画像分析不必回查内容仓库
	Sector     string     `json:"sector,omitempty"`
	Difficulty Difficulty `json:"difficulty,omitempty"`
}
