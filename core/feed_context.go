package core

import "github.com/rushteam/feedkit/pkg/utils"

// FeedContext 承载一次 feed 请求的用户/场景/实时信息，贯穿整个 Pipeline 透传。
type FeedContext struct {
	UserID    string
	SessionID string

	// FeedType 区分不同的 feed 场景（默认 "default"），同时是缓存 key
	FeedType string

	// Limit 本次请求希望返回的卡片数
	Limit int

	// Profile 是本次请求使用的偏好画像（请求开始时算好，链路内只读）
	Profile *UserPreferenceProfile

	// Quotas 是按类型分配的候选配额（quota 阶段写入，fetch 阶段消费）
	Quotas map[CardType]int

	// Labels 是请求级标签，可驱动整个 Pipeline 行为
	// 例如：cold_start、fallback 等
	Labels map[string]utils.Label

	// Params 请求级上下文参数（time_of_day、query 等）
	Params map[string]any
}

// NewFeedContext 创建一次 feed 请求的上下文。
func NewFeedContext(userID string, limit int) *FeedContext {
	return &FeedContext{
		UserID:   userID,
		FeedType: "default",
		Limit:    limit,
		Quotas:   make(map[CardType]int),
		Labels:   make(map[string]utils.Label),
		Params:   make(map[string]any),
	}
}

// PutLabel 写入请求级 Label。
func (fctx *FeedContext) PutLabel(key string, lbl utils.Label) {
	if fctx.Labels == nil {
		fctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := fctx.Labels[key]; ok {
		fctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	fctx.Labels[key] = lbl
}

// GetLabel 获取请求级 Label。
func (fctx *FeedContext) GetLabel(key string) (utils.Label, bool) {
	if fctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := fctx.Labels[key]
	return lbl, ok
}
