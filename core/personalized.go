package core

import "github.com/rushteam/feedkit/pkg/utils"

// PersonalizedCard 是 Card 在一次 feed 装配中的个性化视图：
// 原始分、归一化相关度、推荐理由、置信度、可解释 Label。
//
// 它在每次装配时新建，从不作为权威状态持久化 —— Card 才是事实源，
// 个性化字段只是本次请求的视图。
type PersonalizedCard struct {
	Card *Card

	// Score 是流水线内部的原始打分（排序用，未归一化）
	Score float64

	// RelevanceScore 是归一化后的相关度（0-1），由 annotate 阶段写入
	RelevanceScore float64

	// Reason 是面向用户的推荐理由，例如 "Matches your interest in Technology"
	Reason string

	// Confidence 是本条推荐的置信度（0-1），通常取画像置信度
	Confidence float64

	// Labels 记录各阶段的决策痕迹，用于 explain / 观测
	Labels map[string]utils.Label
}

// NewPersonalizedCard 把一张 Card 包装成链路承载结构。
func NewPersonalizedCard(c *Card) *PersonalizedCard {
	return &PersonalizedCard{
		Card:   c,
		Labels: make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (pc *PersonalizedCard) PutLabel(key string, lbl utils.Label) {
	if pc.Labels == nil {
		pc.Labels = make(map[string]utils.Label)
	}
	if old, ok := pc.Labels[key]; ok {
		pc.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	pc.Labels[key] = lbl
}

// GetLabel 读取 Label。
func (pc *PersonalizedCard) GetLabel(key string) (utils.Label, bool) {
	if pc.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := pc.Labels[key]
	return lbl, ok
}
