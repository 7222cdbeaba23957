package engine

import (
	"context"
	"fmt"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
	"github.com/rushteam/feedkit/pkg/utils"
)

// QuotaNode 计算每种内容类型的候选配额并写入 FeedContext.Quotas。
//
// 画像置信度低于阈值（冷启动）时走默认分布，不做个性化倾斜 ——
// 低置信度画像不该对目录自身的排序产生明显扰动。
type QuotaNode struct {
	// LowConfidenceThreshold 冷启动判定阈值，默认 0.3。
	// 负值表示关闭冷启动判定（任何画像都走个性化分布）
	LowConfidenceThreshold float64

	// FavoriteBoost 偏好类型的配额倾斜系数，默认 1.5。
	// 负值表示关闭倾斜（按 1.0 计）
	FavoriteBoost float64

	// ColdStart / Base 分布，nil 时用默认值
	ColdStart Distribution
	Base      Distribution
}

func (n *QuotaNode) Name() string        { return "engine.quota" }
func (n *QuotaNode) Kind() pipeline.Kind { return pipeline.KindQuota }

func (n *QuotaNode) threshold() float64 {
	return resolveTunable(n.LowConfidenceThreshold, 0.3)
}

func (n *QuotaNode) boost() float64 {
	// 倾斜系数的"关闭"是中性系数 1.0，不是 0（0 会清空偏好类型的配额）
	if n.FavoriteBoost < 0 {
		return 1.0
	}
	return resolveTunable(n.FavoriteBoost, 1.5)
}

func (n *QuotaNode) Process(
	_ context.Context,
	fctx *core.FeedContext,
	cards []*core.PersonalizedCard,
) ([]*core.PersonalizedCard, error) {
	if fctx == nil {
		return cards, nil
	}

	coldStart := n.ColdStart
	if coldStart == nil {
		coldStart = DefaultColdStartDistribution()
	}
	base := n.Base
	if base == nil {
		base = DefaultBaseDistribution()
	}

	if fctx.Profile == nil || fctx.Profile.Confidence < n.threshold() {
		fctx.Quotas = coldStart.Quotas(fctx.Limit)
		fctx.PutLabel("cold_start", utils.Label{Value: "true", Source: "quota"})
		return cards, nil
	}

	fctx.Quotas = PersonalizedQuotas(base, fctx.Profile, n.boost(), fctx.Limit)
	fctx.PutLabel("quota_mode", utils.Label{
		Value:  fmt.Sprintf("personalized:%.1fx", n.boost()),
		Source: "quota",
	})
	return cards, nil
}
