// Package engine 实现个性化 feed 的装配链路：配额 → 拉取 → 过滤 → 打分 → 排序 → 注解。
package engine

import (
	"sort"

	"github.com/rushteam/feedkit/core"
)

// Distribution 是内容类型到目标占比的映射（占比和应为 1，允许少量舍入误差）。
type Distribution map[core.CardType]float64

// DefaultColdStartDistribution 是冷启动/匿名用户的默认类型分布。
// 新用户或任何错误路径都必须走到它。
func DefaultColdStartDistribution() Distribution {
	return Distribution{
		core.CardTypeLesson:  0.40,
		core.CardTypeStock:   0.30,
		core.CardTypeNews:    0.20,
		core.CardTypePodcast: 0.10,
	}
}

// DefaultBaseDistribution 是个性化路径的基础类型分布，
// 偏好类型在此基础上乘以配额倾斜系数后再归一化。
func DefaultBaseDistribution() Distribution {
	return Distribution{
		core.CardTypeLesson:    0.30,
		core.CardTypeStock:     0.25,
		core.CardTypeNews:      0.20,
		core.CardTypePodcast:   0.15,
		core.CardTypeCrypto:    0.05,
		core.CardTypeChallenge: 0.05,
	}
}

// Quotas 把分布换算成每类型的卡片配额。
// 不变量：Σquota ≤ limit（先取整，再按最大余数补齐到恰好 limit）。
func (d Distribution) Quotas(limit int) map[core.CardType]int {
	return weightedQuotas(d, nil, 1.0, limit)
}

// PersonalizedQuotas 在基础分布上对用户偏好类型乘以 boost（参考值 1.5），
// 重新归一化后换算配额。boost 是经验常量，可配置。
func PersonalizedQuotas(base Distribution, profile *core.UserPreferenceProfile, boost float64, limit int) map[core.CardType]int {
	var favorites map[core.CardType]bool
	if profile != nil && len(profile.FavoriteContentTypes) > 0 {
		favorites = make(map[core.CardType]bool, len(profile.FavoriteContentTypes))
		for _, t := range profile.FavoriteContentTypes {
			favorites[t] = true
		}
	}
	return weightedQuotas(base, favorites, boost, limit)
}

func weightedQuotas(base Distribution, favorites map[core.CardType]bool, boost float64, limit int) map[core.CardType]int {
	out := make(map[core.CardType]int, len(base))
	if limit <= 0 || len(base) == 0 {
		return out
	}
	if boost <= 0 {
		boost = 1.0
	}

	weights := make(map[core.CardType]float64, len(base))
	var total float64
	for t, share := range base {
		w := share
		if favorites[t] {
			w *= boost
		}
		weights[t] = w
		total += w
	}
	if total <= 0 {
		return out
	}

	// 先取整
	type rem struct {
		t core.CardType
		r float64
	}
	rems := make([]rem, 0, len(weights))
	assigned := 0
	for t, w := range weights {
		exact := w / total * float64(limit)
		q := int(exact)
		out[t] = q
		assigned += q
		rems = append(rems, rem{t: t, r: exact - float64(q)})
	}

	// 最大余数法补齐到恰好 limit；余数相同按固定类型顺序，保证确定性
	sort.SliceStable(rems, func(i, j int) bool {
		if rems[i].r != rems[j].r {
			return rems[i].r > rems[j].r
		}
		return typeOrder(rems[i].t) < typeOrder(rems[j].t)
	})
	for i := 0; i < len(rems) && assigned < limit; i++ {
		out[rems[i].t]++
		assigned++
	}
	return out
}

func typeOrder(t core.CardType) int {
	for i, ct := range core.AllCardTypes() {
		if ct == t {
			return i
		}
	}
	return len(core.AllCardTypes())
}
