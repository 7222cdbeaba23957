package engine

import (
	"context"
	"math/rand"
	"sort"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
)

// OrderNode 对打分后的候选做最终排序：
//  1. 按分数降序排序（平局保持稳定）
//  2. 均匀随机打散（Fisher–Yates，不是加权抽样）——
//     避免同一缓存窗口内反复请求得到一成不变的 top-N
//  3. 按 ID 去重后截断到 Limit
//
// 打散可以关掉（测试或需要确定性输出的场景）。
type OrderNode struct {
	// Shuffle 是否打散，默认开启；DisableShuffle 为 true 时跳过
	DisableShuffle bool

	// Rand 可注入的随机源，nil 时用 math/rand 全局源
	Rand *rand.Rand
}

func (n *OrderNode) Name() string        { return "engine.order" }
func (n *OrderNode) Kind() pipeline.Kind { return pipeline.KindOrder }

func (n *OrderNode) intn(max int) int {
	if n.Rand != nil {
		return n.Rand.Intn(max)
	}
	return rand.Intn(max)
}

func (n *OrderNode) Process(
	_ context.Context,
	fctx *core.FeedContext,
	cards []*core.PersonalizedCard,
) ([]*core.PersonalizedCard, error) {
	if len(cards) == 0 {
		return cards, nil
	}

	out := make([]*core.PersonalizedCard, 0, len(cards))
	out = append(out, cards...)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	if !n.DisableShuffle {
		// Fisher–Yates：候选集已经过配额/过滤，整体即"符合偏好的集合"，
		// 在其内部均匀打散不破坏偏好约束
		for i := len(out) - 1; i > 0; i-- {
			j := n.intn(i + 1)
			out[i], out[j] = out[j], out[i]
		}
	}

	out = dedupeByID(out)

	limit := 0
	if fctx != nil {
		limit = fctx.Limit
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
