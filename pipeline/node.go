package pipeline

import (
	"context"

	"github.com/rushteam/feedkit/core"
)

// Kind 用于标记 Node 类型，方便观测/治理/编排（例如按阶段打点）。
type Kind string

const (
	KindQuota    Kind = "quota"    // 配额阶段：计算每种内容类型的候选配额
	KindFetch    Kind = "fetch"    // 拉取阶段：按配额从内容仓库拉取候选卡片
	KindFilter   Kind = "filter"   // 过滤阶段：剔除/降采样不符合偏好的候选
	KindScore    Kind = "score"    // 打分阶段：对候选卡片计算个性化分数
	KindOrder    Kind = "order"    // 排序阶段：排序、打散、截断、去重
	KindAnnotate Kind = "annotate" // 注解阶段：归一化相关度、生成推荐理由
)

// Node 是 Pipeline 的最小可扩展单元。
// 统一采用"输入 cards -> 输出 cards"的形态，方便 fetch 生成、
// filter 截断、order 重排等操作。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		fctx *core.FeedContext,
		cards []*core.PersonalizedCard,
	) ([]*core.PersonalizedCard, error)
}
