package engine

import (
	"context"
	"fmt"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
	"github.com/rushteam/feedkit/pkg/utils"
)

// UI 直接展示的推荐理由文案。
const (
	ReasonSector     = "Matches your interest in %s"
	ReasonType       = "From your favorite content type"
	ReasonDifficulty = "Matches your skill level"
	ReasonGeneral    = "General recommendation"
	ReasonFallback   = "Fallback recommendation"
	ReasonCached     = "From your recent feed"
)

// FallbackConfidence 是降级/通用推荐的固定置信度。
const FallbackConfidence = 0.3

// AnnotateNode 为最终结果附加个性化元信息：
//   - RelevanceScore：按批次最高分归一化到 0-1
//   - Reason：按"板块 > 类型 > 难度"的优先级取第一条命中的规则，
//     没有规则命中时给通用文案
//   - Confidence：取画像置信度
type AnnotateNode struct{}

func (n *AnnotateNode) Name() string        { return "engine.annotate" }
func (n *AnnotateNode) Kind() pipeline.Kind { return pipeline.KindAnnotate }

func (n *AnnotateNode) Process(
	_ context.Context,
	fctx *core.FeedContext,
	cards []*core.PersonalizedCard,
) ([]*core.PersonalizedCard, error) {
	if len(cards) == 0 {
		return cards, nil
	}

	confidence := FallbackConfidence
	if fctx != nil && fctx.Profile != nil && fctx.Profile.Confidence > confidence {
		confidence = fctx.Profile.Confidence
	}

	maxScore := 0.0
	for _, pc := range cards {
		if pc != nil && pc.Score > maxScore {
			maxScore = pc.Score
		}
	}

	for _, pc := range cards {
		if pc == nil {
			continue
		}

		if maxScore > 0 {
			pc.RelevanceScore = pc.Score / maxScore
		}
		if pc.RelevanceScore < 0 {
			pc.RelevanceScore = 0
		}
		if pc.RelevanceScore > 1 {
			pc.RelevanceScore = 1
		}

		pc.Reason = reasonFor(pc)
		pc.Confidence = confidence
		pc.PutLabel("reason", utils.Label{Value: pc.Reason, Source: "annotate"})
	}
	return cards, nil
}

// reasonFor 根据打分阶段留下的 boost 标签选择推荐理由。
func reasonFor(pc *core.PersonalizedCard) string {
	if lbl, ok := pc.GetLabel("boost_sector"); ok && lbl.Value != "" {
		return fmt.Sprintf(ReasonSector, lbl.Value)
	}
	if _, ok := pc.GetLabel("boost_type"); ok {
		return ReasonType
	}
	if _, ok := pc.GetLabel("boost_difficulty"); ok {
		return ReasonDifficulty
	}
	return ReasonGeneral
}
