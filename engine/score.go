package engine

import (
	"context"
	"fmt"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
	"github.com/rushteam/feedkit/pkg/utils"
)

// ScoreNode 计算每张候选卡片的个性化分数：
//
//	score = basePriority × confidence + typeBoost + difficultyBoost + sectorBoost
//
// 加乘结构是有意为之：置信度缩放整条基线信号（低置信度画像
// 几乎不扰动目录自身的优先级排序），而类别加分是平的，
// 在不同基础优先级的卡片之间可比。
type ScoreNode struct {
	// TypeBoost 偏好类型加分，默认 20。
	// 以下均为经验常量，保持可配置，不要假设已调到最优。
	// 零值取默认，负值表示关闭该项加分（按 0 计）。
	TypeBoost float64

	// DifficultyBoost 难度匹配加分，默认 15
	DifficultyBoost float64

	// SectorBoost 板块匹配加分，默认 10
	SectorBoost float64
}

func (n *ScoreNode) Name() string        { return "engine.score" }
func (n *ScoreNode) Kind() pipeline.Kind { return pipeline.KindScore }

func (n *ScoreNode) typeBoost() float64 {
	return resolveTunable(n.TypeBoost, 20)
}

func (n *ScoreNode) difficultyBoost() float64 {
	return resolveTunable(n.DifficultyBoost, 15)
}

func (n *ScoreNode) sectorBoost() float64 {
	return resolveTunable(n.SectorBoost, 10)
}

// resolveTunable 解析可调参数：零值取默认，负值表示关闭（按 0 处理）。
// 与 go-redis 的超时约定同款（0 用默认、-1 禁用）。
func resolveTunable(v, def float64) float64 {
	switch {
	case v > 0:
		return v
	case v < 0:
		return 0
	default:
		return def
	}
}

func (n *ScoreNode) Process(
	_ context.Context,
	fctx *core.FeedContext,
	cards []*core.PersonalizedCard,
) ([]*core.PersonalizedCard, error) {
	var p *core.UserPreferenceProfile
	confidence := 0.0
	if fctx != nil && fctx.Profile != nil {
		p = fctx.Profile
		confidence = p.Confidence
	}

	for _, pc := range cards {
		if pc == nil || pc.Card == nil {
			continue
		}

		score := float64(pc.Card.Priority) * confidence

		if p != nil {
			if p.IsFavorite(pc.Card.Type) {
				score += n.typeBoost()
				pc.PutLabel("boost_type", utils.Label{Value: string(pc.Card.Type), Source: "score"})
			}
			if d := pc.Card.Difficulty(); d != "" && d == p.PreferredDifficulty {
				score += n.difficultyBoost()
				pc.PutLabel("boost_difficulty", utils.Label{Value: string(d), Source: "score"})
			}
			if sector := pc.Card.Sector(); sector != "" && p.PrefersSector(sector) {
				score += n.sectorBoost()
				pc.PutLabel("boost_sector", utils.Label{Value: sector, Source: "score"})
			}
		}

		pc.Score = score
		pc.PutLabel("score", utils.Label{Value: fmt.Sprintf("%.2f", score), Source: "score"})
	}
	return cards, nil
}
