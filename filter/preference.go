package filter

import (
	"context"
	"math/rand"

	"github.com/rushteam/feedkit/core"
)

// PreferenceFilter 按画像做概率降采样，而不是硬过滤：
// 难度/板块不匹配的卡片以较低概率保留，而不是直接丢弃 ——
// 保留探索与多样性，避免形成过滤气泡。
//
// 画像里没有对应偏好时该维度不生效（没有难度偏好就不降采样难度）。
type PreferenceFilter struct {
	// KeepDifficultyMismatch 难度不匹配时的保留概率，默认 0.2。
	// 经验常量，无推导依据，不要假设已调到最优。
	// 零值取默认，负值表示保留概率 0（不匹配即过滤）。
	KeepDifficultyMismatch float64

	// KeepSectorMismatch 板块不匹配时的保留概率，默认 0.3
	KeepSectorMismatch float64

	// Rand 返回 [0,1) 随机数，可注入便于测试；nil 时用 math/rand
	Rand func() float64
}

func (f *PreferenceFilter) Name() string {
	return "filter.preference"
}

func (f *PreferenceFilter) random() float64 {
	if f.Rand != nil {
		return f.Rand()
	}
	return rand.Float64()
}

func (f *PreferenceFilter) keepDifficulty() float64 {
	return keepProbability(f.KeepDifficultyMismatch, 0.2)
}

func (f *PreferenceFilter) keepSector() float64 {
	return keepProbability(f.KeepSectorMismatch, 0.3)
}

// keepProbability 解析保留概率：零值取默认，负值表示 0（硬过滤）。
func keepProbability(v, def float64) float64 {
	switch {
	case v > 0:
		return v
	case v < 0:
		return 0
	default:
		return def
	}
}

func (f *PreferenceFilter) ShouldFilter(
	_ context.Context,
	fctx *core.FeedContext,
	pc *core.PersonalizedCard,
) (bool, error) {
	if fctx == nil || fctx.Profile == nil || pc == nil || pc.Card == nil {
		return false, nil
	}
	p := fctx.Profile

	// 难度降采样：只对课程卡片、且画像里有难度偏好时生效
	if d := pc.Card.Difficulty(); d != "" && p.PreferredDifficulty != "" && d != p.PreferredDifficulty {
		if f.random() >= f.keepDifficulty() {
			return true, nil
		}
	}

	// 板块降采样：只对带板块的卡片、且画像里有板块偏好时生效
	if sector := pc.Card.Sector(); sector != "" && len(p.PreferredSectors) > 0 && !p.PrefersSector(sector) {
		if f.random() >= f.keepSector() {
			return true, nil
		}
	}

	return false, nil
}
