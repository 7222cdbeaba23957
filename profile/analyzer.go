// Package profile 从行为日志推导用户偏好画像。
package profile

import (
	"math"
	"sort"
	"time"

	"github.com/rushteam/feedkit/core"
)

// DefaultActionWeights 是各动作在画像统计中的默认权重。
// 正向动作（save/share/complete/swipe_right）权重高于中性/负向动作；
// 这些是经验常量，可按场景覆盖，不要假设它们已调到最优。
var DefaultActionWeights = map[core.Action]float64{
	core.ActionView:       1.0,
	core.ActionSwipeLeft:  0.5,
	core.ActionSwipeRight: 2.0,
	core.ActionSave:       3.0,
	core.ActionShare:      3.0,
	core.ActionComplete:   4.0,
}

const (
	// defaultSampleCap 置信度封顶所需样本数：confidence = min(1, n/sampleCap)。
	// n < 6 时 confidence < 0.3，正好落在冷启动阈值之下。
	defaultSampleCap = 20

	// defaultMaxSectors 偏好板块集合的上限，避免画像过宽失去区分度
	defaultMaxSectors = 3
)

// Analyzer 是偏好画像分析器：纯读 + 计算，无副作用，从不写行为日志。
type Analyzer struct {
	// ActionWeights 动作权重，nil 时用 DefaultActionWeights
	ActionWeights map[core.Action]float64

	// SampleCap 置信度封顶样本数（<=0 用默认值）
	SampleCap int

	// MaxSectors 偏好板块上限（<=0 用默认值）
	MaxSectors int
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

func (a *Analyzer) weight(action core.Action) float64 {
	weights := a.ActionWeights
	if weights == nil {
		weights = DefaultActionWeights
	}
	if w, ok := weights[action]; ok {
		return w
	}
	return 1.0
}

// Compute 从一个回看窗口内的行为记录推导画像。
//
// - 偏好内容类型：按加权互动量降序，权重相同时最近互动过的在前
// - 偏好板块/难度：正向互动中的众数（无对应互动时为空）
// - 置信度：随样本量单调递增、封顶 1.0；样本不足时低于冷启动阈值，
//   下游据此退回非个性化默认分布
func (a *Analyzer) Compute(userID string, interactions []*core.UserInteraction) *core.UserPreferenceProfile {
	p := core.EmptyProfile(userID)
	if len(interactions) == 0 {
		return p
	}

	typeWeight := make(map[core.CardType]float64)
	typeLatest := make(map[core.CardType]time.Time)
	sectorCount := make(map[string]int)
	difficultyCount := make(map[core.Difficulty]int)
	sessionTime := make(map[string]int64) // sessionID -> 累计停留毫秒

	for _, it := range interactions {
		if it == nil {
			continue
		}
		typeWeight[it.CardType] += a.weight(it.Action)
		if it.Timestamp.After(typeLatest[it.CardType]) {
			typeLatest[it.CardType] = it.Timestamp
		}

		if it.Action.Positive() {
			if it.Sector != "" {
				sectorCount[it.Sector]++
			}
			if it.Difficulty != "" {
				difficultyCount[it.Difficulty]++
			}
		}

		if it.Context.TimeSpentMs > 0 && it.Context.SessionID != "" {
			sessionTime[it.Context.SessionID] += it.Context.TimeSpentMs
		}
	}

	p.FavoriteContentTypes = rankTypes(typeWeight, typeLatest)
	p.PreferredSectors = topSectors(sectorCount, a.maxSectors())
	p.PreferredDifficulty = modeDifficulty(difficultyCount)
	p.OptimalSessionLengthMinutes = avgSessionMinutes(sessionTime)
	p.Confidence = a.confidence(len(interactions))
	p.LastUpdated = time.Now()
	return p
}

func (a *Analyzer) maxSectors() int {
	if a.MaxSectors > 0 {
		return a.MaxSectors
	}
	return defaultMaxSectors
}

// confidence 随样本量线性增长并封顶 1.0。
func (a *Analyzer) confidence(n int) float64 {
	cap := a.SampleCap
	if cap <= 0 {
		cap = defaultSampleCap
	}
	return math.Min(1.0, float64(n)/float64(cap))
}

// rankTypes 按加权互动量降序排列内容类型，平局时最近互动过的在前。
func rankTypes(weights map[core.CardType]float64, latest map[core.CardType]time.Time) []core.CardType {
	types := make([]core.CardType, 0, len(weights))
	for t := range weights {
		types = append(types, t)
	}
	sort.SliceStable(types, func(i, j int) bool {
		wi, wj := weights[types[i]], weights[types[j]]
		if wi != wj {
			return wi > wj
		}
		return latest[types[i]].After(latest[types[j]])
	})
	return types
}

// topSectors 取正向互动量最高的若干板块。
func topSectors(counts map[string]int, limit int) map[string]bool {
	if len(counts) == 0 {
		return make(map[string]bool)
	}
	sectors := make([]string, 0, len(counts))
	for s := range counts {
		sectors = append(sectors, s)
	}
	sort.SliceStable(sectors, func(i, j int) bool {
		if counts[sectors[i]] != counts[sectors[j]] {
			return counts[sectors[i]] > counts[sectors[j]]
		}
		return sectors[i] < sectors[j]
	})
	if len(sectors) > limit {
		sectors = sectors[:limit]
	}
	out := make(map[string]bool, len(sectors))
	for _, s := range sectors {
		out[s] = true
	}
	return out
}

func modeDifficulty(counts map[core.Difficulty]int) core.Difficulty {
	var best core.Difficulty
	bestCount := 0
	// 平局时偏向更低的难度（beginner < intermediate < advanced）
	order := []core.Difficulty{core.DifficultyBeginner, core.DifficultyIntermediate, core.DifficultyAdvanced}
	for _, d := range order {
		if counts[d] > bestCount {
			best = d
			bestCount = counts[d]
		}
	}
	return best
}

func avgSessionMinutes(sessionTime map[string]int64) float64 {
	if len(sessionTime) == 0 {
		return 0
	}
	var total int64
	for _, ms := range sessionTime {
		total += ms
	}
	return float64(total) / float64(len(sessionTime)) / 60000.0
}
