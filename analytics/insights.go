package analytics

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/profile"
)

// impression 是一次"卡片被放进 feed"的记录（内存环，只为度量，不持久化）。
type impression struct {
	userID string
	cardID string
	at     time.Time
}

const maxImpressions = 4096

// Insights 消费引擎输出与行为日志，度量个性化效果。
// 只读反馈回路：不参与当前 feed 的装配，只为权重调优提供数据。
type Insights struct {
	Interactions core.InteractionStore
	Metrics      *Metrics

	// ActionWeights 参与度打分的动作权重，nil 时用画像分析器的默认权重
	ActionWeights map[core.Action]float64

	mu          sync.Mutex
	impressions []impression
}

func NewInsights(interactions core.InteractionStore) *Insights {
	return &Insights{Interactions: interactions}
}

// ObserveFeed 记录一次 feed 下发（fire-and-forget，失败不影响 feed 调用方）。
func (a *Insights) ObserveFeed(userID string, cards []*core.PersonalizedCard, mode string) {
	if a.Metrics != nil {
		a.Metrics.FeedsServed.WithLabelValues(mode).Inc()
		if mode == "personalized" {
			a.Metrics.FeedDiversity.Set(Diversity(cards))
		}
	}

	now := time.Now()
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, pc := range cards {
		if pc == nil || pc.Card == nil {
			continue
		}
		a.impressions = append(a.impressions, impression{userID: userID, cardID: pc.Card.ID, at: now})
	}
	if len(a.impressions) > maxImpressions {
		a.impressions = a.impressions[len(a.impressions)-maxImpressions:]
	}
}

// Accuracy 计算命中率：窗口内用户对已下发卡片的正向互动数 / 下发数。
// 没有下发记录时返回 0。
func (a *Insights) Accuracy(ctx context.Context, userID string, window time.Duration) float64 {
	a.mu.Lock()
	cutoff := time.Now().Add(-window)
	served := make(map[string]bool)
	for _, imp := range a.impressions {
		if imp.userID == userID && imp.at.After(cutoff) {
			served[imp.cardID] = true
		}
	}
	a.mu.Unlock()

	if len(served) == 0 || a.Interactions == nil {
		return 0
	}

	now := time.Now()
	interactions, err := a.Interactions.Query(ctx, userID, now.Add(-window), now)
	if err != nil {
		return 0
	}

	hits := make(map[string]bool)
	for _, it := range interactions {
		if it.Action.Positive() && served[it.CardID] {
			hits[it.CardID] = true
		}
	}
	return float64(len(hits)) / float64(len(served))
}

// Diversity 计算一批卡片的类型多样性：类型分布的 Shannon 熵，
// 归一化到 0-1（1 = 各类型均匀，0 = 单一类型）。
func Diversity(cards []*core.PersonalizedCard) float64 {
	counts := make(map[core.CardType]int)
	total := 0
	for _, pc := range cards {
		if pc == nil || pc.Card == nil {
			continue
		}
		counts[pc.Card.Type]++
		total++
	}
	if total == 0 || len(counts) <= 1 {
		return 0
	}

	entropy := 0.0
	for _, n := range counts {
		p := float64(n) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy / math.Log2(float64(len(counts)))
}

// TypeBias 返回占比最高的类型及其份额。
// 份额超过阈值（例如 0.6）通常意味着配额倾斜过强，该压 boost 了。
func TypeBias(cards []*core.PersonalizedCard) (core.CardType, float64) {
	counts := make(map[core.CardType]int)
	total := 0
	for _, pc := range cards {
		if pc == nil || pc.Card == nil {
			continue
		}
		counts[pc.Card.Type]++
		total++
	}
	if total == 0 {
		return "", 0
	}

	var biggest core.CardType
	max := 0
	for t, n := range counts {
		if n > max || (n == max && t < biggest) {
			biggest = t
			max = n
		}
	}
	return biggest, float64(max) / float64(total)
}

// MemberScore 是一个用户在窗口内的参与度得分。
type MemberScore struct {
	UserID string
	Score  float64
}

// WeeklyEngagement 计算一批用户近一周的加权参与度，降序返回。
// 用于社区周报（每周播客）挑选活跃成员。
func (a *Insights) WeeklyEngagement(ctx context.Context, userIDs []string) []MemberScore {
	weights := a.ActionWeights
	if weights == nil {
		weights = profile.DefaultActionWeights
	}

	now := time.Now()
	start := now.Add(-7 * 24 * time.Hour)

	out := make([]MemberScore, 0, len(userIDs))
	for _, userID := range userIDs {
		if a.Interactions == nil {
			break
		}
		interactions, err := a.Interactions.Query(ctx, userID, start, now)
		if err != nil {
			continue
		}
		score := 0.0
		for _, it := range interactions {
			if w, ok := weights[it.Action]; ok {
				score += w
			} else {
				score += 1.0
			}
		}
		out = append(out, MemberScore{UserID: userID, Score: score})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}
