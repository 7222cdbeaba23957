package profile

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rushteam/feedkit/core"
)

// RemoteSource 是可选的远端画像特征源（例如 FeastSource）。
type RemoteSource interface {
	Fetch(ctx context.Context, userID string) (map[string]any, error)
	Seed(userID string, values map[string]any) *core.UserPreferenceProfile
}

// Provider 组合行为日志拉取与画像推导，是引擎侧获取画像的唯一入口。
//
// 失败语义：任何一步失败都不向上抛错，而是降级为零置信度空画像 ——
// 调用方把它当作"无个性化可用"，不是错误。
type Provider struct {
	Analyzer     *Analyzer
	Interactions core.InteractionStore

	// Remote 可选的远端特征源；本地样本太薄时用它打底
	Remote RemoteSource

	// Lookback 行为日志回看窗口，默认 30 天
	Lookback time.Duration

	// Timeout 行为日志查询超时，默认 3s
	Timeout time.Duration

	// SeedThreshold 本地置信度低于该值时才尝试远端底稿，默认 0.3
	SeedThreshold float64

	Logger *zap.Logger
}

func NewProvider(analyzer *Analyzer, interactions core.InteractionStore) *Provider {
	return &Provider{
		Analyzer:     analyzer,
		Interactions: interactions,
	}
}

func (p *Provider) logger() *zap.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return zap.NewNop()
}

// Profile 计算一个用户的当前画像。从不返回错误。
func (p *Provider) Profile(ctx context.Context, userID string) *core.UserPreferenceProfile {
	local := p.localProfile(ctx, userID)

	threshold := p.SeedThreshold
	if threshold <= 0 {
		threshold = 0.3
	}
	if local.Confidence >= threshold || p.Remote == nil {
		return local
	}

	// 本地样本太薄：尝试远端底稿，失败时静默保留本地结果
	values, err := p.Remote.Fetch(ctx, userID)
	if err != nil {
		p.logger().Debug("remote profile fetch failed",
			zap.String("user_id", userID), zap.Error(err))
		return local
	}
	seed := p.Remote.Seed(userID, values)
	if seed.Confidence <= local.Confidence {
		return local
	}
	return mergeSeed(seed, local)
}

func (p *Provider) localProfile(ctx context.Context, userID string) *core.UserPreferenceProfile {
	analyzer := p.Analyzer
	if analyzer == nil {
		analyzer = NewAnalyzer()
	}
	if p.Interactions == nil || userID == "" {
		return core.EmptyProfile(userID)
	}

	lookback := p.Lookback
	if lookback <= 0 {
		lookback = 30 * 24 * time.Hour
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	now := time.Now()
	interactions, err := p.Interactions.Query(queryCtx, userID, now.Add(-lookback), now)
	if err != nil {
		// 日志拉取失败 → 零置信度空画像，不是错误
		p.logger().Warn("interaction query failed, using empty profile",
			zap.String("user_id", userID), zap.Error(err))
		return core.EmptyProfile(userID)
	}
	return analyzer.Compute(userID, interactions)
}

// mergeSeed 用远端底稿补齐本地画像的空缺维度（本地非空的维度优先）。
func mergeSeed(seed, local *core.UserPreferenceProfile) *core.UserPreferenceProfile {
	out := seed
	if len(local.FavoriteContentTypes) > 0 {
		out.FavoriteContentTypes = local.FavoriteContentTypes
	}
	for s := range local.PreferredSectors {
		out.PreferredSectors[s] = true
	}
	if local.PreferredDifficulty != "" {
		out.PreferredDifficulty = local.PreferredDifficulty
	}
	if local.OptimalSessionLengthMinutes > 0 {
		out.OptimalSessionLengthMinutes = local.OptimalSessionLengthMinutes
	}
	return out
}
