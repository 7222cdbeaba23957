package core

import "time"

// UserPreferenceProfile 是从行为日志推导出的用户偏好画像。
//
// 一句话定义：画像 = feed 链路的"个性化决策信号"。
//
// 生命周期：每次 feed 请求按需重算（不做长生命周期缓存），
// 只从行为日志派生；个性化引擎只消费、从不回写。
//
// 设计要点：
//  维度                     作用
//  FavoriteContentTypes     配额倾斜 / 类型加分
//  PreferredSectors         板块加分 / 概率降采样
//  PreferredDifficulty      难度加分 / 概率降采样
//  Confidence               冷启动判定（低于阈值走默认分布）
type UserPreferenceProfile struct {
	UserID string

	// FavoriteContentTypes 按偏好程度降序排列（最喜欢的在前）
	FavoriteContentTypes []CardType

	// PreferredSectors 偏好板块集合（来自正向互动过的股票/加密货币/新闻卡片）
	PreferredSectors map[string]bool

	// PreferredDifficulty 偏好难度（无课程互动时为空）
	PreferredDifficulty Difficulty

	// OptimalSessionLengthMinutes 由浏览停留时长推算的最佳会话时长
	OptimalSessionLengthMinutes float64

	// Confidence 画像可信度（0-1），随样本量单调递增、封顶 1.0；
	// 样本不足时必须低到让下游退回非个性化默认分布
	Confidence float64

	LastUpdated time.Time
}

// EmptyProfile 返回零置信度的空画像。
// 行为日志不可用时返回它而不是报错 —— 调用方把它当作"无个性化可用"。
func EmptyProfile(userID string) *UserPreferenceProfile {
	return &UserPreferenceProfile{
		UserID:           userID,
		PreferredSectors: make(map[string]bool),
		Confidence:       0,
		LastUpdated:      time.Now(),
	}
}

// IsFavorite 判断某内容类型是否在用户偏好列表中。
func (p *UserPreferenceProfile) IsFavorite(t CardType) bool {
	for _, ft := range p.FavoriteContentTypes {
		if ft == t {
			return true
		}
	}
	return false
}

// PrefersSector 判断某板块是否在偏好集合中。
func (p *UserPreferenceProfile) PrefersSector(sector string) bool {
	if sector == "" || p.PreferredSectors == nil {
		return false
	}
	return p.PreferredSectors[sector]
}
