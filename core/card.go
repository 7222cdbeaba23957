package core

import "time"

// CardType 是卡片的内容类型。
// Feed 中的每张卡片都属于以下六种类型之一。
type CardType string

const (
	CardTypeLesson    CardType = "lesson"    // 课程卡片
	CardTypePodcast   CardType = "podcast"   // 播客卡片
	CardTypeNews      CardType = "news"      // 新闻卡片
	CardTypeStock     CardType = "stock"     // 股票卡片
	CardTypeCrypto    CardType = "crypto"    // 加密货币卡片
	CardTypeChallenge CardType = "challenge" // 挑战卡片
)

// AllCardTypes 返回所有卡片类型（顺序固定，用于配额分配等确定性遍历）。
func AllCardTypes() []CardType {
	return []CardType{
		CardTypeLesson,
		CardTypePodcast,
		CardTypeNews,
		CardTypeStock,
		CardTypeCrypto,
		CardTypeChallenge,
	}
}

// Difficulty 是课程难度等级。
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Engagement 是卡片的互动计数器（浏览/收藏/分享）。
// 只能通过 Store 的原子自增原语更新，单调不减；
// 应用层禁止 read-modify-write，否则并发场景会丢失更新。
type Engagement struct {
	Views  int64 `json:"views"`
	Saves  int64 `json:"saves"`
	Shares int64 `json:"shares"`
}

// Card 是 Feed 链路中的统一内容单元。
//
// 设计要点：
//   - 公共字段（ID/Title/Priority/Tags 等）放在 Card 本身
//   - 类型特有字段拆成 tagged variant：六个 *Info 指针中至多一个非 nil，
//     由 Type 决定取哪一个（避免松散的 map[string]any 元数据袋）
//   - Priority 是目录侧给定的基础重要度（0-100），个性化打分以它为底
type Card struct {
	ID          string     `json:"id"`
	Type        CardType   `json:"type"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ContentURL  string     `json:"content_url,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Priority    int        `json:"priority"` // 0-100
	CreatedAt   time.Time  `json:"created_at"`
	Engagement  Engagement `json:"engagement"`

	// 类型特有信息（至多一个非 nil，与 Type 对应）
	Lesson    *LessonInfo    `json:"lesson,omitempty"`
	Podcast   *PodcastInfo   `json:"podcast,omitempty"`
	News      *NewsInfo      `json:"news,omitempty"`
	Stock     *StockInfo     `json:"stock,omitempty"`
	Crypto    *CryptoInfo    `json:"crypto,omitempty"`
	Challenge *ChallengeInfo `json:"challenge,omitempty"`
}

// LessonInfo 是课程卡片的特有字段。
type LessonInfo struct {
	Difficulty      Difficulty `json:"difficulty"`
	Stage           int        `json:"stage"`
	WeekNumber      int        `json:"week_number"`
	DurationMinutes float64    `json:"duration_minutes"`
}

// PodcastInfo 是播客卡片的特有字段。
type PodcastInfo struct {
	Episode         int     `json:"episode"`
	WeekNumber      int     `json:"week_number"`
	DurationMinutes float64 `json:"duration_minutes"`
}

// NewsInfo 是新闻卡片的特有字段。
type NewsInfo struct {
	Source  string   `json:"source"`
	Sector  string   `json:"sector,omitempty"`
	Tickers []string `json:"tickers,omitempty"`
}

// StockInfo 是股票卡片的特有字段。
type StockInfo struct {
	Symbol string `json:"symbol"`
	Sector string `json:"sector"`
}

// CryptoInfo 是加密货币卡片的特有字段。
type CryptoInfo struct {
	Symbol string `json:"symbol"`
	Sector string `json:"sector,omitempty"`
}

// ChallengeInfo 是挑战卡片的特有字段。
type ChallengeInfo struct {
	Stage   int       `json:"stage"`
	EndDate time.Time `json:"end_date"`
}

// Sector 返回卡片所属板块（股票/加密货币/新闻卡片有意义），无则返回空串。
func (c *Card) Sector() string {
	switch {
	case c.Stock != nil:
		return c.Stock.Sector
	case c.Crypto != nil:
		return c.Crypto.Sector
	case c.News != nil:
		return c.News.Sector
	}
	return ""
}

// Difficulty 返回课程卡片的难度，非课程卡片返回空串。
func (c *Card) Difficulty() Difficulty {
	if c.Lesson != nil {
		return c.Lesson.Difficulty
	}
	return ""
}

// Ended 判断挑战卡片是否已结束（非挑战卡片恒为 false）。
func (c *Card) Ended(now time.Time) bool {
	if c.Challenge == nil || c.Challenge.EndDate.IsZero() {
		return false
	}
	return now.After(c.Challenge.EndDate)
}

// HasTag 判断卡片是否带有指定标签（标签集合无序）。
func (c *Card) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
