package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rushteam/feedkit/core"
)

// MemoryRepository 是内存实现的 ContentRepository，用于测试/开发/原型。
// 生产环境应替换为真实的文档存储实现；按配置显式选择，不做环境嗅探。
type MemoryRepository struct {
	mu    sync.RWMutex
	cards map[string]*core.Card
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		cards: make(map[string]*core.Card),
	}
}

var _ core.ContentRepository = (*MemoryRepository)(nil)

func (r *MemoryRepository) Create(ctx context.Context, card *core.Card) error {
	if card == nil || card.ID == "" {
		return core.NewDomainError(core.ModuleRepository, core.ErrorCodeInvalidInput, "repository: card id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cards[card.ID] = card
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, cardID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cards, cardID)
	return nil
}

// FetchByType 按 priority 降序、再按 created_at 降序返回候选。
func (r *MemoryRepository) FetchByType(ctx context.Context, t core.CardType, limit int) ([]*core.Card, error) {
	r.mu.RLock()
	out := make([]*core.Card, 0, limit)
	for _, c := range r.cards {
		if c.Type == t {
			out = append(out, c)
		}
	}
	r.mu.RUnlock()

	sortByPriority(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Search 对标题/描述/标签做大小写不敏感的包含匹配。
func (r *MemoryRepository) Search(ctx context.Context, query string, filter *core.SearchFilter) ([]*core.Card, error) {
	q := strings.ToLower(strings.TrimSpace(query))

	r.mu.RLock()
	out := make([]*core.Card, 0, 32)
	for _, c := range r.cards {
		if !matchFilter(c, filter) {
			continue
		}
		if q != "" && !matchQuery(c, q) {
			continue
		}
		out = append(out, c)
	}
	r.mu.RUnlock()

	sortByPriority(out)

	limit := 50
	if filter != nil && filter.Limit > 0 {
		limit = filter.Limit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// IncrementEngagement 通过 sync/atomic 自增，保证并发计数不丢更新。
func (r *MemoryRepository) IncrementEngagement(ctx context.Context, cardID, field string) error {
	r.mu.RLock()
	c, ok := r.cards[cardID]
	r.mu.RUnlock()
	if !ok {
		return core.NewDomainError(core.ModuleRepository, core.ErrorCodeNotFound, "repository: card not found")
	}

	switch field {
	case "views":
		atomic.AddInt64(&c.Engagement.Views, 1)
	case "saves":
		atomic.AddInt64(&c.Engagement.Saves, 1)
	case "shares":
		atomic.AddInt64(&c.Engagement.Shares, 1)
	default:
		return core.NewDomainError(core.ModuleRepository, core.ErrorCodeInvalidInput, "repository: unknown engagement field")
	}
	return nil
}

func matchQuery(c *core.Card, q string) bool {
	if strings.Contains(strings.ToLower(c.Title), q) {
		return true
	}
	if strings.Contains(strings.ToLower(c.Description), q) {
		return true
	}
	for _, tag := range c.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

func matchFilter(c *core.Card, f *core.SearchFilter) bool {
	if f == nil {
		return true
	}
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if c.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Sector != "" && c.Sector() != f.Sector {
		return false
	}
	if len(f.Tags) > 0 {
		found := false
		for _, tag := range f.Tags {
			if c.HasTag(tag) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func sortByPriority(cards []*core.Card) {
	sort.SliceStable(cards, func(i, j int) bool {
		if cards[i].Priority != cards[j].Priority {
			return cards[i].Priority > cards[j].Priority
		}
		return cards[i].CreatedAt.After(cards[j].CreatedAt)
	})
}

// MemoryInteractionStore 是内存实现的 InteractionStore（追加写 + 时间窗口查询）。
type MemoryInteractionStore struct {
	mu      sync.RWMutex
	records map[string][]*core.UserInteraction // userID -> 按追加顺序
}

func NewMemoryInteractionStore() *MemoryInteractionStore {
	return &MemoryInteractionStore{
		records: make(map[string][]*core.UserInteraction),
	}
}

var _ core.InteractionStore = (*MemoryInteractionStore)(nil)

func (s *MemoryInteractionStore) Append(ctx context.Context, interaction *core.UserInteraction) error {
	if interaction == nil || interaction.UserID == "" {
		return core.NewDomainError(core.ModuleInteraction, core.ErrorCodeInvalidInput, "interaction: user id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[interaction.UserID] = append(s.records[interaction.UserID], interaction)
	return nil
}

func (s *MemoryInteractionStore) Query(ctx context.Context, userID string, start, end time.Time) ([]*core.UserInteraction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.records[userID]
	out := make([]*core.UserInteraction, 0, len(all))
	for _, it := range all {
		if it.Timestamp.Before(start) || it.Timestamp.After(end) {
			continue
		}
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}
