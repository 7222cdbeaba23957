package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/rushteam/feedkit/core"
)

// StoreInteractionStore 是基于 KeyValueStore 的行为日志实现：
//   - zset {KeyPrefix}:{userID} 作为时间线，score 取毫秒时间戳
//   - hash {KeyPrefix}:data:{userID} 存放 JSON 记录，field 与 zset 成员一致
//
// 用 Redis 后端时即为生产实现；用 MemoryStore 时可做集成测试。
type StoreInteractionStore struct {
	Store core.KeyValueStore

	// KeyPrefix 默认 "interactions"
	KeyPrefix string

	// TTL 记录保留时长（秒），0 表示不过期
	TTL int
}

func NewStoreInteractionStore(kv core.KeyValueStore, keyPrefix string) *StoreInteractionStore {
	if keyPrefix == "" {
		keyPrefix = "interactions"
	}
	return &StoreInteractionStore{Store: kv, KeyPrefix: keyPrefix}
}

var _ core.InteractionStore = (*StoreInteractionStore)(nil)

func (s *StoreInteractionStore) timelineKey(userID string) string {
	return s.KeyPrefix + ":" + userID
}

func (s *StoreInteractionStore) dataKey(userID string) string {
	return s.KeyPrefix + ":data:" + userID
}

func (s *StoreInteractionStore) Append(ctx context.Context, it *core.UserInteraction) error {
	if s.Store == nil {
		return core.ErrStoreNotSupported
	}
	if it == nil || it.UserID == "" {
		return core.NewDomainError(core.ModuleInteraction, core.ErrorCodeInvalidInput, "interaction: user id is required")
	}

	payload, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("marshal interaction: %w", err)
	}

	// 成员键带纳秒时间戳，避免同卡同动作的快速连击在 zset 内互相覆盖
	member := fmt.Sprintf("%d:%s:%s", it.Timestamp.UnixNano(), it.CardID, it.Action)
	score := float64(it.Timestamp.UnixMilli())

	if err := s.Store.ZAdd(ctx, s.timelineKey(it.UserID), score, member); err != nil {
		return fmt.Errorf("append timeline: %w", err)
	}
	if err := s.Store.HSet(ctx, s.dataKey(it.UserID), member, payload); err != nil {
		return fmt.Errorf("append payload: %w", err)
	}
	return nil
}

func (s *StoreInteractionStore) Query(ctx context.Context, userID string, start, end time.Time) ([]*core.UserInteraction, error) {
	if s.Store == nil {
		return nil, core.ErrStoreNotSupported
	}

	members, err := s.Store.ZRangeByScore(ctx, s.timelineKey(userID),
		float64(start.UnixMilli()), float64(end.UnixMilli()))
	if err != nil {
		return nil, fmt.Errorf("query timeline: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	data, err := s.Store.HGetAll(ctx, s.dataKey(userID))
	if err != nil {
		return nil, fmt.Errorf("query payloads: %w", err)
	}

	out := make([]*core.UserInteraction, 0, len(members))
	for _, m := range members {
		raw, ok := data[m]
		if !ok {
			continue
		}
		var it core.UserInteraction
		if json.Unmarshal(raw, &it) != nil {
			continue
		}
		out = append(out, &it)
	}
	// ZRangeByScore 已按时间升序返回（MemoryStore 为降序时也只影响顺序，
	// 这里统一再排一次，调用方依赖升序）
	sortInteractions(out)
	return out, nil
}

func sortInteractions(items []*core.UserInteraction) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.Before(items[j].Timestamp)
	})
}
