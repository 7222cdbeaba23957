package engine

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
	"github.com/rushteam/feedkit/pkg/utils"
)

// FetchNode 按 FeedContext.Quotas 并发拉取各类型的候选卡片并合并。
//
// 失败语义：单类型拉取失败/超时只丢掉该类型的候选（配额静默归零），
// 不中断其他类型；全部失败时返回空候选集，由引擎层判定 TotalFailure。
type FetchNode struct {
	Repo core.ContentRepository

	// Timeout 每个类型的拉取超时，默认 3s。
	// 被放弃的请求允许自行完成后丢弃，但绝不能无限阻塞装配。
	Timeout time.Duration

	// MaxConcurrent 最大并发数（0 表示无限制）
	MaxConcurrent int
}

func (n *FetchNode) Name() string        { return "engine.fetch" }
func (n *FetchNode) Kind() pipeline.Kind { return pipeline.KindFetch }

func (n *FetchNode) timeout() time.Duration {
	if n.Timeout > 0 {
		return n.Timeout
	}
	return 3 * time.Second
}

func (n *FetchNode) Process(
	ctx context.Context,
	fctx *core.FeedContext,
	_ []*core.PersonalizedCard,
) ([]*core.PersonalizedCard, error) {
	if n.Repo == nil || fctx == nil || len(fctx.Quotas) == 0 {
		return nil, nil
	}

	var (
		mu    sync.Mutex
		all   []*core.PersonalizedCard
		eg, _ = errgroup.WithContext(ctx)
	)

	// 限流：使用 semaphore 控制并发数
	sem := make(chan struct{}, n.MaxConcurrent)

	// 按固定类型顺序遍历，合并结果的相对顺序可复现
	for _, t := range core.AllCardTypes() {
		quota := fctx.Quotas[t]
		if quota <= 0 {
			continue
		}
		cardType := t

		eg.Go(func() error {
			if n.MaxConcurrent > 0 {
				sem <- struct{}{}
				defer func() { <-sem }()
			}

			fetchCtx, cancel := context.WithTimeout(ctx, n.timeout())
			defer cancel()

			cards, err := n.Repo.FetchByType(fetchCtx, cardType, quota)
			if err != nil {
				// 超时或错误时该类型配额归零，不中断其他类型
				return nil
			}

			batch := make([]*core.PersonalizedCard, 0, len(cards))
			for _, c := range cards {
				if c == nil {
					continue
				}
				pc := core.NewPersonalizedCard(c)
				pc.PutLabel("fetch_type", utils.Label{Value: string(cardType), Source: "fetch"})
				batch = append(batch, pc)
			}

			mu.Lock()
			all = append(all, batch...)
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return dedupeByID(all), nil
}

// dedupeByID 按卡片 ID 去重，保留第一个出现的，labels 合并。
func dedupeByID(cards []*core.PersonalizedCard) []*core.PersonalizedCard {
	seen := make(map[string]*core.PersonalizedCard, len(cards))
	out := make([]*core.PersonalizedCard, 0, len(cards))
	for _, pc := range cards {
		if pc == nil || pc.Card == nil {
			continue
		}
		if old, ok := seen[pc.Card.ID]; ok {
			for k, v := range pc.Labels {
				old.PutLabel(k, v)
			}
			continue
		}
		seen[pc.Card.ID] = pc
		out = append(out, pc)
	}
	return out
}
