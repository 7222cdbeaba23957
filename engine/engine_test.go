package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/rushteam/feedkit/cache"
	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pkg/utils"
	"github.com/rushteam/feedkit/repository"
)

// failingRepo throws on every call, for degradation tests.
type failingRepo struct{}

func (failingRepo) FetchByType(context.Context, core.CardType, int) ([]*core.Card, error) {
	return nil, core.NewRepositoryFetchError("repo down")
}
func (failingRepo) Search(context.Context, string, *core.SearchFilter) ([]*core.Card, error) {
	return nil, core.NewRepositoryFetchError("repo down")
}
func (failingRepo) Create(context.Context, *core.Card) error {
	return core.NewRepositoryFetchError("repo down")
}
func (failingRepo) IncrementEngagement(context.Context, string, string) error {
	return core.NewRepositoryFetchError("repo down")
}
func (failingRepo) Delete(context.Context, string) error {
	return core.NewRepositoryFetchError("repo down")
}

// staticProfiles serves one fixed profile for every user.
type staticProfiles struct {
	p *core.UserPreferenceProfile
}

func (s staticProfiles) Profile(context.Context, string) *core.UserPreferenceProfile {
	return s.p
}

func seedRepo(t *testing.T, counts map[core.CardType]int) *repository.MemoryRepository {
	t.Helper()
	repo := repository.NewMemoryRepository()
	ctx := context.Background()
	for ct, n := range counts {
		for i := 0; i < n; i++ {
			card := &core.Card{
				ID:       fmt.Sprintf("%s-%d", ct, i),
				Type:     ct,
				Title:    fmt.Sprintf("%s card %d", ct, i),
				Priority: 50 + i,
			}
			if err := repo.Create(ctx, card); err != nil {
				t.Fatalf("seed %s: %v", card.ID, err)
			}
		}
	}
	return repo
}

func fullCatalog(t *testing.T) *repository.MemoryRepository {
	t.Helper()
	counts := make(map[core.CardType]int, len(core.AllCardTypes()))
	for _, ct := range core.AllCardTypes() {
		counts[ct] = 10
	}
	return seedRepo(t, counts)
}

func TestScoreNode_StockBeatsHigherPriorityNews(t *testing.T) {
	// profile: favorite stock, prefers Technology, confidence 0.8;
	// s1 (priority 60, Technology) must outscore n1 (priority 90, no boosts)
	fctx := core.NewFeedContext("u1", 10)
	fctx.Profile = &core.UserPreferenceProfile{
		UserID:               "u1",
		FavoriteContentTypes: []core.CardType{core.CardTypeStock},
		PreferredSectors:     map[string]bool{"Technology": true},
		Confidence:           0.8,
	}

	s1 := core.NewPersonalizedCard(&core.Card{
		ID: "s1", Type: core.CardTypeStock, Priority: 60,
		Stock: &core.StockInfo{Symbol: "AAPL", Sector: "Technology"},
	})
	n1 := core.NewPersonalizedCard(&core.Card{
		ID: "n1", Type: core.CardTypeNews, Priority: 90,
		News: &core.NewsInfo{Source: "wire"},
	})

	cards, err := (&ScoreNode{}).Process(context.Background(), fctx, []*core.PersonalizedCard{s1, n1})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if cards[0].Score <= cards[1].Score {
		t.Errorf("s1 score = %.1f, n1 score = %.1f; want s1 > n1", cards[0].Score, cards[1].Score)
	}
	if s1.Score != 60*0.8+20+10 {
		t.Errorf("s1 score = %.1f, want 78", s1.Score)
	}
	if n1.Score != 90*0.8 {
		t.Errorf("n1 score = %.1f, want 72", n1.Score)
	}
}

func TestQuotaNode_LowConfidenceUsesColdStart(t *testing.T) {
	node := &QuotaNode{}
	fctx := core.NewFeedContext("u1", 20)
	fctx.Profile = &core.UserPreferenceProfile{
		UserID:               "u1",
		FavoriteContentTypes: []core.CardType{core.CardTypeCrypto},
		Confidence:           0.2, // below the cold start threshold
	}

	if _, err := node.Process(context.Background(), fctx, nil); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if _, ok := fctx.GetLabel("cold_start"); !ok {
		t.Error("cold_start label should be set for low confidence")
	}
	if fctx.Quotas[core.CardTypeLesson] != 8 {
		t.Errorf("lesson quota = %d, want 8 (cold start distribution)", fctx.Quotas[core.CardTypeLesson])
	}
	if fctx.Quotas[core.CardTypeCrypto] != 0 {
		t.Errorf("crypto quota = %d, want 0 (preferences ignored below threshold)", fctx.Quotas[core.CardTypeCrypto])
	}
}

func TestGenerateFeed_NoDuplicateIDs(t *testing.T) {
	eng := &Engine{
		Repo:           fullCatalog(t),
		Profiles:       staticProfiles{p: core.EmptyProfile("u1")},
		DisableShuffle: true,
	}

	cards := eng.GenerateFeed(context.Background(), "u1", 20)
	if len(cards) == 0 {
		t.Fatal("expected a non-empty feed")
	}

	seen := make(map[string]bool, len(cards))
	for _, pc := range cards {
		if seen[pc.Card.ID] {
			t.Errorf("duplicate card id %q", pc.Card.ID)
		}
		seen[pc.Card.ID] = true
	}
}

func TestGenerateFeed_RespectsLimit(t *testing.T) {
	eng := &Engine{
		Repo:           fullCatalog(t),
		Profiles:       staticProfiles{p: core.EmptyProfile("u1")},
		DisableShuffle: true,
	}

	for _, limit := range []int{1, 5, 20} {
		cards := eng.GenerateFeed(context.Background(), "u1", limit)
		if len(cards) > limit {
			t.Errorf("limit %d: got %d cards", limit, len(cards))
		}
	}
}

func TestGenerateFeed_GracefulDegradationOnTotalFailure(t *testing.T) {
	eng := &Engine{
		Repo:     failingRepo{},
		Profiles: staticProfiles{p: core.EmptyProfile("u1")},
	}

	cards := eng.GenerateFeed(context.Background(), "u1", 10)
	if cards == nil {
		t.Fatal("GenerateFeed must return a slice, not nil")
	}
	if len(cards) != 0 {
		t.Errorf("got %d cards from an all-failing repo, want 0", len(cards))
	}
}

func TestGenerateFeed_SingleTypeFailureDoesNotAbort(t *testing.T) {
	// only lessons exist; all other fetches return nothing
	repo := seedRepo(t, map[core.CardType]int{core.CardTypeLesson: 10})

	eng := &Engine{
		Repo:           repo,
		Profiles:       staticProfiles{p: core.EmptyProfile("u1")},
		DisableShuffle: true,
	}

	cards := eng.GenerateFeed(context.Background(), "u1", 20)
	if len(cards) == 0 {
		t.Fatal("partial catalog should still produce a feed")
	}
	for _, pc := range cards {
		if pc.Card.Type != core.CardTypeLesson {
			t.Errorf("unexpected card type %s", pc.Card.Type)
		}
	}
}

func TestGenerateFeed_CacheHitWithinTTL(t *testing.T) {
	feedCache := cache.NewFeedCache()
	defer feedCache.Close()

	eng := &Engine{
		Repo:           fullCatalog(t),
		Profiles:       staticProfiles{p: core.EmptyProfile("u1")},
		Cache:          feedCache,
		DisableShuffle: true,
	}
	ctx := context.Background()

	first := eng.GenerateFeed(ctx, "u1", 10)
	if len(first) == 0 {
		t.Fatal("expected a non-empty feed")
	}

	second := eng.GenerateFeed(ctx, "u1", 10)
	if len(second) != len(first) {
		t.Fatalf("cached feed length = %d, want %d", len(second), len(first))
	}
	for i := range first {
		if first[i].Card.ID != second[i].Card.ID {
			t.Errorf("position %d: %q != %q; same ids in same order expected within TTL",
				i, first[i].Card.ID, second[i].Card.ID)
		}
	}
	if second[0].Reason != ReasonCached {
		t.Errorf("cached reason = %q, want %q", second[0].Reason, ReasonCached)
	}
}

func TestGenerateFeed_CachedPathRespectsSmallerLimit(t *testing.T) {
	feedCache := cache.NewFeedCache()
	defer feedCache.Close()

	eng := &Engine{
		Repo:           fullCatalog(t),
		Profiles:       staticProfiles{p: core.EmptyProfile("u1")},
		Cache:          feedCache,
		DisableShuffle: true,
	}
	ctx := context.Background()

	first := eng.GenerateFeed(ctx, "u1", 20)
	if len(first) != 20 {
		t.Fatalf("first feed length = %d, want 20", len(first))
	}

	// a smaller follow-up request must not leak the whole cached batch
	second := eng.GenerateFeed(ctx, "u1", 5)
	if len(second) != 5 {
		t.Fatalf("cached feed length = %d, want 5", len(second))
	}
	if second[0].Reason != ReasonCached {
		t.Errorf("reason = %q, want %q", second[0].Reason, ReasonCached)
	}
	for i := range second {
		if second[i].Card.ID != first[i].Card.ID {
			t.Errorf("position %d: %q != %q; truncation must keep the batch prefix",
				i, second[i].Card.ID, first[i].Card.ID)
		}
	}
}

func TestGenerateFresh_BypassesCache(t *testing.T) {
	feedCache := cache.NewFeedCache()
	defer feedCache.Close()

	eng := &Engine{
		Repo:           fullCatalog(t),
		Profiles:       staticProfiles{p: core.EmptyProfile("u1")},
		Cache:          feedCache,
		DisableShuffle: true,
	}
	ctx := context.Background()

	eng.GenerateFeed(ctx, "u1", 10)

	fresh := eng.GenerateFresh(ctx, "u1", 10)
	if len(fresh) == 0 {
		t.Fatal("expected a non-empty feed")
	}
	for _, pc := range fresh {
		if pc.Reason == ReasonCached {
			t.Fatal("fresh assembly must not serve the cached batch")
		}
	}
}

func TestScoreNode_NegativeBoostDisablesIt(t *testing.T) {
	fctx := core.NewFeedContext("u1", 10)
	fctx.Profile = &core.UserPreferenceProfile{
		UserID:               "u1",
		FavoriteContentTypes: []core.CardType{core.CardTypeStock},
		PreferredSectors:     map[string]bool{"Technology": true},
		Confidence:           0.8,
	}
	s1 := core.NewPersonalizedCard(&core.Card{
		ID: "s1", Type: core.CardTypeStock, Priority: 60,
		Stock: &core.StockInfo{Symbol: "AAPL", Sector: "Technology"},
	})

	node := &ScoreNode{TypeBoost: -1, SectorBoost: -1}
	if _, err := node.Process(context.Background(), fctx, []*core.PersonalizedCard{s1}); err != nil {
		t.Fatalf("Process: %v", err)
	}

	// both boosts off: only the confidence-scaled base priority remains
	if s1.Score != 60*0.8 {
		t.Errorf("score = %.1f, want 48 with boosts disabled", s1.Score)
	}
}

func TestQuotaNode_NegativeFavoriteBoostIsNeutral(t *testing.T) {
	node := &QuotaNode{FavoriteBoost: -1}
	fctx := core.NewFeedContext("u1", 20)
	fctx.Profile = &core.UserPreferenceProfile{
		UserID:               "u1",
		FavoriteContentTypes: []core.CardType{core.CardTypeStock},
		Confidence:           0.9,
	}

	if _, err := node.Process(context.Background(), fctx, nil); err != nil {
		t.Fatalf("Process: %v", err)
	}

	want := DefaultBaseDistribution().Quotas(20)
	for ct, q := range want {
		if fctx.Quotas[ct] != q {
			t.Errorf("%s quota = %d, want %d (neutral tilt must match the base distribution)",
				ct, fctx.Quotas[ct], q)
		}
	}
}

func TestGenerateFeed_CacheIsPerUser(t *testing.T) {
	feedCache := cache.NewFeedCache()
	defer feedCache.Close()

	eng := &Engine{
		Repo:           fullCatalog(t),
		Profiles:       staticProfiles{p: core.EmptyProfile("")},
		Cache:          feedCache,
		DisableShuffle: true,
	}
	ctx := context.Background()

	eng.GenerateFeed(ctx, "u1", 10)

	// u2 must not see u1's batch; a fresh assembly replaces it
	second := eng.GenerateFeed(ctx, "u2", 10)
	for _, pc := range second {
		if pc.Reason == ReasonCached {
			t.Fatal("u2 hit u1's cached batch")
		}
	}
}

func TestBasicFeed_UsesColdStartDistribution(t *testing.T) {
	eng := &Engine{Repo: fullCatalog(t)}

	cards := eng.BasicFeed(context.Background(), "", 20)
	if len(cards) != 20 {
		t.Fatalf("len = %d, want 20", len(cards))
	}

	counts := make(map[core.CardType]int)
	for _, c := range cards {
		counts[c.Type]++
	}
	want := map[core.CardType]int{
		core.CardTypeLesson:  8,
		core.CardTypeStock:   6,
		core.CardTypeNews:    4,
		core.CardTypePodcast: 2,
	}
	for ct, n := range want {
		if abs(counts[ct]-n) > 1 {
			t.Errorf("count[%s] = %d, want %d (±1)", ct, counts[ct], n)
		}
	}
}

func TestBasicFeed_EmptyOnFailure(t *testing.T) {
	eng := &Engine{Repo: failingRepo{}}

	cards := eng.BasicFeed(context.Background(), "", 10)
	if cards == nil || len(cards) != 0 {
		t.Errorf("got %v, want an empty slice", cards)
	}
}

func TestAnnotateNode_ReasonPriority(t *testing.T) {
	tests := []struct {
		name   string
		labels map[string]string
		want   string
	}{
		{"sector wins", map[string]string{"boost_sector": "Technology", "boost_type": "stock"}, "Matches your interest in Technology"},
		{"type next", map[string]string{"boost_type": "stock", "boost_difficulty": "beginner"}, ReasonType},
		{"difficulty next", map[string]string{"boost_difficulty": "beginner"}, ReasonDifficulty},
		{"general fallback", nil, ReasonGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pc := core.NewPersonalizedCard(&core.Card{ID: "c1", Type: core.CardTypeStock})
			pc.Score = 10
			for k, v := range tt.labels {
				pc.PutLabel(k, utils.Label{Value: v, Source: "score"})
			}

			fctx := core.NewFeedContext("u1", 10)
			if _, err := (&AnnotateNode{}).Process(context.Background(), fctx, []*core.PersonalizedCard{pc}); err != nil {
				t.Fatalf("Process: %v", err)
			}
			if pc.Reason != tt.want {
				t.Errorf("Reason = %q, want %q", pc.Reason, tt.want)
			}
		})
	}
}

func TestAnnotateNode_RelevanceNormalized(t *testing.T) {
	top := core.NewPersonalizedCard(&core.Card{ID: "a", Type: core.CardTypeNews})
	top.Score = 80
	mid := core.NewPersonalizedCard(&core.Card{ID: "b", Type: core.CardTypeNews})
	mid.Score = 40

	fctx := core.NewFeedContext("u1", 10)
	if _, err := (&AnnotateNode{}).Process(context.Background(), fctx, []*core.PersonalizedCard{top, mid}); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if top.RelevanceScore != 1.0 {
		t.Errorf("top relevance = %v, want 1.0", top.RelevanceScore)
	}
	if mid.RelevanceScore != 0.5 {
		t.Errorf("mid relevance = %v, want 0.5", mid.RelevanceScore)
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
