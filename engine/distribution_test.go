package engine

import (
	"testing"

	"github.com/rushteam/feedkit/core"
)

func sumQuotas(q map[core.CardType]int) int {
	total := 0
	for _, n := range q {
		total += n
	}
	return total
}

func TestDistribution_Quotas_ColdStartAtTwenty(t *testing.T) {
	q := DefaultColdStartDistribution().Quotas(20)

	want := map[core.CardType]int{
		core.CardTypeLesson:  8,
		core.CardTypeStock:   6,
		core.CardTypeNews:    4,
		core.CardTypePodcast: 2,
	}
	for ct, n := range want {
		if q[ct] != n {
			t.Errorf("quota[%s] = %d, want %d", ct, q[ct], n)
		}
	}
	if sumQuotas(q) != 20 {
		t.Errorf("sum = %d, want 20", sumQuotas(q))
	}
}

func TestDistribution_Quotas_SumNeverExceedsLimit(t *testing.T) {
	dists := map[string]Distribution{
		"cold start": DefaultColdStartDistribution(),
		"base":       DefaultBaseDistribution(),
	}
	for name, d := range dists {
		for limit := 1; limit <= 50; limit++ {
			if got := sumQuotas(d.Quotas(limit)); got > limit {
				t.Errorf("%s: sum(Quotas(%d)) = %d, exceeds limit", name, limit, got)
			}
		}
	}
}

func TestDistribution_Quotas_ZeroLimit(t *testing.T) {
	if got := sumQuotas(DefaultBaseDistribution().Quotas(0)); got != 0 {
		t.Errorf("sum = %d, want 0", got)
	}
}

func TestPersonalizedQuotas_FavoriteBoostIsMonotonic(t *testing.T) {
	base := DefaultBaseDistribution()
	limit := 20

	plain := base.Quotas(limit)

	profile := &core.UserPreferenceProfile{
		UserID:               "u1",
		FavoriteContentTypes: []core.CardType{core.CardTypeStock},
		Confidence:           0.8,
	}
	boosted := PersonalizedQuotas(base, profile, 1.5, limit)

	// with 1.5x on a 0.25 share at limit 20 the quota must strictly grow
	if boosted[core.CardTypeStock] <= plain[core.CardTypeStock] {
		t.Errorf("stock quota = %d, expected a strict increase over %d",
			boosted[core.CardTypeStock], plain[core.CardTypeStock])
	}
	if sumQuotas(boosted) > limit {
		t.Errorf("sum = %d, exceeds limit", sumQuotas(boosted))
	}
}

func TestPersonalizedQuotas_NilProfileEqualsBase(t *testing.T) {
	base := DefaultBaseDistribution()
	plain := base.Quotas(20)
	got := PersonalizedQuotas(base, nil, 1.5, 20)

	for ct, n := range plain {
		if got[ct] != n {
			t.Errorf("quota[%s] = %d, want %d (no profile, no tilt)", ct, got[ct], n)
		}
	}
}
