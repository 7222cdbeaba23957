package filter

import (
	"context"
	"testing"

	"github.com/rushteam/feedkit/core"
)

func profileWith(sectors map[string]bool, difficulty core.Difficulty) *core.FeedContext {
	fctx := core.NewFeedContext("u1", 10)
	fctx.Profile = &core.UserPreferenceProfile{
		UserID:              "u1",
		PreferredSectors:    sectors,
		PreferredDifficulty: difficulty,
		Confidence:          0.8,
	}
	return fctx
}

func lessonCard(d core.Difficulty) *core.PersonalizedCard {
	return core.NewPersonalizedCard(&core.Card{
		ID: "l1", Type: core.CardTypeLesson,
		Lesson: &core.LessonInfo{Difficulty: d},
	})
}

func stockCard(sector string) *core.PersonalizedCard {
	return core.NewPersonalizedCard(&core.Card{
		ID: "s1", Type: core.CardTypeStock,
		Stock: &core.StockInfo{Symbol: "X", Sector: sector},
	})
}

func TestPreferenceFilter_DifficultyMismatchDownsampled(t *testing.T) {
	fctx := profileWith(nil, core.DifficultyBeginner)
	card := lessonCard(core.DifficultyAdvanced)

	tests := []struct {
		name string
		roll float64
		want bool
	}{
		{"roll below keep probability keeps", 0.1, false},
		{"roll above keep probability filters", 0.5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &PreferenceFilter{Rand: func() float64 { return tt.roll }}
			got, err := f.ShouldFilter(context.Background(), fctx, card)
			if err != nil {
				t.Fatalf("ShouldFilter: %v", err)
			}
			if got != tt.want {
				t.Errorf("ShouldFilter = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPreferenceFilter_NegativeKeepIsHardFilter(t *testing.T) {
	fctx := profileWith(nil, core.DifficultyBeginner)
	card := lessonCard(core.DifficultyAdvanced)

	// roll 0.0 passes any positive keep probability; keep 0 must still filter
	f := &PreferenceFilter{KeepDifficultyMismatch: -1, Rand: func() float64 { return 0.0 }}
	got, err := f.ShouldFilter(context.Background(), fctx, card)
	if err != nil {
		t.Fatalf("ShouldFilter: %v", err)
	}
	if !got {
		t.Error("mismatch should always be filtered with keep probability 0")
	}
}

func TestPreferenceFilter_SectorMismatchDownsampled(t *testing.T) {
	fctx := profileWith(map[string]bool{"technology": true}, "")
	card := stockCard("energy")

	f := &PreferenceFilter{Rand: func() float64 { return 0.9 }}
	got, err := f.ShouldFilter(context.Background(), fctx, card)
	if err != nil {
		t.Fatalf("ShouldFilter: %v", err)
	}
	if !got {
		t.Error("sector mismatch with a high roll should be filtered")
	}

	// roll under the 0.3 keep probability passes
	f.Rand = func() float64 { return 0.2 }
	got, _ = f.ShouldFilter(context.Background(), fctx, card)
	if got {
		t.Error("sector mismatch with a low roll should be kept")
	}
}

func TestPreferenceFilter_MatchingCardsAlwaysKept(t *testing.T) {
	fctx := profileWith(map[string]bool{"technology": true}, core.DifficultyBeginner)
	f := &PreferenceFilter{Rand: func() float64 { return 0.99 }}

	for name, pc := range map[string]*core.PersonalizedCard{
		"matching sector":     stockCard("technology"),
		"matching difficulty": lessonCard(core.DifficultyBeginner),
	} {
		got, err := f.ShouldFilter(context.Background(), fctx, pc)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got {
			t.Errorf("%s: matching card must never be filtered", name)
		}
	}
}

func TestPreferenceFilter_NoPreferenceNoDownsampling(t *testing.T) {
	// profile without difficulty or sector preferences: nothing is filtered
	fctx := profileWith(nil, "")
	f := &PreferenceFilter{Rand: func() float64 { return 0.99 }}

	for name, pc := range map[string]*core.PersonalizedCard{
		"lesson": lessonCard(core.DifficultyAdvanced),
		"stock":  stockCard("energy"),
	} {
		got, err := f.ShouldFilter(context.Background(), fctx, pc)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got {
			t.Errorf("%s: no preference, nothing should be filtered", name)
		}
	}
}

func TestPreferenceFilter_NilProfilePassesThrough(t *testing.T) {
	fctx := core.NewFeedContext("u1", 10)
	f := &PreferenceFilter{Rand: func() float64 { return 0.99 }}

	got, err := f.ShouldFilter(context.Background(), fctx, stockCard("energy"))
	if err != nil {
		t.Fatalf("ShouldFilter: %v", err)
	}
	if got {
		t.Error("nil profile must not filter anything")
	}
}
