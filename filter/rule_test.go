package filter

import (
	"context"
	"testing"
	"time"

	"github.com/rushteam/feedkit/core"
)

func TestRuleFilter_EndedChallenge(t *testing.T) {
	f, err := NewRuleFilter(`card.type == "challenge" && card.ended`)
	if err != nil {
		t.Fatalf("NewRuleFilter: %v", err)
	}

	fctx := core.NewFeedContext("u1", 10)
	ended := core.NewPersonalizedCard(&core.Card{
		ID: "c1", Type: core.CardTypeChallenge,
		Challenge: &core.ChallengeInfo{EndDate: time.Now().Add(-time.Hour)},
	})
	running := core.NewPersonalizedCard(&core.Card{
		ID: "c2", Type: core.CardTypeChallenge,
		Challenge: &core.ChallengeInfo{EndDate: time.Now().Add(time.Hour)},
	})

	if got, err := f.ShouldFilter(context.Background(), fctx, ended); err != nil || !got {
		t.Errorf("ended challenge: got (%v, %v), want (true, nil)", got, err)
	}
	if got, err := f.ShouldFilter(context.Background(), fctx, running); err != nil || got {
		t.Errorf("running challenge: got (%v, %v), want (false, nil)", got, err)
	}
}

func TestRuleFilter_ContextVariables(t *testing.T) {
	f, err := NewRuleFilter(`card.priority < 10 && fctx.user_id == ""`)
	if err != nil {
		t.Fatalf("NewRuleFilter: %v", err)
	}

	low := core.NewPersonalizedCard(&core.Card{ID: "n1", Type: core.CardTypeNews, Priority: 5})

	anonymous := core.NewFeedContext("", 10)
	if got, _ := f.ShouldFilter(context.Background(), anonymous, low); !got {
		t.Error("low priority card should be hidden from anonymous users")
	}

	signedIn := core.NewFeedContext("u1", 10)
	if got, _ := f.ShouldFilter(context.Background(), signedIn, low); got {
		t.Error("signed-in users should still see low priority cards")
	}
}

func TestNewRuleFilter_CompileError(t *testing.T) {
	if _, err := NewRuleFilter(`card.type ==`); err == nil {
		t.Error("invalid expression should fail at construction")
	}
}
