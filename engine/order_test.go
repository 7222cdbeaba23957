package engine

import (
	"context"
	"testing"

	"github.com/rushteam/feedkit/core"
)

func scored(id string, score float64) *core.PersonalizedCard {
	pc := core.NewPersonalizedCard(&core.Card{ID: id, Type: core.CardTypeNews})
	pc.Score = score
	return pc
}

func TestOrderNode_SortsByScoreDescending(t *testing.T) {
	node := &OrderNode{DisableShuffle: true}
	fctx := core.NewFeedContext("u1", 10)

	cards := []*core.PersonalizedCard{scored("a", 10), scored("b", 30), scored("c", 20)}
	out, err := node.Process(context.Background(), fctx, cards)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	want := []string{"b", "c", "a"}
	for i, id := range want {
		if out[i].Card.ID != id {
			t.Errorf("out[%d] = %q, want %q", i, out[i].Card.ID, id)
		}
	}
}

func TestOrderNode_TruncatesToLimit(t *testing.T) {
	node := &OrderNode{DisableShuffle: true}
	fctx := core.NewFeedContext("u1", 2)

	cards := []*core.PersonalizedCard{scored("a", 10), scored("b", 30), scored("c", 20)}
	out, err := node.Process(context.Background(), fctx, cards)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].Card.ID != "b" {
		t.Errorf("out[0] = %q, want b (top scores survive truncation)", out[0].Card.ID)
	}
}

func TestOrderNode_DeduplicatesByID(t *testing.T) {
	node := &OrderNode{DisableShuffle: true}
	fctx := core.NewFeedContext("u1", 10)

	cards := []*core.PersonalizedCard{scored("a", 10), scored("a", 30), scored("b", 20)}
	out, err := node.Process(context.Background(), fctx, cards)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if len(out) != 2 {
		t.Fatalf("len = %d, want 2 after dedupe", len(out))
	}
}

func TestOrderNode_ShuffleKeepsSameSet(t *testing.T) {
	node := &OrderNode{}
	fctx := core.NewFeedContext("u1", 10)

	cards := []*core.PersonalizedCard{scored("a", 10), scored("b", 30), scored("c", 20)}
	out, err := node.Process(context.Background(), fctx, cards)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	seen := make(map[string]bool)
	for _, pc := range out {
		seen[pc.Card.ID] = true
	}
	for _, id := range []string{"a", "b", "c"} {
		if !seen[id] {
			t.Errorf("card %q lost in shuffle", id)
		}
	}
}
