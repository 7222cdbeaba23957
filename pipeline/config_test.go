package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rushteam/feedkit/core"
)

type stubNode struct {
	name string
}

func (n *stubNode) Name() string { return n.name }
func (n *stubNode) Kind() Kind   { return KindFilter }
func (n *stubNode) Process(_ context.Context, _ *core.FeedContext, cards []*core.PersonalizedCard) ([]*core.PersonalizedCard, error) {
	return cards, nil
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadFromYAML(t *testing.T) {
	path := writeTempFile(t, "pipeline.yaml", `
pipeline:
  name: default-feed
  nodes:
    - type: engine.quota
      config:
        favorite_boost: 1.5
    - type: engine.fetch
`)

	cfg, err := LoadFromYAML(path)
	if err != nil {
		t.Fatalf("LoadFromYAML: %v", err)
	}
	if cfg.Pipeline.Name != "default-feed" {
		t.Errorf("Name = %q, want default-feed", cfg.Pipeline.Name)
	}
	if len(cfg.Pipeline.Nodes) != 2 {
		t.Fatalf("len(Nodes) = %d, want 2", len(cfg.Pipeline.Nodes))
	}
	if cfg.Pipeline.Nodes[0].Type != "engine.quota" {
		t.Errorf("Nodes[0].Type = %q, want engine.quota", cfg.Pipeline.Nodes[0].Type)
	}
	if got := cfg.Pipeline.Nodes[0].Config["favorite_boost"]; got != 1.5 {
		t.Errorf("favorite_boost = %v, want 1.5", got)
	}
}

func TestLoadFromJSON(t *testing.T) {
	path := writeTempFile(t, "pipeline.json", `{
  "pipeline": {
    "name": "json-feed",
    "nodes": [{"type": "engine.score"}]
  }
}`)

	cfg, err := LoadFromJSON(path)
	if err != nil {
		t.Fatalf("LoadFromJSON: %v", err)
	}
	if cfg.Pipeline.Name != "json-feed" || len(cfg.Pipeline.Nodes) != 1 {
		t.Errorf("cfg = %+v, want json-feed with one node", cfg.Pipeline)
	}
}

func TestConfig_BuildPipeline(t *testing.T) {
	factory := NewNodeFactory()
	factory.Register("stub", func(cfg map[string]interface{}) (Node, error) {
		name, _ := cfg["name"].(string)
		return &stubNode{name: name}, nil
	})

	cfg := &Config{}
	cfg.Pipeline.Nodes = []NodeConfig{
		{Type: "stub", Config: map[string]interface{}{"name": "first"}},
		{Type: "stub", Config: map[string]interface{}{"name": "second"}},
	}

	p, err := cfg.BuildPipeline(factory)
	if err != nil {
		t.Fatalf("BuildPipeline: %v", err)
	}
	if len(p.Nodes) != 2 || p.Nodes[0].Name() != "first" {
		t.Errorf("pipeline = %v, want two stub nodes in order", p.Nodes)
	}
}

func TestConfig_BuildPipeline_UnknownType(t *testing.T) {
	cfg := &Config{}
	cfg.Pipeline.Nodes = []NodeConfig{{Type: "nope"}}

	if _, err := cfg.BuildPipeline(NewNodeFactory()); err == nil {
		t.Error("unknown node type should fail the build")
	}
}

func TestPipeline_RunStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	failing := &failingNode{err: boom}
	p := &Pipeline{Nodes: []Node{&stubNode{name: "ok"}, failing, &stubNode{name: "unreached"}}}

	_, err := p.Run(context.Background(), core.NewFeedContext("u1", 10), nil)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

type failingNode struct {
	err error
}

func (n *failingNode) Name() string { return "failing" }
func (n *failingNode) Kind() Kind   { return KindScore }
func (n *failingNode) Process(context.Context, *core.FeedContext, []*core.PersonalizedCard) ([]*core.PersonalizedCard, error) {
	return nil, n.err
}
