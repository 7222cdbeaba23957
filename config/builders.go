package config

import (
	"fmt"
	"time"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/engine"
	"github.com/rushteam/feedkit/filter"
	"github.com/rushteam/feedkit/pipeline"
	"github.com/rushteam/feedkit/pkg/conv"
)

// BuilderDeps 是 Node 构建器需要的运行期依赖。
// 配置文件只声明节点与参数，仓库/行为日志这类对象从这里注入。
type BuilderDeps struct {
	Repo         core.ContentRepository
	Interactions core.InteractionStore
}

// RegisterBuiltins 注册全部内置 Node 的构建器。
// 配置驱动时在入口处调用一次，之后 DefaultFactory 即可构建完整流水线。
func RegisterBuiltins(deps BuilderDeps) {
	Register("engine.quota", buildQuotaNode)
	Register("engine.fetch", func(cfg map[string]interface{}) (pipeline.Node, error) {
		return buildFetchNode(deps, cfg)
	})
	Register("engine.score", buildScoreNode)
	Register("engine.order", buildOrderNode)
	Register("engine.annotate", buildAnnotateNode)
	Register("filter.node", func(cfg map[string]interface{}) (pipeline.Node, error) {
		return buildFilterNode(deps, cfg)
	})
}

func buildQuotaNode(cfg map[string]interface{}) (pipeline.Node, error) {
	node := &engine.QuotaNode{
		LowConfidenceThreshold: conv.ConfigGetFloat64(cfg, "low_confidence_threshold", 0),
		FavoriteBoost:          conv.ConfigGetFloat64(cfg, "favorite_boost", 0),
	}
	if d, err := distributionFromConfig(cfg, "cold_start"); err != nil {
		return nil, err
	} else if d != nil {
		node.ColdStart = d
	}
	if d, err := distributionFromConfig(cfg, "base"); err != nil {
		return nil, err
	} else if d != nil {
		node.Base = d
	}
	return node, nil
}

func buildFetchNode(deps BuilderDeps, cfg map[string]interface{}) (pipeline.Node, error) {
	if deps.Repo == nil {
		return nil, fmt.Errorf("engine.fetch requires a content repository")
	}
	return &engine.FetchNode{
		Repo:          deps.Repo,
		Timeout:       time.Duration(conv.ConfigGetInt(cfg, "timeout_ms", 0)) * time.Millisecond,
		MaxConcurrent: conv.ConfigGetInt(cfg, "max_concurrent", 0),
	}, nil
}

func buildScoreNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return &engine.ScoreNode{
		TypeBoost:       conv.ConfigGetFloat64(cfg, "type_boost", 0),
		DifficultyBoost: conv.ConfigGetFloat64(cfg, "difficulty_boost", 0),
		SectorBoost:     conv.ConfigGetFloat64(cfg, "sector_boost", 0),
	}, nil
}

func buildOrderNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return &engine.OrderNode{
		DisableShuffle: conv.ConfigGet(cfg, "disable_shuffle", false),
	}, nil
}

func buildAnnotateNode(_ map[string]interface{}) (pipeline.Node, error) {
	return &engine.AnnotateNode{}, nil
}

// buildFilterNode 构建过滤节点，filters 列表里声明各过滤器：
//
//	filters:
//	  - type: preference
//	  - type: seen
//	    window_hours: 168
//	  - type: rule
//	    expr: 'card.type != "challenge" || !card.ended'
func buildFilterNode(deps BuilderDeps, cfg map[string]interface{}) (pipeline.Node, error) {
	rawFilters, _ := cfg["filters"].([]interface{})
	filters := make([]filter.Filter, 0, len(rawFilters))

	for _, raw := range rawFilters {
		fc, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("filter entry must be a mapping, got %T", raw)
		}
		typeName, _ := conv.ToString(fc["type"])

		switch typeName {
		case "preference":
			filters = append(filters, &filter.PreferenceFilter{
				KeepDifficultyMismatch: conv.ConfigGetFloat64(fc, "keep_difficulty_mismatch", 0),
				KeepSectorMismatch:     conv.ConfigGetFloat64(fc, "keep_sector_mismatch", 0),
			})
		case "seen":
			if deps.Interactions == nil {
				return nil, fmt.Errorf("filter.seen requires an interaction store")
			}
			filters = append(filters, &filter.SeenFilter{
				Store:  deps.Interactions,
				Window: time.Duration(conv.ConfigGetInt(fc, "window_hours", 0)) * time.Hour,
			})
		case "rule":
			expr, _ := conv.ToString(fc["expr"])
			if expr == "" {
				return nil, fmt.Errorf("filter.rule requires expr")
			}
			rf, err := filter.NewRuleFilter(expr)
			if err != nil {
				return nil, fmt.Errorf("compile rule filter: %w", err)
			}
			filters = append(filters, rf)
		default:
			return nil, fmt.Errorf("unknown filter type: %q", typeName)
		}
	}

	return &filter.FilterNode{Filters: filters}, nil
}

// distributionFromConfig 把 config 里的 map[string]float64 声明转为类型分布。
func distributionFromConfig(cfg map[string]interface{}, key string) (engine.Distribution, error) {
	raw, ok := cfg[key]
	if !ok {
		return nil, nil
	}
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%s must be a mapping of card type to share", key)
	}

	dist := make(engine.Distribution, len(m))
	for k, v := range m {
		share, ok := conv.ToFloat64(v)
		if !ok {
			return nil, fmt.Errorf("%s.%s: share must be a number, got %T", key, k, v)
		}
		dist[core.CardType(k)] = share
	}
	return dist, nil
}
