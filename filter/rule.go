package filter

import (
	"context"
	"fmt"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pkg/dsl"
)

// RuleFilter 按 CEL 规则表达式过滤卡片，表达式为 true 时卡片被移除。
// 用于运营侧可配置的排除规则，例如：
//   - `card.type == "challenge" && card.ended` → 隐藏已结束的挑战
//   - `card.priority < 10 && fctx.user_id == ""` → 匿名用户隐藏低优先级卡片
type RuleFilter struct {
	rule *dsl.Rule
}

// NewRuleFilter 编译一条规则表达式。
func NewRuleFilter(expr string) (*RuleFilter, error) {
	rule, err := dsl.NewRule(expr)
	if err != nil {
		return nil, fmt.Errorf("rule filter: %w", err)
	}
	return &RuleFilter{rule: rule}, nil
}

func (f *RuleFilter) Name() string {
	return "filter.rule"
}

func (f *RuleFilter) ShouldFilter(
	_ context.Context,
	fctx *core.FeedContext,
	pc *core.PersonalizedCard,
) (bool, error) {
	if f.rule == nil || pc == nil {
		return false, nil
	}
	return f.rule.Eval(pc, fctx)
}
