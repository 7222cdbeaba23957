// Package dsl 提供基于 CEL (Common Expression Language) 的规则表达式求值，
// 用于运营侧可配置的卡片排除/放行规则。
package dsl

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/feedkit/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("card", cel.DynType),
		cel.Variable("label", cel.DynType),
		cel.Variable("fctx", cel.DynType),
	)
	return env, err
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	var err error
	celEnvOnce.Do(func() {
		celEnv, err = initCELEnv()
	})
	if celEnv == nil && err == nil {
		err = fmt.Errorf("cel env not initialized")
	}
	return celEnv, err
}

// Rule 是一条编译好的规则表达式，可以对多张卡片重复求值。
//
// 表达式语法（CEL 标准语法）：
//   - 基础：card.type == "challenge" / card.priority > 50
//   - 逻辑：card.type == "news" && card.sector == "Technology"
//   - 标签：label.filtered != null
//   - 上下文：fctx.feed_type == "default"
//
// 示例：
//   - `card.type == "challenge" && card.ended` → 已结束的挑战
//   - `card.priority < 10 && fctx.user_id == ""` → 匿名用户隐藏低优先级卡片
type Rule struct {
	expr string
	prg  cel.Program
}

// NewRule 编译一条规则表达式。表达式必须返回布尔值。
func NewRule(expr string) (*Rule, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %v", issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %v", err)
	}

	return &Rule{expr: expr, prg: prg}, nil
}

// Expr 返回规则的原始表达式（用于日志/观测）。
func (r *Rule) Expr() string { return r.expr }

// Eval 对一张卡片求值，返回布尔结果。
// 对于不存在的 key，CEL 会返回错误；规则作者应使用 `label.key != null`
// 检查存在性，而不是直接访问。
func (r *Rule) Eval(pc *core.PersonalizedCard, fctx *core.FeedContext) (bool, error) {
	out, _, err := r.prg.Eval(buildInput(pc, fctx))
	if err != nil {
		return false, fmt.Errorf("eval error: %v", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据
func buildInput(pc *core.PersonalizedCard, fctx *core.FeedContext) map[string]interface{} {
	// 构建 label 访问器：label.filtered 直接返回 value
	// 注意：CEL 访问不存在的 key 会报错，规则里用 label.key != null 检查存在性
	labelAccessor := make(map[string]interface{})
	for k, v := range pc.Labels {
		labelAccessor[k] = v.Value
	}

	card := map[string]interface{}{
		"id":       "",
		"type":     "",
		"title":    "",
		"priority": 0,
		"score":    pc.Score,
		"sector":   "",
		"tags":     []string{},
		"ended":    false,
	}
	if c := pc.Card; c != nil {
		card["id"] = c.ID
		card["type"] = string(c.Type)
		card["title"] = c.Title
		card["priority"] = c.Priority
		card["sector"] = c.Sector()
		card["difficulty"] = string(c.Difficulty())
		card["tags"] = c.Tags
		card["ended"] = c.Ended(time.Now())
	}

	fc := map[string]interface{}{
		"user_id":    "",
		"session_id": "",
		"feed_type":  "",
		"params":     map[string]any{},
	}
	if fctx != nil {
		fc["user_id"] = fctx.UserID
		fc["session_id"] = fctx.SessionID
		fc["feed_type"] = fctx.FeedType
		fc["params"] = fctx.Params
	}

	return map[string]interface{}{
		"card":  card,
		"label": labelAccessor,
		"fctx":  fc,
	}
}
