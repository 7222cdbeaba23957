// Package feedkit 是一个个性化信息流引擎工具包（Feed Kit）。
//
// 设计要点：
// - Pipeline-first: 组装逻辑通过 Node 串联（Quota → Fetch → Filter → Score → Order → Annotate）
// - Labels-first: labels 全链路透传与标准化 merge，支持 explain / 观测 / 策略驱动
// - 永不失败: 引擎逐级降级（画像缺失 → 冷启动；单类型失败 → 跳过；流水线失败 → 兜底流）
// - Node 可扩展: 自定义 Node / Filter 即可插拔扩展
package feedkit

import "github.com/rushteam/feedkit/pipeline"

// 轻量 facade：便于用户直接 import "feedkit" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindQuota    = pipeline.KindQuota
	KindFetch    = pipeline.KindFetch
	KindFilter   = pipeline.KindFilter
	KindScore    = pipeline.KindScore
	KindOrder    = pipeline.KindOrder
	KindAnnotate = pipeline.KindAnnotate
)
