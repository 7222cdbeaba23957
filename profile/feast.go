package profile

import (
	"context"
	"fmt"
	"strings"
	"time"

	feastsdk "github.com/feast-dev/feast/sdk/go"
	feasttypes "github.com/feast-dev/feast/sdk/go/protos/feast/types"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pkg/conv"
)

// Feast 在线特征的默认特征名。离线任务把长周期行为聚合成这些特征物化到
// Feature Store，本地行为样本太薄时用它们给画像打底。
const (
	FeatureFavoriteTypes = "user_preferences:favorite_types" // 逗号分隔的类型列表
	FeatureSectors       = "user_preferences:sectors"        // 逗号分隔的板块列表
	FeatureDifficulty    = "user_preferences:difficulty"     // beginner / intermediate / advanced
	FeatureConfidence    = "user_preferences:confidence"     // 0-1
)

// FeastSource 是基于 Feast Feature Store 的远端画像特征源。
//
// 它不替代本地画像推导：只在本地行为样本不足（冷启动/新设备）时
// 提供一份离线物化的偏好底稿。Feast 不可用时静默跳过。
type FeastSource struct {
	client  *feastsdk.GrpcClient
	project string

	// Features 要拉取的特征名，空时使用默认四项
	Features []string

	// EntityKey 实体键名，默认 "user_id"
	EntityKey string

	// Timeout 单次调用超时，默认 3s
	Timeout time.Duration
}

// NewFeastSource 创建一个 Feast gRPC 特征源。
func NewFeastSource(host string, port int, project string) (*FeastSource, error) {
	if port == 0 {
		port = 6565
	}
	client, err := feastsdk.NewGrpcClient(host, port)
	if err != nil {
		return nil, fmt.Errorf("feast grpc client: %w", err)
	}
	return &FeastSource{
		client:  client,
		project: project,
	}, nil
}

func (s *FeastSource) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *FeastSource) featureRefs() []string {
	if len(s.Features) > 0 {
		return s.Features
	}
	return []string{FeatureFavoriteTypes, FeatureSectors, FeatureDifficulty, FeatureConfidence}
}

// Fetch 拉取单个用户的偏好特征，返回 featureName -> value。
func (s *FeastSource) Fetch(ctx context.Context, userID string) (map[string]any, error) {
	if s.client == nil {
		return nil, core.NewProfileFetchError("feast: client not initialized")
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entityKey := s.EntityKey
	if entityKey == "" {
		entityKey = "user_id"
	}

	resp, err := s.client.GetOnlineFeatures(ctx, &feastsdk.OnlineFeaturesRequest{
		Features: s.featureRefs(),
		Entities: []feastsdk.Row{{entityKey: feastsdk.StrVal(userID)}},
		Project:  s.project,
	})
	if err != nil {
		return nil, fmt.Errorf("feast get online features: %w", err)
	}

	rows := resp.Rows()
	if len(rows) == 0 {
		return nil, nil
	}

	values := make(map[string]any)
	for _, name := range s.featureRefs() {
		if v, ok := rows[0][name]; ok {
			if converted := valueToAny(v); converted != nil {
				values[name] = converted
			}
		}
	}
	return values, nil
}

// Seed 把远端特征解析成一份画像底稿。
// confidence 取远端给的值（缺省 0.4），不会超过本地推导封顶逻辑的语义。
func (s *FeastSource) Seed(userID string, values map[string]any) *core.UserPreferenceProfile {
	p := core.EmptyProfile(userID)
	if len(values) == 0 {
		return p
	}

	if raw, ok := conv.ToString(values[FeatureFavoriteTypes]); ok && raw != "" {
		for _, t := range strings.Split(raw, ",") {
			t = strings.TrimSpace(t)
			if t != "" {
				p.FavoriteContentTypes = append(p.FavoriteContentTypes, core.CardType(t))
			}
		}
	}
	if raw, ok := conv.ToString(values[FeatureSectors]); ok && raw != "" {
		for _, sec := range strings.Split(raw, ",") {
			sec = strings.TrimSpace(sec)
			if sec != "" {
				p.PreferredSectors[sec] = true
			}
		}
	}
	if raw, ok := conv.ToString(values[FeatureDifficulty]); ok && raw != "" {
		p.PreferredDifficulty = core.Difficulty(raw)
	}

	p.Confidence = 0.4
	if c, ok := conv.ToFloat64(values[FeatureConfidence]); ok && c > 0 {
		if c > 1 {
			c = 1
		}
		p.Confidence = c
	}
	p.LastUpdated = time.Now()
	return p
}

// valueToAny 把 Feast protobuf Value 转为 Go 原生类型。
func valueToAny(v *feasttypes.Value) any {
	if v == nil {
		return nil
	}
	switch x := v.GetVal().(type) {
	case *feasttypes.Value_StringVal:
		return x.StringVal
	case *feasttypes.Value_DoubleVal:
		return x.DoubleVal
	case *feasttypes.Value_FloatVal:
		return float64(x.FloatVal)
	case *feasttypes.Value_Int64Val:
		return float64(x.Int64Val)
	case *feasttypes.Value_Int32Val:
		return float64(x.Int32Val)
	case *feasttypes.Value_BoolVal:
		return x.BoolVal
	case *feasttypes.Value_BytesVal:
		return string(x.BytesVal)
	default:
		return nil
	}
}
