// Package focusgroup 实现焦点小组评估：画像选取、并发扇出与反馈聚合。
package focusgroup

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/contentcycle/inference"
	"github.com/BaSui01/contentcycle/store"
)

const (
	// DefaultTargetMarketCount 默认目标受众画像数
	DefaultTargetMarketCount = 3
	// DefaultRandomCount 默认随机大众画像数
	DefaultRandomCount = 2
)

// Selector 按配置从画像库挑选本轮参与者。
type Selector struct {
	store  *store.Store
	logger *zap.Logger
}

// NewSelector 创建画像选择器。
func NewSelector(st *store.Store, logger *zap.Logger) *Selector {
	return &Selector{store: st, logger: logger}
}

// Select 解析小组配置为参与者列表。
// 显式点名优先；否则按类型轮转补齐，画像不足时复用并给
// 参与者 ID 追加 _n 后缀区分副本。库里没有任何画像时返回空列表。
func (s *Selector) Select(ctx context.Context, cfg store.PanelConfig) ([]inference.Persona, error) {
	if len(cfg.PersonaIDs) > 0 {
		personas, err := s.store.PersonasByIDs(ctx, cfg.PersonaIDs)
		if err != nil {
			return nil, err
		}
		return toParticipants(personas), nil
	}

	targetCount := cfg.TargetMarketCount
	if targetCount == 0 {
		targetCount = DefaultTargetMarketCount
	}
	randomCount := cfg.RandomCount
	if randomCount == 0 {
		randomCount = DefaultRandomCount
	}

	targets, err := s.store.ListPersonas(ctx, "target_market")
	if err != nil {
		return nil, err
	}
	randoms, err := s.store.ListPersonas(ctx, "random")
	if err != nil {
		return nil, err
	}

	if len(targets) == 0 && len(randoms) == 0 {
		s.logger.Warn("画像库为空，先执行 seed 再运行焦点小组")
		return nil, nil
	}

	out := make([]inference.Persona, 0, targetCount+randomCount)
	out = append(out, roundRobin(targets, targetCount)...)
	out = append(out, roundRobin(randoms, randomCount)...)
	return out, nil
}

// roundRobin 从 pool 轮转取 count 个参与者。
// 第二轮起的副本 ID 形如 <id>_2、<id>_3。
func roundRobin(pool []store.Persona, count int) []inference.Persona {
	if len(pool) == 0 {
		return nil
	}
	out := make([]inference.Persona, 0, count)
	for i := 0; i < count; i++ {
		p := pool[i%len(pool)]
		id := p.ID
		if i >= len(pool) {
			id = fmt.Sprintf("%s_%d", p.ID, i/len(pool)+1)
		}
		out = append(out, inference.Persona{
			ID:           id,
			Type:         p.Type,
			Name:         p.Name,
			SystemPrompt: p.SystemPrompt,
		})
	}
	return out
}

func toParticipants(personas []store.Persona) []inference.Persona {
	out := make([]inference.Persona, 0, len(personas))
	for _, p := range personas {
		out = append(out, inference.Persona{
			ID:           p.ID,
			Type:         p.Type,
			Name:         p.Name,
			SystemPrompt: p.SystemPrompt,
		})
	}
	return out
}
