package inference

import (
	"context"

	"go.uber.org/zap"

	"github.com/BaSui01/contentcycle/types"
)

// FallbackClient 先走 Live，失败时降级为 Mock。
// 降级不会让调用方拿到错误；结果上的 Degraded 标记记录了降级事实，
// 供上层把循环模式落库为 live-fallback。
// 取消类错误不降级，直接上抛。
type FallbackClient struct {
	live   Client
	mock   Client
	logger *zap.Logger
}

// NewFallbackClient 创建降级客户端。
func NewFallbackClient(live, mock Client, logger *zap.Logger) *FallbackClient {
	return &FallbackClient{live: live, mock: mock, logger: logger}
}

func (c *FallbackClient) Mode() types.AIMode { return types.AIModeLiveFallback }

func (c *FallbackClient) Evaluate(ctx context.Context, in EvaluationInput, persona Persona) (*Evaluation, error) {
	ev, err := c.live.Evaluate(ctx, in, persona)
	if err == nil {
		return ev, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	c.logger.Warn("画像评估降级为 mock",
		zap.String("persona", persona.ID),
		zap.Error(err))
	ev, mockErr := c.mock.Evaluate(ctx, in, persona)
	if mockErr != nil {
		return nil, mockErr
	}
	ev.Degraded = true
	ev.FallbackReason = err.Error()
	return ev, nil
}

func (c *FallbackClient) Synthesize(ctx context.Context, items []FeedbackItem) (*ModeratorSummary, error) {
	sum, err := c.live.Synthesize(ctx, items)
	if err == nil {
		return sum, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	c.logger.Warn("主持人综述降级为 mock", zap.Error(err))
	sum, mockErr := c.mock.Synthesize(ctx, items)
	if mockErr != nil {
		return nil, mockErr
	}
	sum.Degraded = true
	sum.FallbackReason = err.Error()
	return sum, nil
}

func (c *FallbackClient) Revise(ctx context.Context, req RevisionRequest) (*Revision, error) {
	rev, err := c.live.Revise(ctx, req)
	if err == nil {
		return rev, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	c.logger.Warn("编辑修订降级为 mock", zap.Error(err))
	rev, mockErr := c.mock.Revise(ctx, req)
	if mockErr != nil {
		return nil, mockErr
	}
	rev.Degraded = true
	rev.FallbackReason = err.Error()
	return rev, nil
}
