package focusgroup

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/BaSui01/contentcycle/inference"
	"github.com/BaSui01/contentcycle/llm"
	"github.com/BaSui01/contentcycle/store"
	"github.com/BaSui01/contentcycle/types"
)

// DefaultParallelism 单次扇出的并发上限。
const DefaultParallelism = 5

// PanelResult 一次小组评估的全部产出。
type PanelResult struct {
	Feedback []store.Feedback
	Usage    llm.ChatUsage
	// Degraded 任一参与者走了降级路径
	Degraded       bool
	FallbackReason string
	// Failed 失败的参与者数，失败不阻断评估
	Failed int
}

// Panel 对一组画像并发执行评估。
type Panel struct {
	client      inference.Client
	parallelism int64
	logger      *zap.Logger
}

// NewPanel 创建评估小组，parallelism 不合法时取默认值。
func NewPanel(client inference.Client, parallelism int, logger *zap.Logger) *Panel {
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}
	return &Panel{
		client:      client,
		parallelism: int64(parallelism),
		logger:      logger.With(zap.String("component", "focus_group")),
	}
}

// Run 并发收集每个画像的评估。
// 单个画像失败只计数不上抛；全部失败返回 NO_FEEDBACK_COLLECTED。
// 上下文取消后结果不可用，调用方不得落库。
func (p *Panel) Run(ctx context.Context, in inference.EvaluationInput, personas []inference.Persona) (*PanelResult, error) {
	if len(personas) == 0 {
		return nil, types.NewError(types.ErrNoFeedbackCollected,
			"no personas available for focus group")
	}

	sem := semaphore.NewWeighted(p.parallelism)
	evals := make([]*inference.Evaluation, len(personas))
	errs := make([]error, len(personas))

	var wg sync.WaitGroup
	for i, persona := range personas {
		if err := sem.Acquire(ctx, 1); err != nil {
			errs[i] = err
			break
		}
		wg.Add(1)
		go func(i int, persona inference.Persona) {
			defer wg.Done()
			defer sem.Release(1)
			ev, err := p.client.Evaluate(ctx, in, persona)
			if err != nil {
				p.logger.Warn("画像评估失败",
					zap.String("persona", persona.ID),
					zap.Error(err))
				errs[i] = err
				return
			}
			evals[i] = ev
		}(i, persona)
	}
	wg.Wait()

	// 取消后已完成的结果一律丢弃
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &PanelResult{}
	var lastErr error
	for i, ev := range evals {
		if ev == nil {
			result.Failed++
			if errs[i] != nil {
				lastErr = errs[i]
			}
			continue
		}
		result.Feedback = append(result.Feedback, store.Feedback{
			ParticipantID:   personas[i].ID,
			ParticipantType: personas[i].Type,
			Rating:          ev.Rating,
			Likes:           ev.Likes,
			Dislikes:        ev.Dislikes,
			Suggestions:     ev.Suggestions,
			RawResponse:     ev.RawResponse,
			Degraded:        ev.Degraded,
		})
		result.Usage.PromptTokens += ev.Usage.PromptTokens
		result.Usage.CompletionTokens += ev.Usage.CompletionTokens
		result.Usage.TotalTokens += ev.Usage.TotalTokens
		result.Usage.Cost += ev.Usage.Cost
		if ev.Degraded {
			result.Degraded = true
			if result.FallbackReason == "" {
				result.FallbackReason = ev.FallbackReason
			}
		}
	}

	if len(result.Feedback) == 0 {
		err := types.NewErrorf(types.ErrNoFeedbackCollected,
			"all %d persona evaluations failed", len(personas))
		if lastErr != nil {
			err = err.WithCause(lastErr)
		}
		return nil, err
	}

	sort.Slice(result.Feedback, func(i, j int) bool {
		return result.Feedback[i].ParticipantID < result.Feedback[j].ParticipantID
	})

	p.logger.Info("焦点小组评估完成",
		zap.Int("personas", len(personas)),
		zap.Int("succeeded", len(result.Feedback)),
		zap.Int("failed", result.Failed))

	return result, nil
}
