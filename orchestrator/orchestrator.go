// Package orchestrator 实现多轮自治收敛循环：
// 反复执行 焦点小组 → 达标检查 → 编辑修订 → 下一轮，
// 直到平均分达标或循环预算耗尽。
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/contentcycle/service"
	"github.com/BaSui01/contentcycle/store"
	"github.com/BaSui01/contentcycle/types"
)

// 终止原因。
const (
	ReasonTargetRatingMet  = "target_rating_met"
	ReasonMaxCyclesReached = "max_cycles_reached"
	ReasonError            = "error"
)

// Request 一次编排运行的入参。
type Request struct {
	ContentID    string  `json:"contentId"`
	TargetRating float64 `json:"targetRating"`
	MaxCycles    int     `json:"maxCycles"`
	// PersonaIDs 覆盖内容自带的小组配置
	PersonaIDs         []string `json:"personaIds,omitempty"`
	EditorInstructions string   `json:"editorInstructions,omitempty"`
	// Surface 为 true 时内部致命错误原样上抛，默认折叠为 stopped 结果
	Surface bool `json:"-"`
}

func (r *Request) validate() error {
	if r.ContentID == "" {
		return types.NewError(types.ErrInvalidRequest, "contentId is required").WithHTTPStatus(400)
	}
	if r.TargetRating <= 0 || r.TargetRating > 10 {
		return types.NewError(types.ErrInvalidRequest, "targetRating must be between 0 and 10").WithHTTPStatus(400)
	}
	if r.MaxCycles <= 0 || r.MaxCycles > service.MaxCyclesLimit {
		return types.NewErrorf(types.ErrInvalidRequest,
			"maxCycles must be between 1 and %d", service.MaxCyclesLimit).WithHTTPStatus(400)
	}
	if len(r.EditorInstructions) > service.MaxEditorInstructions {
		return types.NewErrorf(types.ErrInvalidRequest,
			"editorInstructions cannot exceed %d characters", service.MaxEditorInstructions).WithHTTPStatus(400)
	}
	return nil
}

// Result 编排运行的结论。
type Result struct {
	Status      string                `json:"status"` // success | stopped
	Reason      string                `json:"reason"`
	Achieved    bool                  `json:"achieved"`
	FinalRating float64               `json:"finalRating"`
	Cycle       int                   `json:"cycle,omitempty"`
	Error       string                `json:"error,omitempty"`
	State       *store.IterationState `json:"state,omitempty"`
}

// Orchestrator 驱动自治打磨循环。
// 同一内容的运行通过按 ID 的互斥锁串行化，不同内容互不影响。
type Orchestrator struct {
	svc    *service.Service
	logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New 创建编排器。
func New(svc *service.Service, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		svc:    svc,
		logger: logger.With(zap.String("component", "orchestrator")),
		locks:  make(map[string]*sync.Mutex),
	}
}

// lockFor 返回内容专属的互斥锁。
func (o *Orchestrator) lockFor(contentID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.locks[contentID]
	if !ok {
		l = &sync.Mutex{}
		o.locks[contentID] = l
	}
	return l
}

// Run 执行编排。内部致命错误默认折叠为
// {status: stopped, reason: error}，Surface 为 true 时上抛。
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	lock := o.lockFor(req.ContentID)
	lock.Lock()
	defer lock.Unlock()

	result, err := o.run(ctx, req)
	if err != nil {
		if req.Surface {
			return nil, err
		}
		o.logger.Warn("编排因内部错误停止",
			zap.String("content_id", req.ContentID),
			zap.Error(err))
		return &Result{
			Status:   "stopped",
			Reason:   ReasonError,
			Achieved: false,
			Error:    err.Error(),
		}, nil
	}
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, req Request) (*Result, error) {
	st := o.svc.Store()

	content, err := st.GetContent(ctx, req.ContentID)
	if err != nil {
		return nil, err
	}

	// 实际预算取请求与内容自身上限的较小者，
	// 否则 PromoteCycle 按内容上限拒绝时会被误报为 error。
	budget := req.MaxCycles
	if content.MaxCycles > 0 && content.MaxCycles < budget {
		budget = content.MaxCycles
	}

	// 终态循环先处理：预算未耗尽则开新一轮，否则直接停止
	latest, err := st.LatestCycle(ctx, req.ContentID)
	if err != nil {
		return nil, err
	}
	count, err := st.CountCycles(ctx, req.ContentID)
	if err != nil {
		return nil, err
	}
	if latest.Status.Terminal() {
		if count >= budget {
			return o.stopped(ctx, req, ReasonMaxCyclesReached, latest.CycleNumber, nil), nil
		}
		if err := st.CreateCycle(ctx, newFollowUpCycle(req.ContentID, count+1, content.CurrentContent)); err != nil {
			return nil, err
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		c, err := st.LatestCycle(ctx, req.ContentID)
		if err != nil {
			return nil, err
		}

		switch c.Status {
		case types.StatusDraft, types.StatusFocusGroupRunning:
			state, err := o.svc.RunFocusGroup(ctx, req.ContentID, service.RunFocusGroupOptions{
				PersonaIDs: req.PersonaIDs,
			})
			if err != nil {
				return nil, err
			}
			agg := state.Cycle.Aggregate
			o.logger.Info("循环评估完成",
				zap.String("content_id", req.ContentID),
				zap.Int("cycle", state.Cycle.CycleNumber),
				zap.Float64("average_rating", agg.AverageRating))

			// 达标检查先于编辑，避免目标已达成后的无谓修订开销
			if agg.AverageRating >= req.TargetRating {
				return o.success(state, agg.AverageRating), nil
			}

		case types.StatusFocusGroupComplete:
			if c.Aggregate != nil && c.Aggregate.AverageRating >= req.TargetRating {
				state, err := st.IterationState(ctx, req.ContentID, c.CycleNumber)
				if err != nil {
					return nil, err
				}
				return o.success(state, c.Aggregate.AverageRating), nil
			}
			if _, err := o.svc.RunEditor(ctx, req.ContentID, service.RunEditorOptions{
				Instructions: req.EditorInstructions,
			}); err != nil {
				return nil, err
			}

		case types.StatusEditorRunning:
			if _, err := o.svc.RunEditor(ctx, req.ContentID, service.RunEditorOptions{
				Instructions: req.EditorInstructions,
			}); err != nil {
				return nil, err
			}

		case types.StatusEditorComplete:
			count, err := st.CountCycles(ctx, req.ContentID)
			if err != nil {
				return nil, err
			}
			if count >= budget {
				return o.stopped(ctx, req, ReasonMaxCyclesReached, c.CycleNumber, c.Aggregate), nil
			}
			if _, err := o.svc.PromoteCycle(ctx, req.ContentID); err != nil {
				// 编排期间内容上限被并发调低时仍可能撞上预算
				if types.GetErrorCode(err) == types.ErrMaxCyclesReached {
					return o.stopped(ctx, req, ReasonMaxCyclesReached, c.CycleNumber, c.Aggregate), nil
				}
				return nil, err
			}

		default:
			// 终态（approved/rejected/error）在循环内出现说明预算已在上游耗尽
			return o.stopped(ctx, req, ReasonMaxCyclesReached, c.CycleNumber, c.Aggregate), nil
		}
	}
}

func newFollowUpCycle(contentID string, number int, input string) *store.Cycle {
	return &store.Cycle{
		ID:           uuid.NewString(),
		ContentID:    contentID,
		CycleNumber:  number,
		Status:       types.StatusDraft,
		InputContent: input,
		StatusHistory: []store.StatusChange{
			{Status: types.StatusDraft, At: time.Now().UTC()},
		},
	}
}

func (o *Orchestrator) success(state *store.IterationState, rating float64) *Result {
	return &Result{
		Status:      "success",
		Reason:      ReasonTargetRatingMet,
		Achieved:    true,
		FinalRating: rating,
		Cycle:       state.Cycle.CycleNumber,
		State:       state,
	}
}

func (o *Orchestrator) stopped(ctx context.Context, req Request, reason string, cycleNumber int, agg *store.AggregatedFeedback) *Result {
	res := &Result{
		Status:   "stopped",
		Reason:   reason,
		Achieved: false,
		Cycle:    cycleNumber,
	}
	if agg != nil {
		res.FinalRating = agg.AverageRating
	}
	if state, err := o.svc.Store().IterationState(ctx, req.ContentID, cycleNumber); err == nil {
		res.State = state
		if agg == nil && state.Cycle.Aggregate != nil {
			res.FinalRating = state.Cycle.Aggregate.AverageRating
		}
	}
	return res
}
