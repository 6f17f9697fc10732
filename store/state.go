package store

import (
	"context"

	"github.com/BaSui01/contentcycle/types"
)

// IterationState 某一轮循环的完整读模型，供前端与 API 消费。
type IterationState struct {
	Content    ContentItem `json:"content"`
	Cycle      Cycle       `json:"cycle"`
	Feedback   []Feedback  `json:"feedback"`
	CycleCount int         `json:"cycleCount"`
	Totals     CostTotals  `json:"totals"`
}

// IterationState 组装指定轮次的读模型，cycleNumber 为 0 时取最新一轮。
func (s *Store) IterationState(ctx context.Context, contentID string, cycleNumber int) (*IterationState, error) {
	content, err := s.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}

	var cycle *Cycle
	if cycleNumber == 0 {
		cycle, err = s.LatestCycle(ctx, contentID)
	} else {
		cycle, err = s.GetCycle(ctx, contentID, cycleNumber)
	}
	if err != nil {
		return nil, err
	}

	feedback, err := s.ListFeedback(ctx, cycle.ID)
	if err != nil {
		return nil, err
	}

	count, err := s.CountCycles(ctx, contentID)
	if err != nil {
		return nil, err
	}

	totals, err := s.ContentTotals(ctx, contentID)
	if err != nil {
		return nil, err
	}

	return &IterationState{
		Content:    *content,
		Cycle:      *cycle,
		Feedback:   feedback,
		CycleCount: count,
		Totals:     totals,
	}, nil
}

// ContentHistory 内容的全量历史：每轮循环及其反馈。
type ContentHistory struct {
	Content ContentItem  `json:"content"`
	Cycles  []CycleTrace `json:"cycles"`
	Totals  CostTotals   `json:"totals"`
}

// CycleTrace 历史中的一轮循环。
type CycleTrace struct {
	Cycle    Cycle      `json:"cycle"`
	Feedback []Feedback `json:"feedback"`
}

// History 组装内容的完整打磨历史，按轮次升序。
func (s *Store) History(ctx context.Context, contentID string) (*ContentHistory, error) {
	content, err := s.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}
	cycles, err := s.ListCycles(ctx, contentID)
	if err != nil {
		return nil, err
	}

	traces := make([]CycleTrace, 0, len(cycles))
	for _, c := range cycles {
		fb, err := s.ListFeedback(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		traces = append(traces, CycleTrace{Cycle: c, Feedback: fb})
	}

	totals, err := s.ContentTotals(ctx, contentID)
	if err != nil {
		return nil, err
	}

	return &ContentHistory{Content: *content, Cycles: traces, Totals: totals}, nil
}

// ActiveCycle 返回最新一轮循环，且要求其处于给定状态之一。
func (s *Store) ActiveCycle(ctx context.Context, contentID string, want ...types.CycleStatus) (*Cycle, error) {
	c, err := s.LatestCycle(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if len(want) == 0 {
		return c, nil
	}
	for _, w := range want {
		if c.Status == w {
			return c, nil
		}
	}
	return nil, types.NewErrorf(types.ErrInvalidTransition,
		"cycle %d of content %s is %s", c.CycleNumber, contentID, c.Status).WithHTTPStatus(409)
}
