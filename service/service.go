// Package service 是打磨循环的业务门面，串联画像选取、
// 焦点小组、聚合、综述与编辑修订，并维护循环状态与费用。
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/contentcycle/cycle"
	"github.com/BaSui01/contentcycle/focusgroup"
	"github.com/BaSui01/contentcycle/inference"
	"github.com/BaSui01/contentcycle/internal/metrics"
	"github.com/BaSui01/contentcycle/store"
	"github.com/BaSui01/contentcycle/types"
)

const (
	// MaxEditorInstructions 编辑指令长度上限
	MaxEditorInstructions = 1000
	// MaxCyclesLimit 单条内容允许的最大循环预算
	MaxCyclesLimit = 10
)

// Service 对外暴露打磨循环的全部操作。
type Service struct {
	store    *store.Store
	selector *focusgroup.Selector
	panel    *focusgroup.Panel
	machine  *cycle.Machine
	client   inference.Client
	metrics  *metrics.Collector
	logger   *zap.Logger
}

// New 创建业务门面。
func New(st *store.Store, client inference.Client, parallelism int, logger *zap.Logger) *Service {
	return &Service{
		store:    st,
		selector: focusgroup.NewSelector(st, logger),
		panel:    focusgroup.NewPanel(client, parallelism, logger),
		machine:  cycle.NewMachine(st, logger),
		client:   client,
		logger:   logger.With(zap.String("component", "service")),
	}
}

// SetMetrics 注入指标收集器。nil 收集器安全空转，默认即为 nil。
func (s *Service) SetMetrics(c *metrics.Collector) { s.metrics = c }

// Store 返回底层持久化层，供只读消费方使用。
func (s *Service) Store() *store.Store { return s.store }

// CreateContentRequest 新建内容的入参。
type CreateContentRequest struct {
	Title                string            `json:"title"`
	ContentType          string            `json:"contentType"`
	TargetAudience       string            `json:"targetAudience"`
	OriginalInput        string            `json:"originalInput"`
	TargetRating         float64           `json:"targetRating"`
	MaxCycles            int               `json:"maxCycles"`
	ConvergenceThreshold float64           `json:"convergenceThreshold"`
	Panel                store.PanelConfig `json:"panel"`
	CostEstimate         float64           `json:"costEstimate"`
}

func (r *CreateContentRequest) validate() error {
	if strings.TrimSpace(r.OriginalInput) == "" {
		return types.NewError(types.ErrInvalidRequest, "originalInput is required").WithHTTPStatus(400)
	}
	if r.TargetRating <= 0 || r.TargetRating > 10 {
		return types.NewError(types.ErrInvalidRequest, "targetRating must be between 0 and 10").WithHTTPStatus(400)
	}
	if r.MaxCycles <= 0 || r.MaxCycles > MaxCyclesLimit {
		return types.NewErrorf(types.ErrInvalidRequest, "maxCycles must be between 1 and %d", MaxCyclesLimit).WithHTTPStatus(400)
	}
	if r.ConvergenceThreshold < 0 || r.ConvergenceThreshold > 1 {
		return types.NewError(types.ErrInvalidRequest, "convergenceThreshold must be between 0 and 1").WithHTTPStatus(400)
	}
	return nil
}

// CreateContent 新建内容并开出第一轮循环。
func (s *Service) CreateContent(ctx context.Context, req CreateContentRequest) (*store.IterationState, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	item := &store.ContentItem{
		ID:                   fmt.Sprintf("content-%s-%s", now.Format("2006-01-02"), uuid.NewString()[:8]),
		Title:                req.Title,
		ContentType:          req.ContentType,
		TargetAudience:       req.TargetAudience,
		OriginalInput:        req.OriginalInput,
		CurrentContent:       req.OriginalInput,
		TargetRating:         req.TargetRating,
		MaxCycles:            req.MaxCycles,
		ConvergenceThreshold: req.ConvergenceThreshold,
		Panel:                req.Panel,
		CostEstimate:         req.CostEstimate,
	}

	err := s.store.WithTransaction(ctx, func(tx *store.Store) error {
		if err := tx.CreateContent(ctx, item); err != nil {
			return err
		}
		return tx.CreateCycle(ctx, newCycle(item.ID, 1, item.OriginalInput))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("内容已创建",
		zap.String("content_id", item.ID),
		zap.Float64("target_rating", item.TargetRating),
		zap.Int("max_cycles", item.MaxCycles))

	return s.store.IterationState(ctx, item.ID, 0)
}

func newCycle(contentID string, number int, input string) *store.Cycle {
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

// GetIterationState 返回指定轮次的读模型，cycleNumber 为 0 取最新。
func (s *Service) GetIterationState(ctx context.Context, contentID string, cycleNumber int) (*store.IterationState, error) {
	return s.store.IterationState(ctx, contentID, cycleNumber)
}

// History 返回内容的完整打磨历史。
func (s *Service) History(ctx context.Context, contentID string) (*store.ContentHistory, error) {
	return s.store.History(ctx, contentID)
}

// ListContent 分页列出内容。
func (s *Service) ListContent(ctx context.Context, limit, offset int) ([]store.ContentItem, error) {
	return s.store.ListContent(ctx, limit, offset)
}

// DeleteContent 删除内容及其全部循环与反馈。
func (s *Service) DeleteContent(ctx context.Context, contentID string) error {
	return s.store.DeleteContent(ctx, contentID)
}

// RunFocusGroupOptions 焦点小组运行的可选覆盖。
type RunFocusGroupOptions struct {
	// PersonaIDs 覆盖内容自带的小组配置
	PersonaIDs []string
}

// RunFocusGroup 对最新一轮循环执行焦点小组评估并聚合反馈。
// 仅接受 draft（或上次中断残留的 focus-group-running）状态；
// 重评估会先清空该轮已有反馈。
func (s *Service) RunFocusGroup(ctx context.Context, contentID string, opts RunFocusGroupOptions) (*store.IterationState, error) {
	content, err := s.store.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}
	c, err := s.store.ActiveCycle(ctx, contentID, types.StatusDraft, types.StatusFocusGroupRunning)
	if err != nil {
		return nil, err
	}

	if c.Status == types.StatusDraft {
		if c, err = s.machine.Advance(ctx, c, types.StatusFocusGroupRunning, ""); err != nil {
			return nil, err
		}
	}

	cfg := content.Panel
	if len(opts.PersonaIDs) > 0 {
		cfg.PersonaIDs = opts.PersonaIDs
	}
	personas, err := s.selector.Select(ctx, cfg)
	if err != nil {
		_, _ = s.machine.Fail(ctx, c, err)
		return nil, err
	}

	result, err := s.panel.Run(ctx, inference.EvaluationInput{
		Content:  c.InputContent,
		Audience: content.TargetAudience,
	}, personas)
	if err != nil {
		_, _ = s.machine.Fail(ctx, c, err)
		return nil, err
	}

	agg := focusgroup.Aggregate(result.Feedback)

	err = s.store.WithTransaction(ctx, func(tx *store.Store) error {
		if err := tx.ReplaceFeedback(ctx, c.ID, result.Feedback); err != nil {
			return err
		}
		c.Aggregate = &agg
		c.AIMode = s.runMode(result.Degraded)
		c.FallbackReason = result.FallbackReason
		if err := tx.UpdateCycle(ctx, c); err != nil {
			return err
		}
		return tx.AddCycleCosts(ctx, c.ID,
			result.Usage.PromptTokens, result.Usage.CompletionTokens, result.Usage.Cost)
	})
	if err != nil {
		_, _ = s.machine.Fail(ctx, c, err)
		return nil, err
	}

	if _, err := s.machine.Advance(ctx, c, types.StatusFocusGroupComplete,
		fmt.Sprintf("%d of %d evaluations collected", len(result.Feedback), len(personas))); err != nil {
		return nil, err
	}

	for range result.Feedback {
		s.metrics.EvaluationRecorded("ok")
	}
	for i := len(result.Feedback); i < len(personas); i++ {
		s.metrics.EvaluationRecorded("failed")
	}
	s.metrics.TokensUsed(result.Usage.PromptTokens, result.Usage.CompletionTokens)
	s.metrics.CostAdded(result.Usage.Cost)

	s.logger.Info("焦点小组完成",
		zap.String("content_id", contentID),
		zap.Int("cycle", c.CycleNumber),
		zap.Float64("average_rating", agg.AverageRating),
		zap.Float64("convergence", agg.ConvergenceScore))

	return s.store.IterationState(ctx, contentID, c.CycleNumber)
}

// runMode 决定落库的循环模式。
func (s *Service) runMode(degraded bool) types.AIMode {
	if degraded {
		return types.AIModeLiveFallback
	}
	switch s.client.Mode() {
	case types.AIModeMock:
		return types.AIModeMock
	default:
		return types.AIModeLive
	}
}

// RunEditorOptions 编辑修订的可选入参。
type RunEditorOptions struct {
	Instructions string
	// SelectedParticipants 非空时只把这些参与者的详细反馈喂给编辑
	SelectedParticipants []string
}

// RunEditor 执行主持人综述与编辑修订。
// 要求最新循环处于 focus-group-complete 且聚合反馈已存在；
// 主题列表在综述完成后补写进聚合反馈。
func (s *Service) RunEditor(ctx context.Context, contentID string, opts RunEditorOptions) (*store.IterationState, error) {
	if len(opts.Instructions) > MaxEditorInstructions {
		return nil, types.NewErrorf(types.ErrInvalidRequest,
			"editorInstructions cannot exceed %d characters", MaxEditorInstructions).WithHTTPStatus(400)
	}

	c, err := s.store.ActiveCycle(ctx, contentID, types.StatusFocusGroupComplete, types.StatusEditorRunning)
	if err != nil {
		return nil, err
	}
	if c.Aggregate == nil {
		err := types.NewErrorf(types.ErrMissingAggregate,
			"cycle %d has no aggregated feedback", c.CycleNumber).WithHTTPStatus(409)
		_, _ = s.machine.Fail(ctx, c, err)
		return nil, err
	}

	if c.Status == types.StatusFocusGroupComplete {
		if c, err = s.machine.Advance(ctx, c, types.StatusEditorRunning, ""); err != nil {
			return nil, err
		}
	}

	feedback, err := s.store.ListFeedback(ctx, c.ID)
	if err != nil {
		_, _ = s.machine.Fail(ctx, c, err)
		return nil, err
	}
	items := toFeedbackItems(feedback)

	moderator, err := s.client.Synthesize(ctx, items)
	if err != nil {
		err = types.NewError(types.ErrRevisionFailure, "moderator synthesis failed").WithCause(err)
		_, _ = s.machine.Fail(ctx, c, err)
		return nil, err
	}

	// 综述完成，补写主题
	c.Aggregate.Themes = focusgroup.DeriveThemes(feedback)

	selected := filterItems(items, opts.SelectedParticipants)
	revision, err := s.client.Revise(ctx, inference.RevisionRequest{
		OriginalContent:    c.InputContent,
		Aggregate:          toAggregateView(*c.Aggregate),
		SelectedFeedback:   selected,
		EditorInstructions: opts.Instructions,
		Moderator:          moderator,
	})
	if err != nil {
		err = types.NewError(types.ErrRevisionFailure, "editor revision failed").WithCause(err)
		_, _ = s.machine.Fail(ctx, c, err)
		return nil, err
	}

	degraded := moderator.Degraded || revision.Degraded
	err = s.store.WithTransaction(ctx, func(tx *store.Store) error {
		c.Editor = &store.EditorPass{
			RevisedContent: revision.RevisedContent,
			ChangesSummary: revision.ChangesSummary,
			Reasoning:      revision.Reasoning,
			Model:          revision.Model,
			At:             time.Now().UTC(),
		}
		c.Moderator = &store.ModeratorRecord{
			Summary:   moderator.Summary,
			KeyPoints: moderator.KeyPoints,
			Patterns:  moderator.Patterns,
			Model:     moderator.Model,
		}
		c.EditorInstructions = opts.Instructions
		if degraded {
			c.AIMode = types.AIModeLiveFallback
			if c.FallbackReason == "" {
				c.FallbackReason = firstNonEmpty(moderator.FallbackReason, revision.FallbackReason)
			}
		}
		if err := tx.UpdateCycle(ctx, c); err != nil {
			return err
		}
		return tx.AddCycleCosts(ctx, c.ID,
			moderator.Usage.PromptTokens+revision.Usage.PromptTokens,
			moderator.Usage.CompletionTokens+revision.Usage.CompletionTokens,
			moderator.Usage.Cost+revision.Usage.Cost)
	})
	if err != nil {
		_, _ = s.machine.Fail(ctx, c, err)
		return nil, err
	}

	if _, err := s.machine.Advance(ctx, c, types.StatusEditorComplete, ""); err != nil {
		return nil, err
	}

	s.metrics.TokensUsed(
		moderator.Usage.PromptTokens+revision.Usage.PromptTokens,
		moderator.Usage.CompletionTokens+revision.Usage.CompletionTokens)
	s.metrics.CostAdded(moderator.Usage.Cost + revision.Usage.Cost)

	s.logger.Info("编辑修订完成",
		zap.String("content_id", contentID),
		zap.Int("cycle", c.CycleNumber),
		zap.String("model", revision.Model))

	return s.store.IterationState(ctx, contentID, c.CycleNumber)
}

// UserReviewRequest 人工评审入参。
type UserReviewRequest struct {
	Approved        bool   `json:"approved"`
	UserEdits       string `json:"userEdits,omitempty"`
	Notes           string `json:"notes,omitempty"`
	CreateNextCycle bool   `json:"createNextCycle,omitempty"`
}

// SubmitUserReview 记录人工评审决定并更新内容当前版本。
// 版本取舍：人工改稿 > 批准的修订稿 > 拒绝时回退本轮输入。
func (s *Service) SubmitUserReview(ctx context.Context, contentID string, req UserReviewRequest) (*store.IterationState, error) {
	content, err := s.store.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}
	c, err := s.store.ActiveCycle(ctx, contentID, types.StatusEditorComplete)
	if err != nil {
		return nil, err
	}

	decision := types.StatusRejected
	if req.Approved {
		decision = types.StatusApproved
	}

	next := c.InputContent
	switch {
	case strings.TrimSpace(req.UserEdits) != "":
		next = req.UserEdits
	case req.Approved && c.Editor != nil:
		next = c.Editor.RevisedContent
	}

	err = s.store.WithTransaction(ctx, func(tx *store.Store) error {
		c.Review = &store.UserReview{
			Decision:      decision,
			EditedContent: req.UserEdits,
			Notes:         req.Notes,
			DecidedAt:     time.Now().UTC(),
		}
		if err := tx.UpdateCycle(ctx, c); err != nil {
			return err
		}
		content.CurrentContent = next
		return tx.UpdateContent(ctx, content)
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.machine.Advance(ctx, c, decision, req.Notes); err != nil {
		return nil, err
	}

	if req.CreateNextCycle {
		count, err := s.store.CountCycles(ctx, contentID)
		if err != nil {
			return nil, err
		}
		if count >= content.MaxCycles {
			return nil, types.NewErrorf(types.ErrMaxCyclesReached,
				"content %s already used its %d cycle budget", contentID, content.MaxCycles).WithHTTPStatus(409)
		}
		if err := s.store.CreateCycle(ctx, newCycle(contentID, count+1, next)); err != nil {
			return nil, err
		}
	}

	return s.store.IterationState(ctx, contentID, 0)
}

// PromoteCycle 把 editor-complete 的循环自动批准并开出下一轮。
// 由编排循环调用；auto 标记区分人工评审。
func (s *Service) PromoteCycle(ctx context.Context, contentID string) (*store.Cycle, error) {
	content, err := s.store.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}
	c, err := s.store.ActiveCycle(ctx, contentID, types.StatusEditorComplete)
	if err != nil {
		return nil, err
	}
	if c.Editor == nil {
		return nil, types.NewErrorf(types.ErrRevisionFailure,
			"cycle %d has no editor pass to promote", c.CycleNumber).WithHTTPStatus(409)
	}

	count, err := s.store.CountCycles(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if count >= content.MaxCycles {
		return nil, types.NewErrorf(types.ErrMaxCyclesReached,
			"content %s already used its %d cycle budget", contentID, content.MaxCycles).WithHTTPStatus(409)
	}

	c.Review = &store.UserReview{
		Decision:  types.StatusApproved,
		Auto:      true,
		DecidedAt: time.Now().UTC(),
	}
	if err := s.store.UpdateCycle(ctx, c); err != nil {
		return nil, err
	}
	if _, err := s.machine.Advance(ctx, c, types.StatusApproved, "auto-promoted"); err != nil {
		return nil, err
	}

	content.CurrentContent = c.Editor.RevisedContent
	if err := s.store.UpdateContent(ctx, content); err != nil {
		return nil, err
	}

	next := newCycle(contentID, count+1, c.Editor.RevisedContent)
	if err := s.store.CreateCycle(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

func toFeedbackItems(feedback []store.Feedback) []inference.FeedbackItem {
	out := make([]inference.FeedbackItem, 0, len(feedback))
	for _, f := range feedback {
		out = append(out, inference.FeedbackItem{
			ParticipantID:   f.ParticipantID,
			ParticipantType: f.ParticipantType,
			Rating:          f.Rating,
			Likes:           f.Likes,
			Dislikes:        f.Dislikes,
			Suggestions:     f.Suggestions,
		})
	}
	return out
}

func filterItems(items []inference.FeedbackItem, ids []string) []inference.FeedbackItem {
	if len(ids) == 0 {
		return items
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]inference.FeedbackItem, 0, len(items))
	for _, it := range items {
		if want[it.ParticipantID] {
			out = append(out, it)
		}
	}
	return out
}

func toAggregateView(agg store.AggregatedFeedback) inference.AggregateView {
	themes := make([]inference.Theme, 0, len(agg.Themes))
	for _, t := range agg.Themes {
		themes = append(themes, inference.Theme{
			Theme:     t.Theme,
			Sentiment: t.Sentiment,
			Frequency: t.Frequency,
		})
	}
	return inference.AggregateView{
		AverageRating: agg.AverageRating,
		TopLikes:      agg.TopLikes,
		TopDislikes:   agg.TopDislikes,
		Themes:        themes,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
