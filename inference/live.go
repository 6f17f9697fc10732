package inference

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/contentcycle/llm"
	"github.com/BaSui01/contentcycle/types"
)

// LiveClient 直连上游推理服务。
// 所有响应要求为 JSON；推理模型常把 JSON 包在 Markdown 代码块里，
// 解析前先做剥离。
type LiveClient struct {
	provider    llm.Provider
	focusModel  string
	editorModel string
	prices      llm.PriceTable
	logger      *zap.Logger
}

// NewLiveClient 创建直连客户端。
func NewLiveClient(provider llm.Provider, focusModel, editorModel string, prices llm.PriceTable, logger *zap.Logger) *LiveClient {
	return &LiveClient{
		provider:    provider,
		focusModel:  focusModel,
		editorModel: editorModel,
		prices:      prices,
		logger:      logger,
	}
}

func (c *LiveClient) Mode() types.AIMode { return types.AIModeLive }

type evaluationPayload struct {
	Rating      int      `json:"rating"`
	Likes       []string `json:"likes"`
	Dislikes    []string `json:"dislikes"`
	Suggestions string   `json:"suggestions"`
}

func (c *LiveClient) Evaluate(ctx context.Context, in EvaluationInput, persona Persona) (*Evaluation, error) {
	resp, err := c.provider.Completion(ctx, &llm.ChatRequest{
		Model: c.focusModel,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: persona.SystemPrompt},
			{Role: llm.RoleUser, Content: evaluatorContentPrompt(in)},
			{Role: llm.RoleUser, Content: evaluatorFormatPrompt},
		},
	})
	if err != nil {
		return nil, err
	}

	raw := resp.Text()
	var payload evaluationPayload
	if err := decodeObject(raw, &payload); err != nil {
		c.logger.Warn("画像评估响应不是合法 JSON",
			zap.String("persona", persona.ID),
			zap.Error(err))
		return nil, types.NewErrorf(types.ErrEvaluationFailure,
			"persona %s returned unparseable feedback", persona.ID).WithCause(err)
	}
	if payload.Rating < 1 || payload.Rating > 10 {
		return nil, types.NewErrorf(types.ErrEvaluationFailure,
			"persona %s returned rating %d outside 1-10", persona.ID, payload.Rating)
	}

	return &Evaluation{
		Rating:      payload.Rating,
		Likes:       payload.Likes,
		Dislikes:    payload.Dislikes,
		Suggestions: payload.Suggestions,
		RawResponse: raw,
		Usage:       c.billedUsage(resp),
	}, nil
}

type moderatorPayload struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"keyPoints"`
	Patterns  string   `json:"patterns"`
}

func (c *LiveClient) Synthesize(ctx context.Context, items []FeedbackItem) (*ModeratorSummary, error) {
	if len(items) == 0 {
		return &ModeratorSummary{Summary: "No feedback to synthesize.", Model: "none"}, nil
	}

	resp, err := c.provider.Completion(ctx, &llm.ChatRequest{
		Model: c.editorModel,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: moderatorSystemPrompt},
			{Role: llm.RoleUser, Content: moderatorUserPrompt(items)},
		},
	})
	if err != nil {
		return nil, err
	}

	var payload moderatorPayload
	if err := decodeObject(resp.Text(), &payload); err != nil {
		// 综述是增强信息，解析失败不阻断循环
		c.logger.Warn("主持人综述响应解析失败", zap.Error(err))
		return &ModeratorSummary{
			Summary: "Moderator summary unavailable; using direct feedback.",
			Model:   "moderator-parse-error",
			Usage:   c.billedUsage(resp),
		}, nil
	}

	return &ModeratorSummary{
		Summary:   payload.Summary,
		KeyPoints: payload.KeyPoints,
		Patterns:  payload.Patterns,
		Model:     c.editorModel,
		Usage:     c.billedUsage(resp),
	}, nil
}

type revisionPayload struct {
	RevisedContent      string `json:"revisedContent"`
	ChangesSummary      string `json:"changesSummary"`
	Reasoning           string `json:"reasoning"`
	InstructionsApplied bool   `json:"instructionsApplied"`
}

func (c *LiveClient) Revise(ctx context.Context, req RevisionRequest) (*Revision, error) {
	resp, err := c.provider.Completion(ctx, &llm.ChatRequest{
		Model: c.editorModel,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: editorSystemPrompt},
			{Role: llm.RoleUser, Content: editorUserPrompt(req)},
		},
	})
	if err != nil {
		return nil, err
	}

	var payload revisionPayload
	if err := decodeObject(resp.Text(), &payload); err != nil {
		return nil, types.NewError(types.ErrRevisionFailure,
			"editor returned unparseable revision").WithCause(err)
	}
	if strings.TrimSpace(payload.RevisedContent) == "" {
		return nil, types.NewError(types.ErrRevisionFailure, "editor returned empty revision")
	}

	return &Revision{
		RevisedContent: payload.RevisedContent,
		ChangesSummary: payload.ChangesSummary,
		Reasoning:      payload.Reasoning,
		Model:          c.editorModel,
		Usage:          c.billedUsage(resp),
	}, nil
}

func (c *LiveClient) billedUsage(resp *llm.ChatResponse) llm.ChatUsage {
	usage := resp.Usage
	usage.Cost = c.prices.Cost(resp.Model, usage)
	return usage
}

// decodeObject 解析可能被 Markdown 代码块包裹的 JSON 对象。
func decodeObject(raw string, v any) error {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}
	// 剥离 JSON 前后的模型碎碎念
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return json.Unmarshal([]byte(s[start:end+1]), v)
	}
	return json.Unmarshal([]byte(s), v)
}
