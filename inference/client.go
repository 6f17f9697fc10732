// Package inference 封装内容打磨所需的三类 AI 调用：
// 画像评估（Evaluate）、主持人综述（Synthesize）与编辑修订（Revise）。
//
// 三种实现分别对应三种运行模式：Live 直连上游、Mock 本地确定性
// 假数据、Fallback 在 Live 失败时降级为 Mock 以保证循环不中断。
package inference

import (
	"context"

	"github.com/BaSui01/contentcycle/llm"
	"github.com/BaSui01/contentcycle/types"
)

// Persona 评估所需的最小画像视图。
type Persona struct {
	ID           string
	Type         types.PersonaType
	Name         string
	SystemPrompt string
}

// EvaluationInput 单次画像评估的输入。
type EvaluationInput struct {
	// Content 待评估的内容文本
	Content string
	// Audience 目标受众描述，非空时随提示词下发
	Audience string
}

// FeedbackItem 单个参与者的结构化反馈，用于构造综述与修订提示词。
type FeedbackItem struct {
	ParticipantID   string
	ParticipantType types.PersonaType
	Rating          int
	Likes           []string
	Dislikes        []string
	Suggestions     string
}

// Theme 反馈主题及其情感倾向。
type Theme struct {
	Theme     string
	Sentiment types.Sentiment
	Frequency int
}

// AggregateView 聚合反馈在提示词中需要的字段。
type AggregateView struct {
	AverageRating float64
	TopLikes      []string
	TopDislikes   []string
	Themes        []Theme
}

// Evaluation 单个画像的评估结果。
type Evaluation struct {
	Rating      int
	Likes       []string
	Dislikes    []string
	Suggestions string
	RawResponse string
	Usage       llm.ChatUsage
	// Degraded 为 true 表示本次调用实际由降级路径产生
	Degraded       bool
	FallbackReason string
}

// ModeratorSummary 主持人对全部反馈的综述。
type ModeratorSummary struct {
	Summary        string
	KeyPoints      []string
	Patterns       string
	Model          string
	Usage          llm.ChatUsage
	Degraded       bool
	FallbackReason string
}

// RevisionRequest 编辑修订的完整输入。
type RevisionRequest struct {
	OriginalContent    string
	Aggregate          AggregateView
	SelectedFeedback   []FeedbackItem
	EditorInstructions string
	Moderator          *ModeratorSummary
}

// Revision 编辑修订结果。
type Revision struct {
	RevisedContent string
	ChangesSummary string
	Reasoning      string
	Model          string
	Usage          llm.ChatUsage
	Degraded       bool
	FallbackReason string
}

// Client 定义打磨循环使用的推理客户端。
type Client interface {
	// Evaluate 以给定画像的口吻、面向目标受众评估内容，返回结构化反馈
	Evaluate(ctx context.Context, in EvaluationInput, persona Persona) (*Evaluation, error)

	// Synthesize 扮演主持人，对一组反馈生成共识与分歧综述
	Synthesize(ctx context.Context, items []FeedbackItem) (*ModeratorSummary, error)

	// Revise 根据聚合反馈修订内容
	Revise(ctx context.Context, req RevisionRequest) (*Revision, error)

	// Mode 返回客户端的基础运行模式
	Mode() types.AIMode
}
