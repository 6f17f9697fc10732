// Package store 提供内容、循环、画像与反馈的持久化层。
// 底层使用 GORM，支持 PostgreSQL 与 SQLite（测试用内存库）。
package store

import (
	"time"

	"github.com/BaSui01/contentcycle/types"
)

// PanelConfig 焦点小组的组成配置。
// PersonaIDs 非空时优先生效，按给定顺序点名。
type PanelConfig struct {
	TargetMarketCount int      `json:"targetMarketCount"`
	RandomCount       int      `json:"randomCount"`
	PersonaIDs        []string `json:"personaIds,omitempty"`
}

// ContentItem 一条待打磨的内容。
// OriginalInput 永不改写；CurrentContent 随循环推进更新。
type ContentItem struct {
	ID             string `gorm:"primaryKey;size:64" json:"id"`
	Title          string `gorm:"size:200" json:"title"`
	ContentType    string `gorm:"size:64" json:"contentType"`
	TargetAudience string `gorm:"size:400" json:"targetAudience"`
	OriginalInput  string `gorm:"type:text;not null" json:"originalInput"`
	CurrentContent string `gorm:"type:text;not null" json:"currentContent"`

	TargetRating         float64     `gorm:"not null" json:"targetRating"`
	MaxCycles            int         `gorm:"not null" json:"maxCycles"`
	ConvergenceThreshold float64     `json:"convergenceThreshold"`
	Panel                PanelConfig `gorm:"serializer:json" json:"panel"`

	// CostEstimate 创建时的预估费用，实际费用以循环累计为准
	CostEstimate float64   `json:"costEstimate"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (ContentItem) TableName() string { return "content_items" }

// StatusChange 状态历史中的一条记录。
type StatusChange struct {
	Status types.CycleStatus `json:"status"`
	At     time.Time         `json:"at"`
	Note   string            `json:"note,omitempty"`
}

// RatingDistribution 按区间统计的评分分布。
type RatingDistribution struct {
	Low  int `json:"1-3"`
	Mid  int `json:"4-6"`
	High int `json:"7-10"`
}

// FeedbackTheme 聚合出的反馈主题。
// 同一主题同时出现在喜欢与不喜欢里时情感记为 neutral。
type FeedbackTheme struct {
	Theme     string          `json:"theme"`
	Sentiment types.Sentiment `json:"sentiment"`
	Frequency int             `json:"frequency"`
}

// AggregatedFeedback 焦点小组反馈的聚合视图。
type AggregatedFeedback struct {
	AverageRating      float64            `json:"averageRating"`
	RatingDistribution RatingDistribution `json:"ratingDistribution"`
	TopLikes           []string           `json:"topLikes"`
	TopDislikes        []string           `json:"topDislikes"`
	ConvergenceScore   float64            `json:"convergenceScore"`
	Themes             []FeedbackTheme    `json:"feedbackThemes"`
}

// ModeratorRecord 主持人综述的落库形态。
type ModeratorRecord struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"keyPoints"`
	Patterns  string   `json:"patterns,omitempty"`
	Model     string   `json:"model"`
}

// EditorPass 一次编辑修订的结果。
type EditorPass struct {
	RevisedContent string    `json:"revisedContent"`
	ChangesSummary string    `json:"changesSummary"`
	Reasoning      string    `json:"reasoning"`
	Model          string    `json:"model"`
	At             time.Time `json:"at"`
}

// UserReview 人工评审决定。
type UserReview struct {
	Decision      types.CycleStatus `json:"decision"`
	EditedContent string            `json:"editedContent,omitempty"`
	Notes         string            `json:"notes,omitempty"`
	Auto          bool              `json:"auto,omitempty"`
	DecidedAt     time.Time         `json:"decidedAt"`
}

// Cycle 一轮打磨循环。
// 同一内容下 CycleNumber 从 1 递增且唯一。
type Cycle struct {
	ID          string            `gorm:"primaryKey;size:64" json:"id"`
	ContentID   string            `gorm:"size:64;not null;uniqueIndex:idx_content_cycle,priority:1;index" json:"contentId"`
	CycleNumber int               `gorm:"not null;uniqueIndex:idx_content_cycle,priority:2" json:"cycleNumber"`
	Status      types.CycleStatus `gorm:"size:32;not null" json:"status"`
	// StatusHistory 只追加，记录每次状态转移
	StatusHistory []StatusChange `gorm:"serializer:json" json:"statusHistory"`

	// InputContent 本轮评估所针对的内容快照
	InputContent string `gorm:"type:text;not null" json:"inputContent"`

	// 聚合反馈，焦点小组完成后写入
	Aggregate *AggregatedFeedback `gorm:"serializer:json" json:"aggregate,omitempty"`
	Moderator *ModeratorRecord    `gorm:"serializer:json" json:"moderator,omitempty"`

	// 编辑修订，编辑完成后写入
	Editor             *EditorPass `gorm:"serializer:json" json:"editor,omitempty"`
	EditorInstructions string      `gorm:"type:text" json:"editorInstructions,omitempty"`

	// 人工评审结果
	Review *UserReview `gorm:"serializer:json" json:"review,omitempty"`

	// 运行模式与费用
	AIMode           types.AIMode `gorm:"size:16" json:"aiMode,omitempty"`
	FallbackReason   string       `gorm:"type:text" json:"fallbackReason,omitempty"`
	PromptTokens     int          `json:"promptTokens"`
	CompletionTokens int          `json:"completionTokens"`
	TotalCost        float64      `json:"totalCost"`

	ErrorMessage string    `gorm:"type:text" json:"errorMessage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (Cycle) TableName() string { return "cycles" }

// Persona 模拟评审者画像。
type Persona struct {
	ID           string            `gorm:"primaryKey;size:64" json:"id"`
	Type         types.PersonaType `gorm:"size:32;not null;index" json:"type"`
	Name         string            `gorm:"size:120;not null" json:"name"`
	Description  string            `gorm:"type:text" json:"description"`
	SystemPrompt string            `gorm:"type:text;not null" json:"systemPrompt"`
	// Builtin 标记种子画像，禁止删除
	Builtin   bool      `json:"builtin"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Persona) TableName() string { return "personas" }

// Feedback 单个参与者对某轮循环的反馈。
// ParticipantID 可能带 _n 后缀（画像不足时的轮转副本）。
type Feedback struct {
	ID              uint              `gorm:"primaryKey;autoIncrement" json:"-"`
	CycleID         string            `gorm:"size:64;not null;index" json:"-"`
	ParticipantID   string            `gorm:"size:80;not null" json:"participantId"`
	ParticipantType types.PersonaType `gorm:"size:32;not null" json:"participantType"`
	Rating          int               `gorm:"not null" json:"rating"`
	Likes           []string          `gorm:"serializer:json" json:"likes"`
	Dislikes        []string          `gorm:"serializer:json" json:"dislikes"`
	Suggestions     string            `gorm:"type:text" json:"suggestions"`
	RawResponse     string            `gorm:"type:text" json:"-"`
	Degraded        bool              `json:"degraded,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
}

func (Feedback) TableName() string { return "feedback" }
