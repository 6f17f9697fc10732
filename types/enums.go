package types

// CycleStatus 表示一个打磨循环的生命周期状态。
// 状态只能通过 cycle.Machine 的转移操作前进，历史记录只增不改。
type CycleStatus string

const (
	// StatusDraft 新建循环，等待焦点小组评估
	StatusDraft CycleStatus = "draft"
	// StatusFocusGroupRunning 焦点小组评估进行中
	StatusFocusGroupRunning CycleStatus = "focus-group-running"
	// StatusFocusGroupComplete 评估完成，聚合反馈已生成
	StatusFocusGroupComplete CycleStatus = "focus-group-complete"
	// StatusEditorRunning 编辑修订进行中
	StatusEditorRunning CycleStatus = "editor-running"
	// StatusEditorComplete 修订完成，等待人工/自动审批
	StatusEditorComplete CycleStatus = "editor-complete"
	// StatusApproved 审批通过（终态）
	StatusApproved CycleStatus = "approved"
	// StatusRejected 审批拒绝（终态）
	StatusRejected CycleStatus = "rejected"
	// StatusError 不可恢复错误（终态），需新建循环重试
	StatusError CycleStatus = "error"
)

// Terminal 返回该状态是否为终态。
func (s CycleStatus) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusError:
		return true
	}
	return false
}

// Valid 返回该状态是否为已知状态。
func (s CycleStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusFocusGroupRunning, StatusFocusGroupComplete,
		StatusEditorRunning, StatusEditorComplete,
		StatusApproved, StatusRejected, StatusError:
		return true
	}
	return false
}

// PersonaType 表示模拟评审者的类别。
type PersonaType string

const (
	// PersonaTargetMarket 目标受众画像
	PersonaTargetMarket PersonaType = "target_market"
	// PersonaRandom 随机大众画像
	PersonaRandom PersonaType = "random"
)

// Sentiment 表示反馈主题的情感倾向。
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// AIMode 表示某个循环实际使用的推理模式。
type AIMode string

const (
	// AIModeLive 真实调用上游推理服务
	AIModeLive AIMode = "live"
	// AIModeMock 确定性本地假数据，零成本
	AIModeMock AIMode = "mock"
	// AIModeLiveFallback 真实调用失败后降级为 mock
	AIModeLiveFallback AIMode = "live-fallback"
)
