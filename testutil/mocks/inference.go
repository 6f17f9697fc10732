// =============================================================================
// 🧪 MockInferenceClient - 推理客户端模拟实现
// =============================================================================
// 用于测试的推理客户端模拟，支持按画像脚本化评分与错误注入
//
// 使用方法:
//
//	client := mocks.NewMockInferenceClient()
//	client.ScriptRating("persona-1", 8)
//	client.FailPersona("persona-2", errors.New("boom"))
// =============================================================================
package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/BaSui01/contentcycle/inference"
	"github.com/BaSui01/contentcycle/types"
)

// MockInferenceClient 是 inference.Client 的模拟实现。
type MockInferenceClient struct {
	mu sync.Mutex

	// 按画像 ID 脚本化的评分序列，逐次消费，最后一个值粘滞
	ratings  map[string][]int
	likes    map[string][]string
	dislikes map[string][]string

	// 错误注入
	personaErrs   map[string]error
	evaluateErr   error
	synthesizeErr error
	reviseErr     error

	// 修订脚本
	revisions []inference.Revision

	// 调用记录
	EvaluateCalls   int
	SynthesizeCalls int
	ReviseCalls     int
	// LastInput 最近一次评估收到的输入
	LastInput inference.EvaluationInput

	mode types.AIMode
}

// NewMockInferenceClient 创建模拟客户端，默认评分 7。
func NewMockInferenceClient() *MockInferenceClient {
	return &MockInferenceClient{
		ratings:     make(map[string][]int),
		likes:       make(map[string][]string),
		dislikes:    make(map[string][]string),
		personaErrs: make(map[string]error),
		mode:        types.AIModeMock,
	}
}

// ScriptRating 追加某画像的评分，多次调用形成按次消费的序列。
func (m *MockInferenceClient) ScriptRating(personaID string, ratings ...int) *MockInferenceClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ratings[personaID] = append(m.ratings[personaID], ratings...)
	return m
}

// ScriptOpinions 指定某画像的喜欢与不喜欢条目。
func (m *MockInferenceClient) ScriptOpinions(personaID string, likes, dislikes []string) *MockInferenceClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.likes[personaID] = likes
	m.dislikes[personaID] = dislikes
	return m
}

// FailPersona 使某画像的评估返回错误。
func (m *MockInferenceClient) FailPersona(personaID string, err error) *MockInferenceClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.personaErrs[personaID] = err
	return m
}

// FailAllEvaluations 使全部评估返回错误。
func (m *MockInferenceClient) FailAllEvaluations(err error) *MockInferenceClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evaluateErr = err
	return m
}

// FailSynthesize 使综述返回错误。
func (m *MockInferenceClient) FailSynthesize(err error) *MockInferenceClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.synthesizeErr = err
	return m
}

// FailRevise 使修订返回错误。
func (m *MockInferenceClient) FailRevise(err error) *MockInferenceClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviseErr = err
	return m
}

// ScriptRevision 追加一个修订脚本，按调用次序消费，耗尽后用默认修订。
func (m *MockInferenceClient) ScriptRevision(rev inference.Revision) *MockInferenceClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revisions = append(m.revisions, rev)
	return m
}

// SetMode 设定 Mode() 的返回值。
func (m *MockInferenceClient) SetMode(mode types.AIMode) *MockInferenceClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = mode
	return m
}

func (m *MockInferenceClient) Mode() types.AIMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

func (m *MockInferenceClient) Evaluate(ctx context.Context, in inference.EvaluationInput, persona inference.Persona) (*inference.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EvaluateCalls++
	m.LastInput = in

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.evaluateErr != nil {
		return nil, m.evaluateErr
	}
	if err, ok := m.personaErrs[persona.ID]; ok {
		return nil, err
	}

	rating := 7
	if seq := m.ratings[persona.ID]; len(seq) > 0 {
		rating = seq[0]
		if len(seq) > 1 {
			m.ratings[persona.ID] = seq[1:]
		}
	}
	likes := m.likes[persona.ID]
	if likes == nil {
		likes = []string{"clarity"}
	}
	dislikes := m.dislikes[persona.ID]
	if dislikes == nil {
		dislikes = []string{"weak hook"}
	}

	return &inference.Evaluation{
		Rating:      rating,
		Likes:       likes,
		Dislikes:    dislikes,
		Suggestions: fmt.Sprintf("suggestion from %s", persona.ID),
		RawResponse: "scripted",
	}, nil
}

func (m *MockInferenceClient) Synthesize(ctx context.Context, items []inference.FeedbackItem) (*inference.ModeratorSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SynthesizeCalls++

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.synthesizeErr != nil {
		return nil, m.synthesizeErr
	}
	return &inference.ModeratorSummary{
		Summary:   "scripted moderator summary",
		KeyPoints: []string{"tighten intro"},
		Model:     "scripted",
	}, nil
}

func (m *MockInferenceClient) Revise(ctx context.Context, req inference.RevisionRequest) (*inference.Revision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReviseCalls++

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.reviseErr != nil {
		return nil, m.reviseErr
	}
	if len(m.revisions) > 0 {
		rev := m.revisions[0]
		m.revisions = m.revisions[1:]
		return &rev, nil
	}
	return &inference.Revision{
		RevisedContent: req.OriginalContent + " (revised)",
		ChangesSummary: "scripted changes",
		Reasoning:      "scripted reasoning",
		Model:          "scripted",
	}, nil
}
