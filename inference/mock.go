package inference

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/BaSui01/contentcycle/types"
)

// MockClient 零成本的本地确定性实现。
// 输出只依赖输入本身（内容长度、画像 ID 的散列），
// 与调用顺序无关，便于测试与离线演示。
type MockClient struct{}

// NewMockClient 创建 mock 客户端。
func NewMockClient() *MockClient { return &MockClient{} }

func (c *MockClient) Mode() types.AIMode { return types.AIModeMock }

func (c *MockClient) Evaluate(_ context.Context, in EvaluationInput, persona Persona) (*Evaluation, error) {
	base := 7 + len(in.Content)%3 - 1
	if base < 6 {
		base = 6
	}
	if base > 9 {
		base = 9
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(persona.ID))
	offset := 1
	if h.Sum32()%2 == 1 {
		offset = -1
	}
	rating := base + offset
	if rating < 4 {
		rating = 4
	}
	if rating > 10 {
		rating = 10
	}

	dislikes := []string{"needs stronger hook"}
	if h.Sum32()%2 == 1 {
		dislikes = append(dislikes, "add specifics")
	}

	return &Evaluation{
		Rating:      rating,
		Likes:       []string{"clarity", "tone"},
		Dislikes:    dislikes,
		Suggestions: "Mock suggestion: tighten intro and highlight value prop.",
		RawResponse: "Mock focus group feedback (no API call).",
	}, nil
}

func (c *MockClient) Synthesize(_ context.Context, items []FeedbackItem) (*ModeratorSummary, error) {
	if len(items) == 0 {
		return &ModeratorSummary{Summary: "No feedback to synthesize.", Model: "none"}, nil
	}
	return &ModeratorSummary{
		Summary: "Mock moderator: synthesized key agreements and disagreements.",
		KeyPoints: []string{
			"Agreement: clear value prop",
			"Disagreement: tone too casual",
			"Action: tighten intro",
		},
		Model: "mock-moderator",
	}, nil
}

func (c *MockClient) Revise(_ context.Context, req RevisionRequest) (*Revision, error) {
	note := "tighten clarity"
	if len(req.Aggregate.TopDislikes) > 0 {
		note = req.Aggregate.TopDislikes[0]
	}
	return &Revision{
		RevisedContent: fmt.Sprintf("%s\n\n[Mock editor tweak: addressed %q]", req.OriginalContent, note),
		ChangesSummary: "Minor clarity and tone adjustments (mock editor).",
		Reasoning:      "Mock mode applies a lightweight edit to keep the cycle moving without API calls.",
		Model:          "mock-editor",
	}, nil
}
