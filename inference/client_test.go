package inference

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/contentcycle/llm"
	"github.com/BaSui01/contentcycle/types"
)

// stubProvider 按脚本回放响应。
type stubProvider struct {
	responses []string
	err       error
	requests  []*llm.ChatRequest
}

func (p *stubProvider) Completion(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	text := p.responses[0]
	if len(p.responses) > 1 {
		p.responses = p.responses[1:]
	}
	return &llm.ChatResponse{
		Model: req.Model,
		Choices: []llm.ChatChoice{{
			Message: llm.Message{Role: llm.RoleAssistant, Content: text},
		}},
		Usage: llm.ChatUsage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
	}, nil
}

func (p *stubProvider) HealthCheck(context.Context) (*llm.HealthStatus, error) {
	return &llm.HealthStatus{Healthy: true}, nil
}

func (p *stubProvider) Name() string { return "stub" }

func newLive(p llm.Provider) *LiveClient {
	prices := llm.PriceTable{Models: map[string]llm.ModelPrice{
		"focus-model": {Input: 0.001, Completion: 0.002},
	}}
	return NewLiveClient(p, "focus-model", "editor-model", prices, zap.NewNop())
}

func TestLiveEvaluate(t *testing.T) {
	persona := Persona{ID: "p-1", Type: types.PersonaTargetMarket, SystemPrompt: "You are a busy founder."}

	t.Run("parses structured feedback and bills usage", func(t *testing.T) {
		p := &stubProvider{responses: []string{
			`{"rating":8,"likes":["clear value prop"],"dislikes":["weak hook"],"suggestions":"sharpen the intro"}`,
		}}
		ev, err := newLive(p).Evaluate(context.Background(), EvaluationInput{Content: "some content"}, persona)
		require.NoError(t, err)

		assert.Equal(t, 8, ev.Rating)
		assert.Equal(t, []string{"clear value prop"}, ev.Likes)
		assert.Equal(t, []string{"weak hook"}, ev.Dislikes)
		assert.Equal(t, "sharpen the intro", ev.Suggestions)
		assert.InDelta(t, 0.001*0.1+0.002*0.05, ev.Usage.Cost, 1e-9)

		require.Len(t, p.requests, 1)
		msgs := p.requests[0].Messages
		require.Len(t, msgs, 3)
		assert.Equal(t, llm.RoleSystem, msgs[0].Role)
		assert.Equal(t, persona.SystemPrompt, msgs[0].Content)
		assert.Contains(t, msgs[1].Content, "some content")
	})

	t.Run("audience reaches the evaluator prompt", func(t *testing.T) {
		p := &stubProvider{responses: []string{
			`{"rating":7,"likes":[],"dislikes":[],"suggestions":"s"}`,
		}}
		in := EvaluationInput{Content: "some content", Audience: "startup founders"}
		_, err := newLive(p).Evaluate(context.Background(), in, persona)
		require.NoError(t, err)

		require.Len(t, p.requests, 1)
		userMsg := p.requests[0].Messages[1].Content
		assert.Contains(t, userMsg, "startup founders")
		assert.Contains(t, userMsg, "some content")
	})

	t.Run("no audience leaves the prompt unchanged", func(t *testing.T) {
		p := &stubProvider{responses: []string{
			`{"rating":7,"likes":[],"dislikes":[],"suggestions":"s"}`,
		}}
		_, err := newLive(p).Evaluate(context.Background(), EvaluationInput{Content: "c"}, persona)
		require.NoError(t, err)
		assert.NotContains(t, p.requests[0].Messages[1].Content, "Target audience")
	})

	t.Run("strips markdown fences", func(t *testing.T) {
		p := &stubProvider{responses: []string{
			"```json\n{\"rating\":6,\"likes\":[],\"dislikes\":[],\"suggestions\":\"x\"}\n```",
		}}
		ev, err := newLive(p).Evaluate(context.Background(), EvaluationInput{Content: "c"}, persona)
		require.NoError(t, err)
		assert.Equal(t, 6, ev.Rating)
	})

	t.Run("tolerates prose around the object", func(t *testing.T) {
		p := &stubProvider{responses: []string{
			"Sure, here is my feedback: {\"rating\":7,\"likes\":[\"tone\"],\"dislikes\":[],\"suggestions\":\"s\"} Hope that helps!",
		}}
		ev, err := newLive(p).Evaluate(context.Background(), EvaluationInput{Content: "c"}, persona)
		require.NoError(t, err)
		assert.Equal(t, 7, ev.Rating)
	})

	t.Run("rejects out-of-range rating", func(t *testing.T) {
		p := &stubProvider{responses: []string{`{"rating":0,"likes":[],"dislikes":[],"suggestions":""}`}}
		_, err := newLive(p).Evaluate(context.Background(), EvaluationInput{Content: "c"}, persona)
		require.Error(t, err)
		assert.Equal(t, types.ErrEvaluationFailure, types.GetErrorCode(err))
	})

	t.Run("rejects non-JSON response", func(t *testing.T) {
		p := &stubProvider{responses: []string{"I refuse to answer in JSON."}}
		_, err := newLive(p).Evaluate(context.Background(), EvaluationInput{Content: "c"}, persona)
		require.Error(t, err)
		assert.Equal(t, types.ErrEvaluationFailure, types.GetErrorCode(err))
	})
}

func TestLiveSynthesize(t *testing.T) {
	items := []FeedbackItem{{ParticipantID: "p-1", ParticipantType: types.PersonaRandom, Rating: 7}}

	t.Run("parses moderator payload", func(t *testing.T) {
		p := &stubProvider{responses: []string{
			`{"summary":"Mostly positive.","keyPoints":["tighten intro"],"patterns":"target market rates higher"}`,
		}}
		sum, err := newLive(p).Synthesize(context.Background(), items)
		require.NoError(t, err)
		assert.Equal(t, "Mostly positive.", sum.Summary)
		assert.Equal(t, []string{"tighten intro"}, sum.KeyPoints)
		assert.Equal(t, "editor-model", sum.Model)
	})

	t.Run("parse failure degrades to placeholder, not error", func(t *testing.T) {
		p := &stubProvider{responses: []string{"not json at all"}}
		sum, err := newLive(p).Synthesize(context.Background(), items)
		require.NoError(t, err)
		assert.Contains(t, sum.Summary, "unavailable")
	})

	t.Run("empty input short-circuits", func(t *testing.T) {
		p := &stubProvider{}
		sum, err := newLive(p).Synthesize(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, "none", sum.Model)
		assert.Empty(t, p.requests)
	})
}

func TestLiveRevise(t *testing.T) {
	req := RevisionRequest{
		OriginalContent: "original text",
		Aggregate: AggregateView{
			AverageRating: 6.5,
			TopLikes:      []string{"clarity"},
			TopDislikes:   []string{"weak hook"},
			Themes:        []Theme{{Theme: "clarity", Sentiment: types.SentimentPositive}},
		},
		EditorInstructions: "keep it under 200 words",
	}

	t.Run("parses revision and includes instructions in prompt", func(t *testing.T) {
		p := &stubProvider{responses: []string{
			`{"revisedContent":"better text","changesSummary":"tightened","reasoning":"hook was weak","instructionsApplied":true}`,
		}}
		rev, err := newLive(p).Revise(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "better text", rev.RevisedContent)
		assert.Equal(t, "tightened", rev.ChangesSummary)

		userMsg := p.requests[0].Messages[1].Content
		assert.Contains(t, userMsg, "keep it under 200 words")
		assert.Contains(t, userMsg, "weak hook")
		assert.Contains(t, userMsg, "clarity (positive)")
	})

	t.Run("empty revision is an error", func(t *testing.T) {
		p := &stubProvider{responses: []string{`{"revisedContent":"  ","changesSummary":"x","reasoning":"y"}`}}
		_, err := newLive(p).Revise(context.Background(), req)
		require.Error(t, err)
		assert.Equal(t, types.ErrRevisionFailure, types.GetErrorCode(err))
	})
}

func TestMockClient(t *testing.T) {
	c := NewMockClient()
	persona := Persona{ID: "p-1", Type: types.PersonaRandom}

	t.Run("deterministic and order independent", func(t *testing.T) {
		a, err := c.Evaluate(context.Background(), EvaluationInput{Content: "hello world"}, persona)
		require.NoError(t, err)
		b, err := c.Evaluate(context.Background(), EvaluationInput{Content: "hello world"}, persona)
		require.NoError(t, err)
		assert.Equal(t, a, b)
		assert.GreaterOrEqual(t, a.Rating, 4)
		assert.LessOrEqual(t, a.Rating, 10)
		assert.Zero(t, a.Usage.Cost)
	})

	t.Run("revision echoes top dislike", func(t *testing.T) {
		rev, err := c.Revise(context.Background(), RevisionRequest{
			OriginalContent: "draft",
			Aggregate:       AggregateView{TopDislikes: []string{"too long"}},
		})
		require.NoError(t, err)
		assert.Contains(t, rev.RevisedContent, "draft")
		assert.Contains(t, rev.RevisedContent, "too long")
	})

	t.Run("mode is mock", func(t *testing.T) {
		assert.Equal(t, types.AIModeMock, c.Mode())
	})
}

func TestFallbackClient(t *testing.T) {
	persona := Persona{ID: "p-1", Type: types.PersonaTargetMarket, SystemPrompt: "x"}

	t.Run("passes through live success", func(t *testing.T) {
		p := &stubProvider{responses: []string{`{"rating":8,"likes":[],"dislikes":[],"suggestions":"s"}`}}
		fb := NewFallbackClient(newLive(p), NewMockClient(), zap.NewNop())
		ev, err := fb.Evaluate(context.Background(), EvaluationInput{Content: "c"}, persona)
		require.NoError(t, err)
		assert.False(t, ev.Degraded)
		assert.Equal(t, 8, ev.Rating)
	})

	t.Run("degrades on live failure and records reason", func(t *testing.T) {
		p := &stubProvider{err: errors.New("upstream down")}
		fb := NewFallbackClient(newLive(p), NewMockClient(), zap.NewNop())
		ev, err := fb.Evaluate(context.Background(), EvaluationInput{Content: "c"}, persona)
		require.NoError(t, err)
		assert.True(t, ev.Degraded)
		assert.Contains(t, ev.FallbackReason, "upstream down")

		rev, err := fb.Revise(context.Background(), RevisionRequest{OriginalContent: "o"})
		require.NoError(t, err)
		assert.True(t, rev.Degraded)
		assert.True(t, strings.HasPrefix(rev.RevisedContent, "o"))
	})

	t.Run("cancellation is not masked", func(t *testing.T) {
		p := &stubProvider{err: context.Canceled}
		fb := NewFallbackClient(newLive(p), NewMockClient(), zap.NewNop())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := fb.Evaluate(ctx, EvaluationInput{Content: "c"}, persona)
		require.Error(t, err)
	})
}
