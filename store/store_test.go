package store

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/contentcycle/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	s := New(db, zap.NewNop())
	require.NoError(t, s.AutoMigrate())
	return s
}

func seedContent(t *testing.T, s *Store) *ContentItem {
	t.Helper()
	item := &ContentItem{
		ID:             "content-2026-08-28-" + uuid.NewString(),
		Title:          "Landing page copy",
		OriginalInput:  "original draft",
		CurrentContent: "original draft",
		TargetRating:   8,
		MaxCycles:      3,
	}
	require.NoError(t, s.CreateContent(context.Background(), item))
	return item
}

func seedCycle(t *testing.T, s *Store, contentID string, number int) *Cycle {
	t.Helper()
	c := &Cycle{
		ID:           uuid.NewString(),
		ContentID:    contentID,
		CycleNumber:  number,
		Status:       types.StatusDraft,
		InputContent: "original draft",
		StatusHistory: []StatusChange{
			{Status: types.StatusDraft, At: time.Now().UTC()},
		},
	}
	require.NoError(t, s.CreateCycle(context.Background(), c))
	return c
}

func TestContentCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item := seedContent(t, s)

	got, err := s.GetContent(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.Title, got.Title)
	assert.Equal(t, item.OriginalInput, got.OriginalInput)

	got.CurrentContent = "revised draft"
	require.NoError(t, s.UpdateContent(ctx, got))
	again, err := s.GetContent(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "revised draft", again.CurrentContent)

	_, err = s.GetContent(ctx, "missing")
	assert.Equal(t, types.ErrContentNotFound, types.GetErrorCode(err))

	items, err := s.ListContent(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestDeleteContentCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item := seedContent(t, s)
	c := seedCycle(t, s, item.ID, 1)
	require.NoError(t, s.ReplaceFeedback(ctx, c.ID, []Feedback{
		{ParticipantID: "p-1", ParticipantType: types.PersonaRandom, Rating: 7},
	}))

	require.NoError(t, s.DeleteContent(ctx, item.ID))

	_, err := s.GetContent(ctx, item.ID)
	assert.Equal(t, types.ErrContentNotFound, types.GetErrorCode(err))
	fb, err := s.ListFeedback(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, fb)

	err = s.DeleteContent(ctx, item.ID)
	assert.Equal(t, types.ErrContentNotFound, types.GetErrorCode(err))
}

func TestTransitionCycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	item := seedContent(t, s)
	c := seedCycle(t, s, item.ID, 1)

	t.Run("appends history", func(t *testing.T) {
		got, err := s.TransitionCycle(ctx, c.ID, types.StatusDraft, types.StatusFocusGroupRunning, "")
		require.NoError(t, err)
		assert.Equal(t, types.StatusFocusGroupRunning, got.Status)
		require.Len(t, got.StatusHistory, 2)
		assert.Equal(t, types.StatusFocusGroupRunning, got.StatusHistory[1].Status)
	})

	t.Run("stale from status is rejected", func(t *testing.T) {
		_, err := s.TransitionCycle(ctx, c.ID, types.StatusDraft, types.StatusFocusGroupRunning, "")
		assert.Equal(t, types.ErrInvalidTransition, types.GetErrorCode(err))
	})

	t.Run("unknown cycle", func(t *testing.T) {
		_, err := s.TransitionCycle(ctx, "missing", types.StatusDraft, types.StatusError, "")
		assert.Equal(t, types.ErrCycleNotFound, types.GetErrorCode(err))
	})

	t.Run("error transition records cause in the same write", func(t *testing.T) {
		got, err := s.TransitionCycle(ctx, c.ID, types.StatusFocusGroupRunning, types.StatusError, "provider unreachable")
		require.NoError(t, err)
		assert.Equal(t, "provider unreachable", got.ErrorMessage)

		persisted, err := s.GetCycleByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, types.StatusError, persisted.Status)
		assert.Equal(t, "provider unreachable", persisted.ErrorMessage)
	})
}

func TestWithTxRunner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	item := seedContent(t, s)
	c := seedCycle(t, s, item.ID, 1)

	calls := 0
	wired := s.WithTxRunner(func(ctx context.Context, fn func(tx *gorm.DB) error) error {
		calls++
		return s.db.WithContext(ctx).Transaction(fn)
	})

	got, err := wired.TransitionCycle(ctx, c.ID, types.StatusDraft, types.StatusFocusGroupRunning, "")
	require.NoError(t, err)
	assert.Equal(t, types.StatusFocusGroupRunning, got.Status)
	require.NoError(t, wired.ReplaceFeedback(ctx, c.ID, []Feedback{
		{ParticipantID: "p-1", ParticipantType: types.PersonaRandom, Rating: 7},
	}))
	assert.Equal(t, 2, calls)

	// 未注入 Runner 的原 Store 不受影响
	_, err = s.TransitionCycle(ctx, c.ID, types.StatusFocusGroupRunning, types.StatusFocusGroupComplete, "")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCycleNumberUnique(t *testing.T) {
	s := newTestStore(t)
	item := seedContent(t, s)
	seedCycle(t, s, item.ID, 1)

	dup := &Cycle{
		ID:           uuid.NewString(),
		ContentID:    item.ID,
		CycleNumber:  1,
		Status:       types.StatusDraft,
		InputContent: "x",
	}
	err := s.CreateCycle(context.Background(), dup)
	assert.Error(t, err)
}

func TestReplaceFeedbackIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	item := seedContent(t, s)
	c := seedCycle(t, s, item.ID, 1)

	first := []Feedback{
		{ParticipantID: "p-2", ParticipantType: types.PersonaRandom, Rating: 6, Likes: []string{"tone"}},
		{ParticipantID: "p-1", ParticipantType: types.PersonaTargetMarket, Rating: 8, Dislikes: []string{"hook"}},
	}
	require.NoError(t, s.ReplaceFeedback(ctx, c.ID, first))

	second := []Feedback{
		{ParticipantID: "p-3", ParticipantType: types.PersonaRandom, Rating: 9},
	}
	require.NoError(t, s.ReplaceFeedback(ctx, c.ID, second))

	got, err := s.ListFeedback(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p-3", got[0].ParticipantID)
}

func TestListFeedbackOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	item := seedContent(t, s)
	c := seedCycle(t, s, item.ID, 1)

	require.NoError(t, s.ReplaceFeedback(ctx, c.ID, []Feedback{
		{ParticipantID: "p-b", ParticipantType: types.PersonaRandom, Rating: 5},
		{ParticipantID: "p-a", ParticipantType: types.PersonaRandom, Rating: 7},
	}))
	got, err := s.ListFeedback(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p-a", got[0].ParticipantID)
	assert.Equal(t, "p-b", got[1].ParticipantID)
}

func TestCostAccumulation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	item := seedContent(t, s)
	c1 := seedCycle(t, s, item.ID, 1)
	c2 := seedCycle(t, s, item.ID, 2)

	require.NoError(t, s.AddCycleCosts(ctx, c1.ID, 100, 50, 0.01))
	require.NoError(t, s.AddCycleCosts(ctx, c1.ID, 200, 80, 0.02))
	require.NoError(t, s.AddCycleCosts(ctx, c2.ID, 10, 5, 0.001))

	got, err := s.GetCycleByID(ctx, c1.ID)
	require.NoError(t, err)
	assert.Equal(t, 300, got.PromptTokens)
	assert.Equal(t, 130, got.CompletionTokens)
	assert.InDelta(t, 0.03, got.TotalCost, 1e-9)

	totals, err := s.ContentTotals(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 310, totals.PromptTokens)
	assert.InDelta(t, 0.031, totals.TotalCost, 1e-9)
}

func TestIterationState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	item := seedContent(t, s)
	c1 := seedCycle(t, s, item.ID, 1)
	c2 := seedCycle(t, s, item.ID, 2)
	require.NoError(t, s.ReplaceFeedback(ctx, c2.ID, []Feedback{
		{ParticipantID: "p-1", ParticipantType: types.PersonaTargetMarket, Rating: 8},
	}))

	t.Run("zero selects latest cycle", func(t *testing.T) {
		st, err := s.IterationState(ctx, item.ID, 0)
		require.NoError(t, err)
		assert.Equal(t, 2, st.Cycle.CycleNumber)
		assert.Len(t, st.Feedback, 1)
		assert.Equal(t, 2, st.CycleCount)
	})

	t.Run("explicit cycle number", func(t *testing.T) {
		st, err := s.IterationState(ctx, item.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, c1.ID, st.Cycle.ID)
		assert.Empty(t, st.Feedback)
	})

	t.Run("missing cycle", func(t *testing.T) {
		_, err := s.IterationState(ctx, item.ID, 9)
		assert.Equal(t, types.ErrCycleNotFound, types.GetErrorCode(err))
	})
}

func TestHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	item := seedContent(t, s)
	seedCycle(t, s, item.ID, 1)
	seedCycle(t, s, item.ID, 2)

	h, err := s.History(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, h.Cycles, 2)
	assert.Equal(t, 1, h.Cycles[0].Cycle.CycleNumber)
	assert.Equal(t, 2, h.Cycles[1].Cycle.CycleNumber)
}

func TestActiveCycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	item := seedContent(t, s)
	seedCycle(t, s, item.ID, 1)

	c, err := s.ActiveCycle(ctx, item.ID, types.StatusDraft)
	require.NoError(t, err)
	assert.Equal(t, 1, c.CycleNumber)

	_, err = s.ActiveCycle(ctx, item.ID, types.StatusEditorComplete)
	assert.Equal(t, types.ErrInvalidTransition, types.GetErrorCode(err))
}

func TestPersonaOps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	builtin := &Persona{ID: "p-builtin", Type: types.PersonaTargetMarket, Name: "Alex", SystemPrompt: "x", Builtin: true}
	custom := &Persona{ID: "p-custom", Type: types.PersonaRandom, Name: "Sam", SystemPrompt: "y"}
	require.NoError(t, s.CreatePersona(ctx, builtin))
	require.NoError(t, s.CreatePersona(ctx, custom))

	t.Run("list by type", func(t *testing.T) {
		got, err := s.ListPersonas(ctx, types.PersonaTargetMarket)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "p-builtin", got[0].ID)

		all, err := s.ListPersonas(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("by ids preserves order and skips missing", func(t *testing.T) {
		got, err := s.PersonasByIDs(ctx, []string{"p-custom", "missing", "p-builtin"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "p-custom", got[0].ID)
		assert.Equal(t, "p-builtin", got[1].ID)
	})

	t.Run("builtin cannot be deleted", func(t *testing.T) {
		err := s.DeletePersona(ctx, "p-builtin")
		assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
		require.NoError(t, s.DeletePersona(ctx, "p-custom"))
		_, err = s.GetPersona(ctx, "p-custom")
		assert.Equal(t, types.ErrPersonaNotFound, types.GetErrorCode(err))
	})
}

func TestCycleJSONColumnsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	item := seedContent(t, s)
	c := seedCycle(t, s, item.ID, 1)

	c.Aggregate = &AggregatedFeedback{
		AverageRating:      7.5,
		RatingDistribution: RatingDistribution{High: 2},
		TopLikes:           []string{"clarity"},
		TopDislikes:        []string{"hook"},
		ConvergenceScore:   0.83,
		Themes:             []FeedbackTheme{{Theme: "clarity", Sentiment: types.SentimentPositive, Frequency: 2}},
	}
	c.Editor = &EditorPass{RevisedContent: "better", Model: "m", At: time.Now().UTC()}
	c.Review = &UserReview{Decision: types.StatusApproved, Auto: true, DecidedAt: time.Now().UTC()}
	require.NoError(t, s.UpdateCycle(ctx, c))

	got, err := s.GetCycleByID(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Aggregate)
	assert.InDelta(t, 7.5, got.Aggregate.AverageRating, 1e-9)
	assert.Equal(t, 2, got.Aggregate.RatingDistribution.High)
	require.NotNil(t, got.Editor)
	assert.Equal(t, "better", got.Editor.RevisedContent)
	require.NotNil(t, got.Review)
	assert.True(t, got.Review.Auto)
}
